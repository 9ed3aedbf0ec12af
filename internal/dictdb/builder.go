package dictdb

import (
	"database/sql"
	"fmt"
	"unicode/utf8"

	"github.com/jiong3/fmld/internal/dictfmt"
	"github.com/jiong3/fmld/internal/fmlderr"
	"github.com/jiong3/fmld/internal/pinyin"
	"github.com/jiong3/fmld/internal/tagreg"
)

type nodeKind int

const (
	nodeWord nodeKind = iota
	nodePinyin
	nodeClass
	nodeDefinition
	nodeCrossReference
)

// node is a typed handle into the database, mirroring original_source's
// DictNode enum: the fields populated depend on kind.
type node struct {
	kind         nodeKind
	sharedID     int64
	wordID       int64
	sharedPronID int64
	classID      int64
	definitionID int64
}

type pendingCrossRef struct {
	sharedID    int64
	refType     rune
	srcWordID   int64
	srcDefID    sql.NullInt64
	dstTrad     string
	dstSimp     string
	dstExtDefID int
	ctx         dictfmt.ParsedLine
}

type pendingNoteRef struct {
	sharedID  int64
	extNoteID int
	ctx       dictfmt.ParsedLine
}

// IngestOptions configures one text-to-db ingest run.
type IngestOptions struct {
	// LimitToWord, if non-empty, discards every Word (and its descendant
	// lines) whose traditional form does not match. Cross-references whose
	// destination falls outside the limit are dropped with a diagnostic, per
	// spec.md's open-question resolution.
	LimitToWord string
}

type builder struct {
	tx          *sql.Tx
	rankCounter int64
	stack       [][]node
	diags       *fmlderr.List

	curWord     string
	wordFailed  bool
	wordSkipped bool

	limitWord string

	crossRefs []pendingCrossRef
	noteRefs  []pendingNoteRef
}

// Ingest runs the DB Builder (spec.md §4.5) over a parsed-line stream inside
// one transaction, following original_source/src/txt_to_db.rs's
// structure: synchronous=OFF / journal_mode=MEMORY for ingest throughput,
// a parent stack indexed by indentation, deferred cross-reference and
// note-link resolution after the main pass, then commit.
func Ingest(db *sql.DB, lines []dictfmt.ParsedLine, opts IngestOptions) (*fmlderr.List, error) {
	if _, err := db.Exec(`PRAGMA synchronous = OFF`); err != nil {
		return nil, wrapDBError(err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = MEMORY`); err != nil {
		return nil, wrapDBError(err)
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, wrapDBError(err)
	}

	b := &builder{tx: tx, diags: &fmlderr.List{}, limitWord: opts.LimitToWord}
	for _, pl := range lines {
		b.process(pl)
	}
	b.resolveDeferred()

	if err := tx.Commit(); err != nil {
		return nil, wrapDBError(err)
	}
	return b.diags, nil
}

func (b *builder) addDiag(pl dictfmt.ParsedLine, err error) {
	b.diags.Add(fmlderr.Diagnostic{
		Word:      b.curWord,
		StartLine: pl.StartLine,
		LineCount: pl.LineCount,
		Text:      pl.Text,
		Err:       err,
	})
}

func (b *builder) process(pl dictfmt.ParsedLine) {
	var first rune
	if len(pl.Text) > 0 {
		first, _ = utf8.DecodeRuneInString(pl.Text)
	}

	if first == 'W' {
		b.wordFailed = false
		b.wordSkipped = false
		b.curWord = "unknown"
		if wl, ok := pl.Line.(*dictfmt.WordLine); ok && len(wl.Groups) > 0 && len(wl.Groups[0].Words) > 0 {
			trad := wl.Groups[0].Words[0].Trad
			b.curWord = trad
			if b.limitWord != "" && trad != b.limitWord {
				b.wordSkipped = true
			}
		}
	}

	if b.wordFailed || b.wordSkipped {
		return
	}

	if pl.Err != nil {
		b.addDiag(pl, fmlderr.ErrParse{Msg: pl.Err.Error()})
		b.wordFailed = true
		return
	}

	if pl.Indent < len(b.stack) {
		b.stack = b.stack[:pl.Indent]
	} else if pl.Indent > len(b.stack) {
		b.addDiag(pl, fmlderr.ErrNoUsableParentNode{LineKind: lineKindName(pl.Line), Indent: pl.Indent})
		b.wordFailed = true
		return
	}

	nodes, err := b.dispatch(pl)
	if err != nil {
		b.addDiag(pl, err)
		b.wordFailed = true
		return
	}
	b.stack = append(b.stack, nodes)
}

func lineKindName(l dictfmt.DictLine) string {
	switch l.(type) {
	case *dictfmt.WordLine:
		return "Word"
	case *dictfmt.PinyinLine:
		return "Pinyin"
	case *dictfmt.ClassLine:
		return "Class"
	case *dictfmt.DefinitionLine:
		return "Definition"
	case *dictfmt.CrossReferenceLine:
		return "CrossReference"
	case *dictfmt.NoteLine:
		return "Note"
	case *dictfmt.CommentLine:
		return "Comment"
	default:
		return "Unknown"
	}
}

func (b *builder) dispatch(pl dictfmt.ParsedLine) ([]node, error) {
	switch l := pl.Line.(type) {
	case *dictfmt.WordLine:
		return b.addWord(pl.Indent, l)
	case *dictfmt.PinyinLine:
		return b.addPinyin(pl.Indent, l)
	case *dictfmt.ClassLine:
		return b.addClass(pl.Indent, l)
	case *dictfmt.DefinitionLine:
		return b.addDefinition(pl.Indent, l)
	case *dictfmt.CrossReferenceLine:
		return b.addCrossReference(pl, l)
	case *dictfmt.NoteLine:
		return b.addNote(pl, l)
	case *dictfmt.CommentLine:
		return b.addComment(pl.Indent, l)
	default:
		return nil, fmlderr.ErrParse{Msg: "unreachable: unknown line type"}
	}
}

func firstOfKind(frame []node, kind nodeKind) (node, bool) {
	for _, n := range frame {
		if n.kind == kind {
			return n, true
		}
	}
	return node{}, false
}

func frameHasKind(frame []node, kind nodeKind) bool {
	_, ok := firstOfKind(frame, kind)
	return ok
}

func noParent(kind string, indent int) error {
	return fmlderr.ErrNoUsableParentNode{LineKind: kind, Indent: indent}
}

func (b *builder) newShared() (int64, error) {
	b.rankCounter++
	res, err := b.tx.Exec(`INSERT INTO dict_shared (rank) VALUES (?)`, b.rankCounter)
	if err != nil {
		return 0, wrapDBError(err)
	}
	return res.LastInsertId()
}

func (b *builder) applyTags(sharedID int64, tags dictfmt.TagGroup) error {
	for _, a := range tags.Ascii {
		t, err := tagreg.Lookup(a)
		if err != nil {
			return fmlderr.ErrInvalidAsciiTag(a)
		}
		if err := b.addTag(sharedID, t.Name, t.Category, string(a)); err != nil {
			return err
		}
	}
	for _, f := range tags.Full {
		if err := b.addTag(sharedID, f, "definition", ""); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) addTag(sharedID int64, tagText, category, asciiSymbol string) error {
	var asciiArg any
	if asciiSymbol != "" {
		asciiArg = asciiSymbol
	}
	if _, err := b.tx.Exec(`INSERT OR IGNORE INTO dict_tag (tag, category, ascii_symbol) VALUES (?, ?, ?)`, tagText, category, asciiArg); err != nil {
		return wrapDBError(err)
	}
	var tagID int64
	if err := b.tx.QueryRow(`SELECT id FROM dict_tag WHERE tag = ? AND category = ?`, tagText, category).Scan(&tagID); err != nil {
		return wrapDBError(err)
	}
	if _, err := b.tx.Exec(`INSERT OR IGNORE INTO dict_shared_tag (for_shared_id, tag_id) VALUES (?, ?)`, sharedID, tagID); err != nil {
		return wrapDBError(err)
	}
	return nil
}

func (b *builder) addWord(indent int, l *dictfmt.WordLine) ([]node, error) {
	if indent != 0 {
		return nil, noParent("Word", indent)
	}
	group := l.Groups[0]
	if len(group.Words) == 0 {
		return nil, fmlderr.ErrParse{Msg: "word line has no words"}
	}
	// Only the first word of the first tag-group is kept: the format
	// historically allowed variants on one line but semantics retains one.
	w := group.Words[0]
	simp := w.Simp
	if simp == "" {
		simp = w.Trad
	}

	sharedID, err := b.newShared()
	if err != nil {
		return nil, err
	}
	res, err := b.tx.Exec(`INSERT INTO dict_word (shared_id, trad, simp) VALUES (?, ?, ?)`, sharedID, w.Trad, simp)
	if err != nil {
		return nil, wrapDBError(err)
	}
	wordID, err := res.LastInsertId()
	if err != nil {
		return nil, wrapDBError(err)
	}
	if err := b.applyTags(sharedID, group.Tags); err != nil {
		return nil, err
	}
	return []node{{kind: nodeWord, sharedID: sharedID, wordID: wordID}}, nil
}

func (b *builder) addPinyin(indent int, l *dictfmt.PinyinLine) ([]node, error) {
	switch indent {
	case 1:
		if !frameHasKind(b.stack[0], nodeWord) {
			return nil, noParent("Pinyin", indent)
		}
	case 2:
		if !frameHasKind(b.stack[1], nodePinyin) {
			return nil, noParent("Pinyin", indent)
		}
	default:
		return nil, noParent("Pinyin", indent)
	}

	var nodes []node
	for _, g := range l.Groups {
		for _, tok := range g.Pinyins {
			sharedID, err := b.newShared()
			if err != nil {
				return nil, err
			}
			pronID, err := b.upsertPron(tok)
			if err != nil {
				return nil, err
			}
			res, err := b.tx.Exec(`INSERT INTO dict_shared_pron (shared_id, pron_id) VALUES (?, ?)`, sharedID, pronID)
			if err != nil {
				return nil, wrapDBError(err)
			}
			sharedPronID, err := res.LastInsertId()
			if err != nil {
				return nil, wrapDBError(err)
			}
			if err := b.applyTags(sharedID, g.Tags); err != nil {
				return nil, err
			}
			nodes = append(nodes, node{kind: nodePinyin, sharedID: sharedID, sharedPronID: sharedPronID})
		}
	}

	if indent == 2 {
		b.stack[1] = append(b.stack[1], nodes...)
	}

	return nodes, nil
}

func (b *builder) upsertPron(numeric string) (int64, error) {
	marked := pinyin.MarkFromNum(numeric)
	if _, err := b.tx.Exec(`INSERT OR IGNORE INTO dict_pron (pinyin_num, pinyin_mark) VALUES (?, ?)`, numeric, marked); err != nil {
		return 0, wrapDBError(err)
	}
	var id int64
	if err := b.tx.QueryRow(`SELECT id FROM dict_pron WHERE pinyin_num = ?`, numeric).Scan(&id); err != nil {
		return 0, wrapDBError(err)
	}
	return id, nil
}

func (b *builder) addClass(indent int, l *dictfmt.ClassLine) ([]node, error) {
	if indent != 2 || !frameHasKind(b.stack[1], nodePinyin) {
		return nil, noParent("Class", indent)
	}
	classID, err := b.upsertClass(l.Name)
	if err != nil {
		return nil, err
	}
	return []node{{kind: nodeClass, classID: classID}}, nil
}

func (b *builder) upsertClass(name string) (int64, error) {
	if _, err := b.tx.Exec(`INSERT OR IGNORE INTO dict_class (name) VALUES (?)`, name); err != nil {
		return 0, wrapDBError(err)
	}
	var id int64
	if err := b.tx.QueryRow(`SELECT id FROM dict_class WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, wrapDBError(err)
	}
	return id, nil
}

func (b *builder) addDefinition(indent int, l *dictfmt.DefinitionLine) ([]node, error) {
	if indent != 3 {
		return nil, noParent("Definition", indent)
	}
	wordNode, ok := firstOfKind(b.stack[0], nodeWord)
	if !ok {
		return nil, noParent("Definition", indent)
	}
	classNode, ok := firstOfKind(b.stack[2], nodeClass)
	if !ok {
		return nil, noParent("Definition", indent)
	}

	sharedID, err := b.newShared()
	if err != nil {
		return nil, err
	}
	res, err := b.tx.Exec(
		`INSERT INTO dict_definition (shared_id, word_id, definition, ext_def_id, class_id) VALUES (?, ?, ?, ?, ?)`,
		sharedID, wordNode.wordID, l.Text, l.ExtDefID, classNode.classID,
	)
	if err != nil {
		return nil, wrapDBError(err)
	}
	defID, err := res.LastInsertId()
	if err != nil {
		return nil, wrapDBError(err)
	}
	if err := b.applyTags(sharedID, l.Tags); err != nil {
		return nil, err
	}

	for _, pn := range b.stack[1] {
		if pn.kind != nodePinyin {
			continue
		}
		if _, err := b.tx.Exec(`INSERT INTO dict_pron_definition (shared_pron_id, definition_id) VALUES (?, ?)`, pn.sharedPronID, defID); err != nil {
			return nil, wrapDBError(err)
		}
	}

	return []node{{kind: nodeDefinition, sharedID: sharedID, wordID: wordNode.wordID, definitionID: defID}}, nil
}

func (b *builder) addCrossReference(pl dictfmt.ParsedLine, l *dictfmt.CrossReferenceLine) ([]node, error) {
	indent := pl.Indent
	if indent != 1 && indent != 4 {
		return nil, noParent("CrossReference", indent)
	}
	wordNode, ok := firstOfKind(b.stack[0], nodeWord)
	if !ok {
		return nil, noParent("CrossReference", indent)
	}
	var srcDefID sql.NullInt64
	if indent == 4 {
		defNode, ok := firstOfKind(b.stack[3], nodeDefinition)
		if !ok {
			return nil, noParent("CrossReference", indent)
		}
		srcDefID = sql.NullInt64{Int64: defNode.definitionID, Valid: true}
	}

	var nodes []node
	for _, g := range l.Groups {
		for _, ref := range g.References {
			sharedID, err := b.newShared()
			if err != nil {
				return nil, err
			}
			if err := b.applyTags(sharedID, g.Tags); err != nil {
				return nil, err
			}
			dstSimp := ref.Word.Simp
			if dstSimp == "" {
				dstSimp = ref.Word.Trad
			}
			b.crossRefs = append(b.crossRefs, pendingCrossRef{
				sharedID:    sharedID,
				refType:     l.RefType,
				srcWordID:   wordNode.wordID,
				srcDefID:    srcDefID,
				dstTrad:     ref.Word.Trad,
				dstSimp:     dstSimp,
				dstExtDefID: ref.ExtDefID,
				ctx:         pl,
			})
			nodes = append(nodes, node{kind: nodeCrossReference, sharedID: sharedID})
		}
	}
	return nodes, nil
}

func (b *builder) addComment(indent int, l *dictfmt.CommentLine) ([]node, error) {
	commentID, err := b.insertComment(l.Text)
	if err != nil {
		return nil, err
	}

	if len(b.stack) == 0 {
		if b.rankCounter != 0 {
			return nil, noParent("Comment", indent)
		}
		sharedID, err := b.newShared()
		if err != nil {
			return nil, err
		}
		if err := b.setCommentOnShared(sharedID, commentID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	parent := b.stack[len(b.stack)-1]
	targets := 0
	for _, n := range parent {
		if n.kind == nodeClass {
			return nil, noParent("Comment", indent)
		}
		if err := b.setCommentOnShared(n.sharedID, commentID); err != nil {
			return nil, err
		}
		targets++
	}
	if targets == 0 {
		return nil, noParent("Comment", indent)
	}
	return nil, nil
}

func (b *builder) insertComment(text string) (int64, error) {
	res, err := b.tx.Exec(`INSERT INTO dict_comment (comment) VALUES (?)`, text)
	if err != nil {
		return 0, wrapDBError(err)
	}
	return res.LastInsertId()
}

func (b *builder) setCommentOnShared(sharedID, commentID int64) error {
	if _, err := b.tx.Exec(`UPDATE dict_shared SET comment_id = ? WHERE id = ?`, commentID, sharedID); err != nil {
		return wrapDBError(err)
	}
	return nil
}

func (b *builder) addNote(pl dictfmt.ParsedLine, l *dictfmt.NoteLine) ([]node, error) {
	var noteID int64
	if !l.IsLink {
		var err error
		noteID, err = b.insertNote(l.ExtNoteID, l.Text)
		if err != nil {
			return nil, err
		}
	}

	if len(b.stack) == 0 {
		return nil, noParent("Note", pl.Indent)
	}

	parent := b.stack[len(b.stack)-1]
	targets := 0
	for _, n := range parent {
		if n.kind == nodeClass {
			return nil, noParent("Note", pl.Indent)
		}
		if l.IsLink {
			b.noteRefs = append(b.noteRefs, pendingNoteRef{sharedID: n.sharedID, extNoteID: l.ExtNoteID, ctx: pl})
		} else {
			if err := b.setNoteOnShared(n.sharedID, noteID); err != nil {
				return nil, err
			}
		}
		targets++
	}
	if targets == 0 {
		return nil, noParent("Note", pl.Indent)
	}
	return nil, nil
}

func (b *builder) insertNote(extNoteID int, text string) (int64, error) {
	res, err := b.tx.Exec(`INSERT INTO dict_note (note, ext_note_id) VALUES (?, ?)`, text, extNoteID)
	if err != nil {
		return 0, wrapDBError(err)
	}
	return res.LastInsertId()
}

func (b *builder) setNoteOnShared(sharedID, noteID int64) error {
	if _, err := b.tx.Exec(`UPDATE dict_shared SET note_id = ? WHERE id = ?`, noteID, sharedID); err != nil {
		return wrapDBError(err)
	}
	return nil
}

func (b *builder) resolveDeferred() {
	for _, cr := range b.crossRefs {
		dstWordID, ok, err := b.lookupWord(cr.dstTrad, cr.dstSimp)
		if err != nil {
			b.addDiag(cr.ctx, err)
			continue
		}
		if !ok {
			b.addDiag(cr.ctx, fmlderr.ErrReferenceTargetNotFound{Word: formatWord(cr.dstTrad, cr.dstSimp)})
			continue
		}

		var dstDefID sql.NullInt64
		if cr.dstExtDefID != 0 {
			id, ok, err := b.lookupDefinition(dstWordID, cr.dstExtDefID)
			if err != nil {
				b.addDiag(cr.ctx, err)
				continue
			}
			if !ok {
				b.addDiag(cr.ctx, fmlderr.ErrReferenceTargetNotFound{Word: formatWord(cr.dstTrad, cr.dstSimp), ExtDefID: cr.dstExtDefID})
				continue
			}
			dstDefID = sql.NullInt64{Int64: id, Valid: true}
		}

		refTypeID, ok, err := b.lookupRefType(cr.refType)
		if err != nil {
			b.addDiag(cr.ctx, err)
			continue
		}
		if !ok {
			b.addDiag(cr.ctx, fmlderr.ErrUnknownReferenceType(cr.refType))
			continue
		}

		_, err = b.tx.Exec(
			`INSERT INTO dict_reference (shared_id, ref_type_id, word_id_src, definition_id_src, word_id_dst, definition_id_dst) VALUES (?, ?, ?, ?, ?, ?)`,
			cr.sharedID, refTypeID, cr.srcWordID, cr.srcDefID, dstWordID, dstDefID,
		)
		if err != nil {
			b.addDiag(cr.ctx, wrapDBError(err))
		}
	}

	for _, nr := range b.noteRefs {
		noteID, ok, err := b.lookupNoteByExtID(nr.extNoteID)
		if err != nil {
			b.addDiag(nr.ctx, err)
			continue
		}
		if !ok {
			b.addDiag(nr.ctx, fmlderr.ErrNoteIDNotFound(nr.extNoteID))
			continue
		}
		if err := b.setNoteOnShared(nr.sharedID, noteID); err != nil {
			b.addDiag(nr.ctx, err)
		}
	}
}

func (b *builder) lookupWord(trad, simp string) (int64, bool, error) {
	var id int64
	err := b.tx.QueryRow(`SELECT id FROM dict_word WHERE trad = ? AND simp = ?`, trad, simp).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrapDBError(err)
	}
	return id, true, nil
}

func (b *builder) lookupDefinition(wordID int64, extDefID int) (int64, bool, error) {
	var id int64
	err := b.tx.QueryRow(`SELECT id FROM dict_definition WHERE word_id = ? AND ext_def_id = ?`, wordID, extDefID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrapDBError(err)
	}
	return id, true, nil
}

func (b *builder) lookupRefType(code rune) (int64, bool, error) {
	rt, err := tagreg.LookupRefType(code)
	if err != nil {
		return 0, false, nil
	}
	var id int64
	err = b.tx.QueryRow(`SELECT id FROM dict_ref_type WHERE type = ?`, rt.Name).Scan(&id)
	if err != nil {
		return 0, false, wrapDBError(err)
	}
	return id, true, nil
}

func (b *builder) lookupNoteByExtID(extNoteID int) (int64, bool, error) {
	var id int64
	err := b.tx.QueryRow(`SELECT id FROM dict_note WHERE ext_note_id = ?`, extNoteID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrapDBError(err)
	}
	return id, true, nil
}

func formatWord(trad, simp string) string {
	if simp == "" || simp == trad {
		return trad
	}
	return fmt.Sprintf("%s／%s", trad, simp)
}
