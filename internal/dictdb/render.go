package dictdb

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/jiong3/fmld/internal/tagreg"
)

const (
	wordSep  = "／"
	itemsSep = "; "
)

type renderer struct {
	db           *sql.DB
	indentUnit   string
	writtenNotes map[int64]bool
	buf          strings.Builder
}

// Render walks the database in (rank, rank_relative, id) order and
// reconstructs the source text, following spec.md §4.8's state machine.
// Grounded on original_source/src/db_to_txt.rs's DbToTxt: the same
// word/pinyin/class/definition change-detection loop, the same tag
// formatting and note-dedup rules, the same consecutive-run grouping for
// pinyin-bindings and cross-references (a direct port of itertools::chunk_by,
// which groups only adjacent equal keys, not all equal keys globally).
// indentChar must be a single ASCII byte; the caller picks space or tab.
func Render(db *sql.DB, indentChar byte) (string, error) {
	r := &renderer{db: db, indentUnit: string(indentChar), writtenNotes: map[int64]bool{}}
	if err := r.run(); err != nil {
		return "", err
	}
	return r.buf.String(), nil
}

func (r *renderer) indent(level int) string {
	return strings.Repeat(r.indentUnit, level)
}

func (r *renderer) run() error {
	if err := r.writeHeaderComments(); err != nil {
		return err
	}

	rows, err := r.db.Query(`
		SELECT
			w.id, w.shared_id, w.trad, w.simp,
			c.id, c.name,
			def.id, def.shared_id, def.ext_def_id, def.definition
		FROM dict_definition def
		JOIN dict_shared s ON def.shared_id = s.id
		JOIN dict_word w ON def.word_id = w.id
		JOIN dict_class c ON def.class_id = c.id
		ORDER BY s.rank, s.rank_relative, s.id
	`)
	if err != nil {
		return wrapDBError(err)
	}
	defer rows.Close()

	lastWordID, lastClassID := int64(-1), int64(-1)
	var lastPinyinIDs []int64

	for rows.Next() {
		var wordID, wordSharedID, classID, defID, defSharedID int64
		var trad, simp, className, defText string
		var extDefID int
		if err := rows.Scan(&wordID, &wordSharedID, &trad, &simp, &classID, &className, &defID, &defSharedID, &extDefID, &defText); err != nil {
			return wrapDBError(err)
		}

		if wordID != lastWordID {
			if err := r.writeWordEntry(wordID, wordSharedID, trad, simp); err != nil {
				return err
			}
			lastWordID = wordID
			lastPinyinIDs = nil
			lastClassID = -1
		}

		pinyinIDs, err := r.pinyinSharedIDsForDefinition(defID)
		if err != nil {
			return err
		}
		if !int64SliceEqual(pinyinIDs, lastPinyinIDs) {
			if err := r.writePinyinEntries(pinyinIDs); err != nil {
				return err
			}
			lastPinyinIDs = pinyinIDs
		}

		if classID != lastClassID {
			if err := r.writeClassEntry(className); err != nil {
				return err
			}
			lastClassID = classID
		}

		if err := r.writeDefinitionEntry(wordID, defID, defSharedID, extDefID, defText); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *renderer) writeHeaderComments() error {
	rows, err := r.db.Query(`
		SELECT s.id
		FROM dict_shared s
		WHERE s.comment_id IS NOT NULL
			AND NOT EXISTS (SELECT 1 FROM dict_word w WHERE w.shared_id = s.id)
			AND NOT EXISTS (SELECT 1 FROM dict_shared_pron sp WHERE sp.shared_id = s.id)
			AND NOT EXISTS (SELECT 1 FROM dict_definition d WHERE d.shared_id = s.id)
			AND NOT EXISTS (SELECT 1 FROM dict_reference rf WHERE rf.shared_id = s.id)
		ORDER BY s.rank, s.rank_relative
	`)
	if err != nil {
		return wrapDBError(err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return wrapDBError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return wrapDBError(err)
	}
	rows.Close()

	for _, id := range ids {
		if err := r.writeSharedItems(id, 0); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) writeWordEntry(wordID, wordSharedID int64, trad, simp string) error {
	tags, err := r.formatTags(wordSharedID)
	if err != nil {
		return err
	}
	r.buf.WriteString(fmt.Sprintf("W%s %s\n", tags, formatWordStr(trad, simp)))
	if err := r.writeSharedItems(wordSharedID, 1); err != nil {
		return err
	}
	return r.writeCrossReferences(wordID, sql.NullInt64{}, 1)
}

func (r *renderer) pinyinSharedIDsForDefinition(defID int64) ([]int64, error) {
	rows, err := r.db.Query(`
		SELECT sp.id
		FROM dict_pron_definition pdp
		JOIN dict_shared_pron sp ON pdp.shared_pron_id = sp.id
		JOIN dict_shared ps ON sp.shared_id = ps.id
		WHERE pdp.definition_id = ?
		ORDER BY ps.rank, ps.rank_relative
	`, defID)
	if err != nil {
		return nil, wrapDBError(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, wrapDBError(err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type pinyinRenderRow struct {
	num                string
	noteID, commentID  sql.NullInt64
	tags               string
}

func (r *renderer) writePinyinEntries(pinyinIDs []int64) error {
	data := make([]pinyinRenderRow, 0, len(pinyinIDs))
	for _, psID := range pinyinIDs {
		var row pinyinRenderRow
		var sharedID int64
		err := r.db.QueryRow(`
			SELECT p.pinyin_num, s.id, s.note_id, s.comment_id
			FROM dict_shared_pron sp
			JOIN dict_pron p ON sp.pron_id = p.id
			JOIN dict_shared s ON sp.shared_id = s.id
			WHERE sp.id = ?
		`, psID).Scan(&row.num, &sharedID, &row.noteID, &row.commentID)
		if err != nil {
			return wrapDBError(err)
		}
		tags, err := r.formatTags(sharedID)
		if err != nil {
			return err
		}
		row.tags = tags
		data = append(data, row)
	}

	indentLevel := 1
	for i := 0; i < len(data); {
		j := i + 1
		for j < len(data) && data[j].noteID == data[i].noteID && data[j].commentID == data[i].commentID {
			j++
		}
		group := data[i:j]

		var tagGroups []string
		for k := 0; k < len(group); {
			l := k + 1
			for l < len(group) && group[l].tags == group[k].tags {
				l++
			}
			nums := make([]string, 0, l-k)
			for _, it := range group[k:l] {
				nums = append(nums, it.num)
			}
			tagGroups = append(tagGroups, group[k].tags+" "+strings.Join(nums, itemsSep))
			k = l
		}

		r.buf.WriteString(fmt.Sprintf("%sP%s\n", r.indent(indentLevel), strings.Join(tagGroups, " ")))
		if err := r.writeSharedItemsFromIDs(group[0].commentID, group[0].noteID, indentLevel+1); err != nil {
			return err
		}
		indentLevel = 2
		i = j
	}
	return nil
}

func (r *renderer) writeClassEntry(name string) error {
	r.buf.WriteString(fmt.Sprintf("%sC %s\n", r.indent(2), name))
	return nil
}

func (r *renderer) writeDefinitionEntry(wordID, defID, defSharedID int64, extDefID int, text string) error {
	tags, err := r.formatTags(defSharedID)
	if err != nil {
		return err
	}
	r.buf.WriteString(fmt.Sprintf("%sD%d%s %s\n", r.indent(3), extDefID, tags, r.formatMultiline(text, 3)))
	if err := r.writeSharedItems(defSharedID, 4); err != nil {
		return err
	}
	return r.writeCrossReferences(wordID, sql.NullInt64{Int64: defID, Valid: true}, 4)
}

// formatTags renders a Shared's tag set as "|ascii#full1 #full2|", ASCII
// tags ordered by the registry's sort rank (ties broken by tag character,
// stably), full tags sorted lexicographically. Empty tag sets render "||".
func (r *renderer) formatTags(sharedID int64) (string, error) {
	rows, err := r.db.Query(`
		SELECT t.ascii_symbol, t.tag
		FROM dict_shared_tag st
		JOIN dict_tag t ON st.tag_id = t.id
		WHERE st.for_shared_id = ?
	`, sharedID)
	if err != nil {
		return "", wrapDBError(err)
	}
	defer rows.Close()

	var asciiTags []string
	var fullTags []string
	for rows.Next() {
		var asciiSymbol sql.NullString
		var tag string
		if err := rows.Scan(&asciiSymbol, &tag); err != nil {
			return "", wrapDBError(err)
		}
		if asciiSymbol.Valid && asciiSymbol.String != "" {
			asciiTags = append(asciiTags, asciiSymbol.String)
		} else {
			fullTags = append(fullTags, "#"+tag)
		}
	}
	if err := rows.Err(); err != nil {
		return "", wrapDBError(err)
	}

	sort.SliceStable(asciiTags, func(i, j int) bool {
		ri, rj := tagreg.SortRank(rune(asciiTags[i][0])), tagreg.SortRank(rune(asciiTags[j][0]))
		if ri != rj {
			return ri < rj
		}
		return asciiTags[i] < asciiTags[j]
	})
	sort.Strings(fullTags)

	if len(asciiTags) == 0 && len(fullTags) == 0 {
		return "||", nil
	}
	space := ""
	if len(fullTags) > 0 {
		space = " "
	}
	return fmt.Sprintf("|%s%s%s|", strings.Join(asciiTags, ""), space, strings.Join(fullTags, " ")), nil
}

func (r *renderer) writeSharedItems(sharedID int64, indent int) error {
	var commentID, noteID sql.NullInt64
	err := r.db.QueryRow(`SELECT comment_id, note_id FROM dict_shared WHERE id = ?`, sharedID).Scan(&commentID, &noteID)
	if err != nil {
		return wrapDBError(err)
	}
	return r.writeSharedItemsFromIDs(commentID, noteID, indent)
}

func (r *renderer) writeSharedItemsFromIDs(commentID, noteID sql.NullInt64, indent int) error {
	if commentID.Valid {
		var text string
		if err := r.db.QueryRow(`SELECT comment FROM dict_comment WHERE id = ?`, commentID.Int64).Scan(&text); err != nil {
			return wrapDBError(err)
		}
		r.buf.WriteString(fmt.Sprintf("%s# %s\n", r.indent(indent), r.formatMultiline(text, indent)))
	}
	if noteID.Valid {
		var text string
		var extNoteID int64
		err := r.db.QueryRow(`SELECT note, ext_note_id FROM dict_note WHERE id = ?`, noteID.Int64).Scan(&text, &extNoteID)
		if err != nil {
			return wrapDBError(err)
		}
		if r.writtenNotes[extNoteID] {
			r.buf.WriteString(fmt.Sprintf("%sN->%d\n", r.indent(indent), extNoteID))
		} else {
			r.buf.WriteString(fmt.Sprintf("%sN%d %s\n", r.indent(indent), extNoteID, r.formatMultiline(text, indent)))
			r.writtenNotes[extNoteID] = true
		}
	}
	return nil
}

func (r *renderer) formatMultiline(text string, indentLevel int) string {
	cont := "\n" + r.indent(indentLevel+2)
	return strings.Join(strings.Split(text, "\n"), cont)
}

func formatWordStr(trad, simp string) string {
	if trad == simp {
		return trad
	}
	return trad + wordSep + simp
}

type crossRefRenderRow struct {
	refType           string
	noteID, commentID sql.NullInt64
	refStr            string
	tags              string
}

func (r *renderer) writeCrossReferences(srcWordID int64, srcDefID sql.NullInt64, indent int) error {
	rows, err := r.db.Query(`
		SELECT rt.ascii_symbol, r.shared_id, s.note_id, s.comment_id, w_dst.trad, w_dst.simp, def_dst.ext_def_id
		FROM dict_reference r
		JOIN dict_shared s ON r.shared_id = s.id
		JOIN dict_ref_type rt ON r.ref_type_id = rt.id
		JOIN dict_word w_dst ON r.word_id_dst = w_dst.id
		LEFT JOIN dict_definition def_dst ON r.definition_id_dst = def_dst.id
		WHERE r.word_id_src = ?
			AND ((?2 IS NULL AND r.definition_id_src IS NULL) OR r.definition_id_src = ?2)
		ORDER BY s.rank, s.rank_relative
	`, srcWordID, srcDefID)
	if err != nil {
		return wrapDBError(err)
	}

	var data []crossRefRenderRow
	for rows.Next() {
		var row crossRefRenderRow
		var sharedID int64
		var trad, simp string
		var extDefIDDst sql.NullInt64
		if err := rows.Scan(&row.refType, &sharedID, &row.noteID, &row.commentID, &trad, &simp, &extDefIDDst); err != nil {
			rows.Close()
			return wrapDBError(err)
		}
		row.refStr = formatWordStr(trad, simp)
		if extDefIDDst.Valid {
			row.refStr = fmt.Sprintf("%s#D%d", row.refStr, extDefIDDst.Int64)
		}
		tags, err := r.formatTags(sharedID)
		if err != nil {
			rows.Close()
			return err
		}
		row.tags = tags
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return wrapDBError(err)
	}
	rows.Close()

	if len(data) == 0 {
		return nil
	}

	for i := 0; i < len(data); {
		j := i + 1
		for j < len(data) && data[j].refType == data[i].refType && data[j].noteID == data[i].noteID && data[j].commentID == data[i].commentID {
			j++
		}
		group := data[i:j]

		var tagGroups []string
		for k := 0; k < len(group); {
			l := k + 1
			for l < len(group) && group[l].tags == group[k].tags {
				l++
			}
			refs := make([]string, 0, l-k)
			for _, it := range group[k:l] {
				refs = append(refs, it.refStr)
			}
			tagGroups = append(tagGroups, group[k].tags+" "+strings.Join(refs, itemsSep))
			k = l
		}

		r.buf.WriteString(fmt.Sprintf("%sX%s%s\n", r.indent(indent), group[0].refType, strings.Join(tagGroups, " ")))
		if err := r.writeSharedItemsFromIDs(group[0].commentID, group[0].noteID, indent+1); err != nil {
			return err
		}
		i = j
	}
	return nil
}

func int64SliceEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
