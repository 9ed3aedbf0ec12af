package dictfmt

import (
	"strconv"
	"strings"

	"github.com/jiong3/fmld/internal/fmlderr"
)

// ParseLine parses one logical line's text (already stripped of its leading
// indentation) by dispatching on its first character.
func ParseLine(text string) (DictLine, error) {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, fmlderr.ErrParse{Msg: "empty line"}
	}

	kind := runes[0]
	body := string(runes[1:])

	switch kind {
	case 'W':
		return parseWordLine(body)
	case 'P':
		return parsePinyinLine(body)
	case 'C':
		return parseClassLine(body)
	case 'D':
		return parseDefinitionLine(body)
	case 'X':
		return parseCrossReferenceLine(body)
	case 'N':
		return parseNoteLine(body)
	case '#':
		return parseCommentLine(body)
	default:
		return nil, fmlderr.ErrParse{Msg: "unrecognized line type '" + string(kind) + "'"}
	}
}

// ParseAll parses every logical line produced by Lex, continuing past
// individual parse failures; a failed line has Line == nil and Err set.
func ParseAll(lines []LogicalLine) []ParsedLine {
	out := make([]ParsedLine, len(lines))
	for i, ll := range lines {
		line, err := ParseLine(ll.Text)
		out[i] = ParsedLine{LogicalLine: ll, Line: line, Err: err}
	}
	return out
}

// scanner is a rune cursor over one logical line's body text.
type scanner struct {
	r   []rune
	pos int
}

func (s *scanner) eof() bool { return s.pos >= len(s.r) }

func (s *scanner) peek() (rune, bool) {
	if s.eof() {
		return 0, false
	}
	return s.r[s.pos], true
}

func (s *scanner) next() (rune, bool) {
	r, ok := s.peek()
	if ok {
		s.pos++
	}
	return r, ok
}

func (s *scanner) rest() string { return string(s.r[s.pos:]) }

func (s *scanner) skipHSpace() {
	for {
		r, ok := s.peek()
		if !ok || (r != ' ' && r != '\t') {
			return
		}
		s.pos++
	}
}

func (s *scanner) consumeWhile(stop func(rune) bool) string {
	start := s.pos
	for {
		r, ok := s.peek()
		if !ok || stop(r) {
			break
		}
		s.pos++
	}
	return string(s.r[start:s.pos])
}

func (s *scanner) consumeDigits() (int, bool) {
	start := s.pos
	for {
		r, ok := s.peek()
		if !ok || r < '0' || r > '9' {
			break
		}
		s.pos++
	}
	if s.pos == start {
		return 0, false
	}
	n, err := strconv.Atoi(string(s.r[start:s.pos]))
	if err != nil {
		return 0, false
	}
	return n, true
}

func inSet(r rune, set string) bool {
	return strings.ContainsRune(set, r)
}

// parseTagGroup parses one `|...|` block, including its surrounding
// whitespace.
func parseTagGroup(s *scanner) (TagGroup, error) {
	s.skipHSpace()
	if r, ok := s.peek(); !ok || r != '|' {
		return TagGroup{}, fmlderr.ErrParse{Msg: "expected '|' to start tag group"}
	}
	s.next()

	var g TagGroup
	for {
		s.skipHSpace()
		r, ok := s.peek()
		if !ok {
			return TagGroup{}, fmlderr.ErrParse{Msg: "unterminated tag group"}
		}
		if r == '|' {
			s.next()
			break
		}
		if r == '#' {
			s.next()
			name := s.consumeWhile(func(r rune) bool { return r == '|' || r == '#' })
			g.Full = append(g.Full, strings.TrimSpace(name))
			continue
		}
		s.next()
		g.Ascii = append(g.Ascii, r)
	}
	s.skipHSpace()
	return g, nil
}

// parseWord parses a `trad` or `trad/simp` (or `trad／simp`) word.
func parseWord(s *scanner) (Word, error) {
	s.skipHSpace()
	trad := strings.TrimSpace(s.consumeWhile(func(r rune) bool {
		return inSet(r, "|#;/／")
	}))
	if trad == "" {
		return Word{}, fmlderr.ErrParse{Msg: "expected word"}
	}

	w := Word{Trad: trad}
	if r, ok := s.peek(); ok && (r == '/' || r == '／') {
		s.next()
		simp := strings.TrimSpace(s.consumeWhile(func(r rune) bool {
			return inSet(r, "|#;")
		}))
		w.Simp = simp
	}
	s.skipHSpace()
	return w, nil
}

func parseWordList(s *scanner) ([]Word, error) {
	var words []Word
	for {
		w, err := parseWord(s)
		if err != nil {
			return nil, err
		}
		words = append(words, w)
		if r, ok := s.peek(); ok && r == ';' {
			s.next()
			continue
		}
		break
	}
	return words, nil
}

func parseWordTagGroup(s *scanner) (WordTagGroup, error) {
	tags, err := parseTagGroup(s)
	if err != nil {
		return WordTagGroup{}, err
	}
	words, err := parseWordList(s)
	if err != nil {
		return WordTagGroup{}, err
	}
	return WordTagGroup{Tags: tags, Words: words}, nil
}

func parseWordLine(body string) (DictLine, error) {
	s := &scanner{r: []rune(body)}
	var groups []WordTagGroup
	for {
		s.skipHSpace()
		if s.eof() {
			break
		}
		g, err := parseWordTagGroup(s)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	if len(groups) == 0 {
		return nil, fmlderr.ErrParse{Msg: "word line has no tag groups"}
	}
	return &WordLine{Groups: groups}, nil
}

func parsePinyinToken(s *scanner) (string, error) {
	s.skipHSpace()
	tok := strings.TrimSpace(s.consumeWhile(func(r rune) bool {
		return r == '|' || r == ';'
	}))
	if tok == "" {
		return "", fmlderr.ErrParse{Msg: "expected pinyin token"}
	}
	return tok, nil
}

func parsePinyinList(s *scanner) ([]string, error) {
	var items []string
	for {
		tok, err := parsePinyinToken(s)
		if err != nil {
			return nil, err
		}
		items = append(items, tok)
		if r, ok := s.peek(); ok && r == ';' {
			s.next()
			continue
		}
		break
	}
	return items, nil
}

func parsePinyinTagGroup(s *scanner) (PinyinTagGroup, error) {
	tags, err := parseTagGroup(s)
	if err != nil {
		return PinyinTagGroup{}, err
	}
	pinyins, err := parsePinyinList(s)
	if err != nil {
		return PinyinTagGroup{}, err
	}
	return PinyinTagGroup{Tags: tags, Pinyins: pinyins}, nil
}

func parsePinyinLine(body string) (DictLine, error) {
	s := &scanner{r: []rune(body)}
	var groups []PinyinTagGroup
	for {
		s.skipHSpace()
		if s.eof() {
			break
		}
		g, err := parsePinyinTagGroup(s)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	if len(groups) == 0 {
		return nil, fmlderr.ErrParse{Msg: "pinyin line has no tag groups"}
	}
	return &PinyinLine{Groups: groups}, nil
}

func parseClassLine(body string) (DictLine, error) {
	s := &scanner{r: []rune(body)}
	s.skipHSpace()
	return &ClassLine{Name: s.rest()}, nil
}

func parseDefinitionLine(body string) (DictLine, error) {
	s := &scanner{r: []rune(body)}
	id, ok := s.consumeDigits()
	if !ok {
		return nil, fmlderr.ErrParse{Msg: "definition line missing external id"}
	}
	tags, err := parseTagGroup(s)
	if err != nil {
		return nil, err
	}
	return &DefinitionLine{ExtDefID: id, Tags: tags, Text: s.rest()}, nil
}

func parseReference(s *scanner) (Reference, error) {
	w, err := parseWord(s)
	if err != nil {
		return Reference{}, err
	}
	ref := Reference{Word: w}
	if s.pos+1 < len(s.r) && s.r[s.pos] == '#' && s.r[s.pos+1] == 'D' {
		s.pos += 2
		id, ok := s.consumeDigits()
		if !ok {
			return Reference{}, fmlderr.ErrParse{Msg: "expected definition id after #D"}
		}
		ref.ExtDefID = id
		s.skipHSpace()
	}
	return ref, nil
}

func parseReferenceList(s *scanner) ([]Reference, error) {
	var refs []Reference
	for {
		r, err := parseReference(s)
		if err != nil {
			return nil, err
		}
		refs = append(refs, r)
		if r, ok := s.peek(); ok && r == ';' {
			s.next()
			continue
		}
		break
	}
	return refs, nil
}

func parseReferenceTagGroup(s *scanner) (ReferenceTagGroup, error) {
	tags, err := parseTagGroup(s)
	if err != nil {
		return ReferenceTagGroup{}, err
	}
	refs, err := parseReferenceList(s)
	if err != nil {
		return ReferenceTagGroup{}, err
	}
	return ReferenceTagGroup{Tags: tags, References: refs}, nil
}

func parseCrossReferenceLine(body string) (DictLine, error) {
	s := &scanner{r: []rune(body)}
	refType, ok := s.next()
	if !ok {
		return nil, fmlderr.ErrParse{Msg: "cross-reference line missing type character"}
	}

	var groups []ReferenceTagGroup
	for {
		s.skipHSpace()
		if s.eof() {
			break
		}
		g, err := parseReferenceTagGroup(s)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	if len(groups) == 0 {
		return nil, fmlderr.ErrParse{Msg: "cross-reference line has no tag groups"}
	}
	return &CrossReferenceLine{RefType: refType, Groups: groups}, nil
}

func parseNoteLine(body string) (DictLine, error) {
	s := &scanner{r: []rune(body)}

	isLink := false
	if len(s.r)-s.pos >= 2 && s.r[s.pos] == '-' && s.r[s.pos+1] == '>' {
		s.pos += 2
		isLink = true
	}

	id, ok := s.consumeDigits()
	if !ok {
		return nil, fmlderr.ErrParse{Msg: "note line missing id"}
	}

	s.skipHSpace()
	if r, ok := s.peek(); ok && r == '|' {
		s.next()
		s.skipHSpace()
	}

	return &NoteLine{ExtNoteID: id, IsLink: isLink, Text: s.rest()}, nil
}

func parseCommentLine(body string) (DictLine, error) {
	s := &scanner{r: []rune(body)}
	s.skipHSpace()
	return &CommentLine{Text: s.rest()}, nil
}
