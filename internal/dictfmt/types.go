// Package dictfmt implements the line lexer and line parser for the
// indented dictionary text format: folding physical lines into logical
// lines (two-space continuation) and parsing each logical line into a typed
// line value.
package dictfmt

// Tag is either a one-character ascii code or a multi-character full tag
// name; exactly one of the two forms is populated.
type Tag struct {
	Ascii rune
	Full  string
}

func (t Tag) IsFull() bool { return t.Ascii == 0 }

// TagGroup is the parsed contents of one `|...|` block: ascii tag codes in
// the order they appeared, followed by full tag names in the order they
// appeared.
type TagGroup struct {
	Ascii []rune
	Full  []string
}

func (g TagGroup) Empty() bool { return len(g.Ascii) == 0 && len(g.Full) == 0 }

// Word is a traditional/simplified character pair. Simp is empty when the
// line gave only one form; callers that need simp==trad must apply that
// fallback themselves.
type Word struct {
	Trad string
	Simp string
}

// WordTagGroup is one (tags, word-list) group on a W line.
type WordTagGroup struct {
	Tags  TagGroup
	Words []Word
}

// PinyinTagGroup is one (tags, pinyin-list) group on a P line.
type PinyinTagGroup struct {
	Tags    TagGroup
	Pinyins []string
}

// Reference is one target of a cross-reference: a word, optionally anchored
// to one of its definitions by external definition id.
type Reference struct {
	Word     Word
	ExtDefID int // 0 means no anchor
}

// ReferenceTagGroup is one (tags, reference-list) group on an X line.
type ReferenceTagGroup struct {
	Tags       TagGroup
	References []Reference
}

// DictLine is implemented by exactly one of the seven line kinds below.
type DictLine interface {
	dictLine()
}

// WordLine is a `W` line: one or more (tags, word-list) groups.
type WordLine struct {
	Groups []WordTagGroup
}

// PinyinLine is a `P` line: one or more (tags, pinyin-list) groups.
type PinyinLine struct {
	Groups []PinyinTagGroup
}

// ClassLine is a `C` line: free text naming a part-of-speech.
type ClassLine struct {
	Name string
}

// DefinitionLine is a `D` line.
type DefinitionLine struct {
	ExtDefID int
	Tags     TagGroup
	Text     string
}

// CrossReferenceLine is an `X` line: one reference-type character followed
// by one or more (tags, reference-list) groups.
type CrossReferenceLine struct {
	RefType rune
	Groups  []ReferenceTagGroup
}

// NoteLine is an `N` line: either a link to an existing note (IsLink, no
// text) or a new note's id and text.
type NoteLine struct {
	ExtNoteID int
	IsLink    bool
	Text      string
}

// CommentLine is a `#` line.
type CommentLine struct {
	Text string
}

func (*WordLine) dictLine()           {}
func (*PinyinLine) dictLine()         {}
func (*ClassLine) dictLine()          {}
func (*DefinitionLine) dictLine()     {}
func (*CrossReferenceLine) dictLine() {}
func (*NoteLine) dictLine()           {}
func (*CommentLine) dictLine()        {}

// LogicalLine is one fully-folded logical line as produced by the lexer.
type LogicalLine struct {
	StartLine int // 1-based physical line number the logical line started at
	LineCount int // number of physical lines folded into this one
	Indent    int // indentation width of the first physical line
	Text      string
}

// ParsedLine pairs a LogicalLine with its parse result. Line is nil and Err
// is non-nil when the logical line failed to parse.
type ParsedLine struct {
	LogicalLine
	Line DictLine
	Err  error
}
