package dictfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Lex_simpleEntry(t *testing.T) {
	input := "W|| 你好\n P|| ni3hao3\n  C int.\n   D1|| hello\n"
	lines := Lex(input)

	assert.Len(t, lines, 4)
	assert.Equal(t, LogicalLine{StartLine: 1, LineCount: 1, Indent: 0, Text: "W|| 你好"}, lines[0])
	assert.Equal(t, LogicalLine{StartLine: 2, LineCount: 1, Indent: 1, Text: "P|| ni3hao3"}, lines[1])
	assert.Equal(t, LogicalLine{StartLine: 3, LineCount: 1, Indent: 2, Text: "C int."}, lines[2])
	assert.Equal(t, LogicalLine{StartLine: 4, LineCount: 1, Indent: 3, Text: "D1|| hello"}, lines[3])
}

func Test_Lex_continuation(t *testing.T) {
	input := "   D1|| first line\n     second line\n"
	lines := Lex(input)

	assert.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Indent)
	assert.Equal(t, 2, lines[0].LineCount)
	assert.Equal(t, "D1|| first line\nsecond line", lines[0].Text)
}

func Test_Lex_multipleContinuations(t *testing.T) {
	input := "  N5|| one\n    two\n    three\n"
	lines := Lex(input)

	assert.Len(t, lines, 1)
	assert.Equal(t, "N5|| one\ntwo\nthree", lines[0].Text)
	assert.Equal(t, 3, lines[0].LineCount)
}

func Test_Lex_skipsShortLines(t *testing.T) {
	input := "W|| 你好\n\n \n P|| ni3hao3\n"
	lines := Lex(input)

	assert.Len(t, lines, 2)
	assert.Equal(t, "W|| 你好", lines[0].Text)
	assert.Equal(t, "P|| ni3hao3", lines[1].Text)
}

func Test_Lex_dedentEndsContinuation(t *testing.T) {
	input := "  P|| ni3hao3\n C int.\n"
	lines := Lex(input)

	assert.Len(t, lines, 2)
	assert.Equal(t, 2, lines[0].Indent)
	assert.Equal(t, "P|| ni3hao3", lines[0].Text)
	assert.Equal(t, 1, lines[1].Indent)
	assert.Equal(t, "C int.", lines[1].Text)
}
