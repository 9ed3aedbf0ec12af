package fmlderr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_List_accumulates(t *testing.T) {
	var l List
	assert.False(t, l.HasErrors())

	l.Add(Diagnostic{Word: "你好", StartLine: 3, LineCount: 1, Text: "P|| ni3hoa3", Err: ErrParse{Msg: "bad pinyin"}})
	l.Add(Diagnostic{Word: "你好", StartLine: 5, LineCount: 2, Text: "D1|| ...", Err: ErrNoUsableParentNode{LineKind: "Definition", Indent: 3}})

	assert.True(t, l.HasErrors())
	assert.Equal(t, 2, l.Len())
	assert.Contains(t, l.Error(), "bad pinyin")
	assert.Contains(t, l.Error(), "Definition line at indent 3 has no usable parent")
}

func Test_ErrInvalidAsciiTag(t *testing.T) {
	err := ErrInvalidAsciiTag('z')
	assert.Equal(t, "invalid ascii tag: z", err.Error())
}

func Test_ErrReferenceTargetNotFound(t *testing.T) {
	err := ErrReferenceTargetNotFound{Word: "你好"}
	assert.Equal(t, "reference target not found: 你好", err.Error())

	errAnchored := ErrReferenceTargetNotFound{Word: "你好", ExtDefID: 2}
	assert.Equal(t, "reference target not found: 你好#D2", errAnchored.Error())
}

func Test_ErrStorage_unwraps(t *testing.T) {
	cause := ErrValidation{Msg: "boom"}
	err := ErrStorage{Context: "ingest", Cause: cause}
	assert.ErrorIs(t, err, cause)
}
