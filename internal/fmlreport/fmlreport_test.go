package fmlreport

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jiong3/fmld/internal/dictdb"
	"github.com/jiong3/fmld/internal/fmlderr"
)

func Test_Summary_rendersCounts(t *testing.T) {
	out := Summary(dictdb.Meta{NumWords: 3, NumDefinitions: 5, NumReferences: 1, NumNotes: 2, MaxNoteID: 107})
	assert.Contains(t, out, "Words")
	assert.Contains(t, out, "3")
	assert.Contains(t, out, "107")
}

func Test_Diagnostics_emptyForNoErrors(t *testing.T) {
	assert.Equal(t, "", Diagnostics(&fmlderr.List{}))
	assert.Equal(t, "", Diagnostics(nil))
}

func Test_Diagnostics_rendersOneRowPerDiagnostic(t *testing.T) {
	diags := &fmlderr.List{}
	diags.Add(fmlderr.Diagnostic{Word: "你好", StartLine: 3, LineCount: 1, Err: fmlderr.ErrParse{Msg: "bad pinyin"}})

	out := Diagnostics(diags)
	assert.Contains(t, out, "你好")
	assert.Contains(t, out, "bad pinyin")
}

func Test_RoundTripDiff_showsDivergence(t *testing.T) {
	a := "W|| 你好\n P|| ni3hao3\n"
	b := "W|| 你好\n P|| nin3hao3\n"

	diff, err := RoundTripDiff(a, b)
	assert.NoError(t, err)
	assert.Contains(t, diff, "- P|| ni3hao3")
	assert.Contains(t, diff, "+ P|| nin3hao3")
}
