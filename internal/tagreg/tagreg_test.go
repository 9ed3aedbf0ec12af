package tagreg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Lookup(t *testing.T) {
	tg, err := Lookup('T')
	assert.NoError(t, err)
	assert.Equal(t, "taiwan-only", tg.Name)
	assert.Equal(t, "country", tg.Category)

	_, err = Lookup('z')
	assert.Error(t, err)
	assert.Equal(t, "invalid ASCII tag: z", err.Error())
}

func Test_LookupRefType(t *testing.T) {
	rt, err := LookupRefType('=')
	assert.NoError(t, err)
	assert.True(t, rt.Symmetric)
	assert.Equal(t, "synonym-equal", rt.Name)

	rt, err = LookupRefType('V')
	assert.NoError(t, err)
	assert.False(t, rt.Symmetric)

	_, err = LookupRefType('@')
	assert.Error(t, err)
}

// Tags sharing a sort rank within a category (e.g. the four "relevance"
// tags) are allowed by the registry; rendering breaks such ties by tag
// character, stably, per spec.md §9's open-question resolution. That
// tie-break lives in internal/dictdb's formatTags, where tag-group rendering
// happens.
func Test_SortRank_knownDuplicates(t *testing.T) {
	assert.Equal(t, SortRank('+'), SortRank('-'))
	assert.Equal(t, SortRank('-'), SortRank('x'))
	assert.Equal(t, SortRank('x'), SortRank('X'))
}
