// Package tagreg holds the static registries of one-character ASCII tag
// codes and cross-reference type codes that spec.md §4.2 defines. Changing
// either table changes on-disk text output for every file that uses the
// affected code, so both are fixed compile-time tables rather than
// configuration.
package tagreg

import "fmt"

// Tag describes one ASCII tag code: its long name, its category (tags in the
// same category are mutually exclusive on a single Shared), and its sort rank
// for rendering (ascending).
type Tag struct {
	Code     rune
	Name     string
	Category string
	SortRank int
}

// RefType describes one cross-reference type code.
type RefType struct {
	Code      rune
	Name      string
	Symmetric bool
}

var tags = []Tag{
	{'T', "taiwan-only", "country", 10},
	{'t', "taiwan-chiefly", "country", 10},
	{'C', "china-only", "country", 10},
	{'c', "china-chiefly", "country", 10},
	{'&', "bound-form", "bound-form", 8},
	{'i', "irregular", "checks", 7},
	{'A', "ai-only", "ai", 6},
	{'a', "ai-human", "ai", 6},
	{'w', "wiktionary", "source", 3},
	{'m', "mdbg", "source", 2},
	{'+', "high-relevance", "relevance", 1},
	{'-', "low-relevance", "relevance", 1},
	{'x', "lowest-relevance", "relevance", 1},
	{'X', "deleted", "relevance", 1},
}

var refTypes = []RefType{
	{'=', "synonym-equal", true},
	{'~', "synonym-similar", true},
	{'!', "antonym", true},
	{'?', "could-be-confused-with", true},
	{'<', "part-of", false},
	{'>', "contains", false},
	{'V', "word-variant-of", false},
	{'v', "character-variant-of", false},
	{'M', "used-with-measure-word", false},
	{'&', "collocation", false},
	{'G', "word-group", false},
}

var (
	byCode        map[rune]Tag
	refTypeByCode map[rune]RefType
)

func init() {
	byCode = make(map[rune]Tag, len(tags))
	for _, t := range tags {
		byCode[t.Code] = t
	}
	refTypeByCode = make(map[rune]RefType, len(refTypes))
	for _, rt := range refTypes {
		refTypeByCode[rt.Code] = rt
	}
}

// ErrUnknownTag is returned by Lookup for a code not in the registry.
type ErrUnknownTag rune

func (e ErrUnknownTag) Error() string {
	return fmt.Sprintf("invalid ASCII tag: %c", rune(e))
}

// ErrUnknownRefType is returned by LookupRefType for a code not in the
// registry.
type ErrUnknownRefType rune

func (e ErrUnknownRefType) Error() string {
	return fmt.Sprintf("unknown reference type: %c", rune(e))
}

// Lookup returns the Tag for the given ASCII code, or ErrUnknownTag if the
// code is not registered.
func Lookup(code rune) (Tag, error) {
	t, ok := byCode[code]
	if !ok {
		return Tag{}, ErrUnknownTag(code)
	}
	return t, nil
}

// LookupRefType returns the RefType for the given reference-type code, or
// ErrUnknownRefType if the code is not registered.
func LookupRefType(code rune) (RefType, error) {
	rt, ok := refTypeByCode[code]
	if !ok {
		return RefType{}, ErrUnknownRefType(code)
	}
	return rt, nil
}

// AllRefTypes returns the full reference-type registry, in the table order
// above. Used by dictdb to seed dict_ref_type so the database's lookup rows
// and the Go-side validation table can never drift apart.
func AllRefTypes() []RefType {
	out := make([]RefType, len(refTypes))
	copy(out, refTypes)
	return out
}

// SortRank returns the sort rank to use for the given ASCII tag code when
// rendering a tag group, or 0 if the code is unregistered (render call sites
// only ever see codes that were validated on ingest, so this path is not
// expected to be hit in practice).
func SortRank(code rune) int {
	if t, ok := byCode[code]; ok {
		return t.SortRank
	}
	return 0
}
