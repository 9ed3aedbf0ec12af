package dictfmt

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Cross-reference lines nest two levels of slices (groups of tagged
// reference lists); a structural diff pinpoints exactly which nested field
// went wrong, which is more useful here than assert.Equal's flat dump.
func Test_ParseLine_crossReference_structuralDiff(t *testing.T) {
	line, err := ParseLine("X=|+| 您好#D1; 再见 |S| 走")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &CrossReferenceLine{
		RefType: '=',
		Groups: []ReferenceTagGroup{
			{
				Tags: TagGroup{Ascii: []rune{'+'}},
				References: []Reference{
					{Word: Word{Trad: "您好"}, ExtDefID: 1},
					{Word: Word{Trad: "再见"}},
				},
			},
			{
				Tags:       TagGroup{Ascii: []rune{'S'}},
				References: []Reference{{Word: Word{Trad: "走"}}},
			},
		},
	}

	if diff := cmp.Diff(want, line); diff != "" {
		t.Errorf("parsed cross-reference line mismatch (-want +got):\n%s", diff)
	}
}
