// Package fmlreport renders the CLI-facing output of a conversion run: the
// population/error summary table and, when a round-trip check fails, a
// unified diff of the two text renderings. Grounded on
// internal/game/debug.go's ListFlags/ListNPCs (rosed.Edit(...).InsertTableOpts
// for aligned plain-text tables).
package fmlreport

import (
	"fmt"
	"strings"

	"github.com/dekarrin/rosed"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/jiong3/fmld/internal/dictdb"
	"github.com/jiong3/fmld/internal/fmlderr"
)

const reportWidth = 100

// Summary renders the population counts gathered during Finalize (or, when
// Finalize was not run, zero-value counts the caller fills in from other
// sources) as an aligned text table.
func Summary(meta dictdb.Meta) string {
	data := [][]string{
		{"Metric", "Count"},
		{"Words", fmt.Sprint(meta.NumWords)},
		{"Definitions", fmt.Sprint(meta.NumDefinitions)},
		{"References", fmt.Sprint(meta.NumReferences)},
		{"Notes", fmt.Sprint(meta.NumNotes)},
		{"Max note id", fmt.Sprint(meta.MaxNoteID)},
	}

	tableOpts := rosed.Options{
		TableHeaders:             true,
		NoTrailingLineSeparators: true,
	}

	return rosed.Edit("").InsertTableOpts(0, data, reportWidth, tableOpts).String()
}

// Diagnostics renders one error-listing row per accumulated diagnostic:
// the word it occurred under, the source line range, and the complaint.
// Returns the empty string when there is nothing to report.
func Diagnostics(diags *fmlderr.List) string {
	if diags == nil || !diags.HasErrors() {
		return ""
	}

	data := [][]string{{"Word", "Line", "Error"}}
	for _, d := range diags.Items() {
		word := d.Word
		if word == "" {
			word = "(no word)"
		}
		lineRange := fmt.Sprint(d.StartLine)
		if d.LineCount > 1 {
			lineRange = fmt.Sprintf("%d-%d", d.StartLine, d.StartLine+d.LineCount-1)
		}
		data = append(data, []string{word, lineRange, d.Err.Error()})
	}

	tableOpts := rosed.Options{
		TableHeaders:             true,
		NoTrailingLineSeparators: true,
	}

	return rosed.Edit("").InsertTableOpts(0, data, reportWidth, tableOpts).String()
}

// RoundTripDiff renders a unified diff between the original rendering (a)
// and the second-pass rendering obtained by re-ingesting and re-rendering
// it (b), for display when the two disagree. Supplements the original's
// bare "Round trip check failed!" with something a human can act on
// without reaching for an external diff tool.
func RoundTripDiff(a, b string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: "original",
		ToFile:   "round-trip",
		Context:  3,
	}
	out, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}
