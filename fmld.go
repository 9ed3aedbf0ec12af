// Package fmld contains the top-level driver for the dictionary format
// converter: convert source text (or an existing database) into a
// relational projection, run Semantic Repair and (optionally) validation
// and note-id finalization, and render back out to text or a database
// file. Mirrors the teacher's engine.go: a small facade type wrapping the
// pipeline stages defined in internal/dictdb, built with New and driven by
// a handful of exported methods rather than one monolithic function.
package fmld

import (
	"database/sql"
	"fmt"

	"github.com/jiong3/fmld/internal/dictdb"
	"github.com/jiong3/fmld/internal/dictfmt"
	"github.com/jiong3/fmld/internal/fmlderr"
)

// Converter holds an in-memory relational projection of one dictionary
// source, plus the diagnostics accumulated while building it. The zero
// value is not usable; construct with New or Open.
type Converter struct {
	db    *sql.DB
	diags *fmlderr.List
}

// New ingests source text into a fresh in-memory database, then runs
// Semantic Repair. limitToWord, if non-empty, restricts ingest to that one
// word's entries (spec.md §6's --limit-to-word), dropping cross-references
// into excluded words with a diagnostic exactly as an unresolved reference
// is handled.
func New(source string, limitToWord string) (*Converter, error) {
	db, err := dictdb.OpenMemory()
	if err != nil {
		return nil, err
	}

	lines := dictfmt.ParseAll(dictfmt.Lex(source))
	diags, err := dictdb.Ingest(db, lines, dictdb.IngestOptions{LimitToWord: limitToWord})
	if err != nil {
		db.Close()
		return nil, err
	}

	repairDiags, err := dictdb.Repair(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	for _, d := range repairDiags.Items() {
		diags.Add(d)
	}

	return &Converter{db: db, diags: diags}, nil
}

// Open backs a Converter with a copy of an existing sqlite database file,
// never touching the source file itself, matching the original's backup-
// to-memory behavior for .db inputs (rust/src/main.rs's read_input).
func Open(path string) (*Converter, error) {
	mem, err := dictdb.OpenMemory()
	if err != nil {
		return nil, err
	}
	if err := dictdb.CopyInto(mem, path); err != nil {
		mem.Close()
		return nil, err
	}
	return &Converter{db: mem, diags: &fmlderr.List{}}, nil
}

// DB returns the underlying database handle, for callers that need direct
// access (e.g. to back up to a .db output file).
func (c *Converter) DB() *sql.DB { return c.db }

// Diagnostics returns every diagnostic accumulated so far across ingest,
// repair, and (if run) Validate.
func (c *Converter) Diagnostics() *fmlderr.List { return c.diags }

// Validate runs the per-definition character-count and pinyin-syllable
// checks (spec.md §4.7), folding their diagnostics into the Converter's
// accumulated list and also returning them directly.
func (c *Converter) Validate() (*fmlderr.List, error) {
	diags, err := dictdb.Validate(c.db)
	if err != nil {
		return nil, err
	}
	for _, d := range diags.Items() {
		c.diags.Add(d)
	}
	return diags, nil
}

// Finalize reassigns publication note ids and refreshes meta's population
// counts (spec.md §4.9).
func (c *Converter) Finalize(meta *dictdb.Meta) error {
	return dictdb.Finalize(c.db, meta)
}

// Render produces the text-format representation of the current database
// state using indentChar as the one-byte indentation unit (spec.md §6's
// --indent-with-tabs selects '\t' instead of the default ' ').
func (c *Converter) Render(indentChar byte) (string, error) {
	return dictdb.Render(c.db, indentChar)
}

// Close releases the underlying database handle.
func (c *Converter) Close() error {
	return c.db.Close()
}

// RoundTripCheck renders the current database to text, re-ingests that
// text into a second, throwaway database, and renders it again, byte-
// comparing the two outputs. Grounded on
// original_source/rust/src/main.rs's use of db_check::round_trip_check:
// ok is true when the two renderings agree; when they don't, second holds
// the divergent re-rendering so the caller can diff it against first.
func (c *Converter) RoundTripCheck(indentChar byte) (first, second string, ok bool, err error) {
	first, err = c.Render(indentChar)
	if err != nil {
		return "", "", false, err
	}

	again, err := New(first, "")
	if err != nil {
		return first, "", false, fmt.Errorf("round-trip check: re-ingesting rendered text: %w", err)
	}
	defer again.Close()

	second, err = again.Render(indentChar)
	if err != nil {
		return first, "", false, fmt.Errorf("round-trip check: re-rendering: %w", err)
	}

	return first, second, first == second, nil
}
