package dictdb

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jiong3/fmld/internal/fmlderr"
	"modernc.org/sqlite"
)

// ErrNotFound is returned by lookups that find no matching row.
var ErrNotFound = errors.New("not found")

// wrapDBError normalizes a raw database/sql or modernc.org/sqlite error into
// either ErrNotFound or an fmlderr.ErrStorage, following the teacher's
// wrapDBError idiom (server/dao/sqlite/sqlite.go): unwrap a *sqlite.Error to
// check its result code, otherwise check for sql.ErrNoRows.
func wrapDBError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return fmlderr.ErrStorage{Context: "sqlite", Cause: fmt.Errorf("code %d: %w", sqliteErr.Code(), err)}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmlderr.ErrStorage{Context: "sqlite", Cause: err}
}

// copyTables lists the data tables copied by CopyInto, in an order that
// keeps parent rows ahead of the children that reference them (dict_ref_type
// is deliberately excluded: OpenMemory already seeds it identically from
// tagreg, and re-copying it would collide with those rows).
var copyTables = []string{
	"dict_note", "dict_comment", "dict_shared", "dict_word", "dict_class",
	"dict_pron", "dict_shared_pron", "dict_definition",
	"dict_pron_definition", "dict_tag", "dict_shared_tag", "dict_reference",
}

// CopyInto copies every row of every data table from the sqlite file at
// path into dst, an already-schema-initialized database (as returned by
// OpenMemory), using SQLite's ATTACH DATABASE rather than a dedicated
// backup API, since database/sql exposes no such API directly. Grounded on
// original_source/rust/src/main.rs's read_input, which backs a .db input up
// into an in-memory connection so the source file is never mutated by the
// conversion that follows.
func CopyInto(dst *sql.DB, path string) error {
	if _, err := dst.Exec(`ATTACH DATABASE ? AS src`, path); err != nil {
		return wrapDBError(err)
	}
	defer dst.Exec(`DETACH DATABASE src`)

	for _, table := range copyTables {
		if _, err := dst.Exec(fmt.Sprintf(`INSERT INTO %s SELECT * FROM src.%s`, table, table)); err != nil {
			return wrapDBError(err)
		}
	}
	return nil
}

// CopyOut is CopyInto's mirror: it initializes a fresh sqlite file at path
// with the schema (via Open) and copies every row of every data table from
// src into it, for the --db output path of spec.md §6. Grounded on the same
// original_source/rust/src/main.rs's write_output, which backs the
// in-memory working database up to a new .db file via rusqlite's
// backup::Backup; database/sql has no such API, so this attaches the
// destination file onto src's own connection and copies table by table,
// the same ATTACH DATABASE substitute CopyInto uses in the other direction.
func CopyOut(src *sql.DB, path string) error {
	dst, err := Open(path)
	if err != nil {
		return err
	}
	if err := dst.Close(); err != nil {
		return wrapDBError(err)
	}

	if _, err := src.Exec(`ATTACH DATABASE ? AS dst`, path); err != nil {
		return wrapDBError(err)
	}
	defer src.Exec(`DETACH DATABASE dst`)

	for _, table := range copyTables {
		if _, err := src.Exec(fmt.Sprintf(`INSERT INTO dst.%s SELECT * FROM %s`, table, table)); err != nil {
			return wrapDBError(err)
		}
	}
	return nil
}
