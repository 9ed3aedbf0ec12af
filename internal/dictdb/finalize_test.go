package dictdb

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiong3/fmld/internal/dictfmt"
)

func Test_Finalize_renumbersPlaceholderNotes(t *testing.T) {
	src := "W|| 你好\n P|| ni3hao3\n  C int.\n   D1|| hello\n    N5 a remark\n   D2|| greeting\n    N7 another remark\n"
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	lines := dictfmt.ParseAll(dictfmt.Lex(src))
	diags, err := Ingest(db, lines, IngestOptions{})
	require.NoError(t, err)
	require.False(t, diags.HasErrors(), diags.Error())

	meta := &Meta{MaxNoteID: 200}
	require.NoError(t, Finalize(db, meta))

	assert.Equal(t, 1, meta.NumWords)
	assert.Equal(t, 2, meta.NumDefinitions)
	assert.Equal(t, 2, meta.NumNotes)
	assert.Equal(t, 0, meta.NumReferences)
	assert.Equal(t, 202, meta.MaxNoteID)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM dict_note WHERE ext_note_id >= 100`).Scan(&count))
	assert.Equal(t, 2, count, "both placeholder notes were renumbered above the threshold")

	var sharedID int64
	require.NoError(t, db.QueryRow(`SELECT id FROM dict_shared WHERE id = 1`).Scan(&sharedID))
	var noteID sql.NullInt64
	require.NoError(t, db.QueryRow(`SELECT note_id FROM dict_shared WHERE id = 1`).Scan(&noteID))
	assert.False(t, noteID.Valid, "this implementation never points shared id 1's note_id at a renumbered note")
}

func Test_Finalize_usesDatabaseMaxWhenHigher(t *testing.T) {
	src := "W|| 你好\n P|| ni3hao3\n  C int.\n   D1|| hello\n    N150 a remark\n"
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	lines := dictfmt.ParseAll(dictfmt.Lex(src))
	diags, err := Ingest(db, lines, IngestOptions{})
	require.NoError(t, err)
	require.False(t, diags.HasErrors(), diags.Error())

	meta := &Meta{MaxNoteID: 10}
	require.NoError(t, Finalize(db, meta))

	assert.Equal(t, 150, meta.MaxNoteID, "ext_note_id 150 is already above the placeholder threshold, so it is untouched and becomes the new max")
}
