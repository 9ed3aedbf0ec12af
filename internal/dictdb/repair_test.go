package dictdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiong3/fmld/internal/dictfmt"
)

func Test_Repair_S3_symmetricSynonym(t *testing.T) {
	src := "W|| 你好\n P|| ni3hao3\n  C int.\n   D1|| hello\n    X=|+| 您好\n" +
		"W|| 您好\n P|| nin2hao3\n  C int.\n   D1|| hello (polite)\n"
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	lines := dictfmt.ParseAll(dictfmt.Lex(src))
	ingestDiags, err := Ingest(db, lines, IngestOptions{})
	require.NoError(t, err)
	require.False(t, ingestDiags.HasErrors(), ingestDiags.Error())

	repairDiags, err := Repair(db)
	require.NoError(t, err)
	assert.False(t, repairDiags.HasErrors(), repairDiags.Error())

	var refCount int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM dict_reference`).Scan(&refCount))
	assert.Equal(t, 2, refCount, "the synthesized mirror reference should now exist")

	var mirroredTag string
	require.NoError(t, db.QueryRow(`
		SELECT t.ascii_symbol
		FROM dict_reference r
		JOIN dict_word src ON r.word_id_src = src.id
		JOIN dict_shared_tag st ON r.shared_id = st.for_shared_id
		JOIN dict_tag t ON st.tag_id = t.id
		WHERE src.trad = '您好'
	`).Scan(&mirroredTag))
	assert.Equal(t, "+", mirroredTag, "tags copy across the symmetric pair")
}

func Test_Repair_conflictingNotes(t *testing.T) {
	src := "W|| 你好\n P|| ni3hao3\n  C int.\n   D1|| hello\n    X=|| 您好#D1\n     N1 note a\n" +
		"W|| 您好\n P|| nin2hao3\n  C int.\n   D1|| hello (polite)\n    X=|| 你好#D1\n     N2 note b\n"
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	lines := dictfmt.ParseAll(dictfmt.Lex(src))
	ingestDiags, err := Ingest(db, lines, IngestOptions{})
	require.NoError(t, err)
	require.False(t, ingestDiags.HasErrors(), ingestDiags.Error())

	repairDiags, err := Repair(db)
	require.NoError(t, err)
	require.True(t, repairDiags.HasErrors())
	assert.Contains(t, repairDiags.Error(), "conflicting notes")
}
