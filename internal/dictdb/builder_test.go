package dictdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiong3/fmld/internal/dictfmt"
)

func Test_Ingest_S1_minimalWord(t *testing.T) {
	src := "W|| 你好\n P|| ni3hao3\n  C int.\n   D1|| hello\n"
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	lines := dictfmt.ParseAll(dictfmt.Lex(src))
	diags, err := Ingest(db, lines, IngestOptions{})
	require.NoError(t, err)
	assert.False(t, diags.HasErrors(), diags.Error())

	var trad, simp string
	require.NoError(t, db.QueryRow(`SELECT trad, simp FROM dict_word`).Scan(&trad, &simp))
	assert.Equal(t, "你好", trad)
	assert.Equal(t, "你好", simp)

	var mark string
	require.NoError(t, db.QueryRow(`SELECT pinyin_mark FROM dict_pron`).Scan(&mark))
	assert.Equal(t, "nǐhǎo", mark)

	var class, defText string
	var extDefID int
	require.NoError(t, db.QueryRow(
		`SELECT c.name, d.definition, d.ext_def_id FROM dict_definition d JOIN dict_class c ON d.class_id = c.id`,
	).Scan(&class, &defText, &extDefID))
	assert.Equal(t, "int.", class)
	assert.Equal(t, "hello", defText)
	assert.Equal(t, 1, extDefID)

	var maxRank, rowCount int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*), MAX(rank) FROM dict_shared`).Scan(&rowCount, &maxRank))
	assert.Equal(t, rowCount, maxRank, "ranks must be strictly increasing with no gaps")
}

func Test_Ingest_S2_multilineDefinition(t *testing.T) {
	src := "W|| 你好\n P|| ni3hao3\n  C int.\n   D1|| first line\n     second line\n"
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	lines := dictfmt.ParseAll(dictfmt.Lex(src))
	diags, err := Ingest(db, lines, IngestOptions{})
	require.NoError(t, err)
	assert.False(t, diags.HasErrors(), diags.Error())

	var defText string
	require.NoError(t, db.QueryRow(`SELECT definition FROM dict_definition`).Scan(&defText))
	assert.Equal(t, "first line\nsecond line", defText)
}

func Test_Ingest_S4_sharedNote(t *testing.T) {
	src := "W|| 你好\n P|| ni3hao3\n  C int.\n   D1|| hello\n    N5 a shared remark\n   D2|| greeting\n    N->5\n"
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	lines := dictfmt.ParseAll(dictfmt.Lex(src))
	diags, err := Ingest(db, lines, IngestOptions{})
	require.NoError(t, err)
	assert.False(t, diags.HasErrors(), diags.Error())

	var noteCount int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM dict_note WHERE ext_note_id = 5`).Scan(&noteCount))
	assert.Equal(t, 1, noteCount)

	var sharedWithNote int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM dict_shared s JOIN dict_note n ON s.note_id = n.id WHERE n.ext_note_id = 5`,
	).Scan(&sharedWithNote))
	assert.Equal(t, 2, sharedWithNote, "both the literal note site and the link site point at the one Note")
}

func Test_Ingest_S5_pinyinVariants(t *testing.T) {
	src := "W|| 走\n P|| xing2\n  P|| hang2\n  C v.\n   D1|| to walk\n"
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	lines := dictfmt.ParseAll(dictfmt.Lex(src))
	diags, err := Ingest(db, lines, IngestOptions{})
	require.NoError(t, err)
	assert.False(t, diags.HasErrors(), diags.Error())

	var pronCount int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM dict_pron`).Scan(&pronCount))
	assert.Equal(t, 2, pronCount)

	var defBindings int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM dict_pron_definition`).Scan(&defBindings))
	assert.Equal(t, 2, defBindings, "the definition binds both pronunciations")
}

func Test_Ingest_noUsableParentNode(t *testing.T) {
	src := " P|| ni3hao3\n"
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	lines := dictfmt.ParseAll(dictfmt.Lex(src))
	diags, err := Ingest(db, lines, IngestOptions{})
	require.NoError(t, err)
	assert.True(t, diags.HasErrors())
}

func Test_Ingest_crossReferenceTargetNotFound(t *testing.T) {
	src := "W|| 你好\n X=|| 不存在\n"
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	lines := dictfmt.ParseAll(dictfmt.Lex(src))
	diags, err := Ingest(db, lines, IngestOptions{})
	require.NoError(t, err)
	require.True(t, diags.HasErrors())
	assert.Contains(t, diags.Error(), "reference target not found")
}

func Test_Ingest_limitToWord_dropsOtherWords(t *testing.T) {
	src := "W|| 你好\n P|| ni3hao3\n  C int.\n   D1|| hello\nW|| 再见\n P|| zai4jian4\n  C int.\n   D1|| goodbye\n"
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	lines := dictfmt.ParseAll(dictfmt.Lex(src))
	diags, err := Ingest(db, lines, IngestOptions{LimitToWord: "你好"})
	require.NoError(t, err)
	assert.False(t, diags.HasErrors(), diags.Error())

	var wordCount int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM dict_word`).Scan(&wordCount))
	assert.Equal(t, 1, wordCount)
}
