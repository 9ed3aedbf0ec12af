package dictdb

import (
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/jiong3/fmld/internal/tagreg"
)

// schema is the relational projection's DDL, ported from
// original_source/src/config.rs's DB_SCHEMA constant: the same tables,
// columns, foreign keys, and indexes, naming adapted only where SQLite
// syntax required it.
const schema = `
PRAGMA user_version = 1;

CREATE TABLE IF NOT EXISTS dict_shared (
	id INTEGER NOT NULL UNIQUE,
	rank INTEGER NOT NULL,
	rank_relative INTEGER,
	note_id INTEGER,
	comment_id INTEGER,
	PRIMARY KEY(id),
	FOREIGN KEY (comment_id) REFERENCES dict_comment(id) ON UPDATE NO ACTION ON DELETE NO ACTION,
	FOREIGN KEY (note_id) REFERENCES dict_note(id) ON UPDATE NO ACTION ON DELETE NO ACTION
);
CREATE INDEX IF NOT EXISTS dict_shared_index_0 ON dict_shared (rank, rank_relative);

CREATE TABLE IF NOT EXISTS dict_word (
	id INTEGER NOT NULL UNIQUE,
	shared_id INTEGER NOT NULL,
	trad TEXT NOT NULL,
	simp TEXT NOT NULL,
	PRIMARY KEY(id),
	FOREIGN KEY (shared_id) REFERENCES dict_shared(id) ON UPDATE NO ACTION ON DELETE NO ACTION
);
CREATE UNIQUE INDEX IF NOT EXISTS dict_word_index_0 ON dict_word (trad, simp);

CREATE TABLE IF NOT EXISTS dict_class (
	id INTEGER NOT NULL UNIQUE,
	name TEXT NOT NULL,
	PRIMARY KEY(id)
);
CREATE UNIQUE INDEX IF NOT EXISTS dict_class_index_0 ON dict_class (name);

CREATE TABLE IF NOT EXISTS dict_definition (
	id INTEGER NOT NULL UNIQUE,
	shared_id INTEGER NOT NULL,
	word_id INTEGER NOT NULL,
	definition TEXT NOT NULL,
	ext_def_id INTEGER NOT NULL,
	class_id INTEGER NOT NULL,
	PRIMARY KEY(id),
	FOREIGN KEY (word_id) REFERENCES dict_word(id) ON UPDATE NO ACTION ON DELETE NO ACTION,
	FOREIGN KEY (shared_id) REFERENCES dict_shared(id) ON UPDATE NO ACTION ON DELETE NO ACTION,
	FOREIGN KEY (class_id) REFERENCES dict_class(id) ON UPDATE NO ACTION ON DELETE NO ACTION
);
CREATE UNIQUE INDEX IF NOT EXISTS dict_definition_index_0 ON dict_definition (word_id, ext_def_id);

CREATE TABLE IF NOT EXISTS dict_pron (
	id INTEGER NOT NULL UNIQUE,
	pinyin_num TEXT NOT NULL,
	pinyin_mark TEXT NOT NULL,
	PRIMARY KEY(id)
);
CREATE UNIQUE INDEX IF NOT EXISTS dict_pron_index_0 ON dict_pron (pinyin_num);

CREATE TABLE IF NOT EXISTS dict_shared_pron (
	id INTEGER NOT NULL UNIQUE,
	shared_id INTEGER NOT NULL,
	pron_id INTEGER NOT NULL,
	PRIMARY KEY(id),
	FOREIGN KEY (shared_id) REFERENCES dict_shared(id) ON UPDATE NO ACTION ON DELETE NO ACTION,
	FOREIGN KEY (pron_id) REFERENCES dict_pron(id) ON UPDATE NO ACTION ON DELETE NO ACTION
);

CREATE TABLE IF NOT EXISTS dict_pron_definition (
	id INTEGER NOT NULL UNIQUE,
	shared_pron_id INTEGER NOT NULL,
	definition_id INTEGER NOT NULL,
	PRIMARY KEY(id),
	FOREIGN KEY (definition_id) REFERENCES dict_definition(id) ON UPDATE NO ACTION ON DELETE NO ACTION,
	FOREIGN KEY (shared_pron_id) REFERENCES dict_shared_pron(id) ON UPDATE NO ACTION ON DELETE NO ACTION
);
CREATE INDEX IF NOT EXISTS dict_pron_definition_index_0 ON dict_pron_definition (definition_id);

CREATE TABLE IF NOT EXISTS dict_tag (
	id INTEGER NOT NULL UNIQUE,
	tag TEXT NOT NULL,
	category TEXT NOT NULL,
	ascii_symbol TEXT,
	PRIMARY KEY(id)
);
CREATE UNIQUE INDEX IF NOT EXISTS dict_tag_index_0 ON dict_tag (tag, category);

CREATE TABLE IF NOT EXISTS dict_shared_tag (
	for_shared_id INTEGER NOT NULL,
	tag_id INTEGER NOT NULL,
	PRIMARY KEY(for_shared_id, tag_id),
	FOREIGN KEY (tag_id) REFERENCES dict_tag(id) ON UPDATE NO ACTION ON DELETE NO ACTION,
	FOREIGN KEY (for_shared_id) REFERENCES dict_shared(id) ON UPDATE NO ACTION ON DELETE NO ACTION
);
CREATE UNIQUE INDEX IF NOT EXISTS dict_shared_tag_index_0 ON dict_shared_tag (for_shared_id, tag_id);

CREATE TABLE IF NOT EXISTS dict_note (
	id INTEGER NOT NULL UNIQUE,
	note TEXT NOT NULL,
	ext_note_id INTEGER NOT NULL,
	PRIMARY KEY(id)
);
CREATE UNIQUE INDEX IF NOT EXISTS dict_note_index_0 ON dict_note (ext_note_id);

CREATE TABLE IF NOT EXISTS dict_comment (
	id INTEGER NOT NULL UNIQUE,
	comment TEXT NOT NULL,
	PRIMARY KEY(id)
);

CREATE TABLE IF NOT EXISTS dict_ref_type (
	id INTEGER NOT NULL UNIQUE,
	type TEXT NOT NULL,
	ascii_symbol TEXT NOT NULL,
	is_symmetric INTEGER NOT NULL,
	PRIMARY KEY(id)
);
CREATE UNIQUE INDEX IF NOT EXISTS dict_ref_type_index_0 ON dict_ref_type (type);

CREATE TABLE IF NOT EXISTS dict_reference (
	id INTEGER NOT NULL UNIQUE,
	shared_id INTEGER NOT NULL,
	ref_type_id INTEGER NOT NULL,
	word_id_src INTEGER NOT NULL,
	definition_id_src INTEGER,
	word_id_dst INTEGER NOT NULL,
	definition_id_dst INTEGER,
	PRIMARY KEY(id),
	FOREIGN KEY (shared_id) REFERENCES dict_shared(id) ON UPDATE NO ACTION ON DELETE NO ACTION,
	FOREIGN KEY (word_id_dst) REFERENCES dict_word(id) ON UPDATE NO ACTION ON DELETE NO ACTION,
	FOREIGN KEY (word_id_src) REFERENCES dict_word(id) ON UPDATE NO ACTION ON DELETE NO ACTION,
	FOREIGN KEY (definition_id_src) REFERENCES dict_definition(id) ON UPDATE NO ACTION ON DELETE NO ACTION,
	FOREIGN KEY (definition_id_dst) REFERENCES dict_definition(id) ON UPDATE NO ACTION ON DELETE NO ACTION,
	FOREIGN KEY (ref_type_id) REFERENCES dict_ref_type(id) ON UPDATE NO ACTION ON DELETE NO ACTION
);
CREATE INDEX IF NOT EXISTS dict_reference_index_0 ON dict_reference (word_id_src, definition_id_src);

CREATE VIEW IF NOT EXISTS trad_simp_class_pinyin_def AS
SELECT
	w.trad,
	w.simp,
	c.name AS class_name,
	GROUP_CONCAT(p.pinyin_mark, '; ') AS pinyins,
	def.ext_def_id,
	def.definition
FROM dict_definition def
JOIN dict_shared s ON def.shared_id = s.id
JOIN dict_word w ON def.word_id = w.id
JOIN dict_class c ON def.class_id = c.id
LEFT JOIN dict_pron_definition pdp ON def.id = pdp.definition_id
LEFT JOIN dict_shared_pron sp ON pdp.shared_pron_id = sp.id
LEFT JOIN dict_pron p ON sp.pron_id = p.id
LEFT JOIN dict_shared p_s ON sp.shared_id = p_s.id
GROUP BY def.id
ORDER BY s.rank, s.rank_relative;
`

// Open creates (or reuses) a sqlite database at path, ensuring the schema
// exists and the fixed dict_ref_type lookup rows are seeded (seedRefTypes).
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapDBError(err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, wrapDBError(err)
	}
	if err := seedRefTypes(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// memoryDBSeq numbers the databases OpenMemory creates.
var memoryDBSeq atomic.Int64

// OpenMemory opens a fresh in-memory database, used for the .db round-trip
// backup-copy path (never mutating the caller's source file) and for tests.
// Each call gets its own named database; the pooled connections of the
// returned handle share it through SQLite's shared cache.
func OpenMemory() (*sql.DB, error) {
	return Open(fmt.Sprintf("file:fmld-memory-%d?mode=memory&cache=shared", memoryDBSeq.Add(1)))
}

// seedRefTypes populates dict_ref_type from tagreg's registry, the same
// table the Builder uses to validate reference-type codes, so
// the database's lookup rows can never drift from the Go-side table.
func seedRefTypes(db *sql.DB) error {
	for _, rt := range tagreg.AllRefTypes() {
		symmetric := 0
		if rt.Symmetric {
			symmetric = 1
		}
		_, err := db.Exec(
			`INSERT OR IGNORE INTO dict_ref_type (type, ascii_symbol, is_symmetric) VALUES (?, ?, ?)`,
			rt.Name, string(rt.Code), symmetric,
		)
		if err != nil {
			return wrapDBError(err)
		}
	}
	return nil
}
