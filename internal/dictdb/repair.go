package dictdb

import (
	"database/sql"
	"fmt"

	"github.com/jiong3/fmld/internal/fmlderr"
)

// symmetricPairJoin is the self-join predicate matching a reference (ref1)
// against its symmetric mirror (ref2): same word pair swapped, same
// ref_type, and null-safe-equal definition anchors swapped. Used by the
// tag-copy, note-copy and conflict-detection sub-passes; the synthesis pass
// and the second note-copy UPDATE spell out the same predicate inline.
const symmetricPairJoin = `
	JOIN dict_ref_type AS ref_type ON ref1.ref_type_id = ref_type.id
	JOIN dict_reference AS ref2 ON ref1.word_id_src = ref2.word_id_dst
		AND ref1.word_id_dst = ref2.word_id_src
		AND ref1.ref_type_id = ref2.ref_type_id
		AND (ref1.definition_id_src = ref2.definition_id_dst OR (ref1.definition_id_src IS NULL AND ref2.definition_id_dst IS NULL))
		AND (ref1.definition_id_dst = ref2.definition_id_src OR (ref1.definition_id_dst IS NULL AND ref2.definition_id_src IS NULL))
`

// Repair runs Semantic Repair (spec.md §4.6) in its own transaction: first
// synthesizing missing symmetric references, then copying tags and notes
// across every symmetric pair, then flagging pairs whose notes conflict.
// Grounded on original_source/src/db_edit.rs's
// add_missing_symmetric_references and
// add_missing_notes_and_tags_for_symmetric_references, translated from
// rusqlite's prepared-statement style to database/sql, and operating as
// set-oriented queries over dict_reference rather than graph traversal, per
// spec.md's explicit instruction for this pass.
func Repair(db *sql.DB) (*fmlderr.List, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, wrapDBError(err)
	}

	if err := synthesizeMissingSymmetricReferences(tx); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := copyTagsAcrossSymmetricPairs(tx); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := copyNotesAcrossSymmetricPairs(tx); err != nil {
		tx.Rollback()
		return nil, err
	}

	diags := &fmlderr.List{}
	if err := detectConflictingNotes(tx, diags); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapDBError(err)
	}
	return diags, nil
}

type missingSymmetricRef struct {
	refTypeID int64
	wordIDSrc int64
	defIDSrc  sql.NullInt64
	wordIDDst int64
	defIDDst  sql.NullInt64
}

func synthesizeMissingSymmetricReferences(tx *sql.Tx) error {
	rows, err := tx.Query(`
		SELECT
			original_ref.ref_type_id,
			original_ref.word_id_src,
			original_ref.definition_id_src,
			original_ref.word_id_dst,
			original_ref.definition_id_dst
		FROM dict_reference AS original_ref
		JOIN dict_ref_type AS ref_type ON original_ref.ref_type_id = ref_type.id
		LEFT JOIN dict_reference AS symmetric_ref
			ON original_ref.word_id_src = symmetric_ref.word_id_dst
			AND original_ref.word_id_dst = symmetric_ref.word_id_src
			AND original_ref.ref_type_id = symmetric_ref.ref_type_id
			AND (original_ref.definition_id_src = symmetric_ref.definition_id_dst OR (original_ref.definition_id_src IS NULL AND symmetric_ref.definition_id_dst IS NULL))
			AND (original_ref.definition_id_dst = symmetric_ref.definition_id_src OR (original_ref.definition_id_dst IS NULL AND symmetric_ref.definition_id_src IS NULL))
		WHERE ref_type.is_symmetric = 1 AND symmetric_ref.id IS NULL
	`)
	if err != nil {
		return wrapDBError(err)
	}

	var missing []missingSymmetricRef
	for rows.Next() {
		var m missingSymmetricRef
		if err := rows.Scan(&m.refTypeID, &m.wordIDSrc, &m.defIDSrc, &m.wordIDDst, &m.defIDDst); err != nil {
			rows.Close()
			return wrapDBError(err)
		}
		missing = append(missing, m)
	}
	if err := rows.Err(); err != nil {
		return wrapDBError(err)
	}
	rows.Close()

	for _, m := range missing {
		rank, err := placementRank(tx, m.wordIDDst, m.defIDDst)
		if err != nil {
			return err
		}
		res, err := tx.Exec(`INSERT INTO dict_shared (rank, rank_relative) VALUES (?, 1)`, rank)
		if err != nil {
			return wrapDBError(err)
		}
		sharedID, err := res.LastInsertId()
		if err != nil {
			return wrapDBError(err)
		}
		_, err = tx.Exec(
			`INSERT INTO dict_reference (shared_id, ref_type_id, word_id_src, definition_id_src, word_id_dst, definition_id_dst) VALUES (?, ?, ?, ?, ?, ?)`,
			sharedID, m.refTypeID, m.wordIDDst, m.defIDDst, m.wordIDSrc, m.defIDSrc,
		)
		if err != nil {
			return wrapDBError(err)
		}
	}
	return nil
}

// placementRank implements spec.md §4.6(a)'s four-priority placement
// algorithm for a synthesized reference's Shared.rank, using the reference's
// original destination (which becomes the new reference's source).
func placementRank(tx *sql.Tx, wordIDDst int64, defIDDst sql.NullInt64) (int64, error) {
	var rank int64
	err := tx.QueryRow(`
		SELECT
			CASE
				WHEN ?1 IS NOT NULL THEN
					COALESCE(
						(SELECT MAX(shared.rank) FROM dict_reference r JOIN dict_shared shared ON r.shared_id = shared.id WHERE r.word_id_src = ?2 AND r.definition_id_src = ?1),
						(SELECT shared.rank FROM dict_definition def JOIN dict_shared shared ON def.shared_id = shared.id WHERE def.id = ?1)
					)
				ELSE
					COALESCE(
						(SELECT MAX(shared.rank) FROM dict_reference r JOIN dict_shared shared ON r.shared_id = shared.id WHERE r.word_id_src = ?2 AND r.definition_id_src IS NULL),
						(SELECT shared.rank FROM dict_word w JOIN dict_shared shared ON w.shared_id = shared.id WHERE w.id = ?2)
					)
			END
	`, defIDDst, wordIDDst).Scan(&rank)
	if err != nil {
		return 0, wrapDBError(err)
	}
	return rank, nil
}

func copyTagsAcrossSymmetricPairs(tx *sql.Tx) error {
	_, err := tx.Exec(`
		INSERT OR IGNORE INTO dict_shared_tag (for_shared_id, tag_id)
		SELECT ref2.shared_id, tags1.tag_id
		FROM dict_reference AS ref1
		` + symmetricPairJoin + `
		JOIN dict_shared_tag AS tags1 ON ref1.shared_id = tags1.for_shared_id
		WHERE ref_type.is_symmetric = 1
			AND ref1.id < ref2.id
			AND NOT EXISTS (
				SELECT 1 FROM dict_shared_tag AS tags2
				WHERE tags2.for_shared_id = ref2.shared_id AND tags2.tag_id = tags1.tag_id
			);

		INSERT OR IGNORE INTO dict_shared_tag (for_shared_id, tag_id)
		SELECT ref1.shared_id, tags2.tag_id
		FROM dict_reference AS ref1
		` + symmetricPairJoin + `
		JOIN dict_shared_tag AS tags2 ON ref2.shared_id = tags2.for_shared_id
		WHERE ref_type.is_symmetric = 1
			AND ref1.id < ref2.id
			AND NOT EXISTS (
				SELECT 1 FROM dict_shared_tag AS tags1
				WHERE tags1.for_shared_id = ref1.shared_id AND tags1.tag_id = tags2.tag_id
			);
	`)
	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

func copyNotesAcrossSymmetricPairs(tx *sql.Tx) error {
	_, err := tx.Exec(`
		UPDATE dict_shared
		SET note_id = (
			SELECT shared2.note_id
			FROM dict_reference AS ref1
			` + symmetricPairJoin + `
			JOIN dict_shared AS shared2 ON ref2.shared_id = shared2.id
			WHERE ref1.shared_id = dict_shared.id
				AND ref_type.is_symmetric = 1
				AND ref1.id < ref2.id
				AND shared2.note_id IS NOT NULL
		)
		WHERE dict_shared.note_id IS NULL
			AND dict_shared.id IN (
				SELECT ref1.shared_id
				FROM dict_reference AS ref1
				` + symmetricPairJoin + `
				JOIN dict_shared AS shared2 ON ref2.shared_id = shared2.id
				WHERE ref_type.is_symmetric = 1
					AND ref1.id < ref2.id
					AND shared2.note_id IS NOT NULL
			);

		UPDATE dict_shared
		SET note_id = (
			SELECT shared1.note_id
			FROM dict_reference AS ref2
			JOIN dict_ref_type AS ref_type ON ref2.ref_type_id = ref_type.id
			JOIN dict_reference AS ref1 ON ref2.word_id_src = ref1.word_id_dst
				AND ref2.word_id_dst = ref1.word_id_src
				AND ref2.ref_type_id = ref1.ref_type_id
				AND (ref2.definition_id_src = ref1.definition_id_dst OR (ref2.definition_id_src IS NULL AND ref1.definition_id_dst IS NULL))
				AND (ref2.definition_id_dst = ref1.definition_id_src OR (ref2.definition_id_dst IS NULL AND ref1.definition_id_src IS NULL))
			JOIN dict_shared AS shared1 ON ref1.shared_id = shared1.id
			WHERE ref2.shared_id = dict_shared.id
				AND ref_type.is_symmetric = 1
				AND ref1.id < ref2.id
				AND shared1.note_id IS NOT NULL
		)
		WHERE dict_shared.note_id IS NULL
			AND dict_shared.id IN (
				SELECT ref2.shared_id
				FROM dict_reference AS ref2
				JOIN dict_ref_type AS ref_type ON ref2.ref_type_id = ref_type.id
				JOIN dict_reference AS ref1 ON ref2.word_id_src = ref1.word_id_dst
					AND ref2.word_id_dst = ref1.word_id_src
					AND ref2.ref_type_id = ref1.ref_type_id
					AND (ref2.definition_id_src = ref1.definition_id_dst OR (ref2.definition_id_src IS NULL AND ref1.definition_id_dst IS NULL))
					AND (ref2.definition_id_dst = ref1.definition_id_src OR (ref2.definition_id_dst IS NULL AND ref1.definition_id_src IS NULL))
				JOIN dict_shared AS shared1 ON ref1.shared_id = shared1.id
				WHERE ref_type.is_symmetric = 1
					AND ref1.id < ref2.id
					AND shared1.note_id IS NOT NULL
			);
	`)
	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

func detectConflictingNotes(tx *sql.Tx, diags *fmlderr.List) error {
	rows, err := tx.Query(`
		SELECT DISTINCT w1.trad, w1.simp, w2.trad, w2.simp
		FROM dict_reference AS ref1
		` + symmetricPairJoin + `
		JOIN dict_shared AS shared1 ON ref1.shared_id = shared1.id
		JOIN dict_shared AS shared2 ON ref2.shared_id = shared2.id
		JOIN dict_word AS w1 ON ref1.word_id_src = w1.id
		JOIN dict_word AS w2 ON ref1.word_id_dst = w2.id
		WHERE ref_type.is_symmetric = 1
			AND ref1.id < ref2.id
			AND shared1.note_id IS NOT NULL
			AND shared2.note_id IS NOT NULL
			AND shared1.note_id != shared2.note_id
	`)
	if err != nil {
		return wrapDBError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var trad1, simp1, trad2, simp2 string
		if err := rows.Scan(&trad1, &simp1, &trad2, &simp2); err != nil {
			return wrapDBError(err)
		}
		diags.Add(fmlderr.Diagnostic{
			Word: trad1,
			Err: fmlderr.ErrValidation{Msg: fmt.Sprintf(
				"conflicting notes between symmetric reference endpoints %s and %s",
				formatWord(trad1, simp1), formatWord(trad2, simp2),
			)},
		})
	}
	return rows.Err()
}
