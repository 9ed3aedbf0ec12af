package dictdb

import (
	"database/sql"
)

// Meta mirrors the JSON sidecar spec.md §6 describes: on input only
// MaxNoteID is consulted (as the external floor for publication note ids),
// and all five fields are rewritten on output. Grounded on
// original_source/rust/src/main.rs's DictMeta, with the "default to zero"
// field behavior of its serde attributes expressed as Go's ordinary
// zero-value unmarshaling.
type Meta struct {
	NumWords       int `json:"num_words"`
	NumDefinitions int `json:"num_definitions"`
	NumReferences  int `json:"num_references"`
	NumNotes       int `json:"num_notes"`
	MaxNoteID      int `json:"max_note_id"`
}

// Finalize reassigns publication note ids and refreshes the database's
// population counts into meta. Notes below the placeholder threshold (<100)
// are renumbered starting from one past the larger of meta's incoming
// MaxNoteID and the database's own current maximum ext_note_id, preserving
// the order encountered. Grounded on
// original_source/src/db_edit.rs's finalize_note_ids: same base computation
// and threshold, run in its own transaction (spec.md §4.9's "the Finalizer
// opens its own transaction"). Unlike finalize_note_ids, this does not also
// point dict_shared.id=1's note_id at the last renumbered note — see
// DESIGN.md's open-question decision on that vestigial side effect.
func Finalize(db *sql.DB, meta *Meta) error {
	tx, err := db.Begin()
	if err != nil {
		return wrapDBError(err)
	}
	defer tx.Rollback()

	newMaxNoteID, err := finalizeNoteIDs(tx, meta.MaxNoteID)
	if err != nil {
		return err
	}

	counts, err := currentCounts(tx)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrapDBError(err)
	}

	meta.NumWords = counts.numWords
	meta.NumDefinitions = counts.numDefinitions
	meta.NumReferences = counts.numReferences
	meta.NumNotes = counts.numNotes
	meta.MaxNoteID = newMaxNoteID
	return nil
}

func finalizeNoteIDs(tx *sql.Tx, externalMaxNoteID int) (int, error) {
	var dbMaxNoteID sql.NullInt64
	if err := tx.QueryRow(`SELECT MAX(ext_note_id) FROM dict_note`).Scan(&dbMaxNoteID); err != nil {
		return 0, wrapDBError(err)
	}
	base := externalMaxNoteID
	if dbMaxNoteID.Valid && int(dbMaxNoteID.Int64) > base {
		base = int(dbMaxNoteID.Int64)
	}

	rows, err := tx.Query(`SELECT id FROM dict_note WHERE ext_note_id < 100 ORDER BY id`)
	if err != nil {
		return 0, wrapDBError(err)
	}
	var noteIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, wrapDBError(err)
		}
		noteIDs = append(noteIDs, id)
	}
	if err := rows.Err(); err != nil {
		return 0, wrapDBError(err)
	}
	rows.Close()

	for _, id := range noteIDs {
		base++
		if _, err := tx.Exec(`UPDATE dict_note SET ext_note_id = ? WHERE id = ?`, base, id); err != nil {
			return 0, wrapDBError(err)
		}
	}
	return base, nil
}

type populationCounts struct {
	numWords       int
	numDefinitions int
	numReferences  int
	numNotes       int
}

func currentCounts(tx *sql.Tx) (populationCounts, error) {
	var c populationCounts
	err := tx.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM dict_word) AS num_words,
			(SELECT COUNT(*) FROM dict_definition) AS num_definitions,
			(SELECT COUNT(*) FROM dict_reference) AS num_references,
			(SELECT COUNT(*) FROM dict_note) AS num_notes
	`).Scan(&c.numWords, &c.numDefinitions, &c.numReferences, &c.numNotes)
	if err != nil {
		return populationCounts{}, wrapDBError(err)
	}
	return c, nil
}
