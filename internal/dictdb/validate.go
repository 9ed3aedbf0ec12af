package dictdb

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jiong3/fmld/internal/fmlderr"
	"github.com/jiong3/fmld/internal/pinyin"
)

// hanRanges are the Han-character Unicode ranges used to decide whether a
// word is eligible for the pinyin-syllable-count check (spec.md §6).
var hanRanges = [][2]rune{
	{0x2E80, 0x2E99}, {0x2E9B, 0x2EF3}, {0x2F00, 0x2FD5},
	{0x3005, 0x3005}, {0x3007, 0x3007}, {0x3021, 0x3029},
	{0x3038, 0x303A}, {0x303B, 0x303B}, {0x3400, 0x4DB5},
	{0x4E00, 0x9FC3}, {0xF900, 0xFA2D}, {0xFA30, 0xFA6A},
	{0xFA70, 0xFAD9}, {0x20000, 0x2A6D6}, {0x2F800, 0x2FA1D},
}

func isHanChar(r rune) bool {
	for _, rg := range hanRanges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}

func allHanChars(s string) bool {
	for _, r := range s {
		if !isHanChar(r) {
			return false
		}
	}
	return true
}

// Validate runs the per-definition checks in spec.md §4.7: traditional and
// simplified character-count agreement, and (when the word is entirely Han
// characters) pinyin-syllable-count agreement. Errors accumulate; validation
// never blocks the pipeline. Grounded on
// original_source/src/db_check.rs's check_entries, with the hand-rolled
// Unicode range table standing in for its compiled regexp since Go's
// unicode/regexp cost is unneeded for a fixed range membership test.
func Validate(db *sql.DB) (*fmlderr.List, error) {
	diags := &fmlderr.List{}

	rows, err := db.Query(`
		SELECT
			w.trad,
			w.simp,
			GROUP_CONCAT(p.pinyin_num, ';') AS pinyin_nums
		FROM dict_definition def
		JOIN dict_word w ON def.word_id = w.id
		LEFT JOIN dict_pron_definition pdp ON def.id = pdp.definition_id
		LEFT JOIN dict_shared_pron sp ON pdp.shared_pron_id = sp.id
		LEFT JOIN dict_pron p ON sp.pron_id = p.id
		GROUP BY def.id
	`)
	if err != nil {
		return nil, wrapDBError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var trad, simp string
		var pinyinNums sql.NullString
		if err := rows.Scan(&trad, &simp, &pinyinNums); err != nil {
			return nil, wrapDBError(err)
		}

		if countRunes(trad) != countRunes(simp) {
			diags.Add(fmlderr.Diagnostic{
				Word: trad,
				Err: fmlderr.ErrValidation{Msg: fmt.Sprintf(
					"different numbers of characters, traditional: %s simplified: %s", trad, simp,
				)},
			})
			continue
		}

		if !allHanChars(trad) || !pinyinNums.Valid {
			continue
		}

		n := countRunes(trad)
		r := strings.Count(trad, "兒")
		minSyllables, maxSyllables := n-r, n

		for _, num := range strings.Split(pinyinNums.String, ";") {
			syllables := pinyin.CountSyllables(num)
			if syllables < minSyllables || syllables > maxSyllables {
				diags.Add(fmlderr.Diagnostic{
					Word: trad,
					Err: fmlderr.ErrValidation{Msg: fmt.Sprintf(
						"pinyin syllables don't match number of characters, traditional: %s pinyin: %s", trad, num,
					)},
				})
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err)
	}

	return diags, nil
}

func countRunes(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
