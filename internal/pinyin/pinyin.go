// Package pinyin converts numeric pinyin (tone digits 1-5) to tone-marked
// pinyin, and provides the syllable count used by the validator.
package pinyin

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// apostropheInitials are the syllable-initial vowels that require an
// apostrophe before them when they follow another syllable on output, per
// spec.
var apostropheInitials = map[rune]bool{
	'a': true, 'e': true, 'ê': true, 'o': true,
}

// toneMarks maps a markable base letter to its four toned forms, indexed by
// tone-1 (tones 1 through 4). Tone 5 and any other character are returned
// unmarked by the caller before consulting this table.
var toneMarks = map[rune][4]string{
	'a': {"ā", "á", "ǎ", "à"},
	'A': {"Ā", "Á", "Ǎ", "À"},
	'e': {"ē", "é", "ě", "è"},
	'E': {"Ē", "É", "Ě", "È"},
	'ê': {"ê̄", "ế", "ê̌", "ề"},
	'Ê': {"Ê̄", "Ế", "Ê̌", "Ề"},
	'i': {"ī", "í", "ǐ", "ì"},
	'I': {"Ī", "Í", "Ǐ", "Ì"},
	'o': {"ō", "ó", "ǒ", "ò"},
	'O': {"Ō", "Ó", "Ǒ", "Ò"},
	'u': {"ū", "ú", "ǔ", "ù"},
	'U': {"Ū", "Ú", "Ǔ", "Ù"},
	'ü': {"ǖ", "ǘ", "ǚ", "ǜ"},
	'Ü': {"Ǖ", "Ǘ", "Ǚ", "Ǜ"},
	'm': {"m̄", "ḿ", "m̌", "m̀"},
	'M': {"M̄", "Ḿ", "M̌", "M̀"},
	'n': {"n̄", "ń", "ň", "ǹ"},
	'N': {"N̄", "Ń", "Ň", "Ǹ"},
}

// vowelPriority is the tone-target search order for tones 1-4: the first
// candidate present in the syllable's lowercased vowel run wins.
var vowelPriority = []string{"a", "e", "ê", "ou"}

func isToneDigit(r rune) bool {
	return r >= '1' && r <= '5'
}

// CountSyllables returns the number of tone digits (1-5) in numeric, which is
// the number of pinyin syllables it encodes.
func CountSyllables(numeric string) int {
	count := 0
	for _, r := range numeric {
		if isToneDigit(r) {
			count++
		}
	}
	return count
}

// MarkFromNum converts a numeric-pinyin string (one or more syllables, each
// letters followed by a tone digit 1-5) into its diacritic-marked form.
// Unrecognized input is returned unchanged; MarkFromNum never fails.
func MarkFromNum(numeric string) string {
	syllables := splitSyllables(numeric)

	var out strings.Builder
	for i, syl := range syllables {
		if i > 0 && startsWithApostropheVowel(syl) {
			out.WriteByte('\'')
		}
		out.WriteString(markSyllable(syl))
	}

	return norm.NFC.String(out.String())
}

// splitSyllables splits numeric at every tone digit, keeping the digit at the
// end of the fragment it terminates. A trailing fragment with no tone digit
// (malformed input) is kept as its own syllable.
func splitSyllables(numeric string) []string {
	var syllables []string
	start := 0
	runes := []rune(numeric)
	for i, r := range runes {
		if isToneDigit(r) {
			syllables = append(syllables, string(runes[start:i+1]))
			start = i + 1
		}
	}
	if start < len(runes) {
		syllables = append(syllables, string(runes[start:]))
	}
	return syllables
}

func startsWithApostropheVowel(syllable string) bool {
	if syllable == "" {
		return false
	}
	first := []rune(syllable)[0]
	return apostropheInitials[unicode.ToLower(first)]
}

// markSyllable marks a single syllable (letters + optional trailing tone
// digit) with its diacritic, following the algorithm in spec.md §4.1.
func markSyllable(syllable string) string {
	normalized := strings.NewReplacer("v", "ü", "V", "Ü").Replace(syllable)

	runes := []rune(normalized)
	if len(runes) == 0 {
		return normalized
	}

	last := runes[len(runes)-1]
	if !isToneDigit(last) {
		return normalized
	}
	tone := int(last - '0')
	body := runes[:len(runes)-1]
	bodyStr := string(body)

	if tone == 5 {
		return bodyStr
	}

	target := findMarkTarget(bodyStr)
	if target == "" {
		return bodyStr
	}

	idx := strings.Index(strings.ToLower(bodyStr), target)
	if idx < 0 {
		return bodyStr
	}
	toMark := []rune(bodyStr[idx:])[0]

	marked, ok := toneMarks[toMark]
	if !ok {
		return bodyStr
	}

	return strings.ReplaceAll(bodyStr, string(toMark), marked[tone-1])
}

// findMarkTarget picks the vowel (or fallback consonant) that receives the
// tone mark, per the priority list in spec.md §4.1 step 4.
func findMarkTarget(body string) string {
	lower := strings.ToLower(body)

	var vowels strings.Builder
	for _, r := range lower {
		switch r {
		case 'a', 'e', 'ê', 'i', 'o', 'u', 'ü':
			vowels.WriteRune(r)
		}
	}
	vowelRun := vowels.String()

	if vowelRun != "" {
		for _, cand := range vowelPriority {
			if strings.Contains(vowelRun, cand) {
				return cand
			}
		}
		runes := []rune(vowelRun)
		return string(runes[len(runes)-1])
	}

	if strings.ContainsRune(lower, 'n') {
		return "n"
	}
	if strings.ContainsRune(lower, 'm') {
		return "m"
	}
	return ""
}
