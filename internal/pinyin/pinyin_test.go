package pinyin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_MarkFromNum(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		expect string
	}{
		{"nihao", "ni3hao3", "nǐhǎo"},
		{"zhongguo", "zhong1guo2", "zhōngguó"},
		{"lu-umlaut-tone4", "lü4", "lǜ"},
		{"nv-as-u-umlaut", "nv3", "nǚ"},
		{"er", "er2", "ér"},
		{"hen", "hen3", "hěn"},
		{"neutral-tone", "ma5", "ma"},
		{"neutral-tone-two-syllables", "ma5li5", "mali"},
		{"a-initial-non-first-syllable", "quan2ai1", "quán'āi"},
		{"ou-priority", "ou3", "ǒu"},
		{"m-consonant", "m2", "ḿ"},
		{"n-consonant-capital", "N4", "Ǹ"},
		{"jue", "jue2", "jué"},
		{"xiong", "xiong2", "xióng"},
		{"no-tone-digit", "pinyin", "pinyin"},
		{"empty", "", ""},
		{"jiong-marks-o", "jiong3", "jiǒng"},
		{"uppercase-first-letter", "Qing1", "Qīng"},
		{"all-uppercase", "LUO2", "LUÓ"},
		{"uppercase-neutral", "BA5", "BA"},
		{"r-neutral", "r5", "r"},
		{"lve-tone4", "lve4", "lüè"},
		{"nv-neutral", "nv5", "nü"},
		{"v-alone", "v3", "ǚ"},
		{"capital-v-alone", "V3", "Ǜ"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, MarkFromNum(tc.input))
		})
	}
}

func Test_CountSyllables(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		expect int
	}{
		{"single", "ni3", 1},
		{"two", "ni3hao3", 2},
		{"none", "", 0},
		{"no-tone-digit", "pinyin", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, CountSyllables(tc.input))
		})
	}
}
