package dictfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_parseTagGroup(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		expect TagGroup
	}{
		{"simple-ascii", "|T|", TagGroup{Ascii: []rune{'T'}}},
		{"multiple-ascii", "|AB C|", TagGroup{Ascii: []rune{'A', 'B', 'C'}}},
		{"simple-full", "|#tag1|", TagGroup{Full: []string{"tag1"}}},
		{"multiple-full", "|#tag1#tag2|", TagGroup{Full: []string{"tag1", "tag2"}}},
		{"mixed", "|A#tag1 B #tag2|", TagGroup{Ascii: []rune{'A'}, Full: []string{"tag1 B", "tag2"}}},
		{"empty", "||", TagGroup{}},
		{"whitespace", "  |  A #tag1  |  ", TagGroup{Ascii: []rune{'A'}, Full: []string{"tag1"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &scanner{r: []rune(tc.input)}
			g, err := parseTagGroup(s)
			assert.NoError(t, err)
			assert.Equal(t, tc.expect, g)
		})
	}
}

func Test_ParseLine_word(t *testing.T) {
	line, err := ParseLine("W|T| TraditionalWord")
	assert.NoError(t, err)
	assert.Equal(t, &WordLine{Groups: []WordTagGroup{
		{Tags: TagGroup{Ascii: []rune{'T'}}, Words: []Word{{Trad: "TraditionalWord"}}},
	}}, line)
}

func Test_ParseLine_word_withSimplified(t *testing.T) {
	line, err := ParseLine("W|T| Traditional/Simplified")
	assert.NoError(t, err)
	assert.Equal(t, &WordLine{Groups: []WordTagGroup{
		{Tags: TagGroup{Ascii: []rune{'T'}}, Words: []Word{{Trad: "Traditional", Simp: "Simplified"}}},
	}}, line)
}

func Test_ParseLine_word_multipleWordsAndGroups(t *testing.T) {
	line, err := ParseLine("W|T| Word1; Word2/Simp2 |S| Word3")
	assert.NoError(t, err)
	assert.Equal(t, &WordLine{Groups: []WordTagGroup{
		{Tags: TagGroup{Ascii: []rune{'T'}}, Words: []Word{
			{Trad: "Word1"},
			{Trad: "Word2", Simp: "Simp2"},
		}},
		{Tags: TagGroup{Ascii: []rune{'S'}}, Words: []Word{{Trad: "Word3"}}},
	}}, line)
}

func Test_ParseLine_word_fullWidthSeparator(t *testing.T) {
	line, err := ParseLine("W|| 你好／您好")
	assert.NoError(t, err)
	assert.Equal(t, &WordLine{Groups: []WordTagGroup{
		{Words: []Word{{Trad: "你好", Simp: "您好"}}},
	}}, line)
}

func Test_ParseLine_pinyin(t *testing.T) {
	line, err := ParseLine("P|M| man2; woman2")
	assert.NoError(t, err)
	assert.Equal(t, &PinyinLine{Groups: []PinyinTagGroup{
		{Tags: TagGroup{Ascii: []rune{'M'}}, Pinyins: []string{"man2", "woman2"}},
	}}, line)
}

func Test_ParseLine_pinyin_multipleGroups(t *testing.T) {
	line, err := ParseLine("P|M| man2 |C| cha2")
	assert.NoError(t, err)
	assert.Equal(t, &PinyinLine{Groups: []PinyinTagGroup{
		{Tags: TagGroup{Ascii: []rune{'M'}}, Pinyins: []string{"man2"}},
		{Tags: TagGroup{Ascii: []rune{'C'}}, Pinyins: []string{"cha2"}},
	}}, line)
}

func Test_ParseLine_class(t *testing.T) {
	line, err := ParseLine("C int.")
	assert.NoError(t, err)
	assert.Equal(t, &ClassLine{Name: "int."}, line)
}

func Test_ParseLine_definition(t *testing.T) {
	line, err := ParseLine("D1|| hello")
	assert.NoError(t, err)
	assert.Equal(t, &DefinitionLine{ExtDefID: 1, Text: "hello"}, line)
}

func Test_ParseLine_definition_withMultilineText(t *testing.T) {
	line, err := ParseLine("D1|| first line\nsecond line")
	assert.NoError(t, err)
	assert.Equal(t, &DefinitionLine{ExtDefID: 1, Text: "first line\nsecond line"}, line)
}

func Test_ParseLine_definition_withTags(t *testing.T) {
	line, err := ParseLine("D2|+#rare| a rare usage")
	assert.NoError(t, err)
	assert.Equal(t, &DefinitionLine{
		ExtDefID: 2,
		Tags:     TagGroup{Ascii: []rune{'+'}, Full: []string{"rare"}},
		Text:     "a rare usage",
	}, line)
}

func Test_ParseLine_crossReference(t *testing.T) {
	line, err := ParseLine("X=|| 您好")
	assert.NoError(t, err)
	assert.Equal(t, &CrossReferenceLine{
		RefType: '=',
		Groups: []ReferenceTagGroup{
			{References: []Reference{{Word: Word{Trad: "您好"}}}},
		},
	}, line)
}

func Test_ParseLine_crossReference_withAnchor(t *testing.T) {
	line, err := ParseLine("X<|| 您好#D2")
	assert.NoError(t, err)
	assert.Equal(t, &CrossReferenceLine{
		RefType: '<',
		Groups: []ReferenceTagGroup{
			{References: []Reference{{Word: Word{Trad: "您好"}, ExtDefID: 2}}},
		},
	}, line)
}

func Test_ParseLine_note_new(t *testing.T) {
	line, err := ParseLine("N5 this is a note")
	assert.NoError(t, err)
	assert.Equal(t, &NoteLine{ExtNoteID: 5, Text: "this is a note"}, line)
}

func Test_ParseLine_note_link(t *testing.T) {
	line, err := ParseLine("N->5")
	assert.NoError(t, err)
	assert.Equal(t, &NoteLine{ExtNoteID: 5, IsLink: true}, line)
}

func Test_ParseLine_comment(t *testing.T) {
	line, err := ParseLine("# a remark")
	assert.NoError(t, err)
	assert.Equal(t, &CommentLine{Text: "a remark"}, line)
}

func Test_ParseLine_invalid(t *testing.T) {
	_, err := ParseLine("Z garbage")
	assert.Error(t, err)
}

func Test_ParseLine_empty(t *testing.T) {
	_, err := ParseLine("")
	assert.Error(t, err)
}

func Test_ParseAll_continuesAfterError(t *testing.T) {
	lines := Lex("W|| 你好\nZ garbage\nP|| ni3hao3\n")
	parsed := ParseAll(lines)

	assert.Len(t, parsed, 3)
	assert.NoError(t, parsed[0].Err)
	assert.Error(t, parsed[1].Err)
	assert.Nil(t, parsed[1].Line)
	assert.NoError(t, parsed[2].Err)
}
