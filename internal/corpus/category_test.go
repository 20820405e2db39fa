package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyFilename(t *testing.T) {
	t.Parallel()
	cases := [][2]string{
		{"2021_CET6_reading.txt", "六级"},
		{"2019-cet-4-passage1.txt", "四级"},
		{"2020英语一Text2.txt", "英语一"},
		{"ENG2_2018_text3.txt", "英语二"},
		{"tem8_2015.txt", "专八"},
		{"IELTS_cambridge_15.txt", "雅思"},
		{"random_notes.txt", DefaultCategory},
		{"2022_english1_text4.txt", "英语一"},
		{"六级真题_2017_12_第一套.txt", "六级"},
		{"toefl_tpo_54_reading_1.txt", "托福"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc[1], ClassifyFilename(tc[0]), tc[0])
	}
}

func TestClassifyFirstRuleWins(t *testing.T) {
	t.Parallel()
	rules := []CategoryRule{
		{Label: "first", Keywords: []string{"abc"}},
		{Label: "second", Keywords: []string{"ab"}},
	}
	assert.Equal(t, "first", classify(rules, "xxABCxx"))
	assert.Equal(t, "second", classify(rules, "xxABxx"))
	assert.Equal(t, DefaultCategory, classify(rules, "xyz"))
}

func TestExtractYear(t *testing.T) {
	t.Parallel()
	cases := map[string]int{
		"2021_CET6_reading.txt": 2021,
		"cet4_2019_06.txt":      2019,
		"text_1999.txt":         UnknownYear,
		"no_year.txt":           UnknownYear,
		"v12024b.txt":           2024,
		"2005-2010.txt":         2005,
	}
	for name, want := range cases {
		assert.Equal(t, want, ExtractYear(name), name)
	}
}
