package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleDocs() []*Document {
	return []*Document{
		{Title: "a", Year: 2023, Category: "六级"},
		{Title: "b", Year: 2021, Category: "四级"},
		{Title: "c", Year: 2019, Category: "六级"},
		{Title: "d", Year: UnknownYear, Category: DefaultCategory},
	}
}

func titles(docs []*Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Title
	}
	return out
}

func TestFilterApply(t *testing.T) {
	t.Parallel()
	docs := sampleDocs()

	assert.Equal(t, []string{"a", "b", "c", "d"}, titles(Filter{}.Apply(docs)))
	assert.Equal(t, []string{"b", "c"}, titles(Filter{YearFrom: 2019, YearTo: 2021}.Apply(docs)))
	assert.Equal(t, []string{"b", "c"}, titles(Filter{YearTo: 2021}.Apply(docs)))
	assert.Equal(t, []string{"a", "c"}, titles(Filter{Categories: []string{"六级"}}.Apply(docs)))
	assert.Equal(t, []string{"a"}, titles(Filter{YearFrom: 2022, Categories: []string{"六级"}}.Apply(docs)))
	assert.Empty(t, Filter{Categories: []string{"雅思"}}.Apply(docs))
}

func TestSummarize(t *testing.T) {
	t.Parallel()
	ov := Summarize(sampleDocs())
	assert.Equal(t, 4, ov.Total)
	assert.Equal(t, 2019, ov.MinYear)
	assert.Equal(t, 2023, ov.MaxYear)
	assert.Equal(t, map[string]int{"六级": 2, "四级": 1, DefaultCategory: 1}, ov.Categories)
}

func TestSummarizeWithoutYears(t *testing.T) {
	t.Parallel()
	ov := Summarize([]*Document{{Title: "x", Category: DefaultCategory}})
	assert.Equal(t, 2010, ov.MinYear)
	assert.Equal(t, 2025, ov.MaxYear)
}
