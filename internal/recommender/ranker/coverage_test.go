package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/analysis/normalizer"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/corpus"
)

func TestRankByCoverage(t *testing.T) {
	t.Parallel()
	n := identityNormalizer(t)
	docs := []*corpus.Document{
		newDoc(n, "one.txt", "nobody would abandon hope"),
		newDoc(n, "both.txt", "ability matters more than the urge to abandon"),
		newDoc(n, "none.txt", "weather report"),
	}

	results := RankByCoverage([]string{"abandon", "ability", "zzzznotaword"}, docs)

	require.Len(t, results, 2)
	assert.Equal(t, []string{"both.txt", "one.txt"}, paths(results))
	assert.Equal(t, 2.0, results[0].Score)
	assert.InDelta(t, 2.0/3.0, results[0].Coverage, 1e-9)
	assert.Equal(t, []string{"abandon", "ability"}, results[0].Matches)
	assert.InDelta(t, 1.0/3.0, results[1].Coverage, 1e-9)
}

func TestRankByCoverageNormalisesVocabulary(t *testing.T) {
	t.Parallel()
	n := identityNormalizer(t)
	docs := []*corpus.Document{newDoc(n, "a.txt", "abandon ship")}

	results := RankByCoverage([]string{" Abandon ", "abandon", "", "ship"}, docs)

	require.Len(t, results, 1)
	assert.Equal(t, 1.0, results[0].Coverage)
	assert.Equal(t, []string{"abandon", "ship"}, results[0].Matches)
}

func TestRankByCoverageEmptyVocabulary(t *testing.T) {
	t.Parallel()
	n := identityNormalizer(t)
	docs := []*corpus.Document{newDoc(n, "a.txt", "abandon ship")}

	assert.Empty(t, RankByCoverage(nil, docs))
	assert.Empty(t, RankByCoverage([]string{"  "}, docs))
}

func TestRankByCoverageIsPerDocument(t *testing.T) {
	t.Parallel()
	docs := []*corpus.Document{
		{Path: "a.txt", Lemmas: normalizer.NewLemmaSet("alpha", "beta")},
		{Path: "b.txt", Lemmas: normalizer.NewLemmaSet("alpha", "beta")},
	}

	results := RankByCoverage([]string{"alpha", "beta"}, docs)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, 1.0, r.Coverage)
	}
}
