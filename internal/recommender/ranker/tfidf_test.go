package ranker

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/errors"
)

func volcanoCorpus(t testing.TB) []*corpus.Document {
	n := identityNormalizer(t)
	return []*corpus.Document{
		newDoc(n, "eruption.txt", "The volcano erupted and lava flowed; lava cooled into basalt."),
		newDoc(n, "ash.txt", "A volcano released ash over the valley."),
		newDoc(n, "economy.txt", "Inflation pushed central banks to raise interest rates."),
		newDoc(n, "garden.txt", "Tulips bloom early when spring arrives."),
	}
}

func TestSimilarityRanksByOverlap(t *testing.T) {
	t.Parallel()
	n := identityNormalizer(t)
	r := NewSimilarityRanker(n)

	results, err := r.Rank("lava from the volcano", volcanoCorpus(t))

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"eruption.txt", "ash.txt"}, paths(results))
	assert.Greater(t, results[0].Score, results[1].Score)
	for _, res := range results {
		assert.Greater(t, res.Score, DefaultSimilarityThreshold)
		assert.LessOrEqual(t, res.Score, 1.0)
	}
	assert.Equal(t, []string{"lava", "volcano"}, results[0].Matches)
	assert.Equal(t, []string{"volcano"}, results[1].Matches)
}

func TestSimilarityThresholdIsExclusive(t *testing.T) {
	t.Parallel()
	r := NewSimilarityRanker(identityNormalizer(t), WithThreshold(1))

	results, err := r.Rank("lava from the volcano", volcanoCorpus(t))

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSimilarityStopWordQueryHasNoSignal(t *testing.T) {
	t.Parallel()
	r := NewSimilarityRanker(identityNormalizer(t))

	_, err := r.Rank("the of and however", volcanoCorpus(t))

	assert.ErrorIs(t, err, apperrors.ErrNoSignal)
}

func TestSimilarityEmptyVocabularyHasNoSignal(t *testing.T) {
	t.Parallel()
	n := identityNormalizer(t)
	docs := []*corpus.Document{newDoc(n, "a.txt", "the and of"), newDoc(n, "b.txt", "a an")}

	_, err := NewSimilarityRanker(n).Rank("it is", docs)

	assert.ErrorIs(t, err, apperrors.ErrNoSignal)
}

// With a single candidate every shared term appears in both texts and is
// pruned by the document-frequency ceiling.
func TestSimilarityPrunesTermsInEveryText(t *testing.T) {
	t.Parallel()
	n := identityNormalizer(t)
	docs := []*corpus.Document{newDoc(n, "a.txt", "volcano lava")}

	_, err := NewSimilarityRanker(n).Rank("volcano", docs)

	assert.ErrorIs(t, err, apperrors.ErrNoSignal)
}

func TestSimilarityNoCandidates(t *testing.T) {
	t.Parallel()
	results, err := NewSimilarityRanker(identityNormalizer(t)).Rank("volcano", nil)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSimilarityIsDeterministic(t *testing.T) {
	t.Parallel()
	r := NewSimilarityRanker(identityNormalizer(t), WithWorkers(4))
	docs := volcanoCorpus(t)

	first, err := r.Rank("volcano lava basalt", docs)
	require.NoError(t, err)
	for range 20 {
		again, err := r.Rank("volcano lava basalt", docs)
		require.NoError(t, err)
		require.Equal(t, len(first), len(again))
		for i := range first {
			assert.Equal(t, first[i].Document.Path, again[i].Document.Path)
			assert.Equal(t, first[i].Score, again[i].Score)
		}
	}
}

func TestSimilarityTermCounts(t *testing.T) {
	t.Parallel()
	r := NewSimilarityRanker(identityNormalizer(t))

	counts := r.termCounts("Lava, LAVA and x-ray_scan 2024 a")

	assert.Equal(t, map[string]int{"lava": 2, "ray_scan": 1, "2024": 1}, counts)
}

func BenchmarkSimilarityRank(b *testing.B) {
	n := identityNormalizer(b)
	docs := make([]*corpus.Document, 0, 200)
	for i := range 200 {
		docs = append(docs, newDoc(n, fmt.Sprintf("doc-%03d.txt", i),
			fmt.Sprintf("topic%d river valley sediment erosion topic%d flood plain", i%17, i%5)))
	}
	r := NewSimilarityRanker(n)
	b.ResetTimer()
	for b.Loop() {
		_, _ = r.Rank("river erosion flood", docs)
	}
}
