package ranker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/analysis/normalizer"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/corpus"
)

// identityNormalizer skips dictionary lookups so scores depend only on the
// surface words in each fixture.
func identityNormalizer(t testing.TB) *normalizer.Normalizer {
	t.Helper()
	n, err := normalizer.New(normalizer.WithLemmatizer(normalizer.NewLemmatizer(nil)))
	require.NoError(t, err)
	return n
}

func newDoc(n *normalizer.Normalizer, path, content string) *corpus.Document {
	return &corpus.Document{
		Title:    path,
		Path:     path,
		Year:     corpus.UnknownYear,
		Category: corpus.DefaultCategory,
		Content:  content,
		Lemmas:   n.Normalize(content),
	}
}

func paths(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Document.Path
	}
	return out
}
