package ranker

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/analysis/normalizer"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/corpus"
)

// RankByCoverage scores each document independently by how many words of
// vocab its lemma set contains. Coverage is hits divided by the number of
// distinct vocabulary words. This is not a set cover across documents.
func RankByCoverage(vocab []string, docs []*corpus.Document) []Result {
	set := make(normalizer.LemmaSet, len(vocab))
	for _, w := range vocab {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	results := make([]Result, 0)
	if len(set) == 0 {
		return results
	}
	total := float64(len(set))
	for _, doc := range docs {
		hits := set.Intersect(doc.Lemmas)
		if len(hits) == 0 {
			continue
		}
		results = append(results, Result{
			Document: doc,
			Score:    float64(len(hits)),
			Coverage: float64(len(hits)) / total,
			Matches:  hits,
		})
	}
	sortResults(results)
	return results
}
