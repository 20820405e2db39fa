package ranker

import (
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/analysis/normalizer"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/corpus"
)

// RankByIntersection scores each document by the number of query lemmas it
// contains. Documents with no overlap are left out.
func RankByIntersection(query normalizer.LemmaSet, docs []*corpus.Document) []Result {
	results := make([]Result, 0)
	if len(query) == 0 {
		return results
	}
	for _, doc := range docs {
		common := query.Intersect(doc.Lemmas)
		if len(common) == 0 {
			continue
		}
		results = append(results, Result{
			Document: doc,
			Score:    float64(len(common)),
			Matches:  common,
		})
	}
	sortResults(results)
	return results
}
