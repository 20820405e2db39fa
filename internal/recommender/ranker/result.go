// Package ranker scores candidate passages against a query.
//
// Three rankers share one result type: exact lemma intersection, TF-IDF
// cosine similarity and vocabulary coverage. Every ranker is a pure function
// of its inputs; documents are read but never written, so a corpus may be
// shared by concurrent queries.
package ranker

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/corpus"
)

// Result pairs a document with the query-specific outcome of one ranking
// pass. Score is the intersection size, the cosine similarity or the number
// of vocabulary hits depending on the ranker. Coverage is only set by the
// coverage ranker.
type Result struct {
	Document *corpus.Document
	Score    float64
	Coverage float64
	Matches  []string
}

// sortResults orders by score descending. Equal scores keep candidate order,
// which is the corpus order (year descending, then path).
func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

// Top truncates results to at most limit entries. limit <= 0 keeps all.
func Top(results []Result, limit int) []Result {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
