package ranker

import (
	"math"
	"runtime"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/analysis/normalizer"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/errors"
)

const (
	DefaultSimilarityThreshold = 0.05
	DefaultMaxDF               = 0.6
)

// SimilarityRanker ranks documents by TF-IDF cosine similarity to free query
// text. The vector space is rebuilt per call over the candidates plus the
// query, so scores depend on which candidates are passed in.
type SimilarityRanker struct {
	norm      *normalizer.Normalizer
	stop      map[string]struct{}
	maxDF     float64
	threshold float64
	workers   int
}

// SimilarityOption configures a SimilarityRanker.
type SimilarityOption func(*SimilarityRanker)

// WithThreshold sets the minimum similarity, exclusive.
func WithThreshold(t float64) SimilarityOption {
	return func(r *SimilarityRanker) { r.threshold = t }
}

// WithMaxDF drops terms present in more than this fraction of documents.
func WithMaxDF(f float64) SimilarityOption {
	return func(r *SimilarityRanker) { r.maxDF = f }
}

// WithWorkers bounds the goroutines used to vectorise documents.
func WithWorkers(n int) SimilarityOption {
	return func(r *SimilarityRanker) { r.workers = n }
}

// NewSimilarityRanker creates a ranker using the extended stop-word set.
// norm computes the matched terms shown to the caller.
func NewSimilarityRanker(norm *normalizer.Normalizer, opts ...SimilarityOption) *SimilarityRanker {
	r := &SimilarityRanker{
		norm:      norm,
		stop:      normalizer.ExtendedStopWords(),
		maxDF:     DefaultMaxDF,
		threshold: DefaultSimilarityThreshold,
		workers:   runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers <= 0 {
		r.workers = 1
	}
	return r
}

// Rank returns documents whose similarity to queryText is strictly above the
// threshold, most similar first. It returns apperrors.ErrNoSignal when no
// usable vocabulary remains after stop-word removal and max-df pruning, or
// when none of it comes from the query.
func (r *SimilarityRanker) Rank(queryText string, docs []*corpus.Document) ([]Result, error) {
	if len(docs) == 0 {
		return []Result{}, nil
	}
	texts := make([]string, len(docs)+1)
	for i, d := range docs {
		texts[i] = d.Content
	}
	texts[len(docs)] = queryText

	space, err := r.buildSpace(texts)
	if err != nil {
		return nil, err
	}
	query := space.vectors[len(docs)]
	if len(query.weights) == 0 {
		return nil, apperrors.ErrNoSignal
	}

	// Only the query's terms contribute to the dot product, so each document
	// is projected onto them; its norm still covers every term it has.
	qTerms := make([]int, 0, len(query.weights))
	for t := range query.weights {
		qTerms = append(qTerms, t)
	}
	sort.Ints(qTerms)
	qVec := make([]float64, len(qTerms))
	for i, t := range qTerms {
		qVec[i] = query.weights[t]
	}

	scores := make([]float64, len(docs))
	var g errgroup.Group
	g.SetLimit(r.workers)
	for i := range docs {
		g.Go(func() error {
			v := space.vectors[i]
			if v.norm == 0 {
				return nil
			}
			dVec := make([]float64, len(qTerms))
			for j, t := range qTerms {
				dVec[j] = v.weights[t]
			}
			scores[i] = math.Min(1, floats.Dot(qVec, dVec)/(query.norm*v.norm))
			return nil
		})
	}
	_ = g.Wait()

	queryLemmas := r.norm.Normalize(queryText)
	results := make([]Result, 0)
	for i, doc := range docs {
		if scores[i] <= r.threshold {
			continue
		}
		results = append(results, Result{
			Document: doc,
			Score:    scores[i],
			Matches:  queryLemmas.Intersect(doc.Lemmas),
		})
	}
	sortResults(results)
	return results, nil
}

// RankBySimilarity ranks docs with a SimilarityRanker using the default
// threshold and max-df.
func RankBySimilarity(norm *normalizer.Normalizer, queryText string, docs []*corpus.Document) ([]Result, error) {
	return NewSimilarityRanker(norm).Rank(queryText, docs)
}

// sparseVector holds tf-idf weights keyed by term index.
type sparseVector struct {
	weights map[int]float64
	norm    float64
}

type vectorSpace struct {
	terms      []string
	vocabulary map[string]int
	idf        []float64
	vectors    []sparseVector
}

func (r *SimilarityRanker) buildSpace(texts []string) (*vectorSpace, error) {
	counts := make([]map[string]int, len(texts))
	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, text := range texts {
		g.Go(func() error {
			counts[i] = r.termCounts(text)
			return nil
		})
	}
	_ = g.Wait()

	df := make(map[string]int)
	for _, c := range counts {
		for term := range c {
			df[term]++
		}
	}
	if len(df) == 0 {
		return nil, apperrors.ErrNoSignal
	}

	n := len(texts)
	maxCount := r.maxDF * float64(n)
	terms := make([]string, 0, len(df))
	for term, f := range df {
		if float64(f) <= maxCount {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return nil, apperrors.ErrNoSignal
	}
	sort.Strings(terms)

	space := &vectorSpace{
		terms:      terms,
		vocabulary: make(map[string]int, len(terms)),
		idf:        make([]float64, len(terms)),
		vectors:    make([]sparseVector, n),
	}
	for i, term := range terms {
		space.vocabulary[term] = i
		space.idf[i] = math.Log(float64(1+n)/float64(1+df[term])) + 1
	}

	var vg errgroup.Group
	vg.SetLimit(r.workers)
	for i, c := range counts {
		vg.Go(func() error {
			space.vectors[i] = space.vectorize(c)
			return nil
		})
	}
	_ = vg.Wait()
	return space, nil
}

func (s *vectorSpace) vectorize(counts map[string]int) sparseVector {
	idxs := make([]int, 0, len(counts))
	for term := range counts {
		if idx, ok := s.vocabulary[term]; ok {
			idxs = append(idxs, idx)
		}
	}
	// fixed summation order keeps norms bit-identical across runs
	sort.Ints(idxs)
	v := sparseVector{weights: make(map[int]float64, len(idxs))}
	raw := make([]float64, len(idxs))
	for i, idx := range idxs {
		w := float64(counts[s.terms[idx]]) * s.idf[idx]
		v.weights[idx] = w
		raw[i] = w
	}
	v.norm = floats.Norm(raw, 2)
	return v
}

// termCounts tokenises like a default scikit-learn vectoriser: lowercase,
// runs of two or more letters, digits or underscores.
func (r *SimilarityRanker) termCounts(text string) map[string]int {
	words := strings.FieldsFunc(strings.ToLower(text), func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '_'
	})
	counts := make(map[string]int, len(words)/2)
	for _, w := range words {
		if utf8.RuneCountInString(w) < 2 {
			continue
		}
		if _, isStop := r.stop[w]; isStop {
			continue
		}
		counts[w]++
	}
	return counts
}
