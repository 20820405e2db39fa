// Package executor runs a recommendation request end to end: it fetches the
// corpus snapshot, applies the caller's filter, ranks with the requested
// ranker and truncates the result.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/analysis/normalizer"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/corpus/cache"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/recommender/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/resilience"
)

type Mode string

const (
	ModeMatch    Mode = "match"
	ModeSimilar  Mode = "similar"
	ModeCoverage Mode = "coverage"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeMatch, ModeSimilar, ModeCoverage:
		return m, nil
	default:
		return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown mode %q", s)
	}
}

// Status describes a successful but possibly empty recommendation.
type Status string

const (
	StatusOK        Status = "ok"
	StatusNoMatches Status = "no_matches"
	StatusNoSignal  Status = "no_signal"
)

const previewRunes = 240

type Request struct {
	Mode       Mode          `json:"mode"`
	Query      string        `json:"query,omitempty"`
	Vocabulary []string      `json:"vocabulary,omitempty"`
	Filter     corpus.Filter `json:"filter"`
	Limit      int           `json:"limit"`
}

// Passage is one ranked document as returned to callers.
type Passage struct {
	Title    string   `json:"title"`
	Path     string   `json:"path"`
	Year     int      `json:"year"`
	Category string   `json:"category"`
	Score    float64  `json:"score"`
	Coverage float64  `json:"coverage,omitempty"`
	Matches  []string `json:"matches"`
	Preview  string   `json:"preview"`
}

type Recommendation struct {
	Mode          Mode      `json:"mode"`
	Query         string    `json:"query,omitempty"`
	QueryTerms    []string  `json:"query_terms"`
	Status        Status    `json:"status"`
	Candidates    int       `json:"candidates"`
	TotalMatches  int       `json:"total_matches"`
	Results       []Passage `json:"results"`
	CorpusVersion string    `json:"corpus_version"`
}

// CorpusSource supplies the current corpus snapshot. *cache.Cache satisfies
// it.
type CorpusSource interface {
	Get(ctx context.Context) (*cache.Snapshot, error)
}

// ResultCache memoises recommendations per request and corpus version.
type ResultCache interface {
	GetOrCompute(ctx context.Context, req Request, version string, compute func(context.Context) (*Recommendation, error)) (*Recommendation, bool, error)
}

type Config struct {
	DefaultLimit int
	MaxLimit     int
	// RankTimeout bounds TF-IDF ranking, which cannot be cancelled.
	RankTimeout time.Duration
}

type Option func(*Recommender)

func WithResultCache(c ResultCache) Option {
	return func(r *Recommender) { r.cache = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recommender) { r.metrics = m }
}

type Recommender struct {
	corpus     CorpusSource
	norm       *normalizer.Normalizer
	similarity *ranker.SimilarityRanker
	cache      ResultCache
	metrics    *metrics.Metrics
	cfg        Config
	logger     *slog.Logger
}

func New(src CorpusSource, norm *normalizer.Normalizer, similarity *ranker.SimilarityRanker, cfg Config, opts ...Option) *Recommender {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = cfg.DefaultLimit
	}
	r := &Recommender{
		corpus:     src,
		norm:       norm,
		similarity: similarity,
		cfg:        cfg,
		logger:     slog.Default().With("component", "recommender"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recommend ranks the filtered corpus for req. The boolean reports a result
// cache hit. Empty outcomes that are not caller mistakes come back as a
// Recommendation with StatusNoMatches or StatusNoSignal; an empty or fully
// filtered corpus is apperrors.ErrNoData and a query without content is
// apperrors.ErrInvalidQuery.
func (r *Recommender) Recommend(ctx context.Context, req Request) (*Recommendation, bool, error) {
	start := time.Now()
	rec, hit, err := r.recommend(ctx, req)
	r.observe(req.Mode, rec, hit, err, time.Since(start))
	return rec, hit, err
}

func (r *Recommender) recommend(ctx context.Context, req Request) (*Recommendation, bool, error) {
	req, err := r.prepare(req)
	if err != nil {
		return nil, false, err
	}
	var lemmas normalizer.LemmaSet
	switch req.Mode {
	case ModeMatch, ModeSimilar:
		if strings.TrimSpace(req.Query) == "" {
			return nil, false, apperrors.New(apperrors.ErrInvalidQuery, http.StatusBadRequest, "query is empty")
		}
		lemmas = r.norm.Normalize(req.Query)
		if req.Mode == ModeMatch && lemmas.Len() == 0 {
			return nil, false, apperrors.New(apperrors.ErrInvalidQuery, http.StatusBadRequest, "query contains no content words")
		}
	case ModeCoverage:
		if len(req.Vocabulary) == 0 {
			return nil, false, apperrors.New(apperrors.ErrInvalidQuery, http.StatusBadRequest, "vocabulary is empty")
		}
	}

	snap, err := r.corpus.Get(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("loading corpus: %w", err)
	}
	if len(snap.Documents) == 0 {
		return nil, false, apperrors.New(apperrors.ErrNoData, http.StatusNotFound, "corpus is empty")
	}
	candidates := req.Filter.Apply(snap.Documents)
	if len(candidates) == 0 {
		return nil, false, apperrors.New(apperrors.ErrNoData, http.StatusNotFound, "no passages match the filter")
	}

	compute := func(ctx context.Context) (*Recommendation, error) {
		return r.rank(ctx, req, lemmas, candidates, snap.Version)
	}
	if r.cache == nil {
		rec, err := compute(ctx)
		return rec, false, err
	}
	return r.cache.GetOrCompute(ctx, req, snap.Version, compute)
}

// prepare validates the mode and canonicalises limit and vocabulary so
// equivalent requests share a cache entry.
func (r *Recommender) prepare(req Request) (Request, error) {
	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return req, err
	}
	req.Mode = mode
	switch {
	case req.Limit <= 0:
		req.Limit = r.cfg.DefaultLimit
	case req.Limit > r.cfg.MaxLimit:
		req.Limit = r.cfg.MaxLimit
	}
	if req.Filter.YearFrom > 0 && req.Filter.YearTo > 0 && req.Filter.YearFrom > req.Filter.YearTo {
		return req, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"year_from %d is after year_to %d", req.Filter.YearFrom, req.Filter.YearTo)
	}
	if mode == ModeCoverage {
		req.Vocabulary = canonicalVocabulary(req.Vocabulary)
		req.Query = ""
	} else {
		req.Vocabulary = nil
	}
	return req, nil
}

func (r *Recommender) rank(ctx context.Context, req Request, lemmas normalizer.LemmaSet, candidates []*corpus.Document, version string) (*Recommendation, error) {
	rec := &Recommendation{
		Mode:          req.Mode,
		Query:         req.Query,
		Status:        StatusOK,
		Candidates:    len(candidates),
		CorpusVersion: version,
	}
	var results []ranker.Result
	switch req.Mode {
	case ModeMatch:
		rec.QueryTerms = lemmas.Sorted()
		results = ranker.RankByIntersection(lemmas, candidates)
	case ModeSimilar:
		rec.QueryTerms = lemmas.Sorted()
		var err error
		results, err = resilience.WithTimeout(ctx, r.cfg.RankTimeout, "tfidf-rank",
			func(context.Context) ([]ranker.Result, error) {
				return r.similarity.Rank(req.Query, candidates)
			})
		switch {
		case errors.Is(err, apperrors.ErrNoSignal):
			rec.Status = StatusNoSignal
			results = nil
		case errors.Is(err, resilience.ErrTimeout):
			return nil, apperrors.New(apperrors.ErrTimeout, http.StatusServiceUnavailable, "similarity ranking timed out")
		case err != nil:
			return nil, fmt.Errorf("ranking by similarity: %w", err)
		}
	case ModeCoverage:
		rec.QueryTerms = req.Vocabulary
		results = ranker.RankByCoverage(req.Vocabulary, candidates)
	}

	rec.TotalMatches = len(results)
	if rec.TotalMatches == 0 && rec.Status == StatusOK {
		rec.Status = StatusNoMatches
	}
	top := ranker.Top(results, req.Limit)
	rec.Results = make([]Passage, len(top))
	for i, res := range top {
		rec.Results[i] = toPassage(res)
	}
	r.logger.Debug("recommendation ranked",
		"mode", req.Mode,
		"candidates", len(candidates),
		"matches", rec.TotalMatches,
		"status", rec.Status,
	)
	return rec, nil
}

func toPassage(res ranker.Result) Passage {
	d := res.Document
	return Passage{
		Title:    d.Title,
		Path:     d.Path,
		Year:     d.Year,
		Category: d.Category,
		Score:    res.Score,
		Coverage: res.Coverage,
		Matches:  res.Matches,
		Preview:  preview(d.Content),
	}
}

func preview(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(content) <= previewRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewRunes]) + "..."
}

func canonicalVocabulary(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

func (r *Recommender) observe(mode Mode, rec *Recommendation, hit bool, err error, elapsed time.Duration) {
	if r.metrics == nil {
		return
	}
	outcome := "error"
	switch {
	case err == nil:
		outcome = string(rec.Status)
		r.metrics.RecommendResults.WithLabelValues(string(mode)).Observe(float64(len(rec.Results)))
	case errors.Is(err, apperrors.ErrNoData):
		outcome = "no_data"
	case errors.Is(err, apperrors.ErrInvalidQuery), errors.Is(err, apperrors.ErrInvalidInput):
		outcome = "invalid"
	}
	cacheStatus := "miss"
	switch {
	case r.cache == nil:
		cacheStatus = "none"
	case hit:
		cacheStatus = "hit"
		r.metrics.CacheHitsTotal.Inc()
	default:
		r.metrics.CacheMissesTotal.Inc()
	}
	r.metrics.RecommendationsTotal.WithLabelValues(string(mode), outcome).Inc()
	r.metrics.RecommendLatency.WithLabelValues(string(mode), cacheStatus).Observe(elapsed.Seconds())
}

// CorpusOverview describes the loaded corpus.
type CorpusOverview struct {
	corpus.Overview
	Version  string    `json:"version"`
	LoadedAt time.Time `json:"loaded_at"`
	Skipped  int       `json:"skipped_files"`
}

// Overview summarises the current corpus snapshot. An empty corpus is not an
// error here; it reports zero documents and the default year range.
func (r *Recommender) Overview(ctx context.Context) (*CorpusOverview, error) {
	snap, err := r.corpus.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	return &CorpusOverview{
		Overview: corpus.Summarize(snap.Documents),
		Version:  snap.Version,
		LoadedAt: snap.LoadedAt,
		Skipped:  snap.Stats.Skipped,
	}, nil
}

// Document returns the passage stored at path, relative to the corpus root.
func (r *Recommender) Document(ctx context.Context, path string) (*corpus.Document, error) {
	snap, err := r.corpus.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	for _, d := range snap.Documents {
		if d.Path == path {
			return d, nil
		}
	}
	return nil, apperrors.Newf(apperrors.ErrNoData, http.StatusNotFound, "passage %q not found", path)
}
