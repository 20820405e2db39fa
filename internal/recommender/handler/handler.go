// Package handler exposes the recommender over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/analysis/normalizer"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/analysis/vocab"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/recommender/executor"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/translate"
	apperrors "github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/middleware"
)

const maxBodyBytes = 1 << 20

type Recommender interface {
	Recommend(ctx context.Context, req executor.Request) (*executor.Recommendation, bool, error)
	Overview(ctx context.Context) (*executor.CorpusOverview, error)
	Document(ctx context.Context, path string) (*corpus.Document, error)
}

// CorpusInvalidator forces the next corpus read to reload. *cache.Cache
// from internal/corpus/cache satisfies it.
type CorpusInvalidator interface {
	Invalidate()
}

// CacheAdmin is the administrative surface of the result cache.
type CacheAdmin interface {
	Invalidate(ctx context.Context) (int64, error)
	Stats() (hits, misses int64)
}

// Tracker receives one event per answered recommendation.
type Tracker interface {
	Track(event analytics.RecommendEvent)
}

type Config struct {
	SourceLang string
	TargetLang string
}

type Handler struct {
	recommender Recommender
	corpus      CorpusInvalidator
	norm        *normalizer.Normalizer
	translator  translate.Translator
	cache       CacheAdmin
	tracker     Tracker
	cfg         Config
	logger      *slog.Logger
}

type Option func(*Handler)

func WithTranslator(t translate.Translator) Option {
	return func(h *Handler) { h.translator = t }
}

func WithCacheAdmin(c CacheAdmin) Option {
	return func(h *Handler) { h.cache = c }
}

func WithTracker(t Tracker) Option {
	return func(h *Handler) { h.tracker = t }
}

func New(rec Recommender, corpusCache CorpusInvalidator, norm *normalizer.Normalizer, cfg Config, opts ...Option) *Handler {
	if cfg.SourceLang == "" {
		cfg.SourceLang = "en"
	}
	if cfg.TargetLang == "" {
		cfg.TargetLang = "zh"
	}
	h := &Handler{
		recommender: rec,
		corpus:      corpusCache,
		norm:        norm,
		translator:  translate.Disabled{},
		cfg:         cfg,
		logger:      slog.Default().With("component", "recommend-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/recommend/{mode}", h.Recommend)
	mux.HandleFunc("POST /api/v1/vocabulary/parse", h.ParseVocabulary)
	mux.HandleFunc("POST /api/v1/normalize", h.Normalize)
	mux.HandleFunc("GET /api/v1/corpus", h.Corpus)
	mux.HandleFunc("POST /api/v1/corpus/reload", h.ReloadCorpus)
	mux.HandleFunc("GET /api/v1/passages", h.Passage)
	mux.HandleFunc("POST /api/v1/translate", h.Translate)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.InvalidateCache)
}

type recommendBody struct {
	Query          string   `json:"query"`
	Vocabulary     []string `json:"vocabulary"`
	VocabularyText string   `json:"vocabulary_text"`
	YearFrom       int      `json:"year_from"`
	YearTo         int      `json:"year_to"`
	Categories     []string `json:"categories"`
	Limit          int      `json:"limit"`
}

// Recommend serves all three ranking modes. Empty outcomes that are not
// caller errors (no matches, no signal) are 200 with a status field.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	mode, err := executor.ParseMode(r.PathValue("mode"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	var body recommendBody
	if err := decode(w, r, &body); err != nil {
		h.writeError(w, err)
		return
	}
	vocabulary := body.Vocabulary
	if body.VocabularyText != "" {
		vocabulary = append(vocabulary, vocab.Parse(body.VocabularyText)...)
	}
	req := executor.Request{
		Mode:       mode,
		Query:      body.Query,
		Vocabulary: vocabulary,
		Filter: corpus.Filter{
			YearFrom:   body.YearFrom,
			YearTo:     body.YearTo,
			Categories: body.Categories,
		},
		Limit: body.Limit,
	}

	rec, hit, err := h.recommender.Recommend(ctx, req)
	latency := time.Since(start)
	if err != nil {
		if apperrors.IsEmptyOutcome(err) {
			log.Info("recommendation rejected", "mode", mode, "reason", err)
		} else {
			log.Error("recommendation failed", "mode", mode, "error", err)
		}
		h.writeError(w, err)
		return
	}

	log.Info("recommendation completed",
		"mode", mode,
		"status", rec.Status,
		"candidates", rec.Candidates,
		"matches", rec.TotalMatches,
		"returned", len(rec.Results),
		"cache_hit", hit,
		"latency_ms", latency.Milliseconds(),
	)
	if h.tracker != nil {
		query := rec.Query
		if mode == executor.ModeCoverage {
			query = strings.Join(rec.QueryTerms, ", ")
		}
		h.tracker.Track(analytics.RecommendEvent{
			Mode:       string(mode),
			Query:      strings.ToLower(strings.TrimSpace(query)),
			Status:     string(rec.Status),
			Candidates: rec.Candidates,
			Matches:    rec.TotalMatches,
			Returned:   len(rec.Results),
			LatencyMs:  latency.Milliseconds(),
			CacheHit:   hit,
			Timestamp:  time.Now().UTC(),
			RequestID:  middleware.GetRequestID(ctx),
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"recommendation": rec,
		"cache_hit":      hit,
		"latency_ms":     latency.Milliseconds(),
	})
}

type textBody struct {
	Text string `json:"text"`
}

func (h *Handler) ParseVocabulary(w http.ResponseWriter, r *http.Request) {
	var body textBody
	if err := decode(w, r, &body); err != nil {
		h.writeError(w, err)
		return
	}
	words := vocab.Parse(body.Text)
	if words == nil {
		words = []string{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"words": words, "count": len(words)})
}

func (h *Handler) Normalize(w http.ResponseWriter, r *http.Request) {
	var body textBody
	if err := decode(w, r, &body); err != nil {
		h.writeError(w, err)
		return
	}
	lemmas := h.norm.Normalize(body.Text).Sorted()
	if lemmas == nil {
		lemmas = []string{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"lemmas": lemmas})
}

func (h *Handler) Corpus(w http.ResponseWriter, r *http.Request) {
	ov, err := h.recommender.Overview(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("corpus overview failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ov)
}

func (h *Handler) ReloadCorpus(w http.ResponseWriter, r *http.Request) {
	h.corpus.Invalidate()
	ov, err := h.recommender.Overview(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("corpus reload failed", "error", err)
		h.writeError(w, err)
		return
	}
	logger.FromContext(r.Context()).Info("corpus reloaded", "documents", ov.Total, "version", ov.Version)
	h.writeJSON(w, http.StatusOK, ov)
}

func (h *Handler) Passage(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'path' is required"))
		return
	}
	doc, err := h.recommender.Document(r.Context(), path)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

type translateBody struct {
	Text   string `json:"text"`
	Path   string `json:"path"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Translate renders either raw text or a stored passage, addressed by
// path, in the target language.
func (h *Handler) Translate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body translateBody
	if err := decode(w, r, &body); err != nil {
		h.writeError(w, err)
		return
	}
	text := body.Text
	if body.Path != "" {
		doc, err := h.recommender.Document(ctx, body.Path)
		if err != nil {
			h.writeError(w, err)
			return
		}
		text = doc.Content
	}
	if strings.TrimSpace(text) == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "text or path is required"))
		return
	}
	source, target := body.Source, body.Target
	if source == "" {
		source = h.cfg.SourceLang
	}
	if target == "" {
		target = h.cfg.TargetLang
	}

	translated, err := h.translator.Translate(ctx, text, source, target)
	if err != nil {
		logger.FromContext(ctx).Warn("translation failed", "source", source, "target", target, "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"source":      source,
		"target":      target,
		"translation": translated,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}
	hits, misses := h.cache.Stats()
	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"enabled":   true,
		"hits":      hits,
		"misses":    misses,
		"hit_ratio": ratio,
	})
}

func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]any{"enabled": false, "deleted": 0})
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"enabled": true, "deleted": deleted})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return apperrors.New(apperrors.ErrInvalidInput, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			return apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "request body is empty")
		default:
			return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid JSON body: %v", err)
		}
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to a status code. Internal failures get a generic
// message; everything else shows the AppError message.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	msg := "internal server error"
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		msg = appErr.Message
	case status != http.StatusInternalServerError:
		msg = err.Error()
	}
	h.writeJSON(w, status, map[string]string{"error": msg})
}
