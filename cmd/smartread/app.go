package main

import (
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/analysis/normalizer"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/corpus/cache"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/recommender/executor"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/recommender/ranker"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/metrics"
)

// core is the part of the service shared by serve and the one-shot
// commands.
type core struct {
	norm        *normalizer.Normalizer
	corpus      *cache.Cache
	recommender *executor.Recommender
}

// buildCore wires normaliser, corpus cache and recommender. m may be nil.
func buildCore(cfg *config.Config, m *metrics.Metrics, recOpts ...executor.Option) (*core, error) {
	norm, err := normalizer.Default()
	if err != nil {
		return nil, err
	}
	loader := corpus.NewLoader(norm, cfg.Corpus.Workers)
	cacheOpts := []cache.Option{cache.WithCheckInterval(cfg.Corpus.CheckInterval)}
	if m != nil {
		cacheOpts = append(cacheOpts, cache.WithReloadHook(func(snap *cache.Snapshot, err error) {
			if err != nil {
				return
			}
			m.CorpusReloadsTotal.Inc()
			m.CorpusDocuments.Set(float64(len(snap.Documents)))
			m.CorpusSkippedFiles.Set(float64(snap.Stats.Skipped))
		}))
		recOpts = append(recOpts, executor.WithMetrics(m))
	}
	corpusCache := cache.New(cfg.Corpus.Root, loader, cacheOpts...)

	similarity := ranker.NewSimilarityRanker(norm,
		ranker.WithThreshold(cfg.Recommend.SimilarityThreshold),
		ranker.WithMaxDF(cfg.Recommend.MaxDF),
		ranker.WithWorkers(cfg.Corpus.Workers),
	)
	rec := executor.New(corpusCache, norm, similarity, executor.Config{
		DefaultLimit: cfg.Recommend.DefaultLimit,
		MaxLimit:     cfg.Recommend.MaxLimit,
		RankTimeout:  cfg.Server.RequestTimeout,
	}, recOpts...)

	return &core{norm: norm, corpus: corpusCache, recommender: rec}, nil
}
