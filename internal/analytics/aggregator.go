package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/kafka"
)

// latencyWindow bounds the samples kept for percentiles.
const latencyWindow = 10000

type Stats struct {
	TotalRecommendations int64            `json:"total_recommendations"`
	ByMode               map[string]int64 `json:"by_mode"`
	ByStatus             map[string]int64 `json:"by_status"`
	CacheHits            int64            `json:"cache_hits"`
	CacheMisses          int64            `json:"cache_misses"`
	AvgLatencyMs         float64          `json:"avg_latency_ms"`
	P50LatencyMs         int64            `json:"p50_latency_ms"`
	P95LatencyMs         int64            `json:"p95_latency_ms"`
	P99LatencyMs         int64            `json:"p99_latency_ms"`
	TopQueries           []QueryCount     `json:"top_queries"`
	NoMatchQueries       []QueryCount     `json:"no_match_queries"`
	PerMinute            float64          `json:"per_minute"`
	Since                time.Time        `json:"since"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds events into running statistics. It is a Sink, so a
// Collector can feed it directly, and it can consume the Kafka topic.
type Aggregator struct {
	mu             sync.Mutex
	total          int64
	byMode         map[string]int64
	byStatus       map[string]int64
	cacheHits      int64
	cacheMisses    int64
	latencies      []int64
	next           int
	queryCounts    map[string]int64
	noMatchQueries map[string]int64
	startTime      time.Time
	logger         *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		byMode:         make(map[string]int64),
		byStatus:       make(map[string]int64),
		latencies:      make([]int64, 0, 1024),
		queryCounts:    make(map[string]int64),
		noMatchQueries: make(map[string]int64),
		startTime:      time.Now(),
		logger:         slog.Default().With("component", "analytics-aggregator"),
	}
}

func (a *Aggregator) Publish(_ context.Context, events ...RecommendEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range events {
		a.record(e)
	}
	return nil
}

// HandleMessage is a kafka.MessageHandler. Undecodable messages are logged
// and acknowledged so they do not block the partition.
func (a *Aggregator) HandleMessage(ctx context.Context, _, value []byte) error {
	event, err := kafka.DecodeJSON[RecommendEvent](value)
	if err != nil {
		a.logger.Warn("skipping undecodable analytics event", "error", err)
		return nil
	}
	return a.Publish(ctx, event)
}

func (a *Aggregator) record(e RecommendEvent) {
	a.total++
	a.byMode[e.Mode]++
	a.byStatus[e.Status]++
	if e.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	if len(a.latencies) < latencyWindow {
		a.latencies = append(a.latencies, e.LatencyMs)
	} else {
		a.latencies[a.next] = e.LatencyMs
		a.next = (a.next + 1) % latencyWindow
	}
	if e.Query != "" {
		a.queryCounts[e.Query]++
		if e.Status == "no_matches" || e.Status == "no_signal" {
			a.noMatchQueries[e.Query]++
		}
	}
}

func (a *Aggregator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := Stats{
		TotalRecommendations: a.total,
		ByMode:               copyCounts(a.byMode),
		ByStatus:             copyCounts(a.byStatus),
		CacheHits:            a.cacheHits,
		CacheMisses:          a.cacheMisses,
		TopQueries:           topN(a.queryCounts, 10),
		NoMatchQueries:       topN(a.noMatchQueries, 10),
		Since:                a.startTime.UTC(),
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.PerMinute = float64(a.total) / elapsed
	}
	return stats
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n most frequent queries, ties broken alphabetically.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
