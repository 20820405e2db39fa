package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	events := []RecommendEvent{
		{Mode: "match", Query: "volcano", Status: "ok", LatencyMs: 10},
		{Mode: "match", Query: "volcano", Status: "ok", LatencyMs: 20, CacheHit: true},
		{Mode: "similar", Query: "quantum", Status: "no_signal", LatencyMs: 30},
		{Mode: "coverage", Query: "abandon, ability", Status: "no_matches", LatencyMs: 40},
	}
	require.NoError(t, agg.Publish(context.Background(), events...))

	stats := agg.Stats()
	assert.Equal(t, int64(4), stats.TotalRecommendations)
	assert.Equal(t, int64(2), stats.ByMode["match"])
	assert.Equal(t, int64(1), stats.ByStatus["no_signal"])
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(3), stats.CacheMisses)
	assert.InDelta(t, 25.0, stats.AvgLatencyMs, 1e-9)
	assert.Equal(t, int64(30), stats.P50LatencyMs)
	assert.Equal(t, int64(40), stats.P99LatencyMs)
	require.NotEmpty(t, stats.TopQueries)
	assert.Equal(t, QueryCount{Query: "volcano", Count: 2}, stats.TopQueries[0])
	assert.Equal(t, []QueryCount{{"abandon, ability", 1}, {"quantum", 1}}, stats.NoMatchQueries)
}

func TestAggregatorLatencyWindowIsBounded(t *testing.T) {
	agg := NewAggregator()
	for i := range latencyWindow + 10 {
		_ = agg.Publish(context.Background(), RecommendEvent{Mode: "match", LatencyMs: int64(i)})
	}
	assert.Len(t, agg.latencies, latencyWindow)
	assert.Equal(t, int64(latencyWindow+10), agg.Stats().TotalRecommendations)
}

func TestAggregatorHandleMessage(t *testing.T) {
	agg := NewAggregator()
	value, err := json.Marshal(RecommendEvent{Mode: "similar", Status: "ok"})
	require.NoError(t, err)

	require.NoError(t, agg.HandleMessage(context.Background(), []byte("similar"), value))
	require.NoError(t, agg.HandleMessage(context.Background(), nil, []byte("not json")))

	assert.Equal(t, int64(1), agg.Stats().TotalRecommendations)
}

type recordingSink struct {
	mu      sync.Mutex
	events  []RecommendEvent
	ctxErrs []error
	err     error
}

func (s *recordingSink) Publish(ctx context.Context, events ...RecommendEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestCollectorDeliversOnClose(t *testing.T) {
	sink := &recordingSink{}
	c := NewCollector(sink, 16)
	c.Start(context.Background())

	for range 5 {
		c.Track(RecommendEvent{Mode: "match"})
	}
	c.Close()

	assert.Equal(t, 5, sink.count())
}

func TestCollectorFlushesPeriodically(t *testing.T) {
	sink := &recordingSink{}
	c := NewCollector(sink, 16)
	c.Start(context.Background())
	defer c.Close()

	c.Track(RecommendEvent{Mode: "coverage"})

	assert.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestCollectorFlushesAfterParentCancelled(t *testing.T) {
	sink := &recordingSink{}
	c := NewCollector(sink, 16)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	cancel()

	c.Track(RecommendEvent{Mode: "match"})
	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	c.Track(RecommendEvent{Mode: "similar"})
	c.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Len(t, sink.events, 2)
	for _, err := range sink.ctxErrs {
		assert.NoError(t, err)
	}
}

func TestCollectorDropsWhenFull(t *testing.T) {
	c := NewCollector(&recordingSink{}, 2)
	// not started, so nothing drains the buffer
	for range 5 {
		c.Track(RecommendEvent{})
	}
	assert.Equal(t, int64(3), c.Dropped())
}

func TestCollectorSurvivesSinkErrors(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker down")}
	c := NewCollector(sink, 4)
	c.Start(context.Background())
	c.Track(RecommendEvent{})
	c.Close()
	assert.Equal(t, 1, sink.count())
}

type fakeLister struct {
	snaps []Snapshot
	err   error
	limit int
}

func (f *fakeLister) ListSnapshots(_ context.Context, limit int) ([]Snapshot, error) {
	f.limit = limit
	return f.snaps, f.err
}

func TestHandler(t *testing.T) {
	agg := NewAggregator()
	_ = agg.Publish(context.Background(), RecommendEvent{Mode: "match", Query: "volcano", Status: "ok"})
	lister := &fakeLister{snaps: []Snapshot{{Stats: Stats{TotalRecommendations: 7}}}}
	mux := http.NewServeMux()
	NewHandler(agg, lister).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, int64(1), stats.TotalRecommendations)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/snapshots?limit=3", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, lister.limit)
	assert.Contains(t, rec.Body.String(), `"total_recommendations":7`)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/snapshots?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerWithoutPersistence(t *testing.T) {
	mux := http.NewServeMux()
	NewHandler(NewAggregator(), nil).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/snapshots", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
