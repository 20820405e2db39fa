// Package cache memoises recommendations in Redis. Keys include the corpus
// version, so a reloaded corpus never serves stale rankings even before the
// old keys expire.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/recommender/executor"
	pkgredis "github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/redis"
)

const keyPrefix = "recommend:"

// Store is the subset of the Redis client the cache uses. Get must return an
// error satisfying pkgredis.IsNilError for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type ResultCache struct {
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func New(store Store, ttl time.Duration) *ResultCache {
	return &ResultCache{
		store:  store,
		ttl:    ttl,
		logger: slog.Default().With("component", "result-cache"),
	}
}

// Get looks up a cached recommendation. Store failures count as misses.
func (c *ResultCache) Get(ctx context.Context, req executor.Request, version string) (*executor.Recommendation, bool) {
	key := BuildKey(req, version)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var rec executor.Recommendation
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "mode", req.Mode, "key", key)
	return &rec, true
}

func (c *ResultCache) Set(ctx context.Context, req executor.Request, version string, rec *executor.Recommendation) {
	key := BuildKey(req, version)
	data, err := json.Marshal(rec)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached recommendation or computes and stores it.
// Concurrent misses for the same key share one computation. That computation
// runs detached from any single caller's cancellation; a caller whose ctx
// ends stops waiting without failing the others.
func (c *ResultCache) GetOrCompute(
	ctx context.Context,
	req executor.Request,
	version string,
	compute func(ctx context.Context) (*executor.Recommendation, error),
) (*executor.Recommendation, bool, error) {
	if rec, ok := c.Get(ctx, req, version); ok {
		return rec, true, nil
	}
	key := BuildKey(req, version)
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		rec, err := compute(shared)
		if err != nil {
			return nil, err
		}
		c.Set(shared, req, version, rec)
		return rec, nil
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*executor.Recommendation), false, nil
	}
}

// Invalidate drops every cached recommendation.
func (c *ResultCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating result cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// keyFields is hashed into the cache key. Field order is fixed by the struct.
type keyFields struct {
	Version    string   `json:"v"`
	Mode       string   `json:"m"`
	Query      string   `json:"q"`
	Vocabulary []string `json:"w"`
	YearFrom   int      `json:"yf"`
	YearTo     int      `json:"yt"`
	Categories []string `json:"c"`
	Limit      int      `json:"l"`
}

// BuildKey derives the Redis key for req against one corpus version. Query
// case and spacing, and category order, do not affect the key.
func BuildKey(req executor.Request, version string) string {
	cats := slices.Clone(req.Filter.Categories)
	slices.Sort(cats)
	raw, _ := json.Marshal(keyFields{
		Version:    version,
		Mode:       string(req.Mode),
		Query:      strings.Join(strings.Fields(strings.ToLower(req.Query)), " "),
		Vocabulary: req.Vocabulary,
		YearFrom:   req.Filter.YearFrom,
		YearTo:     req.Filter.YearTo,
		Categories: cats,
		Limit:      req.Limit,
	})
	hash := sha256.Sum256(raw)
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
