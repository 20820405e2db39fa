package translate

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/SmartRead/pkg/redis"
)

const keyPrefix = "translate:"

// RemoteCache is the Redis subset used as a second-level cache.
type RemoteCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Cached fronts a Translator with an in-process LRU and, optionally, Redis.
// Only successful translations are cached.
type Cached struct {
	next    Translator
	local   *lru.Cache[string, string]
	remote  RemoteCache
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type CachedOption func(*Cached)

func WithRemoteCache(rc RemoteCache, ttl time.Duration) CachedOption {
	return func(c *Cached) {
		c.remote = rc
		c.ttl = ttl
	}
}

func WithMetrics(m *metrics.Metrics) CachedOption {
	return func(c *Cached) { c.metrics = m }
}

func NewCached(next Translator, size int, opts ...CachedOption) (*Cached, error) {
	if size <= 0 {
		size = 256
	}
	local, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("creating translation lru: %w", err)
	}
	c := &Cached{
		next:   next,
		local:  local,
		logger: slog.Default().With("component", "translation-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Cached) Translate(ctx context.Context, text, source, target string) (string, error) {
	key := cacheKey(text, source, target)
	if out, ok := c.local.Get(key); ok {
		c.count("lru", "ok")
		return out, nil
	}
	if c.remote != nil {
		out, err := c.remote.Get(ctx, key)
		switch {
		case err == nil:
			c.local.Add(key, out)
			c.count("redis", "ok")
			return out, nil
		case !pkgredis.IsNilError(err):
			c.logger.Warn("remote translation cache get failed", "error", err)
		}
	}

	out, err := c.next.Translate(ctx, text, source, target)
	if err != nil {
		c.count("remote", "error")
		return "", err
	}
	c.count("remote", "ok")
	c.local.Add(key, out)
	if c.remote != nil {
		if err := c.remote.Set(ctx, key, out, c.ttl); err != nil {
			c.logger.Warn("remote translation cache set failed", "error", err)
		}
	}
	return out, nil
}

func (c *Cached) count(source, outcome string) {
	if c.metrics != nil {
		c.metrics.TranslationsTotal.WithLabelValues(source, outcome).Inc()
	}
}

func cacheKey(text, source, target string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00", source, target)
	h.Write([]byte(text))
	return fmt.Sprintf("%s%x", keyPrefix, h.Sum(nil)[:16])
}
