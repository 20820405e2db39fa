// Package cache holds the process-scoped corpus snapshot.
//
// The corpus is loaded on first use and reused until it is invalidated.
// Invalidation happens explicitly (Invalidate), when the fingerprint of the
// corpus root changes (checked at most once per check interval), or when a
// filesystem watcher started with Watch reports a change.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/corpus"
)

const absentFingerprint = "absent"

// Source loads a corpus. *corpus.Loader satisfies it.
type Source interface {
	LoadWithStats(root string) ([]*corpus.Document, corpus.LoadStats, error)
}

// Snapshot is an immutable loaded corpus.
type Snapshot struct {
	Documents []*corpus.Document
	Version   string
	LoadedAt  time.Time
	Stats     corpus.LoadStats
}

// ReloadHook observes every reload attempt.
type ReloadHook func(snap *Snapshot, err error)

// Option configures a Cache.
type Option func(*Cache)

// WithCheckInterval bounds how often Get re-fingerprints the root. Zero
// checks on every Get.
func WithCheckInterval(d time.Duration) Option {
	return func(c *Cache) { c.checkInterval = d }
}

// WithReloadHook registers a hook called after each reload.
func WithReloadHook(h ReloadHook) Option {
	return func(c *Cache) { c.onReload = h }
}

// Cache is safe for concurrent use.
type Cache struct {
	root          string
	source        Source
	checkInterval time.Duration
	onReload      ReloadHook

	group     singleflight.Group
	mu        sync.RWMutex
	snap      *Snapshot
	lastCheck time.Time
	stale     atomic.Bool
	reloads   atomic.Int64
	logger    *slog.Logger
}

// New creates an empty Cache for root.
func New(root string, source Source, opts ...Option) *Cache {
	c := &Cache{
		root:   root,
		source: source,
		logger: slog.Default().With("component", "corpus-cache", "root", root),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root returns the corpus root directory.
func (c *Cache) Root() string { return c.root }

// Get returns the current snapshot, loading or reloading it when needed.
// Concurrent callers share a single reload.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	if snap, ok := c.current(); ok {
		return snap, nil
	}
	ch := c.group.DoChan("load", func() (any, error) {
		if snap, ok := c.current(); ok {
			return snap, nil
		}
		return c.reload()
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate marks the snapshot stale; the next Get reloads.
func (c *Cache) Invalidate() {
	c.stale.Store(true)
	c.logger.Debug("corpus invalidated")
}

// Reloads returns the number of completed reloads.
func (c *Cache) Reloads() int64 { return c.reloads.Load() }

// Loaded reports whether a snapshot is held, without triggering a load.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap != nil
}

func (c *Cache) current() (*Snapshot, bool) {
	if c.stale.Load() {
		return nil, false
	}
	c.mu.RLock()
	snap, lastCheck := c.snap, c.lastCheck
	c.mu.RUnlock()
	if snap == nil {
		return nil, false
	}
	if c.checkInterval > 0 && time.Since(lastCheck) < c.checkInterval {
		return snap, true
	}
	fp, err := Fingerprint(c.root)
	if err != nil {
		c.logger.Warn("fingerprinting corpus failed", "error", err)
		return snap, true
	}
	if fp != snap.Version {
		c.logger.Info("corpus changed on disk", "old_version", snap.Version, "new_version", fp)
		return nil, false
	}
	c.mu.Lock()
	c.lastCheck = time.Now()
	c.mu.Unlock()
	return snap, true
}

func (c *Cache) reload() (*Snapshot, error) {
	c.stale.Store(false)
	start := time.Now()
	fp, err := Fingerprint(c.root)
	if err != nil {
		fp = absentFingerprint
	}
	docs, stats, err := c.source.LoadWithStats(c.root)
	if err != nil {
		err = fmt.Errorf("loading corpus: %w", err)
		c.logger.Error("corpus reload failed", "error", err)
		if c.onReload != nil {
			c.onReload(nil, err)
		}
		return nil, err
	}
	// The loader may have created the root, which changes the fingerprint.
	if fp == absentFingerprint {
		if after, ferr := Fingerprint(c.root); ferr == nil {
			fp = after
		}
	}
	snap := &Snapshot{
		Documents: docs,
		Version:   fp,
		LoadedAt:  time.Now(),
		Stats:     stats,
	}
	c.mu.Lock()
	c.snap = snap
	c.lastCheck = snap.LoadedAt
	c.mu.Unlock()
	c.reloads.Add(1)

	c.logger.Info("corpus snapshot ready",
		"documents", len(docs),
		"skipped", stats.Skipped,
		"version", fp,
		"duration", time.Since(start),
	)
	if c.onReload != nil {
		c.onReload(snap, nil)
	}
	return snap, nil
}

// Fingerprint hashes the root's modification time and the relative path,
// size and modification time of every directory and passage file below it.
func Fingerprint(root string) (string, error) {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return absentFingerprint, nil
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", root, err)
	}
	h := sha256.New()
	h.Write([]byte(strconv.FormatInt(info.ModTime().UnixNano(), 10)))
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && !corpus.IsPassageFile(d.Name()) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		fmt.Fprintf(h, "\x00%s\x00%d\x00%d", filepath.ToSlash(rel), fi.Size(), fi.ModTime().UnixNano())
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walking %s: %w", root, err)
	}
	return hex.EncodeToString(h.Sum(nil)[:16]), nil
}
