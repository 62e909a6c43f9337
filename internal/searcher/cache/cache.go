// Package cache memoises ranked query results. QueryCache adds stampede
// control and hit accounting in front of a Backend: an in-process LRU or a
// shared Redis instance.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/ranker"
)

const keyPrefix = "textsearch:query:"

// Entry is what a query resolves to. Documents are not stored; callers
// re-attach them from the live index by id.
type Entry struct {
	TotalHits int                   `json:"total_hits"`
	Results   []ranker.SearchResult `json:"results"`
}

// Backend stores entries by key. Purge drops the keys under scope, or
// every key when scope is empty.
type Backend interface {
	Get(ctx context.Context, key string) (*Entry, bool)
	Set(ctx context.Context, key string, entry *Entry)
	Purge(ctx context.Context, scope string) (int64, error)
	Name() string
}

type Stats struct {
	Backend string  `json:"backend"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

type QueryCache struct {
	backend Backend
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(backend Backend) *QueryCache {
	return &QueryCache{
		backend: backend,
		logger:  slog.Default().With("component", "query-cache", "backend", backend.Name()),
	}
}

// GetOrCompute returns the cached entry for (scope, terms, limit) or runs
// compute once per key across concurrent callers and stores its result. The
// boolean reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	scope string,
	terms []string,
	limit int,
	compute func() (*Entry, error),
) (*Entry, bool, error) {
	key := BuildKey(scope, terms, limit)
	if entry, ok := c.backend.Get(ctx, key); ok {
		c.hits.Add(1)
		c.logger.Debug("cache hit", "key", key)
		return entry, true, nil
	}
	c.misses.Add(1)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if entry, ok := c.backend.Get(ctx, key); ok {
			return entry, nil
		}
		entry, err := compute()
		if err != nil {
			return nil, err
		}
		c.backend.Set(ctx, key, entry)
		return entry, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Entry), false, nil
}

// Invalidate drops every cached entry, including those other processes
// stored in a shared backend.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	return c.InvalidateScope(ctx, "")
}

// InvalidateScope drops the entries stored under scope.
func (c *QueryCache) InvalidateScope(ctx context.Context, scope string) error {
	deleted, err := c.backend.Purge(ctx, scope)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "scope", scope, "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	s := Stats{Backend: c.backend.Name(), Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}

// BuildKey places a hash of the normalised query terms and the limit under
// scope, the fingerprint of the index the entry was computed against. Term
// order is kept because it fixes the order scores are summed in.
func BuildKey(scope string, terms []string, limit int) string {
	raw := fmt.Sprintf("%s|limit=%d", strings.Join(terms, "\x1f"), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", scopePrefix(scope), hash[:16])
}

// scopePrefix is the key prefix shared by every entry under scope.
func scopePrefix(scope string) string {
	if scope == "" {
		return keyPrefix
	}
	return keyPrefix + scope + ":"
}
