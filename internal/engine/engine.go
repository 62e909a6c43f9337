// Package engine is the facade shared by every front end (CLI, interactive
// shell, HTTP). It owns the currently installed index and swaps in freshly
// built or loaded indexes atomically, so queries never see a partial build.
// Cached results are scoped by the fingerprint of the index content.
package engine

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/observe"
)

type Options struct {
	Cache            *cache.QueryCache
	Observer         observe.Observer
	DefaultLimit     int
	MaxResults       int
	BatchConcurrency int
}

// Status describes the installed index.
type Status struct {
	Loaded      bool        `json:"loaded"`
	Origin      string      `json:"origin,omitempty"`
	Fingerprint string      `json:"fingerprint,omitempty"`
	InstalledAt time.Time   `json:"installed_at,omitempty"`
	Index       index.Stats `json:"index"`
}

type installed struct {
	manager     *searcher.Manager
	origin      string
	fingerprint string
	installedAt time.Time
}

type Engine struct {
	builder *indexer.Builder
	opts    Options
	current atomic.Pointer[installed]
	logger  *slog.Logger
}

func New(builder *indexer.Builder, opts Options) *Engine {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = searcher.DefaultLimit
	}
	if opts.MaxResults < opts.DefaultLimit {
		opts.MaxResults = opts.DefaultLimit
	}
	opts.Observer = observe.OrNop(opts.Observer)
	return &Engine{
		builder: builder,
		opts:    opts,
		logger:  slog.Default().With("component", "engine"),
	}
}

// Index builds a new index from dir and installs it, returning the number of
// documents indexed.
func (e *Engine) Index(ctx context.Context, dir string) (int, error) {
	idx, err := e.builder.BuildFromDirectory(ctx, dir)
	if err != nil {
		return 0, err
	}
	e.install(ctx, idx, dir)
	return idx.TotalDocs(), nil
}

// Load reads the snapshot stored under name and installs it.
func (e *Engine) Load(ctx context.Context, name string) (int, error) {
	idx, err := e.builder.LoadIndex(ctx, name)
	if err != nil {
		return 0, err
	}
	e.install(ctx, idx, name)
	return idx.TotalDocs(), nil
}

// Save writes the installed index under name.
func (e *Engine) Save(ctx context.Context, name string) error {
	cur := e.current.Load()
	if cur == nil {
		return apperrors.New(apperrors.ErrIndexNotLoaded, http.StatusServiceUnavailable, "nothing to save")
	}
	return e.builder.SaveIndex(ctx, cur.manager.Index(), name)
}

// Search runs query against the installed index. limit <= 0 selects the
// default limit; larger values are capped at MaxResults.
func (e *Engine) Search(ctx context.Context, query string, limit int) (*searcher.Response, error) {
	m, err := e.manager()
	if err != nil {
		return nil, err
	}
	return m.Search(ctx, query, e.clampLimit(limit))
}

func (e *Engine) BatchSearch(ctx context.Context, queries []string, limit int) ([]*searcher.Response, error) {
	m, err := e.manager()
	if err != nil {
		return nil, err
	}
	return m.BatchSearch(ctx, queries, e.clampLimit(limit))
}

func (e *Engine) Loaded() bool {
	return e.current.Load() != nil
}

func (e *Engine) Status() Status {
	cur := e.current.Load()
	if cur == nil {
		return Status{}
	}
	return Status{
		Loaded:      true,
		Origin:      cur.origin,
		Fingerprint: cur.fingerprint,
		InstalledAt: cur.installedAt,
		Index:       cur.manager.Index().Stats(),
	}
}

// Document returns a document of the installed index by id.
func (e *Engine) Document(id string) (*index.Document, error) {
	m, err := e.manager()
	if err != nil {
		return nil, err
	}
	doc, ok := m.Index().Document(id)
	if !ok {
		return nil, apperrors.NotFoundf("document %q is not indexed", id)
	}
	return doc, nil
}

// InvalidateCache drops all cached results, including entries other
// processes stored in a shared backend. It is a no-op without a cache.
func (e *Engine) InvalidateCache(ctx context.Context) error {
	if e.opts.Cache == nil {
		return nil
	}
	return e.opts.Cache.Invalidate(ctx)
}

// CacheStats reports cache counters; ok is false when caching is disabled.
func (e *Engine) CacheStats() (stats cache.Stats, ok bool) {
	if e.opts.Cache == nil {
		return cache.Stats{}, false
	}
	return e.opts.Cache.Stats(), true
}

func (e *Engine) DefaultLimit() int { return e.opts.DefaultLimit }

// install swaps idx in. Entries cached for the index it replaces are
// dropped; entries for any other fingerprint belong to other processes
// and are left alone.
func (e *Engine) install(ctx context.Context, idx *index.Index, origin string) {
	fingerprint := idx.Fingerprint()
	m := searcher.NewManager(idx, searcher.Options{
		Cache:            e.opts.Cache,
		Observer:         e.opts.Observer,
		Fingerprint:      fingerprint,
		BatchConcurrency: e.opts.BatchConcurrency,
	})
	prev := e.current.Swap(&installed{
		manager:     m,
		origin:      origin,
		fingerprint: fingerprint,
		installedAt: time.Now().UTC(),
	})
	e.logger.Info("index installed", "origin", origin, "docs", idx.TotalDocs(), "fingerprint", fingerprint[:12])
	if prev == nil || prev.fingerprint == fingerprint || e.opts.Cache == nil {
		return
	}
	if err := e.opts.Cache.InvalidateScope(ctx, prev.fingerprint); err != nil {
		e.logger.Warn("dropping cached results of the replaced index failed", "error", err)
	}
}

func (e *Engine) manager() (*searcher.Manager, error) {
	cur := e.current.Load()
	if cur == nil {
		return nil, apperrors.New(apperrors.ErrIndexNotLoaded, http.StatusServiceUnavailable,
			"build an index or load one first")
	}
	return cur.manager, nil
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		return e.opts.DefaultLimit
	}
	if limit > e.opts.MaxResults {
		return e.opts.MaxResults
	}
	return limit
}
