// Package searcher is the query entry point: it normalises queries, consults
// the result cache, delegates scoring to the ranker and reports each search
// to the observer.
package searcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/observe"
)

const (
	DefaultLimit            = 10
	DefaultBatchConcurrency = 4
)

// Response is the outcome of one query.
type Response struct {
	Query     string                `json:"query"`
	Terms     []string              `json:"terms"`
	TotalHits int                   `json:"total_hits"`
	Results   []ranker.SearchResult `json:"results"`
	CacheHit  bool                  `json:"cache_hit"`
}

type Options struct {
	Cache    *cache.QueryCache
	Observer observe.Observer
	// Fingerprint scopes cache entries to the index content, so a shared
	// cache never serves results computed against a different index.
	Fingerprint      string
	BatchConcurrency int
}

// Manager answers queries against one immutable index. It is safe for
// concurrent use.
type Manager struct {
	idx              *index.Index
	cache            *cache.QueryCache
	observer         observe.Observer
	fingerprint      string
	batchConcurrency int
}

func NewManager(idx *index.Index, opts Options) *Manager {
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = DefaultBatchConcurrency
	}
	if opts.Fingerprint == "" && idx != nil {
		opts.Fingerprint = idx.Fingerprint()
	}
	return &Manager{
		idx:              idx,
		cache:            opts.Cache,
		observer:         observe.OrNop(opts.Observer),
		fingerprint:      opts.Fingerprint,
		batchConcurrency: opts.BatchConcurrency,
	}
}

// Index returns the index this manager searches.
func (m *Manager) Index() *index.Index {
	return m.idx
}

// Search tokenizes query, drops stop-words and ranks the remaining terms.
// Blank queries and queries made only of stop-words return an empty
// response without error.
func (m *Manager) Search(ctx context.Context, query string, limit int) (*Response, error) {
	start := time.Now()
	resp := &Response{
		Query:   query,
		Terms:   []string{},
		Results: []ranker.SearchResult{},
	}
	if strings.TrimSpace(query) == "" || m.idx == nil {
		return resp, nil
	}
	terms := m.idx.Tokenizer().QueryTerms(query)
	if len(terms) == 0 {
		return resp, nil
	}
	resp.Terms = terms

	compute := func() (*cache.Entry, error) {
		scored := ranker.Score(terms, m.idx)
		return &cache.Entry{
			TotalHits: len(scored),
			Results:   ranker.Top(scored, m.idx, terms, limit),
		}, nil
	}

	var (
		entry *cache.Entry
		err   error
	)
	if m.cache != nil && limit > 0 {
		entry, resp.CacheHit, err = m.cache.GetOrCompute(ctx, m.fingerprint, terms, limit, compute)
	} else {
		entry, err = compute()
	}
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}
	resp.TotalHits = entry.TotalHits
	resp.Results = m.attachDocuments(entry.Results)

	m.observer.SearchCompleted(ctx, observe.SearchEvent{
		Query:     query,
		Terms:     terms,
		Limit:     limit,
		Hits:      resp.TotalHits,
		Latency:   time.Since(start),
		CacheHit:  resp.CacheHit,
		Timestamp: time.Now().UTC(),
	})
	return resp, nil
}

// BatchSearch evaluates each query independently. Output order matches
// input order. At most batchConcurrency queries run at once.
func (m *Manager) BatchSearch(ctx context.Context, queries []string, limit int) ([]*Response, error) {
	responses := make([]*Response, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.batchConcurrency)
	for i, q := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			resp, err := m.Search(gctx, q, limit)
			if err != nil {
				return err
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch search: %w", err)
	}
	return responses, nil
}

// attachDocuments copies cached results and points them at this index's
// documents, dropping any id the index no longer holds.
func (m *Manager) attachDocuments(cached []ranker.SearchResult) []ranker.SearchResult {
	out := make([]ranker.SearchResult, 0, len(cached))
	for _, r := range cached {
		doc, ok := m.idx.Document(r.DocID)
		if !ok {
			continue
		}
		r.Document = doc
		out = append(out, r)
	}
	return out
}
