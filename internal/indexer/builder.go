// Package indexer builds inverted indexes from document sources and moves
// them through snapshot storage.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/observe"
)

// Builder is stateless apart from its collaborators. Each build produces a
// fresh Index; a cancelled build discards its partial result.
type Builder struct {
	source   *source.Source
	store    snapshot.Store
	tok      *tokenizer.Tokenizer
	observer observe.Observer
	logger   *slog.Logger
}

// NewBuilder wires a Builder. A nil tokenizer uses the default stop-word set
// and a nil observer discards events.
func NewBuilder(src *source.Source, store snapshot.Store, tok *tokenizer.Tokenizer, obs observe.Observer) *Builder {
	if tok == nil {
		tok = tokenizer.Default()
	}
	return &Builder{
		source:   src,
		store:    store,
		tok:      tok,
		observer: observe.OrNop(obs),
		logger:   slog.Default().With("component", "indexer"),
	}
}

// BuildFromDirectory indexes every document the source yields for dir. A
// directory with no documents produces an empty index, not an error.
func (b *Builder) BuildFromDirectory(ctx context.Context, dir string) (*index.Index, error) {
	start := time.Now()
	idx := index.New(b.tok)
	err := b.source.Walk(ctx, dir, func(f source.File) error {
		b.add(idx, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("building index from %s: %w", dir, err)
	}
	b.observer.IndexBuilt(dir, idx.TotalDocs(), time.Since(start))
	return idx, nil
}

// BuildFromFiles indexes already decoded documents in order.
func (b *Builder) BuildFromFiles(ctx context.Context, files []source.File) (*index.Index, error) {
	start := time.Now()
	idx := index.New(b.tok)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("building index: %w", err)
		}
		b.add(idx, f)
	}
	b.observer.IndexBuilt("", idx.TotalDocs(), time.Since(start))
	return idx, nil
}

func (b *Builder) add(idx *index.Index, f source.File) {
	doc := index.NewDocument(f.ID, f.Text)
	idx.AddDocument(doc)
	b.observer.DocumentIndexed(doc.ID, doc.TermCount)
}

// SaveIndex encodes idx and writes it under name.
func (b *Builder) SaveIndex(ctx context.Context, idx *index.Index, name string) error {
	start := time.Now()
	data, err := snapshot.Encode(idx)
	if err != nil {
		return err
	}
	if err := b.store.Save(ctx, name, data); err != nil {
		return fmt.Errorf("saving index: %w", err)
	}
	b.observer.SnapshotSaved(name, idx.TotalDocs(), time.Since(start))
	return nil
}

// LoadIndex reads and validates the snapshot stored under name.
func (b *Builder) LoadIndex(ctx context.Context, name string) (*index.Index, error) {
	start := time.Now()
	data, err := b.store.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}
	idx, err := snapshot.Decode(data, b.tok)
	if err != nil {
		return nil, fmt.Errorf("loading index from %s: %w", name, err)
	}
	b.observer.SnapshotLoaded(name, idx.TotalDocs(), time.Since(start))
	b.logger.Debug("snapshot decoded", "name", name, "bytes", len(data))
	return idx, nil
}
