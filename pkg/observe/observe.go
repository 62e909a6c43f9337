// Package observe defines the observability port used by the indexing and
// search core. The core reports what happened through an Observer; logging,
// metrics and analytics are adapters plugged in by the command layer. The
// zero-cost default is Nop.
package observe

import (
	"context"
	"log/slog"
	"time"
)

// SearchEvent describes one completed query.
type SearchEvent struct {
	Query     string
	Terms     []string
	Limit     int
	Hits      int
	Latency   time.Duration
	CacheHit  bool
	Timestamp time.Time
}

// Observer receives events from the index builder, snapshot stores and the
// search manager. Implementations must be safe for concurrent use.
type Observer interface {
	FileSkipped(path string, reason string, err error)
	DocumentIndexed(id string, terms int)
	IndexBuilt(root string, docs int, elapsed time.Duration)
	SnapshotSaved(location string, docs int, elapsed time.Duration)
	SnapshotLoaded(location string, docs int, elapsed time.Duration)
	SearchCompleted(ctx context.Context, event SearchEvent)
}

// Nop discards every event.
type Nop struct{}

func (Nop) FileSkipped(string, string, error) {}
func (Nop) DocumentIndexed(string, int) {}
func (Nop) IndexBuilt(string, int, time.Duration) {}
func (Nop) SnapshotSaved(string, int, time.Duration) {}
func (Nop) SnapshotLoaded(string, int, time.Duration) {}
func (Nop) SearchCompleted(context.Context, SearchEvent) {}

// Multi fans every event out to each observer in order.
type Multi []Observer

func (m Multi) FileSkipped(path string, reason string, err error) {
	for _, o := range m {
		o.FileSkipped(path, reason, err)
	}
}

func (m Multi) DocumentIndexed(id string, terms int) {
	for _, o := range m {
		o.DocumentIndexed(id, terms)
	}
}

func (m Multi) IndexBuilt(root string, docs int, elapsed time.Duration) {
	for _, o := range m {
		o.IndexBuilt(root, docs, elapsed)
	}
}

func (m Multi) SnapshotSaved(location string, docs int, elapsed time.Duration) {
	for _, o := range m {
		o.SnapshotSaved(location, docs, elapsed)
	}
}

func (m Multi) SnapshotLoaded(location string, docs int, elapsed time.Duration) {
	for _, o := range m {
		o.SnapshotLoaded(location, docs, elapsed)
	}
}

func (m Multi) SearchCompleted(ctx context.Context, event SearchEvent) {
	for _, o := range m {
		o.SearchCompleted(ctx, event)
	}
}

// OrNop returns o, or Nop when o is nil.
func OrNop(o Observer) Observer {
	if o == nil {
		return Nop{}
	}
	return o
}

// Logger reports events as structured log records.
type Logger struct {
	logger *slog.Logger
}

// NewLogger wraps logger; a nil logger falls back to slog.Default.
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

func (l *Logger) FileSkipped(path string, reason string, err error) {
	attrs := []any{"path", path, "reason", reason}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	l.logger.Warn("file skipped", attrs...)
}

func (l *Logger) DocumentIndexed(id string, terms int) {
	l.logger.Debug("document indexed", "doc_id", id, "term_count", terms)
}

func (l *Logger) IndexBuilt(root string, docs int, elapsed time.Duration) {
	if docs == 0 {
		l.logger.Warn("no documents found", "dir", root)
		return
	}
	l.logger.Info("index built",
		"dir", root,
		"docs", docs,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

func (l *Logger) SnapshotSaved(location string, docs int, elapsed time.Duration) {
	l.logger.Info("index saved",
		"location", location,
		"docs", docs,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

func (l *Logger) SnapshotLoaded(location string, docs int, elapsed time.Duration) {
	l.logger.Info("index loaded",
		"location", location,
		"docs", docs,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

func (l *Logger) SearchCompleted(ctx context.Context, event SearchEvent) {
	l.logger.DebugContext(ctx, "search completed",
		"query", event.Query,
		"terms", event.Terms,
		"hits", event.Hits,
		"cache_hit", event.CacheHit,
		"latency_ms", event.Latency.Milliseconds(),
	)
}
