package observe

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) FileSkipped(path, _ string, _ error) { r.add("skip:" + path) }
func (r *recorder) DocumentIndexed(id string, _ int) { r.add("doc:" + id) }
func (r *recorder) IndexBuilt(root string, _ int, _ time.Duration) { r.add("built:" + root) }
func (r *recorder) SnapshotSaved(loc string, _ int, _ time.Duration) { r.add("saved:" + loc) }
func (r *recorder) SnapshotLoaded(loc string, _ int, _ time.Duration) { r.add("loaded:" + loc) }
func (r *recorder) SearchCompleted(_ context.Context, e SearchEvent) { r.add("search:" + e.Query) }

func TestMultiFansOutInOrder(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, Nop{}, b}

	m.FileSkipped("big.txt", "too large", nil)
	m.DocumentIndexed("a.txt", 3)
	m.IndexBuilt("docs", 1, time.Millisecond)
	m.SnapshotSaved("index.json", 1, time.Millisecond)
	m.SnapshotLoaded("index.json", 1, time.Millisecond)
	m.SearchCompleted(context.Background(), SearchEvent{Query: "q"})

	want := []string{"skip:big.txt", "doc:a.txt", "built:docs", "saved:index.json", "loaded:index.json", "search:q"}
	assert.Equal(t, want, a.events)
	assert.Equal(t, want, b.events)
}

func TestOrNop(t *testing.T) {
	assert.Equal(t, Nop{}, OrNop(nil))
	r := &recorder{}
	assert.Same(t, r, OrNop(r))
}

func TestLoggerWarnsOnEmptyBuild(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	l.IndexBuilt("docs", 0, 0)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "no documents found")

	buf.Reset()
	l.FileSkipped("bad.txt", "undecodable", errors.New("boom"))
	assert.Contains(t, buf.String(), "path=bad.txt")
	assert.Contains(t, buf.String(), "error=boom")
}
