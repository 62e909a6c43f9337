package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/source"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/observe"
)

type buildRecorder struct {
	observe.Nop
	mu      sync.Mutex
	indexed []string
	builds  []int
	saved   int
	loaded  int
}

func (r *buildRecorder) DocumentIndexed(id string, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = append(r.indexed, id)
}

func (r *buildRecorder) IndexBuilt(_ string, docs int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builds = append(r.builds, docs)
}

func (r *buildRecorder) SnapshotSaved(string, int, time.Duration) { r.saved++ }

func (r *buildRecorder) SnapshotLoaded(string, int, time.Duration) { r.loaded++ }

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, text := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	}
	return dir
}

func newTestBuilder(t *testing.T, obs observe.Observer) *Builder {
	t.Helper()
	src, err := source.New(source.DefaultOptions(), obs)
	require.NoError(t, err)
	return NewBuilder(src, snapshot.NewFileStore(), nil, obs)
}

func TestBuildFromDirectory(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"doc1.txt":  "weather forecast in moscow tomorrow",
		"doc2.txt":  "technology news and artificial intelligence",
		"notes.md":  "ignored by extension",
		"empty.txt": "",
	})
	rec := &buildRecorder{}
	b := newTestBuilder(t, rec)

	idx, err := b.BuildFromDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.TotalDocs())
	assert.Equal(t, 1, idx.Frequency("moscow", "doc1.txt"))

	doc, ok := idx.Document("empty.txt")
	require.True(t, ok)
	assert.Equal(t, 0, doc.TermCount)

	assert.ElementsMatch(t, []string{"doc1.txt", "doc2.txt", "empty.txt"}, rec.indexed)
	assert.Equal(t, []int{3}, rec.builds)
}

func TestBuildFromDirectory_EmptyDirectory(t *testing.T) {
	rec := &buildRecorder{}
	b := newTestBuilder(t, rec)

	idx, err := b.BuildFromDirectory(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, idx.TotalDocs())
	assert.Equal(t, []int{0}, rec.builds)
}

func TestBuildFromDirectory_Missing(t *testing.T) {
	b := newTestBuilder(t, nil)
	_, err := b.BuildFromDirectory(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestBuildFromDirectory_Cancelled(t *testing.T) {
	dir := writeCorpus(t, map[string]string{"a.txt": "alpha", "b.txt": "beta"})
	b := newTestBuilder(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	idx, err := b.BuildFromDirectory(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, idx)
}

func TestBuildFromFiles(t *testing.T) {
	b := newTestBuilder(t, nil)
	idx, err := b.BuildFromFiles(context.Background(), []source.File{
		{ID: "a", Text: "one two"},
		{ID: "a", Text: "three"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, idx.TotalDocs())
	assert.Equal(t, 0, idx.DocFreq("one"))
	assert.Equal(t, 1, idx.DocFreq("three"))
}

func TestSaveAndLoadIndex(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"doc1.txt": "weather forecast in moscow tomorrow",
		"doc2.txt": "weather report: rain in london",
	})
	rec := &buildRecorder{}
	b := newTestBuilder(t, rec)
	ctx := context.Background()

	built, err := b.BuildFromDirectory(ctx, dir)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "index.json")
	require.NoError(t, b.SaveIndex(ctx, built, path))

	loaded, err := b.LoadIndex(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, built.Snapshot(), loaded.Snapshot())
	assert.Equal(t, built.Documents(), loaded.Documents())
	assert.Equal(t, 1, rec.saved)
	assert.Equal(t, 1, rec.loaded)
}

func TestLoadIndex_Errors(t *testing.T) {
	b := newTestBuilder(t, nil)
	ctx := context.Background()

	_, err := b.LoadIndex(ctx, filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	corrupt := filepath.Join(t.TempDir(), "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o644))
	_, err = b.LoadIndex(ctx, corrupt)
	assert.ErrorIs(t, err, apperrors.ErrCorruptIndex)
}
