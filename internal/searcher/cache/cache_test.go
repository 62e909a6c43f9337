package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
)

func sampleEntry() *Entry {
	return &Entry{
		TotalHits: 1,
		Results:   []ranker.SearchResult{{DocID: "a.txt", Score: 0.5, Snippet: "alpha"}},
	}
}

func TestBuildKey(t *testing.T) {
	k1 := BuildKey("fp1", []string{"weather", "moscow"}, 10)
	assert.True(t, strings.HasPrefix(k1, keyPrefix+"fp1:"))
	assert.Equal(t, k1, BuildKey("fp1", []string{"weather", "moscow"}, 10))
	assert.NotEqual(t, k1, BuildKey("fp1", []string{"weather", "moscow"}, 5))
	assert.NotEqual(t, k1, BuildKey("fp1", []string{"moscow", "weather"}, 10))
	assert.NotEqual(t, k1, BuildKey("fp2", []string{"weather", "moscow"}, 10))
	assert.NotEqual(t, BuildKey("fp1", []string{"ab", "c"}, 1), BuildKey("fp1", []string{"a", "bc"}, 1))
}

func TestLRU_PurgeScope(t *testing.T) {
	backend, err := NewLRU(8)
	require.NoError(t, err)
	ctx := context.Background()
	backend.Set(ctx, BuildKey("old", []string{"a"}, 10), sampleEntry())
	backend.Set(ctx, BuildKey("old", []string{"b"}, 10), sampleEntry())
	backend.Set(ctx, BuildKey("live", []string{"a"}, 10), sampleEntry())

	n, err := backend.Purge(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	_, ok := backend.Get(ctx, BuildKey("live", []string{"a"}, 10))
	assert.True(t, ok)

	n, err = backend.Purge(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 0, backend.Len())
}

func TestQueryCache_LRUHitAndMiss(t *testing.T) {
	backend, err := NewLRU(8)
	require.NoError(t, err)
	qc := New(backend)
	ctx := context.Background()

	calls := 0
	compute := func() (*Entry, error) {
		calls++
		return sampleEntry(), nil
	}

	entry, hit, err := qc.GetOrCompute(ctx, "fp", []string{"alpha"}, 10, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, entry.TotalHits)

	_, hit, err = qc.GetOrCompute(ctx, "fp", []string{"alpha"}, 10, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, calls)

	stats := qc.Stats()
	assert.Equal(t, Stats{Backend: "lru", Hits: 1, Misses: 1, HitRate: 0.5}, stats)

	require.NoError(t, qc.Invalidate(ctx))
	assert.Equal(t, 0, backend.Len())
	_, hit, _ = qc.GetOrCompute(ctx, "fp", []string{"alpha"}, 10, compute)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)
}

func TestQueryCache_ComputeErrorNotCached(t *testing.T) {
	backend, err := NewLRU(8)
	require.NoError(t, err)
	qc := New(backend)

	boom := errors.New("boom")
	_, _, err = qc.GetOrCompute(context.Background(), "fp", []string{"x"}, 1, func() (*Entry, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, backend.Len())
}

func TestQueryCache_SingleflightCollapsesConcurrentMisses(t *testing.T) {
	backend, err := NewLRU(8)
	require.NoError(t, err)
	qc := New(backend)

	var computes atomic.Int32
	release := make(chan struct{})
	compute := func() (*Entry, error) {
		computes.Add(1)
		<-release
		return sampleEntry(), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := qc.GetOrCompute(context.Background(), "fp", []string{"hot"}, 10, compute)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), computes.Load())
}

type fakeRedis struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
	gets   int
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = string(value.([]byte))
	return nil
}

func (f *fakeRedis) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			delete(f.data, k)
			n++
		}
	}
	return n, nil
}

func TestRedisBackend_RoundTrip(t *testing.T) {
	client := newFakeRedis()
	backend := NewRedis(client, time.Minute, nil)
	ctx := context.Background()

	_, ok := backend.Get(ctx, "k")
	assert.False(t, ok)

	live := BuildKey("live", []string{"k"}, 10)
	backend.Set(ctx, live, sampleEntry())
	backend.Set(ctx, BuildKey("old", []string{"k"}, 10), sampleEntry())
	got, ok := backend.Get(ctx, live)
	require.True(t, ok)
	assert.Equal(t, sampleEntry(), got)

	n, err := backend.Purge(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, ok = backend.Get(ctx, live)
	assert.True(t, ok)

	n, err = backend.Purge(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRedisBackend_BreakerOpensOnFailures(t *testing.T) {
	client := newFakeRedis()
	client.getErr = errors.New("connection refused")
	breaker := resilience.NewCircuitBreaker("test-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Hour,
	})
	backend := NewRedis(client, time.Minute, breaker)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, ok := backend.Get(ctx, "k")
		assert.False(t, ok)
	}
	assert.Equal(t, resilience.StateOpen, breaker.GetState())
	assert.Equal(t, 2, client.gets, "open breaker must stop calls to redis")
}
