package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/observe"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/postgres"
)

func search(query string, hits int, latency time.Duration, cacheHit bool) observe.SearchEvent {
	return observe.SearchEvent{
		Query:     query,
		Terms:     []string{query},
		Limit:     10,
		Hits:      hits,
		Latency:   latency,
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
	}
}

func TestAggregator_Stats(t *testing.T) {
	agg := NewAggregator()
	ctx := context.Background()

	agg.SearchCompleted(ctx, search("weather", 2, 1*time.Millisecond, false))
	agg.SearchCompleted(ctx, search("weather", 2, 3*time.Millisecond, true))
	agg.SearchCompleted(ctx, search("moscow", 1, 2*time.Millisecond, false))
	agg.SearchCompleted(ctx, search("xyzzy", 0, 4*time.Millisecond, false))
	agg.DocumentIndexed("doc1.txt", 5)
	agg.DocumentIndexed("doc2.txt", 5)

	stats := agg.Stats()
	assert.Equal(t, int64(4), stats.TotalSearches)
	assert.Equal(t, int64(2), stats.TotalDocsIndexed)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(3), stats.CacheMisses)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.InDelta(t, 2.5, stats.AvgLatencyMs, 1e-9)
	assert.InDelta(t, 3.0, stats.P50LatencyMs, 1e-9)
	assert.InDelta(t, 4.0, stats.P99LatencyMs, 1e-9)
	assert.Equal(t, []QueryCount{
		{Query: "weather", Count: 2},
		{Query: "moscow", Count: 1},
		{Query: "xyzzy", Count: 1},
	}, stats.TopQueries)
	assert.Equal(t, []QueryCount{{Query: "xyzzy", Count: 1}}, stats.ZeroResultQueries)
}

func TestAggregator_QueriesPerMinute(t *testing.T) {
	agg := NewAggregator()
	start := agg.startTime
	agg.now = func() time.Time { return start.Add(2 * time.Minute) }
	for i := 0; i < 6; i++ {
		agg.SearchCompleted(context.Background(), search("q", 1, time.Millisecond, false))
	}
	assert.InDelta(t, 3.0, agg.Stats().QueriesPerMinute, 1e-9)
}

func TestAggregator_LatencyWindowIsBounded(t *testing.T) {
	agg := NewAggregator()
	for i := 0; i < maxLatencySamples+50; i++ {
		agg.Record(Event{Type: EventSearch, Search: &SearchEvent{Query: "q", TotalHits: 1, LatencyMs: 1}})
	}
	assert.Len(t, agg.latencies, maxLatencySamples)
	assert.Equal(t, int64(maxLatencySamples+50), agg.Stats().TotalSearches)
}

func TestAggregator_TopQueriesTruncated(t *testing.T) {
	agg := NewAggregator()
	for i := 0; i < topQueriesLimit+5; i++ {
		agg.SearchCompleted(context.Background(), search(fmt.Sprintf("q%02d", i), 1, 0, false))
	}
	top := agg.Stats().TopQueries
	require.Len(t, top, topQueriesLimit)
	assert.Equal(t, "q00", top[0].Query)
}

func TestCollector_RequestIDFromContext(t *testing.T) {
	c := NewCollector(&fakePublisher{}, CollectorOptions{BufferSize: 4})
	ctx := logger.WithRequestID(context.Background(), "req-1")
	c.SearchCompleted(ctx, search("weather", 1, 0, false))
	ev := <-c.eventCh
	require.NotNil(t, ev.Search)
	assert.Equal(t, "req-1", ev.Search.RequestID)
}

func TestHandleEvent(t *testing.T) {
	agg := NewAggregator()
	handle := HandleEvent(agg)
	ctx := context.Background()

	searchMsg, err := json.Marshal(newSearchEvent(search("weather", 0, time.Millisecond, false), ""))
	require.NoError(t, err)
	doc, err := json.Marshal(newDocumentEvent("doc1.txt", 3))
	require.NoError(t, err)

	require.NoError(t, handle(ctx, nil, searchMsg))
	require.NoError(t, handle(ctx, nil, doc))
	require.NoError(t, handle(ctx, nil, []byte("garbage")), "bad messages are acknowledged")
	require.NoError(t, handle(ctx, nil, []byte(`{"type":"search"}`)))

	stats := agg.Stats()
	assert.Equal(t, int64(1), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.TotalDocsIndexed)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
}

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (p *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, append([]kafka.Event(nil), events...))
	return nil
}

func (p *fakePublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func TestCollector_BatchesAndDrainsOnClose(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, CollectorOptions{BatchSize: 2, FlushInterval: time.Hour})
	c.Start(context.Background())

	c.SearchCompleted(context.Background(), search("a", 1, 0, false))
	c.SearchCompleted(context.Background(), search("b", 1, 0, false))
	require.Eventually(t, func() bool { return pub.published() == 2 }, time.Second, 5*time.Millisecond)

	c.DocumentIndexed("doc1.txt", 4)
	c.Close()
	assert.Equal(t, 3, pub.published())

	last := pub.batches[len(pub.batches)-1]
	assert.Equal(t, string(EventIndexDoc), last[0].Key)
	ev, ok := last[0].Value.(Event)
	require.True(t, ok)
	assert.Equal(t, "doc1.txt", ev.Document.DocumentID)

	c.Track(newDocumentEvent("late", 1))
	c.Close()
	assert.Equal(t, 3, pub.published())
}

func TestCollector_FlushesOnInterval(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, CollectorOptions{BatchSize: 100, FlushInterval: 10 * time.Millisecond})
	c.Start(context.Background())
	defer c.Close()

	c.SearchCompleted(context.Background(), search("a", 1, 0, false))
	assert.Eventually(t, func() bool { return pub.published() == 1 }, time.Second, 5*time.Millisecond)
}

func TestCollector_DrainsOnCancel(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, CollectorOptions{BatchSize: 100, FlushInterval: time.Hour})
	for i := 0; i < 5; i++ {
		c.Track(newDocumentEvent(fmt.Sprintf("d%d", i), 1))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Start(ctx)
	<-c.done
	assert.Equal(t, 5, pub.published())
}

func TestCollector_DropsWhenFull(t *testing.T) {
	c := NewCollector(&fakePublisher{}, CollectorOptions{BufferSize: 2})
	for i := 0; i < 5; i++ {
		c.Track(newDocumentEvent("d", 1))
	}
	assert.Equal(t, int64(3), c.Dropped())
}

func TestCollector_CountsPublishFailures(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	c := NewCollector(pub, CollectorOptions{BatchSize: 1, FlushInterval: time.Hour})
	c.Start(context.Background())
	c.Track(newDocumentEvent("d", 1))
	c.Close()
	assert.Equal(t, int64(1), c.Failed())
}

func TestHandler_Stats(t *testing.T) {
	agg := NewAggregator()
	agg.SearchCompleted(context.Background(), search("weather", 1, time.Millisecond, false))
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got AggregatedStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(1), got.TotalSearches)

	rec = httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodPost, "/api/v1/analytics", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStore_Postgres(t *testing.T) {
	dsn := os.Getenv("TS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TS_TEST_POSTGRES_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	client := postgres.NewFromDB(db)
	defer client.Close()

	ctx := context.Background()
	store := NewStore(client)
	require.NoError(t, store.EnsureSchema(ctx))

	agg := NewAggregator()
	agg.SearchCompleted(ctx, search("weather", 1, time.Millisecond, false))
	require.NoError(t, store.SaveSnapshot(ctx, agg.Stats()))

	latest, err := store.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.GreaterOrEqual(t, latest.TotalSearches, int64(1))

	restored := NewAggregator()
	restored.Restore(*latest)
	assert.Equal(t, latest.TotalSearches, restored.Stats().TotalSearches)
}
