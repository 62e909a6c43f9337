package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/observe"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
)

func histogramCount(t *testing.T, m *Metrics, name string) uint64 {
	t.Helper()
	families, err := m.Registry.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		return sampleCount(f.GetMetric())
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func sampleCount(metrics []*dto.Metric) uint64 {
	var total uint64
	for _, metric := range metrics {
		total += metric.GetHistogram().GetSampleCount()
	}
	return total
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.DocsIndexedTotal.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.DocsIndexedTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.DocsIndexedTotal))
}

func TestObserver(t *testing.T) {
	m := New()
	var o observe.Observer = NewObserver(m)

	o.FileSkipped("big.txt", "too_large", nil)
	o.DocumentIndexed("doc1.txt", 5)
	o.DocumentIndexed("doc2.txt", 5)
	o.IndexBuilt("corpus", 2, 3*time.Millisecond)
	o.SnapshotSaved("index.json", 2, time.Millisecond)
	o.SnapshotLoaded("index.json", 7, time.Millisecond)
	o.SearchCompleted(context.Background(), observe.SearchEvent{Hits: 2, Latency: time.Millisecond})
	o.SearchCompleted(context.Background(), observe.SearchEvent{Hits: 2, CacheHit: true})
	o.SearchCompleted(context.Background(), observe.SearchEvent{Hits: 0})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesSkippedTotal.WithLabelValues("too_large")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocsIndexedTotal))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.IndexDocuments))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotOpsTotal.WithLabelValues("save")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotOpsTotal.WithLabelValues("load")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("zero_result")))
	assert.Equal(t, uint64(3), histogramCount(t, m, "textsearch_search_latency_seconds"))
	assert.Equal(t, uint64(1), histogramCount(t, m, "textsearch_index_build_duration_seconds"))
}

func TestBreakerStateHook(t *testing.T) {
	m := New()
	cb := resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Hour,
		OnStateChange:    m.BreakerStateHook(),
	})
	_ = cb.Execute(func() error { return assert.AnError })
	assert.Equal(t, float64(resilience.StateOpen),
		testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("redis-cache")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.DocsIndexedTotal.Add(3)
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "textsearch_docs_indexed_total 3"))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}
