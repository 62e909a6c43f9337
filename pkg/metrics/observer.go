package metrics

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/observe"
)

// Observer records engine events as Prometheus metrics.
type Observer struct {
	m *Metrics
}

var _ observe.Observer = (*Observer)(nil)

func NewObserver(m *Metrics) *Observer {
	return &Observer{m: m}
}

func (o *Observer) FileSkipped(_ string, reason string, _ error) {
	o.m.FilesSkippedTotal.WithLabelValues(reason).Inc()
}

func (o *Observer) DocumentIndexed(string, int) {
	o.m.DocsIndexedTotal.Inc()
}

func (o *Observer) IndexBuilt(_ string, docs int, elapsed time.Duration) {
	o.m.IndexBuildDuration.Observe(elapsed.Seconds())
	o.m.IndexDocuments.Set(float64(docs))
}

func (o *Observer) SnapshotSaved(string, int, time.Duration) {
	o.m.SnapshotOpsTotal.WithLabelValues("save").Inc()
}

func (o *Observer) SnapshotLoaded(_ string, docs int, _ time.Duration) {
	o.m.SnapshotOpsTotal.WithLabelValues("load").Inc()
	o.m.IndexDocuments.Set(float64(docs))
}

func (o *Observer) SearchCompleted(_ context.Context, ev observe.SearchEvent) {
	cacheStatus := "miss"
	if ev.CacheHit {
		cacheStatus = "hit"
	}
	resultType := cacheStatus
	if ev.Hits == 0 {
		resultType = "zero_result"
	}
	o.m.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	o.m.SearchLatency.WithLabelValues(cacheStatus).Observe(ev.Latency.Seconds())
	o.m.SearchResultsCount.Observe(float64(ev.Hits))
}
