package loadtest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_CountsStatusesAndCacheHits(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/search", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		if r.URL.Query().Get("q") == "broken" {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
			return
		}
		hit := calls.Add(1)%2 == 0
		w.Header().Set("Content-Type", "application/json")
		if hit {
			_, _ = w.Write([]byte(`{"results":[],"cache_hit":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[],"cache_hit":false}`))
	}))
	defer srv.Close()

	rep, err := Run(context.Background(), Options{
		BaseURL:     srv.URL + "/",
		Concurrency: 2,
		Duration:    150 * time.Millisecond,
		Queries:     []string{"weather", "broken"},
		Limit:       5,
	})
	require.NoError(t, err)
	require.Positive(t, rep.Total)
	assert.Equal(t, rep.Total, rep.Success+rep.Errors)
	assert.Positive(t, rep.Errors)
	assert.Positive(t, rep.Success)
	assert.LessOrEqual(t, rep.CacheHits, rep.Success)

	var coded int64
	for _, n := range rep.StatusCodes {
		coded += n
	}
	assert.Equal(t, rep.Total, coded)
	assert.LessOrEqual(t, rep.Min, rep.P50)
	assert.LessOrEqual(t, rep.P50, rep.P99)
	assert.LessOrEqual(t, rep.P99, rep.Max)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := Run(ctx, Options{BaseURL: "http://127.0.0.1:1", Duration: time.Second})
	assert.ErrorIs(t, err, ErrNoRequests)
	assert.Zero(t, rep.Total)
}

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(sorted, 50))
	assert.Equal(t, time.Duration(9), percentile(sorted, 90))
	assert.Equal(t, time.Duration(10), percentile(sorted, 99))
	assert.Equal(t, time.Duration(1), percentile(sorted, 0))
	assert.Zero(t, percentile(nil, 50))
}

func TestReport_Print(t *testing.T) {
	rep := &Report{
		Total:       4,
		Success:     3,
		Errors:      1,
		CacheHits:   2,
		Elapsed:     2 * time.Second,
		StatusCodes: map[int]int64{500: 1, 200: 3},
	}
	var buf bytes.Buffer
	rep.Print(&buf)
	out := buf.String()
	assert.Contains(t, out, "Total Requests:  4")
	assert.Contains(t, out, "Error Rate:      25.00%")
	assert.Contains(t, out, "Requests/sec:    2.00")
	assert.Less(t, strings.Index(out, "200: 3"), strings.Index(out, "500: 1"))
}
