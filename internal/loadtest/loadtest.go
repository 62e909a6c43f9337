// Package loadtest drives concurrent search traffic against a running
// textsearch HTTP API and summarises latency, status codes and cache hits.
package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultQueries is the query mix used when none is given.
var DefaultQueries = []string{
	"weather forecast",
	"погода в москве",
	"technology news",
	"artificial intelligence",
	"rain in london",
	"новости технологий",
	"search engine",
	"inverted index",
}

type Options struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Queries     []string
	Limit       int
	Client      *http.Client
}

// Report summarises one run.
type Report struct {
	Total       int64
	Success     int64
	Errors      int64
	CacheHits   int64
	Elapsed     time.Duration
	Min         time.Duration
	Avg         time.Duration
	P50         time.Duration
	P90         time.Duration
	P95         time.Duration
	P99         time.Duration
	Max         time.Duration
	StdDev      time.Duration
	StatusCodes map[int]int64
}

// ErrNoRequests is returned when not a single request completed.
var ErrNoRequests = errors.New("no requests completed; is the service running?")

type recorder struct {
	total     atomic.Int64
	success   atomic.Int64
	errors    atomic.Int64
	cacheHits atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int64
}

func (r *recorder) record(latency time.Duration, status int, cacheHit bool, err error) {
	r.total.Add(1)
	if err != nil {
		r.errors.Add(1)
		return
	}
	if status >= 200 && status < 300 {
		r.success.Add(1)
	} else {
		r.errors.Add(1)
	}
	if cacheHit {
		r.cacheHits.Add(1)
	}
	r.mu.Lock()
	r.latencies = append(r.latencies, latency)
	r.codes[status]++
	r.mu.Unlock()
}

// Run sends GET /api/v1/search requests from Concurrency workers until
// Duration elapses or ctx is cancelled.
func Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}
	if opts.Duration <= 0 {
		opts.Duration = 30 * time.Second
	}
	if len(opts.Queries) == 0 {
		opts.Queries = DefaultQueries
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if opts.Client == nil {
		opts.Client = &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        opts.Concurrency * 2,
				MaxIdleConnsPerHost: opts.Concurrency * 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	base := strings.TrimRight(opts.BaseURL, "/")

	rec := &recorder{
		latencies: make([]time.Duration, 0, 4096),
		codes:     make(map[int]int64),
	}
	runCtx, cancel := context.WithTimeout(ctx, opts.Duration)
	defer cancel()

	start := time.Now()
	g, gctx := errgroup.WithContext(runCtx)
	for w := 0; w < opts.Concurrency; w++ {
		g.Go(func() error {
			for i := w; gctx.Err() == nil; i++ {
				query := opts.Queries[i%len(opts.Queries)]
				target := fmt.Sprintf("%s/api/v1/search?q=%s&limit=%d", base, url.QueryEscape(query), opts.Limit)
				latency, status, hit, err := doSearch(gctx, opts.Client, target)
				if err != nil && gctx.Err() != nil {
					return nil
				}
				rec.record(latency, status, hit, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	report := rec.report(time.Since(start))
	if report.Total == 0 {
		return report, ErrNoRequests
	}
	return report, nil
}

func doSearch(ctx context.Context, client *http.Client, target string) (time.Duration, int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, 0, false, err
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return time.Since(start), 0, false, err
	}
	defer resp.Body.Close()

	var body struct {
		CacheHit bool `json:"cache_hit"`
	}
	if resp.StatusCode == http.StatusOK {
		_ = json.NewDecoder(resp.Body).Decode(&body)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return time.Since(start), resp.StatusCode, body.CacheHit, nil
}

func (r *recorder) report(elapsed time.Duration) *Report {
	r.mu.Lock()
	latencies := append([]time.Duration(nil), r.latencies...)
	codes := make(map[int]int64, len(r.codes))
	for code, n := range r.codes {
		codes[code] = n
	}
	r.mu.Unlock()

	rep := &Report{
		Total:       r.total.Load(),
		Success:     r.success.Load(),
		Errors:      r.errors.Load(),
		CacheHits:   r.cacheHits.Load(),
		Elapsed:     elapsed,
		StatusCodes: codes,
	}
	if len(latencies) == 0 {
		return rep
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	rep.Avg = sum / time.Duration(len(latencies))
	var sq float64
	for _, l := range latencies {
		d := float64(l - rep.Avg)
		sq += d * d
	}
	rep.StdDev = time.Duration(math.Sqrt(sq / float64(len(latencies))))
	rep.Min = latencies[0]
	rep.Max = latencies[len(latencies)-1]
	rep.P50 = percentile(latencies, 50)
	rep.P90 = percentile(latencies, 90)
	rep.P95 = percentile(latencies, 95)
	rep.P99 = percentile(latencies, 99)
	return rep
}

// Print writes a human-readable summary of r to w.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", r.Total)
	fmt.Fprintf(w, "Successful:      %d\n", r.Success)
	fmt.Fprintf(w, "Errors:          %d\n", r.Errors)
	fmt.Fprintf(w, "Cache Hits:      %d\n", r.CacheHits)
	if r.Total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(r.Errors)/float64(r.Total)*100)
	}
	if r.Elapsed > 0 {
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(r.Total)/r.Elapsed.Seconds())
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Latency ===")
	fmt.Fprintf(w, "Min:    %s\n", r.Min)
	fmt.Fprintf(w, "Avg:    %s\n", r.Avg)
	fmt.Fprintf(w, "P50:    %s\n", r.P50)
	fmt.Fprintf(w, "P90:    %s\n", r.P90)
	fmt.Fprintf(w, "P95:    %s\n", r.P95)
	fmt.Fprintf(w, "P99:    %s\n", r.P99)
	fmt.Fprintf(w, "Max:    %s\n", r.Max)
	fmt.Fprintf(w, "StdDev: %s\n", r.StdDev)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	codes := make([]int, 0, len(r.StatusCodes))
	for code := range r.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, r.StatusCodes[code])
	}
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
