// Package metrics exposes Prometheus instrumentation for the read path, the query
// cache and metadata sync.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "playlore"

var (
	// queryDuration measures browse operations.
	// Labels: op (keyset, page, range, row_index, random), status (ok, error)
	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "browse",
		Name:      "query_duration_seconds",
		Help:      "Browse query latency in seconds",
		Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"op", "status"})

	// cacheLookups counts query cache lookups.
	// Labels: kind (keyset, total, rank), result (hit, miss)
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "query_cache",
		Name:      "lookups_total",
		Help:      "Query cache lookups by result",
	}, []string{"kind", "result"})

	// syncBatches counts applied sync batches.
	// Labels: source, kind (platforms, tags, games), status (ok, error)
	syncBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "batches_total",
		Help:      "Metadata sync batches by outcome",
	}, []string{"source", "kind", "status"})

	// syncRecords counts records changed by sync.
	// Labels: source, kind, change (created, updated, deleted, flagged)
	syncRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "records_total",
		Help:      "Catalog records changed by metadata sync",
	}, []string{"source", "kind", "change"})

	// syncRunDuration measures whole sync runs.
	// Labels: source, status (ok, error, canceled)
	syncRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "run_duration_seconds",
		Help:      "Metadata sync run duration in seconds",
		Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
	}, []string{"source", "status"})

	// syncWatermark is the latest remote modification merged, as unix seconds.
	// Labels: source, kind
	syncWatermark = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "watermark_timestamp_seconds",
		Help:      "Latest remote modification time merged per source and kind",
	}, []string{"source", "kind"})

	// remoteRequests counts requests to metadata sources.
	// Labels: endpoint (count, platforms, tags, games), status (HTTP code or "error")
	remoteRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "remote",
		Name:      "requests_total",
		Help:      "Requests to metadata sources by endpoint and status",
	}, []string{"endpoint", "status"})

	// httpRequestDuration measures API requests.
	// Labels: method, route (chi route pattern), code
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "API request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "code"})
)

// ObserveQuery records the latency of a browse operation.
func ObserveQuery(op string, d time.Duration, err error) {
	queryDuration.WithLabelValues(op, status(err)).Observe(d.Seconds())
}

// CacheLookup records a query cache hit or miss.
func CacheLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(kind, result).Inc()
}

// SyncBatch records one applied (or failed) sync batch.
func SyncBatch(source, kind string, err error) {
	syncBatches.WithLabelValues(source, kind, status(err)).Inc()
}

// SyncRecords adds per-change record counts for one batch.
func SyncRecords(source, kind string, created, updated, deleted, flagged int) {
	add := func(change string, n int) {
		if n > 0 {
			syncRecords.WithLabelValues(source, kind, change).Add(float64(n))
		}
	}
	add("created", created)
	add("updated", updated)
	add("deleted", deleted)
	add("flagged", flagged)
}

// SyncRun records a finished sync run.
func SyncRun(source, outcome string, d time.Duration) {
	syncRunDuration.WithLabelValues(source, outcome).Observe(d.Seconds())
}

// SyncWatermark publishes an advanced watermark.
func SyncWatermark(source, kind string, t time.Time) {
	syncWatermark.WithLabelValues(source, kind).Set(float64(t.Unix()))
}

// RemoteRequest records one request to a metadata source.
func RemoteRequest(endpoint, statusLabel string) {
	remoteRequests.WithLabelValues(endpoint, statusLabel).Inc()
}

// HTTPRequest records one served API request.
func HTTPRequest(method, route string, code int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestDuration.WithLabelValues(method, route, strconv.Itoa(code)).Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
