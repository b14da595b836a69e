package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the counters and histograms served on /metrics. A single
// instance is registered on the default registry at process startup. Only
// WireCommandLatency is updated outside tests (by internal/wire's Server);
// the concurrency core and the cache trackers update none of the others.
var (
	RowsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fastprop",
		Name:      "rows_processed_total",
		Help:      "Rows transformed by the concurrency core across all partitions.",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fastprop",
		Name:      "cache_hits_total",
		Help:      "Fingerprint cache hits, by tracker kind.",
	}, []string{"tracker"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fastprop",
		Name:      "cache_misses_total",
		Help:      "Fingerprint cache misses, by tracker kind.",
	}, []string{"tracker"})

	FingerprintRecomputeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fastprop",
		Name:      "fingerprint_recompute_seconds",
		Help:      "Wall-clock time spent rebuilding a fingerprinted artifact after a cache miss.",
		Buckets:   prometheus.DefBuckets,
	})

	WireCommandLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fastprop",
		Name:      "wire_command_seconds",
		Help:      "Latency of one dispatched TCP command, by command name.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"command"})

	WorkerPartitionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fastprop",
		Name:      "worker_partition_seconds",
		Help:      "Wall-clock time a single worker spent on its row partition.",
		Buckets:   prometheus.DefBuckets,
	})
)

// MetricsHandler returns the HTTP handler to mount on the loopback-only
// /metrics endpoint (§AMBIENT).
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
