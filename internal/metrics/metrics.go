// Package metrics exposes the daemon's prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quicks_cache_hits_total",
		Help: "Loader reads served from the persisted cache.",
	}, []string{"collection"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quicks_cache_misses_total",
		Help: "Loader reads that found no usable cache entry.",
	}, []string{"collection"})

	RemoteFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quicks_remote_fetches_total",
		Help: "Requests issued to the remote source.",
	}, []string{"collection"})

	RemoteFetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quicks_remote_fetch_failures_total",
		Help: "Remote source requests that failed.",
	}, []string{"collection"})

	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quicks_http_requests_total",
		Help: "HTTP API requests handled.",
	}, []string{"method", "path", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quicks_http_request_duration_seconds",
		Help:    "HTTP API request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Handler serves the default prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
