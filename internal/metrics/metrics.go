// Package metrics exposes Prometheus collectors for the novel crawler.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlerItemsTotal          *prometheus.CounterVec
	crawlerBytesTotal          *prometheus.CounterVec
	crawlerFetchDuration       *prometheus.HistogramVec
	crawlerFetchRetriesTotal   *prometheus.CounterVec
	crawlerQueueDepth          prometheus.Gauge
	crawlerRateLimitDelay      *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times; every observer calls it.
func Init() {
	once.Do(func() {
		crawlerItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novelcrawler_items_total",
				Help: "Total number of work items processed, labeled by kind and status.",
			},
			[]string{"kind", "status"},
		)

		crawlerBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novelcrawler_bytes_total",
				Help: "Total number of bytes persisted, labeled by kind.",
			},
			[]string{"kind"},
		)

		crawlerFetchDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "novelcrawler_fetch_duration_seconds",
				Help:    "Histogram of fetch latencies, labeled by kind.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"kind"},
		)

		crawlerFetchRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novelcrawler_fetch_retries_total",
				Help: "Total number of fetch retries, labeled by kind.",
			},
			[]string{"kind"},
		)

		crawlerQueueDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "novelcrawler_queue_depth",
				Help: "Number of work items waiting in the queue.",
			},
		)

		crawlerRateLimitDelay = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "novelcrawler_rate_limit_delay_seconds",
				Help:    "Time spent waiting on the per-host rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"host"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveItem counts a processed work item.
func ObserveItem(kind, status string) {
	Init()
	crawlerItemsTotal.WithLabelValues(kind, status).Inc()
}

// ObserveBytes adds persisted bytes for a kind.
func ObserveBytes(kind string, n int) {
	Init()
	if n > 0 {
		crawlerBytesTotal.WithLabelValues(kind).Add(float64(n))
	}
}

// ObserveFetch records the latency of one fetch attempt.
func ObserveFetch(kind string, duration time.Duration) {
	Init()
	crawlerFetchDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveRetry counts a retried fetch.
func ObserveRetry(kind string) {
	Init()
	crawlerFetchRetriesTotal.WithLabelValues(kind).Inc()
}

// SetQueueDepth records the number of queued items.
func SetQueueDepth(n int) {
	Init()
	crawlerQueueDepth.Set(float64(n))
}

// ObserveRateLimitDelay records time spent waiting for a host token.
func ObserveRateLimitDelay(host string, delay time.Duration) {
	Init()
	crawlerRateLimitDelay.WithLabelValues(host).Observe(delay.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
