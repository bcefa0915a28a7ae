// Package observability holds the Prometheus collectors shared by the engine
// and the HTTP server.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/julianshen/stackharmony/internal/cache"
)

const namespace = "stackharmony"

// Metrics is the set of collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	engineOps      *prometheus.CounterVec
	engineDuration *prometheus.HistogramVec
	stackSize      prometheus.Histogram
	edgesFetched   prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	rateLimited  prometheus.Counter

	edgesGenerated prometheus.Counter

	reg prometheus.Registerer
}

// New registers the collectors with reg. Pass prometheus.NewRegistry() in
// tests to avoid clashing with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		engineOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Engine operations by name and outcome.",
		}, []string{"op", "outcome"}),
		engineDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Engine operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"op"}),
		stackSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "stack_size",
			Help:      "Distinct tools per engine call.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 55, 89},
		}),
		edgesFetched: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "edges_fetched",
			Help:      "Compatibility rows returned by one batched fetch.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		edgesGenerated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "heuristic",
			Name:      "edges_created_total",
			Help:      "Unverified edges created by the heuristic generator.",
		}),
		reg: reg,
	}
}

// ObserveEngine records one engine call.
func (m *Metrics) ObserveEngine(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.engineOps.WithLabelValues(op, outcome).Inc()
	m.engineDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveStack records the size of a de-duplicated input set.
func (m *Metrics) ObserveStack(n int) {
	if m == nil {
		return
	}
	m.stackSize.Observe(float64(n))
}

// ObserveEdgeFetch records how many edges a batched fetch returned.
func (m *Metrics) ObserveEdgeFetch(n int) {
	if m == nil {
		return
	}
	m.edgesFetched.Observe(float64(n))
}

// ObserveHTTP records one served request. route is the matched pattern, not the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RateLimited counts a rejected request.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// EdgesGenerated counts heuristic edges written to the store.
func (m *Metrics) EdgesGenerated(n int) {
	if m == nil {
		return
	}
	m.edgesGenerated.Add(float64(n))
}

// RegisterCache exposes c's counters as collectors read at scrape time.
func (m *Metrics) RegisterCache(c *cache.Cache) {
	if m == nil || c == nil {
		return
	}
	f := promauto.With(m.reg)
	counter := func(name, help string, read func(cache.Stats) int64) {
		f.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(read(c.Stats())) })
	}
	counter("hits_total", "Cache hits.", func(s cache.Stats) int64 { return s.Hits })
	counter("misses_total", "Cache misses.", func(s cache.Stats) int64 { return s.Misses })
	counter("evictions_total", "Entries evicted by the LRU bound.", func(s cache.Stats) int64 { return s.Evictions })
	counter("invalidations_total", "Tag invalidations.", func(s cache.Stats) int64 { return s.Invalidations })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "entries",
		Help:      "Entries currently cached.",
	}, func() float64 { return float64(c.Len()) })
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
