package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/stackharmony/internal/cache"
)

func TestObserveEngine(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveEngine("harmony", time.Millisecond, nil)
	m.ObserveEngine("harmony", time.Millisecond, nil)
	m.ObserveEngine("harmony", time.Millisecond, errors.New("down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.engineOps.WithLabelValues("harmony", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.engineOps.WithLabelValues("harmony", "error")))
}

func TestObserveHTTPGroupsStatus(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveHTTP("GET", "/v1/tools/:id", 200, time.Millisecond)
	m.ObserveHTTP("GET", "/v1/tools/:id", 404, time.Millisecond)
	m.ObserveHTTP("GET", "/v1/tools/:id", 410, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/v1/tools/:id", "2xx")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/v1/tools/:id", "4xx")))
}

func TestCountersAccumulate(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RateLimited()
	m.EdgesGenerated(3)
	m.ObserveStack(4)
	m.ObserveEdgeFetch(10)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.edgesGenerated))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveEngine("x", time.Second, nil)
		m.ObserveStack(1)
		m.ObserveEdgeFetch(1)
		m.ObserveHTTP("GET", "/", 200, time.Second)
		m.RateLimited()
		m.EdgesGenerated(1)
		m.RegisterCache(cache.New())
	})
}

func TestRegisterCacheExportsStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	c := cache.New()
	m.RegisterCache(c)

	c.Set("a", 1)
	_, _ = c.Get("a")
	_, _ = c.Get("b")

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				values[mf.GetName()] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[mf.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, values["stackharmony_cache_hits_total"])
	assert.Equal(t, 1.0, values["stackharmony_cache_misses_total"])
	assert.Equal(t, 1.0, values["stackharmony_cache_entries"])
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
