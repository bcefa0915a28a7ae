package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/stackharmony/internal/cache"
	"github.com/julianshen/stackharmony/internal/catalog"
	"github.com/julianshen/stackharmony/internal/catalog/catalogtest"
	"github.com/julianshen/stackharmony/internal/catalog/memory"
	"github.com/julianshen/stackharmony/internal/config"
	"github.com/julianshen/stackharmony/internal/harmony"
	"github.com/julianshen/stackharmony/internal/observability"
	"github.com/julianshen/stackharmony/internal/rules"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	srv *Server
	fx  catalogtest.Fixture
	reg *prometheus.Registry
}

func newTestEnv(t *testing.T, cfg config.ServerConfig) *testEnv {
	t.Helper()
	mem := memory.New()
	fx := catalogtest.Seed(t, mem)
	catalogtest.SeedEdges(t, mem, fx)

	set, err := rules.Parse([]byte("roles:\n  - name: database\n    categories: [Database]\n"))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics := observability.New(reg)
	backend := cache.Wrap(mem, cache.New())
	metrics.RegisterCache(backend.Cache())

	srv := New(Deps{
		Backend:  backend,
		Engine:   harmony.FromBackend(backend, harmony.WithRules(set), harmony.WithMetrics(metrics)),
		Metrics:  metrics,
		Gatherer: reg,
		Config:   cfg,
	})
	return &testEnv{srv: srv, fx: fx, reg: reg}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, w.Code, w.Body.String())
	assert.Equal(t, code, decode[ErrorResponse](t, w).Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})
	w := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})

	w := env.do(t, http.MethodGet, "/health", nil)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestListTools(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})

	w := env.do(t, http.MethodGet, "/v1/tools?per_page=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[catalog.ToolPage](t, w)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.Pages)
	assert.Len(t, page.Tools, 2)
	assert.True(t, page.HasNext)

	w = env.do(t, http.MethodGet, "/v1/tools?q=database", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = decode[catalog.ToolPage](t, w)
	assert.Equal(t, 2, page.Total)

	w = env.do(t, http.MethodGet, "/v1/tools?languages=typescript,go", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[catalog.ToolPage](t, w).Total)

	w = env.do(t, http.MethodGet, "/v1/tools?category_id=abc", nil)
	assertError(t, w, http.StatusBadRequest, CodeInvalidInput)
	w = env.do(t, http.MethodGet, "/v1/tools?min_maturity=11", nil)
	assertError(t, w, http.StatusBadRequest, CodeInvalidInput)
}

func TestToolCRUD(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})

	w := env.do(t, http.MethodGet, "/v1/tools/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "React", decode[catalog.Tool](t, w).Name)

	assertError(t, env.do(t, http.MethodGet, "/v1/tools/999", nil), http.StatusNotFound, CodeNotFound)
	assertError(t, env.do(t, http.MethodGet, "/v1/tools/abc", nil), http.StatusBadRequest, CodeInvalidInput)

	w = env.do(t, http.MethodPost, "/v1/tools", map[string]any{
		"name": "Vite", "category_id": env.fx.Frontend.ID, "maturity_score": 8, "popularity_score": 9,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	vite := decode[catalog.Tool](t, w)
	assert.Positive(t, vite.ID)

	assertError(t, env.do(t, http.MethodPost, "/v1/tools", map[string]any{"name": "vite", "category_id": env.fx.Frontend.ID}),
		http.StatusConflict, CodeDuplicate)
	assertError(t, env.do(t, http.MethodPost, "/v1/tools", map[string]any{"category_id": 1}),
		http.StatusBadRequest, CodeInvalidInput)
	assertError(t, env.do(t, http.MethodPost, "/v1/tools", map[string]any{"name": "NoCat"}),
		http.StatusBadRequest, CodeInvalidInput)
	assertError(t, env.do(t, http.MethodPost, "/v1/tools", "{not json"),
		http.StatusBadRequest, CodeInvalidInput)

	vite.Version = "5.2.0"
	w = env.do(t, http.MethodPut, "/v1/tools/"+itoa(vite.ID), vite)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = env.do(t, http.MethodGet, "/v1/tools/"+itoa(vite.ID), nil)
	assert.Equal(t, "5.2.0", decode[catalog.Tool](t, w).Version)

	w = env.do(t, http.MethodDelete, "/v1/tools/"+itoa(vite.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assertError(t, env.do(t, http.MethodGet, "/v1/tools/"+itoa(vite.ID), nil), http.StatusNotFound, CodeNotFound)
	assertError(t, env.do(t, http.MethodDelete, "/v1/tools/"+itoa(vite.ID), nil), http.StatusNotFound, CodeNotFound)
}

func TestCategoriesAndStats(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})

	w := env.do(t, http.MethodPost, "/v1/categories", map[string]string{"name": "Testing"})
	require.Equal(t, http.StatusCreated, w.Code)
	assertError(t, env.do(t, http.MethodPost, "/v1/categories", map[string]string{"name": "testing"}),
		http.StatusConflict, CodeDuplicate)

	w = env.do(t, http.MethodGet, "/v1/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]catalog.Category](t, w)["categories"], 4)

	w = env.do(t, http.MethodGet, "/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[catalog.Stats](t, w)
	assert.Equal(t, 5, stats.TotalTools)
	assert.Equal(t, 2, stats.CategoryBreakdown["Database"])
}

func TestCompatibilityEndpoints(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})
	fx := env.fx

	w := env.do(t, http.MethodGet, "/v1/compatibility?a="+itoa(fx.Next.ID)+"&b="+itoa(fx.React.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 95, decode[catalog.Compatibility](t, w).Score)

	path := "/v1/compatibility?a=" + itoa(fx.React.ID) + "&b=" + itoa(fx.Mongo.ID)
	assertError(t, env.do(t, http.MethodGet, path, nil), http.StatusNotFound, CodeNotFound)
	assertError(t, env.do(t, http.MethodGet, "/v1/compatibility?a=1&b=1", nil), http.StatusBadRequest, CodeInvalidInput)
	assertError(t, env.do(t, http.MethodGet, "/v1/compatibility?a=1", nil), http.StatusBadRequest, CodeInvalidInput)

	edge := map[string]any{"tool_one_id": fx.Mongo.ID, "tool_two_id": fx.React.ID, "compatibility_score": 45}
	w = env.do(t, http.MethodPost, "/v1/compatibility", edge)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[catalog.Compatibility](t, w)
	assert.Equal(t, fx.React.ID, created.ToolOneID, "stored canonically")

	assertError(t, env.do(t, http.MethodPost, "/v1/compatibility", edge), http.StatusConflict, CodeDuplicate)

	w = env.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 45, decode[catalog.Compatibility](t, w).Score)

	edge["compatibility_score"] = 55
	w = env.do(t, http.MethodPut, "/v1/compatibility", edge)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = env.do(t, http.MethodGet, path, nil)
	assert.Equal(t, 55, decode[catalog.Compatibility](t, w).Score)

	assertError(t, env.do(t, http.MethodPut, "/v1/compatibility",
		map[string]any{"tool_one_id": fx.React.ID, "tool_two_id": fx.Express.ID, "compatibility_score": 10}),
		http.StatusNotFound, CodeNotFound)
	assertError(t, env.do(t, http.MethodPost, "/v1/compatibility",
		map[string]any{"tool_one_id": fx.React.ID, "tool_two_id": fx.Express.ID, "compatibility_score": 101}),
		http.StatusBadRequest, CodeInvalidInput)
}

func TestStackEndpoints(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})
	fx := env.fx

	w := env.do(t, http.MethodPost, "/v1/stacks/harmony", map[string]any{"tool_ids": []int64{fx.React.ID, fx.Next.ID}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 95, decode[harmonyResponse](t, w).Score)

	w = env.do(t, http.MethodPost, "/v1/stacks/harmony", map[string]any{"tool_ids": []int64{}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, harmony.TrivialHarmony, decode[harmonyResponse](t, w).Score)

	w = env.do(t, http.MethodPost, "/v1/stacks/validate", map[string]any{"tool_ids": []int64{fx.Postgres.ID, fx.Mongo.ID}})
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[harmony.ValidationResult](t, w)
	assert.False(t, res.Valid)
	assert.Len(t, res.Conflicts, 1)

	w = env.do(t, http.MethodPost, "/v1/stacks/matrix", map[string]any{"tool_ids": []int64{1, 2, 3, 4}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[matrixResponse](t, w).Pairs, 6)

	w = env.do(t, http.MethodPost, "/v1/stacks/recommend", map[string]any{"tool_ids": []int64{fx.Express.ID}, "limit": 1})
	require.Equal(t, http.StatusOK, w.Code)
	rec := decode[recommendResponse](t, w)
	require.Len(t, rec.Suggestions, 1)
	assert.Equal(t, "PostgreSQL", rec.Suggestions[0].Tool.Name)

	w = env.do(t, http.MethodPost, "/v1/stacks/compare", map[string]any{"stacks": [][]int64{{4, 5}, {1, 2}}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[harmony.Comparison](t, w).Best)
}

func TestStackEndpointsRejectBadInput(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})

	for _, path := range []string{"/v1/stacks/harmony", "/v1/stacks/validate", "/v1/stacks/matrix"} {
		assertError(t, env.do(t, http.MethodPost, path, "{}"), http.StatusBadRequest, CodeInvalidInput)
		assertError(t, env.do(t, http.MethodPost, path, "nope"), http.StatusBadRequest, CodeInvalidInput)
	}

	tooMany := make([]int64, MaxStackSize+1)
	for i := range tooMany {
		tooMany[i] = int64(i + 1)
	}
	assertError(t, env.do(t, http.MethodPost, "/v1/stacks/harmony", map[string]any{"tool_ids": tooMany}),
		http.StatusBadRequest, CodeInvalidInput)
	assertError(t, env.do(t, http.MethodPost, "/v1/stacks/recommend", map[string]any{"tool_ids": []int64{1}, "limit": -1}),
		http.StatusBadRequest, CodeInvalidInput)
	assertError(t, env.do(t, http.MethodPost, "/v1/stacks/compare", map[string]any{"stacks": make([][]int64, MaxStacks+1)}),
		http.StatusBadRequest, CodeInvalidInput)
}

type downCompat struct{ catalog.CompatibilityRepository }

func (downCompat) GetAllTouching(context.Context, []int64) ([]catalog.Compatibility, error) {
	return nil, errors.New("connection refused")
}

func TestStoreFailureIs500(t *testing.T) {
	mem := memory.New()
	fx := catalogtest.Seed(t, mem)
	srv := New(Deps{
		Backend: mem,
		Engine:  harmony.New(mem.Tools(), mem.Categories(), downCompat{mem.Compatibilities()}),
	})
	env := &testEnv{srv: srv, fx: fx}

	w := env.do(t, http.MethodPost, "/v1/stacks/harmony", map[string]any{"tool_ids": []int64{fx.React.ID, fx.Next.ID}})
	assertError(t, w, http.StatusInternalServerError, CodeStoreUnavailable)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{RateLimit: 0.001, RateBurst: 1})

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/v1/stats", nil).Code)
	w := env.do(t, http.MethodGet, "/v1/stats", nil)
	assertError(t, w, http.StatusTooManyRequests, CodeRateLimited)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// Health and metrics are outside the limited group.
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})
	env.do(t, http.MethodPost, "/v1/stacks/harmony", map[string]any{"tool_ids": []int64{1, 2}})

	w := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "stackharmony_http_requests_total")
	assert.Contains(t, body, `route="/v1/stacks/harmony"`)
	assert.Contains(t, body, "stackharmony_engine_operations_total")
	assert.Contains(t, body, "stackharmony_cache_hits_total")
}

func TestUnmatchedRoute(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{})
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/v2/nothing", nil).Code)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{Addr: "127.0.0.1:0", ShutdownGraceSeconds: 1})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- env.srv.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunReportsListenErrors(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{Addr: "256.0.0.1:bad"})
	err := env.srv.Run(context.Background())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "serve "))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
