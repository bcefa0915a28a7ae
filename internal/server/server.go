// Package server exposes the catalog and the harmony engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/julianshen/stackharmony/internal/catalog"
	"github.com/julianshen/stackharmony/internal/config"
	"github.com/julianshen/stackharmony/internal/harmony"
	"github.com/julianshen/stackharmony/internal/observability"
)

// ServiceName identifies the server in traces.
const ServiceName = "stackharmony"

// Request size bounds for the stack endpoints.
const (
	MaxStackSize = 200
	MaxStacks    = 50
)

// Deps are the collaborators a Server needs. Logger, Metrics and Gatherer
// are optional.
type Deps struct {
	Backend  catalog.Backend
	Engine   *harmony.Engine
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer
	Config   config.ServerConfig
}

// Server is the HTTP API.
type Server struct {
	backend catalog.Backend
	engine  *harmony.Engine
	log     *zap.Logger
	metrics *observability.Metrics
	cfg     config.ServerConfig
	router  *gin.Engine
}

// New builds the router. Call Run to serve, or use Handler in tests.
func New(d Deps) *Server {
	s := &Server{
		backend: d.Backend,
		engine:  d.Engine,
		log:     d.Logger,
		metrics: d.Metrics,
		cfg:     d.Config,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}

	r := gin.New()
	r.Use(s.recoveryMiddleware())
	r.Use(requestIDMiddleware())
	r.Use(otelgin.Middleware(ServiceName))
	r.Use(s.accessLogMiddleware())

	r.GET("/health", s.health)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/v1")
	if d.Config.RateLimit > 0 {
		v1.Use(s.rateLimitMiddleware(rate.NewLimiter(rate.Limit(d.Config.RateLimit), d.Config.RateBurst)))
	}
	s.setupRoutes(v1)

	s.router = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on cfg.Addr until ctx is cancelled, then drains in-flight
// requests for up to the configured grace period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve %s: %w", s.cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	grace := s.cfg.ShutdownGrace()
	if grace <= 0 {
		grace = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	s.log.Info("shutting down", zap.Duration("grace", grace))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
