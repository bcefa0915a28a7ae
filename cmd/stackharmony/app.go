// cmd/stackharmony/app.go
package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/julianshen/stackharmony/internal/cache"
	"github.com/julianshen/stackharmony/internal/catalog"
	"github.com/julianshen/stackharmony/internal/catalog/memory"
	"github.com/julianshen/stackharmony/internal/config"
	"github.com/julianshen/stackharmony/internal/harmony"
	"github.com/julianshen/stackharmony/internal/observability"
	"github.com/julianshen/stackharmony/internal/rules"
	"github.com/julianshen/stackharmony/internal/seed"
	"github.com/julianshen/stackharmony/internal/store"
)

// app is the wired object graph shared by every subcommand.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	backend  catalog.Backend
	engine   *harmony.Engine
	metrics  *observability.Metrics
	registry *prometheus.Registry
}

// openApp connects the configured backend, wraps it with the read cache and
// builds the engine on top.
func openApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	backend, err := openBackend(ctx, cfg.Store, log)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.New(reg)

	if cfg.Cache.Enabled {
		c := cache.New(cache.WithMaxEntries(cfg.Cache.MaxEntries), cache.WithTTL(cfg.Cache.TTL()))
		metrics.RegisterCache(c)
		backend = cache.Wrap(backend, c)
	}

	ruleSet, err := rules.Load(cfg.Engine.RulesFile)
	if err != nil {
		closeLogged(backend, log)
		return nil, err
	}

	engine := harmony.FromBackend(backend,
		harmony.WithOptions(harmony.Options{
			RecommendThreshold: cfg.Engine.RecommendThreshold,
			RecommendLimit:     cfg.Engine.RecommendLimit,
			Parallelism:        cfg.Engine.Parallelism,
		}),
		harmony.WithAdvisories(cfg.Engine.LowScoreWarning, cfg.Engine.HarmonyAdvisory),
		harmony.WithRules(ruleSet),
		harmony.WithLogger(log.Named("harmony")),
		harmony.WithMetrics(metrics),
	)

	log.Debug("backend ready",
		zap.String("driver", cfg.Store.Driver),
		zap.Bool("cache", cfg.Cache.Enabled))
	return &app{
		cfg:      cfg,
		log:      log,
		backend:  backend,
		engine:   engine,
		metrics:  metrics,
		registry: reg,
	}, nil
}

// openBackend connects the configured store. The memory driver starts from
// the built-in sample catalog.
func openBackend(ctx context.Context, sc config.StoreConfig, log *zap.Logger) (catalog.Backend, error) {
	if sc.Driver == "memory" {
		mem := memory.New()
		doc, err := seed.Builtin()
		if err != nil {
			return nil, err
		}
		if _, err := seed.Apply(ctx, mem, doc, log); err != nil {
			return nil, fmt.Errorf("seeding memory catalog: %w", err)
		}
		return mem, nil
	}
	dsn, err := sc.ResolveDSN()
	if err != nil {
		return nil, fmt.Errorf("store dsn: %w", err)
	}
	s, err := store.Open(ctx, sc.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", sc.Driver, err)
	}
	return s, nil
}

func (a *app) Close() error {
	return a.backend.Close()
}

// withApp opens the app for the duration of fn.
func (c *cli) withApp(ctx context.Context, fn func(a *app) error) error {
	a, err := openApp(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	defer closeLogged(a, c.log)
	return fn(a)
}

// closeLogged closes cl and logs a failure; there is no caller left to return it to.
func closeLogged(cl io.Closer, log *zap.Logger) {
	if err := cl.Close(); err != nil {
		log.Warn("closing backend", zap.Error(err))
	}
}

// allToolIDs pages through the whole catalog.
func (a *app) allToolIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	q := catalog.ToolQuery{Page: 1, PerPage: catalog.MaxPerPage}
	for {
		page, err := a.backend.Tools().Search(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, t := range page.Tools {
			ids = append(ids, t.ID)
		}
		if !page.HasNext {
			return ids, nil
		}
		q.Page++
	}
}
