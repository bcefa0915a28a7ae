// Package harmony is the compatibility and stack harmony engine. It reads a
// tool catalog and a sparse pairwise score table and answers how well a set
// of tools works together.
//
// The engine never writes to its repositories and keeps no mutable state of
// its own, so one Engine may serve any number of concurrent callers.
package harmony

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/julianshen/stackharmony/internal/catalog"
	"github.com/julianshen/stackharmony/internal/observability"
	"github.com/julianshen/stackharmony/internal/rules"
)

// NeutralScore stands in for a pair with no compatibility edge.
const NeutralScore = 50

// TrivialHarmony is the harmony of a stack with fewer than two tools.
const TrivialHarmony = 100

const tracerName = "github.com/julianshen/stackharmony/internal/harmony"

// Options holds the engine's tunable thresholds.
type Options struct {
	// RecommendThreshold is the minimum edge score counted by Recommend.
	RecommendThreshold int
	// RecommendLimit applies when a query passes a non-positive limit.
	RecommendLimit int
	// LowScoreWarning flags known pairs scoring below it. Advisory only.
	LowScoreWarning int
	// HarmonyAdvisory triggers a recommendation when harmony falls below it.
	HarmonyAdvisory int
	// Parallelism bounds the goroutines used by ScoreStacks.
	Parallelism int
}

// DefaultOptions returns the reference thresholds.
func DefaultOptions() Options {
	return Options{
		RecommendThreshold: 80,
		RecommendLimit:     10,
		LowScoreWarning:    30,
		HarmonyAdvisory:    60,
		Parallelism:        4,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithOptions replaces the thresholds. Zero fields keep their defaults.
func WithOptions(o Options) Option {
	return func(e *Engine) {
		d := e.opts
		if o.RecommendThreshold > 0 {
			d.RecommendThreshold = o.RecommendThreshold
		}
		if o.RecommendLimit > 0 {
			d.RecommendLimit = o.RecommendLimit
		}
		if o.LowScoreWarning > 0 {
			d.LowScoreWarning = o.LowScoreWarning
		}
		if o.HarmonyAdvisory > 0 {
			d.HarmonyAdvisory = o.HarmonyAdvisory
		}
		if o.Parallelism > 0 {
			d.Parallelism = o.Parallelism
		}
		e.opts = d
	}
}

// WithAdvisories sets the low-score warning and harmony advisory thresholds
// verbatim. Scores are never negative, so 0 turns the advisory off.
func WithAdvisories(lowScore, overall int) Option {
	return func(e *Engine) {
		e.opts.LowScoreWarning = lowScore
		e.opts.HarmonyAdvisory = overall
	}
}

// WithRules sets the validation rule table. Default: rules.Default().
func WithRules(r *rules.Set) Option {
	return func(e *Engine) {
		if r != nil {
			e.rules = r
		}
	}
}

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}

// Engine scores, validates and ranks tool stacks.
type Engine struct {
	tools      catalog.ToolRepository
	categories catalog.CategoryRepository
	compat     catalog.CompatibilityRepository

	rules   *rules.Set
	opts    Options
	log     *zap.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
}

// New creates an engine over the given repositories.
func New(tools catalog.ToolRepository, categories catalog.CategoryRepository, compat catalog.CompatibilityRepository, opts ...Option) *Engine {
	e := &Engine{
		tools:      tools,
		categories: categories,
		compat:     compat,
		opts:       DefaultOptions(),
		log:        zap.NewNop(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rules == nil {
		e.rules = rules.Default()
	}
	return e
}

// FromBackend creates an engine over b's repositories.
func FromBackend(b catalog.Backend, opts ...Option) *Engine {
	return New(b.Tools(), b.Categories(), b.Compatibilities(), opts...)
}

// Options returns the effective thresholds.
func (e *Engine) Options() Options { return e.opts }

// Lookup returns the edge for the unordered pair (a, b), or nil when the
// pair has no edge. Asking about a tool paired with itself is invalid.
func (e *Engine) Lookup(ctx context.Context, a, b int64) (c *catalog.Compatibility, err error) {
	ctx, done := e.start(ctx, "lookup", attribute.Int64("tool_a", a), attribute.Int64("tool_b", b))
	defer func() { done(err) }()

	if a == b {
		return nil, fmt.Errorf("%w: tool %d cannot be paired with itself", catalog.ErrInvalid, a)
	}
	c, err = e.compat.GetByPair(ctx, a, b)
	if err != nil {
		return nil, fmt.Errorf("lookup %d/%d: %w", a, b, err)
	}
	return c, nil
}

// start opens a span and returns a func that ends it and records metrics.
func (e *Engine) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	began := time.Now()
	ctx, span := e.tracer.Start(ctx, "harmony."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		e.metrics.ObserveEngine(op, time.Since(began), err)
	}
}
