package heuristic

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/julianshen/stackharmony/internal/catalog"
	"github.com/julianshen/stackharmony/internal/observability"
)

// Note attached to every generated edge.
const Note = "heuristic estimate"

// Result summarizes one Fill run.
type Result struct {
	Tools    int `json:"tools"`
	Pairs    int `json:"pairs"`
	Existing int `json:"existing"`
	Created  int `json:"created"`
}

// Generator writes estimated edges for pairs that have none. It never
// touches an existing edge, curated or not.
type Generator struct {
	tools       catalog.ToolRepository
	compat      catalog.CompatibilityRepository
	log         *zap.Logger
	metrics     *observability.Metrics
	parallelism int
}

// Option configures a Generator.
type Option func(*Generator)

func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.log = l
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// WithParallelism bounds the estimating goroutines. Default: 4.
func WithParallelism(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.parallelism = n
		}
	}
}

// NewGenerator creates a generator over the given repositories.
func NewGenerator(tools catalog.ToolRepository, compat catalog.CompatibilityRepository, opts ...Option) *Generator {
	g := &Generator{
		tools:       tools,
		compat:      compat,
		log:         zap.NewNop(),
		parallelism: 4,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Fill creates an unverified edge for every pair of ids that lacks one.
// Unknown ids are ignored. Tools and existing edges are each loaded with a
// single batched read; estimates run concurrently and writes run in pair
// order.
func (g *Generator) Fill(ctx context.Context, ids []int64) (Result, error) {
	var res Result
	tools, err := g.tools.GetByIDs(ctx, catalog.UniqueIDs(ids))
	if err != nil {
		return res, fmt.Errorf("load tools: %w", err)
	}
	res.Tools = len(tools)
	if len(tools) < 2 {
		return res, nil
	}

	known := make([]int64, len(tools))
	for i, t := range tools {
		known[i] = t.ID
	}
	edges, err := g.compat.GetAllTouching(ctx, known)
	if err != nil {
		return res, fmt.Errorf("load edges: %w", err)
	}
	have := make(map[catalog.Pair]struct{}, len(edges))
	for _, e := range edges {
		have[e.Pair()] = struct{}{}
	}

	p := pool.NewWithResults[catalog.Compatibility]().
		WithContext(ctx).
		WithFirstError().
		WithMaxGoroutines(g.parallelism)
	for i := 0; i < len(tools); i++ {
		for j := i + 1; j < len(tools); j++ {
			res.Pairs++
			a, b := tools[i], tools[j]
			if _, ok := have[catalog.NewPair(a.ID, b.ID)]; ok {
				res.Existing++
				continue
			}
			p.Go(func(ctx context.Context) (catalog.Compatibility, error) {
				if err := ctx.Err(); err != nil {
					return catalog.Compatibility{}, err
				}
				pair := catalog.NewPair(a.ID, b.ID)
				return catalog.Compatibility{
					ToolOneID: pair.Lo,
					ToolTwoID: pair.Hi,
					Score:     Estimate(a, b),
					Notes:     Note,
				}, nil
			})
		}
	}
	estimates, err := p.Wait()
	if err != nil {
		return res, err
	}
	slices.SortFunc(estimates, func(x, y catalog.Compatibility) int {
		if c := cmp.Compare(x.ToolOneID, y.ToolOneID); c != 0 {
			return c
		}
		return cmp.Compare(x.ToolTwoID, y.ToolTwoID)
	})

	for i := range estimates {
		e := &estimates[i]
		if err := g.compat.Create(ctx, e); err != nil {
			if errors.Is(err, catalog.ErrDuplicate) {
				// A curator got there first.
				res.Existing++
				continue
			}
			g.metrics.EdgesGenerated(res.Created)
			return res, fmt.Errorf("create edge %s: %w", e.Pair(), err)
		}
		res.Created++
	}
	g.metrics.EdgesGenerated(res.Created)
	g.log.Info("heuristic edges generated",
		zap.Int("tools", res.Tools),
		zap.Int("pairs", res.Pairs),
		zap.Int("existing", res.Existing),
		zap.Int("created", res.Created))
	return res, nil
}
