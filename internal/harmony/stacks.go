package harmony

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/julianshen/stackharmony/internal/catalog"
)

// StackScore is the harmony of one stack scored by ScoreStacks.
type StackScore struct {
	ToolIDs []int64 `json:"tool_ids"`
	Harmony int     `json:"harmony"`
	Pairs   int     `json:"pairs"`
	Known   int     `json:"known_pairs"`
}

// Comparison ranks candidate stacks against each other.
type Comparison struct {
	Stacks []StackScore `json:"stacks"`
	// Best indexes the highest-scoring stack; the earliest wins ties.
	// It is -1 when there are no stacks.
	Best int `json:"best"`
}

// ScoreStacks computes the harmony of many stacks concurrently. Results are
// aligned with stacks. The first failure cancels the remaining work.
func (e *Engine) ScoreStacks(ctx context.Context, stacks [][]int64) (out []StackScore, err error) {
	ctx, done := e.start(ctx, "score_stacks", attribute.Int("stacks", len(stacks)))
	defer func() { done(err) }()

	out = make([]StackScore, len(stacks))
	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(e.opts.Parallelism)
	for i, stack := range stacks {
		p.Go(func(ctx context.Context) error {
			ids := catalog.UniqueIDs(stack)
			score, ps, err := e.harmony(ctx, ids)
			if err != nil {
				return fmt.Errorf("stack %d: %w", i, err)
			}
			known := 0
			for _, pair := range ps {
				if pair.Known {
					known++
				}
			}
			out[i] = StackScore{ToolIDs: ids, Harmony: score, Pairs: len(ps), Known: known}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Compare scores stacks and picks the most harmonious one.
func (e *Engine) Compare(ctx context.Context, stacks [][]int64) (*Comparison, error) {
	scores, err := e.ScoreStacks(ctx, stacks)
	if err != nil {
		return nil, err
	}
	c := &Comparison{Stacks: scores, Best: -1}
	for i, s := range scores {
		if c.Best < 0 || s.Harmony > scores[c.Best].Harmony {
			c.Best = i
		}
	}
	return c, nil
}
