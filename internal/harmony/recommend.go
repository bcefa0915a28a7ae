package harmony

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/julianshen/stackharmony/internal/catalog"
)

// RecommendQuery asks for additions to a partial stack.
type RecommendQuery struct {
	ToolIDs []int64 `json:"tool_ids"`
	// CategoryID restricts candidates to one category when positive.
	CategoryID int64 `json:"category_id,omitempty"`
	// Limit caps the result; non-positive means the engine default.
	Limit int `json:"limit,omitempty"`
}

// Suggestion is a ranked candidate. Score is the sum of the qualifying edge
// scores between the candidate and the stack tools listed in MatchedWith.
type Suggestion struct {
	Tool        catalog.Tool `json:"tool"`
	Score       int          `json:"score"`
	MatchedWith []int64      `json:"matched_with"`
}

// Recommend ranks tools outside the stack by their accumulated strong edges
// to stack members. Ties fall back to maturity plus popularity, then id.
func (e *Engine) Recommend(ctx context.Context, q RecommendQuery) (out []Suggestion, err error) {
	ids := catalog.UniqueIDs(q.ToolIDs)
	ctx, done := e.start(ctx, "recommend",
		attribute.Int("tools", len(ids)),
		attribute.Int64("category_id", q.CategoryID))
	defer func() { done(err) }()
	e.metrics.ObserveStack(len(ids))

	limit := q.Limit
	if limit <= 0 {
		limit = e.opts.RecommendLimit
	}
	if len(ids) == 0 {
		return []Suggestion{}, nil
	}

	edges, err := e.compat.GetAllTouching(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch edges: %w", err)
	}
	e.metrics.ObserveEdgeFetch(len(edges))

	inStack := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		inStack[id] = struct{}{}
	}
	scores := make(map[int64]int)
	matched := make(map[int64][]int64)
	seen := make(map[catalog.Pair]struct{}, len(edges))
	for _, edge := range edges {
		if edge.Score < e.opts.RecommendThreshold {
			continue
		}
		p := edge.Pair()
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		_, one := inStack[edge.ToolOneID]
		_, two := inStack[edge.ToolTwoID]
		if one == two {
			// Both ends already in the stack, or neither.
			continue
		}
		anchor, candidate := edge.ToolOneID, edge.ToolTwoID
		if two {
			anchor, candidate = candidate, anchor
		}
		scores[candidate] += edge.Score
		matched[candidate] = append(matched[candidate], anchor)
	}
	if len(scores) == 0 {
		return []Suggestion{}, nil
	}

	candidates, err := e.candidates(ctx, q.CategoryID, scores)
	if err != nil {
		return nil, err
	}

	out = make([]Suggestion, 0, len(candidates))
	for _, t := range candidates {
		with := matched[t.ID]
		slices.Sort(with)
		out = append(out, Suggestion{Tool: t, Score: scores[t.ID], MatchedWith: with})
	}
	slices.SortFunc(out, func(a, b Suggestion) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Tool.Quality(), a.Tool.Quality()); c != 0 {
			return c
		}
		return cmp.Compare(a.Tool.ID, b.Tool.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}

	e.log.Debug("recommendations ranked",
		zap.Int("tools", len(ids)),
		zap.Int("edges", len(edges)),
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(out)))
	return out, nil
}

// candidates loads the scored tools, restricted to categoryID when positive.
func (e *Engine) candidates(ctx context.Context, categoryID int64, scores map[int64]int) ([]catalog.Tool, error) {
	if categoryID > 0 {
		inCat, err := e.tools.GetByCategory(ctx, categoryID)
		if err != nil {
			return nil, fmt.Errorf("load category %d: %w", categoryID, err)
		}
		out := inCat[:0]
		for _, t := range inCat {
			if _, ok := scores[t.ID]; ok {
				out = append(out, t)
			}
		}
		return out, nil
	}

	ids := slices.Sorted(maps.Keys(scores))
	tools, err := e.tools.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	return tools, nil
}
