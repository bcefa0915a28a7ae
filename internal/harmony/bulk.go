package harmony

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/julianshen/stackharmony/internal/catalog"
)

// PairScore is one entry of a compatibility matrix.
type PairScore struct {
	ToolOneID  int64              `json:"tool_one_id"`
	ToolTwoID  int64              `json:"tool_two_id"`
	Score      int                `json:"score"`
	Notes      string             `json:"notes,omitempty"`
	Known      bool               `json:"known"`
	Verified   bool               `json:"verified"`
	Difficulty catalog.Difficulty `json:"difficulty,omitempty"`
}

// edgeIndex maps canonical pairs inside a tool set to their edge.
type edgeIndex map[catalog.Pair]catalog.Compatibility

// fetchEdges loads every edge with both ends in ids using one batched read.
func (e *Engine) fetchEdges(ctx context.Context, ids []int64) (edgeIndex, error) {
	edges, err := e.compat.GetAllTouching(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch edges: %w", err)
	}
	e.metrics.ObserveEdgeFetch(len(edges))

	in := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		in[id] = struct{}{}
	}
	idx := make(edgeIndex, len(edges))
	for _, edge := range edges {
		_, one := in[edge.ToolOneID]
		_, two := in[edge.ToolTwoID]
		if !one || !two {
			continue
		}
		p := edge.Pair()
		// Edges arrive ordered by id; the oldest wins if a store holds duplicates.
		if _, dup := idx[p]; !dup {
			idx[p] = edge
		}
	}
	return idx, nil
}

// pairs expands ids (already de-duplicated) into every unordered pair in
// input order, resolving scores from idx.
func pairs(ids []int64, idx edgeIndex) []PairScore {
	n := len(ids)
	if n < 2 {
		return []PairScore{}
	}
	out := make([]PairScore, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			ps := PairScore{ToolOneID: ids[i], ToolTwoID: ids[j], Score: NeutralScore}
			if edge, ok := idx[catalog.NewPair(ids[i], ids[j])]; ok {
				ps.Score = edge.Score
				ps.Notes = edge.Notes
				ps.Known = true
				ps.Verified = edge.Verified
				ps.Difficulty = edge.Difficulty
			}
			out = append(out, ps)
		}
	}
	return out
}

// mean returns the rounded average score of ps, or TrivialHarmony when empty.
func mean(ps []PairScore) int {
	if len(ps) == 0 {
		return TrivialHarmony
	}
	sum := 0
	for _, p := range ps {
		sum += p.Score
	}
	return int(math.Round(float64(sum) / float64(len(ps))))
}

// Bulk returns the full pairwise matrix for ids: n*(n-1)/2 entries for n
// distinct ids, ordered (ids[i], ids[j]) for i < j. Pairs without an edge
// carry NeutralScore and Known=false. All edges are fetched in one call.
func (e *Engine) Bulk(ctx context.Context, ids []int64) (out []PairScore, err error) {
	ids = catalog.UniqueIDs(ids)
	ctx, done := e.start(ctx, "bulk", attribute.Int("tools", len(ids)))
	defer func() { done(err) }()
	e.metrics.ObserveStack(len(ids))

	if len(ids) < 2 {
		return []PairScore{}, nil
	}
	idx, err := e.fetchEdges(ctx, ids)
	if err != nil {
		return nil, err
	}
	out = pairs(ids, idx)
	e.log.Debug("bulk matrix resolved",
		zap.Int("tools", len(ids)),
		zap.Int("pairs", len(out)),
		zap.Int("known", len(idx)))
	return out, nil
}

// Harmony returns the rounded mean pair score of ids, 0..100. Stacks with
// fewer than two distinct tools (including the empty stack) score
// TrivialHarmony. Unknown ids contribute neutral pairs.
func (e *Engine) Harmony(ctx context.Context, ids []int64) (score int, err error) {
	ids = catalog.UniqueIDs(ids)
	ctx, done := e.start(ctx, "harmony", attribute.Int("tools", len(ids)))
	defer func() { done(err) }()
	e.metrics.ObserveStack(len(ids))

	score, _, err = e.harmony(ctx, ids)
	return score, err
}

// harmony scores de-duplicated ids and also returns the resolved pairs.
func (e *Engine) harmony(ctx context.Context, ids []int64) (int, []PairScore, error) {
	if len(ids) < 2 {
		return TrivialHarmony, []PairScore{}, nil
	}
	idx, err := e.fetchEdges(ctx, ids)
	if err != nil {
		return 0, nil, err
	}
	ps := pairs(ids, idx)
	score := mean(ps)
	e.log.Debug("harmony computed",
		zap.Int("tools", len(ids)),
		zap.Int("known_pairs", len(idx)),
		zap.Int("score", score))
	return score, ps, nil
}
