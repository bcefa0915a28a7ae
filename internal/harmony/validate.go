package harmony

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/julianshen/stackharmony/internal/catalog"
	"github.com/julianshen/stackharmony/internal/rules"
)

// Conflict is two tools competing for one exclusive role.
type Conflict struct {
	Role      string `json:"role"`
	ToolOneID int64  `json:"tool_one_id"`
	ToolOne   string `json:"tool_one"`
	ToolTwoID int64  `json:"tool_two_id"`
	ToolTwo   string `json:"tool_two"`
	Reason    string `json:"reason"`
}

// MissingDependency is a dependency rule the stack does not satisfy.
type MissingDependency struct {
	ToolID   int64  `json:"tool_id"`
	Tool     string `json:"tool"`
	Requires string `json:"requires"`
	Reason   string `json:"reason"`
}

// ValidationResult is the outcome of Validate. Valid is true iff Conflicts
// and Dependencies are both empty; warnings and recommendations are advisory.
type ValidationResult struct {
	Valid           bool                `json:"valid"`
	// HarmonyScore covers only tools found in the catalog. Harmony, given
	// the same ids, scores pairs with an unknown id as neutral instead.
	HarmonyScore    int                 `json:"harmony_score"`
	Conflicts       []Conflict          `json:"conflicts"`
	Dependencies    []MissingDependency `json:"dependencies"`
	Warnings        []string            `json:"warnings"`
	Recommendations []string            `json:"recommendations"`
}

// Validate checks a stack against the rule table. Unknown tool ids are
// reported as warnings and otherwise ignored, including in HarmonyScore.
func (e *Engine) Validate(ctx context.Context, ids []int64) (res *ValidationResult, err error) {
	ids = catalog.UniqueIDs(ids)
	ctx, done := e.start(ctx, "validate", attribute.Int("tools", len(ids)))
	defer func() { done(err) }()
	e.metrics.ObserveStack(len(ids))

	res = &ValidationResult{
		Conflicts:       []Conflict{},
		Dependencies:    []MissingDependency{},
		Warnings:        []string{},
		Recommendations: []string{},
	}

	stack, err := e.loadStack(ctx, ids, res)
	if err != nil {
		return nil, err
	}

	res.Conflicts = e.conflicts(stack)
	res.Dependencies = e.dependencies(stack, res)
	if len(stack) > 0 {
		e.coverage(stack, res)
	}

	known := make([]int64, len(stack))
	for i, m := range stack {
		known[i] = m.tool.ID
	}
	score, ps, err := e.harmony(ctx, known)
	if err != nil {
		return nil, err
	}
	res.HarmonyScore = score
	e.pairAdvice(stack, ps, res)

	res.Valid = len(res.Conflicts) == 0 && len(res.Dependencies) == 0
	e.log.Debug("stack validated",
		zap.Int("tools", len(stack)),
		zap.Bool("valid", res.Valid),
		zap.Int("conflicts", len(res.Conflicts)),
		zap.Int("dependencies", len(res.Dependencies)),
		zap.Int("warnings", len(res.Warnings)))
	return res, nil
}

// member is a stack tool with its resolved category name.
type member struct {
	tool     catalog.Tool
	category string
}

// loadStack resolves ids to tools in input order, warning about unknown ids.
func (e *Engine) loadStack(ctx context.Context, ids []int64, res *ValidationResult) ([]member, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	tools, err := e.tools.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load tools: %w", err)
	}
	cats, err := e.categories.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	byID := make(map[int64]catalog.Tool, len(tools))
	for _, t := range tools {
		byID[t.ID] = t
	}
	catName := make(map[int64]string, len(cats))
	for _, c := range cats {
		catName[c.ID] = c.Name
	}

	stack := make([]member, 0, len(tools))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			e.log.Warn("unknown tool in stack", zap.Int64("tool_id", id))
			res.Warnings = append(res.Warnings, fmt.Sprintf("tool %d not found in catalog; skipped", id))
			continue
		}
		stack = append(stack, member{tool: t, category: catName[t.CategoryID]})
	}
	return stack, nil
}

// conflicts emits one entry per unordered pair of tools sharing a role.
func (e *Engine) conflicts(stack []member) []Conflict {
	out := []Conflict{}
	for _, role := range e.rules.Roles {
		var in []member
		for _, m := range stack {
			if role.Matches(m.tool.Name, m.category) {
				in = append(in, m)
			}
		}
		reason := role.Reason
		if reason == "" {
			reason = "only one " + role.Name + " is expected per stack"
		}
		for i := 0; i < len(in); i++ {
			for j := i + 1; j < len(in); j++ {
				out = append(out, Conflict{
					Role:      role.Name,
					ToolOneID: in[i].tool.ID,
					ToolOne:   in[i].tool.Name,
					ToolTwoID: in[j].tool.ID,
					ToolTwo:   in[j].tool.Name,
					Reason:    reason,
				})
			}
		}
	}
	return out
}

// dependencies checks every rule that applies to a stack tool.
func (e *Engine) dependencies(stack []member, res *ValidationResult) []MissingDependency {
	out := []MissingDependency{}
	for _, m := range stack {
		for _, dep := range e.rules.Dependencies {
			if !dep.AppliesTo(m.tool.Name) {
				continue
			}
			if missing, ok := checkDependency(m, dep, stack, res); !ok {
				out = append(out, missing)
			}
		}
	}
	return out
}

func checkDependency(m member, dep rules.Dependency, stack []member, res *ValidationResult) (MissingDependency, bool) {
	missing := MissingDependency{
		ToolID:   m.tool.ID,
		Tool:     m.tool.Name,
		Requires: dep.Target(),
		Reason:   dep.Reason,
	}
	if missing.Reason == "" {
		missing.Reason = fmt.Sprintf("%s requires %s", m.tool.Name, dep.Target())
	}

	if dep.RequiresCategory != "" {
		for _, other := range stack {
			if other.tool.ID != m.tool.ID && strings.EqualFold(other.category, dep.RequiresCategory) {
				return MissingDependency{}, true
			}
		}
		return missing, false
	}

	for _, other := range stack {
		if !strings.EqualFold(other.tool.Name, dep.Requires) {
			continue
		}
		ok, err := dep.SatisfiedBy(other.tool.Version)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("cannot check %s version %q against %s", other.tool.Name, other.tool.Version, dep.Version))
			return MissingDependency{}, true
		}
		if !ok {
			missing.Reason = fmt.Sprintf("%s requires %s, found %s", m.tool.Name, dep.Target(), other.tool.Version)
			return missing, false
		}
		return MissingDependency{}, true
	}
	return missing, false
}

// coverage applies the category coverage rules.
func (e *Engine) coverage(stack []member, res *ValidationResult) {
	for _, rule := range e.rules.Coverage {
		covered := false
		for _, m := range stack {
			if strings.EqualFold(m.category, rule.Category) {
				covered = true
				break
			}
		}
		if covered {
			continue
		}
		if rule.Warning != "" {
			res.Warnings = append(res.Warnings, rule.Warning)
		}
		if rule.Recommendation != "" {
			res.Recommendations = append(res.Recommendations, rule.Recommendation)
		}
	}
}

// pairAdvice turns weak or hard pairs and a low overall score into advice.
func (e *Engine) pairAdvice(stack []member, ps []PairScore, res *ValidationResult) {
	names := make(map[int64]string, len(stack))
	for _, m := range stack {
		names[m.tool.ID] = m.tool.Name
	}
	known := 0
	for _, p := range ps {
		if !p.Known {
			continue
		}
		known++
		one, two := names[p.ToolOneID], names[p.ToolTwoID]
		if p.Score < e.opts.LowScoreWarning {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s and %s have low compatibility (%d/100)", one, two, p.Score))
		}
		if p.Difficulty == catalog.DifficultyHard {
			res.Recommendations = append(res.Recommendations, fmt.Sprintf("integrating %s with %s is hard; plan extra setup time", one, two))
		}
	}
	// A stack with no recorded edges scores neutral; that is not evidence of a bad fit.
	if known > 0 && res.HarmonyScore < e.opts.HarmonyAdvisory {
		res.Recommendations = append(res.Recommendations,
			fmt.Sprintf("overall harmony is %d/100; consider replacing the lowest-scoring tools", res.HarmonyScore))
	}
}
