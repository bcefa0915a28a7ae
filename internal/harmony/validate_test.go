package harmony

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/stackharmony/internal/catalog"
	"github.com/julianshen/stackharmony/internal/catalog/catalogtest"
	"github.com/julianshen/stackharmony/internal/catalog/memory"
	"github.com/julianshen/stackharmony/internal/rules"
)

func TestValidateCleanStack(t *testing.T) {
	e, fx, _ := fixture(t)
	res, err := e.Validate(context.Background(), []int64{fx.React.ID, fx.Next.ID, fx.Express.ID, fx.Postgres.ID})
	require.NoError(t, err)

	want := &ValidationResult{
		Valid: true,
		// (95+50+50+75+82+90)/6 = 73.7
		HarmonyScore:    74,
		Conflicts:       []Conflict{},
		Dependencies:    []MissingDependency{},
		Warnings:        []string{},
		Recommendations: []string{},
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("Validate mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateExclusiveRoleConflict(t *testing.T) {
	e, fx, _ := fixture(t)
	res, err := e.Validate(context.Background(), []int64{fx.Postgres.ID, fx.Mongo.ID})
	require.NoError(t, err)

	assert.False(t, res.Valid)
	require.Len(t, res.Conflicts, 1)
	c := res.Conflicts[0]
	assert.Equal(t, "database", c.Role)
	assert.Equal(t, "PostgreSQL", c.ToolOne)
	assert.Equal(t, "MongoDB", c.ToolTwo)
	assert.Equal(t, fx.Postgres.ID, c.ToolOneID)
	assert.Equal(t, fx.Mongo.ID, c.ToolTwoID)
	assert.Equal(t, "one primary database per stack", c.Reason)
	assert.Empty(t, res.Dependencies)

	assert.Equal(t, 20, res.HarmonyScore)
	assert.Contains(t, res.Warnings, "PostgreSQL and MongoDB have low compatibility (20/100)")
	assert.Contains(t, res.Recommendations, "integrating PostgreSQL with MongoDB is hard; plan extra setup time")
	assert.Contains(t, res.Recommendations, "overall harmony is 20/100; consider replacing the lowest-scoring tools")
}

func TestValidateHarmonyAdvisoryNeedsKnownPair(t *testing.T) {
	e, fx, _ := fixture(t)
	ctx := context.Background()

	// No edge between React and Express: neutral 50, below the advisory threshold.
	res, err := e.Validate(ctx, []int64{fx.React.ID, fx.Express.ID})
	require.NoError(t, err)
	assert.Equal(t, NeutralScore, res.HarmonyScore)
	for _, r := range res.Recommendations {
		assert.NotContains(t, r, "overall harmony")
	}

	res, err = e.Validate(ctx, []int64{fx.Postgres.ID, fx.Mongo.ID})
	require.NoError(t, err)
	assert.Contains(t, res.Recommendations, "overall harmony is 20/100; consider replacing the lowest-scoring tools")
}

func TestValidateAdvisoriesDisabledAtZero(t *testing.T) {
	e, fx, _ := fixture(t, WithAdvisories(0, 0))
	res, err := e.Validate(context.Background(), []int64{fx.Postgres.ID, fx.Mongo.ID})
	require.NoError(t, err)

	assert.Equal(t, 20, res.HarmonyScore)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, []string{"integrating PostgreSQL with MongoDB is hard; plan extra setup time"}, res.Recommendations)
}

func TestValidateRoleWithThreeToolsEmitsEveryPair(t *testing.T) {
	mem := memory.New()
	fx := catalogtest.Seed(t, mem)
	ctx := context.Background()
	redis := catalog.Tool{Name: "Redis", CategoryID: fx.Database.ID}
	require.NoError(t, mem.Tools().Create(ctx, &redis))

	e := FromBackend(mem, WithRules(testRules(t)))
	res, err := e.Validate(ctx, []int64{fx.Postgres.ID, fx.Mongo.ID, redis.ID})
	require.NoError(t, err)
	assert.Len(t, res.Conflicts, 3)
}

func TestValidateMissingDependency(t *testing.T) {
	e, fx, _ := fixture(t)
	res, err := e.Validate(context.Background(), []int64{fx.Next.ID})
	require.NoError(t, err)

	assert.False(t, res.Valid)
	assert.Empty(t, res.Conflicts)
	want := []MissingDependency{{
		ToolID:   fx.Next.ID,
		Tool:     "Next.js",
		Requires: "React >=18.0.0",
		Reason:   "Next.js requires React >=18.0.0",
	}}
	if diff := cmp.Diff(want, res.Dependencies); diff != "" {
		t.Errorf("dependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateDependencyVersionConstraint(t *testing.T) {
	e, fx, mem := fixture(t)
	ctx := context.Background()

	old := fx.React
	old.Version = "17.0.2"
	require.NoError(t, mem.Tools().Update(ctx, &old))

	res, err := e.Validate(ctx, []int64{fx.Next.ID, fx.React.ID})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	require.Len(t, res.Dependencies, 1)
	assert.Equal(t, "Next.js requires React >=18.0.0, found 17.0.2", res.Dependencies[0].Reason)
}

func TestValidateUncheckableVersionWarns(t *testing.T) {
	e, fx, mem := fixture(t)
	ctx := context.Background()

	canary := fx.React
	canary.Version = "canary"
	require.NoError(t, mem.Tools().Update(ctx, &canary))

	res, err := e.Validate(ctx, []int64{fx.Next.ID, fx.React.ID})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Contains(t, res.Warnings, `cannot check React version "canary" against >=18.0.0`)
}

func TestValidateCategoryDependency(t *testing.T) {
	e, fx, _ := fixture(t)
	ctx := context.Background()

	res, err := e.Validate(ctx, []int64{fx.Express.ID})
	require.NoError(t, err)
	require.Len(t, res.Dependencies, 1)
	assert.Equal(t, "a Database tool", res.Dependencies[0].Requires)

	res, err = e.Validate(ctx, []int64{fx.Express.ID, fx.Mongo.ID})
	require.NoError(t, err)
	assert.Empty(t, res.Dependencies)
	assert.True(t, res.Valid)
}

func TestValidateUnknownToolIsWarning(t *testing.T) {
	e, fx, _ := fixture(t)
	res, err := e.Validate(context.Background(), []int64{fx.React.ID, 999})
	require.NoError(t, err)

	assert.True(t, res.Valid)
	assert.Equal(t, TrivialHarmony, res.HarmonyScore)
	assert.Equal(t, []string{"tool 999 not found in catalog; skipped"}, res.Warnings)

	// Harmony keeps the unknown id as a neutral pair.
	score, err := e.Harmony(context.Background(), []int64{fx.React.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, NeutralScore, score)
}

func TestValidateCoverage(t *testing.T) {
	mem := memory.New()
	fx := catalogtest.Seed(t, mem)
	set, err := rules.Parse([]byte(`
coverage:
  - category: Backend
    warning: no backend tool in stack
    recommendation: add a backend
  - category: Testing
    recommendation: add a testing tool
`))
	require.NoError(t, err)
	e := FromBackend(mem, WithRules(set))
	ctx := context.Background()

	res, err := e.Validate(ctx, []int64{fx.React.ID})
	require.NoError(t, err)
	assert.True(t, res.Valid, "coverage never affects validity")
	assert.Equal(t, []string{"no backend tool in stack"}, res.Warnings)
	assert.Equal(t, []string{"add a backend", "add a testing tool"}, res.Recommendations)

	res, err = e.Validate(ctx, []int64{fx.React.ID, fx.Express.ID})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, []string{"add a testing tool"}, res.Recommendations)
}

func TestValidateEmptyStack(t *testing.T) {
	e, _, _ := fixture(t)
	res, err := e.Validate(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, TrivialHarmony, res.HarmonyScore)
	assert.Empty(t, res.Warnings)
	assert.NotNil(t, res.Conflicts)
}

func TestValidateIsIdempotent(t *testing.T) {
	e, fx, _ := fixture(t)
	ids := []int64{fx.Postgres.ID, fx.Next.ID, fx.Mongo.ID, 42}

	first, err := e.Validate(context.Background(), ids)
	require.NoError(t, err)
	second, err := e.Validate(context.Background(), ids)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Validate not idempotent (-first +second):\n%s", diff)
	}
}

func TestValidateDefaultRules(t *testing.T) {
	mem := memory.New()
	fx := catalogtest.Seed(t, mem)
	e := FromBackend(mem)

	res, err := e.Validate(context.Background(), []int64{fx.React.ID, fx.Next.ID})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Contains(t, res.Warnings, "no backend tool in stack")
}
