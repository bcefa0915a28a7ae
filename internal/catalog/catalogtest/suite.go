// Package catalogtest holds a conformance suite every catalog.Backend must pass.
package catalogtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/stackharmony/internal/catalog"
)

// Fixture is a small seeded catalog shared by the suite and other packages' tests.
type Fixture struct {
	Frontend, Backend, Database catalog.Category
	React, Next, Express, Postgres, Mongo catalog.Tool
}

// Seed creates three categories and five tools in b.
func Seed(t *testing.T, b catalog.Backend) Fixture {
	t.Helper()
	ctx := context.Background()
	var f Fixture

	f.Frontend = catalog.Category{Name: "Frontend"}
	f.Backend = catalog.Category{Name: "Backend"}
	f.Database = catalog.Category{Name: "Database"}
	for _, c := range []*catalog.Category{&f.Frontend, &f.Backend, &f.Database} {
		require.NoError(t, b.Categories().CreateCategory(ctx, c))
	}

	f.React = catalog.Tool{Name: "React", CategoryID: f.Frontend.ID, Version: "18.2.0",
		Frameworks: []string{"React"}, Languages: []string{"JavaScript", "TypeScript"},
		Features: []string{"Components", "Hooks"}, MaturityScore: 9, PopularityScore: 10}
	f.Next = catalog.Tool{Name: "Next.js", CategoryID: f.Frontend.ID, Version: "14.1.0",
		Frameworks: []string{"React"}, Languages: []string{"TypeScript"},
		Description: "React framework with SSR", MaturityScore: 8, PopularityScore: 9}
	f.Express = catalog.Tool{Name: "Express", CategoryID: f.Backend.ID,
		Languages: []string{"JavaScript"}, Description: "Minimal web framework",
		MaturityScore: 9, PopularityScore: 8}
	f.Postgres = catalog.Tool{Name: "PostgreSQL", CategoryID: f.Database.ID,
		Description: "Relational database", MaturityScore: 10, PopularityScore: 9}
	f.Mongo = catalog.Tool{Name: "MongoDB", CategoryID: f.Database.ID,
		Description: "Document database", MaturityScore: 8, PopularityScore: 8}
	for _, tool := range []*catalog.Tool{&f.React, &f.Next, &f.Express, &f.Postgres, &f.Mongo} {
		require.NoError(t, b.Tools().Create(ctx, tool))
	}
	return f
}

// SeedEdges adds a fixed set of compatibility edges between the Seed tools:
//
//	React-Next.js 95 verified, Next.js-Express 75, Express-PostgreSQL 90 verified,
//	Express-MongoDB 85, Next.js-PostgreSQL 82, PostgreSQL-MongoDB 20 hard.
func SeedEdges(t *testing.T, b catalog.Backend, f Fixture) []catalog.Compatibility {
	t.Helper()
	ctx := context.Background()
	edges := []catalog.Compatibility{
		{ToolOneID: f.React.ID, ToolTwoID: f.Next.ID, Score: 95, Verified: true, Difficulty: catalog.DifficultyEasy},
		{ToolOneID: f.Next.ID, ToolTwoID: f.Express.ID, Score: 75, Difficulty: catalog.DifficultyMedium},
		{ToolOneID: f.Express.ID, ToolTwoID: f.Postgres.ID, Score: 90, Verified: true, Difficulty: catalog.DifficultyEasy},
		{ToolOneID: f.Express.ID, ToolTwoID: f.Mongo.ID, Score: 85, Difficulty: catalog.DifficultyEasy},
		{ToolOneID: f.Next.ID, ToolTwoID: f.Postgres.ID, Score: 82, Difficulty: catalog.DifficultyMedium},
		{ToolOneID: f.Postgres.ID, ToolTwoID: f.Mongo.ID, Score: 20, Difficulty: catalog.DifficultyHard},
	}
	for i := range edges {
		require.NoError(t, b.Compatibilities().Create(ctx, &edges[i]))
	}
	return edges
}

// Run exercises the full repository contract against backends built by newBackend.
func Run(t *testing.T, newBackend func(t *testing.T) catalog.Backend) {
	t.Run("ToolCRUD", func(t *testing.T) { testToolCRUD(t, newBackend(t)) })
	t.Run("ToolBatchReads", func(t *testing.T) { testToolBatchReads(t, newBackend(t)) })
	t.Run("Search", func(t *testing.T) { testSearch(t, newBackend(t)) })
	t.Run("Stats", func(t *testing.T) { testStats(t, newBackend(t)) })
	t.Run("Categories", func(t *testing.T) { testCategories(t, newBackend(t)) })
	t.Run("PairLookupIsSymmetric", func(t *testing.T) { testPairLookup(t, newBackend(t)) })
	t.Run("CompatibilityWrites", func(t *testing.T) { testCompatibilityWrites(t, newBackend(t)) })
	t.Run("GetAllTouching", func(t *testing.T) { testGetAllTouching(t, newBackend(t)) })
	t.Run("DeleteRemovesEdges", func(t *testing.T) { testDeleteRemovesEdges(t, newBackend(t)) })
}

func testToolCRUD(t *testing.T, b catalog.Backend) {
	ctx := context.Background()
	f := Seed(t, b)

	got, err := b.Tools().GetByID(ctx, f.React.ID)
	require.NoError(t, err)
	assert.Equal(t, "React", got.Name)
	assert.Equal(t, []string{"JavaScript", "TypeScript"}, got.Languages)
	assert.Equal(t, "18.2.0", got.Version)
	assert.InDelta(t, 9.0, got.MaturityScore, 0.001)
	assert.False(t, got.CreatedAt.IsZero())

	byName, err := b.Tools().GetByName(ctx, "react")
	require.NoError(t, err)
	assert.Equal(t, f.React.ID, byName.ID)

	_, err = b.Tools().GetByID(ctx, 9999)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	dup := catalog.Tool{Name: "React", CategoryID: f.Frontend.ID}
	assert.ErrorIs(t, b.Tools().Create(ctx, &dup), catalog.ErrDuplicate)

	invalid := catalog.Tool{Name: "", CategoryID: f.Frontend.ID}
	assert.ErrorIs(t, b.Tools().Create(ctx, &invalid), catalog.ErrInvalid)

	got.Description = "UI library"
	got.MaturityScore = 10
	require.NoError(t, b.Tools().Update(ctx, got))
	updated, err := b.Tools().GetByID(ctx, f.React.ID)
	require.NoError(t, err)
	assert.Equal(t, "UI library", updated.Description)
	assert.InDelta(t, 10.0, updated.MaturityScore, 0.001)

	missing := catalog.Tool{ID: 9999, Name: "Ghost", CategoryID: f.Frontend.ID}
	assert.ErrorIs(t, b.Tools().Update(ctx, &missing), catalog.ErrNotFound)

	require.NoError(t, b.Tools().Delete(ctx, f.React.ID))
	_, err = b.Tools().GetByID(ctx, f.React.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	assert.ErrorIs(t, b.Tools().Delete(ctx, f.React.ID), catalog.ErrNotFound)
}

func testToolBatchReads(t *testing.T, b catalog.Backend) {
	ctx := context.Background()
	f := Seed(t, b)

	tools, err := b.Tools().GetByIDs(ctx, []int64{f.Postgres.ID, 9999, f.React.ID, f.React.ID})
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, f.React.ID, tools[0].ID)
	assert.Equal(t, f.Postgres.ID, tools[1].ID)

	empty, err := b.Tools().GetByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	dbs, err := b.Tools().GetByCategory(ctx, f.Database.ID)
	require.NoError(t, err)
	require.Len(t, dbs, 2)
	assert.Equal(t, "PostgreSQL", dbs[0].Name)
	assert.Equal(t, "MongoDB", dbs[1].Name)
}

func testSearch(t *testing.T, b catalog.Backend) {
	ctx := context.Background()
	f := Seed(t, b)

	page, err := b.Tools().Search(ctx, catalog.ToolQuery{Text: "database"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = b.Tools().Search(ctx, catalog.ToolQuery{Frameworks: []string{"react"}, MinPopularity: 9.5})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "React", page.Tools[0].Name)

	page, err = b.Tools().Search(ctx, catalog.ToolQuery{CategoryID: f.Frontend.ID, Languages: []string{"typescript"}})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = b.Tools().Search(ctx, catalog.ToolQuery{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.Pages)
	require.Len(t, page.Tools, 2)
	assert.Equal(t, f.Express.ID, page.Tools[0].ID)
	assert.True(t, page.HasNext)
	assert.True(t, page.HasPrev)

	page, err = b.Tools().Search(ctx, catalog.ToolQuery{Text: "nothing-matches"})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	assert.NotNil(t, page.Tools)
}

func testStats(t *testing.T, b catalog.Backend) {
	Seed(t, b)
	stats, err := b.Tools().Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalTools)
	assert.Equal(t, 3, stats.TotalCategories)
	assert.Equal(t, map[string]int{"Frontend": 2, "Backend": 1, "Database": 2}, stats.CategoryBreakdown)
}

func testCategories(t *testing.T, b catalog.Backend) {
	ctx := context.Background()
	Seed(t, b)

	cats, err := b.Categories().Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 3)
	assert.Equal(t, "Backend", cats[0].Name)

	db, err := b.Categories().CategoryByName(ctx, "database")
	require.NoError(t, err)
	assert.Equal(t, "Database", db.Name)

	_, err = b.Categories().CategoryByName(ctx, "Mobile")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	assert.ErrorIs(t, b.Categories().CreateCategory(ctx, &catalog.Category{Name: "DATABASE"}), catalog.ErrDuplicate)
	assert.ErrorIs(t, b.Categories().CreateCategory(ctx, &catalog.Category{Name: " "}), catalog.ErrInvalid)
}

func testPairLookup(t *testing.T, b catalog.Backend) {
	ctx := context.Background()
	f := Seed(t, b)

	edge := catalog.Compatibility{ToolOneID: f.Next.ID, ToolTwoID: f.React.ID, Score: 95,
		Notes: "built on React", Verified: true, Difficulty: catalog.DifficultyEasy,
		SetupSteps: []string{"npx create-next-app"}, Dependencies: []string{"react-dom"}}
	require.NoError(t, b.Compatibilities().Create(ctx, &edge))
	assert.Less(t, edge.ToolOneID, edge.ToolTwoID)

	ab, err := b.Compatibilities().GetByPair(ctx, f.React.ID, f.Next.ID)
	require.NoError(t, err)
	ba, err := b.Compatibilities().GetByPair(ctx, f.Next.ID, f.React.ID)
	require.NoError(t, err)
	require.NotNil(t, ab)
	assert.Equal(t, ab, ba)
	assert.Equal(t, 95, ab.Score)
	assert.True(t, ab.Verified)
	assert.Equal(t, catalog.DifficultyEasy, ab.Difficulty)
	assert.Equal(t, []string{"npx create-next-app"}, ab.SetupSteps)
	assert.Equal(t, []string{"react-dom"}, ab.Dependencies)

	none, err := b.Compatibilities().GetByPair(ctx, f.React.ID, f.Mongo.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	self, err := b.Compatibilities().GetByPair(ctx, f.React.ID, f.React.ID)
	require.NoError(t, err)
	assert.Nil(t, self)
}

func testCompatibilityWrites(t *testing.T, b catalog.Backend) {
	ctx := context.Background()
	f := Seed(t, b)

	edge := catalog.Compatibility{ToolOneID: f.Express.ID, ToolTwoID: f.Postgres.ID, Score: 80}
	require.NoError(t, b.Compatibilities().Create(ctx, &edge))

	reversed := catalog.Compatibility{ToolOneID: f.Postgres.ID, ToolTwoID: f.Express.ID, Score: 10}
	assert.ErrorIs(t, b.Compatibilities().Create(ctx, &reversed), catalog.ErrDuplicate)

	bad := catalog.Compatibility{ToolOneID: f.Express.ID, ToolTwoID: f.Express.ID, Score: 10}
	assert.ErrorIs(t, b.Compatibilities().Create(ctx, &bad), catalog.ErrInvalid)

	update := catalog.Compatibility{ToolOneID: f.Postgres.ID, ToolTwoID: f.Express.ID, Score: 88, Notes: "pg driver"}
	require.NoError(t, b.Compatibilities().Update(ctx, &update))
	assert.Equal(t, edge.ID, update.ID)

	got, err := b.Compatibilities().GetByPair(ctx, f.Express.ID, f.Postgres.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 88, got.Score)
	assert.Equal(t, "pg driver", got.Notes)

	missing := catalog.Compatibility{ToolOneID: f.React.ID, ToolTwoID: f.Mongo.ID, Score: 40}
	assert.ErrorIs(t, b.Compatibilities().Update(ctx, &missing), catalog.ErrNotFound)
}

func testGetAllTouching(t *testing.T, b catalog.Backend) {
	ctx := context.Background()
	f := Seed(t, b)

	for _, e := range []catalog.Compatibility{
		{ToolOneID: f.React.ID, ToolTwoID: f.Next.ID, Score: 95},
		{ToolOneID: f.Express.ID, ToolTwoID: f.Postgres.ID, Score: 85},
		{ToolOneID: f.Express.ID, ToolTwoID: f.Mongo.ID, Score: 82},
		{ToolOneID: f.Postgres.ID, ToolTwoID: f.Mongo.ID, Score: 20},
	} {
		require.NoError(t, b.Compatibilities().Create(ctx, &e))
	}

	edges, err := b.Compatibilities().GetAllTouching(ctx, []int64{f.Express.ID})
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Less(t, edges[0].ID, edges[1].ID)

	edges, err = b.Compatibilities().GetAllTouching(ctx, []int64{f.React.ID, f.Mongo.ID})
	require.NoError(t, err)
	assert.Len(t, edges, 3)

	edges, err = b.Compatibilities().GetAllTouching(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func testDeleteRemovesEdges(t *testing.T, b catalog.Backend) {
	ctx := context.Background()
	f := Seed(t, b)

	e := catalog.Compatibility{ToolOneID: f.Express.ID, ToolTwoID: f.Postgres.ID, Score: 85}
	require.NoError(t, b.Compatibilities().Create(ctx, &e))
	require.NoError(t, b.Tools().Delete(ctx, f.Postgres.ID))

	edges, err := b.Compatibilities().GetAllTouching(ctx, []int64{f.Express.ID})
	require.NoError(t, err)
	assert.Empty(t, edges)
}
