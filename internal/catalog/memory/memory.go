// Package memory provides a map-backed catalog.Backend for tests, demos and
// small deployments that do not need durable storage.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/julianshen/stackharmony/internal/catalog"
)

// Catalog holds tools, categories and compatibility edges in memory.
// All methods are safe for concurrent use.
type Catalog struct {
	mu         sync.RWMutex
	tools      map[int64]catalog.Tool
	categories map[int64]catalog.Category
	edges      map[catalog.Pair]catalog.Compatibility
	nextTool   int64
	nextCat    int64
	nextEdge   int64
	now        func() time.Time
}

// New creates an empty in-memory catalog.
func New() *Catalog {
	return &Catalog{
		tools:      make(map[int64]catalog.Tool),
		categories: make(map[int64]catalog.Category),
		edges:      make(map[catalog.Pair]catalog.Compatibility),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (c *Catalog) Tools() catalog.ToolStore                         { return toolRepo{c} }
func (c *Catalog) Categories() catalog.CategoryRepository           { return categoryRepo{c} }
func (c *Catalog) Compatibilities() catalog.CompatibilityRepository { return compatRepo{c} }

// Close is a no-op.
func (c *Catalog) Close() error { return nil }

type toolRepo struct{ c *Catalog }

func (r toolRepo) GetByID(_ context.Context, id int64) (*catalog.Tool, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	t, ok := r.c.tools[id]
	if !ok {
		return nil, fmt.Errorf("tool %d: %w", id, catalog.ErrNotFound)
	}
	return &t, nil
}

func (r toolRepo) GetByIDs(_ context.Context, ids []int64) ([]catalog.Tool, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	var out []catalog.Tool
	for _, id := range catalog.UniqueIDs(ids) {
		if t, ok := r.c.tools[id]; ok {
			out = append(out, t)
		}
	}
	sortTools(out)
	return out, nil
}

func (r toolRepo) GetByCategory(_ context.Context, categoryID int64) ([]catalog.Tool, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	var out []catalog.Tool
	for _, t := range r.c.tools {
		if t.CategoryID == categoryID {
			out = append(out, t)
		}
	}
	sortTools(out)
	return out, nil
}

func (r toolRepo) GetByName(_ context.Context, name string) (*catalog.Tool, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	if t, ok := r.c.toolByName(name); ok {
		return &t, nil
	}
	return nil, fmt.Errorf("tool %q: %w", name, catalog.ErrNotFound)
}

func (r toolRepo) Search(_ context.Context, q catalog.ToolQuery) (catalog.ToolPage, error) {
	q = q.Normalize()
	r.c.mu.RLock()
	var matched []catalog.Tool
	for _, t := range r.c.tools {
		if q.Matches(t) {
			matched = append(matched, t)
		}
	}
	r.c.mu.RUnlock()

	sortTools(matched)
	total := len(matched)
	start := min(q.Offset(), total)
	end := min(start+q.PerPage, total)
	return catalog.NewToolPage(q, matched[start:end], total), nil
}

func (r toolRepo) Create(_ context.Context, t *catalog.Tool) error {
	if err := t.Validate(); err != nil {
		return err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if _, ok := r.c.categories[t.CategoryID]; !ok {
		return fmt.Errorf("category %d: %w", t.CategoryID, catalog.ErrNotFound)
	}
	if _, exists := r.c.toolByName(t.Name); exists {
		return fmt.Errorf("tool %q: %w", t.Name, catalog.ErrDuplicate)
	}
	r.c.nextTool++
	t.ID = r.c.nextTool
	t.CreatedAt = r.c.now()
	t.UpdatedAt = t.CreatedAt
	r.c.tools[t.ID] = *t
	return nil
}

func (r toolRepo) Update(_ context.Context, t *catalog.Tool) error {
	if err := t.Validate(); err != nil {
		return err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	existing, ok := r.c.tools[t.ID]
	if !ok {
		return fmt.Errorf("tool %d: %w", t.ID, catalog.ErrNotFound)
	}
	if _, ok := r.c.categories[t.CategoryID]; !ok {
		return fmt.Errorf("category %d: %w", t.CategoryID, catalog.ErrNotFound)
	}
	if other, exists := r.c.toolByName(t.Name); exists && other.ID != t.ID {
		return fmt.Errorf("tool %q: %w", t.Name, catalog.ErrDuplicate)
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = r.c.now()
	r.c.tools[t.ID] = *t
	return nil
}

func (r toolRepo) Delete(_ context.Context, id int64) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if _, ok := r.c.tools[id]; !ok {
		return fmt.Errorf("tool %d: %w", id, catalog.ErrNotFound)
	}
	delete(r.c.tools, id)
	for p, e := range r.c.edges {
		if e.Touches(id) {
			delete(r.c.edges, p)
		}
	}
	return nil
}

func (r toolRepo) Stats(_ context.Context) (catalog.Stats, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	breakdown := make(map[string]int)
	for _, t := range r.c.tools {
		if cat, ok := r.c.categories[t.CategoryID]; ok {
			breakdown[cat.Name]++
		}
	}
	return catalog.Stats{
		TotalTools:        len(r.c.tools),
		TotalCategories:   len(breakdown),
		CategoryBreakdown: breakdown,
	}, nil
}

// toolByName must be called with c.mu held.
func (c *Catalog) toolByName(name string) (catalog.Tool, bool) {
	for _, t := range c.tools {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return catalog.Tool{}, false
}

type categoryRepo struct{ c *Catalog }

func (r categoryRepo) Categories(_ context.Context) ([]catalog.Category, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	out := make([]catalog.Category, 0, len(r.c.categories))
	for _, cat := range r.c.categories {
		out = append(out, cat)
	}
	slices.SortFunc(out, func(a, b catalog.Category) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (r categoryRepo) CategoryByName(_ context.Context, name string) (*catalog.Category, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	for _, cat := range r.c.categories {
		if strings.EqualFold(cat.Name, name) {
			return &cat, nil
		}
	}
	return nil, fmt.Errorf("category %q: %w", name, catalog.ErrNotFound)
}

func (r categoryRepo) CreateCategory(_ context.Context, cat *catalog.Category) error {
	if strings.TrimSpace(cat.Name) == "" {
		return fmt.Errorf("%w: category name is required", catalog.ErrInvalid)
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, existing := range r.c.categories {
		if strings.EqualFold(existing.Name, cat.Name) {
			return fmt.Errorf("category %q: %w", cat.Name, catalog.ErrDuplicate)
		}
	}
	r.c.nextCat++
	cat.ID = r.c.nextCat
	r.c.categories[cat.ID] = *cat
	return nil
}

type compatRepo struct{ c *Catalog }

func (r compatRepo) GetByPair(_ context.Context, a, b int64) (*catalog.Compatibility, error) {
	if a == b {
		return nil, nil
	}
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	e, ok := r.c.edges[catalog.NewPair(a, b)]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r compatRepo) GetAllTouching(_ context.Context, ids []int64) ([]catalog.Compatibility, error) {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	r.c.mu.RLock()
	var out []catalog.Compatibility
	for _, e := range r.c.edges {
		_, one := want[e.ToolOneID]
		_, two := want[e.ToolTwoID]
		if one || two {
			out = append(out, e)
		}
	}
	r.c.mu.RUnlock()
	slices.SortFunc(out, func(a, b catalog.Compatibility) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r compatRepo) Create(_ context.Context, e *catalog.Compatibility) error {
	if err := e.Validate(); err != nil {
		return err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if err := r.c.requireTools(e.ToolOneID, e.ToolTwoID); err != nil {
		return err
	}
	p := e.Pair()
	if _, exists := r.c.edges[p]; exists {
		return fmt.Errorf("compatibility %s: %w", p, catalog.ErrDuplicate)
	}
	r.c.nextEdge++
	e.ID = r.c.nextEdge
	e.CreatedAt = r.c.now()
	e.UpdatedAt = e.CreatedAt
	r.c.edges[p] = *e
	return nil
}

func (r compatRepo) Update(_ context.Context, e *catalog.Compatibility) error {
	if err := e.Validate(); err != nil {
		return err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	p := e.Pair()
	existing, ok := r.c.edges[p]
	if !ok {
		return fmt.Errorf("compatibility %s: %w", p, catalog.ErrNotFound)
	}
	e.ID = existing.ID
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = r.c.now()
	r.c.edges[p] = *e
	return nil
}

// requireTools must be called with c.mu held.
func (c *Catalog) requireTools(ids ...int64) error {
	for _, id := range ids {
		if _, ok := c.tools[id]; !ok {
			return fmt.Errorf("tool %d: %w", id, catalog.ErrNotFound)
		}
	}
	return nil
}

func sortTools(tools []catalog.Tool) {
	slices.SortFunc(tools, func(a, b catalog.Tool) int { return cmp.Compare(a.ID, b.ID) })
}
