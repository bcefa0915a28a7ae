package cache

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/julianshen/stackharmony/internal/catalog"
)

// Invalidation tags.
const (
	TagTools      = "tools"
	TagCategories = "categories"
	TagCompat     = "compat"
)

// ToolTag tags entries derived from a single tool row.
func ToolTag(id int64) string { return "tool:" + strconv.FormatInt(id, 10) }

// CompatTag tags edge reads that involve the tool id.
func CompatTag(id int64) string { return "compat:" + strconv.FormatInt(id, 10) }

// Backend fronts another catalog.Backend with a Cache. Reads used by the
// engine are cached; writes go straight through and invalidate the tags
// they affect. Search, Stats and name lookups are not cached.
type Backend struct {
	next  catalog.Backend
	cache *Cache
}

// Wrap returns a caching view of next.
func Wrap(next catalog.Backend, c *Cache) *Backend {
	return &Backend{next: next, cache: c}
}

func (b *Backend) Tools() catalog.ToolStore { return cachedTools{b.next.Tools(), b.cache} }
func (b *Backend) Categories() catalog.CategoryRepository {
	return cachedCategories{b.next.Categories(), b.cache}
}
func (b *Backend) Compatibilities() catalog.CompatibilityRepository {
	return cachedCompat{b.next.Compatibilities(), b.cache}
}

// Close purges the cache and closes the underlying backend.
func (b *Backend) Close() error {
	b.cache.Purge()
	return b.next.Close()
}

// Cache exposes the cache for stats and manual invalidation.
func (b *Backend) Cache() *Cache { return b.cache }

type cachedTools struct {
	catalog.ToolStore
	c *Cache
}

func (r cachedTools) GetByID(ctx context.Context, id int64) (*catalog.Tool, error) {
	v, err := r.c.Load(ctx, "tool:id:"+strconv.FormatInt(id, 10), []string{ToolTag(id)}, func(ctx context.Context) (any, error) {
		t, err := r.ToolStore.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return *t, nil
	})
	if err != nil {
		return nil, err
	}
	t := v.(catalog.Tool)
	return &t, nil
}

func (r cachedTools) GetByIDs(ctx context.Context, ids []int64) ([]catalog.Tool, error) {
	key := "tool:ids:" + idKey(ids)
	v, err := r.c.Load(ctx, key, []string{TagTools}, func(ctx context.Context) (any, error) {
		return r.ToolStore.GetByIDs(ctx, ids)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]catalog.Tool)), nil
}

func (r cachedTools) GetByCategory(ctx context.Context, categoryID int64) ([]catalog.Tool, error) {
	key := "tool:category:" + strconv.FormatInt(categoryID, 10)
	v, err := r.c.Load(ctx, key, []string{TagTools}, func(ctx context.Context) (any, error) {
		return r.ToolStore.GetByCategory(ctx, categoryID)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]catalog.Tool)), nil
}

func (r cachedTools) Create(ctx context.Context, t *catalog.Tool) error {
	if err := r.ToolStore.Create(ctx, t); err != nil {
		return err
	}
	r.c.Invalidate(TagTools, ToolTag(t.ID))
	return nil
}

func (r cachedTools) Update(ctx context.Context, t *catalog.Tool) error {
	if err := r.ToolStore.Update(ctx, t); err != nil {
		return err
	}
	r.c.Invalidate(TagTools, ToolTag(t.ID))
	return nil
}

// Delete also drops every cached edge read, since the removed edges may be
// listed under the other endpoint's tag.
func (r cachedTools) Delete(ctx context.Context, id int64) error {
	if err := r.ToolStore.Delete(ctx, id); err != nil {
		return err
	}
	r.c.Invalidate(TagTools, ToolTag(id), TagCompat)
	return nil
}

type cachedCategories struct {
	catalog.CategoryRepository
	c *Cache
}

func (r cachedCategories) Categories(ctx context.Context) ([]catalog.Category, error) {
	v, err := r.c.Load(ctx, "categories", []string{TagCategories}, func(ctx context.Context) (any, error) {
		return r.CategoryRepository.Categories(ctx)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]catalog.Category)), nil
}

func (r cachedCategories) CreateCategory(ctx context.Context, cat *catalog.Category) error {
	if err := r.CategoryRepository.CreateCategory(ctx, cat); err != nil {
		return err
	}
	r.c.Invalidate(TagCategories)
	return nil
}

type cachedCompat struct {
	next catalog.CompatibilityRepository
	c    *Cache
}

func (r cachedCompat) GetByPair(ctx context.Context, a, b int64) (*catalog.Compatibility, error) {
	p := catalog.NewPair(a, b)
	tags := []string{TagCompat, CompatTag(p.Lo), CompatTag(p.Hi)}
	v, err := r.c.Load(ctx, "compat:pair:"+p.String(), tags, func(ctx context.Context) (any, error) {
		e, err := r.next.GetByPair(ctx, a, b)
		if err != nil {
			return nil, err
		}
		if e == nil {
			// A known miss is cached as well.
			return (*catalog.Compatibility)(nil), nil
		}
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	e := v.(*catalog.Compatibility)
	if e == nil {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r cachedCompat) GetAllTouching(ctx context.Context, ids []int64) ([]catalog.Compatibility, error) {
	uniq := catalog.UniqueIDs(ids)
	tags := make([]string, 0, len(uniq)+1)
	tags = append(tags, TagCompat)
	for _, id := range uniq {
		tags = append(tags, CompatTag(id))
	}
	v, err := r.c.Load(ctx, "compat:touching:"+idKey(uniq), tags, func(ctx context.Context) (any, error) {
		return r.next.GetAllTouching(ctx, ids)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]catalog.Compatibility)), nil
}

func (r cachedCompat) Create(ctx context.Context, e *catalog.Compatibility) error {
	if err := r.next.Create(ctx, e); err != nil {
		return err
	}
	r.c.Invalidate(CompatTag(e.ToolOneID), CompatTag(e.ToolTwoID))
	return nil
}

func (r cachedCompat) Update(ctx context.Context, e *catalog.Compatibility) error {
	if err := r.next.Update(ctx, e); err != nil {
		return err
	}
	r.c.Invalidate(CompatTag(e.ToolOneID), CompatTag(e.ToolTwoID))
	return nil
}

// idKey renders ids order-independently.
func idKey(ids []int64) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
