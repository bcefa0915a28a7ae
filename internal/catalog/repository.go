package catalog

import "context"

// ToolRepository is the read side of the tool catalog used by the engine.
type ToolRepository interface {
	// GetByID returns ErrNotFound when id is unknown.
	GetByID(ctx context.Context, id int64) (*Tool, error)
	// GetByIDs loads many tools in one call. Unknown ids are omitted and the
	// result is ordered by id.
	GetByIDs(ctx context.Context, ids []int64) ([]Tool, error)
	GetByCategory(ctx context.Context, categoryID int64) ([]Tool, error)
}

// ToolStore is the full tool catalog including writes and search.
type ToolStore interface {
	ToolRepository

	GetByName(ctx context.Context, name string) (*Tool, error)
	Search(ctx context.Context, q ToolQuery) (ToolPage, error)
	Create(ctx context.Context, t *Tool) error
	Update(ctx context.Context, t *Tool) error
	// Delete removes the tool and every compatibility edge touching it.
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) (Stats, error)
}

// CategoryRepository stores tool categories.
type CategoryRepository interface {
	Categories(ctx context.Context) ([]Category, error)
	CategoryByName(ctx context.Context, name string) (*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
}

// CompatibilityRepository is the sparse pairwise score table.
type CompatibilityRepository interface {
	// GetByPair resolves the edge for the unordered pair (a, b). A missing
	// edge is reported as (nil, nil), not as an error.
	GetByPair(ctx context.Context, a, b int64) (*Compatibility, error)
	// GetAllTouching returns every edge with at least one end in ids, in a
	// single round trip, ordered by edge id.
	GetAllTouching(ctx context.Context, ids []int64) ([]Compatibility, error)
	// Create fails with ErrDuplicate when the unordered pair already has an edge.
	Create(ctx context.Context, c *Compatibility) error
	// Update replaces the edge for c's unordered pair, or fails with ErrNotFound.
	Update(ctx context.Context, c *Compatibility) error
}

// Backend bundles the repositories of one storage technology.
type Backend interface {
	Tools() ToolStore
	Categories() CategoryRepository
	Compatibilities() CompatibilityRepository
	Close() error
}
