package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/julianshen/stackharmony/internal/catalog"
)

const compatColumns = `id, tool_one_id, tool_two_id, score, notes, verified, difficulty,
	setup_steps, dependencies, created_at, updated_at`

// pairClause matches a row holding the pair in either order, so rows
// written before canonical ordering was enforced still resolve.
const pairClause = `((tool_one_id = ? AND tool_two_id = ?) OR (tool_one_id = ? AND tool_two_id = ?))`

type compatRepo struct{ s *Store }

func scanCompatibility(row rowScanner) (catalog.Compatibility, error) {
	var (
		c                catalog.Compatibility
		difficulty       string
		steps, deps      string
		created, updated int64
	)
	err := row.Scan(&c.ID, &c.ToolOneID, &c.ToolTwoID, &c.Score, &c.Notes, &c.Verified,
		&difficulty, &steps, &deps, &created, &updated)
	if err != nil {
		return c, err
	}
	c.Difficulty = catalog.Difficulty(difficulty)
	c.SetupSteps = decodeList(steps)
	c.Dependencies = decodeList(deps)
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(updated)
	return c, nil
}

// GetByPair returns nil, nil when the pair has no edge.
func (r compatRepo) GetByPair(ctx context.Context, a, b int64) (*catalog.Compatibility, error) {
	if a == b {
		return nil, nil
	}
	c, err := r.byPair(ctx, r.s.db, a, b)
	if err != nil {
		return nil, fmt.Errorf("get compatibility: %w", err)
	}
	return c, nil
}

func (r compatRepo) byPair(ctx context.Context, q querier, a, b int64) (*catalog.Compatibility, error) {
	c, err := scanCompatibility(r.s.queryRow(ctx, q,
		`SELECT `+compatColumns+` FROM compatibilities WHERE `+pairClause+` ORDER BY id LIMIT 1`,
		a, b, b, a))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetAllTouching fetches every edge with an end in ids in one query.
func (r compatRepo) GetAllTouching(ctx context.Context, ids []int64) ([]catalog.Compatibility, error) {
	ids = catalog.UniqueIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	in := placeholders(len(ids))
	args := append(int64Args(ids), int64Args(ids)...)
	rows, err := r.s.query(ctx, r.s.db,
		`SELECT `+compatColumns+` FROM compatibilities
		 WHERE tool_one_id IN (`+in+`) OR tool_two_id IN (`+in+`)
		 ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("get touching compatibilities: %w", err)
	}
	defer rows.Close()

	var edges []catalog.Compatibility
	for rows.Next() {
		c, err := scanCompatibility(rows)
		if err != nil {
			return nil, fmt.Errorf("scan compatibility: %w", err)
		}
		edges = append(edges, c)
	}
	return edges, rows.Err()
}

// Create stores the edge canonically. Returns catalog.ErrDuplicate if the
// unordered pair already has an edge.
func (r compatRepo) Create(ctx context.Context, c *catalog.Compatibility) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		err := r.s.queryRow(ctx, tx, `SELECT COUNT(*) FROM tools WHERE id IN (?, ?)`,
			c.ToolOneID, c.ToolTwoID).Scan(&n)
		if err != nil {
			return fmt.Errorf("check tools: %w", err)
		}
		if n < 2 {
			return fmt.Errorf("compatibility %s: tool %w", c.Pair(), catalog.ErrNotFound)
		}
		existing, err := r.byPair(ctx, tx, c.ToolOneID, c.ToolTwoID)
		if err != nil {
			return fmt.Errorf("check compatibility: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("compatibility %s: %w", c.Pair(), catalog.ErrDuplicate)
		}
		now := r.s.timestamp()
		id, err := r.s.insert(ctx, tx,
			`INSERT INTO compatibilities (tool_one_id, tool_two_id, score, notes, verified,
				difficulty, setup_steps, dependencies, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ToolOneID, c.ToolTwoID, c.Score, c.Notes, c.Verified, string(c.Difficulty),
			encodeList(c.SetupSteps), encodeList(c.Dependencies), now, now)
		if err != nil {
			return fmt.Errorf("create compatibility: %w", err)
		}
		c.ID = id
		c.CreatedAt = fromMillis(now)
		c.UpdatedAt = c.CreatedAt
		return nil
	})
}

// Update rewrites the edge of c's unordered pair, normalizing legacy rows
// to canonical order.
func (r compatRepo) Update(ctx context.Context, c *catalog.Compatibility) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := r.byPair(ctx, tx, c.ToolOneID, c.ToolTwoID)
		if err != nil {
			return fmt.Errorf("find compatibility: %w", err)
		}
		if existing == nil {
			return fmt.Errorf("compatibility %s: %w", c.Pair(), catalog.ErrNotFound)
		}
		now := r.s.timestamp()
		_, err = r.s.exec(ctx, tx,
			`UPDATE compatibilities SET tool_one_id = ?, tool_two_id = ?, score = ?, notes = ?,
				verified = ?, difficulty = ?, setup_steps = ?, dependencies = ?, updated_at = ?
			 WHERE id = ?`,
			c.ToolOneID, c.ToolTwoID, c.Score, c.Notes, c.Verified, string(c.Difficulty),
			encodeList(c.SetupSteps), encodeList(c.Dependencies), now, existing.ID)
		if err != nil {
			return fmt.Errorf("update compatibility: %w", err)
		}
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
		c.UpdatedAt = fromMillis(now)
		return nil
	})
}
