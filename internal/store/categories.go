package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/julianshen/stackharmony/internal/catalog"
)

type categoryRepo struct{ s *Store }

// Categories returns all categories sorted by name.
func (r categoryRepo) Categories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := r.s.query(ctx, r.s.db, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []catalog.Category
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r categoryRepo) CategoryByName(ctx context.Context, name string) (*catalog.Category, error) {
	var c catalog.Category
	err := r.s.queryRow(ctx, r.s.db,
		`SELECT id, name FROM categories WHERE LOWER(name) = ?`, strings.ToLower(name),
	).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %q: %w", name, catalog.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

func (r categoryRepo) CreateCategory(ctx context.Context, c *catalog.Category) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: category name is required", catalog.ErrInvalid)
	}
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		err := r.s.queryRow(ctx, tx,
			`SELECT COUNT(*) FROM categories WHERE LOWER(name) = ?`, strings.ToLower(c.Name)).Scan(&n)
		if err != nil {
			return fmt.Errorf("check category: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("category %q: %w", c.Name, catalog.ErrDuplicate)
		}
		id, err := r.s.insert(ctx, tx, `INSERT INTO categories (name) VALUES (?)`, c.Name)
		if err != nil {
			return fmt.Errorf("create category: %w", err)
		}
		c.ID = id
		return nil
	})
}
