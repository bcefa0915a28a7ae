package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/julianshen/stackharmony/internal/catalog"
)

const toolColumns = `id, name, category_id, description, url, pricing, version,
	frameworks, languages, features, native_integrations, verified_integrations,
	strengths, limitations, maturity_score, popularity_score, created_at, updated_at`

type toolRepo struct{ s *Store }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTool(row rowScanner) (catalog.Tool, error) {
	var (
		t                 catalog.Tool
		frameworks, langs string
		features, native  string
		verified, pros    string
		cons              string
		created, updated  int64
	)
	err := row.Scan(&t.ID, &t.Name, &t.CategoryID, &t.Description, &t.URL, &t.Pricing, &t.Version,
		&frameworks, &langs, &features, &native, &verified,
		&pros, &cons, &t.MaturityScore, &t.PopularityScore, &created, &updated)
	if err != nil {
		return t, err
	}
	t.Frameworks = decodeList(frameworks)
	t.Languages = decodeList(langs)
	t.Features = decodeList(features)
	t.NativeIntegrations = decodeList(native)
	t.VerifiedIntegrations = decodeList(verified)
	t.Strengths = decodeList(pros)
	t.Limitations = decodeList(cons)
	t.CreatedAt = fromMillis(created)
	t.UpdatedAt = fromMillis(updated)
	return t, nil
}

func (r toolRepo) queryTools(ctx context.Context, query string, args ...any) ([]catalog.Tool, error) {
	rows, err := r.s.query(ctx, r.s.db, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tools []catalog.Tool
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tool: %w", err)
		}
		tools = append(tools, t)
	}
	return tools, rows.Err()
}

// GetByID returns catalog.ErrNotFound if no tool has the given id.
func (r toolRepo) GetByID(ctx context.Context, id int64) (*catalog.Tool, error) {
	t, err := scanTool(r.s.queryRow(ctx, r.s.db,
		`SELECT `+toolColumns+` FROM tools WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tool %d: %w", id, catalog.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get tool: %w", err)
	}
	return &t, nil
}

// GetByIDs loads all requested tools with a single IN query.
func (r toolRepo) GetByIDs(ctx context.Context, ids []int64) ([]catalog.Tool, error) {
	ids = catalog.UniqueIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	tools, err := r.queryTools(ctx,
		`SELECT `+toolColumns+` FROM tools WHERE id IN (`+placeholders(len(ids))+`) ORDER BY id`,
		int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("get tools: %w", err)
	}
	return tools, nil
}

func (r toolRepo) GetByCategory(ctx context.Context, categoryID int64) ([]catalog.Tool, error) {
	tools, err := r.queryTools(ctx,
		`SELECT `+toolColumns+` FROM tools WHERE category_id = ? ORDER BY id`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("get tools by category: %w", err)
	}
	return tools, nil
}

func (r toolRepo) GetByName(ctx context.Context, name string) (*catalog.Tool, error) {
	t, err := scanTool(r.s.queryRow(ctx, r.s.db,
		`SELECT `+toolColumns+` FROM tools WHERE LOWER(name) = ?`, strings.ToLower(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tool %q: %w", name, catalog.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get tool by name: %w", err)
	}
	return &t, nil
}

// Search pushes every ToolQuery predicate into SQL and pages with LIMIT/OFFSET.
func (r toolRepo) Search(ctx context.Context, q catalog.ToolQuery) (catalog.ToolPage, error) {
	q = q.Normalize()
	where, args := searchFilter(q)

	var total int
	if err := r.s.queryRow(ctx, r.s.db, `SELECT COUNT(*) FROM tools`+where, args...).Scan(&total); err != nil {
		return catalog.ToolPage{}, fmt.Errorf("count tools: %w", err)
	}

	pageArgs := append(append([]any{}, args...), q.PerPage, q.Offset())
	tools, err := r.queryTools(ctx,
		`SELECT `+toolColumns+` FROM tools`+where+` ORDER BY id LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return catalog.ToolPage{}, fmt.Errorf("search tools: %w", err)
	}
	return catalog.NewToolPage(q, tools, total), nil
}

func searchFilter(q catalog.ToolQuery) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if q.CategoryID > 0 {
		clauses = append(clauses, `category_id = ?`)
		args = append(args, q.CategoryID)
	}
	if q.MinMaturity > 0 {
		clauses = append(clauses, `maturity_score >= ?`)
		args = append(args, q.MinMaturity)
	}
	if q.MinPopularity > 0 {
		clauses = append(clauses, `popularity_score >= ?`)
		args = append(args, q.MinPopularity)
	}
	if q.Text != "" {
		p := likePattern(q.Text)
		clauses = append(clauses, `(LOWER(name) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!' OR LOWER(features) LIKE ? ESCAPE '!')`)
		args = append(args, p, p, p)
	}
	for _, f := range []struct {
		column string
		values []string
	}{{"frameworks", q.Frameworks}, {"languages", q.Languages}} {
		if len(f.values) == 0 {
			continue
		}
		var ors []string
		for _, v := range f.values {
			ors = append(ors, `LOWER(`+f.column+`) LIKE ? ESCAPE '!'`)
			args = append(args, likePattern(v))
		}
		clauses = append(clauses, `(`+strings.Join(ors, ` OR `)+`)`)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(clauses, ` AND `), args
}

// Create inserts t and sets its id and timestamps. Returns
// catalog.ErrDuplicate if the name is taken.
func (r toolRepo) Create(ctx context.Context, t *catalog.Tool) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		if err := r.checkWritable(ctx, tx, t, 0); err != nil {
			return err
		}
		now := r.s.timestamp()
		id, err := r.s.insert(ctx, tx,
			`INSERT INTO tools (name, category_id, description, url, pricing, version,
				frameworks, languages, features, native_integrations, verified_integrations,
				strengths, limitations, maturity_score, popularity_score, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.Name, t.CategoryID, t.Description, t.URL, t.Pricing, t.Version,
			encodeList(t.Frameworks), encodeList(t.Languages), encodeList(t.Features),
			encodeList(t.NativeIntegrations), encodeList(t.VerifiedIntegrations),
			encodeList(t.Strengths), encodeList(t.Limitations),
			t.MaturityScore, t.PopularityScore, now, now)
		if err != nil {
			return fmt.Errorf("create tool: %w", err)
		}
		t.ID = id
		t.CreatedAt = fromMillis(now)
		t.UpdatedAt = t.CreatedAt
		return nil
	})
}

func (r toolRepo) Update(ctx context.Context, t *catalog.Tool) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		var created int64
		err := r.s.queryRow(ctx, tx, `SELECT created_at FROM tools WHERE id = ?`, t.ID).Scan(&created)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("tool %d: %w", t.ID, catalog.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("update tool: %w", err)
		}
		if err := r.checkWritable(ctx, tx, t, t.ID); err != nil {
			return err
		}
		now := r.s.timestamp()
		_, err = r.s.exec(ctx, tx,
			`UPDATE tools SET name = ?, category_id = ?, description = ?, url = ?, pricing = ?,
				version = ?, frameworks = ?, languages = ?, features = ?, native_integrations = ?,
				verified_integrations = ?, strengths = ?, limitations = ?, maturity_score = ?,
				popularity_score = ?, updated_at = ?
			 WHERE id = ?`,
			t.Name, t.CategoryID, t.Description, t.URL, t.Pricing, t.Version,
			encodeList(t.Frameworks), encodeList(t.Languages), encodeList(t.Features),
			encodeList(t.NativeIntegrations), encodeList(t.VerifiedIntegrations),
			encodeList(t.Strengths), encodeList(t.Limitations),
			t.MaturityScore, t.PopularityScore, now, t.ID)
		if err != nil {
			return fmt.Errorf("update tool: %w", err)
		}
		t.CreatedAt = fromMillis(created)
		t.UpdatedAt = fromMillis(now)
		return nil
	})
}

// checkWritable verifies the category exists and the name is free for
// the tool with id self (0 for a new tool).
func (r toolRepo) checkWritable(ctx context.Context, tx *sql.Tx, t *catalog.Tool, self int64) error {
	var n int
	if err := r.s.queryRow(ctx, tx, `SELECT COUNT(*) FROM categories WHERE id = ?`, t.CategoryID).Scan(&n); err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("category %d: %w", t.CategoryID, catalog.ErrNotFound)
	}
	err := r.s.queryRow(ctx, tx,
		`SELECT COUNT(*) FROM tools WHERE LOWER(name) = ? AND id <> ?`,
		strings.ToLower(t.Name), self).Scan(&n)
	if err != nil {
		return fmt.Errorf("check tool name: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("tool %q: %w", t.Name, catalog.ErrDuplicate)
	}
	return nil
}

// Delete removes the tool together with every edge touching it.
func (r toolRepo) Delete(ctx context.Context, id int64) error {
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.s.exec(ctx, tx,
			`DELETE FROM compatibilities WHERE tool_one_id = ? OR tool_two_id = ?`, id, id); err != nil {
			return fmt.Errorf("delete tool edges: %w", err)
		}
		res, err := r.s.exec(ctx, tx, `DELETE FROM tools WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete tool: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("tool %d: %w", id, catalog.ErrNotFound)
		}
		return nil
	})
}

func (r toolRepo) Stats(ctx context.Context) (catalog.Stats, error) {
	stats := catalog.Stats{CategoryBreakdown: make(map[string]int)}
	if err := r.s.queryRow(ctx, r.s.db, `SELECT COUNT(*) FROM tools`).Scan(&stats.TotalTools); err != nil {
		return stats, fmt.Errorf("count tools: %w", err)
	}
	rows, err := r.s.query(ctx, r.s.db,
		`SELECT c.name, COUNT(t.id) FROM tools t
		 JOIN categories c ON c.id = t.category_id
		 GROUP BY c.name`)
	if err != nil {
		return stats, fmt.Errorf("category breakdown: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name  string
			count int
		)
		if err := rows.Scan(&name, &count); err != nil {
			return stats, fmt.Errorf("scan breakdown: %w", err)
		}
		stats.CategoryBreakdown[name] = count
	}
	stats.TotalCategories = len(stats.CategoryBreakdown)
	return stats, rows.Err()
}
