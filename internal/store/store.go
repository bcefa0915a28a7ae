// Package store provides the SQL-backed catalog.Backend. One implementation
// serves SQLite, PostgreSQL and MySQL through small dialect differences.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/julianshen/stackharmony/internal/catalog"
)

// Store wraps a SQL database holding the tool catalog and the pairwise
// compatibility table.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// NewStore opens (or creates) a SQLite database at dbPath and ensures all
// required tables exist. Use ":memory:" for an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	return Open(context.Background(), "sqlite", dbPath)
}

// Open connects to the database named by driver ("sqlite", "postgres" or
// "mysql") and creates the schema if needed.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	d, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := openDB(d, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &Store{db: db, dialect: d, now: time.Now}
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func openDB(d Dialect, dsn string) (*sql.DB, error) {
	switch d.Name {
	case Postgres.Name:
		cfg, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse postgres dsn: %w", err)
		}
		return stdlib.OpenDB(*cfg), nil
	case MySQL.Name:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, err
		}
		return sql.OpenDB(connector), nil
	default:
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
		// SQLite serializes writers and ":memory:" is per connection.
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
		return db, nil
	}
}

// Dialect reports the SQL dialect in use.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Tools() catalog.ToolStore                         { return toolRepo{s} }
func (s *Store) Categories() catalog.CategoryRepository           { return categoryRepo{s} }
func (s *Store) Compatibilities() catalog.CompatibilityRepository { return compatRepo{s} }

func (s *Store) createTables(ctx context.Context) error {
	if s.dialect.Name == SQLite.Name {
		if _, err := s.db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			return fmt.Errorf("enable foreign keys: %w", err)
		}
	}
	for _, stmt := range s.dialect.Schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", strings.TrimSpace(stmt)[:40], err)
		}
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) exec(ctx context.Context, q querier, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *Store) query(ctx context.Context, q querier, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, s.dialect.Rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, q querier, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, s.dialect.Rebind(query), args...)
}

// insert runs an INSERT and returns the generated id.
func (s *Store) insert(ctx context.Context, q querier, query string, args ...any) (int64, error) {
	if s.dialect.returning {
		var id int64
		if err := s.queryRow(ctx, q, query+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := s.exec(ctx, q, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// withTx runs fn inside a transaction, committing on success.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) timestamp() int64 {
	return s.now().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// placeholders renders "?, ?, ?" for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// encodeList stores string lists as JSON arrays in TEXT columns.
func encodeList(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// decodeList tolerates empty and malformed columns, which read as no values.
func decodeList(raw string) []string {
	if raw == "" || raw == "null" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil || len(values) == 0 {
		return nil
	}
	return values
}

// likePattern builds a case-insensitive substring pattern using '!' as the
// LIKE escape character.
func likePattern(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
