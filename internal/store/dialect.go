package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	Name string
	// Numbered placeholders ($1, $2, ...) instead of "?".
	numbered bool
	// INSERT ... RETURNING id instead of LastInsertId.
	returning bool
	types     *strings.Replacer
	// Statements run after the CREATE TABLE list.
	extra []string
}

var (
	SQLite = Dialect{
		Name: "sqlite",
		types: strings.NewReplacer(
			"{{pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
			"{{float}}", "REAL",
			"{{two_index}}", "",
		),
		extra: []string{
			`CREATE INDEX IF NOT EXISTS idx_compat_two ON compatibilities (tool_two_id)`,
		},
	}
	Postgres = Dialect{
		Name:      "postgres",
		numbered:  true,
		returning: true,
		types: strings.NewReplacer(
			"{{pk}}", "BIGSERIAL PRIMARY KEY",
			"{{float}}", "DOUBLE PRECISION",
			"{{two_index}}", "",
		),
		extra: []string{
			`CREATE INDEX IF NOT EXISTS idx_compat_two ON compatibilities (tool_two_id)`,
		},
	}
	MySQL = Dialect{
		Name: "mysql",
		types: strings.NewReplacer(
			"{{pk}}", "BIGINT AUTO_INCREMENT PRIMARY KEY",
			"{{float}}", "DOUBLE",
			"{{two_index}}", ",\n\t\t\tINDEX idx_compat_two (tool_two_id)",
		),
	}
)

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	}
	return Dialect{}, fmt.Errorf("unsupported database driver %q", name)
}

// Rebind rewrites "?" placeholders for dialects that number them.
func (d Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Schema renders the CREATE statements for this dialect.
func (d Dialect) Schema() []string {
	stmts := make([]string, 0, len(schema)+len(d.extra))
	for _, s := range schema {
		stmts = append(stmts, d.types.Replace(s))
	}
	return append(stmts, d.extra...)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
			id   {{pk}},
			name VARCHAR(100) NOT NULL UNIQUE
		)`,
	`CREATE TABLE IF NOT EXISTS tools (
			id                    {{pk}},
			name                  VARCHAR(200) NOT NULL UNIQUE,
			category_id           BIGINT NOT NULL REFERENCES categories (id),
			description           TEXT NOT NULL,
			url                   VARCHAR(500) NOT NULL,
			pricing               TEXT NOT NULL,
			version               VARCHAR(64) NOT NULL,
			frameworks            TEXT NOT NULL,
			languages             TEXT NOT NULL,
			features              TEXT NOT NULL,
			native_integrations   TEXT NOT NULL,
			verified_integrations TEXT NOT NULL,
			strengths             TEXT NOT NULL,
			limitations           TEXT NOT NULL,
			maturity_score        {{float}} NOT NULL,
			popularity_score      {{float}} NOT NULL,
			created_at            BIGINT NOT NULL,
			updated_at            BIGINT NOT NULL
		)`,
	`CREATE TABLE IF NOT EXISTS compatibilities (
			id           {{pk}},
			tool_one_id  BIGINT NOT NULL REFERENCES tools (id) ON DELETE CASCADE,
			tool_two_id  BIGINT NOT NULL REFERENCES tools (id) ON DELETE CASCADE,
			score        INTEGER NOT NULL,
			notes        TEXT NOT NULL,
			verified     BOOLEAN NOT NULL,
			difficulty   VARCHAR(10) NOT NULL,
			setup_steps  TEXT NOT NULL,
			dependencies TEXT NOT NULL,
			created_at   BIGINT NOT NULL,
			updated_at   BIGINT NOT NULL,
			UNIQUE (tool_one_id, tool_two_id){{two_index}}
		)`,
}
