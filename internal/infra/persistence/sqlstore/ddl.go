package sqlstore

import (
	"bufio"
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
)

//go:embed schema/sqlite.sql
var sqliteDDL string

//go:embed schema/postgres.sql
var postgresDDL string

// Dialect captures the differences between SQL backends.
type Dialect struct {
	Name        string
	DDL         string
	Placeholder func(n int) string
	// ReadOptions opens the transaction that reloads every table at once.
	ReadOptions *sql.TxOptions
}

// SQLite is the dialect for modernc.org/sqlite. A plain deferred transaction
// already reads from one snapshot.
var SQLite = Dialect{
	Name:        "sqlite",
	DDL:         sqliteDDL,
	Placeholder: func(int) string { return "?" },
}

// Postgres is the dialect for the pgx database/sql driver.
var Postgres = Dialect{
	Name:        "postgres",
	DDL:         postgresDDL,
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	ReadOptions: &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
}

// bind rewrites "?" markers into the dialect's placeholders.
func (d Dialect) bind(query string) string {
	if d.Placeholder == nil {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SplitStatements splits a semicolon-terminated script into statements,
// dropping blank lines and "--" comments.
func SplitStatements(ddl string) []string {
	scanner := bufio.NewScanner(strings.NewReader(ddl))
	var (
		stmts   []string
		current strings.Builder
	)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
		if strings.HasSuffix(line, ";") {
			stmts = append(stmts, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if tail := strings.TrimSpace(current.String()); tail != "" {
		stmts = append(stmts, tail)
	}
	return stmts
}

// ApplyDDL executes the dialect schema. Statements are idempotent.
func ApplyDDL(ctx context.Context, db *sql.DB, dialect Dialect) error {
	for _, stmt := range SplitStatements(dialect.DDL) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: apply %s ddl: %w", dialect.Name, err)
		}
	}
	return nil
}
