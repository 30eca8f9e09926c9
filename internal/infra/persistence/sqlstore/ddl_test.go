package sqlstore

import (
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	for _, dialect := range []Dialect{SQLite, Postgres} {
		stmts := SplitStatements(dialect.DDL)
		if len(stmts) != 7 {
			t.Fatalf("%s: expected 7 statements, got %d", dialect.Name, len(stmts))
		}
		for _, stmt := range stmts {
			if strings.HasPrefix(stmt, "--") {
				t.Fatalf("%s: statement starts with comment: %q", dialect.Name, stmt)
			}
			if !strings.HasSuffix(stmt, ";") {
				t.Fatalf("%s: statement missing terminator: %q", dialect.Name, stmt)
			}
		}
	}
}

func TestSplitStatementsKeepsUnterminatedTail(t *testing.T) {
	stmts := SplitStatements("-- comment\nCREATE TABLE a (x INT);\n\nSELECT 1")
	if len(stmts) != 2 || stmts[1] != "SELECT 1" {
		t.Fatalf("unexpected statements %q", stmts)
	}
}

func TestBindPlaceholders(t *testing.T) {
	query := "DELETE FROM memberships WHERE user_id = ? AND club_id = ?"
	if got := SQLite.bind(query); got != query {
		t.Fatalf("sqlite must keep markers, got %q", got)
	}
	want := "DELETE FROM memberships WHERE user_id = $1 AND club_id = $2"
	if got := Postgres.bind(query); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
