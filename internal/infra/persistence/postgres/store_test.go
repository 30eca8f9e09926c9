package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"bookclub/internal/infra/persistence/memory"
	"bookclub/pkg/domain"
)

func TestNewStoreOpenError(t *testing.T) {
	restore := sqlOpen
	defer func() { sqlOpen = restore }()
	sqlOpen = func(string, string) (*sql.DB, error) { return nil, errors.New("dial refused") }
	if _, err := NewStore(context.Background(), "", domain.NewRulesEngine()); err == nil {
		t.Fatalf("expected open error")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("BOOKCLUB_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("BOOKCLUB_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	store, err := NewStore(ctx, dsn, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	for _, table := range []string{"memberships", "clubs", "books", "people"} {
		if _, err := store.DB().ExecContext(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("reset %s: %v", table, err)
		}
	}
	store.ImportState(memory.Snapshot{})

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreatePerson(domain.Person{UserID: "pg-u1", Email: "a@b.c", Nickname: "ada"}); err != nil {
			return err
		}
		if _, err := tx.CreateBook(domain.Book{BookID: "pg-b1", Title: "Dune"}); err != nil {
			return err
		}
		if _, err := tx.CreateClub(domain.ClubRecord{ClubID: "pg-c1", Name: "Spice", BookID: "pg-b1", Description: "d", OwnerID: "pg-u1"}); err != nil {
			return err
		}
		_, err := tx.CreateMembership(domain.Membership{UserID: "pg-u1", ClubID: "pg-c1", Role: domain.RoleOwner})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	reopened, err := NewStore(ctx, dsn, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	state := reopened.ExportState()
	if _, ok := state.Clubs["pg-c1"]; !ok || len(state.Memberships) != 1 {
		t.Fatalf("unexpected state %+v", state)
	}
}
