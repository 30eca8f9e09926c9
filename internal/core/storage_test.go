package core

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"bookclub/internal/config"
	"bookclub/internal/infra/persistence/memory"
	"bookclub/pkg/domain"
)

func TestOpenPersistentStoreMemory(t *testing.T) {
	store, err := OpenPersistentStore(context.Background(), config.StorageConfig{Driver: config.StorageMemory}, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
	if err := CloseStore(store); err != nil {
		t.Fatalf("closing a memory store should be a no-op: %v", err)
	}
}

func TestOpenPersistentStoreSQLitePersists(t *testing.T) {
	ctx := context.Background()
	cfg := config.StorageConfig{Driver: config.StorageSQLite, SQLitePath: filepath.Join(t.TempDir(), "nested", "bookclub.db")}
	store, err := OpenPersistentStore(ctx, cfg, NewDefaultRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	svc := NewService(store)
	owner := mustCreatePerson(t, svc, "owner")
	club := mustCreateClub(t, svc, owner.UserID, "Persistent")
	if err := CloseStore(store); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenPersistentStore(ctx, cfg, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = CloseStore(reopened) })
	fetched, err := NewService(reopened).FetchClub(ctx, club.ClubID)
	if err != nil {
		t.Fatalf("fetch after reopen: %v", err)
	}
	if fetched.Name != "Persistent" || fetched.CurrentBook.Title != "Persistent Book" || fetched.OwnerID != owner.UserID {
		t.Fatalf("unexpected club after reopen: %+v", fetched)
	}
	members, err := NewService(reopened).ListMembers(ctx, club.ClubID)
	if err != nil || len(members) != 1 {
		t.Fatalf("owner membership should persist: %+v %v", members, err)
	}
}

func TestSQLiteHandlesShareOneFile(t *testing.T) {
	ctx := context.Background()
	cfg := config.StorageConfig{Driver: config.StorageSQLite, SQLitePath: filepath.Join(t.TempDir(), "bookclub.db")}
	storeA, err := OpenPersistentStore(ctx, cfg, NewDefaultRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = CloseStore(storeA) })
	storeB, err := OpenPersistentStore(ctx, cfg, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open second handle: %v", err)
	}
	t.Cleanup(func() { _ = CloseStore(storeB) })
	a := NewService(storeA, WithIDGenerator(domain.NewSequenceGenerator("a")))
	b := NewService(storeB, WithIDGenerator(domain.NewSequenceGenerator("b")))

	owner := mustCreatePerson(t, a, "owner")
	reader := mustCreatePerson(t, a, "reader")
	club := mustCreateClub(t, a, owner.UserID, "Shared")
	if _, _, err := a.JoinClub(ctx, reader.UserID, club.ClubID); err != nil {
		t.Fatalf("join through A: %v", err)
	}

	if got, err := b.FetchPerson(ctx, reader.UserID); err != nil || got.Nickname != "reader" {
		t.Fatalf("B must read A's person: %+v %v", got, err)
	}
	_, _, err = b.JoinClub(ctx, reader.UserID, club.ClubID)
	var already domain.AlreadyMemberError
	if !errors.As(err, &already) {
		t.Fatalf("expected AlreadyMemberError from B, got %v", err)
	}
	if _, err := b.LeaveClub(ctx, reader.UserID, club.ClubID); err != nil {
		t.Fatalf("leave through B: %v", err)
	}
	members, err := a.ListMembers(ctx, club.ClubID)
	if err != nil || len(members) != 1 || members[0].UserID != owner.UserID {
		t.Fatalf("A must see B's leave: %+v %v", members, err)
	}
	if _, _, err := b.CreatePerson(ctx, PersonDraft{Email: "late@example.com", Nickname: "late"}); err != nil {
		t.Fatalf("create through B: %v", err)
	}
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	if _, err := OpenPersistentStore(context.Background(), config.StorageConfig{Driver: "cassandra"}, nil); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
