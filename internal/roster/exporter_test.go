package roster

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"bookclub/internal/blob"
	"bookclub/internal/core"
	"bookclub/internal/infra/blob/fs"
	"bookclub/internal/infra/blob/memory"
	"bookclub/pkg/domain"
)

type fixture struct {
	svc    *core.Service
	owner  domain.Person
	reader domain.Person
	club   domain.Club
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine(), core.WithIDGenerator(domain.NewSequenceGenerator("id")))
	owner, _, err := svc.CreatePerson(ctx, domain.PersonDraft{Email: "owner@example.com", Nickname: "owner", Pronouns: domain.Some("they/them")})
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}
	reader, _, err := svc.CreatePerson(ctx, domain.PersonDraft{Email: "reader@example.com", Nickname: "reader, jr"})
	if err != nil {
		t.Fatalf("create reader: %v", err)
	}
	club, _, err := svc.CreateClub(ctx, owner.UserID, domain.ClubDraft{Name: "Readers", CurrentBook: domain.BookDraft{Title: "Dune"}})
	if err != nil {
		t.Fatalf("create club: %v", err)
	}
	if _, _, err := svc.JoinClub(ctx, reader.UserID, club.ClubID); err != nil {
		t.Fatalf("join: %v", err)
	}
	return fixture{svc: svc, owner: owner, reader: reader, club: club}
}

func readBlob(t *testing.T, store blob.Store, key string) []byte {
	t.Helper()
	_, rc, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get %s: %v", key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %s: %v", key, err)
	}
	return data
}

func TestExportJSON(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	store := memory.New()
	exporter := NewExporter(f.svc, store, WithClock(func() time.Time { return at }))

	artifact, err := exporter.Export(context.Background(), f.club.ClubID, f.owner.UserID, FormatJSON)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if artifact.Key != "rosters/"+f.club.ClubID+"/20240301T100000.000000000Z.json" {
		t.Fatalf("unexpected key %s", artifact.Key)
	}
	if artifact.Members != 2 || artifact.ContentType != "application/json" || artifact.URL != "memory:///"+artifact.Key {
		t.Fatalf("unexpected artifact %+v", artifact)
	}

	var doc Document
	if err := json.Unmarshal(readBlob(t, store, artifact.Key), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Club.ClubID != f.club.ClubID || doc.Club.CurrentBook.Title != "Dune" || doc.ExportedBy != f.owner.UserID {
		t.Fatalf("unexpected document %+v", doc)
	}
	if len(doc.Members) != 2 || doc.Members[0].Role != domain.RoleOwner || doc.Members[0].Pronouns != "they/them" {
		t.Fatalf("unexpected members %+v", doc.Members)
	}
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	store := memory.New()
	exporter := NewExporter(f.svc, store)

	artifact, err := exporter.Export(context.Background(), f.club.ClubID, f.owner.UserID, FormatCSV)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasSuffix(artifact.Key, ".csv") || artifact.ContentType != "text/csv" {
		t.Fatalf("unexpected artifact %+v", artifact)
	}
	records, err := csv.NewReader(strings.NewReader(string(readBlob(t, store, artifact.Key)))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 || strings.Join(records[0], ",") != strings.Join(csvHeader, ",") {
		t.Fatalf("unexpected csv %v", records)
	}
	if records[2][1] != "reader, jr" || records[2][4] != string(domain.RoleMember) {
		t.Fatalf("unexpected member row %v", records[2])
	}
}

func TestExportRequiresOwner(t *testing.T) {
	f := newFixture(t)
	store := memory.New()
	exporter := NewExporter(f.svc, store)
	var perm domain.PermissionError
	if _, err := exporter.Export(context.Background(), f.club.ClubID, f.reader.UserID, FormatJSON); !errors.As(err, &perm) {
		t.Fatalf("expected PermissionError, got %v", err)
	}
	if _, err := exporter.List(context.Background(), f.club.ClubID, f.reader.UserID); !errors.As(err, &perm) {
		t.Fatalf("expected PermissionError on list, got %v", err)
	}
	infos, _ := store.List(context.Background(), "")
	if len(infos) != 0 {
		t.Fatalf("nothing should be stored, got %v", infos)
	}
	var notFound domain.NotFoundError
	if _, err := exporter.Export(context.Background(), "missing", f.owner.UserID, FormatJSON); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestExportSameInstantConflicts(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	exporter := NewExporter(f.svc, memory.New(), WithClock(func() time.Time { return at }))
	if _, err := exporter.Export(context.Background(), f.club.ClubID, f.owner.UserID, FormatJSON); err != nil {
		t.Fatalf("first export: %v", err)
	}
	if _, err := exporter.Export(context.Background(), f.club.ClubID, f.owner.UserID, FormatJSON); !errors.Is(err, blob.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestListExportsAndSignedURL(t *testing.T) {
	f := newFixture(t)
	store, err := fs.New(t.TempDir(), fs.WithBaseURL("https://files.example.com"))
	if err != nil {
		t.Fatalf("fs store: %v", err)
	}
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	exporter := NewExporter(f.svc, store, WithClock(func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}))
	first, err := exporter.Export(context.Background(), f.club.ClubID, f.owner.UserID, FormatJSON)
	if err != nil {
		t.Fatalf("export json: %v", err)
	}
	if first.URL != "https://files.example.com/"+first.Key {
		t.Fatalf("unexpected url %s", first.URL)
	}
	if _, err := exporter.Export(context.Background(), f.club.ClubID, f.owner.UserID, FormatCSV); err != nil {
		t.Fatalf("export csv: %v", err)
	}
	infos, err := exporter.List(context.Background(), f.club.ClubID, f.owner.UserID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != first.Key {
		t.Fatalf("unexpected exports %+v", infos)
	}
}

func TestParseFormat(t *testing.T) {
	for raw, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, " csv ": FormatCSV} {
		got, err := ParseFormat(raw)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %v, %v", raw, got, err)
		}
	}
	var verr domain.ValidationError
	if _, err := ParseFormat("xml"); !errors.As(err, &verr) || verr.Field != "format" {
		t.Fatalf("expected format validation error, got %v", err)
	}
}
