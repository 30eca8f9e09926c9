package fieldmask

import (
	"reflect"
	"testing"

	"bookclub/pkg/domain"
)

func sampleClub() domain.Club {
	return domain.Club{
		ClubID:          "c1",
		Name:            "Club Name",
		Description:     "Club Description",
		ContentWarnings: []string{"spiders"},
		OwnerID:         "owner",
		CurrentBook: domain.Book{
			BookID: "b1",
			Title:  "Book Title",
			Author: domain.Some("Author"),
			ISBN:   domain.Some("111"),
		},
	}
}

func TestMergeClubDescriptionOnly(t *testing.T) {
	current := sampleClub()
	update := domain.Club{Name: "New Name", Description: "New Description", CurrentBook: domain.Book{Title: "Other"}}
	got := MergeClub(current, update, Parse("description"))

	want := sampleClub()
	want.Description = "New Description"
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestMergeClubNestedTitleOnly(t *testing.T) {
	current := sampleClub()
	update := domain.Club{Name: "New Name", CurrentBook: domain.Book{BookID: "other", Title: "New Title", Author: domain.Some("New Author")}}
	got := MergeClub(current, update, Parse("currentBook.title"))

	want := sampleClub()
	want.CurrentBook.Title = "New Title"
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestMergeClubNoMask(t *testing.T) {
	current := sampleClub()
	update := domain.Club{
		ClubID:          "ignored",
		OwnerID:         "intruder",
		Name:            "New Name",
		Description:     "New Description",
		ContentWarnings: []string{"ghosts", "storms"},
		CurrentBook: domain.Book{
			BookID: "ignored",
			Title:  "New Title",
			Author: domain.Some("New Author"),
			ISBN:   domain.Some("222"),
		},
	}
	got := MergeClub(current, update, Mask{})

	if got.ClubID != "c1" || got.OwnerID != "owner" || got.CurrentBook.BookID != "b1" {
		t.Fatalf("identifiers must never change: %+v", got)
	}
	if got.Name != update.Name || got.Description != update.Description {
		t.Fatalf("club fields not applied: %+v", got)
	}
	if !reflect.DeepEqual(got.ContentWarnings, update.ContentWarnings) {
		t.Fatalf("warnings not replaced: %v", got.ContentWarnings)
	}
	if got.CurrentBook.Title != "New Title" || got.CurrentBook.Author.Unwrap() != "New Author" || got.CurrentBook.ISBN.Unwrap() != "222" {
		t.Fatalf("book fields not applied: %+v", got.CurrentBook)
	}
	update.ContentWarnings[0] = "mutated"
	if got.ContentWarnings[0] != "ghosts" {
		t.Fatalf("merge aliased the update slice")
	}
}

func TestMergeClubIgnoresUnknownEntries(t *testing.T) {
	current := sampleClub()
	got := MergeClub(current, domain.Club{ClubID: "x", OwnerID: "y"}, Parse("clubId,ownerId,currentBook.bookId,bogus"))
	if !reflect.DeepEqual(got, sampleClub()) {
		t.Fatalf("expected no changes, got %+v", got)
	}
}

func TestMergeClubDoesNotMutateCurrent(t *testing.T) {
	current := sampleClub()
	got := MergeClub(current, domain.Club{}, Mask{})
	got.ContentWarnings = append(got.ContentWarnings, "new")
	if !reflect.DeepEqual(current, sampleClub()) {
		t.Fatalf("current was modified: %+v", current)
	}
}

func TestMergePerson(t *testing.T) {
	current := domain.Person{UserID: "u1", Email: "a@b.c", Nickname: "ada", Pronouns: domain.Some("she/her")}
	update := domain.Person{UserID: "u2", Email: "new@b.c", Nickname: "lovelace", Pronouns: domain.Some("")}

	got := MergePerson(current, update, Parse("nickname, pronouns"))
	if got.UserID != "u1" || got.Email != "a@b.c" || got.Nickname != "lovelace" {
		t.Fatalf("unexpected merge %+v", got)
	}
	if got.Pronouns.IsSet {
		t.Fatalf("expected empty pronouns to collapse")
	}

	all := MergePerson(current, update, Mask{})
	if all.Email != "new@b.c" || all.UserID != "u1" {
		t.Fatalf("unexpected unmasked merge %+v", all)
	}
}

func TestMergeBook(t *testing.T) {
	current := domain.Book{BookID: "b", Title: "t", Author: domain.Some("a")}
	got := MergeBook(current, domain.Book{Title: "x", ISBN: domain.Some("9")}, Of("isbn"))
	if got.Title != "t" || got.ISBN.Unwrap() != "9" || got.Author.Unwrap() != "a" {
		t.Fatalf("unexpected merge %+v", got)
	}
}
