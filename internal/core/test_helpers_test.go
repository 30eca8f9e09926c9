package core

import (
	"context"
	"testing"

	"bookclub/pkg/domain"
)

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	opts = append([]ServiceOption{WithIDGenerator(domain.NewSequenceGenerator("id"))}, opts...)
	return NewInMemoryService(NewDefaultRulesEngine(), opts...)
}

func mustCreatePerson(t *testing.T, svc *Service, nickname string) Person {
	t.Helper()
	person, _, err := svc.CreatePerson(context.Background(), PersonDraft{
		Email:    nickname + "@example.com",
		Nickname: nickname,
	})
	if err != nil {
		t.Fatalf("create person %s: %v", nickname, err)
	}
	return person
}

func mustCreateClub(t *testing.T, svc *Service, ownerID, name string) Club {
	t.Helper()
	club, _, err := svc.CreateClub(context.Background(), ownerID, ClubDraft{
		Name:        name,
		CurrentBook: domain.BookDraft{Title: name + " Book"},
	})
	if err != nil {
		t.Fatalf("create club %s: %v", name, err)
	}
	return club
}
