package core

import (
	"context"
	"fmt"

	"bookclub/pkg/domain"
)

// NewClubBookReferenceRule blocks commits that leave a club pointing at a
// book row that does not exist.
func NewClubBookReferenceRule() domain.Rule {
	return clubBookReferenceRule{}
}

type clubBookReferenceRule struct{}

func (clubBookReferenceRule) Name() string { return "club_book_reference" }

func (clubBookReferenceRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, clubID := range touchedClubs(changes) {
		club, ok := view.FindClub(clubID)
		if !ok {
			continue
		}
		if _, ok := view.FindBook(club.BookID); ok {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "club_book_reference",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("club %s references missing book %s", club.ClubID, club.BookID),
			Entity:   domain.EntityClub,
			EntityID: club.ClubID,
		})
	}
	return res, nil
}
