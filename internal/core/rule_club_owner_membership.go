package core

import (
	"context"
	"fmt"

	"bookclub/pkg/domain"
)

// NewClubOwnerMembershipRule keeps the club owner id and the OWNER
// membership row in agreement: every club has exactly one OWNER row and it
// belongs to the club's ownerId.
func NewClubOwnerMembershipRule() domain.Rule {
	return clubOwnerMembershipRule{}
}

type clubOwnerMembershipRule struct{}

func (clubOwnerMembershipRule) Name() string { return "club_owner_membership" }

func (r clubOwnerMembershipRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, clubID := range touchedClubs(changes) {
		club, ok := view.FindClub(clubID)
		if !ok {
			continue
		}
		owners := view.ListMemberships(domain.MembershipFilter{ClubID: clubID, Role: domain.RoleOwner})
		switch {
		case len(owners) == 0:
			res.Violations = append(res.Violations, r.violation(club, "has no OWNER membership"))
		case len(owners) > 1:
			res.Violations = append(res.Violations, r.violation(club, fmt.Sprintf("has %d OWNER memberships", len(owners))))
		case owners[0].UserID != club.OwnerID:
			res.Violations = append(res.Violations, r.violation(club,
				fmt.Sprintf("OWNER membership held by %s but ownerId is %s", owners[0].UserID, club.OwnerID)))
		}
	}
	return res, nil
}

func (clubOwnerMembershipRule) violation(club domain.ClubRecord, msg string) domain.Violation {
	return domain.Violation{
		Rule:     "club_owner_membership",
		Severity: domain.SeverityBlock,
		Message:  fmt.Sprintf("club %s %s", club.ClubID, msg),
		Entity:   domain.EntityClub,
		EntityID: club.ClubID,
	}
}
