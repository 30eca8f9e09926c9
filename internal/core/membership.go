package core

import (
	"context"

	"bookclub/pkg/domain"
)

// JoinClub adds userID to clubID as a MEMBER. The existence check and the
// insert share one transaction, so of two concurrent joins for the same pair
// exactly one succeeds and the other fails with AlreadyMemberError.
func (s *Service) JoinClub(ctx context.Context, userID, clubID string) (Membership, Result, error) {
	key := MembershipKey{UserID: userID, ClubID: clubID}
	var (
		joined Membership
		res    Result
	)
	err := s.observe(ctx, "join_club", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, err := findPerson(tx, userID); err != nil {
				return err
			}
			if _, ok := tx.FindClub(clubID); !ok {
				return domain.NotFoundError{Entity: EntityClub, ID: clubID}
			}
			if _, ok := tx.FindMembership(key); ok {
				return domain.AlreadyMemberError{Key: key}
			}
			var err error
			joined, err = tx.CreateMembership(Membership{UserID: userID, ClubID: clubID, Role: domain.RoleMember})
			return err
		})
		return key.String(), err
	})
	return joined, res, err
}

// LeaveClub removes the membership row of userID in clubID. Owners cannot
// leave their own club.
func (s *Service) LeaveClub(ctx context.Context, userID, clubID string) (Result, error) {
	key := MembershipKey{UserID: userID, ClubID: clubID}
	var res Result
	err := s.observe(ctx, "leave_club", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			club, ok := tx.FindClub(clubID)
			if !ok {
				return domain.NotFoundError{Entity: EntityClub, ID: clubID}
			}
			membership, ok := tx.FindMembership(key)
			if !ok {
				return domain.NotMemberError{Key: key}
			}
			if membership.Role == domain.RoleOwner || club.OwnerID == userID {
				return domain.OwnerCannotLeaveError{Key: key}
			}
			return tx.DeleteMembership(key)
		})
		return key.String(), err
	})
	return res, err
}

// ListMembers returns the people holding a membership row in clubID, the
// owner included, in join order. A club without any rows, which includes an
// unknown club id, yields NoMembersError.
func (s *Service) ListMembers(ctx context.Context, clubID string) ([]Person, error) {
	var members []Person
	err := s.observe(ctx, "list_members", func(ctx context.Context) (string, error) {
		return clubID, s.store.View(ctx, func(view TransactionView) error {
			rows := view.ListMemberships(domain.MembershipFilter{ClubID: clubID})
			if len(rows) == 0 {
				return domain.NoMembersError{ClubID: clubID}
			}
			members = make([]Person, 0, len(rows))
			for _, row := range rows {
				person, err := findPerson(view, row.UserID)
				if err != nil {
					return err
				}
				members = append(members, person)
			}
			return nil
		})
	})
	return members, err
}

// ListMemberships returns the membership rows of clubID in join order.
func (s *Service) ListMemberships(ctx context.Context, clubID string) ([]Membership, error) {
	var rows []Membership
	err := s.observe(ctx, "list_memberships", func(ctx context.Context) (string, error) {
		return clubID, s.store.View(ctx, func(view TransactionView) error {
			rows = view.ListMemberships(domain.MembershipFilter{ClubID: clubID})
			return nil
		})
	})
	return rows, err
}

// ListClubsForUser partitions the club relation by the membership of userID.
// StatusMember selects clubs where userID holds any membership row,
// StatusNotMember the rest. Both come from one snapshot and are ordered by
// club name, then id.
func (s *Service) ListClubsForUser(ctx context.Context, userID string, status MembershipStatus) ([]Club, error) {
	var clubs []Club
	err := s.observe(ctx, "list_clubs_for_user", func(ctx context.Context) (string, error) {
		var want bool
		switch status {
		case domain.StatusMember:
			want = true
		case domain.StatusNotMember:
			want = false
		default:
			return userID, domain.ValidationError{Field: "status", Reason: "must be MEMBER or NOT_MEMBER"}
		}
		return userID, s.store.View(ctx, func(view TransactionView) error {
			joined := make(map[string]struct{})
			for _, m := range view.ListMemberships(domain.MembershipFilter{UserID: userID}) {
				joined[m.ClubID] = struct{}{}
			}
			var err error
			clubs, err = assembleClubs(view, func(r ClubRecord) bool {
				_, ok := joined[r.ClubID]
				return ok == want
			})
			return err
		})
	})
	return clubs, err
}

// RosterEntry pairs a member with their membership row.
type RosterEntry struct {
	Person     Person
	Membership Membership
}

// Roster is a club together with its members, read from one snapshot.
type Roster struct {
	Club    Club
	Members []RosterEntry
}

// Owner returns the entry holding the OWNER role.
func (r Roster) Owner() (RosterEntry, bool) {
	for _, entry := range r.Members {
		if entry.Membership.Role == domain.RoleOwner {
			return entry, true
		}
	}
	return RosterEntry{}, false
}

// FetchRoster assembles clubID with every member in join order.
func (s *Service) FetchRoster(ctx context.Context, clubID string) (Roster, error) {
	var roster Roster
	err := s.observe(ctx, "fetch_roster", func(ctx context.Context) (string, error) {
		return clubID, s.store.View(ctx, func(view TransactionView) error {
			club, err := assembleClub(view, clubID)
			if err != nil {
				return err
			}
			rows := view.ListMemberships(domain.MembershipFilter{ClubID: clubID})
			entries := make([]RosterEntry, 0, len(rows))
			for _, row := range rows {
				person, err := findPerson(view, row.UserID)
				if err != nil {
					return err
				}
				entries = append(entries, RosterEntry{Person: person, Membership: row})
			}
			roster = Roster{Club: club, Members: entries}
			return nil
		})
	})
	return roster, err
}
