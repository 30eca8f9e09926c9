package core

import "bookclub/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewClubBookReferenceRule())
	engine.Register(NewClubOwnerMembershipRule())
	return engine
}

// touchedClubs returns the ids of clubs whose row or memberships changed.
func touchedClubs(changes []Change) []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, change := range changes {
		for _, v := range []any{change.Before, change.After} {
			switch row := v.(type) {
			case ClubRecord:
				add(row.ClubID)
			case Membership:
				add(row.ClubID)
			}
		}
	}
	return ids
}
