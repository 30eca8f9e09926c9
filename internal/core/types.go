package core

import "bookclub/pkg/domain"

type (
	EntityType         = domain.EntityType
	Person             = domain.Person
	PersonDraft        = domain.PersonDraft
	Book               = domain.Book
	Club               = domain.Club
	ClubDraft          = domain.ClubDraft
	ClubRecord         = domain.ClubRecord
	Membership         = domain.Membership
	MembershipKey      = domain.MembershipKey
	MembershipStatus   = domain.MembershipStatus
	Role               = domain.Role
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

const (
	EntityPerson     = domain.EntityPerson
	EntityBook       = domain.EntityBook
	EntityClub       = domain.EntityClub
	EntityMembership = domain.EntityMembership
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
