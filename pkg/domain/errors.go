package domain

import "fmt"

// ValidationError reports malformed or incomplete input. Field carries the
// JSON name of the offending field, prefixed for nested entities
// (for example "currentBook.title").
type ValidationError struct {
	Entity EntityType
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "is required"
	}
	if e.Entity == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, reason)
	}
	return fmt.Sprintf("invalid %s: %s %s", e.Entity, e.Field, reason)
}

// NotFoundError is returned when a referenced key is absent.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConflictError is returned when a create would duplicate an existing primary key.
type ConflictError struct {
	Entity EntityType
	ID     string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Entity, e.ID)
}

// AlreadyMemberError is returned by join when a membership row already exists.
type AlreadyMemberError struct {
	Key MembershipKey
}

func (e AlreadyMemberError) Error() string {
	return fmt.Sprintf("person %s is already a member of club %s", e.Key.UserID, e.Key.ClubID)
}

// NotMemberError is returned by leave when no membership row exists.
type NotMemberError struct {
	Key MembershipKey
}

func (e NotMemberError) Error() string {
	return fmt.Sprintf("person %s is not a member of club %s", e.Key.UserID, e.Key.ClubID)
}

// OwnerCannotLeaveError is returned when a club owner tries to leave their own club.
type OwnerCannotLeaveError struct {
	Key MembershipKey
}

func (e OwnerCannotLeaveError) Error() string {
	return fmt.Sprintf("owner %s cannot leave club %s", e.Key.UserID, e.Key.ClubID)
}

// PermissionError is returned when the requester does not own the target club.
type PermissionError struct {
	RequesterID string
	ClubID      string
	Operation   string
}

func (e PermissionError) Error() string {
	op := e.Operation
	if op == "" {
		op = "modify"
	}
	return fmt.Sprintf("requester %s may not %s club %s", e.RequesterID, op, e.ClubID)
}

// NoMembersError is returned when a club has zero membership rows, owner included.
type NoMembersError struct {
	ClubID string
}

func (e NoMembersError) Error() string {
	return fmt.Sprintf("club %s has no members", e.ClubID)
}

// InvalidTokenError is returned by token verifiers.
type InvalidTokenError struct {
	Reason string
}

func (e InvalidTokenError) Error() string {
	if e.Reason == "" {
		return "invalid token"
	}
	return "invalid token: " + e.Reason
}
