// Package domain defines the book club entities, the transactional store
// contracts and the rule evaluation primitives shared by bookclub packages.
package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// EntityType identifies the type of record stored in the domain.
type EntityType string

// Supported entity type identifiers used in Change records, errors and persistence tables.
const (
	// EntityPerson identifies a person record.
	EntityPerson EntityType = "person"
	// EntityBook identifies a book record.
	EntityBook EntityType = "book"
	// EntityClub identifies a club record.
	EntityClub EntityType = "club"
	// EntityMembership identifies a (person, club) membership row.
	EntityMembership EntityType = "membership"
)

// Role is the role a person holds within a club.
type Role string

// Membership roles.
const (
	RoleMember Role = "MEMBER"
	RoleOwner  Role = "OWNER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleMember || r == RoleOwner
}

// MembershipStatus filters club listings relative to one person.
type MembershipStatus string

// Listing statuses accepted by club queries.
const (
	StatusMember    MembershipStatus = "MEMBER"
	StatusNotMember MembershipStatus = "NOT_MEMBER"
)

// ParseMembershipStatus accepts the canonical names in any case, with "-"
// allowed in place of "_".
func ParseMembershipStatus(s string) (MembershipStatus, error) {
	switch MembershipStatus(strings.ReplaceAll(strings.ToUpper(s), "-", "_")) {
	case StatusMember:
		return StatusMember, nil
	case StatusNotMember:
		return StatusNotMember, nil
	default:
		return "", ValidationError{Field: "status", Reason: fmt.Sprintf("unknown membership status %q", s)}
	}
}

// Person is a registered reader.
type Person struct {
	UserID   string           `json:"userId"`
	Email    string           `json:"email"`
	Nickname string           `json:"nickname"`
	Pronouns Optional[string] `json:"pronouns"`
}

// Book is the book a club is currently reading. Books are only created and
// updated through their owning club.
type Book struct {
	BookID string           `json:"bookId"`
	Title  string           `json:"title"`
	Author Optional[string] `json:"author"`
	ISBN   Optional[string] `json:"isbn"`
}

// Club is the assembled club entity with its current book embedded by value.
type Club struct {
	ClubID          string   `json:"clubId"`
	Name            string   `json:"name"`
	CurrentBook     Book     `json:"currentBook"`
	Description     string   `json:"description"`
	ContentWarnings []string `json:"contentWarnings"`
	OwnerID         string   `json:"ownerId"`
}

// Record returns the row form of the club.
func (c Club) Record() ClubRecord {
	return ClubRecord{
		ClubID:          c.ClubID,
		Name:            c.Name,
		BookID:          c.CurrentBook.BookID,
		Description:     c.Description,
		ContentWarnings: slices.Clone(c.ContentWarnings),
		OwnerID:         c.OwnerID,
	}
}

// ClubRecord is the stored row of a club. The current book is referenced by id.
type ClubRecord struct {
	ClubID          string   `json:"clubId"`
	Name            string   `json:"name"`
	BookID          string   `json:"bookId"`
	Description     string   `json:"description"`
	ContentWarnings []string `json:"contentWarnings"`
	OwnerID         string   `json:"ownerId"`
}

// Assemble joins a club row with its resolved book.
func (r ClubRecord) Assemble(book Book) Club {
	warnings := slices.Clone(r.ContentWarnings)
	if warnings == nil {
		warnings = []string{}
	}
	return Club{
		ClubID:          r.ClubID,
		Name:            r.Name,
		CurrentBook:     book,
		Description:     r.Description,
		ContentWarnings: warnings,
		OwnerID:         r.OwnerID,
	}
}

// MembershipKey is the primary key of the membership relation.
type MembershipKey struct {
	UserID string `json:"userId"`
	ClubID string `json:"clubId"`
}

func (k MembershipKey) String() string {
	return k.UserID + "/" + k.ClubID
}

// Membership links a person to a club. Existence of the row is the only
// source of truth for "is member of club".
type Membership struct {
	UserID    string    `json:"userId"`
	ClubID    string    `json:"clubId"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Key returns the membership primary key.
func (m Membership) Key() MembershipKey {
	return MembershipKey{UserID: m.UserID, ClubID: m.ClubID}
}

// Change describes a mutation applied to an entity during a transaction.
// Before and After hold Person, Book, ClubRecord or Membership values.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported mutations captured in a transaction.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn reports a problem but allows commit.
	SeverityWarn Severity = "warn"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			return fmt.Sprintf("transaction blocked by rule %s: %s", v.Rule, v.Message)
		}
	}
	return "transaction blocked by rules"
}
