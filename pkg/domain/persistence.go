package domain

import (
	"context"
	"time"
)

// MembershipFilter narrows a membership listing. Empty fields match any value.
type MembershipFilter struct {
	UserID string
	ClubID string
	Role   Role
}

// Matches reports whether m satisfies the filter.
func (f MembershipFilter) Matches(m Membership) bool {
	if f.UserID != "" && m.UserID != f.UserID {
		return false
	}
	if f.ClubID != "" && m.ClubID != f.ClubID {
		return false
	}
	if f.Role != "" && m.Role != f.Role {
		return false
	}
	return true
}

// TransactionView provides strong read access to one consistent snapshot.
// Lookups are by primary key, so a key resolves to at most one row.
type TransactionView interface {
	FindPerson(userID string) (Person, bool)
	FindBook(bookID string) (Book, bool)
	FindClub(clubID string) (ClubRecord, bool)
	FindMembership(key MembershipKey) (Membership, bool)
	ListPeople() []Person
	ListClubs() []ClubRecord
	ListMemberships(filter MembershipFilter) []Membership
}

// Transaction exposes the row operations a persistence implementation must
// support within an atomic scope. Reads observe the transaction's own writes.
type Transaction interface {
	TransactionView
	Snapshot() TransactionView
	// Now is the commit timestamp assigned to rows written by the transaction.
	Now() time.Time
	CreatePerson(Person) (Person, error)
	UpdatePerson(userID string, mutator func(*Person) error) (Person, error)
	CreateBook(Book) (Book, error)
	UpdateBook(bookID string, mutator func(*Book) error) (Book, error)
	CreateClub(ClubRecord) (ClubRecord, error)
	UpdateClub(clubID string, mutator func(*ClubRecord) error) (ClubRecord, error)
	CreateMembership(Membership) (Membership, error)
	DeleteMembership(key MembershipKey) error
}

// PersistentStore is the transactional row store used by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
}
