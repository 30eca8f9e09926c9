// Package memory provides an in-memory implementation of the bookclub
// persistence store used for tests, ephemeral environments and as the
// working set of the SQL backends.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"bookclub/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Person aliases domain.Person for in-memory persistence operations.
	Person = domain.Person
	// Book aliases domain.Book.
	Book = domain.Book
	// ClubRecord aliases domain.ClubRecord.
	ClubRecord = domain.ClubRecord
	// Membership aliases domain.Membership.
	Membership = domain.Membership
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
)

// CommitHook runs after rules pass and before the new state becomes visible.
// Returning an error aborts the commit.
type CommitHook func(ctx context.Context, changes []Change) error

type memoryState struct {
	people      map[string]Person
	books       map[string]Book
	clubs       map[string]ClubRecord
	memberships map[domain.MembershipKey]Membership
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	People      map[string]Person     `json:"people"`
	Books       map[string]Book       `json:"books"`
	Clubs       map[string]ClubRecord `json:"clubs"`
	Memberships []Membership          `json:"memberships"`
}

func newMemoryState() memoryState {
	return memoryState{
		people:      make(map[string]Person),
		books:       make(map[string]Book),
		clubs:       make(map[string]ClubRecord),
		memberships: make(map[domain.MembershipKey]Membership),
	}
}

func (s memoryState) clone() memoryState {
	cloned := memoryState{
		people:      make(map[string]Person, len(s.people)),
		books:       make(map[string]Book, len(s.books)),
		clubs:       make(map[string]ClubRecord, len(s.clubs)),
		memberships: make(map[domain.MembershipKey]Membership, len(s.memberships)),
	}
	for k, v := range s.people {
		cloned.people[k] = v
	}
	for k, v := range s.books {
		cloned.books[k] = v
	}
	for k, v := range s.clubs {
		cloned.clubs[k] = cloneClub(v)
	}
	for k, v := range s.memberships {
		cloned.memberships[k] = v
	}
	return cloned
}

func cloneClub(c ClubRecord) ClubRecord {
	c.ContentWarnings = slices.Clone(c.ContentWarnings)
	if c.ContentWarnings == nil {
		c.ContentWarnings = []string{}
	}
	return c
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	cloned := state.clone()
	s := Snapshot{
		People:      cloned.people,
		Books:       cloned.books,
		Clubs:       cloned.clubs,
		Memberships: make([]Membership, 0, len(cloned.memberships)),
	}
	for _, m := range cloned.memberships {
		s.Memberships = append(s.Memberships, m)
	}
	sortMemberships(s.Memberships)
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.People {
		state.people[k] = v
	}
	for k, v := range s.Books {
		state.books[k] = v
	}
	for k, v := range s.Clubs {
		state.clubs[k] = cloneClub(v)
	}
	for _, m := range s.Memberships {
		state.memberships[m.Key()] = m
	}
	return state
}

// Store provides an in-memory transactional store for the bookclub domain.
// Transactions are serialised by a single mutex and work on a private copy
// that replaces the committed state wholesale, so the committed maps are
// immutable once published.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *domain.RulesEngine
	nowFn  func() time.Time
	hook   CommitHook
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the commit timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// WithCommitHook installs a hook invoked with every committed change set.
func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) {
		s.hook = hook
	}
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *domain.RulesEngine, opts ...Option) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	s := &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// SetCommitHook replaces the commit hook. SQL backends install theirs after hydration.
func (s *Store) SetCommitHook(hook CommitHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *domain.RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy replaces the committed state only when fn succeeds, no blocking
// rule fires and the commit hook accepts the changes.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		transactionView: transactionView{state: s.state.clone()},
		now:             s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, tx.Snapshot(), tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	if s.hook != nil && len(tx.changes) > 0 {
		if err := s.hook(ctx, tx.changes); err != nil {
			return result, err
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against the committed state as of the call. Committed
// maps are never written after publication, so the view shares them without
// copying; FindClub and ListClubs hand out copies of the warning slices.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	committed := s.state
	s.mu.RUnlock()
	return fn(transactionView{state: committed})
}

type transactionView struct {
	state memoryState
}

func (v transactionView) FindPerson(userID string) (Person, bool) {
	p, ok := v.state.people[userID]
	return p, ok
}

func (v transactionView) FindBook(bookID string) (Book, bool) {
	b, ok := v.state.books[bookID]
	return b, ok
}

func (v transactionView) FindClub(clubID string) (ClubRecord, bool) {
	c, ok := v.state.clubs[clubID]
	if !ok {
		return ClubRecord{}, false
	}
	return cloneClub(c), true
}

func (v transactionView) FindMembership(key domain.MembershipKey) (Membership, bool) {
	m, ok := v.state.memberships[key]
	return m, ok
}

// ListPeople returns people ordered by user id.
func (v transactionView) ListPeople() []Person {
	out := make([]Person, 0, len(v.state.people))
	for _, p := range v.state.people {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// ListClubs returns clubs ordered by name, then id.
func (v transactionView) ListClubs() []ClubRecord {
	out := make([]ClubRecord, 0, len(v.state.clubs))
	for _, c := range v.state.clubs {
		out = append(out, cloneClub(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ClubID < out[j].ClubID
	})
	return out
}

// ListMemberships returns matching rows ordered by creation time.
func (v transactionView) ListMemberships(filter domain.MembershipFilter) []Membership {
	var out []Membership
	if filter.UserID != "" && filter.ClubID != "" {
		if m, ok := v.state.memberships[domain.MembershipKey{UserID: filter.UserID, ClubID: filter.ClubID}]; ok && filter.Matches(m) {
			out = append(out, m)
		}
		return out
	}
	for _, m := range v.state.memberships {
		if filter.Matches(m) {
			out = append(out, m)
		}
	}
	sortMemberships(out)
	return out
}

func sortMemberships(ms []Membership) {
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].CreatedAt.Before(ms[j].CreatedAt)
		}
		if ms[i].ClubID != ms[j].ClubID {
			return ms[i].ClubID < ms[j].ClubID
		}
		return ms[i].UserID < ms[j].UserID
	})
}

// transaction is a mutation set applied to a private copy of the store state.
type transaction struct {
	transactionView
	changes []Change
	now     time.Time
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() domain.TransactionView {
	return tx.transactionView
}

func (tx *transaction) Now() time.Time {
	return tx.now
}

func (tx *transaction) CreatePerson(p Person) (Person, error) {
	if p.UserID == "" {
		return Person{}, domain.ValidationError{Entity: domain.EntityPerson, Field: "userId"}
	}
	if _, exists := tx.state.people[p.UserID]; exists {
		return Person{}, domain.ConflictError{Entity: domain.EntityPerson, ID: p.UserID}
	}
	tx.state.people[p.UserID] = p
	tx.recordChange(Change{Entity: domain.EntityPerson, Action: domain.ActionCreate, After: p})
	return p, nil
}

func (tx *transaction) UpdatePerson(userID string, mutator func(*Person) error) (Person, error) {
	current, ok := tx.state.people[userID]
	if !ok {
		return Person{}, domain.NotFoundError{Entity: domain.EntityPerson, ID: userID}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Person{}, err
	}
	current.UserID = userID
	tx.state.people[userID] = current
	tx.recordChange(Change{Entity: domain.EntityPerson, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

func (tx *transaction) CreateBook(b Book) (Book, error) {
	if b.BookID == "" {
		return Book{}, domain.ValidationError{Entity: domain.EntityBook, Field: "bookId"}
	}
	if _, exists := tx.state.books[b.BookID]; exists {
		return Book{}, domain.ConflictError{Entity: domain.EntityBook, ID: b.BookID}
	}
	tx.state.books[b.BookID] = b
	tx.recordChange(Change{Entity: domain.EntityBook, Action: domain.ActionCreate, After: b})
	return b, nil
}

func (tx *transaction) UpdateBook(bookID string, mutator func(*Book) error) (Book, error) {
	current, ok := tx.state.books[bookID]
	if !ok {
		return Book{}, domain.NotFoundError{Entity: domain.EntityBook, ID: bookID}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Book{}, err
	}
	current.BookID = bookID
	tx.state.books[bookID] = current
	tx.recordChange(Change{Entity: domain.EntityBook, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

func (tx *transaction) CreateClub(c ClubRecord) (ClubRecord, error) {
	if c.ClubID == "" {
		return ClubRecord{}, domain.ValidationError{Entity: domain.EntityClub, Field: "clubId"}
	}
	if _, exists := tx.state.clubs[c.ClubID]; exists {
		return ClubRecord{}, domain.ConflictError{Entity: domain.EntityClub, ID: c.ClubID}
	}
	c = cloneClub(c)
	tx.state.clubs[c.ClubID] = c
	tx.recordChange(Change{Entity: domain.EntityClub, Action: domain.ActionCreate, After: cloneClub(c)})
	return cloneClub(c), nil
}

func (tx *transaction) UpdateClub(clubID string, mutator func(*ClubRecord) error) (ClubRecord, error) {
	current, ok := tx.state.clubs[clubID]
	if !ok {
		return ClubRecord{}, domain.NotFoundError{Entity: domain.EntityClub, ID: clubID}
	}
	before := cloneClub(current)
	current = cloneClub(current)
	if err := mutator(&current); err != nil {
		return ClubRecord{}, err
	}
	current.ClubID = clubID
	current = cloneClub(current)
	tx.state.clubs[clubID] = current
	tx.recordChange(Change{Entity: domain.EntityClub, Action: domain.ActionUpdate, Before: before, After: cloneClub(current)})
	return cloneClub(current), nil
}

// CreateMembership inserts a membership row. A zero CreatedAt is replaced by
// the transaction commit timestamp.
func (tx *transaction) CreateMembership(m Membership) (Membership, error) {
	if m.UserID == "" || m.ClubID == "" {
		return Membership{}, domain.ValidationError{Entity: domain.EntityMembership, Field: "userId/clubId"}
	}
	if !m.Role.Valid() {
		return Membership{}, domain.ValidationError{Entity: domain.EntityMembership, Field: "role", Reason: fmt.Sprintf("unknown role %q", m.Role)}
	}
	key := m.Key()
	if _, exists := tx.state.memberships[key]; exists {
		return Membership{}, domain.ConflictError{Entity: domain.EntityMembership, ID: key.String()}
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = tx.now
	}
	tx.state.memberships[key] = m
	tx.recordChange(Change{Entity: domain.EntityMembership, Action: domain.ActionCreate, After: m})
	return m, nil
}

func (tx *transaction) DeleteMembership(key domain.MembershipKey) error {
	current, ok := tx.state.memberships[key]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityMembership, ID: key.String()}
	}
	delete(tx.state.memberships, key)
	tx.recordChange(Change{Entity: domain.EntityMembership, Action: domain.ActionDelete, Before: current})
	return nil
}
