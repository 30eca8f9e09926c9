// Package sqlstore persists the bookclub rows to a relational database. The
// in-memory store serves reads and runs transactions; every committed change
// set is written row by row inside one SQL transaction before it becomes
// visible, so a failed SQL commit aborts the in-memory commit as well.
//
// Several processes may share one database. The store_revision row counts
// committed change sets: reads and transactions reload the working set when
// the row moved, and a commit only lands when the row still holds the
// revision the working set was loaded at. A transaction that loses that race
// is re-run against fresh rows.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"bookclub/internal/infra/persistence/memory"
	"bookclub/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

// ErrStale reports that another writer committed after the working set was
// loaded. RunInTransaction retries on it and wraps it once it gives up.
var ErrStale = errors.New("sqlstore: working set is stale")

// MaxAttempts bounds how often RunInTransaction re-runs a transaction that
// lost the revision race.
const MaxAttempts = 3

const (
	selectRevision = `SELECT revision FROM store_revision WHERE id = 1`
	bumpRevision   = `UPDATE store_revision SET revision = revision + 1 WHERE id = 1 AND revision = ?`
)

// Store couples a hydrated memory store with its backing database.
type Store struct {
	*memory.Store
	db      *sql.DB
	dialect Dialect

	// syncMu guards revision and serialises reloads with write attempts.
	syncMu   sync.Mutex
	revision int64
}

// Open applies the schema, hydrates a memory store from the tables and
// installs the row-level persistence hook.
func Open(ctx context.Context, db *sql.DB, dialect Dialect, engine *domain.RulesEngine, opts ...memory.Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlstore: nil database handle")
	}
	if err := ApplyDDL(ctx, db, dialect); err != nil {
		return nil, err
	}
	s := &Store{Store: memory.NewStore(engine, opts...), db: db, dialect: dialect, revision: -1}
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}
	s.Store.SetCommitHook(s.persist)
	return s, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect reports the configured dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Revision reports the store_revision value the working set was loaded at.
func (s *Store) Revision() int64 {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	return s.revision
}

// View reloads the working set if another writer committed and then reads it.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	s.syncMu.Lock()
	err := s.refresh(ctx)
	s.syncMu.Unlock()
	if err != nil {
		return err
	}
	return s.Store.View(ctx, fn)
}

// RunInTransaction runs fn against an up to date working set. When another
// writer commits between the reload and the SQL commit, the change set is
// discarded and fn runs again, at most MaxAttempts times.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	for attempt := 1; ; attempt++ {
		if err := s.refresh(ctx); err != nil {
			return domain.Result{}, err
		}
		result, err := s.Store.RunInTransaction(ctx, fn)
		if !errors.Is(err, ErrStale) {
			return result, err
		}
		if attempt >= MaxAttempts {
			return result, fmt.Errorf("sqlstore: gave up after %d attempts: %w", attempt, err)
		}
	}
}

// refresh reloads the working set when store_revision moved away from the
// loaded revision. The caller holds syncMu.
func (s *Store) refresh(ctx context.Context) error {
	var current int64
	if err := s.db.QueryRowContext(ctx, selectRevision).Scan(&current); err != nil {
		return fmt.Errorf("sqlstore: read revision: %w", err)
	}
	if current == s.revision {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, s.dialect.ReadOptions)
	if err != nil {
		return fmt.Errorf("sqlstore: begin read: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := tx.QueryRowContext(ctx, selectRevision).Scan(&current); err != nil {
		return fmt.Errorf("sqlstore: read revision: %w", err)
	}
	snapshot, err := Load(ctx, tx)
	if err != nil {
		return err
	}
	s.Store.ImportState(snapshot)
	s.revision = current
	return nil
}

// Queryer is satisfied by *sql.DB and *sql.Tx.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Load reads every table into a memory snapshot. Empty and NULL optional
// columns collapse to absent values. Pass a transaction for a consistent
// view across tables.
func Load(ctx context.Context, db Queryer) (memory.Snapshot, error) {
	snapshot := memory.Snapshot{
		People: map[string]domain.Person{},
		Books:  map[string]domain.Book{},
		Clubs:  map[string]domain.ClubRecord{},
	}
	if err := loadPeople(ctx, db, snapshot.People); err != nil {
		return memory.Snapshot{}, err
	}
	if err := loadBooks(ctx, db, snapshot.Books); err != nil {
		return memory.Snapshot{}, err
	}
	if err := loadClubs(ctx, db, snapshot.Clubs); err != nil {
		return memory.Snapshot{}, err
	}
	memberships, err := loadMemberships(ctx, db)
	if err != nil {
		return memory.Snapshot{}, err
	}
	snapshot.Memberships = memberships
	return snapshot, nil
}

func loadPeople(ctx context.Context, db Queryer, into map[string]domain.Person) error {
	rows, err := db.QueryContext(ctx, `SELECT user_id, email, nickname, pronouns FROM people`)
	if err != nil {
		return fmt.Errorf("sqlstore: select people: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var p domain.Person
		if err := rows.Scan(&p.UserID, &p.Email, &p.Nickname, &p.Pronouns); err != nil {
			return fmt.Errorf("sqlstore: scan person: %w", err)
		}
		p.Pronouns = domain.CollapseString(p.Pronouns)
		into[p.UserID] = p
	}
	return rows.Err()
}

func loadBooks(ctx context.Context, db Queryer, into map[string]domain.Book) error {
	rows, err := db.QueryContext(ctx, `SELECT book_id, title, author, isbn FROM books`)
	if err != nil {
		return fmt.Errorf("sqlstore: select books: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var b domain.Book
		if err := rows.Scan(&b.BookID, &b.Title, &b.Author, &b.ISBN); err != nil {
			return fmt.Errorf("sqlstore: scan book: %w", err)
		}
		b.Author = domain.CollapseString(b.Author)
		b.ISBN = domain.CollapseString(b.ISBN)
		into[b.BookID] = b
	}
	return rows.Err()
}

func loadClubs(ctx context.Context, db Queryer, into map[string]domain.ClubRecord) error {
	rows, err := db.QueryContext(ctx, `SELECT club_id, name, book_id, description, content_warnings, owner_id FROM clubs`)
	if err != nil {
		return fmt.Errorf("sqlstore: select clubs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			c        domain.ClubRecord
			warnings string
		)
		if err := rows.Scan(&c.ClubID, &c.Name, &c.BookID, &c.Description, &warnings, &c.OwnerID); err != nil {
			return fmt.Errorf("sqlstore: scan club: %w", err)
		}
		if warnings != "" {
			if err := json.Unmarshal([]byte(warnings), &c.ContentWarnings); err != nil {
				return fmt.Errorf("sqlstore: decode content warnings for club %s: %w", c.ClubID, err)
			}
		}
		into[c.ClubID] = c
	}
	return rows.Err()
}

func loadMemberships(ctx context.Context, db Queryer) ([]domain.Membership, error) {
	rows, err := db.QueryContext(ctx, `SELECT user_id, club_id, role, created_at FROM memberships`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: select memberships: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Membership
	for rows.Next() {
		var (
			m       domain.Membership
			role    string
			created string
		)
		if err := rows.Scan(&m.UserID, &m.ClubID, &role, &created); err != nil {
			return nil, fmt.Errorf("sqlstore: scan membership: %w", err)
		}
		m.Role = domain.Role(role)
		if m.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("sqlstore: parse membership timestamp %q: %w", created, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// persist is the commit hook. It runs while RunInTransaction holds syncMu.
func (s *Store) persist(ctx context.Context, changes []domain.Change) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx, s.dialect.bind(bumpRevision), s.revision)
	if err != nil {
		return fmt.Errorf("sqlstore: bump revision: %w", err)
	}
	bumped, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: bump revision: %w", err)
	}
	if bumped == 0 {
		return ErrStale
	}
	for _, change := range changes {
		if err := s.apply(ctx, tx, change); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: commit: %w", err)
	}
	s.revision++
	return nil
}

const (
	upsertPerson = `INSERT INTO people (user_id, email, nickname, pronouns) VALUES (?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET email = excluded.email, nickname = excluded.nickname, pronouns = excluded.pronouns`
	upsertBook = `INSERT INTO books (book_id, title, author, isbn) VALUES (?, ?, ?, ?)
ON CONFLICT (book_id) DO UPDATE SET title = excluded.title, author = excluded.author, isbn = excluded.isbn`
	upsertClub = `INSERT INTO clubs (club_id, name, book_id, description, content_warnings, owner_id) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (club_id) DO UPDATE SET name = excluded.name, book_id = excluded.book_id, description = excluded.description,
content_warnings = excluded.content_warnings, owner_id = excluded.owner_id`
	insertMembership = `INSERT INTO memberships (user_id, club_id, role, created_at) VALUES (?, ?, ?, ?)`
	deleteMembership = `DELETE FROM memberships WHERE user_id = ? AND club_id = ?`
)

func (s *Store) apply(ctx context.Context, tx *sql.Tx, change domain.Change) error {
	exec := func(query string, args ...any) error {
		if _, err := tx.ExecContext(ctx, s.dialect.bind(query), args...); err != nil {
			return fmt.Errorf("sqlstore: %s %s: %w", change.Action, change.Entity, err)
		}
		return nil
	}
	switch after := change.After.(type) {
	case domain.Person:
		return exec(upsertPerson, after.UserID, after.Email, after.Nickname, after.Pronouns)
	case domain.Book:
		return exec(upsertBook, after.BookID, after.Title, after.Author, after.ISBN)
	case domain.ClubRecord:
		warnings := after.ContentWarnings
		if warnings == nil {
			warnings = []string{}
		}
		encoded, err := json.Marshal(warnings)
		if err != nil {
			return fmt.Errorf("sqlstore: encode content warnings: %w", err)
		}
		return exec(upsertClub, after.ClubID, after.Name, after.BookID, after.Description, string(encoded), after.OwnerID)
	case domain.Membership:
		return exec(insertMembership, after.UserID, after.ClubID, string(after.Role), after.CreatedAt.UTC().Format(time.RFC3339Nano))
	}
	if before, ok := change.Before.(domain.Membership); ok && change.Action == domain.ActionDelete {
		return exec(deleteMembership, before.UserID, before.ClubID)
	}
	return fmt.Errorf("sqlstore: unsupported change %s %s", change.Action, change.Entity)
}
