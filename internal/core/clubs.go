package core

import (
	"context"

	"bookclub/pkg/domain"
	"bookclub/pkg/fieldmask"
)

// CreateClub builds the club from draft with ownerID as owner and inserts
// the book, the club row and the owner's OWNER membership in one transaction.
func (s *Service) CreateClub(ctx context.Context, ownerID string, draft ClubDraft) (Club, Result, error) {
	var (
		created Club
		res     Result
	)
	err := s.observe(ctx, "create_club", func(ctx context.Context) (string, error) {
		draft.OwnerID = ownerID
		club, err := draft.Build(s.ids)
		if err != nil {
			return draft.ClubID, err
		}
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, err := findPerson(tx, ownerID); err != nil {
				return err
			}
			book, err := tx.CreateBook(club.CurrentBook)
			if err != nil {
				return err
			}
			record, err := tx.CreateClub(club.Record())
			if err != nil {
				return err
			}
			if _, err := tx.CreateMembership(Membership{
				UserID: ownerID,
				ClubID: record.ClubID,
				Role:   domain.RoleOwner,
			}); err != nil {
				return err
			}
			created = record.Assemble(book)
			return nil
		})
		return club.ClubID, err
	})
	return created, res, err
}

// FetchBook performs a strong read of one book.
func (s *Service) FetchBook(ctx context.Context, bookID string) (Book, error) {
	var book Book
	err := s.observe(ctx, "fetch_book", func(ctx context.Context) (string, error) {
		return bookID, s.store.View(ctx, func(view TransactionView) error {
			var err error
			book, err = findBook(view, bookID)
			return err
		})
	})
	return book, err
}

// FetchClub reads the club row and resolves its current book. A dangling
// book reference fails the whole fetch.
func (s *Service) FetchClub(ctx context.Context, clubID string) (Club, error) {
	var club Club
	err := s.observe(ctx, "fetch_club", func(ctx context.Context) (string, error) {
		return clubID, s.store.View(ctx, func(view TransactionView) error {
			var err error
			club, err = assembleClub(view, clubID)
			return err
		})
	})
	return club, err
}

// ListClubs returns every club ordered by name, then id.
func (s *Service) ListClubs(ctx context.Context) ([]Club, error) {
	var clubs []Club
	err := s.observe(ctx, "list_clubs", func(ctx context.Context) (string, error) {
		return "", s.store.View(ctx, func(view TransactionView) error {
			var err error
			clubs, err = assembleClubs(view, func(ClubRecord) bool { return true })
			return err
		})
	})
	return clubs, err
}

// UpdateClub merges update into the stored club under mask. Only the holder
// of the club's OWNER membership may update it; the check runs before the
// merge. Club id, book id and owner id are never changed.
func (s *Service) UpdateClub(ctx context.Context, clubID string, update Club, mask fieldmask.Mask, requesterID string) (Club, Result, error) {
	var (
		updated Club
		res     Result
	)
	err := s.observe(ctx, "update_club", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			current, err := assembleClub(tx, clubID)
			if err != nil {
				return err
			}
			if !isOwner(tx, requesterID, clubID) {
				return domain.PermissionError{RequesterID: requesterID, ClubID: clubID, Operation: "update"}
			}
			merged, err := fieldmask.MergeClub(current, update, mask).Draft().Rebuild()
			if err != nil {
				return err
			}
			book := current.CurrentBook
			if merged.CurrentBook != current.CurrentBook {
				book, err = tx.UpdateBook(book.BookID, func(b *Book) error {
					*b = merged.CurrentBook
					return nil
				})
				if err != nil {
					return err
				}
			}
			record, err := tx.UpdateClub(clubID, func(r *ClubRecord) error {
				*r = merged.Record()
				return nil
			})
			if err != nil {
				return err
			}
			updated = record.Assemble(book)
			return nil
		})
		return clubID, err
	})
	return updated, res, err
}

func isOwner(view TransactionView, userID, clubID string) bool {
	if userID == "" {
		return false
	}
	m, ok := view.FindMembership(MembershipKey{UserID: userID, ClubID: clubID})
	return ok && m.Role == domain.RoleOwner
}

func findBook(view TransactionView, bookID string) (Book, error) {
	book, ok := view.FindBook(bookID)
	if !ok {
		return Book{}, domain.NotFoundError{Entity: EntityBook, ID: bookID}
	}
	return book, nil
}

func assembleClub(view TransactionView, clubID string) (Club, error) {
	record, ok := view.FindClub(clubID)
	if !ok {
		return Club{}, domain.NotFoundError{Entity: EntityClub, ID: clubID}
	}
	book, err := findBook(view, record.BookID)
	if err != nil {
		return Club{}, err
	}
	return record.Assemble(book), nil
}

func assembleClubs(view TransactionView, keep func(ClubRecord) bool) ([]Club, error) {
	records := view.ListClubs()
	clubs := make([]Club, 0, len(records))
	for _, record := range records {
		if !keep(record) {
			continue
		}
		book, err := findBook(view, record.BookID)
		if err != nil {
			return nil, err
		}
		clubs = append(clubs, record.Assemble(book))
	}
	return clubs, nil
}
