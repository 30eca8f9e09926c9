package core

import (
	"context"

	"bookclub/pkg/domain"
	"bookclub/pkg/fieldmask"
)

// CreatePerson validates the draft and persists a new person. An id is
// generated unless the draft already carries one.
func (s *Service) CreatePerson(ctx context.Context, draft PersonDraft) (Person, Result, error) {
	return s.createPerson(ctx, draft, s.ids)
}

// CreatePersonFor persists a person whose id is the verified subject of a token.
func (s *Service) CreatePersonFor(ctx context.Context, subject string, draft PersonDraft) (Person, Result, error) {
	draft.UserID = ""
	return s.createPerson(ctx, draft, domain.StaticID(subject))
}

func (s *Service) createPerson(ctx context.Context, draft PersonDraft, gen domain.IDGenerator) (Person, Result, error) {
	var (
		created Person
		res     Result
	)
	err := s.observe(ctx, "create_person", func(ctx context.Context) (string, error) {
		person, err := draft.Build(gen)
		if err != nil {
			return draft.UserID, err
		}
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.CreatePerson(person)
			return err
		})
		return person.UserID, err
	})
	return created, res, err
}

// FetchPerson performs a strong read of one person.
func (s *Service) FetchPerson(ctx context.Context, userID string) (Person, error) {
	var person Person
	err := s.observe(ctx, "fetch_person", func(ctx context.Context) (string, error) {
		return userID, s.store.View(ctx, func(view TransactionView) error {
			var err error
			person, err = findPerson(view, userID)
			return err
		})
	})
	return person, err
}

// UpdatePerson merges update into the stored person under mask and persists
// the result. The user id is never changed.
func (s *Service) UpdatePerson(ctx context.Context, userID string, update Person, mask fieldmask.Mask) (Person, Result, error) {
	var (
		updated Person
		res     Result
	)
	err := s.observe(ctx, "update_person", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			current, err := findPerson(tx, userID)
			if err != nil {
				return err
			}
			merged, err := fieldmask.MergePerson(current, update, mask).Draft().Build(nil)
			if err != nil {
				return err
			}
			updated, err = tx.UpdatePerson(userID, func(p *Person) error {
				*p = merged
				return nil
			})
			return err
		})
		return userID, err
	})
	return updated, res, err
}

func findPerson(view TransactionView, userID string) (Person, error) {
	person, ok := view.FindPerson(userID)
	if !ok {
		return Person{}, domain.NotFoundError{Entity: EntityPerson, ID: userID}
	}
	return person, nil
}
