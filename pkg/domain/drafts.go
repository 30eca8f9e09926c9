package domain

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// ValidateStruct runs struct tag validation and converts the first failure
// into a ValidationError naming the field by its JSON path.
func ValidateStruct(entity EntityType, s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate %s: %w", entity, err)
	}
	fe := fieldErrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	reason := "is required"
	if fe.Tag() != "required" {
		reason = fmt.Sprintf("failed %q validation", fe.Tag())
	}
	return ValidationError{Entity: entity, Field: field, Reason: reason}
}

// PersonDraft is the unvalidated input for a Person.
type PersonDraft struct {
	UserID   string           `json:"userId"`
	Email    string           `json:"email" validate:"required"`
	Nickname string           `json:"nickname" validate:"required"`
	Pronouns Optional[string] `json:"pronouns"`
}

// Build validates the draft and freezes it into a Person. When the draft has
// no id and gen is non-nil a new id is allocated. Blank strings fail the
// required checks but stored values are kept exactly as supplied.
func (d PersonDraft) Build(gen IDGenerator) (Person, error) {
	check := d
	check.Email = strings.TrimSpace(d.Email)
	check.Nickname = strings.TrimSpace(d.Nickname)
	if err := ValidateStruct(EntityPerson, check); err != nil {
		return Person{}, err
	}
	id, err := resolveID(EntityPerson, "userId", d.UserID, gen)
	if err != nil {
		return Person{}, err
	}
	return Person{
		UserID:   id,
		Email:    d.Email,
		Nickname: d.Nickname,
		Pronouns: CollapseString(d.Pronouns),
	}, nil
}

// Draft returns the person as an editable draft.
func (p Person) Draft() PersonDraft {
	return PersonDraft{UserID: p.UserID, Email: p.Email, Nickname: p.Nickname, Pronouns: p.Pronouns}
}

// BookDraft is the unvalidated input for a Book.
type BookDraft struct {
	BookID string           `json:"bookId"`
	Title  string           `json:"title" validate:"required"`
	Author Optional[string] `json:"author"`
	ISBN   Optional[string] `json:"isbn"`
}

// Build validates the draft and freezes it into a Book.
func (d BookDraft) Build(gen IDGenerator) (Book, error) {
	check := d
	check.Title = strings.TrimSpace(d.Title)
	if err := ValidateStruct(EntityBook, check); err != nil {
		return Book{}, err
	}
	id, err := resolveID(EntityBook, "bookId", d.BookID, gen)
	if err != nil {
		return Book{}, err
	}
	return Book{
		BookID: id,
		Title:  d.Title,
		Author: CollapseString(d.Author),
		ISBN:   CollapseString(d.ISBN),
	}, nil
}

// Draft returns the book as an editable draft.
func (b Book) Draft() BookDraft {
	return BookDraft{BookID: b.BookID, Title: b.Title, Author: b.Author, ISBN: b.ISBN}
}

// ClubDraft is the unvalidated input for a Club. An empty Description is
// replaced by DefaultClubDescription.
type ClubDraft struct {
	ClubID          string    `json:"clubId"`
	Name            string    `json:"name" validate:"required"`
	CurrentBook     BookDraft `json:"currentBook"`
	Description     string    `json:"description"`
	ContentWarnings []string  `json:"contentWarnings"`
	OwnerID         string    `json:"ownerId" validate:"required"`
}

// Build validates the draft, including the embedded book, and freezes it
// into a Club. An empty description becomes DefaultClubDescription.
func (d ClubDraft) Build(gen IDGenerator) (Club, error) {
	return d.build(gen, true)
}

// Rebuild validates the draft of an existing club. Ids must already be set
// and the description is kept as is, even when empty.
func (d ClubDraft) Rebuild() (Club, error) {
	return d.build(nil, false)
}

func (d ClubDraft) build(gen IDGenerator, defaultDescription bool) (Club, error) {
	check := d
	check.Name = strings.TrimSpace(d.Name)
	check.OwnerID = strings.TrimSpace(d.OwnerID)
	check.CurrentBook.Title = strings.TrimSpace(d.CurrentBook.Title)
	if err := ValidateStruct(EntityClub, check); err != nil {
		return Club{}, err
	}
	book, err := d.CurrentBook.Build(gen)
	if err != nil {
		var verr ValidationError
		if errors.As(err, &verr) {
			verr.Entity = EntityClub
			verr.Field = "currentBook." + verr.Field
			return Club{}, verr
		}
		return Club{}, err
	}
	id, err := resolveID(EntityClub, "clubId", d.ClubID, gen)
	if err != nil {
		return Club{}, err
	}
	description := d.Description
	if description == "" && defaultDescription {
		description = DefaultClubDescription(book.Title)
	}
	warnings := slices.Clone(d.ContentWarnings)
	if warnings == nil {
		warnings = []string{}
	}
	return Club{
		ClubID:          id,
		Name:            d.Name,
		CurrentBook:     book,
		Description:     description,
		ContentWarnings: warnings,
		OwnerID:         d.OwnerID,
	}, nil
}

// Draft returns the club as an editable draft.
func (c Club) Draft() ClubDraft {
	return ClubDraft{
		ClubID:          c.ClubID,
		Name:            c.Name,
		CurrentBook:     c.CurrentBook.Draft(),
		Description:     c.Description,
		ContentWarnings: slices.Clone(c.ContentWarnings),
		OwnerID:         c.OwnerID,
	}
}

// DefaultClubDescription is the description given to clubs created without one.
func DefaultClubDescription(title string) string {
	return fmt.Sprintf(`A book club reading "%s".`, title)
}

func resolveID(entity EntityType, field, id string, gen IDGenerator) (string, error) {
	if strings.TrimSpace(id) == "" && gen != nil {
		id = gen.NewID()
	}
	if strings.TrimSpace(id) == "" {
		return "", ValidationError{Entity: entity, Field: field}
	}
	return id, nil
}
