package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"bookclub/pkg/domain"
)

type createPersonRequest struct {
	Email    string                  `json:"email" validate:"required,email"`
	Nickname string                  `json:"nickname" validate:"required,max=64"`
	Pronouns domain.Optional[string] `json:"pronouns"`
}

type personPatch struct {
	Email    string                  `json:"email" validate:"omitempty,email"`
	Nickname string                  `json:"nickname" validate:"max=64"`
	Pronouns domain.Optional[string] `json:"pronouns"`
}

type bookPayload struct {
	Title  string                  `json:"title" validate:"required,max=256"`
	Author domain.Optional[string] `json:"author"`
	ISBN   domain.Optional[string] `json:"isbn"`
}

type createClubRequest struct {
	Name            string      `json:"name" validate:"required,max=120"`
	CurrentBook     bookPayload `json:"currentBook"`
	Description     string      `json:"description" validate:"max=2000"`
	ContentWarnings []string    `json:"contentWarnings" validate:"dive,required"`
}

type bookPatch struct {
	Title  string                  `json:"title" validate:"max=256"`
	Author domain.Optional[string] `json:"author"`
	ISBN   domain.Optional[string] `json:"isbn"`
}

type clubPatch struct {
	Name            string    `json:"name" validate:"max=120"`
	CurrentBook     bookPatch `json:"currentBook"`
	Description     string    `json:"description" validate:"max=2000"`
	ContentWarnings []string  `json:"contentWarnings" validate:"dive,required"`
}

// decode parses the JSON body into dst and validates its tags. entity names
// the resource in validation errors.
func decode(c *fiber.Ctx, entity domain.EntityType, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return domain.ValidationError{Entity: entity, Field: "body", Reason: "must be a JSON object"}
	}
	return domain.ValidateStruct(entity, dst)
}
