package httpapi

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"bookclub/internal/blob"
	"bookclub/internal/infra/persistence/sqlstore"
	"bookclub/pkg/domain"
)

type errorBody struct {
	Code    string `json:"code"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// forbiddenError rejects requests acting on another person's profile.
type forbiddenError struct {
	message string
}

func (e forbiddenError) Error() string { return e.message }

// describe maps an error to its HTTP status, error code and client message.
func describe(err error) (int, string, string) {
	var (
		validation    domain.ValidationError
		token         domain.InvalidTokenError
		permission    domain.PermissionError
		forbidden     forbiddenError
		notFound      domain.NotFoundError
		noMembers     domain.NoMembersError
		alreadyMember domain.AlreadyMemberError
		notMember     domain.NotMemberError
		ownerLeave    domain.OwnerCannotLeaveError
		conflict      domain.ConflictError
		fiberErr      *fiber.Error
	)
	switch {
	case errors.As(err, &validation):
		return fiber.StatusBadRequest, "invalid_argument", validation.Error()
	case errors.As(err, &token):
		return fiber.StatusUnauthorized, "unauthenticated", token.Error()
	case errors.As(err, &permission):
		return fiber.StatusForbidden, "permission_denied", permission.Error()
	case errors.As(err, &forbidden):
		return fiber.StatusForbidden, "permission_denied", forbidden.Error()
	case errors.As(err, &notFound):
		return fiber.StatusNotFound, "not_found", notFound.Error()
	case errors.As(err, &noMembers):
		return fiber.StatusNotFound, "no_members", noMembers.Error()
	case errors.As(err, &alreadyMember):
		return fiber.StatusConflict, "already_member", alreadyMember.Error()
	case errors.As(err, &notMember):
		return fiber.StatusConflict, "not_member", notMember.Error()
	case errors.As(err, &ownerLeave):
		return fiber.StatusConflict, "owner_cannot_leave", ownerLeave.Error()
	case errors.As(err, &conflict):
		return fiber.StatusConflict, "already_exists", conflict.Error()
	case errors.Is(err, blob.ErrExists):
		return fiber.StatusConflict, "already_exists", "an export for this instant already exists"
	case errors.Is(err, sqlstore.ErrStale):
		return fiber.StatusServiceUnavailable, "unavailable", "the store is busy with concurrent writes, retry the request"
	case errors.As(err, &fiberErr):
		return fiberErr.Code, "http_error", fiberErr.Message
	default:
		return fiber.StatusInternalServerError, "internal", http.StatusText(http.StatusInternalServerError)
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status, code, message := describe(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(errorEnvelope{Error: errorBody{Code: code, Status: status, Message: message}})
}
