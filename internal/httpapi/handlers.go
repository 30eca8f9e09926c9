package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"bookclub/internal/roster"
	"bookclub/pkg/domain"
	"bookclub/pkg/fieldmask"
)

func (s *Server) createPerson(c *fiber.Ctx) error {
	var req createPersonRequest
	if err := decode(c, domain.EntityPerson, &req); err != nil {
		return err
	}
	person, _, err := s.svc.CreatePersonFor(c.UserContext(), subject(c), domain.PersonDraft{
		Email:    req.Email,
		Nickname: req.Nickname,
		Pronouns: req.Pronouns,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(person)
}

func (s *Server) fetchPerson(c *fiber.Ctx) error {
	person, err := s.svc.FetchPerson(c.UserContext(), c.Params("userId"))
	if err != nil {
		return err
	}
	return c.JSON(person)
}

// updatePerson only lets a person edit their own profile.
func (s *Server) updatePerson(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if userID != subject(c) {
		return forbiddenError{message: "a person may only update their own profile"}
	}
	var patch personPatch
	if err := decode(c, domain.EntityPerson, &patch); err != nil {
		return err
	}
	update := domain.Person{Email: patch.Email, Nickname: patch.Nickname, Pronouns: patch.Pronouns}
	person, _, err := s.svc.UpdatePerson(c.UserContext(), userID, update, fieldmask.Parse(c.Query("updateMask")))
	if err != nil {
		return err
	}
	return c.JSON(person)
}

func (s *Server) createClub(c *fiber.Ctx) error {
	var req createClubRequest
	if err := decode(c, domain.EntityClub, &req); err != nil {
		return err
	}
	owner := subject(c)
	club, _, err := s.svc.CreateClub(c.UserContext(), owner, domain.ClubDraft{
		Name: req.Name,
		CurrentBook: domain.BookDraft{
			Title:  req.CurrentBook.Title,
			Author: req.CurrentBook.Author,
			ISBN:   req.CurrentBook.ISBN,
		},
		Description:     req.Description,
		ContentWarnings: req.ContentWarnings,
		OwnerID:         owner,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(club)
}

// listClubs lists every club, or partitions them by the requester's
// membership when status is given.
func (s *Server) listClubs(c *fiber.Ctx) error {
	raw := c.Query("status")
	if raw == "" {
		clubs, err := s.svc.ListClubs(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"clubs": clubs})
	}
	status, err := domain.ParseMembershipStatus(raw)
	if err != nil {
		return err
	}
	clubs, err := s.svc.ListClubsForUser(c.UserContext(), subject(c), status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"clubs": clubs})
}

func (s *Server) fetchClub(c *fiber.Ctx) error {
	club, err := s.svc.FetchClub(c.UserContext(), c.Params("clubId"))
	if err != nil {
		return err
	}
	return c.JSON(club)
}

func (s *Server) updateClub(c *fiber.Ctx) error {
	var patch clubPatch
	if err := decode(c, domain.EntityClub, &patch); err != nil {
		return err
	}
	update := domain.Club{
		Name: patch.Name,
		CurrentBook: domain.Book{
			Title:  patch.CurrentBook.Title,
			Author: patch.CurrentBook.Author,
			ISBN:   patch.CurrentBook.ISBN,
		},
		Description:     patch.Description,
		ContentWarnings: patch.ContentWarnings,
	}
	club, _, err := s.svc.UpdateClub(c.UserContext(), c.Params("clubId"), update, fieldmask.Parse(c.Query("updateMask")), subject(c))
	if err != nil {
		return err
	}
	return c.JSON(club)
}

func (s *Server) joinClub(c *fiber.Ctx) error {
	membership, _, err := s.svc.JoinClub(c.UserContext(), subject(c), c.Params("clubId"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(membership)
}

func (s *Server) leaveClub(c *fiber.Ctx) error {
	if _, err := s.svc.LeaveClub(c.UserContext(), subject(c), c.Params("clubId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) listMembers(c *fiber.Ctx) error {
	members, err := s.svc.ListMembers(c.UserContext(), c.Params("clubId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"members": members})
}

func (s *Server) exportRoster(c *fiber.Ctx) error {
	format, err := roster.ParseFormat(c.Query("format"))
	if err != nil {
		return err
	}
	artifact, err := s.exporter.Export(c.UserContext(), c.Params("clubId"), subject(c), format)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(artifact)
}

func (s *Server) listRosterExports(c *fiber.Ctx) error {
	exports, err := s.exporter.List(c.UserContext(), c.Params("clubId"), subject(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"exports": exports})
}
