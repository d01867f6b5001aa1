package web

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-vhuman/pkg/avatar"
)

func (s *Server) handleAvatarList(c *fiber.Ctx) error {
	if q := c.Query("q"); q != "" {
		found := s.svc.Avatars.Search(q)
		if found == nil {
			found = []avatar.Avatar{}
		}
		return c.JSON(found)
	}
	return c.JSON(s.svc.Avatars.List())
}

func (s *Server) handleAvatarGet(c *fiber.Ctx) error {
	a, err := s.svc.Avatars.Get(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(a)
}

func (s *Server) handleAvatarCreate(c *fiber.Ctx) error {
	var a avatar.Avatar
	if err := c.BodyParser(&a); err != nil {
		return badRequest("invalid request body")
	}
	created, err := s.svc.Avatars.Create(a)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Avatar created successfully",
		"avatar":  created,
	})
}

func (s *Server) handleAvatarUpdate(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) > 0 && !json.Valid(body) {
		return badRequest("invalid request body")
	}
	updated, err := s.svc.Avatars.Update(c.Params("id"), json.RawMessage(body))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Avatar updated successfully",
		"avatar":  updated,
	})
}

func (s *Server) handleAvatarDelete(c *fiber.Ctx) error {
	deleted, err := s.svc.Avatars.Delete(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Avatar deleted successfully",
		"avatar":  deleted,
	})
}

func (s *Server) handleAvatarModels(c *fiber.Ctx) error {
	return c.JSON(avatar.Models())
}

func (s *Server) handleAvatarPersonalities(c *fiber.Ctx) error {
	return c.JSON(avatar.Personalities())
}
