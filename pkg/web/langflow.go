package web

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-vhuman/pkg/langflow"
)

// FlowChatRequest is the body of POST /api/langflow/chat.
type FlowChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	FlowKey   string `json:"flow_key"`
}

func (s *Server) flows() *langflow.Registry {
	return s.svc.Langflow.Registry
}

func (s *Server) handleFlowList(c *fiber.Ctx) error {
	if cat := c.Query("category"); cat != "" {
		found := s.flows().ByCategory(cat)
		return c.JSON(fiber.Map{"category": cat, "flows": found, "count": len(found)})
	}
	return c.JSON(s.flows().List())
}

func (s *Server) handleFlowRegister(c *fiber.Ctx) error {
	var f langflow.Flow
	if err := c.BodyParser(&f); err != nil {
		return badRequest("invalid request body")
	}
	registered, err := s.flows().Register(f)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Flow registered successfully",
		"flow_key": registered.Key,
		"flow":     registered,
	})
}

func (s *Server) handleFlowGet(c *fiber.Ctx) error {
	f, err := s.flows().Get(c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(f)
}

func (s *Server) handleFlowUpdate(c *fiber.Ctx) error {
	var u langflow.Update
	if err := c.BodyParser(&u); err != nil {
		return badRequest("invalid request body")
	}
	f, err := s.flows().Update(c.Params("key"), u)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Flow updated successfully", "flow": f})
}

func (s *Server) handleFlowDelete(c *fiber.Ctx) error {
	f, err := s.flows().Delete(c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Flow deleted successfully", "flow": f})
}

func (s *Server) handleFlowActivate(c *fiber.Ctx) error {
	f, err := s.flows().SetActive(c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Flow activated", "flow": f})
}

func (s *Server) handleFlowTest(c *fiber.Ctx) error {
	res, err := s.svc.Langflow.TestConnection(c.UserContext(), c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (s *Server) handleFlowActive(c *fiber.Ctx) error {
	f, err := s.flows().Active()
	if err != nil {
		return err
	}
	return c.JSON(f)
}

func (s *Server) handleFlowCategories(c *fiber.Ctx) error {
	cats := s.flows().Categories()
	return c.JSON(fiber.Map{"categories": cats, "count": len(cats)})
}

func (s *Server) handleFlowSearch(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		return badRequest("query parameter q is required")
	}
	found := s.flows().Search(q)
	return c.JSON(fiber.Map{"query": q, "results": found, "count": len(found)})
}

func (s *Server) handleFlowChat(c *fiber.Ctx) error {
	var req FlowChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return badRequest("message is required")
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}
	s.chatRequests.Add(1)

	res, f, err := s.svc.Langflow.Chat(c.UserContext(), req.FlowKey, req.Message, req.SessionID)
	if err != nil {
		if errors.Is(err, langflow.ErrNotFound) {
			return err
		}
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(fiber.Map{
		"response":       res.Response,
		"session_id":     res.SessionID,
		"flow_key":       f.Key,
		"flow_name":      f.Name,
		"flow_id":        res.FlowID,
		"execution_time": res.ExecutionTime,
		"host_url":       res.HostURL,
		"raw_outputs":    res.Outputs,
	})
}
