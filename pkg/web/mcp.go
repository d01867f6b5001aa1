package web

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-vhuman/pkg/mcp"
)

func (s *Server) handleMCPList(c *fiber.Ctx) error {
	return c.JSON(s.svc.MCP.List())
}

func (s *Server) handleMCPAdd(c *fiber.Ctx) error {
	var e mcp.Entry
	if err := c.BodyParser(&e); err != nil {
		return badRequest("invalid request body")
	}
	added, err := s.svc.MCP.Add(e)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(added)
}

func (s *Server) handleMCPGet(c *fiber.Ctx) error {
	e, err := s.svc.MCP.Get(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(e)
}

func (s *Server) handleMCPUpdate(c *fiber.Ctx) error {
	var e mcp.Entry
	if err := c.BodyParser(&e); err != nil {
		return badRequest("invalid request body")
	}
	id := c.Params("id")
	updated, err := s.svc.MCP.Update(id, e)
	if err != nil {
		return err
	}
	s.svc.Tools.Forget(id)
	return c.JSON(updated)
}

func (s *Server) handleMCPDelete(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := s.svc.MCP.Delete(id); err != nil {
		return err
	}
	s.svc.Tools.Forget(id)
	return c.JSON(fiber.Map{"message": "MCP deleted"})
}

func (s *Server) handleMCPTools(c *fiber.Ctx) error {
	id := c.Params("id")
	tools, err := s.svc.Tools.ListTools(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"server_id": id, "tools": tools, "count": len(tools)})
}

func (s *Server) handleMCPCall(c *fiber.Ctx) error {
	args := map[string]interface{}{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&args); err != nil {
			return badRequest("tool arguments must be a JSON object")
		}
	}
	id, name := c.Params("id"), c.Params("name")
	text, err := s.svc.Tools.CallTool(c.UserContext(), id, name, args)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"server_id": id, "tool": name, "result": text})
}

// MCPChatRequest is the body of POST /api/mcp/send. An empty MCPServer or
// "openai" selects plain chat.
type MCPChatRequest struct {
	ChatRequest
	MCPServer string `json:"mcp_server"`
}

func (s *Server) handleMCPSend(c *fiber.Ctx) error {
	var req MCPChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return badRequest("message is required")
	}

	ctx := c.UserContext()
	resp := s.mcpReply(ctx, req)
	s.voice(ctx, req.ChatRequest, resp)
	return c.JSON(resp)
}

// mcpReply answers with the tools of the selected server. An unknown server
// or a failed agent run falls back to plain chat.
func (s *Server) mcpReply(ctx context.Context, req MCPChatRequest) *ChatResponse {
	id := strings.TrimSpace(req.MCPServer)
	if id == "" || strings.EqualFold(id, "openai") {
		return s.reply(ctx, req.ChatRequest)
	}

	fallback := func(err error) *ChatResponse {
		resp := s.reply(ctx, req.ChatRequest)
		resp.MCPServer = id
		resp.Fallback = true
		resp.MCPError = err.Error()
		return resp
	}

	if _, err := s.svc.MCP.Get(id); err != nil {
		s.log.Warn("MCP server not found, using plain chat", "mcp_server", id)
		return fallback(err)
	}

	s.chatRequests.Add(1)
	r, err := s.svc.LLM.GenerateWithTools(ctx, chatInput(req.ChatRequest), s.svc.Tools.Toolbox(id))
	if err != nil {
		s.log.Warn("MCP agent failed, using plain chat", "mcp_server", id, "error", err)
		return fallback(err)
	}
	resp := s.respond(ctx, r)
	resp.MCPServer = id
	return resp
}
