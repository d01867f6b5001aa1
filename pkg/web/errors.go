package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-vhuman/pkg/animation"
	"github.com/teslashibe/go-vhuman/pkg/audio"
	"github.com/teslashibe/go-vhuman/pkg/avatar"
	"github.com/teslashibe/go-vhuman/pkg/document"
	"github.com/teslashibe/go-vhuman/pkg/langflow"
	"github.com/teslashibe/go-vhuman/pkg/mcp"
	"github.com/teslashibe/go-vhuman/pkg/tts"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code

	case errors.Is(err, avatar.ErrNotFound),
		errors.Is(err, mcp.ErrNotFound),
		errors.Is(err, langflow.ErrNotFound):
		return fiber.StatusNotFound

	case errors.Is(err, avatar.ErrAlreadyExists),
		errors.Is(err, avatar.ErrInvalid),
		errors.Is(err, avatar.ErrReadOnly),
		errors.Is(err, mcp.ErrAlreadyExists),
		errors.Is(err, mcp.ErrInvalid),
		errors.Is(err, mcp.ErrNoTransport),
		errors.Is(err, langflow.ErrAlreadyExists),
		errors.Is(err, langflow.ErrInvalid),
		errors.Is(err, langflow.ErrInvalidID),
		errors.Is(err, animation.ErrGestureRequired),
		errors.Is(err, tts.ErrEmptyText),
		errors.Is(err, tts.ErrNoSamples),
		errors.Is(err, audio.ErrInvalidWAV),
		errors.Is(err, document.ErrNotPDF):
		return fiber.StatusBadRequest

	case errors.Is(err, animation.ErrUnityUnavailable),
		errors.Is(err, animation.ErrUnityNotConfigured):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// handleError renders every error as {"error": message}.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		s.log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	} else {
		s.log.Debug("request rejected", "method", c.Method(), "path", c.Path(), "status", code, "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(msg string) error {
	return fiber.NewError(fiber.StatusBadRequest, msg)
}
