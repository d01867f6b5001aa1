package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-vhuman/pkg/hub"
)

func (s *Server) feedRoutes() {
	if s.svc.Feed == nil {
		return
	}
	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws/feed", websocket.New(s.handleFeedWS))
}

// handleFeedWS streams animation frames to a dashboard until it leaves.
func (s *Server) handleFeedWS(c *websocket.Conn) {
	o := hub.Join(s.svc.Feed, c)
	if o == nil {
		c.Close()
		return
	}
	o.Serve()
}
