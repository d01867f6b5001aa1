package web

import (
	"context"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-vhuman/pkg/animation"
	"github.com/teslashibe/go-vhuman/pkg/protocol"
	"github.com/teslashibe/go-vhuman/pkg/session"
)

// chatReply is a ChatResponse sent over the chat socket.
type chatReply struct {
	Type protocol.MessageType `json:"type"`
	*ChatResponse
}

func upgradeOnly(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func (s *Server) websocketRoutes() {
	s.app.Get("/api/chat/ws/:session_id", upgradeOnly, websocket.New(s.handleChatWS))
	s.app.Get("/api/animation/ws", upgradeOnly, websocket.New(s.handleAnimationWS))
	s.feedRoutes()
}

// handleChatWS answers chat turns for one session until the client leaves.
func (s *Server) handleChatWS(c *websocket.Conn) {
	conn := s.svc.Sessions.Add(session.KindChat, c.Params("session_id"), c)
	defer s.svc.Sessions.Remove(conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			s.log.Debug("chat socket closed", "session_id", conn.ID, "error", err)
			return
		}
		conn.Received()
		s.handleChatMessage(ctx, conn, data)
	}
}

func (s *Server) handleChatMessage(ctx context.Context, conn *session.Connection, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		conn.Send(protocol.NewSessionError(conn.ID, err.Error()))
		return
	}
	if msg.Type == protocol.TypePing {
		conn.Send(protocol.NewPong(msg.Timestamp))
		return
	}

	var req protocol.ChatRequest
	if err := msg.ParseData(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		conn.Send(protocol.NewSessionError(conn.ID, "message is required"))
		return
	}

	resp := s.reply(ctx, ChatRequest{
		Message:     req.Message,
		SessionID:   conn.ID,
		Context:     req.Context,
		Personality: req.Personality,
	})
	if err := conn.Send(chatReply{Type: protocol.TypeChatReply, ChatResponse: resp}); err != nil {
		s.log.Debug("chat reply not sent", "session_id", conn.ID, "error", err)
	}
}

// handleAnimationWS relays animation updates and gesture triggers from a
// tracking client.
func (s *Server) handleAnimationWS(c *websocket.Conn) {
	conn := s.svc.Sessions.Add(session.KindAnimation, "", c)
	defer s.svc.Sessions.Remove(conn)
	defer s.svc.Animation.ReleaseStream(conn.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			s.log.Debug("animation socket closed", "id", conn.ID, "error", err)
			return
		}
		conn.Received()
		s.handleAnimationMessage(ctx, conn, data)
	}
}

func (s *Server) handleAnimationMessage(ctx context.Context, conn *session.Connection, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		conn.Send(protocol.NewError(err.Error()))
		return
	}

	switch msg.Type {
	case protocol.TypeAnimationUpdate:
		var upd protocol.AnimationUpdate
		if err := msg.ParseData(&upd); err != nil {
			conn.Send(protocol.NewError(err.Error()))
			return
		}
		_, err := s.svc.Animation.Update(ctx, animation.UpdateRequest{
			Blendshapes: upd.Blendshapes,
			Gestures:    upd.Gestures,
			Emotion:     upd.Emotion,
			Duration:    upd.Duration,
		})
		conn.Send(protocol.NewAnimationConfirmation(err == nil, upd.Timestamp))

	case protocol.TypeGestureTrigger:
		var g protocol.GestureTrigger
		if err := msg.ParseData(&g); err != nil {
			conn.Send(protocol.NewError(err.Error()))
			return
		}
		if g.GestureType == "" {
			g.GestureType = "wave"
		}
		res, err := s.svc.Animation.TriggerGesture(ctx, g.GestureType, g.IntensityOr(1.0))
		ok := err == nil && res.Status != animation.StatusError
		conn.Send(protocol.NewGestureConfirmation(ok, g.GestureType, g.Timestamp))

	case protocol.TypeFacialLandmarks:
		var f protocol.FacialLandmarks
		if err := msg.ParseData(&f); err != nil {
			conn.Send(protocol.NewError(err.Error()))
			return
		}
		landmarks := make([]animation.Landmark, len(f.Landmarks))
		for i, p := range f.Landmarks {
			landmarks[i] = animation.Landmark{X: p.X, Y: p.Y, Z: p.Z}
		}
		b := s.svc.Animation.ProcessFacial(conn.ID, landmarks, f.Emotion)
		if f.Forward {
			s.forwardFacial(ctx, b, f.Emotion)
		}
		conn.Send(protocol.NewFacialBlendshapes(b, f.Emotion, facialSource(landmarks), f.Timestamp))

	case protocol.TypePing:
		conn.Send(protocol.NewPong(msg.Timestamp))

	default:
		conn.Send(protocol.NewError("Unknown message type: " + string(msg.Type)))
	}
}
