package web

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-vhuman/pkg/session"
	"github.com/teslashibe/go-vhuman/pkg/stt"
	"github.com/teslashibe/go-vhuman/pkg/tts"
)

const healthTimeout = 5 * time.Second

func (s *Server) ttsMode() string {
	if _, ok := s.svc.TTS.(*tts.Demo); ok {
		return tts.ModeDemo
	}
	return tts.ModeProduction
}

func (s *Server) sttMode() string {
	switch s.svc.STT.(type) {
	case stt.Demo, *stt.Demo:
		return stt.ModeDemo
	}
	return stt.ModeProduction
}

// handleHealth reports whether each core service is usable.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	llmOK := s.svc.LLM.Health(ctx) == nil
	audioOK := s.svc.TTS.Health(ctx) == nil
	animOK := s.svc.Animation.Status().Healthy

	status := "healthy"
	if !llmOK || !audioOK || !animOK {
		status = "degraded"
	}
	return c.JSON(fiber.Map{
		"status": status,
		"services": fiber.Map{
			"llm":       llmOK,
			"audio":     audioOK,
			"animation": animOK,
		},
		"version": Version,
	})
}

// handleStatus returns per-service mode and health.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	errString := func(err error) string {
		if err == nil {
			return ""
		}
		return err.Error()
	}
	llmErr := s.svc.LLM.Health(ctx)
	ttsErr := s.svc.TTS.Health(ctx)

	flows := s.svc.Langflow.Registry.List()
	cfg := s.svc.Settings

	return c.JSON(fiber.Map{
		"version":        Version,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"llm": fiber.Map{
			"mode":     s.svc.LLM.Mode(),
			"healthy":  llmErr == nil,
			"error":    errString(llmErr),
			"sessions": len(s.svc.LLM.Sessions()),
		},
		"tts": fiber.Map{
			"mode":    s.ttsMode(),
			"healthy": ttsErr == nil,
			"error":   errString(ttsErr),
		},
		"stt": fiber.Map{
			"mode": s.sttMode(),
		},
		"animation": s.svc.Animation.Status(),
		"mediapipe": fiber.Map{
			"face_mesh": cfg.MediaPipe.FaceMesh,
			"hands":     cfg.MediaPipe.Hands,
			"pose":      cfg.MediaPipe.Pose,
		},
		"langflow": fiber.Map{
			"flows":        flows.Count,
			"active_flows": flows.ActiveCount,
		},
		"mcp": fiber.Map{
			"servers": len(s.svc.MCP.List()),
		},
		"connections": s.svc.Sessions.Stats(),
	})
}

// handleMetrics renders counters in the Prometheus text format.
func (s *Server) handleMetrics(c *fiber.Ctx) error {
	conns := s.svc.Sessions.Stats()
	anim := s.svc.Animation.Stats()

	var feedClients int
	var feedDropped uint64
	if s.svc.Feed != nil {
		fs := s.svc.Feed.Stats()
		feedClients, feedDropped = fs.Clients, fs.MessagesDropped
	}

	var b strings.Builder
	metric := func(name, kind, help string) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
	}

	metric("vhuman_websocket_connections", "gauge", "Connected WebSocket clients.")
	fmt.Fprintf(&b, "vhuman_websocket_connections{kind=%q} %d\n", session.KindChat, conns.Chat)
	fmt.Fprintf(&b, "vhuman_websocket_connections{kind=%q} %d\n", session.KindAnimation, conns.Animation)
	fmt.Fprintf(&b, "vhuman_websocket_connections{kind=\"feed\"} %d\n", feedClients)

	metric("vhuman_ws_messages_received_total", "counter", "WebSocket messages received.")
	fmt.Fprintf(&b, "vhuman_ws_messages_received_total %d\n", conns.MessagesReceived)
	metric("vhuman_ws_messages_sent_total", "counter", "WebSocket messages sent.")
	fmt.Fprintf(&b, "vhuman_ws_messages_sent_total %d\n", conns.MessagesSent)

	metric("vhuman_animations_forwarded_total", "counter", "Animation frames delivered to Unity.")
	fmt.Fprintf(&b, "vhuman_animations_forwarded_total %d\n", anim.Forwarded)
	metric("vhuman_unity_send_failures_total", "counter", "Failed sends to Unity.")
	fmt.Fprintf(&b, "vhuman_unity_send_failures_total %d\n", anim.SendFailures)
	metric("vhuman_gestures_total", "counter", "Gestures triggered.")
	fmt.Fprintf(&b, "vhuman_gestures_total %d\n", anim.Gestures)

	metric("vhuman_chat_requests_total", "counter", "Chat turns handled.")
	fmt.Fprintf(&b, "vhuman_chat_requests_total %d\n", s.chatRequests.Load())

	metric("vhuman_feed_messages_dropped_total", "counter", "Feed messages dropped for slow observers.")
	fmt.Fprintf(&b, "vhuman_feed_messages_dropped_total %d\n", feedDropped)

	metric("vhuman_uptime_seconds", "gauge", "Seconds since the server started.")
	fmt.Fprintf(&b, "vhuman_uptime_seconds %d\n", int(time.Since(s.started).Seconds()))

	c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4; charset=utf-8")
	return c.SendString(b.String())
}
