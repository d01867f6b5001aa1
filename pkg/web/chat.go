package web

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-vhuman/pkg/animation"
	"github.com/teslashibe/go-vhuman/pkg/avatar"
	"github.com/teslashibe/go-vhuman/pkg/llm"
	"github.com/teslashibe/go-vhuman/pkg/tts"
)

// ChatRequest is the body of POST /api/chat/send.
type ChatRequest struct {
	Message     string `json:"message"`
	SessionID   string `json:"session_id"`
	Context     string `json:"context"`
	Personality string `json:"personality"`
	MaxTokens   int    `json:"max_tokens"`
	UseVoice    bool   `json:"use_voice"`
	VoiceID     string `json:"voice_id"`
}

// ChatResponse is one assistant turn.
type ChatResponse struct {
	Response    string           `json:"response"`
	SessionID   string           `json:"session_id"`
	Mode        string           `json:"mode"`
	Animation   llm.Analysis     `json:"animation"`
	Triggers    llm.Triggers     `json:"animation_triggers"`
	ToolsUsed   []string         `json:"tools_used,omitempty"`
	MCPServer   string           `json:"mcp_server,omitempty"`
	Fallback    bool             `json:"fallback,omitempty"`
	MCPError    string           `json:"mcp_error,omitempty"`
	Frame       *animation.Frame `json:"frame,omitempty"`
	AudioURL    *string          `json:"audio_url"`
	AudioBase64 string           `json:"audio_base64,omitempty"`
	AudioError  string           `json:"audio_error,omitempty"`
	Error       string           `json:"error,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

func chatInput(req ChatRequest) llm.Input {
	return llm.Input{
		Message:     req.Message,
		SessionID:   req.SessionID,
		Context:     req.Context,
		Personality: strings.TrimSuffix(avatar.PersonalityPrompt(req.Personality), "."),
		MaxTokens:   req.MaxTokens,
	}
}

// reply runs one chat turn and drives the avatar with the result.
func (s *Server) reply(ctx context.Context, req ChatRequest) *ChatResponse {
	s.chatRequests.Add(1)
	return s.respond(ctx, s.svc.LLM.Generate(ctx, chatInput(req)))
}

// respond drives the avatar with a reply's analysis and builds the response.
func (s *Server) respond(ctx context.Context, r *llm.Reply) *ChatResponse {
	frame := s.svc.Animation.CompleteAnimation(
		animation.DefaultBlendshapes(r.Analysis.Emotion),
		r.Analysis.Gestures,
		r.Analysis.Emotion,
	)
	s.drive(ctx, frame)

	return &ChatResponse{
		Response:  r.Response,
		SessionID: r.SessionID,
		Mode:      r.Mode,
		Animation: r.Analysis,
		Triggers:  r.Triggers,
		ToolsUsed: r.ToolsUsed,
		Frame:     &frame,
		Error:     r.Error,
		Timestamp: r.Timestamp,
	}
}

// voice attaches synthesized speech to resp when requested. Synthesis
// failures are reported in the response, not as an error.
func (s *Server) voice(ctx context.Context, req ChatRequest, resp *ChatResponse) {
	if !req.UseVoice {
		return
	}
	url, b64, err := s.speak(ctx, resp.Response, req.VoiceID, resp.Animation.Emotion)
	if err != nil {
		s.log.Warn("speech synthesis failed", "session_id", resp.SessionID, "error", err)
		resp.AudioError = err.Error()
		return
	}
	resp.AudioURL = &url
	resp.AudioBase64 = b64
}

// drive sends a frame to Unity, or only to observers in demo mode.
func (s *Server) drive(ctx context.Context, frame animation.Frame) {
	if s.svc.Animation.DemoMode() {
		if s.svc.Feed != nil {
			s.svc.Feed.BroadcastJSON(frame)
		}
		return
	}
	if err := s.svc.Animation.Forward(ctx, frame); err != nil {
		s.log.Debug("animation not delivered", "error", err)
	}
}

// speak synthesizes text, stores it under AudioDir and returns the file URL
// and the encoded audio.
func (s *Server) speak(ctx context.Context, text, voiceID, emotion string) (string, string, error) {
	res, err := tts.Speak(ctx, s.svc.TTS, text, tts.Options{VoiceID: voiceID, Emotion: emotion})
	if err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(s.svc.AudioDir, 0o755); err != nil {
		return "", "", err
	}
	name := uuid.New().String() + res.Format.Encoding.Extension()
	if err := os.WriteFile(filepath.Join(s.svc.AudioDir, name), res.Audio, 0o644); err != nil {
		return "", "", err
	}
	return "/api/audio/files/" + name, base64.StdEncoding.EncodeToString(res.Audio), nil
}

func (s *Server) handleChatSend(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return badRequest("message is required")
	}

	ctx := c.UserContext()
	resp := s.reply(ctx, req)
	s.voice(ctx, req, resp)
	return c.JSON(resp)
}

func (s *Server) handleChatSessions(c *fiber.Ctx) error {
	return c.JSON(s.svc.LLM.Sessions())
}

func (s *Server) handleChatHistory(c *fiber.Ctx) error {
	id := c.Params("id")
	history := s.svc.LLM.History(id)
	if history == nil {
		history = []llm.HistoryEntry{}
	}
	return c.JSON(fiber.Map{"session_id": id, "history": history})
}

func (s *Server) handleChatDelete(c *fiber.Ctx) error {
	id := c.Params("id")
	existed := s.svc.LLM.DeleteSession(id)
	return c.JSON(fiber.Map{
		"message": "Session " + id + " cleared successfully",
		"existed": existed,
	})
}
