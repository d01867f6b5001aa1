// Package web is the HTTP and WebSocket API of the virtual human.
package web

import (
	"context"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/teslashibe/go-vhuman/internal/config"
	"github.com/teslashibe/go-vhuman/internal/log"
	"github.com/teslashibe/go-vhuman/pkg/animation"
	"github.com/teslashibe/go-vhuman/pkg/avatar"
	"github.com/teslashibe/go-vhuman/pkg/hub"
	"github.com/teslashibe/go-vhuman/pkg/langflow"
	"github.com/teslashibe/go-vhuman/pkg/llm"
	"github.com/teslashibe/go-vhuman/pkg/mcp"
	"github.com/teslashibe/go-vhuman/pkg/session"
	"github.com/teslashibe/go-vhuman/pkg/stt"
	"github.com/teslashibe/go-vhuman/pkg/tts"
)

// Version is reported by the health endpoints.
const Version = "1.0.0"

// maxUpload bounds request bodies: audio clips, voice samples and PDFs.
const maxUpload = 50 << 20

// Services are the components the API exposes. Every field is required
// except TTSProviders, Feed and AudioDir.
type Services struct {
	Settings  *config.Settings
	LLM       *llm.Service
	TTS       tts.Provider
	STT       stt.Provider
	Animation *animation.Service
	Avatars   *avatar.Store
	MCP       *mcp.Registry
	Tools     *mcp.Manager
	Langflow  *langflow.Service
	Sessions  *session.Registry

	// TTSProviders are selectable by the "provider" field of a TTS request.
	TTSProviders map[string]tts.Provider

	// Feed receives animation frames for /ws/feed observers.
	Feed *hub.Hub

	// AudioDir holds synthesized chat audio served under /api/audio/files.
	// Defaults to <data dir>/audio.
	AudioDir string
}

// Server is the API server.
type Server struct {
	app *fiber.App
	svc Services
	log *slog.Logger

	started      time.Time
	chatRequests atomic.Uint64
}

// NewServer builds the fiber app and registers every route.
func NewServer(svc Services) *Server {
	if svc.AudioDir == "" {
		svc.AudioDir = filepath.Join(svc.Settings.Storage.DataDir, "audio")
	}
	if svc.TTSProviders == nil {
		svc.TTSProviders = map[string]tts.Provider{}
	}

	s := &Server{
		svc:     svc,
		log:     log.Component("web"),
		started: time.Now(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Virtual Human API",
		DisableStartupMessage: true,
		BodyLimit:             maxUpload,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	if svc.Settings.Server.Debug {
		app.Use(logger.New())
	}

	s.app = app
	s.routes()
	return s
}

func (s *Server) routes() {
	app := s.app

	app.Get("/", s.handleHealth)
	app.Get("/health", s.handleHealth)
	app.Get("/metrics", s.handleMetrics)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)

	chat := api.Group("/chat")
	chat.Post("/send", s.handleChatSend)
	chat.Get("/sessions", s.handleChatSessions)
	chat.Get("/history/:id", s.handleChatHistory)
	chat.Delete("/sessions/:id", s.handleChatDelete)

	audioGroup := api.Group("/audio")
	audioGroup.Post("/stt", s.handleSTT)
	audioGroup.Post("/tts", s.handleTTS)
	audioGroup.Get("/voices", s.handleVoices)
	audioGroup.Post("/voices/clone", s.handleCloneVoice)
	audioGroup.Post("/analyze", s.handleAnalyze)
	audioGroup.Post("/stream", s.handleStream)
	audioGroup.Static("/files", s.svc.AudioDir)

	anim := api.Group("/animation")
	anim.Post("/update", s.handleAnimationUpdate)
	anim.Post("/facial", s.handleFacial)
	anim.Get("/blendshapes", s.handleBlendshapes)
	anim.Post("/gesture", s.handleGesture)
	anim.Get("/status", s.handleAnimationStatus)
	anim.Get("/queue", s.handleAnimationQueue)

	av := api.Group("/avatar")
	av.Get("/presets", s.handleAvatarList)
	av.Get("/presets/:id", s.handleAvatarGet)
	av.Post("/create", s.handleAvatarCreate)
	av.Put("/update/:id", s.handleAvatarUpdate)
	av.Delete("/delete/:id", s.handleAvatarDelete)
	av.Get("/models", s.handleAvatarModels)
	av.Get("/personalities", s.handleAvatarPersonalities)

	m := api.Group("/mcp")
	m.Get("/servers", s.handleMCPList)
	m.Post("/servers", s.handleMCPAdd)
	m.Get("/servers/:id", s.handleMCPGet)
	m.Put("/servers/:id", s.handleMCPUpdate)
	m.Delete("/servers/:id", s.handleMCPDelete)
	m.Get("/servers/:id/tools", s.handleMCPTools)
	m.Post("/servers/:id/tools/:name", s.handleMCPCall)
	m.Post("/send", s.handleMCPSend)

	lf := api.Group("/langflow")
	lf.Get("/flows", s.handleFlowList)
	lf.Post("/flows", s.handleFlowRegister)
	lf.Get("/flows/:key", s.handleFlowGet)
	lf.Put("/flows/:key", s.handleFlowUpdate)
	lf.Delete("/flows/:key", s.handleFlowDelete)
	lf.Post("/flows/:key/activate", s.handleFlowActivate)
	lf.Post("/flows/:key/test", s.handleFlowTest)
	lf.Get("/active", s.handleFlowActive)
	lf.Get("/categories", s.handleFlowCategories)
	lf.Get("/search", s.handleFlowSearch)
	lf.Post("/chat", s.handleFlowChat)

	docs := api.Group("/documents")
	docs.Post("/extract", s.handleExtract)

	s.websocketRoutes()
}

// App returns the fiber app, for tests and embedding.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	if err := os.MkdirAll(s.svc.AudioDir, 0o755); err != nil {
		return err
	}
	s.log.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown stops accepting requests, closes live sockets and waits for
// in-flight handlers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.svc.Sessions.CloseAll()
	return s.app.ShutdownWithContext(ctx)
}
