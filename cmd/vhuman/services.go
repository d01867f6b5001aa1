package main

import (
	"context"
	"fmt"
	"time"

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
	"github.com/teslashibe/go-vhuman/pkg/web"
)

const langflowTimeout = 30 * time.Second

func newLLM(s *config.Settings) *llm.Service {
	if !s.OpenAIEnabled() {
		return llm.NewService(nil)
	}
	p, err := llm.NewOpenAI(
		llm.WithAPIKey(s.OpenAI.APIKey),
		llm.WithBaseURL(s.OpenAI.BaseURL),
		llm.WithModel(s.OpenAI.Model),
		llm.WithMaxTokens(s.OpenAI.MaxTokens),
		llm.WithTemperature(s.OpenAI.Temperature),
	)
	if err != nil {
		log.Warn("OpenAI chat unavailable, using demo replies", "error", err)
		return llm.NewService(nil)
	}
	return llm.NewService(p)
}

// newTTS returns the default provider and every provider by name. The
// default tries ElevenLabs, then OpenAI, then the demo tone.
func newTTS(s *config.Settings) (tts.Provider, map[string]tts.Provider) {
	demo := tts.NewDemo()
	byName := map[string]tts.Provider{tts.ModeDemo: demo}
	var chain []tts.Provider

	if s.ElevenLabsEnabled() {
		p, err := tts.NewElevenLabs(
			tts.WithAPIKey(s.ElevenLabs.APIKey),
			tts.WithBaseURL(s.ElevenLabs.BaseURL),
			tts.WithVoice(s.ElevenLabs.VoiceID),
			tts.WithModel(s.ElevenLabs.ModelID),
		)
		if err != nil {
			log.Warn("ElevenLabs unavailable", "error", err)
		} else {
			byName["elevenlabs"] = p
			chain = append(chain, p)
		}
	}
	if s.OpenAIEnabled() {
		p, err := tts.NewOpenAI(
			tts.WithAPIKey(s.OpenAI.APIKey),
			tts.WithBaseURL(s.OpenAI.BaseURL),
			tts.WithVoice(s.OpenAI.TTSVoice),
			tts.WithModel(s.OpenAI.TTSModel),
		)
		if err != nil {
			log.Warn("OpenAI speech unavailable", "error", err)
		} else {
			byName["openai"] = p
			chain = append(chain, p)
		}
	}

	if len(chain) == 0 {
		log.Warn("no speech provider configured, running in demo mode")
		return demo, byName
	}
	c, err := tts.NewChain(append(chain, demo)...)
	if err != nil {
		return demo, byName
	}
	return c, byName
}

func newSTT(s *config.Settings) stt.Provider {
	if !s.OpenAIEnabled() {
		return stt.Demo{}
	}
	w, err := stt.NewWhisper(s.OpenAI.APIKey,
		stt.WithBaseURL(s.OpenAI.BaseURL),
		stt.WithModel(s.OpenAI.WhisperModel),
		stt.WithLogger(log.L()),
	)
	if err != nil {
		log.Warn("Whisper unavailable, using demo transcripts", "error", err)
		return stt.Demo{}
	}
	return w
}

func newAnimation(s *config.Settings, feed *hub.Hub) *animation.Service {
	cfg := animation.DefaultConfig()
	cfg.FPS = s.Animation.FPS
	cfg.Smoothing = s.Animation.Smoothing
	cfg.GestureTriggerThreshold = s.Animation.GestureTriggerThreshold
	cfg.UnityURL = s.Unity.WebSocketURL
	cfg.UnityTimeout = s.Unity.Timeout
	cfg.DemoMode = !s.UnityConfigured()

	var opts []animation.Option
	if feed != nil {
		opts = append(opts, animation.WithBroadcaster(feed))
	}
	return animation.New(cfg, opts...)
}

// buildServices wires every component from settings. The feed hub runs
// until ctx is done.
func buildServices(ctx context.Context, s *config.Settings) (web.Services, error) {
	feed := hub.New("feed")
	go feed.Run(ctx)

	avatars, err := avatar.NewStore(s.AvatarStorePath())
	if err != nil {
		return web.Services{}, fmt.Errorf("avatar store: %w", err)
	}
	mcpReg, err := mcp.NewRegistry(s.MCP.RegistryPath)
	if err != nil {
		return web.Services{}, fmt.Errorf("mcp registry: %w", err)
	}
	flows, err := langflow.NewRegistry(s.Langflow.RegistryPath, s.Langflow.HostURL)
	if err != nil {
		return web.Services{}, err
	}

	speech, providers := newTTS(s)
	return web.Services{
		Settings:     s,
		LLM:          newLLM(s),
		TTS:          speech,
		TTSProviders: providers,
		STT:          newSTT(s),
		Animation:    newAnimation(s, feed),
		Avatars:      avatars,
		MCP:          mcpReg,
		Tools:        mcp.NewManager(mcpReg),
		Langflow:     langflow.NewService(flows, langflowTimeout),
		Sessions:     session.NewRegistry(),
		Feed:         feed,
	}, nil
}
