package stt

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const providerWhisper = "whisper"

// Whisper transcribes through the OpenAI audio API.
type Whisper struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// WhisperOption configures a Whisper provider.
type WhisperOption func(*whisperConfig)

type whisperConfig struct {
	baseURL string
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// WithBaseURL points the client at a compatible endpoint, e.g. a test server.
func WithBaseURL(url string) WhisperOption {
	return func(c *whisperConfig) { c.baseURL = url }
}

// WithModel overrides whisper-1.
func WithModel(model string) WhisperOption {
	return func(c *whisperConfig) { c.model = model }
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(d time.Duration) WhisperOption {
	return func(c *whisperConfig) { c.timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) WhisperOption {
	return func(c *whisperConfig) { c.logger = l }
}

// NewWhisper creates a Whisper provider.
func NewWhisper(apiKey string, opts ...WhisperOption) (*Whisper, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	cfg := whisperConfig{
		model:   openai.Whisper1,
		timeout: 60 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	oc := openai.DefaultConfig(apiKey)
	if cfg.baseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.baseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.timeout}

	return &Whisper{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.model,
		logger: cfg.logger.With("component", "stt.whisper"),
	}, nil
}

// Transcribe uploads the audio and returns the recognised text.
func (w *Whisper) Transcribe(ctx context.Context, req Request) (*Transcript, error) {
	if req.Audio == nil {
		return nil, ErrNoAudio
	}
	name := req.Filename
	if name == "" {
		name = "audio.wav"
	}

	start := time.Now()
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		Reader:   req.Audio,
		FilePath: name,
		Language: req.Language,
		Prompt:   req.Prompt,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", providerWhisper, err)
	}

	w.logger.Debug("transcribed audio",
		"chars", len(resp.Text),
		"language", resp.Language,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return &Transcript{
		Text:     resp.Text,
		Language: resp.Language,
		Duration: resp.Duration,
		Mode:     ModeProduction,
	}, nil
}

var _ Provider = (*Whisper)(nil)
