package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	elevenLabsBaseURL  = "https://api.elevenlabs.io/v1"
	providerElevenLabs = "elevenlabs"
)

// ElevenLabs models.
const (
	ModelMonolingualV1  = "eleven_monolingual_v1" // default, English
	ModelMultilingualV2 = "eleven_multilingual_v2"
	ModelTurboV2_5      = "eleven_turbo_v2_5"
)

// ElevenLabs speaks with account, preset or cloned voices and tunes the
// voice settings to the reply's emotion.
type ElevenLabs struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

// NewElevenLabs needs an API key and a default voice.
func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	base := vendorDefaults()
	base.BaseURL = elevenLabsBaseURL
	base.ModelID = ModelMonolingualV1

	cfg, err := build(base, opts)
	if err != nil {
		return nil, err
	}
	if cfg.VoiceID == "" {
		return nil, ErrNoVoiceID
	}
	cfg.VoiceID = ResolveElevenLabsVoice(cfg.VoiceID)
	if cfg.BaseURL == "" {
		cfg.BaseURL = elevenLabsBaseURL
	}
	return &ElevenLabs{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    cfg.Logger.With("component", "tts.elevenlabs"),
	}, nil
}

func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	return e.SynthesizeWith(ctx, text, Options{})
}

// SynthesizeWith resolves preset voice names like "rachel" and picks
// voice settings with EmotionVoiceSettings.
func (e *ElevenLabs) SynthesizeWith(ctx context.Context, text string, opts Options) (*AudioResult, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	start := time.Now()

	voiceID := e.cfg.VoiceID
	if opts.VoiceID != "" {
		voiceID = ResolveElevenLabsVoice(opts.VoiceID)
	}
	emotion := opts.Emotion
	if emotion == "" {
		emotion = "neutral"
	}

	resp, err := e.speak(ctx, e.client, "/text-to-speech/"+voiceID, text, opts.ModelID, EmotionVoiceSettings(emotion), e.cfg.Retries)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	clip, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read audio: %w", err)
	}
	latency := time.Since(start)
	e.log.Debug("synthesized", "chars", len(text), "bytes", len(clip), "voice", voiceID, "emotion", emotion, "latency", latency)

	return &AudioResult{
		Audio:     clip,
		Format:    e.format(),
		Duration:  mp3Duration(len(clip)),
		CharCount: len(text),
		LatencyMs: latency.Milliseconds(),
		VoiceID:   voiceID,
		Emotion:   emotion,
		Mode:      ModeProduction,
	}, nil
}

// Stream starts playback-ready chunks with the default voice.
func (e *ElevenLabs) Stream(ctx context.Context, text string) (AudioStream, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	client := &http.Client{Timeout: e.cfg.StreamTimeout}
	resp, err := e.speak(ctx, client, "/text-to-speech/"+e.cfg.VoiceID+"/stream", text, "", DefaultVoiceSettings(), 0)
	if err != nil {
		return nil, err
	}
	return &bodyStream{body: resp.Body, format: e.format()}, nil
}

// Health fetches the account, which fails on a bad key.
func (e *ElevenLabs) Health(ctx context.Context) error {
	req, err := e.request(ctx, http.MethodGet, "/user", nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs: health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}
	return nil
}

func (e *ElevenLabs) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

// VoiceID is the default voice.
func (e *ElevenLabs) VoiceID() string { return e.cfg.VoiceID }

func (e *ElevenLabs) request(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, e.cfg.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: %w", err)
	}
	req.Header.Set("xi-api-key", e.cfg.APIKey)
	return req, nil
}

// speak POSTs a synthesis payload and returns a 200 response. Rate limits
// and 5xx answers are retried up to retries times.
func (e *ElevenLabs) speak(ctx context.Context, client *http.Client, path, text, model string, vs VoiceSettings, retries int) (*http.Response, error) {
	if model == "" {
		model = e.cfg.ModelID
	}
	payload, err := json.Marshal(map[string]any{
		"text":           text,
		"model_id":       model,
		"voice_settings": vs,
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: %w", err)
	}

	for attempt := 0; ; attempt++ {
		req, err := e.request(ctx, http.MethodPost, path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", e.cfg.Format.MIMEType())

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("elevenlabs: %w", err)
		}
		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}
		apiErr := readAPIError(resp)
		resp.Body.Close()
		if attempt >= retries || !apiErr.Temporary() {
			return nil, apiErr
		}
		e.log.Warn("synthesis failed, retrying", "attempt", attempt+1, "status", apiErr.Status)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.cfg.Backoff * time.Duration(attempt+1)):
		}
	}
}

func readAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(resp.Body)
	return elevenLabsError(resp.StatusCode, body)
}

// elevenLabsError decodes {"detail":{"status":..,"message":..}}, falling
// back to the raw body.
func elevenLabsError(status int, body []byte) *APIError {
	apiErr := &APIError{Provider: providerElevenLabs, Status: status, Message: string(body)}
	var decoded struct {
		Detail struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"detail"`
	}
	if json.Unmarshal(body, &decoded) == nil && decoded.Detail.Message != "" {
		apiErr.Code = decoded.Detail.Status
		apiErr.Message = decoded.Detail.Message
	}
	return apiErr
}

func (e *ElevenLabs) format() AudioFormat {
	return AudioFormat{
		Encoding:   e.cfg.Format,
		SampleRate: SampleRateFromEncoding(e.cfg.Format),
		Channels:   1,
		BitDepth:   16,
	}
}

// mp3Duration estimates playback time of a 128kbps MP3.
func mp3Duration(size int) time.Duration {
	const bytesPerSecond = 128_000 / 8
	return time.Duration(size) * time.Second / bytesPerSecond
}

var _ Speaker = (*ElevenLabs)(nil)
