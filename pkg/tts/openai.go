package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const providerOpenAI = "openai"

// OpenAI speech models.
const (
	ModelTTS1   = "tts-1"
	ModelTTS1HD = "tts-1-hd"
)

// OpenAI speaks with the six built-in voices. It has no emotion control;
// the requested emotion is echoed in the result.
type OpenAI struct {
	cfg    Config
	client *openai.Client
	log    *slog.Logger
}

// NewOpenAI takes the API root in WithBaseURL, e.g. https://api.openai.com/v1.
// Unknown voices become nova.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	base := vendorDefaults()
	base.ModelID = ModelTTS1
	base.VoiceID = VoiceNova

	cfg, err := build(base, opts)
	if err != nil {
		return nil, err
	}
	cfg.VoiceID = ResolveOpenAIVoice(cfg.VoiceID)
	cfg.Format = EncodingMP3

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAI{
		cfg:    cfg,
		client: openai.NewClientWithConfig(oc),
		log:    cfg.Logger.With("component", "tts.openai"),
	}, nil
}

func (o *OpenAI) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	return o.SynthesizeWith(ctx, text, Options{})
}

func (o *OpenAI) SynthesizeWith(ctx context.Context, text string, opts Options) (*AudioResult, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	start := time.Now()

	voice := o.cfg.VoiceID
	if opts.VoiceID != "" {
		voice = ResolveOpenAIVoice(opts.VoiceID)
	}
	model := o.cfg.ModelID
	if opts.ModelID != "" {
		model = opts.ModelID
	}

	var clip []byte
	err := o.retry(ctx, func() error {
		body, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
			Model:          openai.SpeechModel(model),
			Input:          text,
			Voice:          openai.SpeechVoice(voice),
			ResponseFormat: openai.SpeechResponseFormatMp3,
		})
		if err != nil {
			return err
		}
		defer body.Close()
		clip, err = io.ReadAll(body)
		return err
	})
	if err != nil {
		return nil, err
	}
	latency := time.Since(start)
	o.log.Debug("synthesized", "chars", len(text), "bytes", len(clip), "voice", voice, "latency", latency)

	return &AudioResult{
		Audio:     clip,
		Format:    AudioFormat{Encoding: EncodingMP3, SampleRate: 44100, Channels: 1},
		Duration:  mp3Duration(len(clip)),
		CharCount: len(text),
		LatencyMs: latency.Milliseconds(),
		VoiceID:   voice,
		Emotion:   opts.Emotion,
		Mode:      ModeProduction,
	}, nil
}

// Stream returns the whole clip as one chunk; the speech endpoint is not
// incremental.
func (o *OpenAI) Stream(ctx context.Context, text string) (AudioStream, error) {
	res, err := o.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	return &bufferStream{data: res.Audio, format: res.Format}, nil
}

func (o *OpenAI) Health(ctx context.Context) error {
	_, err := o.client.ListModels(ctx)
	return openAIError(err)
}

func (o *OpenAI) Close() error { return nil }

// VoiceID is the default voice.
func (o *OpenAI) VoiceID() string { return o.cfg.VoiceID }

func (o *OpenAI) Voices(context.Context) ([]Voice, error) {
	voices := make([]Voice, 0, len(openAIVoices))
	for _, v := range openAIVoices {
		voices = append(voices, Voice{
			ID:       v,
			Name:     strings.ToUpper(v[:1]) + v[1:],
			Category: "premade",
			Provider: providerOpenAI,
		})
	}
	return voices, nil
}

func (o *OpenAI) retry(ctx context.Context, call func() error) error {
	for attempt := 0; ; attempt++ {
		err := openAIError(call())
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if attempt >= o.cfg.Retries || !errors.As(err, &apiErr) || !apiErr.Temporary() {
			return err
		}
		o.log.Warn("synthesis failed, retrying", "attempt", attempt+1, "status", apiErr.Status)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.cfg.Backoff * time.Duration(attempt+1)):
		}
	}
}

func openAIError(err error) error {
	if err == nil {
		return nil
	}
	var oe *openai.APIError
	if errors.As(err, &oe) {
		e := &APIError{Provider: providerOpenAI, Status: oe.HTTPStatusCode, Message: oe.Message}
		if oe.Code != nil {
			e.Code = fmt.Sprint(oe.Code)
		}
		return e
	}
	var re *openai.RequestError
	if errors.As(err, &re) {
		return &APIError{Provider: providerOpenAI, Status: re.HTTPStatusCode, Message: re.Error()}
	}
	return fmt.Errorf("openai: %w", err)
}

var (
	_ Speaker     = (*OpenAI)(nil)
	_ VoiceLister = (*OpenAI)(nil)
)
