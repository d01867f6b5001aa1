package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/teslashibe/go-vhuman/internal/httpc"
)

// VoiceSample is one audio file uploaded when cloning a voice.
type VoiceSample struct {
	Filename string
	Data     io.Reader
}

// CloneRequest describes a voice to create from samples.
type CloneRequest struct {
	Name        string
	Description string
	Samples     []VoiceSample
}

// Voices lists the voices on the ElevenLabs account.
func (e *ElevenLabs) Voices(ctx context.Context) ([]Voice, error) {
	req, err := e.request(ctx, http.MethodGet, "/voices", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	var payload struct {
		Voices []struct {
			VoiceID     string            `json:"voice_id"`
			Name        string            `json:"name"`
			Category    string            `json:"category"`
			Description string            `json:"description"`
			Labels      map[string]string `json:"labels"`
		} `json:"voices"`
	}
	if err := httpc.Do(e.client, req, &payload); err != nil {
		return nil, e.statusError(err)
	}

	voices := make([]Voice, 0, len(payload.Voices))
	for _, v := range payload.Voices {
		voices = append(voices, Voice{
			ID:          v.VoiceID,
			Name:        v.Name,
			Category:    v.Category,
			Description: v.Description,
			Labels:      v.Labels,
			Provider:    providerElevenLabs,
		})
	}
	e.log.Debug("loaded voices", "count", len(voices))
	return voices, nil
}

// CloneVoice uploads samples to /voices/add and returns the new voice.
func (e *ElevenLabs) CloneVoice(ctx context.Context, cr CloneRequest) (*Voice, error) {
	if cr.Name == "" {
		return nil, errors.New("elevenlabs: voice name required")
	}
	if len(cr.Samples) == 0 {
		return nil, ErrNoSamples
	}
	if cr.Description == "" {
		cr.Description = "Custom voice: " + cr.Name
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("name", cr.Name); err != nil {
		return nil, fmt.Errorf("elevenlabs: %w", err)
	}
	if err := mw.WriteField("description", cr.Description); err != nil {
		return nil, fmt.Errorf("elevenlabs: %w", err)
	}
	for i, s := range cr.Samples {
		name := s.Filename
		if name == "" {
			name = fmt.Sprintf("sample_%d.wav", i+1)
		}
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			return nil, fmt.Errorf("elevenlabs: %w", err)
		}
		if _, err := io.Copy(fw, s.Data); err != nil {
			return nil, fmt.Errorf("elevenlabs: copy sample %s: %w", name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("elevenlabs: %w", err)
	}

	req, err := e.request(ctx, http.MethodPost, "/voices/add", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		VoiceID string `json:"voice_id"`
	}
	if err := httpc.Do(e.client, req, &out); err != nil {
		return nil, e.statusError(err)
	}

	e.log.Info("cloned voice", "name", cr.Name, "voice_id", out.VoiceID, "samples", len(cr.Samples))
	return &Voice{
		ID:          out.VoiceID,
		Name:        cr.Name,
		Category:    "cloned",
		Description: cr.Description,
		Provider:    providerElevenLabs,
	}, nil
}

// statusError converts httpc status failures into *APIError.
func (e *ElevenLabs) statusError(err error) error {
	var se *httpc.StatusError
	if errors.As(err, &se) {
		return elevenLabsError(se.StatusCode, []byte(se.Body))
	}
	return fmt.Errorf("elevenlabs: %w", err)
}

var _ VoiceLister = (*ElevenLabs)(nil)
