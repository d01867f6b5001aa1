// Package stt transcribes user speech.
//
// Whisper is the production backend; Demo returns a fixed transcript so
// the audio routes keep working without an OpenAI key.
package stt

import (
	"context"
	"errors"
	"io"
)

// Result modes reported to clients.
const (
	ModeProduction = "production"
	ModeDemo       = "demo"
)

var (
	ErrNoAPIKey = errors.New("stt: API key required")
	ErrNoAudio  = errors.New("stt: audio required")
)

// Provider transcribes audio.
type Provider interface {
	Transcribe(ctx context.Context, req Request) (*Transcript, error)
}

// Request is one transcription job. Filename carries the extension the
// vendor uses to detect the container format.
type Request struct {
	Audio    io.Reader
	Filename string
	Language string
	Prompt   string
}

// Transcript is the recognised text.
type Transcript struct {
	Text       string  `json:"text"`
	Language   string  `json:"language,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Duration   float64 `json:"duration,omitempty"`
	Mode       string  `json:"mode"`
}
