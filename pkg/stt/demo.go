package stt

import (
	"context"
	"sync"
)

// DemoText is the transcript returned in demo mode.
const DemoText = "Demo speech recognition - this is a sample transcription"

// Demo returns DemoText for any input.
type Demo struct{}

// Transcribe ignores the audio.
func (Demo) Transcribe(ctx context.Context, req Request) (*Transcript, error) {
	return &Transcript{
		Text:       DemoText,
		Language:   req.Language,
		Confidence: 0.95,
		Mode:       ModeDemo,
	}, nil
}

// Mock implements Provider for testing.
type Mock struct {
	TranscribeFunc func(ctx context.Context, req Request) (*Transcript, error)

	mu       sync.Mutex
	requests []Request
}

// Transcribe records the request and calls TranscribeFunc.
// With no func set it returns an empty production transcript.
func (m *Mock) Transcribe(ctx context.Context, req Request) (*Transcript, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, req)
	}
	return &Transcript{Mode: ModeProduction}, nil
}

// Requests returns the recorded requests.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

var (
	_ Provider = Demo{}
	_ Provider = (*Mock)(nil)
)
