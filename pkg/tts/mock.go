package tts

import (
	"context"
	"sync"
	"time"
)

// MockRequest is one synthesis request seen by a Mock.
type MockRequest struct {
	Text    string
	Options Options
}

// Mock is a scripted Speaker for tests. It answers with 20ms of 24kHz
// PCM silence per character, or with Err when set.
type Mock struct {
	Err error

	mu       sync.Mutex
	requests []MockRequest
}

func NewMock() *Mock { return &Mock{} }

// FailingMock fails every call with err.
func FailingMock(err error) *Mock { return &Mock{Err: err} }

func (m *Mock) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	return m.SynthesizeWith(ctx, text, Options{})
}

func (m *Mock) SynthesizeWith(_ context.Context, text string, opts Options) (*AudioResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, MockRequest{Text: text, Options: opts})
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	const bytesPerChar = 960
	return &AudioResult{
		Audio:     make([]byte, len(text)*bytesPerChar),
		Format:    AudioFormat{Encoding: EncodingPCM24, SampleRate: 24000, Channels: 1, BitDepth: 16},
		Duration:  time.Duration(len(text)) * 20 * time.Millisecond,
		CharCount: len(text),
		VoiceID:   opts.VoiceID,
		Emotion:   opts.Emotion,
		Mode:      ModeProduction,
	}, nil
}

func (m *Mock) Stream(ctx context.Context, text string) (AudioStream, error) {
	res, err := m.SynthesizeWith(ctx, text, Options{})
	if err != nil {
		return nil, err
	}
	return &bufferStream{data: res.Audio, format: res.Format}, nil
}

func (m *Mock) Health(context.Context) error { return m.Err }

func (m *Mock) Close() error { return nil }

// Requests returns every request so far, streams included.
func (m *Mock) Requests() []MockRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockRequest(nil), m.requests...)
}

// LastRequest returns the most recent request, or nil.
func (m *Mock) LastRequest() *MockRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	r := m.requests[len(m.requests)-1]
	return &r
}

var _ Speaker = (*Mock)(nil)
