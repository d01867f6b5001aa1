package llm

import (
	"context"
	"sync"
)

// Mock is a scripted Provider for tests. Err, when set, is returned by
// Chat and Health. Script, when set, answers requests in order and repeats
// its last entry; otherwise every request gets Reply.
type Mock struct {
	Reply  string
	Err    error
	Script []ChatResponse

	mu       sync.Mutex
	requests []*ChatRequest
}

// NewMock answers every request with reply.
func NewMock(reply string) *Mock {
	return &Mock{Reply: reply}
}

// FailingMock fails every request with err.
func FailingMock(err error) *Mock {
	return &Mock{Err: err}
}

func (m *Mock) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	n := len(m.requests)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Script) > 0 {
		resp := m.Script[min(n, len(m.Script))-1]
		return &resp, nil
	}
	return &ChatResponse{Content: m.Reply, FinishReason: "stop", Model: "mock"}, nil
}

func (m *Mock) Health(context.Context) error { return m.Err }

func (m *Mock) Close() error { return nil }

// Requests returns the requests seen so far.
func (m *Mock) Requests() []*ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ChatRequest(nil), m.requests...)
}

// LastRequest returns the most recent request, or nil.
func (m *Mock) LastRequest() *ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

var _ Provider = (*Mock)(nil)
