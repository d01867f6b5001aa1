package langflow

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Service routes chat through registered flows, keeping one client per
// host.
type Service struct {
	Registry *Registry

	timeout time.Duration
	clients map[string]*Client
	opts    []ClientOption
	mu      sync.Mutex
}

// NewService creates a service over registry. opts are applied to every
// client it creates.
func NewService(registry *Registry, timeout time.Duration, opts ...ClientOption) *Service {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		Registry: registry,
		timeout:  timeout,
		clients:  make(map[string]*Client),
		opts:     opts,
	}
}

// Client returns the client for hostURL.
func (s *Service) Client(hostURL string) *Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[hostURL]; ok {
		return c
	}
	opts := append([]ClientOption{WithTimeout(s.timeout)}, s.opts...)
	c := NewClient(hostURL, opts...)
	s.clients[hostURL] = c
	return c
}

// ConnectionTest reports whether a flow's host is reachable.
type ConnectionTest struct {
	FlowKey    string      `json:"flow_key"`
	FlowID     string      `json:"flow_id"`
	HostURL    string      `json:"host_url"`
	Status     string      `json:"status"`
	ServerInfo interface{} `json:"server_info,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Connection test statuses.
const (
	StatusPassed = "connection_test_passed"
	StatusFailed = "connection_test_failed"
)

// TestConnection checks the host of the flow stored under key. An
// unreachable host is reported in the result, not as an error.
func (s *Service) TestConnection(ctx context.Context, key string) (*ConnectionTest, error) {
	f, err := s.Registry.Get(key)
	if err != nil {
		return nil, err
	}
	res := &ConnectionTest{FlowKey: key, FlowID: f.ID, HostURL: f.HostURL, Status: StatusPassed}

	h, err := s.Client(f.HostURL).CheckConnection(ctx)
	if err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		return res, nil
	}
	res.ServerInfo = h.ServerInfo
	return res, nil
}

// Chat runs message through the flow stored under key, or the active flow
// when key is empty, and records the use.
func (s *Service) Chat(ctx context.Context, key, message, sessionID string) (*RunResult, *Flow, error) {
	var (
		f   *Flow
		err error
	)
	if key == "" {
		f, err = s.Registry.Active()
	} else {
		f, err = s.Registry.Get(key)
	}
	if err != nil {
		return nil, nil, err
	}

	res, err := s.Client(f.HostURL).Run(ctx, f.ID, message, sessionID)
	if err != nil {
		return nil, f, fmt.Errorf("flow %s: %w", f.Name, err)
	}
	if used, err := s.Registry.SetActive(f.Key); err == nil {
		f = used
	}
	return res, f, nil
}
