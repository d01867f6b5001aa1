package langflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-vhuman/internal/httpc"
	"github.com/teslashibe/go-vhuman/internal/log"
)

// NoResponse is returned by ExtractText when no text could be found.
const NoResponse = "No response generated"

// Client calls the Langflow REST API on one host.
type Client struct {
	hostURL string
	http    *http.Client
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.http = c }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) { cl.http = httpc.NewClient(d) }
}

// NewClient creates a client for hostURL.
func NewClient(hostURL string, opts ...ClientOption) *Client {
	if hostURL == "" {
		hostURL = DefaultHostURL
	}
	c := &Client{
		hostURL: strings.TrimRight(hostURL, "/"),
		http:    httpc.Client,
		logger:  log.Component("langflow"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HostURL returns the server address.
func (c *Client) HostURL() string { return c.hostURL }

// Health is the result of CheckConnection.
type Health struct {
	Status     string      `json:"status"`
	ServerInfo interface{} `json:"server_info"`
	HostURL    string      `json:"host_url"`
}

// CheckConnection calls /api/v1/health. A 200 with a non-JSON body still
// counts as connected.
func (c *Client) CheckConnection(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.hostURL+"/api/v1/health", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("langflow health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("langflow health: HTTP %d", resp.StatusCode)
	}
	var info interface{}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		info = map[string]string{"message": "Server running but not Langflow API"}
	}
	return &Health{Status: "connected", ServerInfo: info, HostURL: c.hostURL}, nil
}

// RunResult is the outcome of a flow run.
type RunResult struct {
	Response      string      `json:"response"`
	SessionID     string      `json:"session_id"`
	FlowID        string      `json:"flow_id"`
	ExecutionTime float64     `json:"execution_time"`
	Outputs       interface{} `json:"raw_outputs,omitempty"`
	HostURL       string      `json:"host_url"`
}

type runRequest struct {
	InputValue string `json:"input_value"`
	InputType  string `json:"input_type"`
	OutputType string `json:"output_type"`
	SessionID  string `json:"session_id"`
}

// Run sends message to a chat flow. An empty sessionID gets a fresh UUID.
func (c *Client) Run(ctx context.Context, flowID, message, sessionID string) (*RunResult, error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	endpoint := fmt.Sprintf("%s/api/v1/run/%s", c.hostURL, url.PathEscape(flowID))

	var raw interface{}
	err := httpc.PostJSON(ctx, c.http, endpoint, runRequest{
		InputValue: message,
		InputType:  "chat",
		OutputType: "chat",
		SessionID:  sessionID,
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("run flow %s: %w", flowID, err)
	}

	if list, ok := raw.([]interface{}); ok {
		raw = map[string]interface{}{}
		if len(list) > 0 {
			raw = list[0]
		}
	}

	res := &RunResult{
		Response:  ExtractText(raw),
		SessionID: sessionID,
		FlowID:    flowID,
		HostURL:   c.hostURL,
		Outputs:   raw,
	}
	if m, ok := raw.(map[string]interface{}); ok {
		res.Outputs = m["outputs"]
		if t, ok := m["execution_time"].(float64); ok {
			res.ExecutionTime = t
		}
	}
	c.logger.Debug("flow run", "flow_id", flowID, "session_id", sessionID, "chars", len(res.Response))
	return res, nil
}

// Flows lists the flows defined on the server.
func (c *Client) Flows(ctx context.Context) ([]interface{}, error) {
	var out interface{}
	if err := httpc.GetJSON(ctx, c.http, c.hostURL+"/api/v1/flows", &out); err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	list, _ := out.([]interface{})
	if list == nil {
		list = []interface{}{}
	}
	return list, nil
}

// ExtractText pulls the reply text out of a run response. Known Langflow
// shapes are tried first, then any long string, then common keys.
func ExtractText(v interface{}) string {
	switch d := v.(type) {
	case []interface{}:
		if len(d) > 0 {
			return ExtractText(d[0])
		}
		return NoResponse
	case map[string]interface{}:
		return extractFromMap(d)
	}
	return NoResponse
}

func extractFromMap(d map[string]interface{}) string {
	if s, ok := str(path(d, "outputs", 0, "outputs", 0, "results", "message", "data", "text")); ok {
		return s
	}
	if s, ok := str(path(d, "artifacts", "message")); ok {
		return s
	}
	if outputs, ok := d["outputs"].(map[string]interface{}); ok {
		switch m := outputs["message"].(type) {
		case string:
			return m
		case map[string]interface{}:
			if s, ok := m["message"].(string); ok {
				return s
			}
		}
	}
	if s, ok := str(path(d, "messages", 0, "message")); ok {
		return s
	}

	for _, k := range sortedKeys(d) {
		switch val := d[k].(type) {
		case string:
			if len(val) > 20 && val != "langflow_session" {
				return val
			}
		case map[string]interface{}:
			if s := extractFromMap(val); s != NoResponse && s != "langflow_session" {
				return s
			}
		}
	}
	return commonKeys(d)
}

var textKeys = []string{"text", "response", "output", "message", "content", "result", "data"}

func commonKeys(v interface{}) string {
	switch d := v.(type) {
	case []interface{}:
		if len(d) > 0 {
			return commonKeys(d[0])
		}
	case map[string]interface{}:
		for _, k := range textKeys {
			switch val := d[k].(type) {
			case string:
				if strings.TrimSpace(val) != "" {
					return val
				}
			case map[string]interface{}, []interface{}:
				return commonKeys(val)
			}
		}
		for _, k := range sortedKeys(d) {
			switch val := d[k].(type) {
			case string:
				if strings.TrimSpace(val) != "" && len(val) > 10 {
					return val
				}
			case map[string]interface{}, []interface{}:
				if s := commonKeys(val); s != NoResponse {
					return s
				}
			}
		}
	}
	return NoResponse
}

// path walks maps by string key and slices by int index.
func path(v interface{}, steps ...interface{}) interface{} {
	for _, step := range steps {
		switch s := step.(type) {
		case string:
			m, ok := v.(map[string]interface{})
			if !ok {
				return nil
			}
			v = m[s]
		case int:
			l, ok := v.([]interface{})
			if !ok || s >= len(l) {
				return nil
			}
			v = l[s]
		}
	}
	return v
}

func str(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
