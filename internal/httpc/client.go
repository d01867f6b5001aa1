// Package httpc holds the JSON-over-HTTP plumbing shared by the vendor
// clients. Every client it hands out has timeouts set.
package httpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// DefaultTimeout bounds a whole request on the shared Client.
const DefaultTimeout = 30 * time.Second

// Client is used when a caller passes a nil *http.Client.
var Client = NewClient(DefaultTimeout)

// NewClient returns a client with the given overall timeout and pooled
// keep-alive connections.
func NewClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// StatusError carries a non-2xx status and the response body.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// GetJSON decodes the body of GET url into out. A nil out discards it.
func GetJSON(ctx context.Context, c *http.Client, url string, out any) error {
	return call(ctx, c, http.MethodGet, url, nil, out)
}

// PostJSON sends in as a JSON body and decodes the answer into out.
func PostJSON(ctx context.Context, c *http.Client, url string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return call(ctx, c, http.MethodPost, url, payload, out)
}

func call(ctx context.Context, c *http.Client, method, url string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return Do(c, req, out)
}

// Do sends a prepared request, for callers that need their own headers,
// and decodes a JSON answer into out.
func Do(c *http.Client, req *http.Request, out any) error {
	if c == nil {
		c = Client
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
