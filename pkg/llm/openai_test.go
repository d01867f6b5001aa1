package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newOpenAIServer(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewOpenAI(
		WithAPIKey("sk-test"),
		WithBaseURL(srv.URL+"/v1"),
		WithRetries(2, time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	return p
}

func TestNewOpenAI_NoKey(t *testing.T) {
	if _, err := NewOpenAI(); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestOpenAI_Chat(t *testing.T) {
	var got map[string]interface{}
	p := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing auth header")
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id":"c1","object":"chat.completion","model":"gpt-4o",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Hello from OpenAI"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}
		}`))
	})

	resp, err := p.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "Hello from OpenAI" || resp.TotalTokens != 7 {
		t.Errorf("unexpected response %+v", resp)
	}
	if got["model"] != "gpt-4o" {
		t.Errorf("expected default model, got %v", got["model"])
	}
	if msgs, _ := got["messages"].([]interface{}); len(msgs) != 2 {
		t.Errorf("expected 2 messages, got %v", got["messages"])
	}
}

func TestOpenAI_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	p := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	})

	resp, err := p.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "ok" || calls.Load() != 3 {
		t.Errorf("expected success on third attempt, calls=%d", calls.Load())
	}
}

func TestOpenAI_Unauthorized(t *testing.T) {
	var calls atomic.Int32
	p := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error","code":"invalid_api_key"}}`))
	})

	_, err := p.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.Unauthorized() || apiErr.Code != "invalid_api_key" {
		t.Errorf("unexpected error %+v", apiErr)
	}
	if calls.Load() != 1 {
		t.Errorf("401 should not be retried, calls=%d", calls.Load())
	}
}

func TestOpenAI_EmptyChoices(t *testing.T) {
	p := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	})
	if _, err := p.Chat(context.Background(), &ChatRequest{}); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestOpenAI_ToolCalls(t *testing.T) {
	var got struct {
		Tools []struct {
			Type     string `json:"type"`
			Function struct {
				Name       string                 `json:"name"`
				Parameters map[string]interface{} `json:"parameters"`
			} `json:"function"`
		} `json:"tools"`
		Messages []struct {
			Role       string `json:"role"`
			ToolCallID string `json:"tool_call_id"`
			ToolCalls  []struct {
				ID       string `json:"id"`
				Function struct {
					Name string `json:"name"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"messages"`
	}
	p := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"index":0,"finish_reason":"tool_calls","message":{"role":"assistant","content":"",
			"tool_calls":[{"id":"call_9","type":"function","function":{"name":"get_avatar","arguments":"{\"avatar_id\":\"teacher\"}"}}]}}]}`))
	})

	resp, err := p.Chat(context.Background(), &ChatRequest{
		Messages: []Message{
			{Role: RoleUser, Content: "who?"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call_1", Name: "list_avatars", Arguments: "{}"}}},
			{Role: RoleTool, ToolCallID: "call_1", Content: "[]"},
		},
		Tools: []Tool{{Name: "get_avatar", Description: "Look up an avatar"}},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].ID != "call_9" || resp.ToolCalls[0].Name != "get_avatar" {
		t.Fatalf("unexpected tool calls %+v", resp.ToolCalls)
	}
	if resp.ToolCalls[0].Arguments != `{"avatar_id":"teacher"}` || resp.FinishReason != "tool_calls" {
		t.Errorf("unexpected response %+v", resp)
	}

	if len(got.Tools) != 1 || got.Tools[0].Type != "function" || got.Tools[0].Function.Name != "get_avatar" {
		t.Errorf("tools not sent: %+v", got.Tools)
	}
	if got.Tools[0].Function.Parameters["type"] != "object" {
		t.Errorf("missing parameters should default to an empty object schema")
	}
	if len(got.Messages) != 3 || got.Messages[1].ToolCalls[0].ID != "call_1" || got.Messages[2].ToolCallID != "call_1" {
		t.Errorf("tool messages not encoded: %+v", got.Messages)
	}
}
