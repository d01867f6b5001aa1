// Package llm generates virtual human replies with a chat-completion
// provider and derives animation cues from the text.
//
//	p, _ := llm.NewOpenAI(llm.WithAPIKey(key))
//	svc := llm.NewService(p)
//	reply := svc.Generate(ctx, llm.Input{Message: "Hello!", SessionID: id})
//
// A Service without a provider answers with canned demo replies.
package llm

import (
	"context"
	"time"
)

// Provider completes a conversation.
type Provider interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	Health(ctx context.Context) error
	Close() error
}

// Role is the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one conversation entry sent to the provider.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCalls are set on assistant messages that requested tools.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool result to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// Tool is a function the model may call. Parameters is a JSON Schema object.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// ToolCall is a function call requested by the model. Arguments is JSON.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatRequest is a completion request. Zero MaxTokens uses the provider
// default.
type ChatRequest struct {
	Messages  []Message
	MaxTokens int
	Tools     []Tool
}

// ChatResponse is the assistant's answer. When ToolCalls is non-empty the
// model is waiting for their results.
type ChatResponse struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Model        string
	TotalTokens  int
	Latency      time.Duration
}
