package llm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// MaxAgentSteps bounds the completions one agent turn may request.
const MaxAgentSteps = 15

// Toolbox runs tools on behalf of the model.
type Toolbox interface {
	Tools(ctx context.Context) ([]Tool, error)
	Call(ctx context.Context, name, arguments string) (string, error)
}

// GenerateWithTools answers a turn while letting the model call tools from
// box, for at most MaxAgentSteps completions. Tool failures are reported
// back to the model. Any other failure is returned and nothing is recorded,
// so the caller can fall back to Generate.
func (s *Service) GenerateWithTools(ctx context.Context, in Input, box Toolbox) (*Reply, error) {
	if s.provider == nil {
		return nil, ErrNoProvider
	}
	tools, err := box.Tools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	if len(tools) == 0 {
		return nil, ErrAgentNoTools
	}
	if in.SessionID == "" {
		in.SessionID = uuid.New().String()
	}

	msgs := s.buildMessages(in)
	reply := &Reply{SessionID: in.SessionID, Mode: ModeProduction}

	for step := 0; step < MaxAgentSteps; step++ {
		resp, err := s.provider.Chat(ctx, &ChatRequest{
			Messages:  msgs,
			MaxTokens: in.MaxTokens,
			Tools:     tools,
		})
		if err != nil {
			return nil, err
		}
		if len(resp.ToolCalls) == 0 {
			reply.Response = resp.Content
			return s.finish(in, reply), nil
		}

		msgs = append(msgs, Message{Role: RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls})
		for _, tc := range resp.ToolCalls {
			out, err := box.Call(ctx, tc.Name, tc.Arguments)
			if err != nil {
				s.log.Warn("tool call failed", "session_id", in.SessionID, "tool", tc.Name, "error", err)
				out = "error: " + err.Error()
			}
			reply.ToolsUsed = append(reply.ToolsUsed, tc.Name)
			msgs = append(msgs, Message{Role: RoleTool, ToolCallID: tc.ID, Content: out})
		}
	}
	return nil, fmt.Errorf("%w (%d)", ErrAgentSteps, MaxAgentSteps)
}
