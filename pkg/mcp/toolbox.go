package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teslashibe/go-vhuman/pkg/llm"
)

// Toolbox offers one registered server's tools to an llm agent.
type Toolbox struct {
	m  *Manager
	id string
}

// Toolbox returns the tools of server id for llm.Service.GenerateWithTools.
func (m *Manager) Toolbox(id string) *Toolbox {
	return &Toolbox{m: m, id: id}
}

// Tools lists the server's tools as function definitions.
func (t *Toolbox) Tools(ctx context.Context) ([]llm.Tool, error) {
	tools, err := t.m.ListTools(ctx, t.id)
	if err != nil {
		return nil, err
	}
	out := make([]llm.Tool, 0, len(tools))
	for _, tool := range tools {
		out = append(out, llm.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.InputSchema,
		})
	}
	return out, nil
}

// Call runs a tool with JSON-encoded arguments.
func (t *Toolbox) Call(ctx context.Context, name, arguments string) (string, error) {
	var args map[string]interface{}
	if strings.TrimSpace(arguments) != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", fmt.Errorf("tool %s: invalid arguments: %w", name, err)
		}
	}
	return t.m.CallTool(ctx, t.id, name, args)
}

var _ llm.Toolbox = (*Toolbox)(nil)
