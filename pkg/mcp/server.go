package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/mcp"
	protocolclient "github.com/viant/mcp-protocol/client"
	mcpLogger "github.com/viant/mcp-protocol/logger"
	mcpschema "github.com/viant/mcp-protocol/schema"
	protoserver "github.com/viant/mcp-protocol/server"
	mcpclient "github.com/viant/mcp/client"

	"github.com/teslashibe/go-vhuman/internal/log"
	"github.com/teslashibe/go-vhuman/pkg/animation"
	"github.com/teslashibe/go-vhuman/pkg/avatar"
)

// Tool names exposed by Server.
const (
	ToolListAvatars        = "list_avatars"
	ToolGetAvatar          = "get_avatar"
	ToolTriggerGesture     = "trigger_gesture"
	ToolEmotionBlendshapes = "emotion_blendshapes"
)

// AvatarSource lists and resolves avatars.
type AvatarSource interface {
	List() []avatar.Avatar
	Get(id string) (*avatar.Avatar, error)
}

// GestureTrigger queues gestures for the avatar.
type GestureTrigger interface {
	TriggerGesture(ctx context.Context, gestureType string, intensity float64) (*animation.GestureResult, error)
}

// Server exposes the virtual human as MCP tools.
type Server struct {
	avatars  AvatarSource
	gestures GestureTrigger
}

// NewServer creates a tool server. gestures may be nil, in which case
// trigger_gesture is not offered.
func NewServer(avatars AvatarSource, gestures GestureTrigger) *Server {
	return &Server{avatars: avatars, gestures: gestures}
}

// NewHandler builds the protocol handler for one connection.
func (s *Server) NewHandler(_ context.Context, notifier transport.Notifier, l mcpLogger.Logger, cli protocolclient.Operations) (protoserver.Handler, error) {
	impl := protoserver.NewDefaultHandler(notifier, l, cli)

	impl.RegisterToolWithSchema(ToolListAvatars, "List the available avatars, presets first",
		mcpschema.ToolInputSchema{Type: "object", Properties: map[string]map[string]interface{}{}},
		nil, s.listAvatars)

	impl.RegisterToolWithSchema(ToolGetAvatar, "Get an avatar by id",
		mcpschema.ToolInputSchema{
			Type: "object",
			Properties: map[string]map[string]interface{}{
				"avatar_id": {"type": "string", "description": "avatar id, e.g. default or teacher"},
			},
			Required: []string{"avatar_id"},
		},
		nil, s.getAvatar)

	if s.gestures != nil {
		impl.RegisterToolWithSchema(ToolTriggerGesture, "Make the avatar perform a gesture",
			mcpschema.ToolInputSchema{
				Type: "object",
				Properties: map[string]map[string]interface{}{
					"gesture_type": {"type": "string", "enum": animation.Gestures()},
					"intensity":    {"type": "number", "minimum": 0, "maximum": 1},
				},
				Required: []string{"gesture_type"},
			},
			nil, s.triggerGesture)
	}

	impl.RegisterToolWithSchema(ToolEmotionBlendshapes, "Blendshape weights for an emotion",
		mcpschema.ToolInputSchema{
			Type: "object",
			Properties: map[string]map[string]interface{}{
				"emotion": {"type": "string", "description": "happy, sad, excited, angry or neutral"},
			},
			Required: []string{"emotion"},
		},
		nil, s.emotionBlendshapes)

	return impl, nil
}

// Listen builds the MCP HTTP server on addr. The caller runs
// ListenAndServe and closes it.
func (s *Server) Listen(ctx context.Context, addr string) (*http.Server, error) {
	srv, err := mcp.NewServer(s.NewHandler, nil)
	if err != nil {
		return nil, fmt.Errorf("create MCP server: %w", err)
	}
	return srv.HTTP(ctx, addr), nil
}

// Serve runs the MCP HTTP server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	httpSrv, err := s.Listen(ctx, addr)
	if err != nil {
		return err
	}
	logger := log.Component("mcp.server")

	errCh := make(chan error, 1)
	go func() {
		logger.Info("MCP server listening", "addr", httpSrv.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("MCP server shutting down")
		return httpSrv.Close()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// ServeStdio speaks MCP over the process's stdin and stdout until stdin
// closes. Nothing else may write to stdout meanwhile.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv, err := mcp.NewServer(s.NewHandler, nil)
	if err != nil {
		return fmt.Errorf("create MCP server: %w", err)
	}
	return srv.Stdio(ctx).ListenAndServe()
}

// AsClient returns a client wired directly to an in-process server.
func (s *Server) AsClient(ctx context.Context) (mcpclient.Interface, error) {
	srv, err := mcp.NewServer(s.NewHandler, nil)
	if err != nil {
		return nil, fmt.Errorf("create MCP server: %w", err)
	}
	return srv.AsClient(ctx), nil
}

func (s *Server) listAvatars(_ context.Context, _ *mcpschema.CallToolRequest) (*mcpschema.CallToolResult, *jsonrpc.Error) {
	type summary struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Personality string `json:"personality"`
		Custom      bool   `json:"custom"`
	}
	list := s.avatars.List()
	out := make([]summary, 0, len(list))
	for _, a := range list {
		out = append(out, summary{ID: a.ID, Name: a.Name, Personality: a.Personality, Custom: a.Custom})
	}
	return jsonResult(out)
}

func (s *Server) getAvatar(_ context.Context, req *mcpschema.CallToolRequest) (*mcpschema.CallToolResult, *jsonrpc.Error) {
	id, _ := req.Params.Arguments["avatar_id"].(string)
	if id == "" {
		return nil, jsonrpc.NewError(jsonrpc.InvalidParams, "avatar_id is required", nil)
	}
	a, err := s.avatars.Get(id)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(a)
}

func (s *Server) triggerGesture(ctx context.Context, req *mcpschema.CallToolRequest) (*mcpschema.CallToolResult, *jsonrpc.Error) {
	gesture, _ := req.Params.Arguments["gesture_type"].(string)
	intensity := 1.0
	if v, ok := number(req.Params.Arguments["intensity"]); ok {
		intensity = v
	}

	res, err := s.gestures.TriggerGesture(ctx, gesture, intensity)
	if err != nil {
		if errors.Is(err, animation.ErrGestureRequired) {
			return nil, jsonrpc.NewError(jsonrpc.InvalidParams, err.Error(), nil)
		}
		return nil, jsonrpc.NewError(jsonrpc.InternalError, err.Error(), nil)
	}
	return jsonResult(res)
}

func (s *Server) emotionBlendshapes(_ context.Context, req *mcpschema.CallToolRequest) (*mcpschema.CallToolResult, *jsonrpc.Error) {
	emotion, _ := req.Params.Arguments["emotion"].(string)
	if emotion == "" {
		emotion = "neutral"
	}
	return jsonResult(map[string]interface{}{
		"emotion":     emotion,
		"blendshapes": animation.DefaultBlendshapes(emotion),
	})
}

func jsonResult(v interface{}) (*mcpschema.CallToolResult, *jsonrpc.Error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, jsonrpc.NewError(jsonrpc.InternalError, err.Error(), nil)
	}
	return &mcpschema.CallToolResult{Content: []mcpschema.CallToolResultContentElem{{
		Type: "text",
		Text: string(data),
	}}}, nil
}

func errorResult(msg string) *mcpschema.CallToolResult {
	isErr := true
	return &mcpschema.CallToolResult{
		IsError: &isErr,
		Content: []mcpschema.CallToolResultContentElem{{Type: "text", Text: msg}},
	}
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
