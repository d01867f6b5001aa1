package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/jsonrpc/transport/client/http/sse"
	"github.com/viant/jsonrpc/transport/client/stdio"
	protocolclient "github.com/viant/mcp-protocol/client"
	mcpschema "github.com/viant/mcp-protocol/schema"
	mcpclient "github.com/viant/mcp/client"

	"github.com/teslashibe/go-vhuman/internal/log"
)

// ClientVersion is reported to remote servers during initialisation.
const ClientVersion = "1.0.0"

// Tool describes a tool offered by a server.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"input_schema,omitempty"`
}

// Dialer opens a client for a registry entry. Clients that implement
// io.Closer are closed when the Manager forgets them.
type Dialer func(ctx context.Context, e Entry) (mcpclient.Interface, error)

// Manager keeps one client per registered server and proxies tool calls.
type Manager struct {
	registry *Registry
	dial     Dialer
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[string]mcpclient.Interface
	gen     map[string]uint64 // bumped by Forget to discard in-flight dials
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithDialer replaces the transport dialer. Tests use it to connect to an
// in-process server.
func WithDialer(d Dialer) ManagerOption {
	return func(m *Manager) { m.dial = d }
}

// NewManager creates a manager over registry.
func NewManager(registry *Registry, opts ...ManagerOption) *Manager {
	m := &Manager{
		registry: registry,
		dial:     dialRemote,
		clients:  make(map[string]mcpclient.Interface),
		gen:      make(map[string]uint64),
		logger:   log.Component("mcp.manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// remoteClient owns the transport behind a client so it can be released.
type remoteClient struct {
	*mcpclient.Client
	transport transport.Transport
	cancel    context.CancelFunc
}

func (r *remoteClient) Close() error {
	r.cancel()
	if c, ok := r.transport.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// dialRemote connects over SSE when the entry has a URL, otherwise it
// launches Command with Args and speaks MCP over its stdio.
func dialRemote(ctx context.Context, e Entry) (mcpclient.Interface, error) {
	handler := newClientHandler()
	rpc := mcpclient.NewHandler(handler)

	// The transport outlives ctx; it ends when the client is closed.
	streamCtx, cancel := context.WithCancel(context.Background())

	var t transport.Transport
	var err error
	switch {
	case e.URL != "":
		t, err = sse.New(streamCtx, e.URL, sse.WithHandler(rpc))
	case e.Command != "":
		t, err = stdio.New(e.Command, stdio.WithHandler(rpc), stdio.WithArguments(e.Args...))
	default:
		err = fmt.Errorf("%w: %s", ErrNoTransport, e.ID)
	}
	if err != nil {
		cancel()
		return nil, err
	}

	cli := &remoteClient{
		Client:    mcpclient.New(e.Name, ClientVersion, t, mcpclient.WithClientHandler(handler)),
		transport: t,
		cancel:    cancel,
	}
	if _, err := cli.Initialize(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return cli, nil
}

func closeClient(cli mcpclient.Interface) error {
	if c, ok := cli.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// client returns the cached client for id, dialling without holding the
// lock so a slow server does not stall calls to the others.
func (m *Manager) client(ctx context.Context, id string) (mcpclient.Interface, error) {
	for {
		e, err := m.registry.Get(id)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		if cli, ok := m.clients[id]; ok {
			m.mu.Unlock()
			return cli, nil
		}
		gen := m.gen[id]
		m.mu.Unlock()

		cli, err := m.dial(ctx, *e)
		if err != nil {
			return nil, fmt.Errorf("connect to %s: %w", e.Name, err)
		}

		m.mu.Lock()
		if cur, ok := m.clients[id]; ok {
			m.mu.Unlock()
			closeClient(cli)
			return cur, nil
		}
		if m.gen[id] != gen {
			// Forgotten while dialling: the entry may have changed.
			m.mu.Unlock()
			closeClient(cli)
			continue
		}
		m.clients[id] = cli
		m.mu.Unlock()

		m.logger.Info("connected to MCP server", "id", id, "name", e.Name, "url", e.URL, "command", e.Command)
		return cli, nil
	}
}

// Forget closes and drops the cached client for id, forcing a reconnect on
// next use.
func (m *Manager) Forget(id string) {
	m.mu.Lock()
	cli, ok := m.clients[id]
	delete(m.clients, id)
	m.gen[id]++
	m.mu.Unlock()

	if ok {
		if err := closeClient(cli); err != nil {
			m.logger.Debug("close MCP client", "id", id, "error", err)
		}
	}
}

// Close releases every cached client.
func (m *Manager) Close() error {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[string]mcpclient.Interface)
	for id := range clients {
		m.gen[id]++
	}
	m.mu.Unlock()

	var errs []error
	for _, cli := range clients {
		if err := closeClient(cli); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ListTools returns every tool the server offers, following pagination.
func (m *Manager) ListTools(ctx context.Context, id string) ([]Tool, error) {
	cli, err := m.client(ctx, id)
	if err != nil {
		return nil, err
	}

	var tools []Tool
	var cursor *string
	for {
		res, err := cli.ListTools(ctx, cursor)
		if err != nil {
			m.Forget(id)
			return nil, fmt.Errorf("list tools: %w", err)
		}
		for _, t := range res.Tools {
			tools = append(tools, toTool(t))
		}
		if res.NextCursor == nil || *res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}
	return tools, nil
}

// CallTool invokes a tool and returns its text content joined by newlines.
// A result flagged as an error is returned as an error.
func (m *Manager) CallTool(ctx context.Context, id, name string, args map[string]interface{}) (string, error) {
	cli, err := m.client(ctx, id)
	if err != nil {
		return "", err
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	res, err := cli.CallTool(ctx, &mcpschema.CallToolRequestParams{
		Name:      name,
		Arguments: mcpschema.CallToolRequestParamsArguments(args),
	})
	if err != nil {
		return "", fmt.Errorf("call %s: %w", name, err)
	}

	text := resultText(res)
	if res.IsError != nil && *res.IsError {
		return "", fmt.Errorf("tool %s failed: %s", name, text)
	}
	return text, nil
}

func resultText(res *mcpschema.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		if c.Type == "text" && c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func toTool(t mcpschema.Tool) Tool {
	out := Tool{Name: t.Name}
	if t.Description != nil {
		out.Description = *t.Description
	}
	schema := map[string]interface{}{"type": t.InputSchema.Type}
	if len(t.InputSchema.Properties) > 0 {
		schema["properties"] = t.InputSchema.Properties
	}
	if len(t.InputSchema.Required) > 0 {
		schema["required"] = t.InputSchema.Required
	}
	out.InputSchema = schema
	return out
}

// clientHandler answers server-initiated requests. The virtual human offers
// none of the optional client capabilities.
type clientHandler struct {
	implements map[string]bool
}

func newClientHandler() protocolclient.Handler {
	return &clientHandler{implements: make(map[string]bool)}
}

func (h *clientHandler) Init(_ context.Context, capabilities *mcpschema.ClientCapabilities) {
	if capabilities == nil {
		return
	}
	if capabilities.Elicitation != nil {
		h.implements[mcpschema.MethodElicitationCreate] = true
	}
	if capabilities.Roots != nil {
		h.implements[mcpschema.MethodRootsList] = true
	}
	if capabilities.UserInteraction != nil {
		h.implements[mcpschema.MethodInteractionCreate] = true
	}
	if capabilities.Sampling != nil {
		h.implements[mcpschema.MethodSamplingCreateMessage] = true
	}
}

func (*clientHandler) OnNotification(context.Context, *jsonrpc.Notification) {}

func (h *clientHandler) Implements(method string) bool {
	return h.implements[method]
}

func (*clientHandler) ListRoots(context.Context, *mcpschema.ListRootsRequestParams) (*mcpschema.ListRootsResult, *jsonrpc.Error) {
	return nil, jsonrpc.NewError(jsonrpc.MethodNotFound, "not implemented", nil)
}

func (*clientHandler) CreateMessage(context.Context, *mcpschema.CreateMessageRequestParams) (*mcpschema.CreateMessageResult, *jsonrpc.Error) {
	return nil, jsonrpc.NewError(jsonrpc.MethodNotFound, "not implemented", nil)
}

func (*clientHandler) Elicit(context.Context, *mcpschema.ElicitRequestParams) (*mcpschema.ElicitResult, *jsonrpc.Error) {
	return nil, jsonrpc.NewError(jsonrpc.MethodNotFound, "not implemented", nil)
}

func (*clientHandler) CreateUserInteraction(context.Context, *mcpschema.CreateUserInteractionRequestParams) (*mcpschema.CreateUserInteractionResult, *jsonrpc.Error) {
	return nil, jsonrpc.NewError(jsonrpc.MethodNotFound, "not implemented", nil)
}
