// Package session tracks live websocket connections: chat sessions and
// animation clients.
package session

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/teslashibe/go-vhuman/internal/log"
	"github.com/teslashibe/go-vhuman/pkg/protocol"
)

// Kind distinguishes connection roles.
type Kind string

const (
	KindChat      Kind = "chat"
	KindAnimation Kind = "animation"
)

// ErrClosed is returned by Send after the connection was removed.
var ErrClosed = errors.New("session: connection closed")

// Conn is the write side of a websocket. *websocket.Conn satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

var _ Conn = (*websocket.Conn)(nil)

// Connection is one registered websocket.
type Connection struct {
	ID        string
	Kind      Kind
	Connected time.Time

	conn     Conn
	registry *Registry

	mu       sync.Mutex
	lastSeen time.Time
	closed   bool
}

// Send encodes v as JSON and writes it. Writes are serialized.
func (c *Connection) Send(v interface{}) error {
	data, err := protocol.Encode(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	c.registry.sent.Add(1)
	return nil
}

// Received records an inbound message.
func (c *Connection) Received() {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()
	c.registry.received.Add(1)
}

// LastSeen returns the time of the last inbound message.
func (c *Connection) LastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.conn.Close()
	}
}

// Info describes a connection.
type Info struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// Stats are counters for /metrics.
type Stats struct {
	Chat             int    `json:"chat_connections"`
	Animation        int    `json:"animation_connections"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
}

// Registry holds live connections keyed by ID.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection

	received atomic.Uint64
	sent     atomic.Uint64

	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]*Connection),
		logger: log.Component("session"),
	}
}

// Add registers conn under id, generating one when empty. A previous
// connection with the same ID is closed and replaced.
func (r *Registry) Add(kind Kind, id string, conn Conn) *Connection {
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now()
	c := &Connection{
		ID:        id,
		Kind:      kind,
		Connected: now,
		conn:      conn,
		registry:  r,
		lastSeen:  now,
	}

	r.mu.Lock()
	prev := r.conns[id]
	r.conns[id] = c
	count := len(r.conns)
	r.mu.Unlock()

	if prev != nil {
		prev.close()
		r.logger.Info("replaced connection", "id", id, "kind", kind)
	}
	r.logger.Info("connection opened", "id", id, "kind", kind, "total", count)
	return c
}

// Remove unregisters c and closes it. A newer connection that replaced c
// under the same ID is left alone.
func (r *Registry) Remove(c *Connection) {
	r.mu.Lock()
	if cur, ok := r.conns[c.ID]; ok && cur == c {
		delete(r.conns, c.ID)
	}
	count := len(r.conns)
	r.mu.Unlock()

	c.close()
	r.logger.Info("connection closed", "id", c.ID, "kind", c.Kind, "total", count)
}

// Get returns the connection with id, or nil.
func (r *Registry) Get(id string) *Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[id]
}

func (r *Registry) snapshot(kind Kind) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		if kind == "" || c.Kind == kind {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Connected.Before(out[j].Connected) })
	return out
}

// List describes the connections of kind, oldest first. An empty kind
// lists all.
func (r *Registry) List(kind Kind) []Info {
	conns := r.snapshot(kind)
	out := make([]Info, 0, len(conns))
	for _, c := range conns {
		out = append(out, Info{ID: c.ID, Kind: c.Kind, Connected: c.Connected, LastSeen: c.LastSeen()})
	}
	return out
}

// Count returns the number of connections of kind. An empty kind counts
// all.
func (r *Registry) Count(kind Kind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if kind == "" {
		return len(r.conns)
	}
	n := 0
	for _, c := range r.conns {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// Broadcast sends v to every connection of kind and returns how many
// writes succeeded.
func (r *Registry) Broadcast(kind Kind, v interface{}) int {
	n := 0
	for _, c := range r.snapshot(kind) {
		if err := c.Send(v); err != nil {
			r.logger.Debug("broadcast failed", "id", c.ID, "error", err)
			continue
		}
		n++
	}
	return n
}

// Stats returns connection counts and message counters.
func (r *Registry) Stats() Stats {
	return Stats{
		Chat:             r.Count(KindChat),
		Animation:        r.Count(KindAnimation),
		MessagesReceived: r.received.Load(),
		MessagesSent:     r.sent.Load(),
	}
}

// CloseAll closes and removes every connection.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*Connection)
	r.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}
