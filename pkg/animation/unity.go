package animation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-vhuman/internal/log"
)

// UnitySession is a lazily dialled WebSocket link to the Unity avatar.
// A failed write drops the connection so the next Send redials.
//
// The live connection is published through an atomic pointer, so Connected
// never waits on a dial or a write in progress.
type UnitySession struct {
	url     string
	timeout time.Duration

	conn    atomic.Pointer[websocket.Conn]
	dialMu  sync.Mutex // one dial at a time
	writeMu sync.Mutex // gorilla allows a single concurrent writer

	log *slog.Logger
}

// NewUnitySession creates a session for url. Nothing is dialled until the
// first Send or Connect.
func NewUnitySession(url string, timeout time.Duration) *UnitySession {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &UnitySession{
		url:     url,
		timeout: timeout,
		log:     log.Component("animation.unity"),
	}
}

// URL returns the configured endpoint.
func (u *UnitySession) URL() string { return u.url }

// Connect dials Unity if not already connected.
func (u *UnitySession) Connect(ctx context.Context) error {
	_, err := u.connection(ctx)
	return err
}

// connection returns the cached connection or dials a new one. Concurrent
// callers share a single dial.
func (u *UnitySession) connection(ctx context.Context) (*websocket.Conn, error) {
	if c := u.conn.Load(); c != nil {
		return c, nil
	}
	if u.url == "" {
		return nil, ErrUnityNotConfigured
	}

	u.dialMu.Lock()
	defer u.dialMu.Unlock()
	if c := u.conn.Load(); c != nil {
		return c, nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: u.timeout}
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	c, _, err := dialer.DialContext(ctx, u.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Unity: %w", err)
	}
	u.conn.Store(c)
	u.log.Info("connected to Unity", "url", u.url)

	go u.drain(c)
	return c, nil
}

// drop forgets c if it is still the live connection and closes it.
func (u *UnitySession) drop(c *websocket.Conn) {
	u.conn.CompareAndSwap(c, nil)
	c.Close()
}

// drain discards inbound frames so control messages are processed, and
// forgets the connection once it closes.
func (u *UnitySession) drain(c *websocket.Conn) {
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			u.drop(c)
			return
		}
	}
}

// Send marshals v and writes it as a text frame.
func (u *UnitySession) Send(ctx context.Context, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal animation: %w", err)
	}

	c, err := u.connection(ctx)
	if err != nil {
		return err
	}

	u.writeMu.Lock()
	defer u.writeMu.Unlock()

	c.SetWriteDeadline(time.Now().Add(u.timeout))
	if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
		u.log.Warn("unity write failed, dropping connection", "error", err)
		u.drop(c)
		return fmt.Errorf("failed to send animation data to Unity: %w", err)
	}
	return nil
}

// Connected reports whether a connection is currently cached.
func (u *UnitySession) Connected() bool {
	return u.conn.Load() != nil
}

// Close closes the connection if open.
func (u *UnitySession) Close() error {
	c := u.conn.Swap(nil)
	if c == nil {
		return nil
	}
	u.writeMu.Lock()
	c.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	u.writeMu.Unlock()
	return c.Close()
}
