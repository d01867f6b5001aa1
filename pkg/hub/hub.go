// Package hub fans animation frames out to observer dashboards over
// websockets. One goroutine (Run) owns the observer set; observers and
// publishers talk to it over channels.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-vhuman/internal/log"
)

// Frame is one websocket payload.
type Frame struct {
	Binary bool
	Data   []byte
}

// Stats are the counters exported on /metrics.
type Stats struct {
	Clients         int    `json:"clients"`
	MessagesSent    uint64 `json:"messages_sent"`
	MessagesDropped uint64 `json:"messages_dropped"`
}

// Hub is a broadcast group. The zero value is not usable; call New.
type Hub struct {
	frames chan Frame
	joins  chan *Observer
	leaves chan *Observer
	done   chan struct{}

	mu        sync.RWMutex
	observers map[*Observer]struct{}

	running atomic.Bool
	sent    atomic.Uint64
	dropped atomic.Uint64
	log     *slog.Logger
}

// New creates a hub. name tags its log lines; nothing is delivered until
// Run is started.
func New(name string) *Hub {
	return &Hub{
		frames:    make(chan Frame, queueSize),
		joins:     make(chan *Observer),
		leaves:    make(chan *Observer),
		done:      make(chan struct{}),
		observers: make(map[*Observer]struct{}),
		log:       log.Component("hub").With("hub", name),
	}
}

// Run delivers frames until ctx ends, then disconnects every observer.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer h.stop()

	for {
		select {
		case <-ctx.Done():
			return
		case o := <-h.joins:
			h.log.Info("observer connected", "clients", h.add(o))
		case o := <-h.leaves:
			h.log.Info("observer disconnected", "clients", h.remove(o))
		case f := <-h.frames:
			h.deliver(f)
		}
	}
}

func (h *Hub) add(o *Observer) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observers[o] = struct{}{}
	return len(h.observers)
}

// remove closes o's queue once, however often it is removed.
func (h *Hub) remove(o *Observer) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(o)
	return len(h.observers)
}

// drop requires h.mu.
func (h *Hub) drop(o *Observer) {
	if _, ok := h.observers[o]; ok {
		delete(h.observers, o)
		close(o.queue)
	}
}

// deliver never waits on an observer. One whose queue is full is cut off.
func (h *Hub) deliver(f Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for o := range h.observers {
		select {
		case o.queue <- f:
			h.sent.Add(1)
		default:
			h.drop(o)
			h.dropped.Add(1)
			h.log.Warn("observer too slow, disconnecting")
		}
	}
}

func (h *Hub) stop() {
	h.running.Store(false)
	h.mu.Lock()
	for o := range h.observers {
		h.drop(o)
	}
	h.mu.Unlock()
	close(h.done)
}

// Publish queues f without blocking. A full queue drops the frame.
func (h *Hub) Publish(f Frame) {
	select {
	case h.frames <- f:
	default:
		h.dropped.Add(1)
		h.log.Debug("publish queue full, frame dropped")
	}
}

// BroadcastJSON publishes v as a text frame. With nobody watching it does
// not even encode.
func (h *Hub) BroadcastJSON(v any) error {
	if h.ClientCount() == 0 {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Publish(Frame{Data: data})
	return nil
}

// BroadcastBinary publishes data as a binary frame.
func (h *Hub) BroadcastBinary(data []byte) {
	h.Publish(Frame{Binary: true, Data: data})
}

// ClientCount returns the number of connected observers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

// IsRunning reports whether Run is delivering frames.
func (h *Hub) IsRunning() bool { return h.running.Load() }

// Done is closed after Run returns.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Stats returns a snapshot of the delivery counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Clients:         h.ClientCount(),
		MessagesSent:    h.sent.Load(),
		MessagesDropped: h.dropped.Load(),
	}
}
