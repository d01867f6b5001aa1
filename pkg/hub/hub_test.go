package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
)

// fakeConn blocks reads until closed and records writes.
type fakeConn struct {
	mu      sync.Mutex
	written []Frame
	closed  chan struct{}
	once    sync.Once
	block   chan struct{} // when set, writes wait on it
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (f *fakeConn) SetReadLimit(int64) {}
func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) WriteMessage(mt int, data []byte) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch mt {
	case websocket.TextMessage:
		f.written = append(f.written, Frame{Data: data})
	case websocket.BinaryMessage:
		f.written = append(f.written, Frame{Binary: true, Data: data})
	}
	return nil
}

func (f *fakeConn) frames() []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Frame(nil), f.written...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test")
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	waitFor(t, h.IsRunning)
	t.Cleanup(cancel)
	return h, cancel
}

func TestHub_Broadcast(t *testing.T) {
	h, _ := startHub(t)

	conn := newFakeConn()
	o := Join(h, conn)
	if o == nil {
		t.Fatal("Join returned nil on running hub")
	}
	go o.Serve()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	if err := h.BroadcastJSON(map[string]string{"type": "animation_update"}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}
	h.BroadcastBinary([]byte{1, 2, 3})

	waitFor(t, func() bool { return len(conn.frames()) == 2 })
	msgs := conn.frames()
	if msgs[0].Binary || string(msgs[0].Data) != `{"type":"animation_update"}` {
		t.Errorf("unexpected first message %+v", msgs[0])
	}
	if !msgs[1].Binary {
		t.Errorf("second message should be binary")
	}
	if got := h.Stats().MessagesSent; got != 2 {
		t.Errorf("MessagesSent = %d, want 2", got)
	}

	conn.Close()
	waitFor(t, func() bool { return h.ClientCount() == 0 })
}

func TestHub_BroadcastJSONWithoutClients(t *testing.T) {
	h := New("idle")
	if err := h.BroadcastJSON(make(chan int)); err != nil {
		t.Errorf("no observers should skip encoding, got %v", err)
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	h, _ := startHub(t)

	conn := newFakeConn()
	conn.block = make(chan struct{})
	defer close(conn.block)

	o := Join(h, conn)
	go o.Serve()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	for i := 0; i < queueSize+10; i++ {
		h.Publish(Frame{Data: []byte(`{}`)})
		time.Sleep(100 * time.Microsecond)
	}

	waitFor(t, func() bool { return h.ClientCount() == 0 })
	if h.Stats().MessagesDropped == 0 {
		t.Error("expected a dropped message to be counted")
	}
}

func TestHub_Stop(t *testing.T) {
	h, cancel := startHub(t)

	conn := newFakeConn()
	o := Join(h, conn)
	go o.Serve()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	cancel()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	if h.IsRunning() || h.ClientCount() != 0 {
		t.Error("stopped hub should have no clients")
	}
	if Join(h, newFakeConn()) != nil {
		t.Error("Join on stopped hub should return nil")
	}
	select {
	case <-conn.closed:
	case <-time.After(2 * time.Second):
		t.Error("client connection should be closed on stop")
	}
}
