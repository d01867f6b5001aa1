package animation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakeSender struct {
	mu        sync.Mutex
	sent      []interface{}
	err       error
	connected bool
}

func (f *fakeSender) Send(_ context.Context, v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, v)
	return nil
}

func (f *fakeSender) Connected() bool { return f.connected }
func (f *fakeSender) Close() error    { return nil }

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeHub struct {
	mu   sync.Mutex
	msgs []interface{}
}

func (h *fakeHub) BroadcastJSON(v interface{}) error {
	h.mu.Lock()
	h.msgs = append(h.msgs, v)
	h.mu.Unlock()
	return nil
}

func TestService_ProcessFacial(t *testing.T) {
	svc := New(DefaultConfig(), WithSender(&fakeSender{}))

	b := svc.ProcessFacial("", make([]Landmark, 10), "happy")
	if b["mouthSmile_L"] != 0.5 {
		t.Errorf("short mesh should use defaults, smile=%v", b["mouthSmile_L"])
	}

	b = svc.ProcessFacial("", make([]Landmark, FaceMeshLandmarks), "happy")
	if b["mouthSmile_L"] != 0.8 {
		t.Errorf("full mesh should overlay happy, smile=%v", b["mouthSmile_L"])
	}
	if svc.Streams() != 0 {
		t.Errorf("anonymous samples should not keep smoothing state")
	}
}

// openMouth returns a full mesh with the jaw fully open.
func openMouth() []Landmark {
	points := make([]Landmark, FaceMeshLandmarks)
	points[mouthIndices[0]].Y = openMouthRange
	return points
}

func TestService_ProcessFacialStreams(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Smoothing = 0.5
	svc := New(cfg, WithSender(&fakeSender{}))

	closed := make([]Landmark, FaceMeshLandmarks)
	svc.ProcessFacial("a", closed, "neutral")

	b := svc.ProcessFacial("b", openMouth(), "neutral")
	if b["jawOpen"] != 1 {
		t.Errorf("first frame of a new stream should pass through, jawOpen=%v", b["jawOpen"])
	}

	b = svc.ProcessFacial("a", openMouth(), "neutral")
	if b["jawOpen"] != 0.5 {
		t.Errorf("stream a should blend with its own previous frame, jawOpen=%v", b["jawOpen"])
	}
	if svc.Streams() != 2 {
		t.Errorf("expected 2 streams, got %d", svc.Streams())
	}

	svc.ReleaseStream("a")
	b = svc.ProcessFacial("a", openMouth(), "neutral")
	if b["jawOpen"] != 1 {
		t.Errorf("released stream should start fresh, jawOpen=%v", b["jawOpen"])
	}
}

func TestService_StreamCap(t *testing.T) {
	svc := New(DefaultConfig(), WithSender(&fakeSender{}))
	for i := 0; i < maxStreams+10; i++ {
		svc.ProcessFacial(fmt.Sprintf("s%d", i), openMouth(), "")
	}
	if n := svc.Streams(); n > maxStreams {
		t.Errorf("streams not bounded: %d", n)
	}
}

func TestService_Update(t *testing.T) {
	sender := &fakeSender{}
	hub := &fakeHub{}
	svc := New(DefaultConfig(), WithSender(sender), WithBroadcaster(hub))

	frame, err := svc.Update(context.Background(), UpdateRequest{
		Blendshapes: Blendshapes{"jawOpen": 1.7, "eyeBlink_L": -1},
		Gestures:    []string{"nod"},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if frame.Blendshapes["jawOpen"] != 1 || frame.Blendshapes["eyeBlink_L"] != 0 {
		t.Errorf("weights not clamped: %v", frame.Blendshapes)
	}
	if frame.Emotion != "neutral" || frame.FPS != 30 {
		t.Errorf("unexpected frame %+v", frame)
	}
	if sender.count() != 1 || len(hub.msgs) != 1 {
		t.Errorf("expected one send and one broadcast, got %d/%d", sender.count(), len(hub.msgs))
	}
	if svc.Stats().Forwarded != 1 {
		t.Errorf("expected forwarded=1, got %d", svc.Stats().Forwarded)
	}
}

func TestService_UpdateUnityDown(t *testing.T) {
	hub := &fakeHub{}
	svc := New(DefaultConfig(), WithSender(&fakeSender{err: errors.New("dial refused")}), WithBroadcaster(hub))

	_, err := svc.Update(context.Background(), UpdateRequest{Blendshapes: Blendshapes{}})
	if !errors.Is(err, ErrUnityUnavailable) {
		t.Fatalf("expected ErrUnityUnavailable, got %v", err)
	}
	if svc.Stats().SendFailures != 1 {
		t.Errorf("expected one send failure, got %d", svc.Stats().SendFailures)
	}
	if len(hub.msgs) != 1 {
		t.Errorf("observers should still get the frame, got %d", len(hub.msgs))
	}
}

// orderedSender records sends into a log shared with orderedHub.
type orderedSender struct{ events *[]string }

func (o orderedSender) Send(context.Context, interface{}) error {
	*o.events = append(*o.events, "unity")
	return nil
}
func (o orderedSender) Connected() bool { return true }
func (o orderedSender) Close() error    { return nil }

type orderedHub struct{ events *[]string }

func (o orderedHub) BroadcastJSON(interface{}) error {
	*o.events = append(*o.events, "observers")
	return nil
}

func TestService_ForwardOrder(t *testing.T) {
	var events []string
	svc := New(DefaultConfig(), WithSender(orderedSender{&events}), WithBroadcaster(orderedHub{&events}))

	if err := svc.Forward(context.Background(), map[string]string{"type": "animation_update"}); err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if strings.Join(events, ",") != "unity,observers" {
		t.Errorf("expected Unity before observers, got %v", events)
	}
}

func TestService_TriggerGesture(t *testing.T) {
	t.Run("demo mode queues without forwarding", func(t *testing.T) {
		sender := &fakeSender{}
		cfg := DefaultConfig()
		cfg.DemoMode = true
		svc := New(cfg, WithSender(sender))

		res, err := svc.TriggerGesture(context.Background(), "wave", 1)
		if err != nil {
			t.Fatalf("TriggerGesture: %v", err)
		}
		if res.Mode != ModeDemo || res.Status != StatusCreated {
			t.Errorf("unexpected result %+v", res)
		}
		if !strings.HasPrefix(res.ID, "demo_gesture_") {
			t.Errorf("unexpected demo id %s", res.ID)
		}
		if sender.count() != 0 {
			t.Error("demo mode should not forward")
		}
	})

	t.Run("below threshold is suppressed", func(t *testing.T) {
		sender := &fakeSender{}
		svc := New(DefaultConfig(), WithSender(sender))

		res, _ := svc.TriggerGesture(context.Background(), "nod", 0.5)
		if res.Status != StatusSuppressed || res.Mode != ModeProduction {
			t.Errorf("unexpected result %+v", res)
		}
		if sender.count() != 0 {
			t.Error("suppressed gesture should not be forwarded")
		}
		if svc.Status().QueueLength != 1 {
			t.Error("suppressed gesture should still be queued")
		}
	})

	t.Run("forward failure reports error", func(t *testing.T) {
		svc := New(DefaultConfig(), WithSender(&fakeSender{err: errors.New("broken pipe")}))

		res, _ := svc.TriggerGesture(context.Background(), "nod", 0.9)
		if res.Status != StatusError || res.Error == "" {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("forwarded", func(t *testing.T) {
		sender := &fakeSender{}
		svc := New(DefaultConfig(), WithSender(sender))

		res, _ := svc.TriggerGesture(context.Background(), "point", 0.8)
		if res.Status != StatusCreated || sender.count() != 1 {
			t.Errorf("expected forwarded gesture, got %+v (sent %d)", res, sender.count())
		}
	})

	t.Run("empty type", func(t *testing.T) {
		svc := New(DefaultConfig(), WithSender(&fakeSender{}))
		if _, err := svc.TriggerGesture(context.Background(), "", 1); !errors.Is(err, ErrGestureRequired) {
			t.Errorf("expected ErrGestureRequired, got %v", err)
		}
	})
}

func TestService_QueueCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DemoMode = true
	svc := New(cfg, WithSender(&fakeSender{}))

	for i := 0; i < DefaultQueueSize+5; i++ {
		svc.TriggerGesture(context.Background(), "nod", 1)
	}

	q := svc.Queue()
	if len(q) != DefaultQueueSize {
		t.Fatalf("expected %d entries, got %d", DefaultQueueSize, len(q))
	}
	if q[0].ID != "demo_gesture_6" {
		t.Errorf("expected oldest entries dropped, first=%s", q[0].ID)
	}
}

func TestService_Status(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DemoMode = true
	svc := New(cfg, WithSender(&fakeSender{connected: true}))

	st := svc.Status()
	if !st.DemoMode || !st.WebSocketConnected || !st.Healthy {
		t.Errorf("unexpected status %+v", st)
	}
}

var upgrader = websocket.Upgrader{}

func newUnityServer(t *testing.T, received chan<- []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- data
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestUnitySession_LazyDial(t *testing.T) {
	received := make(chan []byte, 1)
	srv := newUnityServer(t, received)

	u := NewUnitySession("ws"+strings.TrimPrefix(srv.URL, "http"), time.Second)
	defer u.Close()

	if u.Connected() {
		t.Fatal("should not dial before first send")
	}
	if err := u.Send(context.Background(), map[string]string{"type": "animation_update"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !u.Connected() {
		t.Error("expected cached connection after send")
	}

	select {
	case data := <-received:
		if !strings.Contains(string(data), "animation_update") {
			t.Errorf("unexpected payload %s", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("unity server received nothing")
	}
}

func TestUnitySession_RedialsAfterPeerClose(t *testing.T) {
	var upgrades atomic.Int32
	received := make(chan []byte, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := upgrades.Add(1)
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- data
			if n == 1 {
				// Unity restarts after the first frame.
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "restart"))
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	u := NewUnitySession("ws"+strings.TrimPrefix(srv.URL, "http"), time.Second)
	defer u.Close()

	if err := u.Send(context.Background(), "first"); err != nil {
		t.Fatalf("first Send: %v", err)
	}
	<-received

	deadline := time.Now().Add(2 * time.Second)
	for u.Connected() {
		if time.Now().After(deadline) {
			t.Fatal("closed connection still cached")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := u.Send(context.Background(), "second"); err != nil {
		t.Fatalf("second Send: %v", err)
	}
	select {
	case data := <-received:
		if string(data) != `"second"` {
			t.Errorf("unexpected payload %s", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("redialled connection received nothing")
	}
	if n := upgrades.Load(); n != 2 {
		t.Errorf("expected 2 upgrades, got %d", n)
	}
}

func TestUnitySession_PendingDialDoesNotBlockStatus(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		// Accept the TCP connection but never answer the handshake.
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	cfg := DefaultConfig()
	cfg.UnityURL = "ws://" + ln.Addr().String()
	cfg.UnityTimeout = 3 * time.Second
	svc := New(cfg)
	defer svc.Close()

	go svc.Update(context.Background(), UpdateRequest{})

	select {
	case c := <-accepted:
		defer c.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("dial never reached the listener")
	}

	done := make(chan Status, 1)
	go func() { done <- svc.Status() }()
	select {
	case st := <-done:
		if st.WebSocketConnected {
			t.Error("pending dial reported as connected")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Status blocked behind a pending Unity dial")
	}
}

func TestUnitySession_DialFailure(t *testing.T) {
	u := NewUnitySession("ws://127.0.0.1:1", 200*time.Millisecond)
	if err := u.Send(context.Background(), "x"); err == nil {
		t.Fatal("expected dial error")
	}
	if u.Connected() {
		t.Error("failed dial must not cache a connection")
	}

	empty := NewUnitySession("", time.Second)
	if err := empty.Send(context.Background(), "x"); !errors.Is(err, ErrUnityNotConfigured) {
		t.Errorf("expected ErrUnityNotConfigured, got %v", err)
	}
}
