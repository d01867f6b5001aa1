package animation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-vhuman/internal/log"
	"github.com/teslashibe/go-vhuman/pkg/protocol"
)

// DefaultQueueSize is the number of gesture entries kept.
const DefaultQueueSize = 100

const (
	// maxStreams caps the number of facial streams smoothed at once.
	maxStreams = 256

	// streamIdle is how long an unused stream keeps its smoothing state.
	streamIdle = 5 * time.Minute
)

// Gesture results.
const (
	StatusCreated    = "created"
	StatusSuppressed = "suppressed"
	StatusError      = "error"

	ModeDemo       = "demo"
	ModeProduction = "production"
)

// Sender delivers frames to the avatar.
type Sender interface {
	Send(ctx context.Context, v interface{}) error
	Connected() bool
	Close() error
}

// Broadcaster fans frames out to observers.
type Broadcaster interface {
	BroadcastJSON(v interface{}) error
}

// Config holds animation service settings.
type Config struct {
	FPS                     int
	Smoothing               float64
	GestureTriggerThreshold float64
	QueueSize               int

	UnityURL     string
	UnityTimeout time.Duration

	// DemoMode disables gesture forwarding. Explicit updates still try
	// to reach Unity.
	DemoMode bool
}

// DefaultConfig returns the default animation settings.
func DefaultConfig() Config {
	return Config{
		FPS:                     30,
		Smoothing:               0.1,
		GestureTriggerThreshold: 0.8,
		QueueSize:               DefaultQueueSize,
		UnityTimeout:            30 * time.Second,
	}
}

// Frame is a complete animation update for Unity.
type Frame struct {
	Type        protocol.MessageType `json:"type"`
	Timestamp   float64              `json:"timestamp"`
	Blendshapes Blendshapes          `json:"blendshapes"`
	Emotion     string               `json:"emotion"`
	Gestures    []string             `json:"gestures"`
	FPS         int                  `json:"fps"`
}

// UpdateRequest is an explicit animation update.
type UpdateRequest struct {
	Blendshapes Blendshapes `json:"blendshapes"`
	Gestures    []string    `json:"gestures"`
	Emotion     string      `json:"emotion"`
	Duration    float64     `json:"duration"`
}

// QueueEntry records a triggered gesture.
type QueueEntry struct {
	ID        string    `json:"animation_id"`
	Type      string    `json:"type"`
	Gesture   Gesture   `json:"gesture"`
	Status    string    `json:"status"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
}

// GestureResult is returned by TriggerGesture.
type GestureResult struct {
	ID        string  `json:"animation_id"`
	Type      string  `json:"type"`
	Gesture   string  `json:"gesture"`
	Intensity float64 `json:"intensity"`
	Status    string  `json:"status"`
	Mode      string  `json:"mode"`
	Error     string  `json:"error,omitempty"`
	Animation Gesture `json:"animation"`
}

// Status summarises the service.
type Status struct {
	QueueLength        int  `json:"queue_length"`
	WebSocketConnected bool `json:"websocket_connected"`
	DemoMode           bool `json:"demo_mode"`
	Healthy            bool `json:"healthy"`
}

// Stats are counters for /metrics.
type Stats struct {
	Forwarded    uint64
	SendFailures uint64
	Gestures     uint64
}

// Option configures a Service.
type Option func(*Service)

// WithSender replaces the Unity link.
func WithSender(s Sender) Option {
	return func(svc *Service) { svc.unity = s }
}

// WithBroadcaster sets the observer hub.
func WithBroadcaster(b Broadcaster) Option {
	return func(svc *Service) { svc.hub = b }
}

type stream struct {
	smoother *Smoother
	used     time.Time
}

// Service turns tracking data into animation frames and forwards them.
type Service struct {
	cfg    Config
	unity  Sender
	hub    Broadcaster
	player *Player
	log    *slog.Logger

	mu    sync.Mutex
	queue []QueueEntry
	seq   int

	streamMu sync.Mutex
	streams  map[string]*stream

	forwarded    atomic.Uint64
	sendFailures atomic.Uint64
	gestures     atomic.Uint64
}

// New creates the animation service.
func New(cfg Config, opts ...Option) *Service {
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	s := &Service{
		cfg:     cfg,
		player:  NewPlayer(cfg.FPS),
		log:     log.Component("animation"),
		streams: make(map[string]*stream),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.unity == nil {
		s.unity = NewUnitySession(cfg.UnityURL, cfg.UnityTimeout)
	}
	if cfg.DemoMode {
		s.log.Warn("Unity websocket not configured, running in demo mode")
	}
	return s
}

// Config returns the service configuration.
func (s *Service) Config() Config { return s.cfg }

// DemoMode reports whether gesture forwarding is disabled.
func (s *Service) DemoMode() bool { return s.cfg.DemoMode }

// ProcessFacial converts landmarks to blendshapes with the emotion applied.
// Frames are smoothed against earlier frames of the same stream; an empty
// stream ID smooths nothing. Incomplete meshes fall back to
// DefaultBlendshapes.
func (s *Service) ProcessFacial(streamID string, landmarks []Landmark, emotion string) Blendshapes {
	if len(landmarks) < FaceMeshLandmarks {
		return DefaultBlendshapes(emotion)
	}
	b := ApplyEmotion(FromLandmarks(landmarks), emotion)
	if streamID == "" {
		return b.Clone().Clamp()
	}
	return s.smootherFor(streamID).Apply(b)
}

func (s *Service) smootherFor(id string) *Smoother {
	now := time.Now()

	s.streamMu.Lock()
	defer s.streamMu.Unlock()

	if st, ok := s.streams[id]; ok {
		st.used = now
		return st.smoother
	}
	if len(s.streams) >= maxStreams {
		s.evictLocked(now)
	}
	st := &stream{smoother: NewSmoother(s.cfg.Smoothing), used: now}
	s.streams[id] = st
	return st.smoother
}

// evictLocked drops idle streams, or the least recently used one when none
// are idle.
func (s *Service) evictLocked(now time.Time) {
	var oldest string
	for id, st := range s.streams {
		if now.Sub(st.used) > streamIdle {
			delete(s.streams, id)
			continue
		}
		if oldest == "" || st.used.Before(s.streams[oldest].used) {
			oldest = id
		}
	}
	if len(s.streams) >= maxStreams && oldest != "" {
		delete(s.streams, oldest)
	}
}

// ReleaseStream forgets the smoothing state of a facial stream.
func (s *Service) ReleaseStream(id string) {
	s.streamMu.Lock()
	delete(s.streams, id)
	s.streamMu.Unlock()
}

// Streams returns the number of facial streams with smoothing state.
func (s *Service) Streams() int {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	return len(s.streams)
}

// CompleteAnimation assembles a frame. Weights are clamped to [0, 1].
func (s *Service) CompleteAnimation(b Blendshapes, gestures []string, emotion string) Frame {
	if emotion == "" {
		emotion = "neutral"
	}
	if gestures == nil {
		gestures = []string{}
	}
	if b == nil {
		b = Blendshapes{}
	}
	return Frame{
		Type:        protocol.TypeAnimationUpdate,
		Timestamp:   protocol.Now(),
		Blendshapes: b.Clone().Clamp(),
		Emotion:     emotion,
		Gestures:    gestures,
		FPS:         s.cfg.FPS,
	}
}

// Forward sends v to Unity, then broadcasts it to observers. Observers
// receive the frame even when Unity could not be reached.
func (s *Service) Forward(ctx context.Context, v interface{}) error {
	err := s.unity.Send(ctx, v)
	if err != nil {
		s.sendFailures.Add(1)
	} else {
		s.forwarded.Add(1)
	}
	if s.hub != nil {
		if berr := s.hub.BroadcastJSON(v); berr != nil {
			s.log.Debug("broadcast failed", "error", berr)
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnityUnavailable, err)
	}
	return nil
}

// Update builds a frame from req and forwards it. ErrUnityUnavailable is
// returned when Unity cannot be reached.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*Frame, error) {
	frame := s.CompleteAnimation(req.Blendshapes, req.Gestures, req.Emotion)
	if err := s.Forward(ctx, frame); err != nil {
		return &frame, err
	}
	return &frame, nil
}

// ForwardGesture builds a gesture and sends it directly, bypassing the
// queue and threshold.
func (s *Service) ForwardGesture(ctx context.Context, gestureType string, intensity float64) (Gesture, error) {
	g := GestureFor(gestureType, intensity)
	return g, s.Forward(ctx, g)
}

// TriggerGesture queues a gesture. It is forwarded to Unity only outside
// demo mode and when intensity reaches the trigger threshold.
func (s *Service) TriggerGesture(ctx context.Context, gestureType string, intensity float64) (*GestureResult, error) {
	if gestureType == "" {
		return nil, ErrGestureRequired
	}
	g := GestureFor(gestureType, intensity)
	s.gestures.Add(1)

	res := &GestureResult{
		Type:      "gesture",
		Gesture:   gestureType,
		Intensity: g.Intensity,
		Status:    StatusCreated,
		Mode:      ModeProduction,
		Animation: g,
	}

	switch {
	case s.cfg.DemoMode:
		res.Mode = ModeDemo
	case g.Intensity < s.cfg.GestureTriggerThreshold:
		res.Status = StatusSuppressed
	default:
		if err := s.Forward(ctx, g); err != nil {
			res.Status = StatusError
			res.Error = err.Error()
		} else if g.Known() && s.hub != nil {
			go s.playForObservers(g)
		}
	}

	res.ID = s.enqueue(g, res.Status, res.Mode)
	return res, nil
}

// playForObservers streams interpolated gesture frames to the hub.
func (s *Service) playForObservers(g Gesture) {
	ctx, cancel := context.WithTimeout(context.Background(), g.Length()+time.Second)
	defer cancel()

	err := s.player.Play(ctx, g, func(values map[string]float64, elapsed time.Duration) bool {
		s.hub.BroadcastJSON(map[string]interface{}{
			"type":         protocol.TypeGesture,
			"gesture_type": g.Type,
			"values":       values,
			"elapsed":      elapsed.Seconds(),
		})
		return true
	})
	if err != nil && !errors.Is(err, ErrAlreadyPlaying) && !errors.Is(err, context.DeadlineExceeded) {
		s.log.Debug("gesture playback ended", "error", err)
	}
}

func (s *Service) enqueue(g Gesture, status, mode string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := uuid.New().String()
	if mode == ModeDemo {
		id = fmt.Sprintf("demo_gesture_%d", s.seq)
	}
	s.queue = append(s.queue, QueueEntry{
		ID:        id,
		Type:      "gesture",
		Gesture:   g,
		Status:    status,
		Mode:      mode,
		CreatedAt: time.Now(),
	})
	if over := len(s.queue) - s.cfg.QueueSize; over > 0 {
		s.queue = append([]QueueEntry(nil), s.queue[over:]...)
	}
	return id
}

// Queue returns a copy of the gesture queue, oldest first.
func (s *Service) Queue() []QueueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]QueueEntry, len(s.queue))
	copy(out, s.queue)
	return out
}

// Status reports queue length and link state.
func (s *Service) Status() Status {
	s.mu.Lock()
	n := len(s.queue)
	s.mu.Unlock()
	return Status{
		QueueLength:        n,
		WebSocketConnected: s.unity.Connected(),
		DemoMode:           s.cfg.DemoMode,
		Healthy:            true,
	}
}

// Stats returns forwarding counters.
func (s *Service) Stats() Stats {
	return Stats{
		Forwarded:    s.forwarded.Load(),
		SendFailures: s.sendFailures.Load(),
		Gestures:     s.gestures.Load(),
	}
}

// Close stops playback and closes the Unity link.
func (s *Service) Close() error {
	s.player.Stop()
	return s.unity.Close()
}
