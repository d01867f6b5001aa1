package animation

import (
	"context"
	"sync"
	"time"
)

// FrameFunc receives each sampled frame of a gesture. Returning false ends
// playback early.
type FrameFunc func(values map[string]float64, elapsed time.Duration) bool

// Player renders one gesture at a time at a fixed frame rate.
type Player struct {
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc // non-nil while playing
}

// NewPlayer ticks fps times per second; non-positive fps means 30.
func NewPlayer(fps int) *Player {
	if fps <= 0 {
		fps = 30
	}
	return &Player{interval: time.Second / time.Duration(fps)}
}

// Play blocks until g finishes, Stop is called, or ctx ends. Only the last
// case returns an error. A gesture that runs to the end always delivers
// its final keyframe.
func (p *Player) Play(ctx context.Context, g Gesture, frame FrameFunc) error {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return ErrAlreadyPlaying
	}
	playCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.cancel = nil
		p.mu.Unlock()
		cancel()
	}()

	tick := time.NewTicker(p.interval)
	defer tick.Stop()

	start, length := time.Now(), g.Length()
	for {
		select {
		case <-playCtx.Done():
			return ctx.Err()
		case <-tick.C:
		}
		elapsed := time.Since(start)
		if elapsed >= length {
			frame(g.Sample(g.Duration), length)
			return nil
		}
		if !frame(g.Sample(elapsed.Seconds()), elapsed) {
			return nil
		}
	}
}

// Stop ends the current gesture, if any.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}

// Playing reports whether a gesture is in progress.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}
