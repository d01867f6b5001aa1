package animation

import "sync"

// Smoother applies exponential smoothing to consecutive frames.
// out = prev*factor + cur*(1-factor). The first frame passes through.
type Smoother struct {
	mu     sync.Mutex
	factor float64
	prev   Blendshapes
}

// NewSmoother creates a smoother. factor is clamped to [0, 1].
func NewSmoother(factor float64) *Smoother {
	return &Smoother{factor: clamp01(factor)}
}

// Apply smooths cur against the previous output and returns a new map.
func (s *Smoother) Apply(cur Blendshapes) Blendshapes {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(Blendshapes, len(cur))
	for name, v := range cur {
		prev, ok := s.prev[name]
		if !ok || s.prev == nil {
			out[name] = clamp01(v)
			continue
		}
		out[name] = clamp01(prev*s.factor + v*(1-s.factor))
	}
	s.prev = out.Clone()
	return out
}

// Reset forgets the previous frame.
func (s *Smoother) Reset() {
	s.mu.Lock()
	s.prev = nil
	s.mu.Unlock()
}
