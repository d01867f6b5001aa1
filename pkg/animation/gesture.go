package animation

import (
	"encoding/json"
	"time"
)

// UnknownGesture is the type reported for unrecognised gestures.
const UnknownGesture = "unknown"

// Gesture is a body animation made of one or more keyframe channels.
// Keyframes are evenly spaced over Duration.
type Gesture struct {
	Type      string               `json:"gesture_type"`
	Intensity float64              `json:"intensity"`
	Duration  float64              `json:"duration,omitempty"` // seconds
	Channels  map[string][]float64 `json:"-"`
}

// MarshalJSON flattens channels next to the gesture fields, the shape the
// Unity client expects.
func (g Gesture) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(g.Channels)+3)
	for name, kf := range g.Channels {
		m[name] = kf
	}
	m["gesture_type"] = g.Type
	m["intensity"] = g.Intensity
	if g.Duration > 0 {
		m["duration"] = g.Duration
	}
	return json.Marshal(m)
}

// Known reports whether the gesture has keyframes.
func (g Gesture) Known() bool {
	return g.Type != UnknownGesture && len(g.Channels) > 0
}

// Length returns the duration as a time.Duration.
func (g Gesture) Length() time.Duration {
	return time.Duration(g.Duration * float64(time.Second))
}

type gestureDef struct {
	channel   string
	keyframes []float64
	duration  float64
}

var gestureTable = map[string]gestureDef{
	"nod":        {"head_rotation_y", []float64{0, 15, 0, -15, 0}, 1.0},
	"shake_head": {"head_rotation_y", []float64{0, -15, 0, 15, 0}, 1.0},
	"wave":       {"hand_rotation_z", []float64{0, 45, -45, 45, 0}, 1.5},
	"point":      {"finger_extension", []float64{0, 1, 1, 0}, 0.8},
	"thumbs_up":  {"thumb_extension", []float64{0, 1, 1, 0}, 0.8},
}

// Gestures returns the names of the built-in gestures.
func Gestures() []string {
	return []string{"nod", "shake_head", "wave", "point", "thumbs_up"}
}

// GestureFor builds the animation for a gesture type. Negative intensity
// clamps to 0. Unknown types yield a keyframe-less "unknown" gesture.
func GestureFor(gestureType string, intensity float64) Gesture {
	if intensity < 0 || intensity != intensity {
		intensity = 0
	}
	def, ok := gestureTable[gestureType]
	if !ok {
		return Gesture{Type: UnknownGesture, Intensity: intensity}
	}
	kf := make([]float64, len(def.keyframes))
	copy(kf, def.keyframes)
	return Gesture{
		Type:      gestureType,
		Intensity: intensity,
		Duration:  def.duration,
		Channels:  map[string][]float64{def.channel: kf},
	}
}

// Sample returns every channel's value at t seconds, linearly interpolated
// between evenly spaced keyframes and scaled by intensity.
func (g Gesture) Sample(t float64) map[string]float64 {
	out := make(map[string]float64, len(g.Channels))
	for name, kf := range g.Channels {
		out[name] = interpolate(kf, t, g.Duration) * g.Intensity
	}
	return out
}

func interpolate(kf []float64, t, duration float64) float64 {
	switch {
	case len(kf) == 0:
		return 0
	case len(kf) == 1 || t <= 0 || duration <= 0:
		return kf[0]
	case t >= duration:
		return kf[len(kf)-1]
	}
	step := duration / float64(len(kf)-1)
	idx := int(t / step)
	if idx >= len(kf)-1 {
		return kf[len(kf)-1]
	}
	alpha := (t - float64(idx)*step) / step
	return kf[idx] + (kf[idx+1]-kf[idx])*alpha
}
