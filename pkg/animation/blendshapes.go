// Package animation turns face landmarks, emotions and gestures into
// ARKit blendshape frames and delivers them to the Unity avatar.
//
// Clients run face tracking and send landmark geometry; this package
// measures the geometry, overlays emotions, smooths consecutive frames and
// forwards the result over a lazily dialled WebSocket.
package animation

import "strings"

// Blendshapes maps an ARKit blendshape name to a weight in [0, 1].
type Blendshapes map[string]float64

// arkitNames is the canonical order: 52 ARKit shapes plus 5 tongue shapes.
var arkitNames = []string{
	"browDown_L", "browDown_R", "browInnerUp", "browOuterUp_L", "browOuterUp_R",
	"cheekPuff", "cheekSquint_L", "cheekSquint_R", "eyeBlink_L", "eyeBlink_R",
	"eyeLookDown_L", "eyeLookDown_R", "eyeLookIn_L", "eyeLookIn_R", "eyeLookOut_L",
	"eyeLookOut_R", "eyeLookUp_L", "eyeLookUp_R", "eyeSquint_L", "eyeSquint_R",
	"eyeWide_L", "eyeWide_R", "jawForward", "jawLeft", "jawOpen", "jawRight",
	"mouthClose", "mouthDimple_L", "mouthDimple_R", "mouthFrown_L", "mouthFrown_R",
	"mouthFunnel", "mouthLeft", "mouthLowerDown_L", "mouthLowerDown_R", "mouthPress_L",
	"mouthPress_R", "mouthPucker", "mouthRight", "mouthRollLower", "mouthRollUpper",
	"mouthShrugLower", "mouthShrugUpper", "mouthSmile_L", "mouthSmile_R", "mouthStretch_L",
	"mouthStretch_R", "mouthUpperUp_L", "mouthUpperUp_R", "noseSneer_L", "noseSneer_R",
	"tongueOut", "tongueUp", "tongueDown", "tongueLeft", "tongueRight",
}

// categoryOrder is checked in order; the first substring match wins.
var categoryOrder = []struct {
	match    string
	category string
}{
	{"eye", "eyes"},
	{"mouth", "mouth"},
	{"brow", "brows"},
	{"cheek", "cheeks"},
	{"jaw", "jaw"},
	{"nose", "nose"},
	{"tongue", "tongue"},
}

// ARKitBlendshapes returns the supported blendshape names in canonical order.
func ARKitBlendshapes() []string {
	out := make([]string, len(arkitNames))
	copy(out, arkitNames)
	return out
}

// IsBlendshape reports whether name is a supported blendshape.
func IsBlendshape(name string) bool {
	for _, n := range arkitNames {
		if n == name {
			return true
		}
	}
	return false
}

// Category groups a blendshape name for display.
func Category(name string) string {
	lower := strings.ToLower(name)
	for _, c := range categoryOrder {
		if strings.Contains(lower, c.match) {
			return c.category
		}
	}
	return "other"
}

// NeutralBlendshapes returns every supported blendshape at 0.
func NeutralBlendshapes() Blendshapes {
	b := make(Blendshapes, len(arkitNames))
	for _, n := range arkitNames {
		b[n] = 0
	}
	return b
}

// Clone returns an independent copy.
func (b Blendshapes) Clone() Blendshapes {
	out := make(Blendshapes, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Clamp forces every weight into [0, 1] in place and returns b.
// NaN weights become 0.
func (b Blendshapes) Clamp() Blendshapes {
	for k, v := range b {
		b[k] = clamp01(v)
	}
	return b
}

func clamp01(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
