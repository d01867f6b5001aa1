package animation

// emotionOverlays are the minimum weights each emotion imposes.
var emotionOverlays = map[string]Blendshapes{
	"happy": {
		"mouthSmile_L": 0.8, "mouthSmile_R": 0.8,
		"cheekSquint_L": 0.6, "cheekSquint_R": 0.6,
		"eyeWide_L": 0.3, "eyeWide_R": 0.3,
	},
	"sad": {
		"mouthFrown_L": 0.7, "mouthFrown_R": 0.7,
		"browDown_L": 0.6, "browDown_R": 0.6,
		"eyeSquint_L": 0.4, "eyeSquint_R": 0.4,
	},
	"excited": {
		"mouthSmile_L": 0.9, "mouthSmile_R": 0.9,
		"eyeWide_L": 0.8, "eyeWide_R": 0.8,
		"browInnerUp": 0.7,
		"jawOpen":     0.3,
	},
	"angry": {
		"browDown_L": 0.8, "browDown_R": 0.8,
		"mouthFrown_L": 0.6, "mouthFrown_R": 0.6,
		"eyeSquint_L": 0.7, "eyeSquint_R": 0.7,
	},
}

// Emotions returns the emotions that have an overlay.
func Emotions() []string {
	return []string{"happy", "sad", "excited", "angry"}
}

// EmotionOverlay returns a copy of the overlay for emotion, or nil.
func EmotionOverlay(emotion string) Blendshapes {
	o, ok := emotionOverlays[emotion]
	if !ok {
		return nil
	}
	return o.Clone()
}

// ApplyEmotion raises weights in b to the emotion's overlay values.
// Weights are never lowered and keys absent from b are not added.
// Unknown emotions leave b unchanged. b is modified in place and returned.
func ApplyEmotion(b Blendshapes, emotion string) Blendshapes {
	overlay, ok := emotionOverlays[emotion]
	if !ok {
		return b
	}
	for name, v := range overlay {
		if cur, present := b[name]; present && v > cur {
			b[name] = v
		}
	}
	return b
}

// DefaultBlendshapes is the fallback face for an emotion when no usable
// landmarks are available.
func DefaultBlendshapes(emotion string) Blendshapes {
	b := NeutralBlendshapes()
	switch emotion {
	case "happy":
		b["mouthSmile_L"], b["mouthSmile_R"] = 0.5, 0.5
	case "sad":
		b["mouthFrown_L"], b["mouthFrown_R"] = 0.5, 0.5
	case "excited":
		b["eyeWide_L"], b["eyeWide_R"] = 0.3, 0.3
	}
	return b
}
