// Package avatar holds the avatar presets, the catalogue of 3D models and
// personality templates, and a file-backed store for custom avatars.
package avatar

import (
	"errors"
	"time"

	"github.com/teslashibe/go-vhuman/internal/config"
)

// Store errors. The web layer maps ErrNotFound to 404 and the rest to 400.
var (
	ErrNotFound      = errors.New("avatar: not found")
	ErrAlreadyExists = errors.New("avatar: already exists")
	ErrInvalid       = errors.New("avatar: name and model_path are required")
	ErrReadOnly      = errors.New("avatar: presets cannot be modified")
)

// Avatar is a character the virtual human can embody.
type Avatar struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	ModelPath     string            `json:"model_path"`
	VoiceID       string            `json:"voice_id"`
	Personality   string            `json:"personality"`
	SpeakingStyle string            `json:"speaking_style"`
	Traits        []string          `json:"personality_traits,omitempty"`
	Appearance    map[string]string `json:"appearance,omitempty"`
	Animations    []string          `json:"animations,omitempty"`
	Animation     AnimationSettings `json:"animation_settings"`
	Custom        bool              `json:"custom"`
	CreatedAt     time.Time         `json:"created_at,omitempty"`
	UpdatedAt     time.Time         `json:"updated_at,omitempty"`
}

// AnimationSettings tunes how expressive an avatar is.
type AnimationSettings struct {
	IdleAnimation       string  `json:"idle_animation"`
	GestureFrequency    float64 `json:"gesture_frequency"`
	ExpressionIntensity float64 `json:"expression_intensity"`
	DefaultEmotion      string  `json:"default_emotion"`
}

// Model is a 3D asset an avatar can use.
type Model struct {
	ID                string `json:"model_id"`
	Name              string `json:"name"`
	Path              string `json:"path"`
	Type              string `json:"type"`
	PolygonCount      string `json:"polygon_count"`
	TextureResolution string `json:"texture_resolution"`
}

// Personality is a prompt template for the chat model.
type Personality struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Template    string `json:"template"`
}

var presetOrder = []string{"default", "teacher", "assistant"}

var presets = map[string]Avatar{
	"default": {
		ID:            "default",
		Name:          "Alex",
		Description:   "A friendly everyday companion",
		ModelPath:     "models/default_avatar.fbx",
		VoiceID:       config.DefaultVoiceID,
		Personality:   "friendly",
		SpeakingStyle: "warm and conversational",
		Traits:        []string{"helpful", "friendly", "curious"},
		Appearance: map[string]string{
			"skin_tone":      "medium",
			"hair_color":     "brown",
			"eye_color":      "brown",
			"clothing_style": "casual",
		},
		Animations: []string{"idle", "talking", "gesturing", "listening"},
		Animation: AnimationSettings{
			IdleAnimation:       "idle",
			GestureFrequency:    0.5,
			ExpressionIntensity: 0.7,
			DefaultEmotion:      "happy",
		},
	},
	"teacher": {
		ID:            "teacher",
		Name:          "Professor Smith",
		Description:   "An experienced educator who explains with examples",
		ModelPath:     "models/teacher_avatar.fbx",
		VoiceID:       config.DefaultVoiceID,
		Personality:   "professional",
		SpeakingStyle: "clear and structured",
		Traits:        []string{"knowledgeable", "patient", "encouraging"},
		Appearance: map[string]string{
			"skin_tone":      "medium",
			"hair_color":     "black",
			"eye_color":      "brown",
			"clothing_style": "professional",
		},
		Animations: []string{"idle", "teaching", "explaining", "encouraging", "thinking"},
		Animation: AnimationSettings{
			IdleAnimation:       "idle",
			GestureFrequency:    0.7,
			ExpressionIntensity: 0.5,
			DefaultEmotion:      "neutral",
		},
	},
	"assistant": {
		ID:            "assistant",
		Name:          "Aria",
		Description:   "An energetic assistant for getting things done",
		ModelPath:     "models/assistant_avatar.fbx",
		VoiceID:       config.DefaultVoiceID,
		Personality:   "enthusiastic",
		SpeakingStyle: "upbeat and efficient",
		Traits:        []string{"efficient", "accurate", "energetic"},
		Appearance: map[string]string{
			"skin_tone":      "medium",
			"hair_color":     "blonde",
			"eye_color":      "blue",
			"clothing_style": "business",
		},
		Animations: []string{"idle", "assisting", "thinking", "confirming", "helping"},
		Animation: AnimationSettings{
			IdleAnimation:       "idle",
			GestureFrequency:    0.6,
			ExpressionIntensity: 0.9,
			DefaultEmotion:      "excited",
		},
	},
}

// Presets returns the built-in avatars in display order.
func Presets() []Avatar {
	out := make([]Avatar, 0, len(presetOrder))
	for _, id := range presetOrder {
		out = append(out, clone(presets[id]))
	}
	return out
}

// Preset returns a built-in avatar by ID.
func Preset(id string) (Avatar, bool) {
	a, ok := presets[id]
	if !ok {
		return Avatar{}, false
	}
	return clone(a), true
}

// IsPreset reports whether id names a built-in avatar.
func IsPreset(id string) bool {
	_, ok := presets[id]
	return ok
}

// Models returns the available 3D models.
func Models() []Model {
	return []Model{
		{ID: "default_avatar", Name: "Default Avatar", Path: "models/default_avatar.fbx", Type: "humanoid", PolygonCount: "10k-50k", TextureResolution: "2048x2048"},
		{ID: "teacher_avatar", Name: "Teacher Avatar", Path: "models/teacher_avatar.fbx", Type: "humanoid", PolygonCount: "15k-75k", TextureResolution: "4096x4096"},
		{ID: "assistant_avatar", Name: "Assistant Avatar", Path: "models/assistant_avatar.fbx", Type: "humanoid", PolygonCount: "12k-60k", TextureResolution: "2048x2048"},
	}
}

var personalities = []Personality{
	{
		ID:          "friendly",
		Name:        "Friendly",
		Description: "Warm, approachable, and easy to talk to",
		Template:    "You are a friendly and welcoming person. You smile often, use positive language, and make people feel comfortable in conversation.",
	},
	{
		ID:          "professional",
		Name:        "Professional",
		Description: "Formal, knowledgeable, and business-like",
		Template:    "You are a professional and knowledgeable expert. You speak clearly, provide accurate information, and maintain a helpful but formal demeanor.",
	},
	{
		ID:          "enthusiastic",
		Name:        "Enthusiastic",
		Description: "Energetic, passionate, and engaging",
		Template:    "You are enthusiastic and passionate about helping others. You use expressive language, show excitement, and engage people with your energy.",
	},
	{
		ID:          "calm",
		Name:        "Calm",
		Description: "Relaxed, patient, and soothing",
		Template:    "You are calm and patient. You speak slowly and clearly, provide thoughtful responses, and create a peaceful atmosphere.",
	},
	{
		ID:          "humorous",
		Name:        "Humorous",
		Description: "Funny, witty, and entertaining",
		Template:    "You are humorous and entertaining. You use wit and humor appropriately, make people laugh, and keep conversations engaging and fun.",
	},
}

// Personalities returns the personality templates.
func Personalities() []Personality {
	out := make([]Personality, len(personalities))
	copy(out, personalities)
	return out
}

// PersonalityPrompt returns the template for a personality ID, or id itself
// when it is free text.
func PersonalityPrompt(id string) string {
	for _, p := range personalities {
		if p.ID == id {
			return p.Template
		}
	}
	return id
}

func clone(a Avatar) Avatar {
	if a.Traits != nil {
		a.Traits = append([]string(nil), a.Traits...)
	}
	if a.Animations != nil {
		a.Animations = append([]string(nil), a.Animations...)
	}
	if a.Appearance != nil {
		m := make(map[string]string, len(a.Appearance))
		for k, v := range a.Appearance {
			m[k] = v
		}
		a.Appearance = m
	}
	return a
}
