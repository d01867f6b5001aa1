// Package protocol defines the WebSocket messages exchanged with browser
// clients, animation clients and the Unity avatar.
//
// Messages are flat JSON objects discriminated by their "type" field, e.g.
//
//	{"type":"gesture_trigger","gesture_type":"wave","intensity":0.9}
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → server
	TypeAnimationUpdate MessageType = "animation_update" // Blendshapes + gestures
	TypeGestureTrigger  MessageType = "gesture_trigger"  // Single gesture
	TypeChat            MessageType = "chat"             // Chat turn
	TypeFacialLandmarks MessageType = "facial_landmarks" // Face mesh sample

	// Server → client
	TypeAnimationConfirmation MessageType = "animation_confirmation"
	TypeGestureConfirmation   MessageType = "gesture_confirmation"
	TypeChatReply             MessageType = "chat_reply"
	TypeFacialBlendshapes     MessageType = "facial_blendshapes"
	TypeGesture               MessageType = "gesture" // Forwarded gesture keyframes
	TypeError                 MessageType = "error"

	// Bidirectional
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"
)

// Message is a parsed inbound message. The raw payload is kept so it can be
// decoded into the concrete type once Type is known.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp float64     `json:"timestamp,omitempty"`

	raw []byte
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	msg.raw = append([]byte(nil), data...)
	return &msg, nil
}

// ParseData unmarshals the full message into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if len(m.raw) == 0 {
		return nil
	}
	return json.Unmarshal(m.raw, v)
}

// Encode marshals an outbound message.
func Encode(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return data, nil
}

// Now returns the current time as fractional Unix seconds, the timestamp
// format used on the wire.
func Now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// =============================================================================
// Client → Server Message Types
// =============================================================================

// AnimationUpdate carries blendshape weights and gestures for one frame.
type AnimationUpdate struct {
	Type        MessageType        `json:"type"`
	Blendshapes map[string]float64 `json:"blendshapes"`
	Gestures    []string           `json:"gestures,omitempty"`
	Emotion     string             `json:"emotion,omitempty"`
	Duration    float64            `json:"duration,omitempty"`
	Timestamp   float64            `json:"timestamp,omitempty"`
}

// GestureTrigger requests a single gesture.
type GestureTrigger struct {
	Type        MessageType `json:"type"`
	GestureType string      `json:"gesture_type"`
	Intensity   *float64    `json:"intensity,omitempty"`
	Timestamp   float64     `json:"timestamp,omitempty"`
}

// IntensityOr returns the requested intensity or def when unset.
func (g *GestureTrigger) IntensityOr(def float64) float64 {
	if g.Intensity == nil {
		return def
	}
	return *g.Intensity
}

// Point is one normalised face-mesh landmark.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FacialLandmarks carries one face-mesh sample. Forward asks the server to
// drive the avatar with the result.
type FacialLandmarks struct {
	Type      MessageType `json:"type"`
	Landmarks []Point     `json:"landmarks"`
	Emotion   string      `json:"emotion,omitempty"`
	Forward   bool        `json:"forward,omitempty"`
	Timestamp float64     `json:"timestamp,omitempty"`
}

// ChatRequest is one user turn on the chat socket.
type ChatRequest struct {
	Message     string `json:"message"`
	Context     string `json:"context,omitempty"`
	Personality string `json:"personality,omitempty"`
}

// =============================================================================
// Server → Client Message Types
// =============================================================================

// AnimationConfirmation acknowledges an animation_update.
type AnimationConfirmation struct {
	Type      MessageType `json:"type"`
	Success   bool        `json:"success"`
	Timestamp float64     `json:"timestamp"`
}

// GestureConfirmation acknowledges a gesture_trigger.
type GestureConfirmation struct {
	Type        MessageType `json:"type"`
	Success     bool        `json:"success"`
	GestureType string      `json:"gesture_type"`
	Timestamp   float64     `json:"timestamp"`
}

// FacialBlendshapes answers facial_landmarks with the smoothed weights.
type FacialBlendshapes struct {
	Type        MessageType        `json:"type"`
	Blendshapes map[string]float64 `json:"blendshapes"`
	Emotion     string             `json:"emotion"`
	Source      string             `json:"source"`
	Timestamp   float64            `json:"timestamp"`
}

// ErrorMessage reports a failure to the client.
type ErrorMessage struct {
	Type      MessageType `json:"type"`
	Error     string      `json:"error"`
	SessionID string      `json:"session_id,omitempty"`
}

// PongData answers a ping.
type PongData struct {
	Type      MessageType `json:"type"`
	PingTS    float64     `json:"ping_ts"`
	Timestamp float64     `json:"timestamp"`
}
