package animation

import "errors"

var (
	// ErrAlreadyPlaying is returned when Play is called on a busy player.
	ErrAlreadyPlaying = errors.New("gesture already playing")

	// ErrUnityUnavailable is returned when a frame could not be delivered to Unity.
	ErrUnityUnavailable = errors.New("unity not connected")

	// ErrUnityNotConfigured is returned when no Unity URL is set.
	ErrUnityNotConfigured = errors.New("unity websocket url not configured")

	// ErrGestureRequired is returned when a gesture request names no gesture.
	ErrGestureRequired = errors.New("gesture type is required")
)
