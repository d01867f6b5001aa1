package protocol

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewAnimationConfirmation acknowledges an animation update.
func NewAnimationConfirmation(success bool, ts float64) AnimationConfirmation {
	return AnimationConfirmation{
		Type:      TypeAnimationConfirmation,
		Success:   success,
		Timestamp: ts,
	}
}

// NewGestureConfirmation acknowledges a gesture trigger.
func NewGestureConfirmation(success bool, gestureType string, ts float64) GestureConfirmation {
	return GestureConfirmation{
		Type:        TypeGestureConfirmation,
		Success:     success,
		GestureType: gestureType,
		Timestamp:   ts,
	}
}

// NewFacialBlendshapes answers a facial_landmarks sample.
func NewFacialBlendshapes(b map[string]float64, emotion, source string, ts float64) FacialBlendshapes {
	return FacialBlendshapes{
		Type:        TypeFacialBlendshapes,
		Blendshapes: b,
		Emotion:     emotion,
		Source:      source,
		Timestamp:   ts,
	}
}

// NewError creates an error message.
func NewError(err string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Error: err}
}

// NewSessionError creates an error message bound to a chat session.
func NewSessionError(sessionID, err string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Error: err, SessionID: sessionID}
}

// NewPong answers a ping.
func NewPong(pingTS float64) PongData {
	return PongData{Type: TypePong, PingTS: pingTS, Timestamp: Now()}
}
