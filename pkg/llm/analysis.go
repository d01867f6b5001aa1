package llm

import (
	"strings"
	"unicode"
)

// Analysis describes how the avatar should deliver a reply.
type Analysis struct {
	Emotion          string   `json:"emotion"`
	FacialExpression string   `json:"facial_expression"`
	Gestures         []string `json:"gestures"`
	SpeechRate       string   `json:"speech_rate"`
}

// Triggers are the animation cues found in a reply.
type Triggers struct {
	Gestures          []string `json:"gestures"`
	FacialExpressions []string `json:"facial_expressions"`
	BodyMovements     []string `json:"body_movements"`
}

// words splits text into lowercase word tokens. Apostrophes stay inside
// words so "don't" is one token.
func words(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	}) {
		set[w] = true
	}
	return set
}

func hasAny(set map[string]bool, keys ...string) bool {
	for _, k := range keys {
		if set[k] {
			return true
		}
	}
	return false
}

// Analyze derives emotion, expression, gestures and speech rate from text.
func Analyze(text string) Analysis {
	a := Analysis{
		Emotion:          "neutral",
		FacialExpression: "neutral",
		Gestures:         []string{},
		SpeechRate:       "normal",
	}
	w := words(text)

	switch {
	case hasAny(w, "happy", "great", "wonderful", "excellent"):
		a.Emotion, a.FacialExpression = "happy", "smile"
	case hasAny(w, "sad", "sorry", "unfortunate", "regret"):
		a.Emotion, a.FacialExpression = "sad", "frown"
	case hasAny(w, "excited", "amazing", "incredible"):
		a.Emotion, a.FacialExpression = "excited", "wide_eyes"
	}

	if strings.Contains(text, "?") {
		a.Gestures = append(a.Gestures, "question_gesture")
	}
	if hasAny(w, "yes", "correct", "right") {
		a.Gestures = append(a.Gestures, "nod")
	}
	if hasAny(w, "no", "incorrect", "wrong") {
		a.Gestures = append(a.Gestures, "shake_head")
	}

	switch n := len(strings.Fields(text)); {
	case n > 50:
		a.SpeechRate = "fast"
	case n < 10:
		a.SpeechRate = "slow"
	}
	return a
}

// FindTriggers returns the animation cues in text.
func FindTriggers(text string) Triggers {
	t := Triggers{
		Gestures:          []string{},
		FacialExpressions: []string{},
		BodyMovements:     []string{},
	}
	w := words(text)

	if hasAny(w, "hello", "hi") {
		t.Gestures = append(t.Gestures, "wave")
	}
	if hasAny(w, "yes", "correct") {
		t.Gestures = append(t.Gestures, "thumbs_up")
	}
	if hasAny(w, "no", "incorrect") {
		t.Gestures = append(t.Gestures, "shake_head")
	}
	if hasAny(w, "happy", "great") {
		t.FacialExpressions = append(t.FacialExpressions, "smile")
	}
	if hasAny(w, "think", "hmm") {
		t.FacialExpressions = append(t.FacialExpressions, "thinking")
	}
	if hasAny(w, "explain", "show") {
		t.BodyMovements = append(t.BodyMovements, "point")
	}
	return t
}
