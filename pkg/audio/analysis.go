package audio

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Energy thresholds used to classify an utterance.
const (
	HighEnergy       = 0.1
	LowEnergy        = 0.01
	LongUtteranceSec = 5.0
)

// Analysis describes the loudness of a clip and the emotion guessed from it.
type Analysis struct {
	Duration   float64 `json:"duration"`
	Energy     float64 `json:"energy"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Emotion    string  `json:"detected_emotion"`
	Confidence float64 `json:"confidence"`
	Intensity  float64 `json:"intensity"`
}

// Analyze classifies a clip by mean signal power.
//
// Loud clips are "happy", or "excited" once they run past five seconds.
// Near-silent clips are "calm". Everything in between is "neutral".
func Analyze(p *PCM) Analysis {
	a := Analysis{
		Emotion:    "neutral",
		Confidence: 0.5,
	}
	if p == nil {
		return a
	}
	a.SampleRate = p.SampleRate
	a.Channels = p.Channels
	if a.Channels == 0 {
		a.Channels = 1
	}
	if p.SampleRate > 0 {
		a.Duration = float64(p.Frames()) / float64(p.SampleRate)
	}

	if len(p.Samples) > 0 {
		power := make([]float64, len(p.Samples))
		for i, s := range p.Samples {
			power[i] = s * s
		}
		a.Energy = stat.Mean(power, nil)
	}
	a.Intensity = math.Min(1, math.Sqrt(a.Energy)*2)

	switch {
	case a.Energy > HighEnergy:
		a.Emotion = "happy"
		if a.Duration > LongUtteranceSec {
			a.Emotion = "excited"
		}
		a.Confidence = 0.7
	case a.Energy < LowEnergy:
		a.Emotion = "calm"
		a.Confidence = 0.7
	}
	return a
}
