package tts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teslashibe/go-vhuman/pkg/audio"
)

// Demo sample rate matches the configured audio defaults.
const demoSampleRate = 22050

// perWord is the length of silence generated for each word.
const perWord = 60 * time.Millisecond

// Demo produces silent WAV audio so the rest of the pipeline can run
// without vendor keys.
type Demo struct{}

// NewDemo returns the demo provider.
func NewDemo() *Demo {
	return &Demo{}
}

// Synthesize returns silence sized to the text.
func (d *Demo) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	return d.SynthesizeWith(ctx, text, Options{})
}

// SynthesizeWith returns silence and echoes the requested voice and emotion.
func (d *Demo) SynthesizeWith(ctx context.Context, text string, opts Options) (*AudioResult, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	samples := audio.Silence(time.Duration(words)*perWord, demoSampleRate)

	wav, err := audio.WAVBytes(samples, demoSampleRate, 1)
	if err != nil {
		return nil, fmt.Errorf("demo: %w", err)
	}

	voice := opts.VoiceID
	if voice == "" {
		voice = "demo_voice_1"
	}
	emotion := opts.Emotion
	if emotion == "" {
		emotion = "neutral"
	}

	return &AudioResult{
		Audio:     wav,
		Format:    AudioFormat{Encoding: EncodingWAV, SampleRate: demoSampleRate, Channels: 1, BitDepth: 16},
		Duration:  time.Duration(float64(len(samples)) / demoSampleRate * float64(time.Second)),
		CharCount: len(text),
		VoiceID:   voice,
		Emotion:   emotion,
		Mode:      ModeDemo,
	}, nil
}

// Stream returns the synthesized buffer as a single chunk.
func (d *Demo) Stream(ctx context.Context, text string) (AudioStream, error) {
	result, err := d.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	return &bufferStream{data: result.Audio, format: result.Format}, nil
}

// Voices returns the single demo voice.
func (d *Demo) Voices(ctx context.Context) ([]Voice, error) {
	return []Voice{{
		ID:          "demo_voice_1",
		Name:        "Demo Voice 1",
		Category:    "demo",
		Description: "Demo voice for testing",
		Provider:    ModeDemo,
	}}, nil
}

// Health always succeeds.
func (d *Demo) Health(ctx context.Context) error { return nil }

// Close is a no-op.
func (d *Demo) Close() error { return nil }

var (
	_ Speaker     = (*Demo)(nil)
	_ VoiceLister = (*Demo)(nil)
)
