// Package tts turns assistant replies into speech.
//
// Three backends share the Provider interface: ElevenLabs (custom and
// cloned voices, emotion-tuned settings), OpenAI (built-in voices) and
// Demo, which returns silent WAV audio when no vendor key is configured.
//
//	el, _ := tts.NewElevenLabs(tts.WithAPIKey(key), tts.WithVoice("rachel"))
//	chain, _ := tts.NewChain(el, tts.NewDemo())
//	clip, _ := chain.SynthesizeWith(ctx, "Hello!", tts.Options{Emotion: "excited"})
package tts

import (
	"context"
	"time"
)

// Result modes reported to clients.
const (
	ModeProduction = "production"
	ModeDemo       = "demo"
)

// Provider is a speech backend.
type Provider interface {
	// Synthesize speaks text with the default voice.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Stream speaks text, handing out chunks as the vendor produces them.
	Stream(ctx context.Context, text string) (AudioStream, error)

	// Health verifies connectivity and the API key.
	Health(ctx context.Context) error

	Close() error
}

// Speaker is a Provider that accepts per-request voice and emotion.
type Speaker interface {
	Provider
	SynthesizeWith(ctx context.Context, text string, opts Options) (*AudioResult, error)
}

// VoiceLister lists the voices a provider can speak with.
type VoiceLister interface {
	Voices(ctx context.Context) ([]Voice, error)
}

// Options tunes a single synthesis request. Empty fields fall back to the
// provider configuration.
type Options struct {
	VoiceID string
	Emotion string
	ModelID string
}

// Speak synthesizes with opts when p supports it, and with the provider
// defaults otherwise.
func Speak(ctx context.Context, p Provider, text string, opts Options) (*AudioResult, error) {
	if s, ok := p.(Speaker); ok {
		return s.SynthesizeWith(ctx, text, opts)
	}
	return p.Synthesize(ctx, text)
}

// AudioStream yields a clip in chunks. Read returns nil at the end;
// callers Close it either way.
type AudioStream interface {
	Read() ([]byte, error)

	Close() error

	Format() AudioFormat
}

// AudioResult is a complete synthesis result.
type AudioResult struct {
	Audio     []byte
	Format    AudioFormat
	Duration  time.Duration
	CharCount int
	LatencyMs int64

	VoiceID string
	Emotion string
	Mode    string
}

// AudioFormat is the encoding of AudioResult.Audio.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
	BitDepth   int
}

// Encoding names a vendor output format.
type Encoding string

const (
	EncodingMP3   Encoding = "mp3_44100_128" // ElevenLabs and OpenAI default
	EncodingWAV   Encoding = "wav"           // Demo output, 16-bit mono
	EncodingPCM22 Encoding = "pcm_22050"     // 22.05kHz mono PCM16
	EncodingPCM24 Encoding = "pcm_24000"     // 24kHz mono PCM16
	EncodingOpus  Encoding = "opus"
)

// MIMEType returns the content type for the encoding.
func (e Encoding) MIMEType() string {
	switch e {
	case EncodingWAV:
		return "audio/wav"
	case EncodingPCM22, EncodingPCM24:
		return "audio/pcm"
	case EncodingOpus:
		return "audio/opus"
	default:
		return "audio/mpeg"
	}
}

// Extension returns the file extension used when audio is saved to disk.
func (e Encoding) Extension() string {
	switch e {
	case EncodingWAV:
		return ".wav"
	case EncodingPCM22, EncodingPCM24:
		return ".pcm"
	case EncodingOpus:
		return ".opus"
	default:
		return ".mp3"
	}
}

// SampleRateFromEncoding is the sample rate implied by enc.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingPCM22, EncodingWAV:
		return 22050
	case EncodingPCM24:
		return 24000
	case EncodingOpus:
		return 48000
	default:
		return 44100
	}
}

// VoiceSettings controls ElevenLabs voice characteristics.
type VoiceSettings struct {
	// Stability controls consistency (0.0-1.0). Lower is more expressive.
	Stability float64 `json:"stability"`

	// SimilarityBoost controls closeness to the source voice (0.0-1.0).
	SimilarityBoost float64 `json:"similarity_boost"`
}

// DefaultVoiceSettings returns the neutral settings.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{Stability: 0.5, SimilarityBoost: 0.75}
}

// EmotionVoiceSettings maps an emotion to voice settings. Excited speech is
// less stable, calm and sad speech more so.
func EmotionVoiceSettings(emotion string) VoiceSettings {
	switch emotion {
	case "excited":
		return VoiceSettings{Stability: 0.3, SimilarityBoost: 0.9}
	case "calm":
		return VoiceSettings{Stability: 0.8, SimilarityBoost: 0.6}
	case "sad":
		return VoiceSettings{Stability: 0.7, SimilarityBoost: 0.8}
	default:
		return DefaultVoiceSettings()
	}
}
