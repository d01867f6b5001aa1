//go:build integration

package tts_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/teslashibe/go-vhuman/pkg/tts"
)

// TestVendors speaks one excited line with every vendor that has a key in
// the environment:
//
//	go test -tags=integration ./pkg/tts/...
func TestVendors(t *testing.T) {
	vendors := map[string]func(key string) (tts.Speaker, error){
		"ELEVENLABS_API_KEY": func(key string) (tts.Speaker, error) {
			voice := os.Getenv("ELEVENLABS_VOICE_ID")
			if voice == "" {
				voice = tts.ElevenLabsVoices["rachel"]
			}
			return tts.NewElevenLabs(tts.WithAPIKey(key), tts.WithVoice(voice))
		},
		"OPENAI_API_KEY": func(key string) (tts.Speaker, error) {
			return tts.NewOpenAI(tts.WithAPIKey(key))
		},
	}

	for env, build := range vendors {
		t.Run(env, func(t *testing.T) {
			key := os.Getenv(env)
			if key == "" {
				t.Skipf("%s not set", env)
			}
			p, err := build(key)
			if err != nil {
				t.Fatal(err)
			}
			defer p.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			res, err := p.SynthesizeWith(ctx, "I am so excited to meet you!", tts.Options{Emotion: "excited"})
			if err != nil {
				t.Fatal(err)
			}
			t.Logf("%d bytes of %s in %dms", len(res.Audio), res.Format.Encoding, res.LatencyMs)
			if len(res.Audio) < 1000 {
				t.Error("clip is suspiciously short")
			}
		})
	}
}
