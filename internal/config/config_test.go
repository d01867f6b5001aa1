package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	s := Default()

	if s.OpenAI.Model != "gpt-4o" {
		t.Errorf("expected gpt-4o, got %s", s.OpenAI.Model)
	}
	if s.OpenAI.MaxTokens != 1000 {
		t.Errorf("expected 1000 max tokens, got %d", s.OpenAI.MaxTokens)
	}
	if s.ElevenLabs.VoiceID != DefaultVoiceID {
		t.Errorf("expected default voice, got %s", s.ElevenLabs.VoiceID)
	}
	if s.Animation.FPS != 30 {
		t.Errorf("expected 30 fps, got %d", s.Animation.FPS)
	}
	if s.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", s.Server.Port)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vhuman.yaml")
	yamlDoc := `
openai:
  model: gpt-4o-mini
  temperature: 0.2
animation:
  fps: 60
unity:
  websocket_url: ws://unity.local:9000
  timeout: 5s
storage:
  data_dir: ` + dir + `
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PORT", "9100")
	t.Setenv("ANIMATION_SMOOTHING", "0.25")

	s, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if s.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("expected yaml model, got %s", s.OpenAI.Model)
	}
	if s.OpenAI.Temperature != 0.2 {
		t.Errorf("expected temperature 0.2, got %g", s.OpenAI.Temperature)
	}
	if s.Animation.FPS != 60 {
		t.Errorf("expected 60 fps, got %d", s.Animation.FPS)
	}
	if s.Animation.Smoothing != 0.25 {
		t.Errorf("expected env smoothing 0.25, got %g", s.Animation.Smoothing)
	}
	if s.Unity.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", s.Unity.Timeout)
	}
	if s.Server.Port != 9100 {
		t.Errorf("expected env port 9100, got %d", s.Server.Port)
	}
	if !s.OpenAIEnabled() {
		t.Error("expected OpenAI enabled with a real key")
	}
	if !s.UnityConfigured() {
		t.Error("expected Unity configured for non-default URL")
	}
	if s.MCP.RegistryPath != filepath.Join(dir, "mcps.json") {
		t.Errorf("unexpected mcp registry path %s", s.MCP.RegistryPath)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestIsSet(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"", false},
		{"   ", false},
		{"your_openai_api_key_here", false},
		{"your_elevenlabs_api_key_here", false},
		{"sk-live-123", true},
	}
	for _, tt := range tests {
		if got := IsSet(tt.key); got != tt.want {
			t.Errorf("IsSet(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestUnityConfigured(t *testing.T) {
	s := Default()
	if s.UnityConfigured() {
		t.Error("default URL should count as unconfigured")
	}
	s.Unity.WebSocketURL = ""
	if s.UnityConfigured() {
		t.Error("empty URL should count as unconfigured")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"fps zero", func(s *Settings) { s.Animation.FPS = 0 }},
		{"smoothing above one", func(s *Settings) { s.Animation.Smoothing = 1.5 }},
		{"threshold negative", func(s *Settings) { s.Animation.GestureTriggerThreshold = -0.1 }},
		{"temperature high", func(s *Settings) { s.OpenAI.Temperature = 3 }},
		{"port out of range", func(s *Settings) { s.Server.Port = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(s)
			if err := s.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("VH_TEST_DURATION", "12")
	if d := envDuration("VH_TEST_DURATION", time.Second); d != 12*time.Second {
		t.Errorf("expected 12s, got %v", d)
	}
	t.Setenv("VH_TEST_DURATION", "250ms")
	if d := envDuration("VH_TEST_DURATION", time.Second); d != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", d)
	}
	t.Setenv("VH_TEST_DURATION", "bogus")
	if d := envDuration("VH_TEST_DURATION", time.Second); d != time.Second {
		t.Errorf("expected fallback, got %v", d)
	}
}
