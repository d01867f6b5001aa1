// Package config loads go-vhuman settings from defaults, an optional YAML
// file, a .env file and the process environment, in that order.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultUnityURL      = "ws://localhost:8080"
	DefaultVoiceID       = "21m00Tcm4TlvDq8ikWAM"
	DefaultLangflowHost  = "http://localhost:7860"
	DefaultLangflowFlow  = "b2636e6f-2c11-4274-b965-5bd98ca40336"
	DefaultServerPort    = 8000
	DefaultAnimationFPS  = 30
	DefaultMCPServerAddr = ":5000"
)

// placeholderKeys are values shipped in example env files. They count as unset.
var placeholderKeys = map[string]bool{
	"your_openai_api_key_here":     true,
	"your_elevenlabs_api_key_here": true,
	"your_api_key_here":            true,
	"changeme":                     true,
}

// OpenAI holds chat, transcription and speech settings.
type OpenAI struct {
	APIKey       string  `yaml:"api_key"`
	BaseURL      string  `yaml:"base_url"`
	Model        string  `yaml:"model"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`
	TTSModel     string  `yaml:"tts_model"`
	TTSVoice     string  `yaml:"tts_voice"`
	WhisperModel string  `yaml:"whisper_model"`
}

// ElevenLabs holds speech synthesis settings.
type ElevenLabs struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	VoiceID string `yaml:"voice_id"`
	ModelID string `yaml:"model_id"`
}

// Audio describes the default audio format.
type Audio struct {
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
	Format     string `yaml:"format"`
}

// Animation tunes the blendshape pipeline.
type Animation struct {
	FPS                     int     `yaml:"fps"`
	Smoothing               float64 `yaml:"smoothing"`
	GestureTriggerThreshold float64 `yaml:"gesture_trigger_threshold"`
}

// MediaPipe flags which client-side trackers are expected to send landmarks.
type MediaPipe struct {
	FaceMesh bool `yaml:"face_mesh"`
	Hands    bool `yaml:"hands"`
	Pose     bool `yaml:"pose"`
}

// Unity is the avatar client endpoint.
type Unity struct {
	WebSocketURL string        `yaml:"websocket_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Server is the HTTP listener.
type Server struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Debug bool   `yaml:"debug"`
}

// Langflow points at the workflow server.
type Langflow struct {
	HostURL      string `yaml:"host_url"`
	FlowID       string `yaml:"flow_id"`
	RegistryPath string `yaml:"registry_path"`
}

// MCP configures the tool registry and the embedded tool server.
type MCP struct {
	RegistryPath string `yaml:"registry_path"`
	ServerAddr   string `yaml:"server_addr"`
}

// Storage holds on-disk state.
type Storage struct {
	DataDir string `yaml:"data_dir"`
}

// Settings is the full configuration tree.
type Settings struct {
	OpenAI     OpenAI     `yaml:"openai"`
	ElevenLabs ElevenLabs `yaml:"elevenlabs"`
	Audio      Audio      `yaml:"audio"`
	Animation  Animation  `yaml:"animation"`
	MediaPipe  MediaPipe  `yaml:"mediapipe"`
	Unity      Unity      `yaml:"unity"`
	Server     Server     `yaml:"server"`
	Langflow   Langflow   `yaml:"langflow"`
	MCP        MCP        `yaml:"mcp"`
	Storage    Storage    `yaml:"storage"`
	LogLevel   string     `yaml:"log_level"`
	LogFormat  string     `yaml:"log_format"` // text or json
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		OpenAI: OpenAI{
			Model:        "gpt-4o",
			MaxTokens:    1000,
			Temperature:  0.7,
			TTSModel:     "tts-1",
			TTSVoice:     "nova",
			WhisperModel: "whisper-1",
		},
		ElevenLabs: ElevenLabs{
			VoiceID: DefaultVoiceID,
			ModelID: "eleven_monolingual_v1",
		},
		Audio: Audio{SampleRate: 22050, Channels: 1, Format: "wav"},
		Animation: Animation{
			FPS:                     DefaultAnimationFPS,
			Smoothing:               0.1,
			GestureTriggerThreshold: 0.8,
		},
		MediaPipe: MediaPipe{FaceMesh: true, Hands: true, Pose: true},
		Unity:     Unity{WebSocketURL: DefaultUnityURL, Timeout: 30 * time.Second},
		Server:    Server{Host: "0.0.0.0", Port: DefaultServerPort},
		Langflow:  Langflow{HostURL: DefaultLangflowHost, FlowID: DefaultLangflowFlow},
		MCP:       MCP{ServerAddr: DefaultMCPServerAddr},
		Storage:   Storage{DataDir: "data"},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load builds settings from defaults, the optional YAML at location, the
// .env file in the working directory and the environment.
// location may be a local path or any URL the afs package understands.
func Load(ctx context.Context, location string) (*Settings, error) {
	s := Default()

	if location != "" {
		data, err := afs.New().DownloadWithURL(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("download config %q: %w", location, err)
		}
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", location, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	s.applyEnv()
	s.fillPaths()

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) applyEnv() {
	s.OpenAI.APIKey = envString("OPENAI_API_KEY", s.OpenAI.APIKey)
	s.OpenAI.BaseURL = envString("OPENAI_BASE_URL", s.OpenAI.BaseURL)
	s.OpenAI.Model = envString("OPENAI_MODEL", s.OpenAI.Model)
	s.OpenAI.MaxTokens = envInt("OPENAI_MAX_TOKENS", s.OpenAI.MaxTokens)
	s.OpenAI.Temperature = envFloat("OPENAI_TEMPERATURE", s.OpenAI.Temperature)
	s.OpenAI.TTSVoice = envString("OPENAI_TTS_VOICE", s.OpenAI.TTSVoice)

	s.ElevenLabs.APIKey = envString("ELEVENLABS_API_KEY", s.ElevenLabs.APIKey)
	s.ElevenLabs.VoiceID = envString("ELEVENLABS_VOICE_ID", s.ElevenLabs.VoiceID)

	s.Audio.SampleRate = envInt("AUDIO_SAMPLE_RATE", s.Audio.SampleRate)
	s.Audio.Channels = envInt("AUDIO_CHANNELS", s.Audio.Channels)

	s.Animation.FPS = envInt("ANIMATION_FPS", s.Animation.FPS)
	s.Animation.Smoothing = envFloat("ANIMATION_SMOOTHING", s.Animation.Smoothing)
	s.Animation.GestureTriggerThreshold = envFloat("GESTURE_TRIGGER_THRESHOLD", s.Animation.GestureTriggerThreshold)

	s.MediaPipe.FaceMesh = envBool("MEDIAPIPE_FACE_MESH", s.MediaPipe.FaceMesh)
	s.MediaPipe.Hands = envBool("MEDIAPIPE_HANDS", s.MediaPipe.Hands)
	s.MediaPipe.Pose = envBool("MEDIAPIPE_POSE", s.MediaPipe.Pose)

	s.Unity.WebSocketURL = envString("UNITY_WEBSOCKET_URL", s.Unity.WebSocketURL)
	s.Unity.Timeout = envDuration("UNITY_WEBSOCKET_TIMEOUT", s.Unity.Timeout)

	s.Server.Host = envString("HOST", s.Server.Host)
	s.Server.Port = envInt("PORT", s.Server.Port)
	s.Server.Debug = envBool("DEBUG", s.Server.Debug)

	s.Langflow.HostURL = envString("LANGFLOW_HOST_URL", s.Langflow.HostURL)
	s.Langflow.FlowID = envString("LANGFLOW_FLOW_ID", s.Langflow.FlowID)

	s.MCP.ServerAddr = envString("MCP_SERVER_ADDR", s.MCP.ServerAddr)
	s.Storage.DataDir = envString("DATA_DIR", s.Storage.DataDir)
	s.LogLevel = envString("LOG_LEVEL", s.LogLevel)
	s.LogFormat = envString("LOG_FORMAT", s.LogFormat)
}

func (s *Settings) fillPaths() {
	if s.Langflow.RegistryPath == "" {
		s.Langflow.RegistryPath = filepath.Join(s.Storage.DataDir, "langflow_flows.json")
	}
	if s.MCP.RegistryPath == "" {
		s.MCP.RegistryPath = filepath.Join(s.Storage.DataDir, "mcps.json")
	}
}

// AvatarStorePath is where custom avatars are persisted.
func (s *Settings) AvatarStorePath() string {
	return filepath.Join(s.Storage.DataDir, "avatars.json")
}

// Validate rejects out-of-range values.
func (s *Settings) Validate() error {
	var errs []error
	if s.Animation.FPS < 1 || s.Animation.FPS > 240 {
		errs = append(errs, fmt.Errorf("animation.fps must be 1..240, got %d", s.Animation.FPS))
	}
	if s.Animation.Smoothing < 0 || s.Animation.Smoothing > 1 {
		errs = append(errs, fmt.Errorf("animation.smoothing must be 0..1, got %g", s.Animation.Smoothing))
	}
	if s.Animation.GestureTriggerThreshold < 0 || s.Animation.GestureTriggerThreshold > 1 {
		errs = append(errs, fmt.Errorf("animation.gesture_trigger_threshold must be 0..1, got %g", s.Animation.GestureTriggerThreshold))
	}
	if s.OpenAI.Temperature < 0 || s.OpenAI.Temperature > 2 {
		errs = append(errs, fmt.Errorf("openai.temperature must be 0..2, got %g", s.OpenAI.Temperature))
	}
	if s.Server.Port < 1 || s.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be 1..65535, got %d", s.Server.Port))
	}
	if s.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", s.Audio.SampleRate))
	}
	return errors.Join(errs...)
}

// Addr returns host:port for the HTTP listener.
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Server.Host, s.Server.Port)
}

// OpenAIEnabled reports whether a real OpenAI key is configured.
func (s *Settings) OpenAIEnabled() bool {
	return IsSet(s.OpenAI.APIKey)
}

// ElevenLabsEnabled reports whether a real ElevenLabs key is configured.
func (s *Settings) ElevenLabsEnabled() bool {
	return IsSet(s.ElevenLabs.APIKey)
}

// UnityConfigured reports whether a non-default Unity endpoint is configured.
func (s *Settings) UnityConfigured() bool {
	u := strings.TrimSpace(s.Unity.WebSocketURL)
	return u != "" && u != DefaultUnityURL
}

// IsSet reports whether a credential is present and not a placeholder.
func IsSet(key string) bool {
	k := strings.TrimSpace(key)
	return k != "" && !placeholderKeys[strings.ToLower(k)]
}
