package tts

import (
	"log/slog"
	"time"
)

// Config is shared by the vendor providers. Each constructor starts from
// its own defaults and applies the options on top.
type Config struct {
	APIKey  string
	BaseURL string
	VoiceID string
	ModelID string
	Format  Encoding

	Timeout       time.Duration
	StreamTimeout time.Duration
	Retries       int
	Backoff       time.Duration // multiplied by the attempt number

	Logger *slog.Logger
}

// Option adjusts a Config.
type Option func(*Config)

func WithAPIKey(key string) Option { return func(c *Config) { c.APIKey = key } }

func WithBaseURL(url string) Option { return func(c *Config) { c.BaseURL = url } }

// WithVoice selects the default voice. Empty keeps the provider default.
func WithVoice(id string) Option {
	return func(c *Config) {
		if id != "" {
			c.VoiceID = id
		}
	}
}

// WithModel selects the synthesis model. Empty keeps the provider default.
func WithModel(id string) Option {
	return func(c *Config) {
		if id != "" {
			c.ModelID = id
		}
	}
}

func WithOutputFormat(e Encoding) Option { return func(c *Config) { c.Format = e } }

func WithTimeout(d time.Duration) Option { return func(c *Config) { c.Timeout = d } }

// WithRetries sets how often rate-limited or 5xx requests are retried.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Config) {
		c.Retries = n
		c.Backoff = backoff
	}
}

func WithLogger(l *slog.Logger) Option { return func(c *Config) { c.Logger = l } }

func vendorDefaults() Config {
	return Config{
		Format:        EncodingMP3,
		Timeout:       30 * time.Second,
		StreamTimeout: 60 * time.Second,
		Retries:       2,
		Backoff:       100 * time.Millisecond,
	}
}

// build applies opts to base. Every vendor needs an API key.
func build(base Config, opts []Option) (Config, error) {
	for _, opt := range opts {
		opt(&base)
	}
	if base.APIKey == "" {
		return base, ErrNoAPIKey
	}
	if base.Logger == nil {
		base.Logger = slog.Default()
	}
	return base, nil
}
