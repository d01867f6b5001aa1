package llm

import (
	"log/slog"
	"time"
)

// Config configures the OpenAI chat provider.
type Config struct {
	APIKey  string
	BaseURL string // empty for api.openai.com

	Model       string
	MaxTokens   int
	Temperature float64

	Timeout time.Duration
	Retries int
	Backoff time.Duration // multiplied by the attempt number

	Logger *slog.Logger
}

// DefaultConfig mirrors the server defaults: gpt-4o, 1000 tokens, 0.7.
func DefaultConfig() Config {
	return Config{
		Model:       "gpt-4o",
		MaxTokens:   1000,
		Temperature: 0.7,
		Timeout:     30 * time.Second,
		Retries:     2,
		Backoff:     200 * time.Millisecond,
		Logger:      slog.Default(),
	}
}

// Option adjusts a Config.
type Option func(*Config)

func WithAPIKey(key string) Option { return func(c *Config) { c.APIKey = key } }

func WithBaseURL(url string) Option { return func(c *Config) { c.BaseURL = url } }

// WithModel selects the chat model. Empty keeps the default.
func WithModel(model string) Option {
	return func(c *Config) {
		if model != "" {
			c.Model = model
		}
	}
}

// WithMaxTokens caps reply length. Non-positive values keep the default.
func WithMaxTokens(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxTokens = n
		}
	}
}

func WithTemperature(t float64) Option { return func(c *Config) { c.Temperature = t } }

func WithTimeout(d time.Duration) Option { return func(c *Config) { c.Timeout = d } }

// WithRetries sets how often rate-limited or 5xx calls are retried.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Config) {
		c.Retries = n
		c.Backoff = backoff
	}
}

func WithLogger(l *slog.Logger) Option { return func(c *Config) { c.Logger = l } }
