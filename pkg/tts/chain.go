package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Chain speaks with the first provider that succeeds. The server builds
// ElevenLabs, then OpenAI, then Demo, so a reply is always voiced.
type Chain struct {
	providers []Provider
	log       *slog.Logger
}

func NewChain(providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	return &Chain{providers: providers, log: slog.Default().With("component", "tts.chain")}, nil
}

func (c *Chain) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	return c.SynthesizeWith(ctx, text, Options{})
}

func (c *Chain) SynthesizeWith(ctx context.Context, text string, opts Options) (*AudioResult, error) {
	return firstOK(ctx, c, func(p Provider) (*AudioResult, error) {
		return Speak(ctx, p, text, opts)
	})
}

func (c *Chain) Stream(ctx context.Context, text string) (AudioStream, error) {
	return firstOK(ctx, c, func(p Provider) (AudioStream, error) {
		return p.Stream(ctx, text)
	})
}

// Voices asks each provider that can list voices, in order.
func (c *Chain) Voices(ctx context.Context) ([]Voice, error) {
	var errs []error
	for _, p := range c.providers {
		if vl, ok := p.(VoiceLister); ok {
			voices, err := vl.Voices(ctx)
			if err == nil {
				return voices, nil
			}
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil, ErrNoProviders
	}
	return nil, fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(errs...))
}

// Health succeeds while any provider is healthy.
func (c *Chain) Health(ctx context.Context) error {
	var errs []error
	for _, p := range c.providers {
		err := p.Health(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(errs...))
}

func (c *Chain) Close() error {
	var errs []error
	for _, p := range c.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// Providers returns the chain in fallback order.
func (c *Chain) Providers() []Provider {
	return c.providers
}

func firstOK[T any](ctx context.Context, c *Chain, try func(Provider) (T, error)) (T, error) {
	var (
		zero T
		errs []error
	)
	for i, p := range c.providers {
		out, err := try(p)
		if err == nil {
			if i > 0 {
				c.log.Info("fallback provider used", "index", i)
			}
			return out, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		c.log.Warn("provider failed", "index", i, "error", err)
		errs = append(errs, err)
	}
	return zero, fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(errs...))
}

var (
	_ Speaker     = (*Chain)(nil)
	_ VoiceLister = (*Chain)(nil)
)
