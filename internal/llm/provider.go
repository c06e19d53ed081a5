// Package llm provides a unified interface for text-generation
// providers (OpenAI, Anthropic) with typed error mapping and a simple
// primary/fallback chain.
package llm

import (
	"context"
	"errors"
)

// Provider names for routing and configuration.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Common errors returned by LLM providers. Callers rely on these to
// tell a billing/quota problem apart from an outage or a missing key.
var (
	ErrNoAPIKey     = errors.New("llm: API key not configured")
	ErrRateLimit    = errors.New("llm: rate limit exceeded")
	ErrProviderDown = errors.New("llm: provider unavailable")
	ErrNoProviders  = errors.New("llm: no providers configured")
)

// Provider is the interface that all text-generation backends implement.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai").
	Name() string

	// Complete sends a system prompt and a user prompt and returns the
	// generated text.
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Chain tries providers in order, falling through on ErrProviderDown.
// Quota and key errors are returned immediately: retrying another
// provider would hide a billing or configuration problem.
type Chain struct {
	providers []Provider
}

// NewChain creates a provider chain. At least one provider is required
// at call time, not construction time.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Name returns the chain's primary provider name.
func (c *Chain) Name() string {
	if len(c.providers) == 0 {
		return "none"
	}
	return c.providers[0].Name()
}

// Complete routes the request through the provider chain.
func (c *Chain) Complete(ctx context.Context, system, prompt string) (string, error) {
	if len(c.providers) == 0 {
		return "", ErrNoProviders
	}

	var lastErr error
	for _, p := range c.providers {
		out, err := p.Complete(ctx, system, prompt)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, ErrRateLimit) || errors.Is(err, ErrNoAPIKey) {
			return "", err
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}
