package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Name tags which backend produced a response.
type Name string

const (
	Primary  Name = "primary"
	Fallback Name = "fallback"
)

// Response is the normalized result of a generation call.
type Response struct {
	Content  string
	Provider Name
}

// Options tweak a single Generate call.
type Options struct {
	// TruncateInput proportionally samples the user prompt down to
	// MaxInputChars when it exceeds that ceiling.
	TruncateInput bool
}

var (
	ErrNotConfigured = errors.New("no text-generation backend configured")
	ErrEmptyContent  = errors.New("backend returned empty content")
	ErrExhausted     = errors.New("all text-generation backends failed")
)

// Backend is one concrete text-generation API. Implementations normalize
// their wire format to a plain content string.
type Backend interface {
	Name() Name
	Configured() bool
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// Provider tries an ordered list of backends until one succeeds. The
// attempt order is fixed at construction so the fallback cascade stays
// auditable and testable in isolation.
type Provider struct {
	attempts []Backend
	logger   *slog.Logger
}

// New builds a provider over the given attempt order. Unconfigured
// backends are kept in the list and skipped at call time, so a credential
// added via environment between runs takes effect without rewiring.
func New(attempts []Backend, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		attempts: attempts,
		logger:   logger.With("component", "provider"),
	}
}

// Generate sends the prompt pair to the first configured backend and falls
// through to the next on any error. The substitution is silent to the
// caller except for the Provider tag on the response.
func (p *Provider) Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, opts *Options) (*Response, error) {
	truncated := false
	if opts != nil && opts.TruncateInput && len(userPrompt) > MaxInputChars {
		before := len(userPrompt)
		userPrompt = SampleToBudget(userPrompt, MaxInputChars)
		truncated = true
		p.logger.Info("input truncated by proportional sampling",
			"chars_before", before,
			"chars_after", len(userPrompt),
			"ceiling", MaxInputChars)
	}

	p.logger.Debug("starting generation",
		"system_prompt_chars", len(systemPrompt),
		"user_prompt_chars", len(userPrompt),
		"max_tokens", maxTokens,
		"truncated", truncated,
		"attempts_available", len(p.attempts))

	var lastErr error
	tried := 0
	for _, b := range p.attempts {
		if !b.Configured() {
			p.logger.Debug("skipping unconfigured backend", "backend", b.Name())
			continue
		}
		tried++

		content, err := b.Complete(ctx, systemPrompt, userPrompt, maxTokens)
		if err == nil && content == "" {
			err = ErrEmptyContent
		}
		if err != nil {
			lastErr = err
			p.logger.Warn("backend failed, falling through",
				"backend", b.Name(),
				"error", err)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		p.logger.Info("generation complete",
			"backend", b.Name(),
			"fallback_used", b.Name() != Primary,
			"response_chars", len(content))
		return &Response{Content: content, Provider: b.Name()}, nil
	}

	if tried == 0 {
		return nil, ErrNotConfigured
	}
	return nil, fmt.Errorf("%w: %w", ErrExhausted, lastErr)
}
