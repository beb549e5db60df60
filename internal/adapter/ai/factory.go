package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/service/ratelimiter"
)

// NewProvider builds the provider selected by cfg.ScoringProvider.
func NewProvider(ctx context.Context, cfg config.Config) (Provider, error) {
	switch strings.ToLower(cfg.ScoringProvider) {
	case "openai":
		return NewOpenAIProvider("openai", cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.ScoringTimeout)
	case "openrouter":
		return NewOpenAIProvider("openrouter", cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, cfg.OpenRouterModel, cfg.ScoringTimeout)
	case "anthropic":
		return NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.ScoringTimeout)
	case "gemini":
		return NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, "", cfg.ScoringTimeout)
	default:
		return nil, fmt.Errorf("op=ai.new_provider: unknown scoring provider %q", cfg.ScoringProvider)
	}
}

// NewScoringBackendFromConfig returns nil without error when scoring is disabled,
// leaving every answer to the lexical grader. limiter may be nil.
func NewScoringBackendFromConfig(ctx context.Context, cfg config.Config, limiter *ratelimiter.TokenBucket) (*ScoringBackend, error) {
	if !cfg.ScoringEnabled() {
		return nil, nil
	}
	p, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	maxElapsed, initial, maxInterval, mult := cfg.GetAIBackoffConfig()
	opts := ScoringOptions{
		Timeout:         cfg.ScoringTimeout,
		MaxPromptTokens: cfg.ScoringMaxPromptTokens,
		MaxOutputTokens: cfg.ScoringMaxOutputTokens,
		Backoff: BackoffConfig{
			MaxElapsedTime:  maxElapsed,
			InitialInterval: initial,
			MaxInterval:     maxInterval,
			Multiplier:      mult,
		},
		Breaker: NewCircuitBreaker(p.Name(), cfg.AIBreakerThreshold, cfg.AIBreakerCooldown),
	}
	if limiter != nil && cfg.ScoringRatePerMin > 0 {
		limiter.SetBucket("scoring:"+p.Name(), ratelimiter.PerMinute(cfg.ScoringRatePerMin))
		opts.Limiter = limiter
	}
	return NewScoringBackend(p, opts), nil
}
