package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/service/ratelimiter"
)

// ErrCircuitOpen is returned while the provider's breaker is open.
var ErrCircuitOpen = errors.New("scoring circuit open")

// BackoffConfig shapes the retry schedule around a single grading call.
type BackoffConfig struct {
	MaxElapsedTime  time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// ScoringOptions tune a ScoringBackend. Zero values disable the matching feature.
type ScoringOptions struct {
	Timeout         time.Duration
	MaxPromptTokens int
	MaxOutputTokens int
	Backoff         BackoffConfig
	Breaker         *CircuitBreaker
	Limiter         ratelimiter.Limiter
	Counter         *tokencount.Counter
}

// ScoringBackend turns a Provider into the domain scoring port. Each call goes
// through the rate limiter, the circuit breaker, prompt truncation and retries.
type ScoringBackend struct {
	provider Provider
	opts     ScoringOptions
}

var _ domain.ScoringBackend = (*ScoringBackend)(nil)

// NewScoringBackend wraps p. A nil Counter gets a fresh one and a nil Breaker
// gets one with default thresholds.
func NewScoringBackend(p Provider, opts ScoringOptions) *ScoringBackend {
	if opts.Counter == nil {
		opts.Counter = tokencount.NewCounter()
	}
	if opts.Breaker == nil {
		opts.Breaker = NewCircuitBreaker(p.Name(), 0, 0)
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = 600
	}
	return &ScoringBackend{provider: p, opts: opts}
}

// Provider returns the wrapped provider.
func (s *ScoringBackend) Provider() Provider { return s.provider }

func (s *ScoringBackend) backoff() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	b := s.opts.Backoff
	if b.MaxElapsedTime > 0 {
		expo.MaxElapsedTime = b.MaxElapsedTime
	}
	if b.InitialInterval > 0 {
		expo.InitialInterval = b.InitialInterval
	}
	if b.MaxInterval > 0 {
		expo.MaxInterval = b.MaxInterval
	}
	if b.Multiplier > 0 {
		expo.Multiplier = b.Multiplier
	}
	return expo
}

// Generate sends prompt to the provider and returns its text with code fences removed.
func (s *ScoringBackend) Generate(ctx context.Context, prompt string) (string, error) {
	name, model := s.provider.Name(), s.provider.Model()
	lg := obsctx.LoggerFromContext(ctx).With(slog.String("provider", name), slog.String("model", model))

	if s.opts.Limiter != nil {
		allowed, retryAfter, err := s.opts.Limiter.Allow(ctx, "scoring:"+name, 1)
		if err != nil {
			lg.Warn("scoring limiter unavailable, allowing call", slog.Any("error", err))
		}
		if !allowed {
			observability.AIRequestFailuresTotal.WithLabelValues(name, "throttled").Inc()
			return "", fmt.Errorf("op=ai.generate: %w: retry after %s", domain.ErrRateLimited, retryAfter)
		}
	}

	if !s.opts.Breaker.ShouldAttempt() {
		observability.AIRequestFailuresTotal.WithLabelValues(name, "circuit_open").Inc()
		return "", fmt.Errorf("op=ai.generate: %w", ErrCircuitOpen)
	}

	if trimmed, cut, terr := s.opts.Counter.Truncate(prompt, model, s.opts.MaxPromptTokens); terr == nil && cut {
		lg.Warn("grading prompt truncated", slog.Int("max_tokens", s.opts.MaxPromptTokens))
		prompt = trimmed
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	var out string
	op := func() error {
		start := time.Now()
		text, err := s.provider.Complete(ctx, SystemPrompt, prompt, s.opts.MaxOutputTokens)
		observability.AIRequestsTotal.WithLabelValues(name, "grade").Inc()
		observability.AIRequestDuration.WithLabelValues(name, "grade").Observe(time.Since(start).Seconds())
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) && !se.Retryable() {
				lg.Warn("ai provider 4xx", slog.Int("status", se.Code), slog.Any("error", err))
				return backoff.Permanent(err)
			}
			if errors.Is(err, ErrEmptyCompletion) {
				return backoff.Permanent(err)
			}
			lg.Debug("ai provider call failed, retrying", slog.Any("error", err))
			return err
		}
		out = text
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(s.backoff(), ctx)); err != nil {
		s.opts.Breaker.RecordFailure()
		observability.AIRequestFailuresTotal.WithLabelValues(name, failureReason(err)).Inc()
		return "", fmt.Errorf("op=ai.generate: %w", err)
	}
	s.opts.Breaker.RecordSuccess()

	usage := s.opts.Counter.Usage(SystemPrompt, prompt, out, model)
	lg.Debug("answer graded by model",
		slog.Int("prompt_tokens", usage.PromptTokens),
		slog.Int("completion_tokens", usage.CompletionTokens))
	return CleanResponse(out), nil
}

func failureReason(err error) string {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("status_%d", se.Code)
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrEmptyCompletion):
		return "empty"
	default:
		return "error"
	}
}
