// Package ai adapts hosted LLM providers into the scoring backend used to grade
// interview answers.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// SystemPrompt frames every grading request.
const SystemPrompt = "You are a strict but fair technical interviewer. Grade the candidate answer against the reference answer and respond with a single JSON object only."

// Provider is one hosted chat model.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// ErrEmptyCompletion is returned when a provider answers without any text.
var ErrEmptyCompletion = errors.New("empty completion")

// StatusError is a provider HTTP failure. 4xx other than 429 are not retried.
type StatusError struct {
	Provider string
	Code     int
	Err      error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status %d: %v", e.Provider, e.Code, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500 || e.Code == 0
}

// tracedHTTPClient returns an http.Client whose spans are named after the provider.
func tracedHTTPClient(provider string, timeout time.Duration) *http.Client {
	transport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("%s %s %s", provider, r.Method, r.URL.Host)
		}),
	)
	return &http.Client{Timeout: timeout, Transport: transport}
}
