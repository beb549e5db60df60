package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiProvider calls the Gemini API through the genai SDK.
type GeminiProvider struct {
	model  string
	client *genai.Client
}

// NewGeminiProvider builds a provider. baseURL is optional and only used by tests.
func NewGeminiProvider(ctx context.Context, apiKey, model, baseURL string, timeout time.Duration) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("op=ai.new_gemini: API key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: tracedHTTPClient("gemini", timeout),
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("op=ai.new_gemini: %w", err)
	}
	return &GeminiProvider{model: model, client: client}, nil
}

func (p *GeminiProvider) Name() string  { return "gemini" }
func (p *GeminiProvider) Model() string { return p.model }

func (p *GeminiProvider) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	cfg := &genai.GenerateContentConfig{MaxOutputTokens: int32(maxTokens)}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	result, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(user), cfg)
	if err != nil {
		var apiErr *genai.APIError
		if errors.As(err, &apiErr) {
			return "", &StatusError{Provider: p.Name(), Code: apiErr.Code, Err: err}
		}
		return "", err
	}
	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
