// Package tokencount counts and trims prompt tokens with tiktoken so grading
// prompts stay inside the provider's context budget.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Usage is the token accounting for one grading call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	Model            string
}

// Total returns prompt plus completion tokens.
func (u Usage) Total() int { return u.PromptTokens + u.CompletionTokens }

// Counter caches encodings per normalized model name. Safe for concurrent use.
type Counter struct {
	mu        sync.RWMutex
	encodings map[string]*tiktoken.Tiktoken
}

// NewCounter creates an empty counter.
func NewCounter() *Counter {
	return &Counter{encodings: make(map[string]*tiktoken.Tiktoken)}
}

func (c *Counter) encoding(model string) (*tiktoken.Tiktoken, error) {
	name := normalizeModelName(model)

	c.mu.RLock()
	enc, ok := c.encodings[name]
	c.mu.RUnlock()
	if ok {
		return enc, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodings[name]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		slog.Debug("falling back to cl100k_base encoding", slog.String("model", model), slog.Any("error", err))
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	c.encodings[name] = enc
	return enc, nil
}

// normalizeModelName maps provider model ids onto names tiktoken knows. Models
// without a published tokenizer are approximated with the gpt-4 encoding.
func normalizeModelName(model string) string {
	model = strings.ToLower(model)
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	model = strings.TrimSuffix(model, ":free")

	switch {
	case strings.Contains(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	case strings.HasPrefix(model, "gpt-4o"):
		return "gpt-4o"
	default:
		return "gpt-4"
	}
}

// CountTokens counts the tokens of text under model's encoding.
func (c *Counter) CountTokens(text, model string) (int, error) {
	enc, err := c.encoding(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// CountChatTokens counts a system plus user exchange including the per-message
// framing used by chat-completion APIs.
func (c *Counter) CountChatTokens(system, user, model string) (int, error) {
	enc, err := c.encoding(model)
	if err != nil {
		return 0, err
	}
	const perMessage = 4 // role, separators
	n := 3               // assistant priming
	n += perMessage + len(enc.Encode(system, nil, nil))
	n += perMessage + len(enc.Encode(user, nil, nil))
	return n, nil
}

// Truncate cuts text to at most maxTokens tokens. It reports whether anything
// was removed. Non-positive maxTokens disables truncation.
func (c *Counter) Truncate(text, model string, maxTokens int) (string, bool, error) {
	if maxTokens <= 0 {
		return text, false, nil
	}
	enc, err := c.encoding(model)
	if err != nil {
		return text, false, err
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text, false, nil
	}
	return enc.Decode(tokens[:maxTokens]), true, nil
}

// Usage estimates token usage for one call, falling back to four characters per
// token when no encoding is available.
func (c *Counter) Usage(system, user, completion, model string) Usage {
	prompt, err := c.CountChatTokens(system, user, model)
	if err != nil {
		prompt = (len(system) + len(user)) / 4
	}
	out, err := c.CountTokens(completion, model)
	if err != nil {
		out = len(completion) / 4
	}
	return Usage{PromptTokens: prompt, CompletionTokens: out, Model: model}
}
