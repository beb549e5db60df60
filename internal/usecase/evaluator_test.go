package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain/mocks"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

type observed struct {
	path, reason string
	score        int
}

type recordingObserver struct{ calls []observed }

func (o *recordingObserver) ObserveEvaluation(_ domain.Context, path, reason string, _ error, score int) {
	o.calls = append(o.calls, observed{path, reason, score})
}

func TestTokenize(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"binary", "search", "has", "log", "time", "complexity"},
		usecase.Tokenize("binary search has O(log n) time complexity"))
	assert.Equal(t, []string{"map", "map", "goroutines"}, usecase.Tokenize("Map, map & goroutines!"))
	assert.Empty(t, usecase.Tokenize("a b c -- ?!"))
}

func TestFallbackEvaluate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name      string
		candidate string
		reference string
		score     int
		feedback  string
	}{
		{"binary search example", "binary search runs in log n time", "binary search has O(log n) time complexity", 7, usecase.FeedbackDecent},
		{"full coverage", "channels synchronize goroutines", "Goroutines synchronize via channels", 8, usecase.FeedbackStrong},
		{"exact", "a mutex guards shared state", "a mutex guards shared state", 10, usecase.FeedbackStrong},
		{"nothing in common", "I do not know", "garbage collection is concurrent", 0, usecase.FeedbackNeedsWork},
		{"empty reference", "anything", "a b", 0, usecase.FeedbackNoReference},
		{"duplicates weigh in", "cache", "cache cache eviction", 7, usecase.FeedbackDecent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := usecase.FallbackEvaluate(tc.candidate, tc.reference)
			assert.Equal(t, tc.score, ev.Score)
			assert.Equal(t, tc.feedback, ev.Feedback)
		})
	}
}

func TestFallbackEvaluate_Deterministic(t *testing.T) {
	t.Parallel()
	a := usecase.FallbackEvaluate("binary search runs in log n time", "binary search has O(log n) time complexity")
	b := usecase.FallbackEvaluate("binary search runs in log n time", "binary search has O(log n) time complexity")
	assert.Equal(t, a, b)
}

func TestNormalizeScore(t *testing.T) {
	t.Parallel()
	cases := map[float64]int{
		-3:   0,
		0:    0,
		4.4:  4,
		4.5:  5,
		10:   10,
		85:   9,
		100:  10,
		1000: 10,
	}
	for in, want := range cases {
		assert.Equal(t, want, usecase.NormalizeScore(in), "input %v", in)
	}
}

func TestParseEvaluation(t *testing.T) {
	t.Parallel()
	t.Run("wrapped in prose", func(t *testing.T) {
		ev, err := usecase.ParseEvaluation("Sure! Here it is:\n```json\n{\"score\": 7, \"feedback\": \" Good coverage. \", \"strengths\": [\"clear\", \" \"], \"missingPoints\": [\"edge cases\"]}\n```")
		require.NoError(t, err)
		assert.Equal(t, 7, ev.Score)
		assert.Equal(t, "Good coverage.", ev.Feedback)
		assert.Equal(t, []string{"clear"}, ev.Strengths)
		assert.Equal(t, []string{"edge cases"}, ev.MissingPoints)
	})
	t.Run("percent scale", func(t *testing.T) {
		ev, err := usecase.ParseEvaluation(`{"score": 72, "feedback": "ok"}`)
		require.NoError(t, err)
		assert.Equal(t, 7, ev.Score)
	})
	t.Run("string score", func(t *testing.T) {
		ev, err := usecase.ParseEvaluation(`{"score": "9.6", "feedback": "great"}`)
		require.NoError(t, err)
		assert.Equal(t, 10, ev.Score)
	})
	t.Run("negative clamps", func(t *testing.T) {
		ev, err := usecase.ParseEvaluation(`{"score": -2, "feedback": "poor"}`)
		require.NoError(t, err)
		assert.Equal(t, 0, ev.Score)
	})
	for name, raw := range map[string]string{
		"no object":          "I cannot grade this.",
		"missing feedback":   `{"score": 5}`,
		"blank feedback":     `{"score": 5, "feedback": "   "}`,
		"missing score":      `{"feedback": "fine"}`,
		"bad list":           `{"score": 5, "feedback": "fine", "strengths": "one"}`,
		"non numeric string": `{"score": "high", "feedback": "fine"}`,
		"broken json":        `{"score": 5, "feedback": }`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := usecase.ParseEvaluation(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, usecase.ErrUnusableEvaluation)
		})
	}
}

func TestBuildEvaluationPrompt(t *testing.T) {
	t.Parallel()
	p := usecase.BuildEvaluationPrompt("What is a slice?", "A view over an array.", "A dynamic array.")
	assert.Contains(t, p, "What is a slice?")
	assert.Contains(t, p, "A view over an array.")
	assert.Contains(t, p, "A dynamic array.")
	assert.Contains(t, p, `"score"`)
	assert.Contains(t, usecase.BuildEvaluationPrompt("", "r", "c"), "(not provided)")
}

func TestEvaluator_ModelPath(t *testing.T) {
	t.Parallel()
	backend := &mocks.MockScoringBackend{}
	backend.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return len(p) > 0
	})).Return(`{"score": 8, "feedback": "Solid."}`, nil)
	obs := &recordingObserver{}

	ev := usecase.NewEvaluator(backend, obs).Evaluate(context.Background(), "cand", "ref", "q")
	assert.Equal(t, 8, ev.Score)
	assert.Equal(t, "Solid.", ev.Feedback)
	assert.Equal(t, []observed{{usecase.EvalPathModel, "", 8}}, obs.calls)
	backend.AssertExpectations(t)
}

func TestEvaluator_Fallbacks(t *testing.T) {
	t.Parallel()
	const cand, ref = "binary search runs in log n time", "binary search has O(log n) time complexity"
	want := usecase.FallbackEvaluate(cand, ref)

	t.Run("not configured", func(t *testing.T) {
		obs := &recordingObserver{}
		ev := usecase.NewEvaluator(nil, obs).Evaluate(context.Background(), cand, ref, "")
		assert.Equal(t, want, ev)
		assert.Equal(t, []observed{{usecase.EvalPathFallback, usecase.FallbackNotConfigured, want.Score}}, obs.calls)
	})
	t.Run("backend error", func(t *testing.T) {
		backend := &mocks.MockScoringBackend{}
		backend.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("503"))
		obs := &recordingObserver{}
		ev := usecase.NewEvaluator(backend, obs).Evaluate(context.Background(), cand, ref, "")
		assert.Equal(t, want, ev)
		assert.Equal(t, usecase.FallbackBackendError, obs.calls[0].reason)
	})
	t.Run("unparseable", func(t *testing.T) {
		backend := &mocks.MockScoringBackend{}
		backend.On("Generate", mock.Anything, mock.Anything).Return(`{"score": 5, "feedback": ""}`, nil)
		obs := &recordingObserver{}
		ev := usecase.NewEvaluator(backend, obs).Evaluate(context.Background(), cand, ref, "")
		assert.Equal(t, want, ev)
		assert.Equal(t, usecase.FallbackUnparseable, obs.calls[0].reason)
	})
}
