package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Evaluation paths reported to an EvaluationObserver.
const (
	EvalPathModel    = "model"
	EvalPathFallback = "fallback"
)

// Fallback reasons.
const (
	FallbackNotConfigured = "not_configured"
	FallbackBackendError  = "backend_error"
	FallbackUnparseable   = "unparseable"
)

// Fallback feedback tiers.
const (
	FeedbackStrong      = "Strong answer. You covered most of the key points from the expected solution."
	FeedbackDecent      = "Decent answer. You mentioned some key points, but a few important details were missing."
	FeedbackNeedsWork   = "Needs improvement. Your answer missed many of the key points. Try to be more specific and cover core concepts."
	FeedbackNoReference = "No expert answer was available to evaluate this response."
)

// EvaluationObserver is told which path produced each evaluation.
type EvaluationObserver interface {
	ObserveEvaluation(ctx domain.Context, path, reason string, err error, score int)
}

// Evaluator scores an answer with the model backend and degrades to a
// deterministic lexical scorer. It never fails.
type Evaluator struct {
	Backend  domain.ScoringBackend
	Observer EvaluationObserver
}

// NewEvaluator constructs an Evaluator. backend may be nil.
func NewEvaluator(backend domain.ScoringBackend, obs EvaluationObserver) Evaluator {
	return Evaluator{Backend: backend, Observer: obs}
}

// Evaluate returns a usable evaluation for candidate against reference.
func (e Evaluator) Evaluate(ctx domain.Context, candidate, reference, questionText string) domain.Evaluation {
	if e.Backend == nil {
		return e.fallback(ctx, candidate, reference, FallbackNotConfigured, nil)
	}
	raw, err := e.Backend.Generate(ctx, BuildEvaluationPrompt(questionText, reference, candidate))
	if err != nil {
		return e.fallback(ctx, candidate, reference, FallbackBackendError, err)
	}
	ev, err := ParseEvaluation(raw)
	if err != nil {
		return e.fallback(ctx, candidate, reference, FallbackUnparseable, err)
	}
	if e.Observer != nil {
		e.Observer.ObserveEvaluation(ctx, EvalPathModel, "", nil, ev.Score)
	}
	return ev
}

func (e Evaluator) fallback(ctx domain.Context, candidate, reference, reason string, cause error) domain.Evaluation {
	ev := FallbackEvaluate(candidate, reference)
	if e.Observer != nil {
		e.Observer.ObserveEvaluation(ctx, EvalPathFallback, reason, cause, ev.Score)
	}
	return ev
}

const promptTemplate = `You are grading a technical interview answer.

Compare the candidate answer with the reference answer by meaning, not wording.
Equivalent concepts, synonyms and different phrasing count as correct. Give
partial credit when some key points are present.

Return ONLY a JSON object with this shape and nothing else:
{"score": <integer 0-10>, "feedback": "<2-4 sentences addressed to the candidate>",
 "strengths": ["..."], "expectedPoints": ["..."], "coveredPoints": ["..."], "missingPoints": ["..."]}

Question:
%s

Reference answer:
%s

Candidate answer:
%s
`

// BuildEvaluationPrompt renders the grading instructions for one answer.
func BuildEvaluationPrompt(questionText, reference, candidate string) string {
	q := strings.TrimSpace(questionText)
	if q == "" {
		q = "(not provided)"
	}
	return fmt.Sprintf(promptTemplate, q, strings.TrimSpace(reference), strings.TrimSpace(candidate))
}

const evaluationSchemaJSON = `{
  "type": "object",
  "required": ["score", "feedback"],
  "properties": {
    "score": {"type": ["number", "string"]},
    "feedback": {"type": "string"},
    "strengths": {"type": "array", "items": {"type": "string"}},
    "expectedPoints": {"type": "array", "items": {"type": "string"}},
    "coveredPoints": {"type": "array", "items": {"type": "string"}},
    "missingPoints": {"type": "array", "items": {"type": "string"}}
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func evaluationSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(evaluationSchemaJSON))
		if err != nil {
			schemaErr = err
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://evaluation.json"
		if err := c.AddResource(url, doc); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(url)
	})
	return schema, schemaErr
}

// ErrUnusableEvaluation marks model output that could not become an evaluation.
var ErrUnusableEvaluation = errors.New("unusable evaluation output")

type rawEvaluation struct {
	Score          json.RawMessage `json:"score"`
	Feedback       string          `json:"feedback"`
	Strengths      []string        `json:"strengths"`
	ExpectedPoints []string        `json:"expectedPoints"`
	CoveredPoints  []string        `json:"coveredPoints"`
	MissingPoints  []string        `json:"missingPoints"`
}

// ParseEvaluation extracts the object between the first '{' and the last '}'
// of raw, validates its shape, normalizes the score to [0,10] and requires
// non-empty feedback.
func ParseEvaluation(raw string) (domain.Evaluation, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return domain.Evaluation{}, fmt.Errorf("%w: no json object", ErrUnusableEvaluation)
	}
	body := raw[start : end+1]

	sch, err := evaluationSchema()
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("%w: schema: %v", ErrUnusableEvaluation, err)
	}
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(body))
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("%w: %v", ErrUnusableEvaluation, err)
	}
	if err := sch.Validate(inst); err != nil {
		return domain.Evaluation{}, fmt.Errorf("%w: %v", ErrUnusableEvaluation, err)
	}

	var re rawEvaluation
	if err := json.Unmarshal([]byte(body), &re); err != nil {
		return domain.Evaluation{}, fmt.Errorf("%w: %v", ErrUnusableEvaluation, err)
	}
	score, err := parseScore(re.Score)
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("%w: %v", ErrUnusableEvaluation, err)
	}
	feedback := strings.TrimSpace(re.Feedback)
	if feedback == "" {
		return domain.Evaluation{}, fmt.Errorf("%w: empty feedback", ErrUnusableEvaluation)
	}
	return domain.Evaluation{
		Score:          NormalizeScore(score),
		Feedback:       feedback,
		Strengths:      cleanList(re.Strengths),
		ExpectedPoints: cleanList(re.ExpectedPoints),
		CoveredPoints:  cleanList(re.CoveredPoints),
		MissingPoints:  cleanList(re.MissingPoints),
	}, nil
}

func parseScore(b json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return 0, fmt.Errorf("score: %w", err)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("score %q: %w", s, err)
	}
	return f, nil
}

// NormalizeScore treats values above 10 as a 0-100 scale, clamps to [0,10]
// and rounds to the nearest integer.
func NormalizeScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	if v > 10 {
		v /= 10
	}
	v = math.Max(0, math.Min(10, v))
	return int(math.Round(v))
}

func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9\s]`)

// Tokenize lower-cases s, replaces anything outside [a-z0-9\s] with spaces and
// keeps tokens of at least three characters, duplicates included.
func Tokenize(s string) []string {
	s = nonAlnum.ReplaceAllString(strings.ToLower(s), " ")
	var out []string
	for _, t := range strings.Fields(s) {
		if len(t) >= 3 {
			out = append(out, t)
		}
	}
	return out
}

// FallbackEvaluate scores the fraction of reference tokens that also appear in
// the candidate answer.
func FallbackEvaluate(candidate, reference string) domain.Evaluation {
	expert := Tokenize(reference)
	if len(expert) == 0 {
		return domain.Evaluation{Score: 0, Feedback: FeedbackNoReference}
	}
	have := make(map[string]struct{})
	for _, t := range Tokenize(candidate) {
		have[t] = struct{}{}
	}
	overlap := 0
	for _, t := range expert {
		if _, ok := have[t]; ok {
			overlap++
		}
	}
	score := NormalizeScore(10 * float64(overlap) / float64(len(expert)))

	var feedback string
	switch {
	case score >= 8:
		feedback = FeedbackStrong
	case score >= 5:
		feedback = FeedbackDecent
	default:
		feedback = FeedbackNeedsWork
	}
	return domain.Evaluation{Score: score, Feedback: feedback}
}
