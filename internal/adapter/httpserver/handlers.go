package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

// MaxAnswerRunes caps stored answer text.
const MaxAnswerRunes = 10000

const maxBodyBytes = 1 << 20

// Server aggregates handlers dependencies.
type Server struct {
	Cfg        config.Config
	Content    usecase.ContentService
	Sessions   usecase.SessionService
	Queries    usecase.QueryService
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, content usecase.ContentService, sessions usecase.SessionService, queries usecase.QueryService, dbCheck, redisCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Content: content, Sessions: sessions, Queries: queries, DBCheck: dbCheck, RedisCheck: redisCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

type startRequest struct {
	SubjectID     string   `json:"subjectId" validate:"required"`
	QuestionCount *float64 `json:"questionCount" validate:"omitempty,gt=0"`
}

type submitRequest struct {
	QuestionID string `json:"questionId" validate:"required"`
	AnswerText string `json:"answerText" validate:"required"`
}

// acceptsJSON writes 406 and returns false when the client refuses JSON.
func acceptsJSON(w http.ResponseWriter, r *http.Request) bool {
	a := r.Header.Get("Accept")
	if a == "" || strings.Contains(a, "*/*") || strings.Contains(a, "application/json") {
		return true
	}
	writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{
		Code: "INVALID_ARGUMENT", Message: "not acceptable", Details: map[string]string{"accept": a},
	}})
	return false
}

// decodeBody reads a JSON body into dst and validates it.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, normalize func()) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &domain.InvalidRequestError{Reason: "invalid json"}
	}
	if normalize != nil {
		normalize()
	}
	if err := getValidator().Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			fe := ve[0]
			field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
			return &domain.InvalidRequestError{Field: field, Reason: fmt.Sprintf("failed %s validation", fe.Tag())}
		}
		return &domain.InvalidRequestError{Reason: "validation failed"}
	}
	return nil
}

// ListSubjectsHandler returns every subject.
func (s *Server) ListSubjectsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		subjects, err := s.Content.ListSubjects(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"subjects": subjects})
	}
}

// ListQuestionsHandler returns the public questions of one subject.
func (s *Server) ListQuestionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		questions, err := s.Content.ListQuestions(r.Context(), chi.URLParam(r, "subjectId"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
	}
}

// floorCount turns a validated positive count into an int in [1, MaxInt32].
// The selector clamps it further to the subject's inventory.
func floorCount(f float64) int {
	n := math.Floor(f)
	switch {
	case n < 1:
		return 1
	case n > math.MaxInt32:
		return math.MaxInt32
	}
	return int(n)
}

// StartInterviewHandler begins an interview for the authenticated user.
func (s *Server) StartInterviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		var req startRequest
		if err := decodeBody(w, r, &req, func() { req.SubjectID = strings.TrimSpace(req.SubjectID) }); err != nil {
			writeError(w, r, err, nil)
			return
		}
		in := usecase.StartInput{UserID: obsctx.UserIDFromContext(r.Context()), SubjectID: req.SubjectID}
		if req.QuestionCount != nil {
			n := floorCount(*req.QuestionCount)
			in.QuestionCount = &n
		}
		out, err := s.Sessions.Start(r.Context(), in)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

// SubmitAnswerHandler grades the answer to the interview's current question.
func (s *Server) SubmitAnswerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		var req submitRequest
		normalize := func() {
			req.QuestionID = strings.TrimSpace(req.QuestionID)
			req.AnswerText = textx.Clip(textx.SanitizeText(req.AnswerText), MaxAnswerRunes)
		}
		if err := decodeBody(w, r, &req, normalize); err != nil {
			writeError(w, r, err, nil)
			return
		}
		out, err := s.Sessions.SubmitAnswer(r.Context(), usecase.SubmitInput{
			UserID:      obsctx.UserIDFromContext(r.Context()),
			InterviewID: chi.URLParam(r, "interviewId"),
			QuestionID:  req.QuestionID,
			AnswerText:  req.AnswerText,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GetInterviewHandler returns the resume/report view of one interview.
func (s *Server) GetInterviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		view, err := s.Queries.GetByID(r.Context(), chi.URLParam(r, "interviewId"), obsctx.UserIDFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// ReadyzHandler checks the database and, when configured, Redis.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		deps := []struct {
			name string
			fn   func(context.Context) error
		}{{"db", s.DBCheck}, {"redis", s.RedisCheck}}

		checks := make([]check, 0, len(deps))
		st := http.StatusOK
		for _, p := range deps {
			if p.fn == nil {
				continue
			}
			c := check{Name: p.name, OK: true}
			if err := p.fn(ctx); err != nil {
				c.OK, c.Details = false, err.Error()
				st = http.StatusServiceUnavailable
			}
			checks = append(checks, c)
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
