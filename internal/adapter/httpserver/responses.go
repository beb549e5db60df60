package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps an error to its HTTP status, envelope code and client message.
// Persistence failures never leak store details.
func errorStatus(err error) (int, string, string) {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "TIMEOUT", "request timed out"
	}
	switch domain.KindOf(err) {
	case domain.KindInvalidRequest:
		return http.StatusBadRequest, "INVALID_ARGUMENT", err.Error()
	case domain.KindNoQuestionsAvailable:
		return http.StatusUnprocessableEntity, "NO_QUESTIONS_AVAILABLE", err.Error()
	case domain.KindQuotaExceeded:
		return http.StatusTooManyRequests, "QUOTA_EXCEEDED", err.Error()
	case domain.KindInterviewNotFound:
		return http.StatusNotFound, "NOT_FOUND", err.Error()
	case domain.KindAssignmentMissing:
		return http.StatusNotFound, "ASSIGNMENT_MISSING", err.Error()
	case domain.KindInterviewNotActive:
		return http.StatusConflict, "INTERVIEW_NOT_ACTIVE", err.Error()
	case domain.KindQuestionMismatch:
		return http.StatusConflict, "QUESTION_MISMATCH", err.Error()
	case domain.KindPersistenceFailure:
		return http.StatusInternalServerError, "INTERNAL", "internal error"
	case domain.KindUnknown:
	}
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "UNAUTHENTICATED", err.Error()
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "INVALID_ARGUMENT", err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "CONFLICT", err.Error()
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED", err.Error()
	default:
		return http.StatusInternalServerError, "INTERNAL", "internal error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error, details interface{}) {
	status, code, msg := errorStatus(err)
	var qe *domain.QuotaExceededError
	if errors.As(err, &qe) && details == nil {
		details = map[string]int{"used": qe.Used, "remaining": qe.Remaining, "limit": qe.Limit}
	}
	if status >= 500 {
		LoggerFrom(r).Error("request failed", slog.String("code", code), slog.Any("error", err))
	}
	writeJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: msg, Details: details}})
}
