// Package httpserver exposes the interview API over HTTP: chi handlers,
// middleware, bearer-token auth and the error envelope.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
)

const maxRequestIDLen = 64

// accessRecord collects what inner middleware learns about a request so the
// access log written by the outer middleware can report it.
type accessRecord struct {
	userID string
}

type accessKey struct{}

// withUser authenticates r as userID for the handler chain and the access log.
func withUser(r *http.Request, userID string) *http.Request {
	if rec, ok := r.Context().Value(accessKey{}).(*accessRecord); ok {
		rec.userID = userID
	}
	return r.WithContext(obsctx.ContextWithUserID(r.Context(), userID))
}

// Recoverer turns a handler panic into the INTERNAL error envelope.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				LoggerFrom(r).Error("handler panic",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())))
				writeError(w, r, fmt.Errorf("%w: panic in %s %s", domain.ErrInternal, r.Method, r.URL.Path), nil)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID accepts a short client X-Request-Id or mints a ULID, echoes it and
// derives the request logger from it.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get("X-Request-Id")
			if !validRequestID(reqID) {
				reqID = ulid.Make().String()
			}
			w.Header().Set("X-Request-Id", reqID)

			lg := obsctx.LoggerFromContext(r.Context()).With(slog.String("request_id", reqID))
			if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
				lg = lg.With(slog.String("trace_id", sc.TraceID().String()))
			}
			ctx := obsctx.ContextWithRequestID(obsctx.ContextWithLogger(r.Context(), lg), reqID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if c := id[i]; c <= ' ' || c > '~' {
			return false
		}
	}
	return true
}

// Deadline bounds the handler context. Handlers that hit it answer 504 through
// writeError.
func Deadline(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DevUser authenticates every request as userID. Only mounted outside prod when
// no token secret is configured.
func DevUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, withUser(r, userID))
		})
	}
}

// RequireCaller rejects requests that reached it without an authenticated user.
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if obsctx.UserIDFromContext(r.Context()) == "" {
			writeError(w, r, fmt.Errorf("%w: no caller", domain.ErrUnauthenticated), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders sets headers for a JSON API serving per-user data.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// LoggerFrom returns the request logger.
func LoggerFrom(r *http.Request) *slog.Logger {
	return obsctx.LoggerFromContext(r.Context())
}

// AccessLog writes one http_access record per request. The request logger
// already carries request_id and trace_id; the record adds the route, outcome
// and the caller resolved by auth.
func AccessLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &accessRecord{}
			r = r.WithContext(context.WithValue(r.Context(), accessKey{}, rec))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("route", routePattern(r)),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
			}
			if rec.userID != "" {
				attrs = append(attrs, slog.String("user_id", rec.userID))
			}
			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}
			LoggerFrom(r).LogAttrs(r.Context(), level, "http_access", attrs...)
		})
	}
}

// routePattern matches the label used by the HTTP metrics middleware.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
