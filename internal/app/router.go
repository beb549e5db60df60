// Package app assembles the HTTP router, readiness checks and use case graph
// from configuration and adapters.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	httpserver "github.com/fairyhunter13/ai-interview-coach/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
// Subject listings are public; interview routes need a caller.
func BuildRouter(cfg config.Config, srv *httpserver.Server, auth *httpserver.TokenAuth) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	perMin := cfg.RateLimitPerMin
	if perMin <= 0 {
		perMin = 60
	}

	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(httpserver.Deadline(timeout))
		v1.Get("/subjects", srv.ListSubjectsHandler())
		v1.Get("/subjects/{subjectId}/questions", srv.ListQuestionsHandler())

		v1.Group(func(pr chi.Router) {
			pr.Use(callerMiddleware(cfg, auth))
			pr.Get("/interviews/{interviewId}", srv.GetInterviewHandler())

			// Mutating endpoints reserve quota or call the scorer.
			pr.Group(func(wr chi.Router) {
				wr.Use(httprate.LimitByIP(perMin, time.Minute))
				wr.Post("/interviews", srv.StartInterviewHandler())
				wr.Post("/interviews/{interviewId}/answers", srv.SubmitAnswerHandler())
			})
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", srv.ReadyzHandler())
	r.Group(func(mr chi.Router) {
		if cfg.MetricsAuthEnabled() {
			mr.Use(httpserver.BasicAuth(cfg.MetricsUsername, cfg.MetricsPasswordHash))
		}
		mr.Handle("/metrics", promhttp.Handler())
	})

	traced := otelhttp.NewHandler(r, "http.server",
		otelhttp.WithSpanNameFormatter(func(_ string, req *http.Request) string {
			return req.Method + " " + req.URL.Path
		}),
	)
	return httpserver.SecurityHeaders(traced)
}

// callerMiddleware resolves the user of interview routes: bearer tokens when a
// secret is configured, the local user outside prod otherwise.
func callerMiddleware(cfg config.Config, auth *httpserver.TokenAuth) func(http.Handler) http.Handler {
	switch {
	case auth != nil:
		return auth.Middleware
	case !cfg.IsProd():
		return httpserver.DevUser(cfg.LocalUser())
	default:
		return httpserver.RequireCaller
	}
}
