package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider and operation",
		},
		[]string{"provider", "operation"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "operation"},
	)
	AIRequestFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_request_failures_total",
			Help: "AI requests that failed after retries, by provider and reason",
		},
		[]string{"provider", "reason"},
	)

	InterviewsStartedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interviews_started_total",
			Help: "Interviews created, by subject",
		},
		[]string{"subject"},
	)
	AnswersSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "answers_submitted_total",
			Help: "Answers recorded, by subject",
		},
		[]string{"subject"},
	)
	InterviewsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interviews_completed_total",
			Help: "Interviews that reached their last question, by subject",
		},
		[]string{"subject"},
	)
	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Interview lifecycle events by type and result",
		},
		[]string{"type", "result"},
	)

	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluations_total",
			Help: "Answer evaluations by path (model or fallback) and fallback reason",
		},
		[]string{"path", "reason"},
	)
	EvaluationScoreHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evaluation_score",
			Help:    "Distribution of answer scores ([0,10])",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
		[]string{"path"},
	)
	EvaluationScoreDrift = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "evaluation_score_drift",
			Help: "Absolute drift of the rolling mean score from its baseline",
		},
		[]string{"path"},
	)

	QuotaReservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_reservations_total",
			Help: "Daily quota reservations by result (granted, rejected, error)",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

// InitMetrics registers every collector with the default registry. Safe to call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AIRequestsTotal,
			AIRequestDuration,
			AIRequestFailuresTotal,
			InterviewsStartedTotal,
			AnswersSubmittedTotal,
			InterviewsCompletedTotal,
			EventsPublishedTotal,
			EvaluationsTotal,
			EvaluationScoreHistogram,
			EvaluationScoreDrift,
			QuotaReservationsTotal,
		)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// ObserveQuota records the outcome of one reservation attempt.
func ObserveQuota(allowed bool, err error) {
	switch {
	case err != nil:
		QuotaReservationsTotal.WithLabelValues("error").Inc()
	case allowed:
		QuotaReservationsTotal.WithLabelValues("granted").Inc()
	default:
		QuotaReservationsTotal.WithLabelValues("rejected").Inc()
	}
}
