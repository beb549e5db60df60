package observability

import (
	"context"
	"log/slog"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
)

// EvaluationRecorder counts evaluations per path, feeds the score histogram and
// drift monitor, and logs why the fallback was used.
type EvaluationRecorder struct {
	Drift *ScoreDriftMonitor
}

// NewEvaluationRecorder returns a recorder. drift may be nil.
func NewEvaluationRecorder(drift *ScoreDriftMonitor) *EvaluationRecorder {
	return &EvaluationRecorder{Drift: drift}
}

// ObserveEvaluation implements the evaluator's observer hook.
func (r *EvaluationRecorder) ObserveEvaluation(ctx context.Context, path, reason string, err error, score int) {
	EvaluationsTotal.WithLabelValues(path, reason).Inc()
	EvaluationScoreHistogram.WithLabelValues(path).Observe(float64(score))
	if r.Drift != nil {
		r.Drift.Record(path, float64(score))
	}
	if reason == "" {
		return
	}
	lg := obsctx.LoggerFromContext(ctx)
	attrs := []any{slog.String("reason", reason), slog.Int("score", score)}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
		lg.Warn("scoring backend unusable, graded lexically", attrs...)
		return
	}
	lg.Debug("graded lexically", attrs...)
}

// InstrumentedLedger counts quota reservation outcomes.
type InstrumentedLedger struct {
	Next domain.QuotaLedger
}

func (l InstrumentedLedger) ReserveDailyQuestions(ctx context.Context, req domain.QuotaRequest) (domain.QuotaReservation, error) {
	res, err := l.Next.ReserveDailyQuestions(ctx, req)
	ObserveQuota(res.Allowed, err)
	return res, err
}

// InstrumentedPublisher updates the interview counters from lifecycle events and
// counts publish results. A nil Next only counts.
type InstrumentedPublisher struct {
	Next domain.EventPublisher
}

func (p InstrumentedPublisher) Publish(ctx context.Context, evt domain.InterviewEvent) error {
	switch evt.Type {
	case domain.EventInterviewStarted:
		InterviewsStartedTotal.WithLabelValues(evt.SubjectID).Inc()
	case domain.EventInterviewAnswered:
		AnswersSubmittedTotal.WithLabelValues(evt.SubjectID).Inc()
	case domain.EventInterviewCompleted:
		InterviewsCompletedTotal.WithLabelValues(evt.SubjectID).Inc()
	}
	if p.Next == nil {
		return nil
	}
	if err := p.Next.Publish(ctx, evt); err != nil {
		EventsPublishedTotal.WithLabelValues(string(evt.Type), "error").Inc()
		return err
	}
	EventsPublishedTotal.WithLabelValues(string(evt.Type), "ok").Inc()
	return nil
}
