package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

type stubLedger struct {
	res domain.QuotaReservation
	err error
}

func (s stubLedger) ReserveDailyQuestions(context.Context, domain.QuotaRequest) (domain.QuotaReservation, error) {
	return s.res, s.err
}

type stubPublisher struct {
	err  error
	seen []domain.EventType
}

func (s *stubPublisher) Publish(_ context.Context, evt domain.InterviewEvent) error {
	s.seen = append(s.seen, evt.Type)
	return s.err
}

func TestInstrumentedLedger_PassesThrough(t *testing.T) {
	want := domain.QuotaReservation{Allowed: true, Used: 5, Remaining: 15, Limit: 20}
	before := testutil.ToFloat64(QuotaReservationsTotal.WithLabelValues("granted"))

	got, err := InstrumentedLedger{Next: stubLedger{res: want}}.ReserveDailyQuestions(context.Background(),
		domain.QuotaRequest{UserID: "u1", Day: time.Now().UTC(), Count: 5, Limit: 20})

	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, before+1, testutil.ToFloat64(QuotaReservationsTotal.WithLabelValues("granted")))
}

func TestInstrumentedPublisher_CountsLifecycle(t *testing.T) {
	next := &stubPublisher{}
	p := InstrumentedPublisher{Next: next}
	started := testutil.ToFloat64(InterviewsStartedTotal.WithLabelValues("go"))
	ok := testutil.ToFloat64(EventsPublishedTotal.WithLabelValues(string(domain.EventInterviewStarted), "ok"))

	require.NoError(t, p.Publish(context.Background(), domain.InterviewEvent{Type: domain.EventInterviewStarted, SubjectID: "go"}))

	assert.Equal(t, []domain.EventType{domain.EventInterviewStarted}, next.seen)
	assert.Equal(t, started+1, testutil.ToFloat64(InterviewsStartedTotal.WithLabelValues("go")))
	assert.Equal(t, ok+1, testutil.ToFloat64(EventsPublishedTotal.WithLabelValues(string(domain.EventInterviewStarted), "ok")))
}

func TestInstrumentedPublisher_ErrorAndNilNext(t *testing.T) {
	boom := errors.New("broker down")
	p := InstrumentedPublisher{Next: &stubPublisher{err: boom}}
	failed := testutil.ToFloat64(EventsPublishedTotal.WithLabelValues(string(domain.EventInterviewCompleted), "error"))

	err := p.Publish(context.Background(), domain.InterviewEvent{Type: domain.EventInterviewCompleted, SubjectID: "go"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, failed+1, testutil.ToFloat64(EventsPublishedTotal.WithLabelValues(string(domain.EventInterviewCompleted), "error")))

	completed := testutil.ToFloat64(InterviewsCompletedTotal.WithLabelValues("sql"))
	require.NoError(t, InstrumentedPublisher{}.Publish(context.Background(), domain.InterviewEvent{Type: domain.EventInterviewCompleted, SubjectID: "sql"}))
	assert.Equal(t, completed+1, testutil.ToFloat64(InterviewsCompletedTotal.WithLabelValues("sql")))
}

func TestEvaluationRecorder(t *testing.T) {
	drift := NewScoreDriftMonitor(2, 1)
	r := NewEvaluationRecorder(drift)
	model := testutil.ToFloat64(EvaluationsTotal.WithLabelValues("model", ""))
	fb := testutil.ToFloat64(EvaluationsTotal.WithLabelValues("fallback", "backend_error"))

	r.ObserveEvaluation(context.Background(), "model", "", nil, 8)
	r.ObserveEvaluation(context.Background(), "fallback", "backend_error", errors.New("timeout"), 3)

	assert.Equal(t, model+1, testutil.ToFloat64(EvaluationsTotal.WithLabelValues("model", "")))
	assert.Equal(t, fb+1, testutil.ToFloat64(EvaluationsTotal.WithLabelValues("fallback", "backend_error")))
	assert.Len(t, drift.recent["model"], 1)
	assert.Len(t, drift.recent["fallback"], 1)
}
