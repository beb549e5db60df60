// Package mocks provides testify mocks for the domain ports.
package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// MockContentRepository is a mock of domain.ContentRepository.
type MockContentRepository struct{ mock.Mock }

func (m *MockContentRepository) ListSubjects(ctx domain.Context) ([]domain.Subject, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]domain.Subject)
	return out, args.Error(1)
}

func (m *MockContentRepository) ListQuestionsBySubject(ctx domain.Context, subjectID string) ([]domain.Question, error) {
	args := m.Called(ctx, subjectID)
	out, _ := args.Get(0).([]domain.Question)
	return out, args.Error(1)
}

func (m *MockContentRepository) GetQuestion(ctx domain.Context, id string) (domain.Question, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Question), args.Error(1)
}

// MockInterviewRepository is a mock of domain.InterviewRepository.
type MockInterviewRepository struct{ mock.Mock }

func (m *MockInterviewRepository) CreateInterview(ctx domain.Context, draft domain.InterviewDraft) (domain.Interview, error) {
	args := m.Called(ctx, draft)
	return args.Get(0).(domain.Interview), args.Error(1)
}

func (m *MockInterviewRepository) GetInterview(ctx domain.Context, id string) (domain.Interview, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Interview), args.Error(1)
}

func (m *MockInterviewRepository) GetAssignedQuestionIDAt(ctx domain.Context, interviewID string, position int) (string, error) {
	args := m.Called(ctx, interviewID, position)
	return args.String(0), args.Error(1)
}

func (m *MockInterviewRepository) ListAssignedQuestions(ctx domain.Context, interviewID string) ([]domain.AssignedQuestion, error) {
	args := m.Called(ctx, interviewID)
	out, _ := args.Get(0).([]domain.AssignedQuestion)
	return out, args.Error(1)
}

func (m *MockInterviewRepository) ListAnswers(ctx domain.Context, interviewID string) ([]domain.Answer, error) {
	args := m.Called(ctx, interviewID)
	out, _ := args.Get(0).([]domain.Answer)
	return out, args.Error(1)
}

func (m *MockInterviewRepository) RecordAnswer(ctx domain.Context, a domain.Answer, p domain.Progress) error {
	return m.Called(ctx, a, p).Error(0)
}

// MockQuotaLedger is a mock of domain.QuotaLedger.
type MockQuotaLedger struct{ mock.Mock }

func (m *MockQuotaLedger) ReserveDailyQuestions(ctx domain.Context, req domain.QuotaRequest) (domain.QuotaReservation, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.QuotaReservation), args.Error(1)
}

// MockScoringBackend is a mock of domain.ScoringBackend.
type MockScoringBackend struct{ mock.Mock }

func (m *MockScoringBackend) Generate(ctx domain.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// MockEventPublisher is a mock of domain.EventPublisher.
type MockEventPublisher struct{ mock.Mock }

func (m *MockEventPublisher) Publish(ctx domain.Context, evt domain.InterviewEvent) error {
	return m.Called(ctx, evt).Error(0)
}
