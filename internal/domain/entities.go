// Package domain holds the interview entities, the ports the use cases depend on,
// and the error taxonomy shared by every layer.
package domain

import (
	"context"
	"time"
)

// Subject is reference data owned by the content store.
type Subject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Question is the full projection and includes the reference answer.
// Invariant: a question belongs to exactly one subject.
type Question struct {
	ID           string
	SubjectID    string
	QuestionText string
	ExpertAnswer string
	CreatedAt    time.Time
}

// PublicQuestion withholds the reference answer and is safe to send before submission.
type PublicQuestion struct {
	ID           string `json:"id"`
	SubjectID    string `json:"subjectId"`
	QuestionText string `json:"questionText"`
}

// Public projects q without its reference answer.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{ID: q.ID, SubjectID: q.SubjectID, QuestionText: q.QuestionText}
}

// InterviewStatus is the persisted state of an interview.
type InterviewStatus string

const (
	InterviewActive    InterviewStatus = "active"
	InterviewCompleted InterviewStatus = "completed"
)

// Interview tracks one sequence of questions.
// Invariants: 0 <= CurrentIndex <= TotalQuestions; Status is completed iff
// CurrentIndex == TotalQuestions.
type Interview struct {
	ID             string
	UserID         string
	SubjectID      string
	TotalQuestions int
	CurrentIndex   int
	Status         InterviewStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsActive reports whether answers may still be submitted.
func (iv Interview) IsActive() bool { return iv.Status == InterviewActive }

// InterviewDraft is everything needed to persist a new interview and its assignment.
type InterviewDraft struct {
	UserID      string
	SubjectID   string
	QuestionIDs []string
}

// AssignedQuestion is one position of an interview's fixed question order.
type AssignedQuestion struct {
	Position   int
	QuestionID string
}

// Answer is the append-only record of one answered question.
type Answer struct {
	ID          string
	InterviewID string
	QuestionID  string
	AnswerText  string
	Score       int
	Feedback    string
	CreatedAt   time.Time
}

// Progress is the interview position written together with an answer.
// ExpectedIndex guards against a concurrent submission for the same position.
type Progress struct {
	ExpectedIndex int
	CurrentIndex  int
	Status        InterviewStatus
}

// Evaluation is the scorer output for one answer. Score is within [0,10] and
// Feedback is never empty. The key-point lists are best effort.
type Evaluation struct {
	Score          int      `json:"score"`
	Feedback       string   `json:"feedback"`
	Strengths      []string `json:"strengths,omitempty"`
	ExpectedPoints []string `json:"expectedPoints,omitempty"`
	CoveredPoints  []string `json:"coveredPoints,omitempty"`
	MissingPoints  []string `json:"missingPoints,omitempty"`
}

// Review joins a question with the submitted answer and its evaluation.
type Review struct {
	Question        PublicQuestion `json:"question"`
	UserAnswer      string         `json:"userAnswer"`
	ReferenceAnswer string         `json:"referenceAnswer"`
	Evaluation      Evaluation     `json:"evaluation"`
}

// QuotaReservation is the outcome of one atomic reserve call.
type QuotaReservation struct {
	Allowed   bool
	Used      int
	Remaining int
	Limit     int
}

// QuotaRequest asks the ledger to grant Count questions for UserID on Day.
type QuotaRequest struct {
	UserID string
	Day    time.Time
	Count  int
	Limit  int
}

// EventType names interview lifecycle events.
type EventType string

const (
	EventInterviewStarted   EventType = "interview.started"
	EventInterviewAnswered  EventType = "interview.answered"
	EventInterviewCompleted EventType = "interview.completed"
)

// InterviewEvent is published after a state change has been committed.
type InterviewEvent struct {
	Type           EventType `json:"type"`
	InterviewID    string    `json:"interviewId"`
	UserID         string    `json:"userId"`
	SubjectID      string    `json:"subjectId"`
	QuestionID     string    `json:"questionId,omitempty"`
	Score          *int      `json:"score,omitempty"`
	QuestionIndex  int       `json:"questionIndex"`
	TotalQuestions int       `json:"totalQuestions"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// Repositories (ports)

// ContentRepository reads subjects and questions.
type ContentRepository interface {
	ListSubjects(ctx Context) ([]Subject, error)
	ListQuestionsBySubject(ctx Context, subjectID string) ([]Question, error)
	// GetQuestion fails with ErrNotFound when absent.
	GetQuestion(ctx Context, id string) (Question, error)
}

// InterviewRepository persists the interview aggregate.
type InterviewRepository interface {
	// CreateInterview stores the interview and its positional assignment atomically.
	CreateInterview(ctx Context, draft InterviewDraft) (Interview, error)
	GetInterview(ctx Context, id string) (Interview, error)
	GetAssignedQuestionIDAt(ctx Context, interviewID string, position int) (string, error)
	ListAssignedQuestions(ctx Context, interviewID string) ([]AssignedQuestion, error)
	ListAnswers(ctx Context, interviewID string) ([]Answer, error)
	// RecordAnswer appends the answer and advances progress in one atomic step.
	// It fails with ErrConflict if the interview is no longer at p.ExpectedIndex
	// or the question was already answered.
	RecordAnswer(ctx Context, a Answer, p Progress) error
}

// QuotaLedger reserves daily question capacity in a single atomic operation.
type QuotaLedger interface {
	ReserveDailyQuestions(ctx Context, req QuotaRequest) (QuotaReservation, error)
}

// ScoringBackend produces raw model text for a prompt. A nil backend is valid
// and means the lexical fallback grades every answer.
type ScoringBackend interface {
	Generate(ctx Context, prompt string) (string, error)
}

// EventPublisher emits interview lifecycle events.
type EventPublisher interface {
	Publish(ctx Context, evt InterviewEvent) error
}

// Context is an alias so ports read the same way across adapters and use cases.
type Context = context.Context
