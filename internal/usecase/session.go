package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/observability"
)

// StartInput is a validated request to begin an interview.
type StartInput struct {
	UserID        string
	SubjectID     string
	QuestionCount *int
}

// StartOutput is returned by SessionService.Start.
type StartOutput struct {
	InterviewID    string                `json:"interviewId"`
	Question       domain.PublicQuestion `json:"question"`
	QuestionIndex  int                   `json:"questionIndex"`
	TotalQuestions int                   `json:"totalQuestions"`
}

// SubmitInput is a validated answer for the interview's current question.
type SubmitInput struct {
	UserID      string
	InterviewID string
	QuestionID  string
	AnswerText  string
}

// SubmitOutput is returned by SessionService.SubmitAnswer.
type SubmitOutput struct {
	Evaluation     domain.Evaluation      `json:"evaluation"`
	Review         domain.Review          `json:"review"`
	Done           bool                   `json:"done"`
	NextQuestion   *domain.PublicQuestion `json:"nextQuestion,omitempty"`
	QuestionIndex  int                    `json:"questionIndex"`
	TotalQuestions int                    `json:"totalQuestions"`
}

// SessionService owns the interview lifecycle: start, answer, advance, complete.
type SessionService struct {
	Content    domain.ContentRepository
	Interviews domain.InterviewRepository
	Quota      QuotaGuard
	Selector   QuestionSelector
	Evaluator  Evaluator
	Events     domain.EventPublisher
	Now        func() time.Time
}

// NewSessionService constructs a SessionService. events may be nil.
func NewSessionService(content domain.ContentRepository, interviews domain.InterviewRepository, quota QuotaGuard, selector QuestionSelector, evaluator Evaluator, events domain.EventPublisher) SessionService {
	return SessionService{
		Content:    content,
		Interviews: interviews,
		Quota:      quota,
		Selector:   selector,
		Evaluator:  evaluator,
		Events:     events,
		Now:        time.Now,
	}
}

// Start reserves quota, assigns a shuffled question order and returns question 1.
func (s SessionService) Start(ctx domain.Context, in StartInput) (StartOutput, error) {
	subjectID := strings.TrimSpace(in.SubjectID)
	if subjectID == "" {
		return StartOutput{}, &domain.InvalidRequestError{Field: "subjectId", Reason: "is required"}
	}
	if in.QuestionCount != nil && *in.QuestionCount <= 0 {
		return StartOutput{}, &domain.InvalidRequestError{Field: "questionCount", Reason: "must be a positive number"}
	}
	if in.UserID == "" {
		return StartOutput{}, &domain.InvalidRequestError{Field: "userId", Reason: "is required"}
	}

	inventory, err := s.Content.ListQuestionsBySubject(ctx, subjectID)
	if err != nil {
		return StartOutput{}, domain.Persistence("question.list", err)
	}
	if len(inventory) == 0 {
		return StartOutput{}, &domain.NoQuestionsAvailableError{SubjectID: subjectID}
	}
	count := s.Selector.EffectiveCount(in.QuestionCount, len(inventory))

	res, err := s.Quota.Reserve(ctx, in.UserID, count)
	if err != nil {
		return StartOutput{}, err
	}
	if !res.Allowed {
		return StartOutput{}, &domain.QuotaExceededError{Used: res.Used, Remaining: res.Remaining, Limit: res.Limit}
	}

	picked, err := s.Selector.Select(subjectID, count, inventory)
	if err != nil {
		return StartOutput{}, err
	}
	iv, err := s.Interviews.CreateInterview(ctx, domain.InterviewDraft{
		UserID:      in.UserID,
		SubjectID:   subjectID,
		QuestionIDs: QuestionIDs(picked),
	})
	if err != nil {
		return StartOutput{}, domain.Persistence("interview.create", err)
	}

	s.publish(ctx, domain.InterviewEvent{
		Type:           domain.EventInterviewStarted,
		InterviewID:    iv.ID,
		UserID:         iv.UserID,
		SubjectID:      iv.SubjectID,
		QuestionIndex:  1,
		TotalQuestions: iv.TotalQuestions,
	})

	return StartOutput{
		InterviewID:    iv.ID,
		Question:       picked[0].Public(),
		QuestionIndex:  1,
		TotalQuestions: iv.TotalQuestions,
	}, nil
}

// SubmitAnswer grades the answer to the current question, records it together
// with the advanced position and returns the next question unless done.
func (s SessionService) SubmitAnswer(ctx domain.Context, in SubmitInput) (SubmitOutput, error) {
	in.QuestionID = strings.TrimSpace(in.QuestionID)
	in.AnswerText = strings.TrimSpace(in.AnswerText)
	if in.InterviewID == "" {
		return SubmitOutput{}, &domain.InvalidRequestError{Field: "interviewId", Reason: "is required"}
	}
	if in.QuestionID == "" {
		return SubmitOutput{}, &domain.InvalidRequestError{Field: "questionId", Reason: "is required"}
	}
	if in.AnswerText == "" {
		return SubmitOutput{}, &domain.InvalidRequestError{Field: "answerText", Reason: "is required"}
	}

	iv, err := loadOwnedInterview(ctx, s.Interviews, in.InterviewID, in.UserID)
	if err != nil {
		return SubmitOutput{}, err
	}
	if !iv.IsActive() {
		return SubmitOutput{}, &domain.InterviewNotActiveError{InterviewID: iv.ID}
	}
	expected, err := s.assignedAt(ctx, iv.ID, iv.CurrentIndex)
	if err != nil {
		return SubmitOutput{}, err
	}
	if expected != in.QuestionID {
		return SubmitOutput{}, &domain.QuestionMismatchError{Expected: expected, Got: in.QuestionID}
	}

	// Evaluation and persistence run to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	q, err := s.Content.GetQuestion(ctx, expected)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return SubmitOutput{}, &domain.AssignmentMissingError{InterviewID: iv.ID, Position: iv.CurrentIndex}
		}
		return SubmitOutput{}, domain.Persistence("question.get", err)
	}
	ev := s.Evaluator.Evaluate(ctx, in.AnswerText, q.ExpertAnswer, q.QuestionText)

	next := iv.CurrentIndex + 1
	done := next >= iv.TotalQuestions
	status := domain.InterviewActive
	if done {
		status = domain.InterviewCompleted
	}
	err = s.Interviews.RecordAnswer(ctx, domain.Answer{
		InterviewID: iv.ID,
		QuestionID:  q.ID,
		AnswerText:  in.AnswerText,
		Score:       ev.Score,
		Feedback:    ev.Feedback,
	}, domain.Progress{ExpectedIndex: iv.CurrentIndex, CurrentIndex: next, Status: status})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Another submission advanced the interview first.
			return SubmitOutput{}, &domain.QuestionMismatchError{Expected: expected, Got: in.QuestionID}
		}
		return SubmitOutput{}, domain.Persistence("interview.record_answer", err)
	}

	out := SubmitOutput{
		Evaluation: ev,
		Review: domain.Review{
			Question:        q.Public(),
			UserAnswer:      in.AnswerText,
			ReferenceAnswer: q.ExpertAnswer,
			Evaluation:      ev,
		},
		Done:           done,
		QuestionIndex:  iv.TotalQuestions,
		TotalQuestions: iv.TotalQuestions,
	}
	score := ev.Score
	s.publish(ctx, domain.InterviewEvent{
		Type:           domain.EventInterviewAnswered,
		InterviewID:    iv.ID,
		UserID:         iv.UserID,
		SubjectID:      iv.SubjectID,
		QuestionID:     q.ID,
		Score:          &score,
		QuestionIndex:  next,
		TotalQuestions: iv.TotalQuestions,
	})
	if done {
		s.publish(ctx, domain.InterviewEvent{
			Type:           domain.EventInterviewCompleted,
			InterviewID:    iv.ID,
			UserID:         iv.UserID,
			SubjectID:      iv.SubjectID,
			QuestionIndex:  iv.TotalQuestions,
			TotalQuestions: iv.TotalQuestions,
		})
		return out, nil
	}

	out.QuestionIndex = next + 1
	nextID, err := s.assignedAt(ctx, iv.ID, next)
	if err != nil {
		return SubmitOutput{}, err
	}
	nq, err := s.Content.GetQuestion(ctx, nextID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return SubmitOutput{}, &domain.AssignmentMissingError{InterviewID: iv.ID, Position: next}
		}
		return SubmitOutput{}, domain.Persistence("question.get", err)
	}
	pub := nq.Public()
	out.NextQuestion = &pub
	return out, nil
}

func (s SessionService) assignedAt(ctx domain.Context, interviewID string, pos int) (string, error) {
	id, err := s.Interviews.GetAssignedQuestionIDAt(ctx, interviewID, pos)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", &domain.AssignmentMissingError{InterviewID: interviewID, Position: pos}
		}
		return "", domain.Persistence("interview.assigned_at", err)
	}
	return id, nil
}

func (s SessionService) publish(ctx domain.Context, evt domain.InterviewEvent) {
	if s.Events == nil {
		return
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	evt.OccurredAt = now().UTC()
	if err := s.Events.Publish(ctx, evt); err != nil {
		observability.LoggerFromContext(ctx).Warn("event publish failed",
			slog.String("type", string(evt.Type)),
			slog.String("interview_id", evt.InterviewID),
			slog.Any("error", err))
	}
}

// loadOwnedInterview hides interviews that belong to someone else. An empty
// userID skips the ownership check.
func loadOwnedInterview(ctx domain.Context, repo domain.InterviewRepository, id, userID string) (domain.Interview, error) {
	iv, err := repo.GetInterview(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Interview{}, &domain.InterviewNotFoundError{InterviewID: id}
		}
		return domain.Interview{}, domain.Persistence("interview.get", fmt.Errorf("id %s: %w", id, err))
	}
	if userID != "" && iv.UserID != userID {
		return domain.Interview{}, &domain.InterviewNotFoundError{InterviewID: id}
	}
	return iv, nil
}
