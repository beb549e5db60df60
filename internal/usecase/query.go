package usecase

import (
	"fmt"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// View statuses.
const (
	ViewInProgress = "in_progress"
	ViewCompleted  = "completed"
)

// ReportItem is one answered position of an interview.
type ReportItem struct {
	QuestionIndex  int           `json:"questionIndex"`
	TotalQuestions int           `json:"totalQuestions"`
	Review         domain.Review `json:"review"`
}

// InterviewView is the resumable and reportable state of an interview.
type InterviewView struct {
	InterviewID     string                 `json:"interviewId"`
	SubjectID       string                 `json:"subjectId"`
	Status          string                 `json:"status"`
	QuestionIndex   int                    `json:"questionIndex"`
	TotalQuestions  int                    `json:"totalQuestions"`
	CurrentQuestion *domain.PublicQuestion `json:"currentQuestion,omitempty"`
	ReportCard      []ReportItem           `json:"reportCard"`
}

// QueryService rebuilds interview state from storage without mutating it.
type QueryService struct {
	Content    domain.ContentRepository
	Interviews domain.InterviewRepository
}

// NewQueryService constructs a QueryService.
func NewQueryService(content domain.ContentRepository, interviews domain.InterviewRepository) QueryService {
	return QueryService{Content: content, Interviews: interviews}
}

// GetByID assembles the view of interview id as seen by userID.
func (s QueryService) GetByID(ctx domain.Context, id, userID string) (InterviewView, error) {
	if id == "" {
		return InterviewView{}, &domain.InvalidRequestError{Field: "interviewId", Reason: "is required"}
	}
	iv, err := loadOwnedInterview(ctx, s.Interviews, id, userID)
	if err != nil {
		return InterviewView{}, err
	}
	assigned, err := s.Interviews.ListAssignedQuestions(ctx, iv.ID)
	if err != nil {
		return InterviewView{}, domain.Persistence("interview.list_assigned", err)
	}
	answers, err := s.Interviews.ListAnswers(ctx, iv.ID)
	if err != nil {
		return InterviewView{}, domain.Persistence("interview.list_answers", err)
	}

	byQuestion := make(map[string]domain.Answer, len(answers))
	for _, a := range answers {
		if _, seen := byQuestion[a.QuestionID]; !seen {
			byQuestion[a.QuestionID] = a
		}
	}

	view := InterviewView{
		InterviewID:    iv.ID,
		SubjectID:      iv.SubjectID,
		Status:         ViewInProgress,
		QuestionIndex:  min(iv.CurrentIndex+1, iv.TotalQuestions),
		TotalQuestions: iv.TotalQuestions,
		ReportCard:     []ReportItem{},
	}
	if !iv.IsActive() {
		view.Status = ViewCompleted
	}

	for i, aq := range assigned {
		a, ok := byQuestion[aq.QuestionID]
		if !ok {
			continue
		}
		q, err := s.Content.GetQuestion(ctx, aq.QuestionID)
		if err != nil {
			return InterviewView{}, domain.Persistence("question.get", fmt.Errorf("question %q: %w", aq.QuestionID, err))
		}
		view.ReportCard = append(view.ReportCard, ReportItem{
			QuestionIndex:  i + 1,
			TotalQuestions: iv.TotalQuestions,
			Review: domain.Review{
				Question:        q.Public(),
				UserAnswer:      a.AnswerText,
				ReferenceAnswer: q.ExpertAnswer,
				Evaluation:      domain.Evaluation{Score: a.Score, Feedback: a.Feedback},
			},
		})
	}

	if iv.IsActive() && len(assigned) > 0 {
		pos := max(0, min(iv.CurrentIndex, len(assigned)-1))
		q, err := s.Content.GetQuestion(ctx, assigned[pos].QuestionID)
		if err != nil {
			return InterviewView{}, domain.Persistence("question.get", fmt.Errorf("question %q: %w", assigned[pos].QuestionID, err))
		}
		pub := q.Public()
		view.CurrentQuestion = &pub
	}
	return view, nil
}
