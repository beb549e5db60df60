package usecase

import (
	"strings"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// ContentService exposes the question bank without reference answers.
type ContentService struct {
	Content domain.ContentRepository
}

// NewContentService constructs a ContentService.
func NewContentService(content domain.ContentRepository) ContentService {
	return ContentService{Content: content}
}

// ListSubjects returns every subject.
func (s ContentService) ListSubjects(ctx domain.Context) ([]domain.Subject, error) {
	subjects, err := s.Content.ListSubjects(ctx)
	if err != nil {
		return nil, domain.Persistence("subject.list", err)
	}
	if subjects == nil {
		subjects = []domain.Subject{}
	}
	return subjects, nil
}

// ListQuestions returns the public form of a subject's questions.
func (s ContentService) ListQuestions(ctx domain.Context, subjectID string) ([]domain.PublicQuestion, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, &domain.InvalidRequestError{Field: "subjectId", Reason: "is required"}
	}
	qs, err := s.Content.ListQuestionsBySubject(ctx, subjectID)
	if err != nil {
		return nil, domain.Persistence("question.list", err)
	}
	out := make([]domain.PublicQuestion, len(qs))
	for i, q := range qs {
		out[i] = q.Public()
	}
	return out, nil
}
