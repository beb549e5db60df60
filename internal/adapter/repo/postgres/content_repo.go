package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// ContentRepo reads and seeds subjects and questions.
type ContentRepo struct{ Pool PgxPool }

// NewContentRepo constructs a ContentRepo with the given pool.
func NewContentRepo(p PgxPool) *ContentRepo { return &ContentRepo{Pool: p} }

// ListSubjects returns all subjects ordered by name.
func (r *ContentRepo) ListSubjects(ctx domain.Context) ([]domain.Subject, error) {
	ctx, span := startSpan(ctx, "repo.content", "subjects.List", "SELECT", "subjects")
	defer span.End()
	rows, err := r.Pool.Query(ctx, `SELECT id, name FROM subjects ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("op=subject.list: %w", err)
	}
	defer rows.Close()
	out := []domain.Subject{}
	for rows.Next() {
		var s domain.Subject
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("op=subject.list: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=subject.list: %w", err)
	}
	return out, nil
}

// ListQuestionsBySubject returns the full inventory of a subject.
func (r *ContentRepo) ListQuestionsBySubject(ctx domain.Context, subjectID string) ([]domain.Question, error) {
	ctx, span := startSpan(ctx, "repo.content", "questions.ListBySubject", "SELECT", "questions")
	defer span.End()
	q := `SELECT id, subject_id, question_text, expert_answer, created_at FROM questions WHERE subject_id=$1 ORDER BY created_at, id`
	rows, err := r.Pool.Query(ctx, q, subjectID)
	if err != nil {
		return nil, fmt.Errorf("op=question.list: %w", err)
	}
	defer rows.Close()
	var out []domain.Question
	for rows.Next() {
		var qq domain.Question
		if err := rows.Scan(&qq.ID, &qq.SubjectID, &qq.QuestionText, &qq.ExpertAnswer, &qq.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=question.list: %w", err)
		}
		out = append(out, qq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=question.list: %w", err)
	}
	return out, nil
}

// GetQuestion loads one question including its reference answer.
func (r *ContentRepo) GetQuestion(ctx domain.Context, id string) (domain.Question, error) {
	ctx, span := startSpan(ctx, "repo.content", "questions.Get", "SELECT", "questions")
	defer span.End()
	q := `SELECT id, subject_id, question_text, expert_answer, created_at FROM questions WHERE id=$1`
	var qq domain.Question
	if err := r.Pool.QueryRow(ctx, q, id).Scan(&qq.ID, &qq.SubjectID, &qq.QuestionText, &qq.ExpertAnswer, &qq.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Question{}, fmt.Errorf("op=question.get: %w", domain.ErrNotFound)
		}
		return domain.Question{}, fmt.Errorf("op=question.get: %w", err)
	}
	return qq, nil
}

// UpsertSubject inserts or renames a subject.
func (r *ContentRepo) UpsertSubject(ctx domain.Context, s domain.Subject) error {
	ctx, span := startSpan(ctx, "repo.content", "subjects.Upsert", "INSERT", "subjects")
	defer span.End()
	q := `INSERT INTO subjects (id, name, created_at) VALUES ($1,$2,$3)
	ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name`
	if _, err := r.Pool.Exec(ctx, q, s.ID, s.Name, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=subject.upsert: %w", err)
	}
	return nil
}

// UpsertQuestion inserts or updates a question's text and reference answer.
func (r *ContentRepo) UpsertQuestion(ctx domain.Context, qq domain.Question) error {
	ctx, span := startSpan(ctx, "repo.content", "questions.Upsert", "INSERT", "questions")
	defer span.End()
	created := qq.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	q := `INSERT INTO questions (id, subject_id, question_text, expert_answer, created_at) VALUES ($1,$2,$3,$4,$5)
	ON CONFLICT (id) DO UPDATE SET subject_id=EXCLUDED.subject_id, question_text=EXCLUDED.question_text, expert_answer=EXCLUDED.expert_answer`
	if _, err := r.Pool.Exec(ctx, q, qq.ID, qq.SubjectID, qq.QuestionText, qq.ExpertAnswer, created); err != nil {
		return fmt.Errorf("op=question.upsert: %w", err)
	}
	return nil
}
