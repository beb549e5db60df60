package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// InterviewRepo persists interviews, their question assignment and answers.
type InterviewRepo struct {
	Pool PgxPool
	Now  func() time.Time
}

// NewInterviewRepo constructs an InterviewRepo with the given pool.
func NewInterviewRepo(p PgxPool) *InterviewRepo { return &InterviewRepo{Pool: p, Now: time.Now} }

func (r *InterviewRepo) now() time.Time {
	if r.Now == nil {
		return time.Now().UTC()
	}
	return r.Now().UTC()
}

// CreateInterview inserts the interview row and its positional assignment in
// one transaction.
func (r *InterviewRepo) CreateInterview(ctx domain.Context, d domain.InterviewDraft) (domain.Interview, error) {
	ctx, span := startSpan(ctx, "repo.interviews", "interviews.Create", "INSERT", "interviews")
	defer span.End()
	if len(d.QuestionIDs) == 0 {
		return domain.Interview{}, fmt.Errorf("op=interview.create: no questions: %w", domain.ErrInvalidArgument)
	}
	now := r.now()
	iv := domain.Interview{
		ID:             uuid.New().String(),
		UserID:         d.UserID,
		SubjectID:      d.SubjectID,
		TotalQuestions: len(d.QuestionIDs),
		CurrentIndex:   0,
		Status:         domain.InterviewActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Interview{}, fmt.Errorf("op=interview.create: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `INSERT INTO interviews (id, user_id, subject_id, total_questions, current_index, status, created_at, updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	if _, err := tx.Exec(ctx, q, iv.ID, iv.UserID, iv.SubjectID, iv.TotalQuestions, iv.CurrentIndex, string(iv.Status), iv.CreatedAt, iv.UpdatedAt); err != nil {
		return domain.Interview{}, fmt.Errorf("op=interview.create: %w", err)
	}
	if err := insertAssignment(ctx, tx, iv.ID, d.QuestionIDs); err != nil {
		return domain.Interview{}, fmt.Errorf("op=interview.create: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Interview{}, fmt.Errorf("op=interview.create: commit: %w", err)
	}
	return iv, nil
}

// insertAssignment writes ids as positions 0..n-1 in a single statement.
func insertAssignment(ctx context.Context, tx pgx.Tx, interviewID string, ids []string) error {
	q := `INSERT INTO interview_questions (interview_id, position, question_id)
	SELECT $1, t.ord - 1, t.qid FROM unnest($2::text[]) WITH ORDINALITY AS t(qid, ord)`
	tag, err := tx.Exec(ctx, q, interviewID, ids)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("duplicate question in assignment: %w", domain.ErrConflict)
		}
		return err
	}
	if int(tag.RowsAffected()) != len(ids) {
		return fmt.Errorf("assignment wrote %d of %d rows", tag.RowsAffected(), len(ids))
	}
	return nil
}

// GetInterview loads an interview by id. Malformed ids read as not found.
func (r *InterviewRepo) GetInterview(ctx domain.Context, id string) (domain.Interview, error) {
	ctx, span := startSpan(ctx, "repo.interviews", "interviews.Get", "SELECT", "interviews")
	defer span.End()
	if _, err := uuid.Parse(id); err != nil {
		return domain.Interview{}, fmt.Errorf("op=interview.get: %w", domain.ErrNotFound)
	}
	q := `SELECT id, user_id, subject_id, total_questions, current_index, status, created_at, updated_at FROM interviews WHERE id=$1`
	var iv domain.Interview
	var status string
	err := r.Pool.QueryRow(ctx, q, id).Scan(&iv.ID, &iv.UserID, &iv.SubjectID, &iv.TotalQuestions, &iv.CurrentIndex, &status, &iv.CreatedAt, &iv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Interview{}, fmt.Errorf("op=interview.get: %w", domain.ErrNotFound)
		}
		return domain.Interview{}, fmt.Errorf("op=interview.get: %w", err)
	}
	iv.Status = domain.InterviewStatus(status)
	return iv, nil
}

// GetAssignedQuestionIDAt returns the question id at a zero-based position.
func (r *InterviewRepo) GetAssignedQuestionIDAt(ctx domain.Context, interviewID string, position int) (string, error) {
	ctx, span := startSpan(ctx, "repo.interviews", "interviews.GetAssignedAt", "SELECT", "interview_questions")
	defer span.End()
	var qid string
	err := r.Pool.QueryRow(ctx, `SELECT question_id FROM interview_questions WHERE interview_id=$1 AND position=$2`, interviewID, position).Scan(&qid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("op=interview.assigned_at: %w", domain.ErrNotFound)
		}
		return "", fmt.Errorf("op=interview.assigned_at: %w", err)
	}
	return qid, nil
}

// ListAssignedQuestions returns the assignment in position order.
func (r *InterviewRepo) ListAssignedQuestions(ctx domain.Context, interviewID string) ([]domain.AssignedQuestion, error) {
	ctx, span := startSpan(ctx, "repo.interviews", "interviews.ListAssigned", "SELECT", "interview_questions")
	defer span.End()
	rows, err := r.Pool.Query(ctx, `SELECT position, question_id FROM interview_questions WHERE interview_id=$1 ORDER BY position`, interviewID)
	if err != nil {
		return nil, fmt.Errorf("op=interview.list_assigned: %w", err)
	}
	defer rows.Close()
	var out []domain.AssignedQuestion
	for rows.Next() {
		var aq domain.AssignedQuestion
		if err := rows.Scan(&aq.Position, &aq.QuestionID); err != nil {
			return nil, fmt.Errorf("op=interview.list_assigned: %w", err)
		}
		out = append(out, aq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=interview.list_assigned: %w", err)
	}
	return out, nil
}

// ListAnswers returns the answers of an interview in submission order.
func (r *InterviewRepo) ListAnswers(ctx domain.Context, interviewID string) ([]domain.Answer, error) {
	ctx, span := startSpan(ctx, "repo.interviews", "answers.List", "SELECT", "interview_answers")
	defer span.End()
	q := `SELECT id, interview_id, question_id, answer_text, score, feedback, created_at FROM interview_answers WHERE interview_id=$1 ORDER BY created_at, id`
	rows, err := r.Pool.Query(ctx, q, interviewID)
	if err != nil {
		return nil, fmt.Errorf("op=answer.list: %w", err)
	}
	defer rows.Close()
	var out []domain.Answer
	for rows.Next() {
		var a domain.Answer
		if err := rows.Scan(&a.ID, &a.InterviewID, &a.QuestionID, &a.AnswerText, &a.Score, &a.Feedback, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=answer.list: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=answer.list: %w", err)
	}
	return out, nil
}

// RecordAnswer appends the answer and advances progress in one transaction.
// The update only applies while the interview is active at p.ExpectedIndex.
func (r *InterviewRepo) RecordAnswer(ctx domain.Context, a domain.Answer, p domain.Progress) error {
	ctx, span := startSpan(ctx, "repo.interviews", "answers.Record", "INSERT", "interview_answers")
	defer span.End()
	id := a.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := r.now()

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("op=answer.record: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ins := `INSERT INTO interview_answers (id, interview_id, question_id, answer_text, score, feedback, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7)`
	if _, err := tx.Exec(ctx, ins, id, a.InterviewID, a.QuestionID, a.AnswerText, a.Score, a.Feedback, now); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("op=answer.record: already answered: %w", domain.ErrConflict)
		}
		return fmt.Errorf("op=answer.record: %w", err)
	}
	upd := `UPDATE interviews SET current_index=$2, status=$3, updated_at=$4 WHERE id=$1 AND current_index=$5 AND status='active'`
	tag, err := tx.Exec(ctx, upd, a.InterviewID, p.CurrentIndex, string(p.Status), now, p.ExpectedIndex)
	if err != nil {
		return fmt.Errorf("op=answer.record: progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=answer.record: position moved: %w", domain.ErrConflict)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=answer.record: commit: %w", err)
	}
	return nil
}
