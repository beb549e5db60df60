package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

const ivID = "6f1c1f5e-3a2b-4a59-9a53-0d5f0b1f7c11"

func TestInterviewRepo_CreateInterview_OneTransaction(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectBegin()
	pool.ExpectExec("INSERT INTO interviews").
		WithArgs(pgxmock.AnyArg(), "u1", "go", 2, 0, "active", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectExec("INSERT INTO interview_questions").
		WithArgs(pgxmock.AnyArg(), []string{"q2", "q1"}).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	pool.ExpectCommit()

	iv, err := postgres.NewInterviewRepo(pool).CreateInterview(context.Background(), domain.InterviewDraft{
		UserID: "u1", SubjectID: "go", QuestionIDs: []string{"q2", "q1"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, iv.ID)
	assert.Equal(t, 2, iv.TotalQuestions)
	assert.Equal(t, domain.InterviewActive, iv.Status)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestInterviewRepo_CreateInterview_AssignmentFailureRollsBack(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectBegin()
	pool.ExpectExec("INSERT INTO interviews").
		WithArgs(pgxmock.AnyArg(), "u1", "go", 2, 0, "active", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectExec("INSERT INTO interview_questions").
		WithArgs(pgxmock.AnyArg(), []string{"q1", "q1"}).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	pool.ExpectRollback()

	_, err := postgres.NewInterviewRepo(pool).CreateInterview(context.Background(), domain.InterviewDraft{
		UserID: "u1", SubjectID: "go", QuestionIDs: []string{"q1", "q1"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestInterviewRepo_CreateInterview_Empty(t *testing.T) {
	pool := newMockPool(t)
	_, err := postgres.NewInterviewRepo(pool).CreateInterview(context.Background(), domain.InterviewDraft{UserID: "u1", SubjectID: "go"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestInterviewRepo_GetInterview(t *testing.T) {
	pool := newMockPool(t)
	ts := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	pool.ExpectQuery("FROM interviews WHERE id").WithArgs(ivID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "subject_id", "total_questions", "current_index", "status", "created_at", "updated_at"}).
			AddRow(ivID, "u1", "go", 3, 1, "active", ts, ts))

	iv, err := postgres.NewInterviewRepo(pool).GetInterview(context.Background(), ivID)
	require.NoError(t, err)
	assert.Equal(t, 1, iv.CurrentIndex)
	assert.True(t, iv.IsActive())
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestInterviewRepo_GetInterview_NotFound(t *testing.T) {
	pool := newMockPool(t)
	repo := postgres.NewInterviewRepo(pool)

	_, err := repo.GetInterview(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	pool.ExpectQuery("FROM interviews WHERE id").WithArgs(ivID).WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetInterview(context.Background(), ivID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestInterviewRepo_AssignedAndAnswers(t *testing.T) {
	pool := newMockPool(t)
	repo := postgres.NewInterviewRepo(pool)
	ctx := context.Background()

	pool.ExpectQuery("SELECT question_id FROM interview_questions").WithArgs(ivID, 5).WillReturnError(pgx.ErrNoRows)
	_, err := repo.GetAssignedQuestionIDAt(ctx, ivID, 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	pool.ExpectQuery("SELECT position, question_id FROM interview_questions").WithArgs(ivID).
		WillReturnRows(pgxmock.NewRows([]string{"position", "question_id"}).AddRow(0, "q3").AddRow(1, "q1"))
	assigned, err := repo.ListAssignedQuestions(ctx, ivID)
	require.NoError(t, err)
	assert.Equal(t, []domain.AssignedQuestion{{Position: 0, QuestionID: "q3"}, {Position: 1, QuestionID: "q1"}}, assigned)

	ts := time.Now().UTC()
	pool.ExpectQuery("FROM interview_answers").WithArgs(ivID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "interview_id", "question_id", "answer_text", "score", "feedback", "created_at"}).
			AddRow("a1", ivID, "q3", "text", 7, "good", ts))
	answers, err := repo.ListAnswers(ctx, ivID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, 7, answers[0].Score)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestInterviewRepo_RecordAnswer(t *testing.T) {
	answer := domain.Answer{InterviewID: ivID, QuestionID: "q1", AnswerText: "text", Score: 6, Feedback: "ok"}
	progress := domain.Progress{ExpectedIndex: 0, CurrentIndex: 1, Status: domain.InterviewActive}

	t.Run("commits both writes", func(t *testing.T) {
		pool := newMockPool(t)
		pool.ExpectBegin()
		pool.ExpectExec("INSERT INTO interview_answers").
			WithArgs(pgxmock.AnyArg(), ivID, "q1", "text", 6, "ok", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		pool.ExpectExec("UPDATE interviews SET current_index").
			WithArgs(ivID, 1, "active", pgxmock.AnyArg(), 0).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		pool.ExpectCommit()

		require.NoError(t, postgres.NewInterviewRepo(pool).RecordAnswer(context.Background(), answer, progress))
		require.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("moved position rolls back", func(t *testing.T) {
		pool := newMockPool(t)
		pool.ExpectBegin()
		pool.ExpectExec("INSERT INTO interview_answers").
			WithArgs(pgxmock.AnyArg(), ivID, "q1", "text", 6, "ok", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		pool.ExpectExec("UPDATE interviews SET current_index").
			WithArgs(ivID, 1, "active", pgxmock.AnyArg(), 0).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		pool.ExpectRollback()

		err := postgres.NewInterviewRepo(pool).RecordAnswer(context.Background(), answer, progress)
		assert.ErrorIs(t, err, domain.ErrConflict)
		require.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("duplicate answer rolls back", func(t *testing.T) {
		pool := newMockPool(t)
		pool.ExpectBegin()
		pool.ExpectExec("INSERT INTO interview_answers").
			WithArgs(pgxmock.AnyArg(), ivID, "q1", "text", 6, "ok", pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505"})
		pool.ExpectRollback()

		err := postgres.NewInterviewRepo(pool).RecordAnswer(context.Background(), answer, progress)
		assert.ErrorIs(t, err, domain.ErrConflict)
		require.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("store failure is not a conflict", func(t *testing.T) {
		pool := newMockPool(t)
		pool.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

		err := postgres.NewInterviewRepo(pool).RecordAnswer(context.Background(), answer, progress)
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrConflict)
	})
}
