package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// QuotaRepo keeps the per-user daily question ledger.
type QuotaRepo struct{ Pool PgxPool }

// NewQuotaRepo constructs a QuotaRepo with the given pool.
func NewQuotaRepo(p PgxPool) *QuotaRepo { return &QuotaRepo{Pool: p} }

// reserveSQL adds $3 to the counter only when the result stays within $4. The
// conflict branch's WHERE makes Postgres return no row instead of updating.
const reserveSQL = `INSERT INTO daily_question_usage (user_id, usage_day, used, updated_at)
SELECT $1, $2::date, $3::int, now() WHERE $3::int <= $4::int
ON CONFLICT (user_id, usage_day) DO UPDATE
SET used = daily_question_usage.used + EXCLUDED.used, updated_at = now()
WHERE daily_question_usage.used + EXCLUDED.used <= $4::int
RETURNING used`

// ReserveDailyQuestions atomically grants req.Count questions for req.Day.
func (r *QuotaRepo) ReserveDailyQuestions(ctx domain.Context, req domain.QuotaRequest) (domain.QuotaReservation, error) {
	ctx, span := startSpan(ctx, "repo.quota", "quota.Reserve", "UPSERT", "daily_question_usage")
	defer span.End()
	day := req.Day.UTC()

	var used int
	err := r.Pool.QueryRow(ctx, reserveSQL, req.UserID, day, req.Count, req.Limit).Scan(&used)
	if err == nil {
		return reservation(true, used, req.Limit), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.QuotaReservation{}, fmt.Errorf("op=quota.reserve: %w", err)
	}

	err = r.Pool.QueryRow(ctx, `SELECT COALESCE((SELECT used FROM daily_question_usage WHERE user_id=$1 AND usage_day=$2::date), 0)`, req.UserID, day).Scan(&used)
	if err != nil {
		return domain.QuotaReservation{}, fmt.Errorf("op=quota.reserve: read usage: %w", err)
	}
	return reservation(false, used, req.Limit), nil
}

func reservation(allowed bool, used, limit int) domain.QuotaReservation {
	return domain.QuotaReservation{Allowed: allowed, Used: used, Remaining: max(0, limit-used), Limit: limit}
}
