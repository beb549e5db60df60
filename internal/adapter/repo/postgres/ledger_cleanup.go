package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LedgerCleanup prunes old daily usage rows. Interviews and answers are kept.
type LedgerCleanup struct {
	Pool          PgxPool
	RetentionDays int
	Now           func() time.Time
}

// NewLedgerCleanup creates a LedgerCleanup; non-positive retention means 30 days.
func NewLedgerCleanup(pool PgxPool, retentionDays int) *LedgerCleanup {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &LedgerCleanup{Pool: pool, RetentionDays: retentionDays, Now: time.Now}
}

// Cutoff is the first UTC day that is retained.
func (s *LedgerCleanup) Cutoff() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	t := now().UTC().AddDate(0, 0, -s.RetentionDays)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CleanupOldData deletes ledger rows older than the cutoff.
func (s *LedgerCleanup) CleanupOldData(ctx context.Context) (int64, error) {
	ctx, span := startSpan(ctx, "repo.quota", "quota.Cleanup", "DELETE", "daily_question_usage")
	defer span.End()
	cutoff := s.Cutoff()
	tag, err := s.Pool.Exec(ctx, `DELETE FROM daily_question_usage WHERE usage_day < $1::date`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("op=quota.cleanup: %w", err)
	}
	slog.Info("quota ledger cleanup completed",
		slog.Int64("deleted_rows", tag.RowsAffected()),
		slog.Time("cutoff", cutoff),
	)
	return tag.RowsAffected(), nil
}

// RunPeriodic cleans up once immediately and then every interval until ctx ends.
func (s *LedgerCleanup) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := s.CleanupOldData(ctx); err != nil {
		slog.Error("initial ledger cleanup failed", slog.Any("error", err))
	}
	for {
		select {
		case <-ctx.Done():
			slog.Info("ledger cleanup stopping")
			return
		case <-ticker.C:
			if _, err := s.CleanupOldData(ctx); err != nil {
				slog.Error("periodic ledger cleanup failed", slog.Any("error", err))
			}
		}
	}
}
