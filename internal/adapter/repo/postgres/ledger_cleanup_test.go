package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/repo/postgres"
)

func fixedCleanup(pool postgres.PgxPool, days int) *postgres.LedgerCleanup {
	c := postgres.NewLedgerCleanup(pool, days)
	c.Now = func() time.Time { return time.Date(2026, 3, 10, 23, 30, 0, 0, time.FixedZone("x", -5*3600)) }
	return c
}

func TestLedgerCleanup_Cutoff(t *testing.T) {
	// 23:30 at UTC-5 is already the 11th in UTC.
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), fixedCleanup(nil, 7).Cutoff())
	assert.Equal(t, 30, postgres.NewLedgerCleanup(nil, 0).RetentionDays)
}

func TestLedgerCleanup_CleanupOldData(t *testing.T) {
	pool := newMockPool(t)
	c := fixedCleanup(pool, 7)
	pool.ExpectExec("DELETE FROM daily_question_usage").WithArgs(c.Cutoff()).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := c.CleanupOldData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestLedgerCleanup_CleanupOldDataError(t *testing.T) {
	pool := newMockPool(t)
	c := fixedCleanup(pool, 7)
	pool.ExpectExec("DELETE FROM daily_question_usage").WithArgs(c.Cutoff()).WillReturnError(errors.New("read only"))

	_, err := c.CleanupOldData(context.Background())
	assert.ErrorContains(t, err, "op=quota.cleanup")
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestLedgerCleanup_RunPeriodicStopsOnCancel(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectExec("DELETE FROM daily_question_usage").WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		fixedCleanup(pool, 7).RunPeriodic(ctx, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool { return pool.ExpectationsWereMet() == nil }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPeriodic did not return after cancel")
	}
}
