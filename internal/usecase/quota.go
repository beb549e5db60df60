package usecase

import (
	"fmt"
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// QuotaGuard enforces the per-user daily question cap. The ledger performs the
// check and the increment as one atomic operation.
type QuotaGuard struct {
	Ledger     domain.QuotaLedger
	DailyLimit int
	Now        func() time.Time
}

// NewQuotaGuard constructs a QuotaGuard. Limits that are not positive fall back to 20.
func NewQuotaGuard(ledger domain.QuotaLedger, dailyLimit int) QuotaGuard {
	return QuotaGuard{Ledger: ledger, DailyLimit: normalizeLimit(dailyLimit), Now: time.Now}
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}

// Day returns the UTC calendar day the ledger is keyed on.
func (g QuotaGuard) Day() time.Time {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	t := now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Reserve attempts to add count questions to the user's counter for today.
func (g QuotaGuard) Reserve(ctx domain.Context, userID string, count int) (domain.QuotaReservation, error) {
	if userID == "" {
		return domain.QuotaReservation{}, &domain.InvalidRequestError{Field: "userId", Reason: "is required"}
	}
	if count <= 0 {
		return domain.QuotaReservation{}, &domain.InvalidRequestError{Field: "questionCount", Reason: "must be positive"}
	}
	limit := normalizeLimit(g.DailyLimit)
	res, err := g.Ledger.ReserveDailyQuestions(ctx, domain.QuotaRequest{
		UserID: userID,
		Day:    g.Day(),
		Count:  count,
		Limit:  limit,
	})
	if err != nil {
		return domain.QuotaReservation{}, domain.Persistence("quota.reserve", fmt.Errorf("user %s: %w", userID, err))
	}
	if res.Limit == 0 {
		res.Limit = limit
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	return res, nil
}
