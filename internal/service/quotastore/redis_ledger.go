// Package quotastore keeps the daily question ledger in Redis.
package quotastore

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// reserveScript grants ARGV[1] questions only if the day's total stays within
// ARGV[2]. Redis runs it atomically, so concurrent starts cannot both pass the check.
const reserveScript = `
local key = KEYS[1]
local count = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local expire_at = tonumber(ARGV[3])

local used = tonumber(redis.call("GET", key) or "0")
if used + count > limit then
  return { 0, used }
end

used = redis.call("INCRBY", key, count)
redis.call("EXPIREAT", key, expire_at)
return { 1, used }
`

// RedisLedger implements domain.QuotaLedger with one Lua call per reservation.
type RedisLedger struct {
	rdb    redis.Scripter
	script *redis.Script
	prefix string
}

// NewRedisLedger returns a ledger storing counters under "quota:<user>:<day>".
func NewRedisLedger(rdb redis.Scripter) *RedisLedger {
	return &RedisLedger{rdb: rdb, script: redis.NewScript(reserveScript), prefix: "quota"}
}

// Key is the counter key for a user and UTC day.
func (l *RedisLedger) Key(userID string, day time.Time) string {
	return fmt.Sprintf("%s:%s:%s", l.prefix, userID, day.UTC().Format(time.DateOnly))
}

// ReserveDailyQuestions atomically grants req.Count questions for req.Day.
// Counters expire one day after the day they count.
func (l *RedisLedger) ReserveDailyQuestions(ctx domain.Context, req domain.QuotaRequest) (domain.QuotaReservation, error) {
	day := req.Day.UTC()
	expireAt := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC).Add(48 * time.Hour)

	res, err := l.script.Run(ctx, l.rdb, []string{l.Key(req.UserID, day)}, req.Count, req.Limit, expireAt.Unix()).Result()
	if err != nil {
		return domain.QuotaReservation{}, fmt.Errorf("op=quota.reserve_redis: %w", err)
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		return domain.QuotaReservation{}, fmt.Errorf("op=quota.reserve_redis: unexpected script result %v", res)
	}
	used := int(toInt64(vals[1]))
	return domain.QuotaReservation{
		Allowed:   toInt64(vals[0]) == 1,
		Used:      used,
		Remaining: max(0, req.Limit-used),
		Limit:     req.Limit,
	}, nil
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}
