package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// refundWindowScript counts refund attempts in a fixed one-minute window. The
// increment and the window expiry commit atomically, so two racing first requests
// can never both start a fresh window. It returns {1, 0} while the account is
// under its limit and {0, <ms until the window resets>} once it is over.
var refundWindowScript = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
if hits <= tonumber(ARGV[1]) then
  return {1, 0}
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[2])
end
return {0, ttl}
`)

const refundLimiterWindow = time.Minute

// RedisRefundLimiter throttles refund attempts per account across all service
// instances sharing one redis.
type RedisRefundLimiter struct {
	client    redis.UniversalClient
	keyPrefix string
	perMinute int
}

// NewRedisRefundLimiter creates a limiter allowing perMinute refund attempts per
// account. A non-positive perMinute disables throttling.
func NewRedisRefundLimiter(client redis.UniversalClient, prefix string, perMinute int) *RedisRefundLimiter {
	trimmed := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmed == "" {
		trimmed = "paywave:rate_limit"
	}

	return &RedisRefundLimiter{
		client:    client,
		keyPrefix: trimmed + ":refund",
		perMinute: perMinute,
	}
}

// Allow reports whether the account may attempt another refund right now, and if
// not, how many seconds remain until its window resets.
func (l *RedisRefundLimiter) Allow(ctx context.Context, accountID uuid.UUID) (allowed bool, retryAfterSeconds int, err error) {
	if l == nil || l.client == nil || l.perMinute <= 0 {
		return true, 0, nil
	}

	key := l.keyPrefix + ":" + accountID.String()
	raw, err := refundWindowScript.Run(ctx, l.client, []string{key}, l.perMinute, refundLimiterWindow.Milliseconds()).Result()
	if err != nil {
		return false, 0, err
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("unexpected refund limiter response shape: %T", raw)
	}
	verdict, ok := values[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected refund limiter verdict type: %T", values[0])
	}
	if verdict == 1 {
		return true, 0, nil
	}

	ttlMs, ok := values[1].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected refund limiter ttl type: %T", values[1])
	}
	retryAfter := int((ttlMs + 999) / 1000)
	if retryAfter < 1 {
		retryAfter = 1
	}
	return false, retryAfter, nil
}
