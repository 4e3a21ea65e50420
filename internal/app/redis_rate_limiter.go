package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var chatRateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// ChatRateLimiter implements a distributed fixed-window counter for the
// completion proxy. A nil limiter or zero limit disables limiting.
type ChatRateLimiter struct {
	client redis.UniversalClient
	prefix string
}

// NewChatRateLimiter creates a Redis-backed limiter.
func NewChatRateLimiter(client redis.UniversalClient, prefix string) *ChatRateLimiter {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "eringpt:chat"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	return &ChatRateLimiter{client: client, prefix: trimmedPrefix}
}

// Consume counts one request for the subject and reports the window count
// and the retry-after hint. Callers reject when count exceeds limit.
func (l *ChatRateLimiter) Consume(ctx context.Context, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error) {
	if l == nil || l.client == nil || limit <= 0 || window <= 0 {
		return 0, 0, nil
	}

	normalizedSubject := strings.TrimSpace(subject)
	if normalizedSubject == "" {
		return 0, 0, nil
	}

	windowMs := window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := fmt.Sprintf("%s:%s", l.prefix, normalizedSubject)
	rawResult, err := chatRateLimitScript.Run(ctx, l.client, []string{key}, windowMs).Result()
	if err != nil {
		return 0, 0, err
	}

	values, ok := rawResult.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected redis limiter response shape: %T", rawResult)
	}

	currentCount, ok := values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}

	ttlMs, ok := values[1].(int64)
	if !ok {
		return int(currentCount), 0, fmt.Errorf("unexpected redis limiter ttl type: %T", values[1])
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}

	return int(currentCount), retryAfter, nil
}
