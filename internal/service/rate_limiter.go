package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// rateLimitScript is a Lua script for sliding window rate limiting.
// It returns {allowed, resetAt, remaining}.
var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

local windowStart = now - window

redis.call('ZREMRANGEBYSCORE', key, '-inf', windowStart)

local count = redis.call('ZCARD', key)

if count >= limit then
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local resetAt = 0
    if #oldest >= 2 then
        resetAt = tonumber(oldest[2]) + window
    else
        resetAt = now + window
    end
    return {0, resetAt, 0}
end

redis.call('ZADD', key, now, now .. '-' .. math.random())
redis.call('EXPIRE', key, window + 10)

return {1, now + window, limit - count - 1}
`)

type RateDecision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RateLimiter is a Redis sliding-window limiter shared by all server instances.
type RateLimiter struct {
	client redis.Scripter
}

func NewRateLimiter(client redis.Scripter) *RateLimiter {
	return &RateLimiter{client: client}
}

// CheckLimit records one hit against key. When Redis is unreachable the hit is
// denied.
func (rl *RateLimiter) CheckLimit(
	ctx context.Context,
	key string,
	limit int,
	window time.Duration,
) RateDecision {
	now := time.Now().Unix()
	fullKey := fmt.Sprintf("ratelimit:%s", key)
	denied := RateDecision{ResetAt: time.Now().Add(window)}

	result, err := rateLimitScript.Run(
		ctx,
		rl.client,
		[]string{fullKey},
		now,
		int64(window.Seconds()),
		limit,
	).Int64Slice()

	if err != nil {
		log.Warn().
			Err(err).
			Str("key", key).
			Msg("rate limit check failed, denying request")
		return denied
	}

	if len(result) != 3 {
		log.Warn().Str("key", key).Msg("unexpected rate limit result, denying request")
		return denied
	}

	return RateDecision{
		Allowed:   result[0] == 1,
		ResetAt:   time.Unix(result[1], 0),
		Remaining: int(result[2]),
	}
}
