package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	uuid "github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/VickyKR37/autobook/internal/core/port"
)

var (
	errNonPositiveWindow = errors.New("window must be positive")
	errUnexpectedReply   = errors.New("unexpected sliding window reply")
)

// slidingWindowScript trims the window, admits the attempt when there is room and reports the
// resulting count and oldest score. Scores are unix milliseconds.
//
// KEYS[1] window key
// ARGV[1] exclusive lower score bound, ARGV[2] limit, ARGV[3] score, ARGV[4] member, ARGV[5] ttl ms
var slidingWindowScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
local count = redis.call('ZCARD', KEYS[1])
local allowed = 0
if count < tonumber(ARGV[2]) then
	redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
	count = count + 1
	allowed = 1
end
if tonumber(ARGV[5]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[5])
end
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
if #oldest == 0 then
	return {allowed, count, ''}
end
return {allowed, count, oldest[2]}
`)

// SlidingWindowConfig defines configuration for the sliding window limiter.
type SlidingWindowConfig struct {
	KeyPrefix string
	TTL       time.Duration
}

// RateLimitRepository persists rate-limit attempts in Redis sorted sets.
type RateLimitRepository struct {
	client redis.Cmdable
	cfg    SlidingWindowConfig
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)

// NewRateLimitRepository constructs a repository using the provided Redis client and config.
func NewRateLimitRepository(client redis.Cmdable, cfg SlidingWindowConfig) *RateLimitRepository {
	return &RateLimitRepository{client: client, cfg: cfg}
}

// Allow records an attempt for identifier at now unless limit attempts already sit inside the
// window. The whole check runs as one script, so a concurrent burst admits at most limit attempts.
func (r *RateLimitRepository) Allow(ctx context.Context, identifier string, limit int, window time.Duration, now time.Time) (port.RateLimitDecision, error) {
	if window <= 0 {
		return port.RateLimitDecision{}, errNonPositiveWindow
	}
	if limit <= 0 {
		return port.RateLimitDecision{Allowed: true}, nil
	}

	// Exclusive bound keeps an attempt sitting exactly on the window edge.
	threshold := "(" + strconv.FormatInt(now.Add(-window).UnixMilli(), 10)
	member := fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString())

	values, err := slidingWindowScript.Run(ctx, r.client, []string{r.key(identifier)},
		threshold,
		limit,
		now.UnixMilli(),
		member,
		r.cfg.TTL.Milliseconds(),
	).Slice()
	if err != nil {
		return port.RateLimitDecision{}, fmt.Errorf("redis sliding window: %w", err)
	}

	return parseDecision(values)
}

func parseDecision(values []interface{}) (port.RateLimitDecision, error) {
	if len(values) != 3 {
		return port.RateLimitDecision{}, fmt.Errorf("%w: %d values", errUnexpectedReply, len(values))
	}

	allowed, ok := values[0].(int64)
	if !ok {
		return port.RateLimitDecision{}, fmt.Errorf("%w: allowed flag %T", errUnexpectedReply, values[0])
	}
	count, ok := values[1].(int64)
	if !ok {
		return port.RateLimitDecision{}, fmt.Errorf("%w: count %T", errUnexpectedReply, values[1])
	}

	decision := port.RateLimitDecision{Allowed: allowed == 1, Count: int(count)}

	raw, _ := values[2].(string)
	if raw == "" {
		return decision, nil
	}
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return port.RateLimitDecision{}, fmt.Errorf("parse oldest score: %w", err)
	}
	decision.Oldest = time.UnixMilli(int64(score))

	return decision, nil
}

func (r *RateLimitRepository) key(identifier string) string {
	if r.cfg.KeyPrefix == "" {
		return identifier
	}
	return fmt.Sprintf("%s:%s", r.cfg.KeyPrefix, identifier)
}
