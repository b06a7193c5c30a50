package port

import (
	"context"
	"time"
)

// RateLimitDecision describes a sliding window right after one attempt was checked against it.
type RateLimitDecision struct {
	Allowed bool
	// Count is the number of attempts inside the window, including this one when it was allowed.
	Count int
	// Oldest is zero when the window holds no attempts.
	Oldest time.Time
}

// RateLimitStore enforces sliding-window limits. Allow must trim, count and record as one
// atomic step so concurrent callers cannot all observe the same pre-attempt count.
type RateLimitStore interface {
	Allow(ctx context.Context, identifier string, limit int, window time.Duration, now time.Time) (RateLimitDecision, error)
}
