package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"

	"github.com/VickyKR37/autobook/internal/core/domain"
	"github.com/VickyKR37/autobook/internal/infra/config"
	redisrepo "github.com/VickyKR37/autobook/internal/repository/redis"
)

func TestValidationService_ValidateAccess_ConcurrentBurstHonoursEmailLimit(t *testing.T) {
	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := redisrepo.NewRateLimitRepository(client, redisrepo.SlidingWindowConfig{KeyPrefix: "autobook:rate-limit", TTL: 30 * time.Minute})
	cfg := &config.AppConfig{
		RateLimit: config.RateLimitSettings{
			WindowDuration:   15 * time.Minute,
			EmailMaxAttempts: 3,
		},
	}

	profiles := newMemoryProfileRepository()
	profiles.put(domain.UserProfile{AccountID: "u1", Email: "owner@example.com", HashedAccessCode: "hashed:AB12CD"})
	hasher := &stubHasher{}

	svc := NewValidationService(cfg, profiles, hasher, store, nil, zaptest.NewLogger(t))
	now := time.Date(2025, 5, 2, 9, 30, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return now })

	const attempts = 40
	var (
		denied  atomic.Int32
		limited atomic.Int32
		wg      sync.WaitGroup
	)
	start := make(chan struct{})

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.ValidateAccess(context.Background(), "owner@example.com", "WRONG1")
			var rateErr *RateLimitExceededError
			switch {
			case errors.Is(err, ErrAccessDenied):
				denied.Add(1)
			case errors.As(err, &rateErr):
				limited.Add(1)
			default:
				t.Errorf("unexpected result: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := denied.Load(); got != 3 {
		t.Fatalf("expected 3 attempts to reach verification, got %d", got)
	}
	if got := limited.Load(); got != attempts-3 {
		t.Fatalf("expected %d rate limited attempts, got %d", attempts-3, got)
	}
	if profiles.findCalls != 3 {
		t.Fatalf("expected 3 profile lookups, got %d", profiles.findCalls)
	}
}
