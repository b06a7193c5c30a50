package port

import (
	"context"
	"time"

	"github.com/VickyKR37/autobook/internal/core/domain"
)

// ProfileRepository exposes persistence behavior for user profiles.
type ProfileRepository interface {
	Create(ctx context.Context, profile domain.UserProfile) error
	SetHashedAccessCode(ctx context.Context, accountID string, hashed string, issuedAt time.Time) error
	// FindByEmail returns nil, nil when no profile matches.
	FindByEmail(ctx context.Context, email string) (*domain.UserProfile, error)
	GetByAccountID(ctx context.Context, accountID string) (*domain.UserProfile, error)
}
