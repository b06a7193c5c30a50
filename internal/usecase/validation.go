package usecase

import (
	"context"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/VickyKR37/autobook/internal/core/domain"
	"github.com/VickyKR37/autobook/internal/core/port"
	"github.com/VickyKR37/autobook/internal/infra/config"
	"github.com/VickyKR37/autobook/internal/infra/logger"
)

const (
	mechanicValidateRateLimitScope = "mechanic_validate"

	ValidationOutcomeGranted     = "granted"
	ValidationOutcomeNotFound    = "profile_not_found"
	ValidationOutcomeNotSet      = "access_code_not_set"
	ValidationOutcomeMismatch    = "code_mismatch"
	ValidationOutcomeRateLimited = "rate_limited"
	ValidationOutcomeError       = "error"

	credentialsRequiredMessage = "Owner email and access code are required."
	invalidEmailMessage        = "Owner email must be a valid email address."

	decoyAccessCode = "DECOY0"
)

// ValidationService checks mechanic-presented email and access code pairs.
// It never mutates the stored profile.
type ValidationService struct {
	cfg        *config.AppConfig
	profiles   port.ProfileRepository
	hasher     port.AccessCodeHasher
	rateLimits port.RateLimitStore
	events     port.EventPublisher
	metrics    port.AccessCodeMetrics
	logger     *zap.Logger
	now        func() time.Time

	// decoyHash is verified against when there is no real hash to check.
	decoyHash string
}

// NewValidationService constructs a ValidationService.
func NewValidationService(cfg *config.AppConfig, profiles port.ProfileRepository, hasher port.AccessCodeHasher, rateLimits port.RateLimitStore, events port.EventPublisher, logger *zap.Logger) *ValidationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ValidationService{
		cfg:        cfg,
		profiles:   profiles,
		hasher:     hasher,
		rateLimits: rateLimits,
		events:     events,
		metrics:    noopMetrics{},
		logger:     logger,
		now:        time.Now,
	}
	if hasher != nil {
		hashed, err := hasher.Hash(decoyAccessCode)
		if err != nil {
			logger.Warn("prepare decoy hash failed", zap.Error(err))
		}
		s.decoyHash = hashed
	}
	return s
}

// WithClock allows tests to override the clock used by the service.
func (s *ValidationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithMetrics attaches a validation metrics recorder.
func (s *ValidationService) WithMetrics(metrics port.AccessCodeMetrics) {
	if metrics != nil {
		s.metrics = metrics
	}
}

// ValidateAccess returns the owner's account identifier when code is the current access code for
// ownerEmail. Every denial cause yields ErrAccessDenied so callers cannot tell them apart.
func (s *ValidationService) ValidateAccess(ctx context.Context, ownerEmail, code string) (*domain.AccessGrant, error) {
	email := NormalizeEmail(ownerEmail)
	code = NormalizeAccessCode(code)
	if email == "" || code == "" {
		return nil, invalidArgument(credentialsRequiredMessage)
	}
	if !validEmail(email) {
		return nil, invalidArgument(invalidEmailMessage)
	}

	masked := logger.MaskEmail(email)
	logger.FromContext(ctx, s.logger).Info("mechanic validation attempt", zap.String("owner_email", masked))

	if err := s.enforceEmailRateLimit(ctx, email, s.now()); err != nil {
		s.metrics.ObserveValidation(ValidationOutcomeRateLimited)
		logger.FromContext(ctx, s.logger).Warn("mechanic validation rate limited", zap.String("owner_email", masked))
		return nil, err
	}

	profile, err := s.profiles.FindByEmail(ctx, email)
	if err != nil {
		s.metrics.ObserveValidation(ValidationOutcomeError)
		s.logger.Error("lookup profile by email failed", zap.String("owner_email", masked), zap.Error(err))
		return nil, internalError("find profile", err)
	}

	if profile == nil {
		s.spendDecoyVerification(code)
		return nil, s.deny(ctx, masked, "", ValidationOutcomeNotFound)
	}
	if !profile.HasAccessCode() {
		s.spendDecoyVerification(code)
		return nil, s.deny(ctx, masked, profile.AccountID, ValidationOutcomeNotSet)
	}

	ok, err := s.hasher.Verify(code, profile.HashedAccessCode)
	if err != nil {
		// A broken stored hash must not reveal that the email exists.
		logger.FromContext(ctx, s.logger).Error("verify access code failed",
			zap.String("owner_email", masked),
			zap.String("account_id", profile.AccountID),
			zap.Error(err),
		)
		return nil, s.deny(ctx, masked, profile.AccountID, ValidationOutcomeError)
	}
	if !ok {
		return nil, s.deny(ctx, masked, profile.AccountID, ValidationOutcomeMismatch)
	}

	s.metrics.ObserveValidation(ValidationOutcomeGranted)
	logger.FromContext(ctx, s.logger).Info("mechanic access granted",
		zap.String("owner_email", masked),
		zap.String("account_id", profile.AccountID),
	)
	s.publishAttempt(ctx, masked, profile.AccountID, domain.MechanicAccessGranted)

	return &domain.AccessGrant{
		OwnerAccountID: profile.AccountID,
		OwnerEmail:     profile.Email,
	}, nil
}

func (s *ValidationService) deny(ctx context.Context, maskedEmail, accountID, reason string) error {
	s.metrics.ObserveValidation(reason)
	fields := []zap.Field{zap.String("owner_email", maskedEmail), zap.String("reason", reason)}
	if accountID != "" {
		fields = append(fields, zap.String("account_id", accountID))
	}
	logger.FromContext(ctx, s.logger).Warn("mechanic access denied", fields...)
	s.publishAttempt(ctx, maskedEmail, accountID, domain.MechanicAccessDenied)
	return ErrAccessDenied
}

// spendDecoyVerification runs one verification against a throwaway hash so a missing
// profile costs as much time as a wrong code.
func (s *ValidationService) spendDecoyVerification(code string) {
	if s.hasher == nil || s.decoyHash == "" {
		return
	}
	_, _ = s.hasher.Verify(code, s.decoyHash)
}

func (s *ValidationService) enforceEmailRateLimit(ctx context.Context, email string, now time.Time) error {
	if s.rateLimits == nil || s.cfg == nil {
		return nil
	}

	limit := s.cfg.RateLimit.EmailMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := s.cfg.RateLimit.WindowDuration
	if window <= 0 {
		window = 15 * time.Minute
	}

	storageKey := fmt.Sprintf("%s:%s", mechanicValidateRateLimitScope, email)

	decision, err := s.rateLimits.Allow(ctx, storageKey, limit, window, now)
	if err != nil {
		s.logger.Warn("mechanic validation rate limit check failed", zap.String("scope", mechanicValidateRateLimitScope), zap.Error(err))
		return nil
	}
	if decision.Allowed {
		return nil
	}

	retryAfter := time.Duration(0)
	if !decision.Oldest.IsZero() {
		if reset := decision.Oldest.Add(window); reset.After(now) {
			retryAfter = reset.Sub(now)
		}
	}
	return &RateLimitExceededError{Scope: mechanicValidateRateLimitScope, RetryAfter: retryAfter}
}

func (s *ValidationService) publishAttempt(ctx context.Context, maskedEmail, accountID string, outcome domain.MechanicAccessOutcome) {
	if s.events == nil {
		return
	}

	event := domain.MechanicAccessAttemptEvent{
		EventID:        uuid.NewString(),
		OwnerAccountID: accountID,
		MaskedEmail:    maskedEmail,
		Outcome:        outcome,
		AttemptedAt:    s.now().UTC(),
	}
	if err := s.events.PublishMechanicAccessAttempt(ctx, event); err != nil {
		s.logger.Warn("publish mechanic access attempt failed", zap.String("outcome", string(outcome)), zap.Error(err))
	}
}
