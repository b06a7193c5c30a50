package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/VickyKR37/autobook/internal/core/domain"
	"github.com/VickyKR37/autobook/internal/core/port"
	"github.com/VickyKR37/autobook/internal/infra/logger"
	"github.com/VickyKR37/autobook/internal/repository"
)

const (
	IssueTriggerAccountCreated = "account_created"
	IssueTriggerRegenerate     = "regenerate"
)

// IssuanceService provisions user profiles and (re)issues mechanic access codes.
//
// Regeneration is last-write-wins: two concurrent regenerations for the same
// account both return a code, but only the one persisted last will validate.
type IssuanceService struct {
	profiles  port.ProfileRepository
	hasher    port.AccessCodeHasher
	generator port.AccessCodeGenerator
	events    port.EventPublisher
	metrics   port.AccessCodeMetrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewIssuanceService constructs an IssuanceService.
func NewIssuanceService(profiles port.ProfileRepository, hasher port.AccessCodeHasher, generator port.AccessCodeGenerator, events port.EventPublisher, logger *zap.Logger) *IssuanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IssuanceService{
		profiles:  profiles,
		hasher:    hasher,
		generator: generator,
		events:    events,
		metrics:   noopMetrics{},
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *IssuanceService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithMetrics attaches an issuance metrics recorder.
func (s *IssuanceService) WithMetrics(metrics port.AccessCodeMetrics) {
	if metrics != nil {
		s.metrics = metrics
	}
}

// OnAccountCreated creates the profile for a new account together with its first access code.
// The plaintext code is returned once for out-of-band disclosure. Accounts without an email and
// accounts that already have a profile are skipped with a nil result and nil error.
func (s *IssuanceService) OnAccountCreated(ctx context.Context, accountID, email string) (*domain.IssuedAccessCode, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, invalidArgument("account id is required")
	}

	normalized := NormalizeEmail(email)
	if normalized == "" {
		s.logger.Warn("account has no email; skipping access code provisioning", zap.String("account_id", accountID))
		return nil, nil
	}

	code, hashed, err := s.newAccessCode()
	if err != nil {
		s.logger.Error("prepare initial access code failed", zap.String("account_id", accountID), zap.Error(err))
		return nil, err
	}

	now := s.now().UTC()
	profile := domain.UserProfile{
		AccountID:          accountID,
		Email:              normalized,
		HashedAccessCode:   hashed,
		CreatedAt:          now,
		AccessCodeIssuedAt: &now,
	}

	if err := s.profiles.Create(ctx, profile); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyExists):
			s.logger.Info("profile already provisioned; keeping existing access code", zap.String("account_id", accountID))
			return nil, nil
		case errors.Is(err, repository.ErrEmailTaken):
			s.logger.Error("email already belongs to another profile",
				zap.String("account_id", accountID),
				zap.String("email", logger.MaskEmail(normalized)),
			)
			return nil, fmt.Errorf("create profile: %w", err)
		default:
			s.logger.Error("create profile failed", zap.String("account_id", accountID), zap.Error(err))
			return nil, internalError("create profile", err)
		}
	}

	s.metrics.ObserveIssued(IssueTriggerAccountCreated)
	s.logger.Info("profile created with hashed access code",
		zap.String("account_id", accountID),
		zap.String("email", logger.MaskEmail(normalized)),
	)

	return &domain.IssuedAccessCode{
		AccountID: accountID,
		Email:     normalized,
		Code:      code,
		IssuedAt:  now,
	}, nil
}

// RegenerateAccessCode replaces the access code of the authenticated account and returns the new
// plaintext. The previous code stops validating once the write lands.
func (s *IssuanceService) RegenerateAccessCode(ctx context.Context, accountID string) (*domain.IssuedAccessCode, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, ErrUnauthenticated
	}

	code, hashed, err := s.newAccessCode()
	if err != nil {
		s.logger.Error("prepare regenerated access code failed", zap.String("account_id", accountID), zap.Error(err))
		return nil, err
	}

	now := s.now().UTC()
	if err := s.profiles.SetHashedAccessCode(ctx, accountID, hashed, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("regenerate access code for account without profile", zap.String("account_id", accountID))
		} else {
			s.logger.Error("store regenerated access code failed", zap.String("account_id", accountID), zap.Error(err))
		}
		return nil, internalError("update access code", err)
	}

	s.metrics.ObserveIssued(IssueTriggerRegenerate)
	s.logger.Info("mechanic access code regenerated", zap.String("account_id", accountID))
	s.publishRegenerated(ctx, accountID, now)

	return &domain.IssuedAccessCode{
		AccountID: accountID,
		Code:      code,
		IssuedAt:  now,
	}, nil
}

// AccessCodeStatus reports whether the account has an access code and when it was issued.
func (s *IssuanceService) AccessCodeStatus(ctx context.Context, accountID string) (*domain.AccessCodeStatus, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, ErrUnauthenticated
	}

	profile, err := s.profiles.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		s.logger.Error("load profile failed", zap.String("account_id", accountID), zap.Error(err))
		return nil, internalError("load profile", err)
	}

	return &domain.AccessCodeStatus{
		AccountID:   profile.AccountID,
		Provisioned: profile.HasAccessCode(),
		IssuedAt:    profile.AccessCodeIssuedAt,
	}, nil
}

func (s *IssuanceService) newAccessCode() (string, string, error) {
	if s.generator == nil || s.hasher == nil {
		return "", "", internalError("issue access code", errors.New("generator or hasher not configured"))
	}

	code, err := s.generator.Generate()
	if err != nil {
		return "", "", internalError("generate access code", err)
	}

	hashed, err := s.hasher.Hash(code)
	if err != nil {
		return "", "", internalError("hash access code", err)
	}
	if hashed == "" {
		return "", "", internalError("hash access code", errors.New("empty hash"))
	}

	return code, hashed, nil
}

func (s *IssuanceService) publishRegenerated(ctx context.Context, accountID string, at time.Time) {
	if s.events == nil {
		return
	}

	event := domain.AccessCodeRegeneratedEvent{
		EventID:       uuid.NewString(),
		AccountID:     accountID,
		RegeneratedAt: at,
	}
	if err := s.events.PublishAccessCodeRegenerated(ctx, event); err != nil {
		s.logger.Warn("publish access code regenerated event failed", zap.String("account_id", accountID), zap.Error(err))
	}
}

type noopMetrics struct{}

func (noopMetrics) ObserveIssued(string)     {}
func (noopMetrics) ObserveValidation(string) {}
