package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/VickyKR37/autobook/internal/core/domain"
	"github.com/VickyKR37/autobook/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("account_id", accountID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishAccessCodeRegenerated logs access_code.regenerated events.
func (p *StubPublisher) PublishAccessCodeRegenerated(_ context.Context, event domain.AccessCodeRegeneratedEvent) error {
	payload := map[string]any{
		"account_id":     event.AccountID,
		"regenerated_at": event.RegeneratedAt,
		"metadata":       event.Metadata,
	}
	p.logEvent(EventTypeAccessCodeRegenerated, event.AccountID, event.RegeneratedAt, payload)
	return nil
}

// PublishMechanicAccessAttempt logs mechanic_access.attempted events.
func (p *StubPublisher) PublishMechanicAccessAttempt(_ context.Context, event domain.MechanicAccessAttemptEvent) error {
	payload := map[string]any{
		"owner_account_id":   event.OwnerAccountID,
		"owner_email_masked": event.MaskedEmail,
		"outcome":            event.Outcome,
		"attempted_at":       event.AttemptedAt,
	}
	p.logEvent(EventTypeMechanicAccessAttempted, event.OwnerAccountID, event.AttemptedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
