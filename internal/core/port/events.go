package port

import (
	"context"

	"github.com/VickyKR37/autobook/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishAccessCodeRegenerated(ctx context.Context, event domain.AccessCodeRegeneratedEvent) error
	PublishMechanicAccessAttempt(ctx context.Context, event domain.MechanicAccessAttemptEvent) error
}

// AccessCodeDispatcher delivers the first plaintext access code to its owner out of band.
type AccessCodeDispatcher interface {
	DispatchInitialCode(ctx context.Context, issued domain.IssuedAccessCode) error
}
