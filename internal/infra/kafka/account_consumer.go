package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/VickyKR37/autobook/internal/core/domain"
	"github.com/VickyKR37/autobook/internal/core/port"
	"github.com/VickyKR37/autobook/internal/infra/logger"
	"github.com/VickyKR37/autobook/internal/usecase"
)

// AccountProvisioner creates the profile and first access code for a new account.
type AccountProvisioner interface {
	OnAccountCreated(ctx context.Context, accountID, email string) (*domain.IssuedAccessCode, error)
}

// AccountCreatedConsumer provisions mechanic access codes from account-created events.
type AccountCreatedConsumer struct {
	provisioner AccountProvisioner
	dispatcher  port.AccessCodeDispatcher
	logger      *zap.Logger
	now         func() time.Time
}

// NewAccountCreatedConsumer constructs a consumer for account-created events.
func NewAccountCreatedConsumer(provisioner AccountProvisioner, dispatcher port.AccessCodeDispatcher, logger *zap.Logger) *AccountCreatedConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountCreatedConsumer{
		provisioner: provisioner,
		dispatcher:  dispatcher,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the consumer clock for deterministic testing.
func (c *AccountCreatedConsumer) WithClock(clock func() time.Time) *AccountCreatedConsumer {
	if clock != nil {
		c.now = clock
	}
	return c
}

// accountCreatedMessage accepts both a flat event and one wrapped in an envelope payload.
type accountCreatedMessage struct {
	EventID   string          `json:"event_id"`
	AccountID string          `json:"account_id"`
	UserID    string          `json:"user_id"`
	Email     *string         `json:"email"`
	CreatedAt time.Time       `json:"created_at"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

func decodeAccountCreated(value []byte) (domain.AccountCreatedEvent, error) {
	var msg accountCreatedMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return domain.AccountCreatedEvent{}, err
	}

	if len(msg.Payload) > 0 && string(msg.Payload) != "null" {
		var inner accountCreatedMessage
		if err := json.Unmarshal(msg.Payload, &inner); err != nil {
			return domain.AccountCreatedEvent{}, fmt.Errorf("payload: %w", err)
		}
		if inner.EventID == "" {
			inner.EventID = msg.EventID
		}
		if inner.AccountID == "" && inner.UserID == "" {
			inner.AccountID = firstNonEmpty(msg.AccountID, msg.UserID)
		}
		if inner.CreatedAt.IsZero() {
			inner.CreatedAt = msg.Timestamp
		}
		msg = inner
	}

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = msg.Timestamp
	}

	return domain.AccountCreatedEvent{
		EventID:   msg.EventID,
		AccountID: firstNonEmpty(msg.AccountID, msg.UserID),
		Email:     msg.Email,
		CreatedAt: createdAt,
	}, nil
}

// HandleMessage decodes a Kafka message prior to processing.
func (c *AccountCreatedConsumer) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if msg == nil {
		return fmt.Errorf("message is nil")
	}

	event, err := decodeAccountCreated(msg.Value)
	if err != nil {
		return fmt.Errorf("decode account created event: %w", err)
	}

	return c.HandleEvent(ctx, event)
}

// HandleEvent provisions the profile and hands the first code to the dispatcher.
// Replayed events for an existing profile are acknowledged without issuing a new code.
func (c *AccountCreatedConsumer) HandleEvent(ctx context.Context, event domain.AccountCreatedEvent) error {
	if c.provisioner == nil {
		return nil
	}

	email := ""
	if event.Email != nil {
		email = *event.Email
	}

	if !event.CreatedAt.IsZero() {
		lag := c.now().Sub(event.CreatedAt)
		if lag < 0 {
			lag = 0
		}
		c.logger.Debug("account created event received",
			zap.String("event_id", event.EventID),
			zap.String("account_id", event.AccountID),
			zap.Duration("lag", lag),
		)
	}

	issued, err := c.provisioner.OnAccountCreated(ctx, event.AccountID, email)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidArgument) {
			c.logger.Warn("skip malformed account created event", zap.String("event_id", event.EventID), zap.Error(err))
			return nil
		}
		return fmt.Errorf("provision access code: %w", err)
	}
	if issued == nil {
		return nil
	}

	if c.dispatcher == nil {
		c.logger.Warn("no access code dispatcher configured; initial code not disclosed",
			zap.String("account_id", issued.AccountID),
		)
		return nil
	}

	if err := c.dispatcher.DispatchInitialCode(ctx, *issued); err != nil {
		c.logger.Error("dispatch initial access code failed",
			zap.String("account_id", issued.AccountID),
			zap.String("email", logger.MaskEmail(issued.Email)),
			zap.Error(err),
		)
	}

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

var _ interface {
	HandleMessage(context.Context, *sarama.ConsumerMessage) error
	HandleEvent(context.Context, domain.AccountCreatedEvent) error
} = (*AccountCreatedConsumer)(nil)
