package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/VickyKR37/autobook/internal/core/domain"
	"github.com/VickyKR37/autobook/internal/core/port"
	"github.com/VickyKR37/autobook/internal/infra/config"
)

const (
	schemaVersion = "1.0"

	EventTypeAccessCodeRegenerated   = "access_code.regenerated"
	EventTypeMechanicAccessAttempted = "mechanic_access.attempted"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	AccountID string           `json:"account_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, accountID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		AccountID: accountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}
	if accountID != "" {
		message.Key = sarama.StringEncoder(accountID)
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAccessCodeRegenerated publishes access_code.regenerated events. The code itself is never included.
func (p *EventPublisher) PublishAccessCodeRegenerated(ctx context.Context, event domain.AccessCodeRegeneratedEvent) error {
	payload := struct {
		AccountID     string         `json:"account_id"`
		RegeneratedAt time.Time      `json:"regenerated_at"`
		Metadata      map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:     event.AccountID,
		RegeneratedAt: event.RegeneratedAt.UTC(),
		Metadata:      event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventTypeAccessCodeRegenerated, event.AccountID, event.RegeneratedAt, payload)
}

// PublishMechanicAccessAttempt publishes mechanic_access.attempted events.
func (p *EventPublisher) PublishMechanicAccessAttempt(ctx context.Context, event domain.MechanicAccessAttemptEvent) error {
	payload := struct {
		OwnerAccountID string         `json:"owner_account_id,omitempty"`
		OwnerEmail     string         `json:"owner_email_masked"`
		Outcome        string         `json:"outcome"`
		AttemptedAt    time.Time      `json:"attempted_at"`
		Metadata       map[string]any `json:"metadata,omitempty"`
	}{
		OwnerAccountID: event.OwnerAccountID,
		OwnerEmail:     event.MaskedEmail,
		Outcome:        string(event.Outcome),
		AttemptedAt:    event.AttemptedAt.UTC(),
		Metadata:       event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventTypeMechanicAccessAttempted, event.OwnerAccountID, event.AttemptedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
