package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/VickyKR37/autobook/internal/infra/config"
)

// MessageHandler processes a single consumed message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error
}

// ConsumerGroup runs a Sarama consumer group and feeds every message to a MessageHandler.
type ConsumerGroup struct {
	group   sarama.ConsumerGroup
	topics  []string
	handler MessageHandler
	logger  *zap.Logger
}

func newConsumerConfig() *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_5_0_0

	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = time.Second
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Return.Errors = true

	saramaConfig.Metadata.Retry.Max = 3
	saramaConfig.Metadata.Retry.Backoff = 250 * time.Millisecond

	return saramaConfig
}

// NewConsumerGroup joins the configured consumer group for topic.
func NewConsumerGroup(cfg config.KafkaSettings, topic string, handler MessageHandler, logger *zap.Logger) (*ConsumerGroup, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("create kafka consumer group: topic is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("create kafka consumer group: handler is required")
	}

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, newConsumerConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer group: %w", err)
	}

	logger.Info("Kafka consumer group initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("group", cfg.ConsumerGroup),
		zap.String("topic", topic),
	)

	return newConsumerGroup(group, []string{topic}, handler, logger), nil
}

func newConsumerGroup(group sarama.ConsumerGroup, topics []string, handler MessageHandler, logger *zap.Logger) *ConsumerGroup {
	return &ConsumerGroup{group: group, topics: topics, handler: handler, logger: logger}
}

// Run consumes until ctx is cancelled or the group is closed. Rebalances restart the session.
func (g *ConsumerGroup) Run(ctx context.Context) error {
	go g.logErrors(ctx)

	claims := &claimHandler{handler: g.handler, logger: g.logger}
	for {
		if err := g.group.Consume(ctx, g.topics, claims); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			g.logger.Error("kafka consume session failed", zap.Strings("topics", g.topics), zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (g *ConsumerGroup) logErrors(ctx context.Context) {
	for {
		select {
		case err, ok := <-g.group.Errors():
			if !ok {
				return
			}
			g.logger.Error("kafka consumer group error", zap.Error(err))
		case <-ctx.Done():
			return
		}
	}
}

// Close leaves the consumer group.
func (g *ConsumerGroup) Close() error {
	if err := g.group.Close(); err != nil {
		return fmt.Errorf("close kafka consumer group: %w", err)
	}
	return nil
}

type claimHandler struct {
	handler MessageHandler
	logger  *zap.Logger
}

func (h *claimHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.logger.Info("kafka consumer session started",
		zap.String("member_id", session.MemberID()),
		zap.Int32("generation", session.GenerationID()),
	)
	return nil
}

func (h *claimHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim marks every message once handled. Failed messages are logged and not redelivered.
func (h *claimHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.handler.HandleMessage(session.Context(), msg); err != nil {
				h.logger.Error("kafka message handling failed",
					zap.String("topic", msg.Topic),
					zap.Int32("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err),
				)
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

var _ sarama.ConsumerGroupHandler = (*claimHandler)(nil)
