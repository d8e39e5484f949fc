package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/event"
	"github.com/AyushPandey510/Phis-Shield/pkg/events"
	"github.com/AyushPandey510/Phis-Shield/pkg/kafka"
)

// producerClient matches the pkg/kafka producer surface the publisher needs.
type producerClient interface {
	Publish(ctx context.Context, topic string, messages ...kafka.Message) error
}

// KafkaPublisher implements port.EventPublisher using Kafka.
type KafkaPublisher struct {
	producer producerClient
	topic    string
	logger   *slog.Logger
}

// NewKafkaPublisher creates a Kafka event publisher.
func NewKafkaPublisher(producer producerClient, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// Publish sends domain events to Kafka.
func (p *KafkaPublisher) Publish(ctx context.Context, domainEvents ...events.DomainEvent) error {
	messages := make([]kafka.Message, 0, len(domainEvents))
	for _, evt := range domainEvents {
		eventType := evt.EventType()

		payload, err := json.Marshal(evt)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", eventType, err)
		}

		p.logger.DebugContext(ctx, "publishing event",
			slog.String("event_type", eventType),
			slog.String("topic", p.topic),
			slog.Int("payload_size", len(payload)),
		)

		messages = append(messages, kafka.Message{
			Key:   partitionKey(evt),
			Value: payload,
			Headers: map[string]string{
				"event_type": eventType,
				"event_id":   evt.EventID().String(),
			},
		})
	}

	if len(messages) == 0 {
		return nil
	}

	if err := p.producer.Publish(ctx, p.topic, messages...); err != nil {
		return fmt.Errorf("failed to publish events to topic %s: %w", p.topic, err)
	}

	return nil
}

// partitionKey keys messages by target digest so one target's events stay in
// publish order. Events without a digest fall back to the aggregate ID.
func partitionKey(evt events.DomainEvent) []byte {
	switch e := evt.(type) {
	case event.AssessmentCompleted:
		return []byte(e.TargetDigest)
	case event.DangerDetected:
		return []byte(e.TargetDigest)
	default:
		return []byte(evt.AggregateID().String())
	}
}
