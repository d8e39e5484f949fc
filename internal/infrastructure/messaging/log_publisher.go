// Package messaging implements the event publisher port. The Kafka variant
// feeds downstream alerting and blocklist refresh; the log variant is the
// sink for dev runs without a broker.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/AyushPandey510/Phis-Shield/pkg/events"
)

// LogPublisher implements port.EventPublisher by writing events to the
// structured log.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a log-backed event publisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs each event at info level.
func (p *LogPublisher) Publish(ctx context.Context, domainEvents ...events.DomainEvent) error {
	for _, evt := range domainEvents {
		payload, err := json.Marshal(evt)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", evt.EventType(), err)
		}

		p.logger.InfoContext(ctx, "event published",
			slog.String("event_type", evt.EventType()),
			slog.String("event_id", evt.EventID().String()),
			slog.String("payload", string(payload)),
		)
	}
	return nil
}
