package messaging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/event"
	"github.com/AyushPandey510/Phis-Shield/internal/infrastructure/messaging"
	"github.com/AyushPandey510/Phis-Shield/pkg/kafka"
)

type capturingProducer struct {
	topic    string
	messages []kafka.Message
	calls    int
	err      error
}

func (p *capturingProducer) Publish(_ context.Context, topic string, messages ...kafka.Message) error {
	p.calls++
	p.topic = topic
	p.messages = append(p.messages, messages...)
	return p.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestKafkaPublisherBuildsMessages(t *testing.T) {
	producer := &capturingProducer{}
	publisher := messaging.NewKafkaPublisher(producer, "risk.assessments", testLogger())

	assessmentID := uuid.New()
	completed := event.NewAssessmentCompleted(
		assessmentID, "URL", "digest-9f2c", "https://login-secure.example/verify",
		85, "DANGER", 0.15, time.Now().UTC(),
	)
	danger := event.NewDangerDetected(
		assessmentID, "digest-9f2c", "https://login-secure.example/verify",
		85, []string{"heuristics: keyword 'login' in host"}, time.Now().UTC(),
	)

	require.NoError(t, publisher.Publish(context.Background(), completed, danger))

	require.Equal(t, 1, producer.calls)
	require.Equal(t, "risk.assessments", producer.topic)
	require.Len(t, producer.messages, 2)

	// Both events share the target digest key, so they land on one partition.
	require.Equal(t, []byte("digest-9f2c"), producer.messages[0].Key)
	require.Equal(t, []byte("digest-9f2c"), producer.messages[1].Key)

	require.Equal(t, event.EventTypeAssessmentCompleted, producer.messages[0].Headers["event_type"])
	require.Equal(t, event.EventTypeDangerDetected, producer.messages[1].Headers["event_type"])
	require.NotEmpty(t, producer.messages[0].Headers["event_id"])

	var payload struct {
		OverallScore int    `json:"overall_score"`
		Tier         string `json:"tier"`
	}
	require.NoError(t, json.Unmarshal(producer.messages[0].Value, &payload))
	require.Equal(t, 85, payload.OverallScore)
	require.Equal(t, "DANGER", payload.Tier)
}

func TestKafkaPublisherNoEvents(t *testing.T) {
	producer := &capturingProducer{}
	publisher := messaging.NewKafkaPublisher(producer, "risk.assessments", testLogger())

	require.NoError(t, publisher.Publish(context.Background()))
	require.Zero(t, producer.calls)
}

func TestKafkaPublisherProducerError(t *testing.T) {
	producer := &capturingProducer{err: errors.New("broker unreachable")}
	publisher := messaging.NewKafkaPublisher(producer, "risk.assessments", testLogger())

	completed := event.NewAssessmentCompleted(
		uuid.New(), "URL", "digest-9f2c", "https://example.org",
		10, "SAFE", 0.15, time.Now().UTC(),
	)

	err := publisher.Publish(context.Background(), completed)
	require.ErrorContains(t, err, "risk.assessments")
	require.ErrorContains(t, err, "broker unreachable")
}

func TestLogPublisherWritesEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	publisher := messaging.NewLogPublisher(logger)

	completed := event.NewAssessmentCompleted(
		uuid.New(), "URL", "digest-9f2c", "https://example.org",
		10, "SAFE", 0.15, time.Now().UTC(),
	)

	require.NoError(t, publisher.Publish(context.Background(), completed))
	require.Contains(t, buf.String(), event.EventTypeAssessmentCompleted)
	require.Contains(t, buf.String(), "digest-9f2c")
}
