package events

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is implemented by every event an aggregate records. Events
// serialize as their own structs at the publisher, so the contract carries
// identity and ordering only.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	AggregateID() uuid.UUID
	OccurredAt() time.Time
}

// BaseEvent supplies the DomainEvent identity fields for embedding.
type BaseEvent struct {
	id          uuid.UUID
	eventType   string
	aggregateID uuid.UUID
	occurredAt  time.Time
}

// NewBaseEvent creates a BaseEvent with a generated UUID and the current time.
func NewBaseEvent(eventType string, aggregateID uuid.UUID) BaseEvent {
	return BaseEvent{
		id:          uuid.New(),
		eventType:   eventType,
		aggregateID: aggregateID,
		occurredAt:  time.Now().UTC(),
	}
}

// EventID returns the unique identifier for this event.
func (e BaseEvent) EventID() uuid.UUID {
	return e.id
}

// EventType returns the namespaced type name of this event.
func (e BaseEvent) EventType() string {
	return e.eventType
}

// AggregateID returns the identifier of the aggregate that recorded this event.
func (e BaseEvent) AggregateID() uuid.UUID {
	return e.aggregateID
}

// OccurredAt returns the time at which this event was recorded.
func (e BaseEvent) OccurredAt() time.Time {
	return e.occurredAt
}
