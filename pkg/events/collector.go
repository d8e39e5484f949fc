package events

// EventCollector is embedded in aggregates to record domain events as state
// transitions happen. The zero value is ready to use.
type EventCollector struct {
	events []DomainEvent
}

// Record appends a domain event.
func (c *EventCollector) Record(event DomainEvent) {
	c.events = append(c.events, event)
}

// Events returns the recorded events without draining them.
func (c *EventCollector) Events() []DomainEvent {
	return c.events
}

// ClearEvents drains the collector and returns what was recorded. The
// publisher takes this slice, so each event is published at most once.
func (c *EventCollector) ClearEvents() []DomainEvent {
	collected := c.events
	c.events = nil
	return collected
}
