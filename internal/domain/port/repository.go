package port

import (
	"context"
	"time"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/model"
	"github.com/AyushPandey510/Phis-Shield/pkg/events"
)

// CacheClass selects the retention window for a cached value. Concrete TTLs
// come from policy; the classes express how fast the underlying fact moves.
type CacheClass string

const (
	// CacheLong holds slow-moving structural facts such as certificate
	// posture, on the order of a day.
	CacheLong CacheClass = "long"

	// CacheShort holds completed assessments, on the order of hours.
	CacheShort CacheClass = "short"

	// CacheSnapshot holds throttle-time fallback snapshots, minutes at most.
	CacheSnapshot CacheClass = "snapshot"
)

// CacheEntry is a stored value together with its insertion time. Expiry is
// decided against the class TTL at read time, not at write time, so that
// expired entries stay readable for explicitly labeled stale fallbacks.
type CacheEntry struct {
	Value      []byte
	Class      CacheClass
	InsertedAt time.Time
}

// Age reports how long ago the entry was written.
func (e CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.InsertedAt)
}

// AssessmentCache defines the port for the shared result cache. Writes follow
// last-writer-wins per key; concurrent assessments of the same target must
// both succeed with one of them owning the final cached value.
type AssessmentCache interface {
	// Get returns a fresh entry, reporting found=false when the key is
	// absent or its class TTL has elapsed.
	Get(ctx context.Context, key string) (entry CacheEntry, found bool, err error)

	// GetStale returns the entry regardless of expiry so callers can serve
	// it labeled as stale during total signal failure.
	GetStale(ctx context.Context, key string) (entry CacheEntry, found bool, err error)

	// Put stores the value under the given retention class, replacing any
	// previous entry for the key.
	Put(ctx context.Context, key string, value []byte, class CacheClass) error
}

// FeedbackStore defines the append-only persistence port for user feedback.
type FeedbackStore interface {
	// Append durably adds one feedback record. Records are never updated
	// or deleted; corrections arrive as new records.
	Append(ctx context.Context, record *model.FeedbackRecord) error

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]*model.FeedbackRecord, error)
}

// EventPublisher defines the port for publishing domain events.
type EventPublisher interface {
	// Publish sends one or more domain events to the messaging infrastructure.
	Publish(ctx context.Context, evts ...events.DomainEvent) error
}
