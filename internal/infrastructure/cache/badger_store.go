// Package cache implements the assessment cache port on embedded BadgerDB.
// Entries carry their retention class and insertion time; freshness is decided
// against the live policy TTLs at read time rather than with badger's native
// TTL, so expired entries stay readable for explicitly labeled stale fallbacks.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/port"
)

// TTLResolver maps a retention class to its current time-to-live. The policy
// store supplies one bound to the live snapshot so TTL changes apply to
// already-written entries on their next read.
type TTLResolver func(class port.CacheClass) time.Duration

// Config holds the badger database settings.
type Config struct {
	// Path is the directory for database files. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in RAM, for tests and dev runs.
	InMemory bool

	// SyncWrites forces fsync on every commit.
	SyncWrites bool

	// Logger receives badger's internal messages. Nil disables them.
	Logger *slog.Logger
}

// Open creates or opens the badger database described by cfg.
func Open(cfg Config) (*badger.DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("cache path is required for persistent mode")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	return db, nil
}

// badgerLogger adapts slog to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// storedEntry is the on-disk envelope for one cache value.
type storedEntry struct {
	Value      []byte    `json:"value"`
	Class      string    `json:"class"`
	InsertedAt time.Time `json:"inserted_at"`
}

// Store implements port.AssessmentCache on a badger database.
type Store struct {
	db     *badger.DB
	ttlFor TTLResolver
}

// NewStore creates a badger-backed assessment cache.
func NewStore(db *badger.DB, ttlFor TTLResolver) *Store {
	return &Store{db: db, ttlFor: ttlFor}
}

// Get returns the entry under key if its class TTL has not elapsed.
func (s *Store) Get(ctx context.Context, key string) (port.CacheEntry, bool, error) {
	entry, found, err := s.read(ctx, key)
	if err != nil || !found {
		return port.CacheEntry{}, false, err
	}
	if entry.Age(time.Now()) > s.ttlFor(entry.Class) {
		return port.CacheEntry{}, false, nil
	}
	return entry, true, nil
}

// GetStale returns the entry under key regardless of its age.
func (s *Store) GetStale(ctx context.Context, key string) (port.CacheEntry, bool, error) {
	return s.read(ctx, key)
}

// Put replaces the entry under key. The write transaction never reads, so
// badger's conflict detection cannot abort it: concurrent writers to the same
// key both commit and the later one owns the stored value.
func (s *Store) Put(ctx context.Context, key string, value []byte, class port.CacheClass) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(storedEntry{
		Value:      value,
		Class:      string(class),
		InsertedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	return nil
}

func (s *Store) read(ctx context.Context, key string) (port.CacheEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return port.CacheEntry{}, false, err
	}
	var stored storedEntry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return port.CacheEntry{}, false, nil
	}
	if err != nil {
		return port.CacheEntry{}, false, fmt.Errorf("read cache entry %s: %w", key, err)
	}
	return port.CacheEntry{
		Value:      stored.Value,
		Class:      port.CacheClass(stored.Class),
		InsertedAt: stored.InsertedAt,
	}, true, nil
}
