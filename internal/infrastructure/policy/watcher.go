package policy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow batches the burst of events editors and config mounts
// produce for a single save.
const debounceWindow = 200 * time.Millisecond

// Store holds the current compiled policy and swaps it atomically on
// reload. Readers call Current once per request and work from that
// snapshot for the whole assessment, so a reload mid-request cannot mix
// two policy revisions.
type Store struct {
	path    string
	logger  *slog.Logger
	current atomic.Pointer[Snapshot]
}

// NewStore loads and compiles the policy file at path. The initial load
// must succeed; serving with no policy at all is not an option.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	s := &Store{path: path, logger: logger}

	pol, err := Load(path)
	if err != nil {
		return nil, err
	}
	snap, err := Compile(pol)
	if err != nil {
		return nil, err
	}
	s.current.Store(snap)
	return s, nil
}

// NewStaticStore wraps an in-memory policy with no backing file. Used by
// tests and by deployments that do not mount a policy file.
func NewStaticStore(p *Policy, logger *slog.Logger) (*Store, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	snap, err := Compile(p)
	if err != nil {
		return nil, err
	}
	s := &Store{logger: logger}
	s.current.Store(snap)
	return s, nil
}

// Current returns the latest compiled snapshot.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Watch blocks until ctx is done, recompiling the policy whenever the
// backing file changes. A revision that fails to load or compile is
// logged and skipped; the previous snapshot stays live.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("policy watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: rename-and-replace writes and
	// Kubernetes configmap updates swap the inode out from under a
	// file-level watch.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("policy watcher: %w", err)
	}

	target := filepath.Clean(s.path)
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(debounceWindow)

		case <-pending:
			pending = nil
			s.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("policy watcher error", "error", err)
		}
	}
}

func (s *Store) reload() {
	pol, err := Load(s.path)
	if err != nil {
		s.logger.Error("policy reload failed, keeping previous revision", "path", s.path, "error", err)
		return
	}
	snap, err := Compile(pol)
	if err != nil {
		s.logger.Error("policy reload failed, keeping previous revision", "path", s.path, "error", err)
		return
	}
	s.current.Store(snap)
	s.logger.Info("policy reloaded", "path", s.path)
}
