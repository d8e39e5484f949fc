// Package feedback implements the append-only feedback store port. Records
// are written for the offline retraining pipeline and are never read back
// into live scoring.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/model"
)

// JSONLStore appends records to a newline-delimited JSON file. One record
// per line, written in a single syscall so concurrent appenders never
// interleave bytes.
type JSONLStore struct {
	path string

	mu   sync.Mutex
	file *os.File
}

// NewJSONLStore opens (creating if needed) the feedback file at path.
func NewJSONLStore(path string) (*JSONLStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create feedback directory %s: %w", dir, err)
		}
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open feedback file %s: %w", path, err)
	}
	return &JSONLStore{path: path, file: file}, nil
}

// Append implements port.FeedbackStore.
func (s *JSONLStore) Append(ctx context.Context, record *model.FeedbackRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode feedback record: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(data); err != nil {
		return fmt.Errorf("failed to append feedback record: %w", err)
	}
	return nil
}

// Recent implements port.FeedbackStore, returning up to limit records newest
// first. Lines that fail to parse are skipped; a torn final line from a
// crashed writer must not take the read path down with it.
func (s *JSONLStore) Recent(ctx context.Context, limit int) ([]*model.FeedbackRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []*model.FeedbackRecord{}, nil
	}

	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to read feedback file: %w", err)
	}

	var records []*model.FeedbackRecord
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var record model.FeedbackRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			continue
		}
		records = append(records, &record)
	}

	if len(records) > limit {
		records = records[len(records)-limit:]
	}
	// File order is oldest first; callers want newest first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	if records == nil {
		records = []*model.FeedbackRecord{}
	}
	return records, nil
}

// Close flushes and closes the underlying file.
func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
