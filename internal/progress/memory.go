package progress

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps progress records in memory, for tests and ephemeral runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Put(_ context.Context, record *Record) error {
	if record == nil || record.TaskID == "" {
		return fmt.Errorf("progress: record with task ID required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		if existing, ok := s.records[record.TaskID]; ok {
			record.CreatedAt = existing.CreatedAt
		} else {
			record.CreatedAt = now
		}
	}
	record.UpdatedAt = now
	stored := *record
	stored.TranscriptFiles = append([]string(nil), record.TranscriptFiles...)
	s.records[record.TaskID] = stored
	return nil
}

func (s *MemoryStore) Get(_ context.Context, taskID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[taskID]
	if !ok {
		return nil, nil
	}
	out := record
	return &out, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Record, 0, len(s.records))
	for _, record := range s.records {
		r := record
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
