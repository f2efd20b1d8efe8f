package store

import (
	"context"
	"sort"
	"sync"

	"github.com/lei/runci/internal/models"
)

// MemoryStore keeps finished runs in memory. It is the default store
// when no DSN is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*models.Run
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*models.Run)}
}

// SaveRun records the run, overwriting any previous record with the
// same id
func (s *MemoryStore) SaveRun(ctx context.Context, run *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.RunID] = run
	return nil
}

// GetRun returns a stored run by id
func (s *MemoryStore) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// ListRuns returns stored runs, newest first
func (s *MemoryStore) ListRuns(ctx context.Context) ([]*models.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]*models.Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
