package store

import (
	"context"
	"sync"

	"github.com/Guilhermevang/up2sat/model"
)

// MemoryStore keeps the latest TLE per destination in memory. It is safe
// for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	byDest map[string]model.TLE
	writes int
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byDest: make(map[string]model.TLE)}
}

// WriteTLE implements Store.
func (s *MemoryStore) WriteTLE(_ context.Context, destination string, tle model.TLE) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byDest[destination] = tle
	s.writes++
	return nil
}

// Latest implements Reader.
func (s *MemoryStore) Latest(_ context.Context, destination string) (model.TLE, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tle, ok := s.byDest[destination]
	if !ok {
		return model.TLE{}, ErrNotFound
	}
	return tle, nil
}

// Writes reports how many WriteTLE calls succeeded.
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
