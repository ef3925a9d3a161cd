package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return Entry{}, ErrCacheMiss
	}
	return e, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, e Entry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.entries[key]; ok && cur.Generation > e.Generation {
		return false, nil
	}
	s.entries[key] = e
	return true, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
