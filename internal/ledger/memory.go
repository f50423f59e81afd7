package ledger

import (
	"context"
	"sync"
)

// MemoryStore keeps ledger state in process. Used by tests and when the data dir is unusable.
type MemoryStore struct {
	mu    sync.Mutex
	state *State
	saves int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &State{Groups: map[string]Record{}}}
}

func (s *MemoryStore) View(_ context.Context) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, fn func(*State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state.Clone()
	if err := fn(next); err != nil {
		return err
	}
	s.state = next
	s.saves++
	return nil
}

func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
