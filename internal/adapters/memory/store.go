package memory

import (
	"context"
	"sort"
	"sync"

	"tradeGate/internal/domain"
)

// StateStore keeps trader risk states in process memory.
// State is lost on restart; use the SQLite repository for durability.
type StateStore struct {
	mu     sync.RWMutex
	states map[string]domain.TraderRiskState
}

// NewStateStore creates an empty store.
func NewStateStore() *StateStore {
	return &StateStore{states: make(map[string]domain.TraderRiskState)}
}

// LoadState returns a copy of the stored state, or nil if absent.
func (s *StateStore) LoadState(ctx context.Context, identity string) (*domain.TraderRiskState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[identity]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

// SaveState stores a copy of st.
func (s *StateStore) SaveState(ctx context.Context, st domain.TraderRiskState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[st.Identity] = st
	return nil
}

// ListStates returns every state ordered by identity.
func (s *StateStore) ListStates(ctx context.Context) ([]domain.TraderRiskState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TraderRiskState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out, nil
}
