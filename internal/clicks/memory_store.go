package clicks

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory click store for development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	clicks []*Click
	tokens map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]struct{})}
}

func (s *MemoryStore) Record(ctx context.Context, c *Click) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.tokens[c.Token]; dup {
		return fmt.Errorf("click token already recorded")
	}
	clone := *c
	s.clicks = append(s.clicks, &clone)
	s.tokens[c.Token] = struct{}{}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Click, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clicks {
		if c.ID == id {
			clone := *c
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListByActor(ctx context.Context, actorID string, limit int) ([]*Click, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Click, 0, limit)
	// Most recent first.
	for i := len(s.clicks) - 1; i >= 0 && len(result) < limit; i-- {
		if s.clicks[i].ActorID == actorID {
			clone := *s.clicks[i]
			result = append(result, &clone)
		}
	}
	return result, nil
}
