package abuse

import (
	"context"
	"sync"

	"github.com/earnlink/earnlink/internal/pagination"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	violations []*Violation
}

// NewMemoryStore creates an in-memory violation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(ctx context.Context, v *Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *v
	s.violations = append(s.violations, &clone)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]*Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(limit, func(*Violation) bool { return true }), nil
}

func (s *MemoryStore) ListByActor(ctx context.Context, actorID string, limit int) ([]*Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(limit, func(v *Violation) bool { return v.ActorID == actorID }), nil
}

func (s *MemoryStore) ListPage(ctx context.Context, before *pagination.Cursor, limit int) ([]*Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if before == nil {
		return s.collect(limit, func(*Violation) bool { return true }), nil
	}
	return s.collect(limit, func(v *Violation) bool {
		if v.CreatedAt.Equal(before.CreatedAt) {
			return v.ID < before.ID
		}
		return v.CreatedAt.Before(before.CreatedAt)
	}), nil
}

// collect returns matching violations most recent first, up to limit.
// Caller holds the read lock.
func (s *MemoryStore) collect(limit int, match func(*Violation) bool) []*Violation {
	var result []*Violation
	for i := len(s.violations) - 1; i >= 0 && len(result) < limit; i-- {
		if match(s.violations[i]) {
			clone := *s.violations[i]
			result = append(result, &clone)
		}
	}
	return result
}
