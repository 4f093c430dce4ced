package links

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	links map[string]*Link
}

// NewMemoryStore creates an in-memory link store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{links: make(map[string]*Link)}
}

func (s *MemoryStore) Create(ctx context.Context, link *Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *link
	s.links[link.ID] = &clone
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *link
	return &clone, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Link, 0, len(s.links))
	for _, link := range s.links {
		clone := *link
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) Update(ctx context.Context, link *Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[link.ID]; !ok {
		return ErrNotFound
	}
	clone := *link
	s.links[link.ID] = &clone
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[id]; !ok {
		return ErrNotFound
	}
	delete(s.links, id)
	return nil
}
