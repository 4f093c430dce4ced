package links

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/earnlink/earnlink/internal/idgen"
)

// Service owns the serving snapshot of the link catalog. Reads come from an
// in-memory copy refreshed from the store; a failed refresh keeps the
// previous snapshot (stale data beats an empty catalog).
type Service struct {
	store  Store
	logger *slog.Logger

	mu       sync.RWMutex
	snapshot []*Link
}

// NewService creates a link service around the given store.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		logger:   logger,
		snapshot: []*Link{},
	}
}

// Refresh replaces the serving snapshot wholesale from the store. On error
// the previous snapshot is kept and the error is returned for logging only.
// Idempotent; safe to call repeatedly.
func (s *Service) Refresh(ctx context.Context) error {
	fresh, err := s.store.List(ctx)
	if err != nil {
		s.logger.Warn("link refresh failed, keeping previous snapshot", "error", err)
		return fmt.Errorf("refresh links: %w", err)
	}
	if fresh == nil {
		fresh = []*Link{}
	}

	s.mu.Lock()
	s.snapshot = fresh
	s.mu.Unlock()
	return nil
}

// StartRefreshLoop refreshes the snapshot on the given interval until ctx is
// done. Call in a goroutine.
func (s *Service) StartRefreshLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.Refresh(ctx) // error already logged
		}
	}
}

// Active returns the active links from the current snapshot.
func (s *Service) Active() []*Link {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Link, 0, len(s.snapshot))
	for _, l := range s.snapshot {
		if l.Active {
			result = append(result, l)
		}
	}
	return result
}

// Get returns one link from the current snapshot.
func (s *Service) Get(id string) (*Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.snapshot {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, ErrNotFound
}

// Create validates and persists a new link, then refreshes the snapshot.
func (s *Service) Create(ctx context.Context, req CreateLinkRequest) (*Link, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, ErrEmptyTitle
	}
	if err := validateURL(req.URL); err != nil {
		return nil, err
	}

	now := time.Now()
	link := &Link{
		ID:        idgen.WithPrefix("lnk_"),
		Title:     strings.TrimSpace(req.Title),
		URL:       req.URL,
		Icon:      req.Icon,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, link); err != nil {
		return nil, err
	}
	_ = s.Refresh(ctx)
	return link, nil
}

// Update applies the non-nil fields of req to an existing link.
func (s *Service) Update(ctx context.Context, id string, req UpdateLinkRequest) (*Link, error) {
	link, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, ErrEmptyTitle
		}
		link.Title = strings.TrimSpace(*req.Title)
	}
	if req.URL != nil {
		if err := validateURL(*req.URL); err != nil {
			return nil, err
		}
		link.URL = *req.URL
	}
	if req.Icon != nil {
		link.Icon = *req.Icon
	}
	if req.Active != nil {
		link.Active = *req.Active
	}
	link.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, link); err != nil {
		return nil, err
	}
	_ = s.Refresh(ctx)
	return link, nil
}

// Delete removes a link and refreshes the snapshot.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.Refresh(ctx)
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}
