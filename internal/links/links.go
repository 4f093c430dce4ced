// Package links manages the reward-link catalog: the outbound destinations
// users are paid to visit.
package links

import (
	"context"
	"errors"
	"time"
)

// Errors returned by link operations.
var (
	ErrNotFound   = errors.New("link not found")
	ErrInvalidURL = errors.New("link url must be a valid http(s) URL")
	ErrEmptyTitle = errors.New("link title must not be empty")
)

// Link is a reward-eligible outbound destination. Identity is ID.
type Link struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Icon      string    `json:"icon,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateLinkRequest is the admin payload for adding a link.
type CreateLinkRequest struct {
	Title string `json:"title" binding:"required"`
	URL   string `json:"url" binding:"required"`
	Icon  string `json:"icon"`
}

// UpdateLinkRequest is the admin payload for editing a link. Nil fields are
// left unchanged.
type UpdateLinkRequest struct {
	Title  *string `json:"title"`
	URL    *string `json:"url"`
	Icon   *string `json:"icon"`
	Active *bool   `json:"active"`
}

// Store persists the link catalog.
type Store interface {
	Create(ctx context.Context, link *Link) error
	Get(ctx context.Context, id string) (*Link, error)
	List(ctx context.Context) ([]*Link, error)
	Update(ctx context.Context, link *Link) error
	Delete(ctx context.Context, id string) error
}
