// Package clicks accepts reward-link clicks: it gates each link behind a
// per-link cooldown, issues click tokens, persists the click, and dispatches
// it to the external recorder.
package clicks

import (
	"context"
	"errors"
	"time"
)

// Errors returned by the coordinator.
var (
	ErrNoIdentity = errors.New("actor identity required")
	ErrLinkLocked = errors.New("link is cooling down")
	ErrNotFound   = errors.New("click not found")
)

// Click is one accepted link click. Token is unique, so replaying the same
// (link, timestamp, secret) triple cannot record twice.
type Click struct {
	ID        string    `json:"id"`
	LinkID    string    `json:"linkId"`
	ActorID   string    `json:"userId"`
	Token     string    `json:"token"`
	Timestamp int64     `json:"timestamp"` // unix millis at acceptance
	CreatedAt time.Time `json:"createdAt"`
}

// Result is returned to the client for an accepted click.
type Result struct {
	URL       string `json:"url"`
	Token     string `json:"token"`
	LockedFor int    `json:"lockedFor"` // seconds until the link unlocks
}

// Store persists accepted clicks.
type Store interface {
	Record(ctx context.Context, c *Click) error
	Get(ctx context.Context, id string) (*Click, error)
	ListByActor(ctx context.Context, actorID string, limit int) ([]*Click, error)
}

// Recorder delivers an accepted click to the external tracking endpoint.
// Delivery is best effort; the click stands whether or not it arrives.
type Recorder interface {
	RecordClick(ctx context.Context, c *Click) error
}
