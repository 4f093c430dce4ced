// Package health aggregates liveness of the platform's subsystems: the
// database, the cooldown scheduler, the pattern monitor.
package health

import (
	"context"
	"sync"
)

// Status is one subsystem's answer.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Checker probes a single subsystem.
type Checker func(ctx context.Context) Status

// Registry runs registered checkers on demand, in registration order, so
// the readiness endpoint output stays stable across calls.
type Registry struct {
	mu     sync.RWMutex
	checks []registered
}

type registered struct {
	name string
	fn   Checker
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a checker under a stable name.
func (r *Registry) Register(name string, fn Checker) {
	r.mu.Lock()
	r.checks = append(r.checks, registered{name: name, fn: fn})
	r.mu.Unlock()
}

// CheckAll runs every checker and reports the aggregate along with each
// subsystem result. Any single unhealthy subsystem fails the aggregate.
func (r *Registry) CheckAll(ctx context.Context) (bool, []Status) {
	r.mu.RLock()
	checks := make([]registered, len(r.checks))
	copy(checks, r.checks)
	r.mu.RUnlock()

	healthy := true
	statuses := make([]Status, len(checks))
	for i, c := range checks {
		statuses[i] = c.fn(ctx)
		if !statuses[i].Healthy {
			healthy = false
		}
	}
	return healthy, statuses
}
