// Package cooldown implements per-key countdown locks driven by one shared
// clock.
//
// Every reward link that was just clicked gets a registry entry counting down
// from the configured cooldown. A single ticker decrements all entries, so
// teardown is one Stop() call and leaked per-key timers cannot exist. A key
// present in the registry means locked; a key is removed exactly when its
// value transitions from 1 to 0, never left at 0.
package cooldown

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var activeLocks = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "earnlink",
	Subsystem: "cooldown",
	Name:      "active_locks",
	Help:      "Number of links currently in cooldown.",
})

func init() {
	prometheus.MustRegister(activeLocks)
}

// ExpireFunc is invoked when a key's countdown reaches zero and the key is
// removed from the registry.
type ExpireFunc func(key string)

// Scheduler counts down all active locks on a single shared ticker.
type Scheduler struct {
	mu       sync.Mutex
	remain   map[string]int
	interval time.Duration
	onExpire ExpireFunc
	logger   *slog.Logger
	stop     chan struct{}
	running  atomic.Bool
}

// Option configures the scheduler.
type Option func(*Scheduler)

// WithInterval overrides the tick interval (default one second).
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithOnExpire sets a callback fired when a lock expires.
func WithOnExpire(fn ExpireFunc) Option {
	return func(s *Scheduler) { s.onExpire = fn }
}

// NewScheduler creates a lock scheduler. Call Start in a goroutine to begin
// ticking.
func NewScheduler(logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		remain:   make(map[string]int),
		interval: time.Second,
		logger:   logger,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Running reports whether the tick loop is active.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Start runs the tick loop until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.running.Store(true)
	defer s.running.Store(false)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.clear()
			return
		case <-s.stop:
			s.clear()
			return
		case <-ticker.C:
			s.safeTick()
		}
	}
}

// Stop halts the loop and clears every outstanding lock.
func (s *Scheduler) Stop() {
	select {
	case s.stop <- struct{}{}:
	default:
	}
	// Clear synchronously as well, in case Start was never called.
	s.clear()
}

// Lock starts a countdown for key. Returns false if key is already locked;
// an active lock is never re-entered or extended.
func (s *Scheduler) Lock(key string, seconds int) bool {
	if seconds <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, locked := s.remain[key]; locked {
		return false
	}
	s.remain[key] = seconds
	activeLocks.Set(float64(len(s.remain)))
	return true
}

// Locked reports whether key currently has an active countdown.
func (s *Scheduler) Locked(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.remain[key]
	return ok
}

// Remaining returns the seconds left on key's countdown.
func (s *Scheduler) Remaining(key string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.remain[key]
	return n, ok
}

// Active returns the number of keys currently locked.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.remain)
}

// Tick advances every countdown by one second. Start drives this from the
// shared ticker; callers that manage their own clock may drive it directly.
func (s *Scheduler) Tick() {
	s.safeTick()
}

func (s *Scheduler) safeTick() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in cooldown tick", "panic", fmt.Sprint(r))
		}
	}()
	s.tick()
}

// tick decrements every countdown once. Keys hitting zero are removed and
// their expiry callbacks fire after the registry lock is released.
func (s *Scheduler) tick() {
	var expired []string

	s.mu.Lock()
	for key, n := range s.remain {
		if n <= 1 {
			delete(s.remain, key)
			expired = append(expired, key)
			continue
		}
		s.remain[key] = n - 1
	}
	activeLocks.Set(float64(len(s.remain)))
	s.mu.Unlock()

	if s.onExpire != nil {
		for _, key := range expired {
			s.onExpire(key)
		}
	}
}

func (s *Scheduler) clear() {
	s.mu.Lock()
	n := len(s.remain)
	s.remain = make(map[string]int)
	activeLocks.Set(0)
	s.mu.Unlock()
	if n > 0 {
		s.logger.Info("cooldown scheduler cleared", "locks_dropped", n)
	}
}
