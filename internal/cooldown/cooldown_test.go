package cooldown

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.Default()
}

func TestLockAndCountdown(t *testing.T) {
	s := NewScheduler(testLogger())

	if !s.Lock("lnk_1", 30) {
		t.Fatal("first lock should succeed")
	}
	if n, ok := s.Remaining("lnk_1"); !ok || n != 30 {
		t.Fatalf("expected remaining 30, got %d (ok=%v)", n, ok)
	}

	// Exactly 30 ticks bring the key back to unlocked.
	for i := 0; i < 29; i++ {
		s.tick()
	}
	if n, ok := s.Remaining("lnk_1"); !ok || n != 1 {
		t.Fatalf("expected remaining 1 after 29 ticks, got %d (ok=%v)", n, ok)
	}
	s.tick()
	if s.Locked("lnk_1") {
		t.Error("key should be unlocked after 30 ticks")
	}
	if !s.Lock("lnk_1", 30) {
		t.Error("re-lock after expiry should succeed")
	}
}

func TestLockWhileLockedIsRejected(t *testing.T) {
	s := NewScheduler(testLogger())

	s.Lock("lnk_1", 30)
	for i := 0; i < 15; i++ {
		s.tick()
	}
	if s.Lock("lnk_1", 30) {
		t.Fatal("locking an already-locked key must be rejected")
	}
	// The rejected lock must not have reset the countdown.
	if n, _ := s.Remaining("lnk_1"); n != 15 {
		t.Errorf("remaining = %d, want 15 (rejected lock must not extend)", n)
	}
}

func TestKeyNeverLeftAtZero(t *testing.T) {
	s := NewScheduler(testLogger())
	s.Lock("lnk_1", 1)
	s.tick()
	if _, ok := s.Remaining("lnk_1"); ok {
		t.Error("key must be removed at the 1 -> 0 transition, not left present")
	}
}

func TestIndependentCountdowns(t *testing.T) {
	s := NewScheduler(testLogger())
	s.Lock("a", 2)
	s.Lock("b", 5)

	s.tick()
	s.tick()

	if s.Locked("a") {
		t.Error("a should have expired")
	}
	if n, ok := s.Remaining("b"); !ok || n != 3 {
		t.Errorf("b remaining = %d (ok=%v), want 3", n, ok)
	}
}

func TestOnExpireCallback(t *testing.T) {
	var mu sync.Mutex
	var expired []string

	s := NewScheduler(testLogger(), WithOnExpire(func(key string) {
		mu.Lock()
		expired = append(expired, key)
		mu.Unlock()
	}))

	s.Lock("lnk_1", 1)
	s.Lock("lnk_2", 2)
	s.tick()
	s.tick()

	mu.Lock()
	defer mu.Unlock()
	if len(expired) != 2 {
		t.Fatalf("expected 2 expiry callbacks, got %d", len(expired))
	}
}

func TestStopClearsAllLocks(t *testing.T) {
	s := NewScheduler(testLogger())
	s.Lock("a", 10)
	s.Lock("b", 20)
	s.Lock("c", 30)

	s.Stop()

	if got := s.Active(); got != 0 {
		t.Fatalf("expected 0 active locks after Stop, got %d", got)
	}

	// Ticks after teardown must not resurrect or mutate anything.
	s.tick()
	if got := s.Active(); got != 0 {
		t.Errorf("tick after Stop mutated state: %d active locks", got)
	}
}

func TestStartStopLoop(t *testing.T) {
	s := NewScheduler(testLogger(), WithInterval(5*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Start(ctx)

	deadline := time.After(time.Second)
	for !s.Running() {
		select {
		case <-deadline:
			t.Fatal("scheduler did not start")
		case <-time.After(time.Millisecond):
		}
	}

	s.Lock("lnk_1", 2)
	expire := time.After(time.Second)
	for s.Locked("lnk_1") {
		select {
		case <-expire:
			t.Fatal("lock did not expire under the ticking loop")
		case <-time.After(2 * time.Millisecond):
		}
	}

	s.Stop()
	stopped := time.After(time.Second)
	for s.Running() {
		select {
		case <-stopped:
			t.Fatal("scheduler did not stop")
		case <-time.After(time.Millisecond):
		}
	}
}
