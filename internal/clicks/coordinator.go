package clicks

import (
	"context"
	"log/slog"
	"time"

	"github.com/earnlink/earnlink/internal/circuitbreaker"
	"github.com/earnlink/earnlink/internal/clicktoken"
	"github.com/earnlink/earnlink/internal/cooldown"
	"github.com/earnlink/earnlink/internal/idgen"
	"github.com/earnlink/earnlink/internal/links"
	"github.com/earnlink/earnlink/internal/metrics"
	"github.com/earnlink/earnlink/internal/syncutil"
	"github.com/earnlink/earnlink/internal/traces"
)

// recorderKey identifies the external click tracker in the circuit breaker.
const recorderKey = "click_record"

// DefaultCooldownSeconds is how long a link stays locked after a click.
const DefaultCooldownSeconds = 30

// Publisher receives click lifecycle events for fan-out. Optional.
type Publisher interface {
	Publish(event string, payload any)
}

// Coordinator runs the click flow: identity and cooldown checks, token
// issue, persistence, external dispatch, then the lock. The dispatch is
// started before the destination URL is handed back to the caller.
type Coordinator struct {
	links     *links.Service
	scheduler *cooldown.Scheduler
	store     Store
	recorder  Recorder
	publisher Publisher
	breaker   *circuitbreaker.Breaker
	logger    *slog.Logger

	linkLocks syncutil.ShardedMutex

	secret          string
	cooldownSeconds int

	now func() int64 // unix millis, override in tests
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithCooldownSeconds overrides the per-link lock duration.
func WithCooldownSeconds(seconds int) Option {
	return func(c *Coordinator) {
		if seconds > 0 {
			c.cooldownSeconds = seconds
		}
	}
}

// WithPublisher attaches an event fan-out sink.
func WithPublisher(p Publisher) Option {
	return func(c *Coordinator) { c.publisher = p }
}

// WithBreaker guards external dispatch with a circuit breaker. When the
// circuit is open the dispatch is suppressed instead of timing out.
func WithBreaker(b *circuitbreaker.Breaker) Option {
	return func(c *Coordinator) { c.breaker = b }
}

// NewCoordinator wires the click flow. recorder may be nil (no external
// dispatch) and store may not; callers pass a memory store at minimum.
func NewCoordinator(linkSvc *links.Service, scheduler *cooldown.Scheduler, store Store, recorder Recorder, secret string, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		links:           linkSvc,
		scheduler:       scheduler,
		store:           store,
		recorder:        recorder,
		logger:          logger,
		secret:          secret,
		cooldownSeconds: DefaultCooldownSeconds,
		now:             func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Accept processes one click on linkID by actorID. The returned Result
// carries the destination URL, the click token, and the lock duration.
func (c *Coordinator) Accept(ctx context.Context, linkID, actorID string) (*Result, error) {
	ctx, span := traces.StartSpan(ctx, "clicks.Accept", traces.LinkID(linkID), traces.ActorID(actorID))
	defer span.End()

	if actorID == "" {
		metrics.ClicksTotal.WithLabelValues("rejected").Inc()
		return nil, ErrNoIdentity
	}

	link, err := c.links.Get(linkID)
	if err != nil {
		metrics.ClicksTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if !link.Active {
		metrics.ClicksTotal.WithLabelValues("rejected").Inc()
		return nil, links.ErrNotFound
	}

	// Serialize per link so a pair of simultaneous clicks cannot both
	// pass the lock check before either takes the lock.
	unlock := c.linkLocks.Lock(linkID)
	defer unlock()

	if c.scheduler.Locked(linkID) {
		metrics.ClicksTotal.WithLabelValues("locked").Inc()
		return nil, ErrLinkLocked
	}

	now := c.now()
	click := &Click{
		ID:        idgen.WithPrefix("clk_"),
		LinkID:    linkID,
		ActorID:   actorID,
		Token:     clicktoken.Encode(linkID, now, c.secret),
		Timestamp: now,
		CreatedAt: time.Now(),
	}

	if err := c.store.Record(ctx, click); err != nil {
		metrics.ClicksTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	// Dispatch leaves before the URL does. The goroutine gets its own
	// context so the response cycle ending cannot cancel it.
	if c.recorder != nil {
		go c.dispatch(click)
	}

	if !c.scheduler.Lock(linkID, c.cooldownSeconds) {
		// Cannot happen while the per-link mutex is held; the click is
		// already persisted and dispatched, so keep it either way.
		c.logger.Warn("link locked concurrently after acceptance", "link_id", linkID)
	}

	if c.publisher != nil {
		c.publisher.Publish("click", click)
		c.publisher.Publish("link_locked", map[string]any{
			"linkId":    linkID,
			"lockedFor": c.cooldownSeconds,
		})
	}

	metrics.ClicksTotal.WithLabelValues("accepted").Inc()
	c.logger.Info("click accepted",
		"click_id", click.ID,
		"link_id", linkID,
		"user_id", actorID,
	)

	return &Result{
		URL:       link.URL,
		Token:     click.Token,
		LockedFor: c.cooldownSeconds,
	}, nil
}

// CooldownState reports whether a link is locked and for how much longer.
func (c *Coordinator) CooldownState(linkID string) (locked bool, remaining int) {
	remaining, locked = c.scheduler.Remaining(linkID)
	return locked, remaining
}

func (c *Coordinator) dispatch(click *Click) {
	if c.breaker != nil && !c.breaker.Allow(recorderKey) {
		metrics.ClickDispatchTotal.WithLabelValues("suppressed").Inc()
		c.logger.Warn("click dispatch suppressed, circuit open",
			"click_id", click.ID,
			"link_id", click.LinkID,
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.recorder.RecordClick(ctx, click); err != nil {
		if c.breaker != nil {
			c.breaker.RecordFailure(recorderKey)
		}
		metrics.ClickDispatchTotal.WithLabelValues("error").Inc()
		c.logger.Warn("click dispatch failed",
			"click_id", click.ID,
			"link_id", click.LinkID,
			"error", err,
		)
		return
	}
	if c.breaker != nil {
		c.breaker.RecordSuccess(recorderKey)
	}
	metrics.ClickDispatchTotal.WithLabelValues("ok").Inc()
}
