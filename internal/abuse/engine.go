package abuse

import (
	"context"
	"sync"
	"time"

	"github.com/earnlink/earnlink/internal/clickstream"
	"github.com/earnlink/earnlink/internal/idgen"
	"github.com/earnlink/earnlink/internal/logging"
	"github.com/earnlink/earnlink/internal/metrics"
	"github.com/earnlink/earnlink/internal/traces"
)

// Engine classifies click timing per actor using in-memory bounded windows.
type Engine struct {
	windows  sync.Map // map[string]*actorWindow
	store    Store
	reporter Reporter
	now      func() int64 // millisecond clock, swappable in tests
}

type actorWindow struct {
	mu  sync.Mutex
	win *clickstream.Window
}

// NewEngine creates a click-pattern engine. Store and reporter may be nil;
// both are best-effort sinks that never affect classification.
func NewEngine(store Store, reporter Reporter) *Engine {
	return &Engine{
		store:    store,
		reporter: reporter,
		now:      func() int64 { return time.Now().UnixMilli() },
	}
}

// RecordClick appends a click at "now" to the actor's window. Safe to call at
// arbitrary, possibly sub-millisecond, intervals.
func (e *Engine) RecordClick(actorID string) {
	w := e.getWindow(actorID)
	w.mu.Lock()
	w.win.Append(e.now())
	w.mu.Unlock()
}

// Check classifies the actor's retained window and returns an assessment.
// Samples outside the 10-second span are permanently dropped first. Elevated
// assessments are reported and recorded asynchronously; neither sink can fail
// the call.
func (e *Engine) Check(ctx context.Context, actorID string) *Assessment {
	now := e.now()

	w := e.getWindow(actorID)
	w.mu.Lock()
	w.win.Prune(now)
	count := w.win.Len()
	last := w.win.Last()
	intervals := w.win.Intervals()
	w.mu.Unlock()

	if count < 2 {
		if last == 0 {
			last = now
		}
		a := &Assessment{
			LastClickTime: last,
			ClickCount:    count,
			Message:       MsgNormal,
			Severity:      SeverityLow,
			Type:          PatternRapidClicking,
		}
		metrics.SecurityChecksTotal.WithLabelValues(string(a.Severity)).Inc()
		return a
	}

	avg := clickstream.Mean(intervals)
	stdDev := clickstream.StdDev(intervals)

	autoClicker := stdDev < AutoClickerStdDevMillis && len(intervals) >= MinIntervalsForAutoClick

	script := false
	for _, gap := range intervals {
		if gap < ScriptIntervalMillis {
			script = true
			break
		}
	}

	a := &Assessment{
		IsAutoClicker:    autoClicker,
		IsScriptDetected: script,
		LastClickTime:    last,
		ClickCount:       count,
		Message:          MsgNormal,
		Severity:         SeverityLow,
		Type:             PatternRapidClicking,
	}

	switch {
	case autoClicker:
		a.Severity = SeverityHigh
		a.Type = PatternAutoClicker
		a.Message = MsgAutoClicker
	case script:
		a.Severity = SeverityMedium
		a.Type = PatternScript
		a.Message = MsgScript
	}

	metrics.SecurityChecksTotal.WithLabelValues(string(a.Severity)).Inc()

	if a.Severity != SeverityLow {
		a.PatternMatch = patternMatch(stdDev)

		v := &Violation{
			ID:            idgen.WithPrefix("vio_"),
			ActorID:       actorID,
			Type:          a.Type,
			Severity:      a.Severity,
			ClickInterval: avg,
			PatternMatch:  a.PatternMatch,
			ClickCount:    count,
			Timestamp:     now,
			CreatedAt:     time.Now(),
		}
		go e.escalate(ctx, v)
	}

	return a
}

// Reset clears the actor's window. Called when the consuming surface closes
// so a new session starts from a clean signal.
func (e *Engine) Reset(actorID string) {
	e.windows.Delete(actorID)
}

// Sweep re-checks every actor that still has retained samples and drops
// windows emptied by pruning. Returns the number of actors checked.
func (e *Engine) Sweep(ctx context.Context) int {
	checked := 0
	e.windows.Range(func(key, value any) bool {
		actorID := key.(string)
		w := value.(*actorWindow)

		w.mu.Lock()
		w.win.Prune(e.now())
		empty := w.win.Len() == 0
		w.mu.Unlock()

		if empty {
			e.windows.Delete(actorID)
			return true
		}
		e.Check(ctx, actorID)
		checked++
		return true
	})
	return checked
}

func (e *Engine) getWindow(actorID string) *actorWindow {
	v, _ := e.windows.LoadOrStore(actorID, &actorWindow{win: clickstream.NewWindow()})
	return v.(*actorWindow)
}

// escalate delivers a violation to the audit store and the external security
// endpoint. Failures are logged and counted, never propagated.
func (e *Engine) escalate(ctx context.Context, v *Violation) {
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, span := traces.StartSpan(sctx, "abuse.escalate",
		traces.ActorID(v.ActorID), traces.Severity(string(v.Severity)))
	defer span.End()

	if e.store != nil {
		if err := e.store.Record(sctx, v); err != nil {
			logging.L(ctx).Warn("failed to record violation",
				"actor", v.ActorID, "type", v.Type, "error", err)
		}
	}

	if e.reporter == nil {
		return
	}
	if err := e.reporter.Report(sctx, v); err != nil {
		metrics.ViolationReportsTotal.WithLabelValues("error").Inc()
		logging.L(ctx).Warn("violation report failed",
			"actor", v.ActorID, "type", v.Type, "severity", v.Severity, "error", err)
		return
	}
	metrics.ViolationReportsTotal.WithLabelValues("ok").Inc()
}

// patternMatch maps interval variance to the fixed confidence tiers shown to
// operators. A coarse lookup, deliberately not a calibrated statistic.
func patternMatch(stdDev float64) int {
	switch {
	case stdDev < 50:
		return 98
	case stdDev < 100:
		return 75
	default:
		return 45
	}
}
