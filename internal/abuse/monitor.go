package abuse

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// DefaultSweepInterval is how often the monitor re-assesses active actors,
// so a quiet actor still produces a fresh LOW assessment every two seconds.
const DefaultSweepInterval = 2 * time.Second

// Monitor periodically sweeps the engine's active windows.
type Monitor struct {
	engine   *Engine
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
	running  atomic.Bool
}

// NewMonitor creates a monitor for the given engine.
func NewMonitor(engine *Engine, logger *slog.Logger) *Monitor {
	return &Monitor{
		engine:   engine,
		interval: DefaultSweepInterval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Running reports whether the sweep loop is active.
func (m *Monitor) Running() bool {
	return m.running.Load()
}

// Start begins the sweep loop. Call in a goroutine.
func (m *Monitor) Start(ctx context.Context) {
	m.running.Store(true)
	defer m.running.Store(false)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			m.safeSweep(ctx)
		}
	}
}

// Stop signals the monitor to stop.
func (m *Monitor) Stop() {
	select {
	case m.stop <- struct{}{}:
	default:
	}
}

func (m *Monitor) safeSweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("panic in abuse monitor", "panic", fmt.Sprint(r))
		}
	}()
	if checked := m.engine.Sweep(ctx); checked > 0 {
		m.logger.Debug("abuse sweep complete", "actors_checked", checked)
	}
}
