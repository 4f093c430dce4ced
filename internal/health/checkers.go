package health

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Runner is anything with a Running flag, like the pattern monitor or the
// cooldown scheduler loop.
type Runner interface {
	Running() bool
}

// DBChecker pings the database with a short deadline.
func DBChecker(db *sql.DB) Checker {
	return func(ctx context.Context) Status {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return Status{Name: "database", Healthy: false, Detail: err.Error()}
		}
		return Status{Name: "database", Healthy: true}
	}
}

// RunnerChecker reports whether a background loop is alive.
func RunnerChecker(name string, r Runner) Checker {
	return func(_ context.Context) Status {
		if !r.Running() {
			return Status{Name: name, Healthy: false, Detail: "loop not running"}
		}
		return Status{Name: name, Healthy: true}
	}
}

// CooldownChecker reports the scheduler loop state plus the live lock count.
func CooldownChecker(r interface {
	Runner
	Active() int
}) Checker {
	return func(_ context.Context) Status {
		if !r.Running() {
			return Status{Name: "cooldown", Healthy: false, Detail: "scheduler not running"}
		}
		return Status{Name: "cooldown", Healthy: true, Detail: fmt.Sprintf("%d active locks", r.Active())}
	}
}
