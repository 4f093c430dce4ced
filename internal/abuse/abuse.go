// Package abuse implements click-pattern analysis for auto-clicker and
// script detection.
//
// Each actor gets a bounded window of recent click timestamps. An assessment
// looks at the consecutive inter-click intervals inside the last 10 seconds:
// near-zero timing variance across three or more gaps is the auto-clicker
// signature (a human cannot reproduce sub-50ms variance), and any gap under
// one second flags scripted rapid clicking. Elevated assessments are reported
// to an external security endpoint, best effort, at most once.
package abuse

import (
	"context"
	"time"

	"github.com/earnlink/earnlink/internal/pagination"
)

// Severity is the confidence tier that observed behavior is non-human.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// PatternType labels the detected click pattern.
type PatternType string

const (
	PatternAutoClicker   PatternType = "AUTO_CLICKER"
	PatternScript        PatternType = "SCRIPT"
	PatternRapidClicking PatternType = "RAPID_CLICKING"
)

// Classification thresholds.
const (
	// AutoClickerStdDevMillis: interval variance below this across at least
	// MinIntervalsForAutoClick gaps means mechanical input.
	AutoClickerStdDevMillis = 50.0

	// MinIntervalsForAutoClick is the minimum gap count before the variance
	// test is meaningful.
	MinIntervalsForAutoClick = 3

	// ScriptIntervalMillis: any single gap under this flags rapid clicking.
	ScriptIntervalMillis = 1000.0
)

// Assessment messages.
const (
	MsgAutoClicker = "Auto-clicker detected: Too consistent click pattern"
	MsgScript      = "Script detected: Clicks are too rapid"
	MsgNormal      = "Normal activity"
)

// Assessment is the result of classifying one actor's recent click timing.
// It is a pure function of the retained timestamp window.
type Assessment struct {
	IsAutoClicker    bool        `json:"isAutoClicker"`
	IsScriptDetected bool        `json:"isScriptDetected"`
	LastClickTime    int64       `json:"lastClickTime"`
	ClickCount       int         `json:"clickCount"`
	Message          string      `json:"message"`
	Severity         Severity    `json:"severity"`
	Type             PatternType `json:"type"`

	// PatternMatch is a fixed-tier confidence percentage derived from the
	// interval standard deviation (98 / 75 / 45). It is a display value,
	// not a calibrated probability. Zero for LOW assessments.
	PatternMatch int `json:"patternMatch,omitempty"`
}

// Violation is the audit record of an elevated assessment.
type Violation struct {
	ID            string      `json:"id"`
	ActorID       string      `json:"actorId"`
	Type          PatternType `json:"type"`
	Severity      Severity    `json:"severity"`
	ClickInterval float64     `json:"clickInterval"` // mean gap, ms
	PatternMatch  int         `json:"patternMatch"`
	ClickCount    int         `json:"clickCount"`
	Timestamp     int64       `json:"timestamp"` // assessment time, ms epoch
	CreatedAt     time.Time   `json:"createdAt"`
}

// Reporter delivers violation reports to an external security endpoint.
type Reporter interface {
	Report(ctx context.Context, v *Violation) error
}

// Store persists violations for the admin audit trail.
type Store interface {
	Record(ctx context.Context, v *Violation) error
	List(ctx context.Context, limit int) ([]*Violation, error)
	ListByActor(ctx context.Context, actorID string, limit int) ([]*Violation, error)
	// ListPage returns violations older than the cursor position, most
	// recent first. A nil cursor starts from the newest.
	ListPage(ctx context.Context, before *pagination.Cursor, limit int) ([]*Violation, error)
}
