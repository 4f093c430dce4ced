// Package clickstream provides the bounded timestamp window that feeds
// click-pattern classification.
//
// A Window holds millisecond-epoch timestamps of recent interactions,
// capped at the 5 most recent entries. Appends are always "now", so the
// window stays chronologically sorted by construction.
package clickstream

import "math"

const (
	// MaxSamples caps how many timestamps a window retains.
	MaxSamples = 5

	// SpanMillis is the rolling window used for classification. Samples
	// older than this relative to the assessment time are dropped.
	SpanMillis = 10_000
)

// Window is a FIFO-bounded sequence of click timestamps in milliseconds.
// It is not safe for concurrent use; owners are expected to hold a lock.
type Window struct {
	samples []int64
}

// NewWindow creates an empty click window.
func NewWindow() *Window {
	return &Window{samples: make([]int64, 0, MaxSamples)}
}

// Append records a click at the given millisecond timestamp, evicting the
// oldest entry once the cap is reached.
func (w *Window) Append(ts int64) {
	w.samples = append(w.samples, ts)
	if len(w.samples) > MaxSamples {
		w.samples = w.samples[len(w.samples)-MaxSamples:]
	}
}

// Prune drops samples older than SpanMillis relative to now. The drop is
// destructive: pruned samples never influence a later assessment.
func (w *Window) Prune(now int64) {
	cutoff := now - SpanMillis
	start := 0
	for start < len(w.samples) && w.samples[start] < cutoff {
		start++
	}
	if start > 0 {
		w.samples = w.samples[start:]
	}
}

// Len returns the number of retained samples.
func (w *Window) Len() int {
	return len(w.samples)
}

// Last returns the most recent sample, or 0 if the window is empty.
func (w *Window) Last() int64 {
	if len(w.samples) == 0 {
		return 0
	}
	return w.samples[len(w.samples)-1]
}

// Reset clears the window.
func (w *Window) Reset() {
	w.samples = w.samples[:0]
}

// Intervals returns the consecutive gaps between adjacent samples.
func (w *Window) Intervals() []float64 {
	if len(w.samples) < 2 {
		return nil
	}
	out := make([]float64, 0, len(w.samples)-1)
	for i := 1; i < len(w.samples); i++ {
		out = append(out, float64(w.samples[i]-w.samples[i-1]))
	}
	return out
}

// Mean returns the arithmetic mean of vals, or 0 for an empty slice.
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// StdDev returns the population standard deviation of vals.
func StdDev(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	mean := Mean(vals)
	var sumSq float64
	for _, v := range vals {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(vals)))
}
