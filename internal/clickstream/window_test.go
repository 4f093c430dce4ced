package clickstream

import (
	"math"
	"testing"
)

func TestAppendCapsAtMaxSamples(t *testing.T) {
	w := NewWindow()
	for i := 0; i < 6; i++ {
		w.Append(int64(i * 100))
	}
	if w.Len() != MaxSamples {
		t.Fatalf("expected %d samples after 6 appends, got %d", MaxSamples, w.Len())
	}
	// Oldest entry (0) must have been evicted.
	got := w.Intervals()
	if len(got) != MaxSamples-1 {
		t.Fatalf("expected %d intervals, got %d", MaxSamples-1, len(got))
	}
	if w.Last() != 500 {
		t.Errorf("expected last sample 500, got %d", w.Last())
	}
}

func TestPruneDropsStaleSamples(t *testing.T) {
	w := NewWindow()
	now := int64(100_000)
	w.Append(now - 15_000) // stale
	w.Append(now - 12_000) // stale
	w.Append(now - 5_000)
	w.Append(now - 1_000)

	w.Prune(now)

	if w.Len() != 2 {
		t.Fatalf("expected 2 samples after prune, got %d", w.Len())
	}
	// Prune is destructive: a second prune at the same time changes nothing.
	w.Prune(now)
	if w.Len() != 2 {
		t.Errorf("expected prune to be idempotent, got %d samples", w.Len())
	}
}

func TestPruneBoundaryIsInclusive(t *testing.T) {
	w := NewWindow()
	now := int64(50_000)
	w.Append(now - SpanMillis) // exactly at the cutoff stays
	w.Prune(now)
	if w.Len() != 1 {
		t.Errorf("sample exactly SpanMillis old should survive, got len %d", w.Len())
	}
}

func TestIntervals(t *testing.T) {
	w := NewWindow()
	for _, ts := range []int64{0, 500, 1000, 1500} {
		w.Append(ts)
	}
	got := w.Intervals()
	want := []float64{500, 500, 500}
	if len(got) != len(want) {
		t.Fatalf("expected %d intervals, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("interval[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestIntervalsNeedTwoSamples(t *testing.T) {
	w := NewWindow()
	if w.Intervals() != nil {
		t.Error("empty window should have nil intervals")
	}
	w.Append(100)
	if w.Intervals() != nil {
		t.Error("single-sample window should have nil intervals")
	}
}

func TestMeanAndStdDev(t *testing.T) {
	vals := []float64{200, 700, 1100}
	if got := Mean(vals); math.Abs(got-666.666) > 0.001 {
		t.Errorf("mean = %f, want ~666.667", got)
	}

	// Uniform intervals have zero variance.
	if got := StdDev([]float64{500, 500, 500}); got != 0 {
		t.Errorf("stddev of uniform intervals = %f, want 0", got)
	}

	// Population stddev of {2, 4}: mean 3, variance 1.
	if got := StdDev([]float64{2, 4}); got != 1 {
		t.Errorf("stddev = %f, want 1", got)
	}

	if Mean(nil) != 0 || StdDev(nil) != 0 {
		t.Error("empty input should yield 0 for mean and stddev")
	}
}

func TestReset(t *testing.T) {
	w := NewWindow()
	w.Append(1)
	w.Append(2)
	w.Reset()
	if w.Len() != 0 {
		t.Errorf("expected empty window after reset, got %d", w.Len())
	}
	if w.Last() != 0 {
		t.Errorf("expected Last() == 0 on empty window, got %d", w.Last())
	}
}
