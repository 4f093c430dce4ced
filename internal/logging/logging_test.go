package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestNewLevels(t *testing.T) {
	debug := New("debug", "text")
	if !debug.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug level should be enabled")
	}

	errOnly := New("error", "json")
	if errOnly.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at error level")
	}

	// Unknown level falls back to info.
	fallback := New("verbose", "text")
	if !fallback.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("unknown level should default to info")
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req_123")
	if got := RequestID(ctx); got != "req_123" {
		t.Errorf("RequestID = %q, want req_123", got)
	}
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("expected empty request ID on bare context, got %q", got)
	}
}

func TestLoggerFromContext(t *testing.T) {
	logger := New("info", "text")
	ctx := WithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Error("FromContext should return the stored logger")
	}
	if FromContext(context.Background()) == nil {
		t.Error("FromContext on bare context should fall back to default")
	}
	if L(ctx) == nil {
		t.Error("L should never return nil")
	}
}
