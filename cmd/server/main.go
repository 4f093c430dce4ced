// EarnLink - reward-link platform API
package main

import (
	"context"
	"os"

	"github.com/earnlink/earnlink/internal/config"
	"github.com/earnlink/earnlink/internal/logging"
	"github.com/earnlink/earnlink/internal/server"
	"github.com/earnlink/earnlink/internal/traces"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Create logger
	logger := logging.New("info", "text")

	logger.Info("starting earnlink",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"env", cfg.Env,
		"cooldown_seconds", cfg.CooldownSeconds,
	)

	ctx := context.Background()

	// Tracing (no-op when no endpoint is configured)
	shutdownTraces, err := traces.Init(ctx, cfg.OTLPEndpoint, logger)
	if err != nil {
		logger.Warn("tracing init failed, continuing without traces", "error", err)
	} else {
		defer func() { _ = shutdownTraces(context.Background()) }()
	}

	// Create and run server
	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
