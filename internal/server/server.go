// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/earnlink/earnlink/internal/abuse"
	"github.com/earnlink/earnlink/internal/auth"
	"github.com/earnlink/earnlink/internal/circuitbreaker"
	"github.com/earnlink/earnlink/internal/clicks"
	"github.com/earnlink/earnlink/internal/config"
	"github.com/earnlink/earnlink/internal/cooldown"
	"github.com/earnlink/earnlink/internal/health"
	"github.com/earnlink/earnlink/internal/links"
	"github.com/earnlink/earnlink/internal/logging"
	"github.com/earnlink/earnlink/internal/metrics"
	"github.com/earnlink/earnlink/internal/ratelimit"
	"github.com/earnlink/earnlink/internal/realtime"
	"github.com/earnlink/earnlink/internal/security"
	"github.com/earnlink/earnlink/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg          *config.Config
	linkService  *links.Service
	scheduler    *cooldown.Scheduler
	coordinator  *clicks.Coordinator
	abuseEngine  *abuse.Engine
	abuseStore   abuse.Store
	monitor      *abuse.Monitor
	realtimeHub  *realtime.Hub
	healthReg    *health.Registry

	clickRecorder     clicks.Recorder
	violationReporter abuse.Reporter
	rateLimiter  *ratelimit.Limiter
	db           *sql.DB // nil if using in-memory
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithClickRecorder sets a custom click recorder (for testing)
func WithClickRecorder(r clicks.Recorder) Option {
	return func(s *Server) {
		s.clickRecorder = r
	}
}

// WithViolationReporter sets a custom violation reporter (for testing)
func WithViolationReporter(r abuse.Reporter) Option {
	return func(s *Server) {
		s.violationReporter = r
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	// Apply options first (may set sinks/logger)
	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()

	// Initialize storage (Postgres if DATABASE_URL set, otherwise in-memory)
	var (
		linkStore  links.Store
		clickStore clicks.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		// Test connection
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		linkStore = links.NewPostgresStore(db)
		clickStore = clicks.NewPostgresStore(db)
		s.abuseStore = abuse.NewPostgresStore(db)
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))
	} else {
		linkStore = links.NewMemoryStore()
		clickStore = clicks.NewMemoryStore()
		s.abuseStore = abuse.NewMemoryStore()
		s.logger.Warn("using in-memory storage, data will not persist")
	}

	// Realtime hub (started in Run)
	s.realtimeHub = realtime.NewHub(s.logger)

	// Link catalog with its serving snapshot
	s.linkService = links.NewService(linkStore, s.logger)
	if err := s.linkService.Refresh(ctx); err != nil {
		s.logger.Warn("initial link refresh failed", "error", err)
	}

	// Shared cooldown clock; expirations fan out to the back office
	s.scheduler = cooldown.NewScheduler(s.logger, cooldown.WithOnExpire(func(key string) {
		s.realtimeHub.Publish(string(realtime.EventLinkUnlocked), map[string]any{
			"linkId": key,
		})
	}))

	// External sinks. Both are optional and validated against SSRF before use.
	if s.clickRecorder == nil && cfg.ClickRecordURL != "" {
		if err := security.ValidateEndpointURL(cfg.ClickRecordURL); err != nil {
			return nil, fmt.Errorf("invalid CLICK_RECORD_URL: %w", err)
		}
		s.clickRecorder = clicks.NewHTTPRecorder(cfg.ClickRecordURL)
	}
	if s.violationReporter == nil && cfg.SecurityReportURL != "" {
		if err := security.ValidateEndpointURL(cfg.SecurityReportURL); err != nil {
			return nil, fmt.Errorf("invalid SECURITY_REPORT_URL: %w", err)
		}
		s.violationReporter = abuse.NewHTTPReporter(cfg.SecurityReportURL, cfg.ReportHMACSecret)
	}

	// Click coordinator. Dispatch to the external tracker runs behind a
	// circuit breaker so a dead endpoint stops eating goroutines.
	dispatchBreaker := circuitbreaker.New(5, 30*time.Second)
	s.coordinator = clicks.NewCoordinator(
		s.linkService,
		s.scheduler,
		clickStore,
		s.clickRecorder,
		cfg.ClickSecret,
		s.logger,
		clicks.WithCooldownSeconds(cfg.CooldownSeconds),
		clicks.WithPublisher(s.realtimeHub),
		clicks.WithBreaker(dispatchBreaker),
	)

	// Click-pattern engine; reports also fan out to the back office
	s.abuseEngine = abuse.NewEngine(s.abuseStore, &fanReporter{
		next: s.violationReporter,
		hub:  s.realtimeHub,
	})
	s.monitor = abuse.NewMonitor(s.abuseEngine, s.logger)

	// Health registry
	s.healthReg = health.NewRegistry()
	if s.db != nil {
		s.healthReg.Register("database", health.DBChecker(s.db))
	}
	s.healthReg.Register("cooldown", health.CooldownChecker(s.scheduler))
	s.healthReg.Register("monitor", health.RunnerChecker("monitor", s.monitor))

	// Setup router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// fanReporter forwards violations to the external endpoint and mirrors them
// onto the realtime hub. The hub publish cannot fail, so only the delegate's
// error surfaces.
type fanReporter struct {
	next abuse.Reporter
	hub  *realtime.Hub
}

func (f *fanReporter) Report(ctx context.Context, v *abuse.Violation) error {
	f.hub.Publish(string(realtime.EventViolation), map[string]any{
		"userId":       v.ActorID,
		"type":         string(v.Type),
		"severity":     string(v.Severity),
		"patternMatch": v.PatternMatch,
	})
	if f.next == nil {
		return nil
	}
	return f.next.Report(ctx, v)
}

func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS for the mini-app origin(s)
	s.router.Use(security.CORSMiddleware(s.cfg.AllowedOrigins))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	limitCfg := ratelimit.DefaultConfig()
	if s.cfg.RateLimitRPM > 0 {
		limitCfg.RequestsPerMinute = s.cfg.RateLimitRPM
	}
	s.rateLimiter = ratelimit.New(limitCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	linkHandler := links.NewHandler(s.linkService)
	clickHandler := clicks.NewHandler(s.coordinator)
	abuseHandler := abuse.NewHandler(s.abuseEngine, s.abuseStore)

	// Infrastructure endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/healthz", s.livenessHandler)
	s.router.GET("/readyz", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// Public catalog
	public := s.router.Group("/v1")
	linkHandler.RegisterRoutes(public)

	// Signed-in surface
	user := s.router.Group("/v1")
	user.Use(auth.Middleware(s.cfg.AuthSecret))
	user.Use(auth.RequireUser())
	user.Use(validation.IDParamMiddleware())
	clickHandler.RegisterRoutes(user)
	abuseHandler.RegisterRoutes(user)

	// Back office
	admin := s.router.Group("/v1/admin")
	admin.Use(auth.RequireAdmin(s.cfg.AdminSecret))
	admin.Use(validation.IDParamMiddleware())
	linkHandler.RegisterAdminRoutes(admin)
	abuseHandler.RegisterAdminRoutes(admin)
	admin.GET("/realtime/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.realtimeHub.Stats())
	})
	admin.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})
}

// -----------------------------------------------------------------------------
// Health handlers
// -----------------------------------------------------------------------------

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	healthy, statuses := s.healthReg.CheckAll(c.Request.Context())

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    statuses,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server and background loops, blocking until shutdown.
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to catch server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"env", s.cfg.Env,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start cooldown clock
	go s.scheduler.Start(runCtx)

	// Start pattern monitor sweep
	go s.monitor.Start(runCtx)

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// Start link snapshot refresh
	go s.linkService.StartRefreshLoop(runCtx, time.Duration(s.cfg.LinksRefreshSecs)*time.Second)

	// Start DB pool gauge collection
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub, loops, monitor)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	// Stop the pattern monitor
	if s.monitor != nil {
		s.monitor.Stop()
		s.logger.Info("pattern monitor stopped")
	}

	// Stop the cooldown clock; clears every outstanding lock
	if s.scheduler != nil {
		s.scheduler.Stop()
		s.logger.Info("cooldown scheduler stopped")
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}
