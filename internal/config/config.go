// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Click authentication
	ClickSecret string // shared with the mini-app client; legacy token contract
	AuthSecret  string // HMAC key for user identity tokens
	AdminSecret string // back-office API secret

	// Cooldown / anti-abuse
	CooldownSeconds    int
	LinksRefreshSecs   int
	ClickRecordURL     string // external click-record endpoint (optional)
	SecurityReportURL  string // external violation-report endpoint (optional)
	ReportHMACSecret   string // signs outbound violation reports (optional)
	RateLimitRPM       int
	AllowedOrigins     []string
	OTLPEndpoint       string
}

// Defaults.
const (
	DefaultPort             = "8080"
	DefaultEnv              = "development"
	DefaultLogLevel         = "info"
	DefaultCooldownSeconds  = 30
	DefaultLinksRefreshSecs = 60
	DefaultRateLimit        = 120
)

// Load reads configuration from environment variables. A .env file is
// loaded first if present (local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", DefaultPort),
		Env:               getEnv("ENV", DefaultEnv),
		LogLevel:          getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		ClickSecret:       os.Getenv("CLICK_SECRET"), // Required, no default
		AuthSecret:        os.Getenv("AUTH_SECRET"),  // Required, no default
		AdminSecret:       os.Getenv("ADMIN_SECRET"),
		CooldownSeconds:   getEnvInt("COOLDOWN_SECONDS", DefaultCooldownSeconds),
		LinksRefreshSecs:  getEnvInt("LINKS_REFRESH_SECONDS", DefaultLinksRefreshSecs),
		ClickRecordURL:    os.Getenv("CLICK_RECORD_URL"),
		SecurityReportURL: os.Getenv("SECURITY_REPORT_URL"),
		ReportHMACSecret:  os.Getenv("REPORT_HMAC_SECRET"),
		RateLimitRPM:      getEnvInt("RATE_LIMIT_RPM", DefaultRateLimit),
		AllowedOrigins:    splitList(os.Getenv("ALLOWED_ORIGINS")),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if c.ClickSecret == "" {
		return fmt.Errorf("CLICK_SECRET is required")
	}
	if c.AuthSecret == "" {
		return fmt.Errorf("AUTH_SECRET is required")
	}
	if c.CooldownSeconds <= 0 {
		return fmt.Errorf("COOLDOWN_SECONDS must be positive")
	}
	return nil
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
