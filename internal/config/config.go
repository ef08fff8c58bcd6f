// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Quote providers understood by the pricing job.
const (
	QuoteProviderYahoo = "yahoo"
	QuoteProviderNone  = "none"
)

// Config holds application configuration
type Config struct {
	DataDir          string // Directory holding folio.db (always absolute)
	Port             int
	LogLevel         string
	DevMode          bool
	UserHeader       string // Request header carrying the authenticated user id
	PriceSchedule    string // Cron spec for the quote refresh job
	SnapshotSchedule string // Cron spec for summary snapshots
	QuoteProvider    string
	QuoteTTL         time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("FOLIO_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		Port:             getEnvAsInt("FOLIO_PORT", 8080),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		UserHeader:       getEnv("FOLIO_USER_HEADER", "X-User-ID"),
		PriceSchedule:    getEnv("FOLIO_PRICE_SCHEDULE", "*/15 * * * *"),
		SnapshotSchedule: getEnv("FOLIO_SNAPSHOT_SCHEDULE", "0 22 * * *"),
		QuoteProvider:    getEnv("FOLIO_QUOTE_PROVIDER", QuoteProviderYahoo),
		QuoteTTL:         time.Duration(getEnvAsInt("FOLIO_QUOTE_TTL_SECONDS", 60)) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DatabasePath returns the location of the SQLite database file
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "folio.db")
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.UserHeader == "" {
		return fmt.Errorf("user header must not be empty")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.PriceSchedule); err != nil {
		return fmt.Errorf("invalid price schedule %q: %w", c.PriceSchedule, err)
	}
	if _, err := parser.Parse(c.SnapshotSchedule); err != nil {
		return fmt.Errorf("invalid snapshot schedule %q: %w", c.SnapshotSchedule, err)
	}

	switch c.QuoteProvider {
	case QuoteProviderYahoo, QuoteProviderNone:
	default:
		return fmt.Errorf("unknown quote provider %q", c.QuoteProvider)
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
