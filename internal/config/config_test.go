package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FOLIO_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "X-User-ID", cfg.UserHeader)
	assert.Equal(t, QuoteProviderYahoo, cfg.QuoteProvider)
	assert.Equal(t, 60*time.Second, cfg.QuoteTTL)
	assert.Equal(t, dir+"/folio.db", cfg.DatabasePath())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("FOLIO_DATA_DIR", t.TempDir())
	t.Setenv("FOLIO_PORT", "9090")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("FOLIO_QUOTE_PROVIDER", "none")
	t.Setenv("FOLIO_PRICE_SCHEDULE", "@every 5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, QuoteProviderNone, cfg.QuoteProvider)
	assert.Equal(t, "@every 5m", cfg.PriceSchedule)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("FOLIO_DATA_DIR", t.TempDir())
	t.Setenv("FOLIO_PORT", "not-a-number")
	t.Setenv("DEV_MODE", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.DevMode)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:             8080,
			UserHeader:       "X-User-ID",
			PriceSchedule:    "*/15 * * * *",
			SnapshotSchedule: "0 22 * * *",
			QuoteProvider:    QuoteProviderYahoo,
		}
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.PriceSchedule = "every now and then"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.QuoteProvider = "bloomberg"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.UserHeader = ""
	assert.Error(t, cfg.Validate())
}
