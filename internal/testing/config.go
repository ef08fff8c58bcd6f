package testing

import (
	"testing"
	"time"

	"github.com/aristath/folio/internal/config"
)

// NewTestConfig returns a valid configuration rooted in a temporary
// directory with quote refresh disabled
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:          t.TempDir(),
		Port:             8080,
		LogLevel:         "debug",
		DevMode:          true,
		UserHeader:       "X-User-ID",
		PriceSchedule:    "*/15 * * * *",
		SnapshotSchedule: "0 22 * * *",
		QuoteProvider:    config.QuoteProviderNone,
		QuoteTTL:         time.Minute,
	}
}
