package di

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/domain"
	testingpkg "github.com/aristath/folio/internal/testing"
)

func TestWire_WithoutQuotes(t *testing.T) {
	cfg := testingpkg.NewTestConfig(t)

	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	assert.NotNil(t, container.DB)
	assert.NotNil(t, container.EventBus)
	assert.NotNil(t, container.EventManager)
	assert.NotNil(t, container.Gateway)
	assert.NotNil(t, container.Sessions)
	assert.NotNil(t, container.SnapshotRepo)
	assert.NotNil(t, container.Scheduler)
	assert.Nil(t, container.Quotes)

	assert.Nil(t, jobs.RefreshPrices)
	assert.Equal(t, "record_snapshots", jobs.RecordSnapshots.Name())
	assert.Equal(t, "wal_checkpoint", jobs.WALCheckpoint.Name())
	assert.Equal(t, 2, container.Scheduler.Entries())

	assert.NoError(t, container.DB.HealthCheck(context.Background()))
	assert.Equal(t, cfg.DatabasePath(), container.DB.Path())
}

func TestWire_WithQuotes(t *testing.T) {
	cfg := testingpkg.NewTestConfig(t)
	cfg.QuoteProvider = config.QuoteProviderYahoo

	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	assert.NotNil(t, container.Quotes)
	require.NotNil(t, jobs.RefreshPrices)
	assert.Equal(t, "refresh_prices", jobs.RefreshPrices.Name())
	assert.Equal(t, 3, container.Scheduler.Entries())
}

func TestWire_SessionsUseDatabase(t *testing.T) {
	cfg := testingpkg.NewTestConfig(t)

	container, _, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	ctx := context.Background()
	engine, err := container.Sessions.Get(ctx, "alice")
	require.NoError(t, err)

	created, err := engine.Service.CreatePortfolio(ctx, domain.CreatePortfolioRequest{
		Name:     "Main",
		Broker:   "Questrade",
		Currency: domain.CurrencyUSD,
	})
	require.NoError(t, err)

	stored, err := container.Gateway.FetchPortfolios(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, created.ID, stored[0].ID)
}

func TestWire_BadSchedule(t *testing.T) {
	cfg := testingpkg.NewTestConfig(t)
	cfg.SnapshotSchedule = "not a schedule"

	_, _, err := Wire(cfg, zerolog.Nop())

	assert.Error(t, err)
}
