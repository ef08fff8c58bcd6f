package di

import (
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/clients/yahoo"
	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/events"
	"github.com/aristath/folio/internal/modules/persistence"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/aristath/folio/internal/modules/snapshots"
	"github.com/aristath/folio/internal/scheduler"
)

// InitializeServices creates every component on top of container.DB
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) {
	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	container.Gateway = persistence.NewGateway(container.DB.Conn(), log)
	container.Sessions = portfolio.NewSessions(container.Gateway, container.EventManager, log)
	container.SnapshotRepo = snapshots.NewRepository(container.DB.Conn(), log)

	switch cfg.QuoteProvider {
	case config.QuoteProviderYahoo:
		container.Quotes = yahoo.NewClient(cfg.QuoteTTL, log)
	default:
		log.Info().Str("provider", cfg.QuoteProvider).Msg("Quote refresh disabled")
	}

	container.Scheduler = scheduler.New(log)
}
