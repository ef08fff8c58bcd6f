// Package pricing refreshes holding and watchlist prices from a quote provider.
package pricing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/portfolio"
)

// SessionSource lists the engines whose prices should be refreshed
type SessionSource interface {
	Active() []*portfolio.Engine
}

// RefreshJob quotes every symbol held or watched by an active session and
// applies the prices through each session's Service
type RefreshJob struct {
	sessions SessionSource
	quotes   domain.QuoteProvider
	timeout  time.Duration
	log      zerolog.Logger
}

// NewRefreshJob creates a price refresh job
func NewRefreshJob(sessions SessionSource, quotes domain.QuoteProvider, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		sessions: sessions,
		quotes:   quotes,
		timeout:  2 * time.Minute,
		log:      log.With().Str("job", "refresh_prices").Logger(),
	}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "refresh_prices"
}

// Run executes the refresh job
func (j *RefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	return j.RunContext(ctx)
}

// RunContext refreshes every active session. A symbol is quoted at most once
// per run. Sessions are independent: one failing does not stop the others.
func (j *RefreshJob) RunContext(ctx context.Context) error {
	engines := j.sessions.Active()
	if len(engines) == 0 {
		j.log.Debug().Msg("No active sessions, skipping price refresh")
		return nil
	}

	quoted := make(map[string]float64)
	unavailable := make(map[string]bool)
	failed := 0

	for _, engine := range engines {
		symbols, err := symbolsOf(engine.Coordinator)
		if err != nil {
			j.log.Warn().Err(err).Str("user_id", engine.UserID).Msg("Failed to list symbols")
			failed++
			continue
		}

		prices := make(map[string]float64, len(symbols))
		for _, symbol := range symbols {
			if price, ok := quoted[symbol]; ok {
				prices[symbol] = price
				continue
			}
			if unavailable[symbol] {
				continue
			}
			price, _, err := j.quotes.GetPrice(ctx, symbol)
			if err != nil {
				j.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to fetch quote")
				unavailable[symbol] = true
				continue
			}
			quoted[symbol] = price
			prices[symbol] = price
		}
		if len(prices) == 0 {
			continue
		}

		out, err := engine.Service.UpdatePrices(ctx, prices)
		if err != nil {
			j.log.Error().Err(err).Str("user_id", engine.UserID).Msg("Failed to apply prices")
			failed++
			continue
		}
		for _, r := range out.Rejected {
			j.log.Warn().Str("user_id", engine.UserID).Str("symbol", r.Field).Msg("Quote rejected")
		}

		j.log.Info().
			Str("user_id", engine.UserID).
			Int("symbols", len(prices)).
			Int("holdings", len(out.Holdings)).
			Int("portfolios", len(out.Portfolios)).
			Msg("Prices refreshed")
	}

	if failed > 0 {
		return fmt.Errorf("price refresh failed for %d of %d sessions", failed, len(engines))
	}
	return nil
}

// symbolsOf returns the distinct symbols held or watched, sorted
func symbolsOf(c *portfolio.Coordinator) ([]string, error) {
	holdings, err := c.Holdings(portfolio.HoldingFilter{})
	if err != nil {
		return nil, err
	}
	watchlist, err := c.Watchlist()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, h := range holdings {
		seen[h.Symbol] = true
	}
	for _, w := range watchlist {
		seen[w.Symbol] = true
	}

	symbols := make([]string, 0, len(seen))
	for s := range seen {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols, nil
}
