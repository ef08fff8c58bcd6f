package portfolio

import (
	"sort"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/aggregation"
)

const (
	detailTopHoldings    = 5
	dashboardRecentCount = 3
	dashboardTopCount    = 3
)

// HoldingsSummary totals the holdings of one portfolio
type HoldingsSummary struct {
	TotalValue           float64 `json:"total_value"`
	TotalCost            float64 `json:"total_cost"`
	TotalGainLoss        float64 `json:"total_gain_loss"`
	TotalGainLossPercent float64 `json:"total_gain_loss_percent"`
	Count                int     `json:"count"`
}

// PortfolioDetail is everything the detail page shows for one portfolio
type PortfolioDetail struct {
	Portfolio        domain.Portfolio          `json:"portfolio"`
	Holdings         []domain.Holding          `json:"holdings"`
	Transactions     []domain.Transaction      `json:"transactions"`
	Summary          HoldingsSummary           `json:"summary"`
	SectorAllocation []domain.SectorAllocation `json:"sector_allocation"`
	TopHoldings      []domain.Holding          `json:"top_holdings"`
	IsOwner          bool                      `json:"is_owner"`
	IsSelected       bool                      `json:"is_selected"`
}

// Dashboard is the landing view of one user
type Dashboard struct {
	Summary             domain.PortfolioSummary `json:"summary"`
	RecentPortfolios    []domain.Portfolio      `json:"recent_portfolios"`
	TopPerforming       []domain.Portfolio      `json:"top_performing"`
	Watchlist           []domain.WatchlistItem  `json:"watchlist"`
	HasData             bool                    `json:"has_data"`
	IsPositiveGainLoss  bool                    `json:"is_positive_gain_loss"`
	SelectedPortfolioID string                  `json:"selected_portfolio_id,omitempty"`
}

// Portfolios lists the current user's portfolios
func (c *Coordinator) Portfolios(filter PortfolioFilter) ([]domain.Portfolio, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	var out []domain.Portfolio
	err := c.read(func(userID string) error {
		out = c.store.Portfolios(func(p domain.Portfolio) bool {
			return p.UserID == userID && filter.match(p)
		})
		filter.sort(out)
		return nil
	})
	return out, err
}

// Portfolio returns one of the current user's portfolios
func (c *Coordinator) Portfolio(id string) (domain.Portfolio, error) {
	var p domain.Portfolio
	err := c.read(func(userID string) error {
		var err error
		p, err = c.ownedPortfolio(userID, id)
		return err
	})
	return p, err
}

// Holdings lists the current user's holdings
func (c *Coordinator) Holdings(filter HoldingFilter) ([]domain.Holding, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	var out []domain.Holding
	err := c.read(func(userID string) error {
		if filter.PortfolioID != "" {
			if _, err := c.ownedPortfolio(userID, filter.PortfolioID); err != nil {
				return err
			}
		}
		out = c.store.Holdings(func(h domain.Holding) bool {
			return filter.match(h) && c.owns(userID, h.PortfolioID)
		})
		filter.sort(out)
		return nil
	})
	return out, err
}

// Holding returns one of the current user's holdings
func (c *Coordinator) Holding(id string) (domain.Holding, error) {
	var h domain.Holding
	err := c.read(func(userID string) error {
		var err error
		h, err = c.ownedHolding(userID, id)
		return err
	})
	return h, err
}

// Transactions lists the current user's transactions, including those whose
// holding or portfolio has since been removed
func (c *Coordinator) Transactions(filter TransactionFilter) ([]domain.Transaction, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	var out []domain.Transaction
	err := c.read(func(userID string) error {
		out = c.store.Transactions(func(t domain.Transaction) bool {
			return filter.match(t) && c.ownsTransaction(userID, t)
		})
		filter.sort(out)
		return nil
	})
	return out, err
}

// Watchlist lists the current user's watchlist
func (c *Coordinator) Watchlist() ([]domain.WatchlistItem, error) {
	var out []domain.WatchlistItem
	err := c.read(func(userID string) error {
		out = c.store.Watchlist(func(w domain.WatchlistItem) bool { return w.UserID == userID })
		return nil
	})
	return out, err
}

// Summary aggregates every portfolio and holding of the current user
func (c *Coordinator) Summary() (domain.PortfolioSummary, error) {
	var summary domain.PortfolioSummary
	err := c.read(func(userID string) error {
		summary = c.summary(userID)
		return nil
	})
	return summary, err
}

// Selected returns the selected portfolio
func (c *Coordinator) Selected() (domain.Portfolio, bool, error) {
	var (
		p  domain.Portfolio
		ok bool
	)
	err := c.read(func(string) error {
		p, ok = c.selection.Get()
		return nil
	})
	return p, ok, err
}

// Detail builds the detail view of one portfolio. Portfolios of other users
// are reported as not found.
func (c *Coordinator) Detail(id string) (PortfolioDetail, error) {
	var detail PortfolioDetail
	err := c.read(func(userID string) error {
		p, err := c.store.Portfolio(id)
		if err != nil {
			return err
		}
		if p.UserID != userID {
			return domain.NotFound("portfolio", id)
		}

		holdings := c.store.HoldingsOf(id)
		totals := aggregation.ComputePortfolioTotals(holdings)
		detail = PortfolioDetail{
			Portfolio:    p,
			Holdings:     holdings,
			Transactions: c.store.Transactions(func(t domain.Transaction) bool { return t.PortfolioID == id }),
			Summary: HoldingsSummary{
				TotalValue:           totals.TotalValue,
				TotalCost:            totals.TotalCost,
				TotalGainLoss:        totals.TotalGainLoss,
				TotalGainLossPercent: totals.TotalGainLossPercent,
				Count:                len(holdings),
			},
			SectorAllocation: aggregation.SectorAllocationByValue(holdings),
			TopHoldings:      aggregation.TopHoldings(holdings, detailTopHoldings),
			IsOwner:          true,
			IsSelected:       c.selection.ID() == id,
		}
		return nil
	})
	return detail, err
}

// Dashboard builds the landing view of the current user
func (c *Coordinator) Dashboard() (Dashboard, error) {
	var d Dashboard
	err := c.read(func(userID string) error {
		portfolios := c.store.Portfolios(func(p domain.Portfolio) bool { return p.UserID == userID })
		summary := c.summary(userID)

		recent := append([]domain.Portfolio(nil), portfolios...)
		sort.SliceStable(recent, func(i, j int) bool { return recent[i].UpdatedAt.After(recent[j].UpdatedAt) })

		top := append([]domain.Portfolio(nil), portfolios...)
		sort.SliceStable(top, func(i, j int) bool {
			return top[i].TotalGainLossPercent > top[j].TotalGainLossPercent
		})

		d = Dashboard{
			Summary:             summary,
			RecentPortfolios:    firstN(recent, dashboardRecentCount),
			TopPerforming:       firstN(top, dashboardTopCount),
			Watchlist:           c.store.Watchlist(func(w domain.WatchlistItem) bool { return w.UserID == userID }),
			HasData:             len(portfolios) > 0,
			IsPositiveGainLoss:  summary.TotalGainLoss >= 0,
			SelectedPortfolioID: c.selection.ID(),
		}
		return nil
	})
	return d, err
}

func (c *Coordinator) summary(userID string) domain.PortfolioSummary {
	portfolios := c.store.Portfolios(func(p domain.Portfolio) bool { return p.UserID == userID })
	holdings := c.store.Holdings(func(h domain.Holding) bool { return c.owns(userID, h.PortfolioID) })
	return aggregation.ComputeSummary(portfolios, holdings)
}

func (c *Coordinator) owns(userID, portfolioID string) bool {
	_, err := c.ownedPortfolio(userID, portfolioID)
	return err == nil
}

// ownsTransaction keeps orphaned history visible: a transaction whose
// portfolio is gone still belongs to the session's user
func (c *Coordinator) ownsTransaction(userID string, t domain.Transaction) bool {
	p, err := c.store.Portfolio(t.PortfolioID)
	if err != nil {
		return true
	}
	return p.UserID == userID
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
