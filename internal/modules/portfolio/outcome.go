package portfolio

import "github.com/aristath/folio/internal/domain"

// Outcome lists every record a Coordinator operation wrote or removed.
// Callers use it to persist the recomputed records and to notify views.
type Outcome struct {
	Portfolios          []domain.Portfolio     `json:"portfolios,omitempty"`
	RemovedPortfolioIDs []string               `json:"removed_portfolio_ids,omitempty"`
	Holdings            []domain.Holding       `json:"holdings,omitempty"`
	RemovedHoldings     []domain.Holding       `json:"removed_holdings,omitempty"`
	Transactions        []domain.Transaction   `json:"transactions,omitempty"`
	Watchlist           []domain.WatchlistItem `json:"watchlist,omitempty"`
	RemovedWatchlistIDs []string               `json:"removed_watchlist_ids,omitempty"`
	Rejected            []domain.FieldError    `json:"rejected,omitempty"`
	SelectionChanged    bool                   `json:"selection_changed"`
}

// addPortfolio records p, replacing an earlier entry for the same id
func (o *Outcome) addPortfolio(p domain.Portfolio) {
	for i := range o.Portfolios {
		if o.Portfolios[i].ID == p.ID {
			o.Portfolios[i] = p
			return
		}
	}
	o.Portfolios = append(o.Portfolios, p)
}

// addHolding records h, replacing an earlier entry for the same id
func (o *Outcome) addHolding(h domain.Holding) {
	for i := range o.Holdings {
		if o.Holdings[i].ID == h.ID {
			o.Holdings[i] = h
			return
		}
	}
	o.Holdings = append(o.Holdings, h)
}

// removeHolding records h as removed and forgets any earlier write to it
func (o *Outcome) removeHolding(h domain.Holding) {
	for i := range o.Holdings {
		if o.Holdings[i].ID == h.ID {
			o.Holdings = append(o.Holdings[:i:i], o.Holdings[i+1:]...)
			break
		}
	}
	o.RemovedHoldings = append(o.RemovedHoldings, h)
}

func (o *Outcome) addWatchlistItem(w domain.WatchlistItem) {
	for i := range o.Watchlist {
		if o.Watchlist[i].ID == w.ID {
			o.Watchlist[i] = w
			return
		}
	}
	o.Watchlist = append(o.Watchlist, w)
}

// Portfolio returns the written portfolio with id
func (o Outcome) Portfolio(id string) (domain.Portfolio, bool) {
	for _, p := range o.Portfolios {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Portfolio{}, false
}

// Holding returns the written holding with id
func (o Outcome) Holding(id string) (domain.Holding, bool) {
	for _, h := range o.Holdings {
		if h.ID == id {
			return h, true
		}
	}
	return domain.Holding{}, false
}

// HoldingRemoved reports whether the holding with id was removed
func (o Outcome) HoldingRemoved(id string) bool {
	for _, h := range o.RemovedHoldings {
		if h.ID == id {
			return true
		}
	}
	return false
}

func (o Outcome) clone() Outcome {
	c := o
	c.Portfolios = append([]domain.Portfolio(nil), o.Portfolios...)
	c.RemovedPortfolioIDs = append([]string(nil), o.RemovedPortfolioIDs...)
	c.Holdings = append([]domain.Holding(nil), o.Holdings...)
	c.RemovedHoldings = append([]domain.Holding(nil), o.RemovedHoldings...)
	c.Transactions = append([]domain.Transaction(nil), o.Transactions...)
	c.Watchlist = append([]domain.WatchlistItem(nil), o.Watchlist...)
	c.RemovedWatchlistIDs = append([]string(nil), o.RemovedWatchlistIDs...)
	c.Rejected = append([]domain.FieldError(nil), o.Rejected...)
	return c
}
