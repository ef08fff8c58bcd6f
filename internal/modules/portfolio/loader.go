package portfolio

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
	"github.com/aristath/folio/internal/modules/aggregation"
)

// Dataset is a set of records fetched from the gateway
type Dataset struct {
	Portfolios   []domain.Portfolio
	Holdings     []domain.Holding
	Transactions []domain.Transaction
	Watchlist    []domain.WatchlistItem
}

// Loader fetches records from the gateway and hands them to the Coordinator.
//
// Every load is tagged with a sequence number when it starts. A load only
// applies its result if no newer load covering the same records has started
// since, so responses arriving out of order never overwrite fresher data.
// A full load covers every portfolio; a portfolio load covers one.
type Loader struct {
	mu          sync.Mutex
	gateway     domain.Gateway
	coordinator *Coordinator
	events      *events.Manager
	log         zerolog.Logger

	seq       uint64
	allIssued uint64
	issued    map[string]uint64
}

// NewLoader creates a loader feeding coordinator
func NewLoader(gateway domain.Gateway, coordinator *Coordinator, eventManager *events.Manager, log zerolog.Logger) *Loader {
	return &Loader{
		gateway:     gateway,
		coordinator: coordinator,
		events:      eventManager,
		log:         log.With().Str("component", "loader").Logger(),
		issued:      make(map[string]uint64),
	}
}

// LoadAll replaces every record of the current user with the gateway's copy.
// It reports false when a newer load superseded this one and the result was
// discarded.
func (l *Loader) LoadAll(ctx context.Context) (bool, error) {
	userID, err := l.coordinator.userID()
	if err != nil {
		return false, err
	}

	l.mu.Lock()
	l.seq++
	seq := l.seq
	l.allIssued = seq
	l.mu.Unlock()

	data, err := l.fetchAll(ctx, userID)
	if err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.allIssued != seq {
		l.log.Debug().Uint64("seq", seq).Uint64("latest", l.allIssued).Msg("Discarding superseded full load")
		return false, nil
	}

	keep := make(map[string]bool)
	for id, issued := range l.issued {
		if issued > seq {
			keep[id] = true
		}
	}

	loaded := l.coordinator.replaceAll(userID, data, keep)
	l.events.Emit(userID, eventModule, loaded)
	l.log.Info().
		Str("user_id", userID).
		Int("portfolios", loaded.Portfolios).
		Int("holdings", loaded.Holdings).
		Int("transactions", loaded.Transactions).
		Msg("Loaded portfolios")
	return true, nil
}

// LoadPortfolio replaces one portfolio's records with the gateway's copy.
// It reports false when a newer load superseded this one.
func (l *Loader) LoadPortfolio(ctx context.Context, id string) (bool, error) {
	userID, err := l.coordinator.userID()
	if err != nil {
		return false, err
	}

	l.mu.Lock()
	l.seq++
	seq := l.seq
	l.issued[id] = seq
	l.mu.Unlock()

	p, err := l.gateway.FetchPortfolio(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to fetch portfolio %s: %w", id, err)
	}
	holdings, err := l.gateway.FetchHoldings(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to fetch holdings of %s: %w", id, err)
	}
	transactions, err := l.gateway.FetchTransactions(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to fetch transactions of %s: %w", id, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.issued[id] != seq || l.allIssued > seq {
		l.log.Debug().Str("portfolio_id", id).Uint64("seq", seq).Msg("Discarding superseded portfolio load")
		return false, nil
	}

	if p.UserID != userID {
		return false, domain.NotFound("portfolio", id)
	}

	loaded := l.coordinator.replacePortfolio(userID, *p, holdings, transactions)
	l.events.Emit(userID, eventModule, loaded)
	return true, nil
}

func (l *Loader) fetchAll(ctx context.Context, userID string) (Dataset, error) {
	var data Dataset

	portfolios, err := l.gateway.FetchPortfolios(ctx, userID)
	if err != nil {
		return data, fmt.Errorf("failed to fetch portfolios: %w", err)
	}
	data.Portfolios = portfolios

	for _, p := range portfolios {
		if p.UserID != userID {
			continue
		}
		holdings, err := l.gateway.FetchHoldings(ctx, p.ID)
		if err != nil {
			return data, fmt.Errorf("failed to fetch holdings of %s: %w", p.ID, err)
		}
		data.Holdings = append(data.Holdings, holdings...)

		transactions, err := l.gateway.FetchTransactions(ctx, p.ID)
		if err != nil {
			return data, fmt.Errorf("failed to fetch transactions of %s: %w", p.ID, err)
		}
		data.Transactions = append(data.Transactions, transactions...)
	}

	watchlist, err := l.gateway.FetchWatchlist(ctx, userID)
	if err != nil {
		return data, fmt.Errorf("failed to fetch watchlist: %w", err)
	}
	data.Watchlist = watchlist

	return data, nil
}

// replaceAll swaps in data. Portfolios listed in keep retain their current
// records because a newer load for them has already started.
func (c *Coordinator) replaceAll(userID string, data Dataset, keep map[string]bool) *events.DataLoadedData {
	c.mu.Lock()
	before := c.selection.version

	holdingsOf := make(map[string][]domain.Holding)
	for _, h := range data.Holdings {
		holdingsOf[h.PortfolioID] = append(holdingsOf[h.PortfolioID], aggregation.WithDerived(h))
	}

	var (
		portfolios   []domain.Portfolio
		holdings     []domain.Holding
		transactions []domain.Transaction
		kept         = make(map[string]bool)
		accepted     = make(map[string]bool)
	)
	for _, p := range data.Portfolios {
		if p.UserID != userID {
			continue
		}
		accepted[p.ID] = true
		if current, err := c.store.Portfolio(p.ID); err == nil && keep[p.ID] {
			kept[p.ID] = true
			portfolios = append(portfolios, current)
			holdings = append(holdings, c.store.HoldingsOf(p.ID)...)
			continue
		}
		ph := holdingsOf[p.ID]
		portfolios = append(portfolios, aggregation.ApplyTotals(p, aggregation.ComputePortfolioTotals(ph)))
		holdings = append(holdings, ph...)
	}
	for _, t := range data.Transactions {
		if accepted[t.PortfolioID] && !kept[t.PortfolioID] {
			transactions = append(transactions, t)
		}
	}
	for id := range kept {
		transactions = append(transactions, c.store.Transactions(func(t domain.Transaction) bool {
			return t.PortfolioID == id
		})...)
	}

	var watchlist []domain.WatchlistItem
	for _, w := range data.Watchlist {
		if w.UserID == userID {
			watchlist = append(watchlist, w)
		}
	}

	c.store.ReplaceAll(portfolios, holdings, transactions, watchlist)
	if id := c.selection.ID(); id != "" {
		if p, err := c.store.Portfolio(id); err == nil {
			c.selection.refresh(p)
		} else {
			c.selection.clear()
		}
	}

	changed := c.selection.version != before
	selected := c.selection.ID()
	np, nh, nt := c.store.Counts()
	c.mu.Unlock()

	if changed {
		c.events.Emit(userID, eventModule, &events.SelectionChangedData{PortfolioID: selected})
	}
	return &events.DataLoadedData{Portfolios: np, Holdings: nh, Transactions: nt}
}

// replacePortfolio swaps in the records of one portfolio
func (c *Coordinator) replacePortfolio(userID string, p domain.Portfolio, holdings []domain.Holding, transactions []domain.Transaction) *events.DataLoadedData {
	c.mu.Lock()
	before := c.selection.version

	derived := make([]domain.Holding, 0, len(holdings))
	for _, h := range holdings {
		if h.PortfolioID == p.ID {
			derived = append(derived, aggregation.WithDerived(h))
		}
	}
	p = aggregation.ApplyTotals(p, aggregation.ComputePortfolioTotals(derived))
	c.store.ReplacePortfolio(p, derived, transactions)

	changed := c.selection.version != before
	c.mu.Unlock()

	if changed {
		c.events.Emit(userID, eventModule, &events.SelectionChangedData{PortfolioID: p.ID})
	}
	return &events.DataLoadedData{
		PortfolioID:  p.ID,
		Portfolios:   1,
		Holdings:     len(derived),
		Transactions: len(transactions),
	}
}
