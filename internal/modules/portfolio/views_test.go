package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folio/internal/domain"
)

func TestViews_PortfolioFilter(t *testing.T) {
	c, _, _ := newTestCoordinator(t, "alice")
	growth := createPortfolio(t, c, "growth")
	income := createPortfolio(t, c, "Income")
	_, err := c.CreatePortfolio(domain.CreatePortfolioRequest{Name: "Cash", Broker: "Wealthsimple", Currency: domain.CurrencyCAD})
	require.NoError(t, err)
	createHolding(t, c, growth.ID, "AAPL", 10, 10, 12)
	createHolding(t, c, income.ID, "KO", 10, 50, 60)
	_, err = c.UpdatePortfolio(income.ID, domain.UpdatePortfolioRequest{IsActive: boolPtr(false)})
	require.NoError(t, err)

	byValue, err := c.Portfolios(PortfolioFilter{SortBy: "total_value", SortOrder: SortDesc})
	require.NoError(t, err)
	require.Len(t, byValue, 3)
	assert.Equal(t, []string{income.ID, growth.ID}, []string{byValue[0].ID, byValue[1].ID})

	byName, err := c.Portfolios(PortfolioFilter{SortBy: "name"})
	require.NoError(t, err)
	assert.Equal(t, "Cash", byName[0].Name)
	assert.Equal(t, "growth", byName[1].Name)

	active, err := c.Portfolios(PortfolioFilter{IsActive: boolPtr(true), Broker: "questrade"})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, growth.ID, active[0].ID)

	cad, err := c.Portfolios(PortfolioFilter{Currency: domain.CurrencyCAD})
	require.NoError(t, err)
	assert.Len(t, cad, 1)

	_, err = c.Portfolios(PortfolioFilter{SortBy: "colour"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = c.Portfolios(PortfolioFilter{SortOrder: "sideways"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestViews_HoldingAndTransactionFilters(t *testing.T) {
	c, _, _ := newTestCoordinator(t, "alice")
	p := createPortfolio(t, c, "Main")
	other := createPortfolio(t, c, "Other")
	aapl := createHolding(t, c, p.ID, "AAPL", 10, 10, 15)
	createHolding(t, c, p.ID, "MSFT", 1, 300, 290)
	createHolding(t, c, other.ID, "VTI", 2, 200, 220)

	holdings, err := c.Holdings(HoldingFilter{PortfolioID: p.ID, SortBy: "gain_loss_percent", SortOrder: SortDesc})
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, "AAPL", holdings[0].Symbol)

	tech, err := c.Holdings(HoldingFilter{Sector: "tech"})
	require.NoError(t, err)
	assert.Len(t, tech, 3)

	_, err = c.Holdings(HoldingFilter{PortfolioID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.AddTransaction(trade(p.ID, aapl.ID, "AAPL", domain.TransactionTypeSell, 4, 20))
	require.NoError(t, err)

	sells, err := c.Transactions(TransactionFilter{Type: domain.TransactionTypeSell})
	require.NoError(t, err)
	require.Len(t, sells, 1)
	assert.Equal(t, 80.0, sells[0].TotalAmount)

	bySymbol, err := c.Transactions(TransactionFilter{Symbol: "aapl", SortBy: "transaction_date", SortOrder: SortDesc})
	require.NoError(t, err)
	require.Len(t, bySymbol, 2)
	assert.Equal(t, domain.TransactionTypeSell, bySymbol[0].Type)

	window, err := c.Transactions(TransactionFilter{DateFrom: sells[0].TransactionDate})
	require.NoError(t, err)
	assert.Len(t, window, 1)

	_, err = c.Transactions(TransactionFilter{
		DateFrom: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		DateTo:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestViews_Summary(t *testing.T) {
	c, _, _ := newTestCoordinator(t, "alice")

	empty, err := c.Summary()
	require.NoError(t, err)
	assert.Zero(t, empty.TotalValue)
	assert.Zero(t, empty.TotalGainLossPercent)
	assert.Nil(t, empty.TopGainer)
	assert.Nil(t, empty.TopLoser)

	p := createPortfolio(t, c, "Main")
	createHolding(t, c, p.ID, "AAPL", 10, 10, 15)
	createHolding(t, c, p.ID, "MSFT", 1, 300, 270)

	s, err := c.Summary()
	require.NoError(t, err)
	assert.Equal(t, 1, s.PortfolioCount)
	assert.Equal(t, 2, s.HoldingCount)
	assert.InDelta(t, 420.0, s.TotalValue, 1e-9)
	assert.InDelta(t, 400.0, s.TotalCost, 1e-9)
	require.NotNil(t, s.TopGainer)
	assert.Equal(t, "AAPL", s.TopGainer.Symbol)
	require.NotNil(t, s.TopLoser)
	assert.Equal(t, "MSFT", s.TopLoser.Symbol)
}

func TestViews_Detail(t *testing.T) {
	c, _, _ := newTestCoordinator(t, "alice")
	p := createPortfolio(t, c, "Main")
	for i, symbol := range []string{"A", "B", "C", "D", "E", "F"} {
		createHolding(t, c, p.ID, symbol, float64(i+1), 10, 10)
	}
	_, err := c.Select(p.ID)
	require.NoError(t, err)

	d, err := c.Detail(p.ID)
	require.NoError(t, err)

	assert.True(t, d.IsOwner)
	assert.True(t, d.IsSelected)
	assert.Len(t, d.Holdings, 6)
	assert.Len(t, d.Transactions, 6)
	assert.Equal(t, 6, d.Summary.Count)
	assert.InDelta(t, 210.0, d.Summary.TotalValue, 1e-9)
	require.Len(t, d.TopHoldings, 5)
	assert.Equal(t, "F", d.TopHoldings[0].Symbol)
	require.Len(t, d.SectorAllocation, 1)
	assert.InDelta(t, 100.0, d.SectorAllocation[0].Percentage, 1e-9)

	_, err = c.Detail("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestViews_DetailHidesOtherUsers(t *testing.T) {
	c, _, _ := newTestCoordinator(t, "alice")
	c.mu.Lock()
	c.store.UpsertPortfolio(domain.Portfolio{ID: "p-bob", UserID: "bob", Name: "Bob's"})
	c.mu.Unlock()

	_, err := c.Detail("p-bob")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	portfolios, err := c.Portfolios(PortfolioFilter{})
	require.NoError(t, err)
	assert.Empty(t, portfolios)
}

func TestViews_Dashboard(t *testing.T) {
	c, _, _ := newTestCoordinator(t, "alice")

	d, err := c.Dashboard()
	require.NoError(t, err)
	assert.False(t, d.HasData)
	assert.True(t, d.IsPositiveGainLoss)

	a := createPortfolio(t, c, "A")
	b := createPortfolio(t, c, "B")
	cc := createPortfolio(t, c, "C")
	dd := createPortfolio(t, c, "D")
	createHolding(t, c, b.ID, "WIN", 1, 10, 12)
	createHolding(t, c, cc.ID, "LOSE", 1, 10, 5)
	_, err = c.Select(a.ID)
	require.NoError(t, err)

	d, err = c.Dashboard()
	require.NoError(t, err)

	assert.True(t, d.HasData)
	assert.False(t, d.IsPositiveGainLoss)
	assert.Equal(t, a.ID, d.SelectedPortfolioID)

	require.Len(t, d.RecentPortfolios, 3)
	assert.Equal(t, cc.ID, d.RecentPortfolios[0].ID, "most recently updated first")
	assert.Equal(t, b.ID, d.RecentPortfolios[1].ID)
	assert.Equal(t, dd.ID, d.RecentPortfolios[2].ID)

	require.Len(t, d.TopPerforming, 3)
	assert.Equal(t, b.ID, d.TopPerforming[0].ID)
}
