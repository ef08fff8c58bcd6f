package testing

import (
	"time"

	"github.com/aristath/folio/internal/domain"
)

// FixtureTime is the timestamp used by every fixture
var FixtureTime = time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)

// NewPortfolioFixture returns an empty active USD portfolio
func NewPortfolioFixture(userID, id, name string) domain.Portfolio {
	return domain.Portfolio{
		ID:          id,
		UserID:      userID,
		Name:        name,
		Description: "Long-term holdings",
		Broker:      "Questrade",
		Currency:    domain.CurrencyUSD,
		IsActive:    true,
		CreatedAt:   FixtureTime,
		UpdatedAt:   FixtureTime,
	}
}

// NewHoldingFixtures returns three holdings of portfolioID with derived
// fields filled in
func NewHoldingFixtures(portfolioID string) []domain.Holding {
	holdings := []domain.Holding{
		{
			ID:           portfolioID + "-aapl",
			PortfolioID:  portfolioID,
			Symbol:       "AAPL",
			CompanyName:  "Apple Inc.",
			Type:         domain.HoldingTypeStock,
			Market:       "NASDAQ",
			Currency:     domain.CurrencyUSD,
			Sector:       "Technology",
			Quantity:     10,
			AveragePrice: 150,
			CurrentPrice: 180,
		},
		{
			ID:           portfolioID + "-msft",
			PortfolioID:  portfolioID,
			Symbol:       "MSFT",
			CompanyName:  "Microsoft Corporation",
			Type:         domain.HoldingTypeStock,
			Market:       "NASDAQ",
			Currency:     domain.CurrencyUSD,
			Sector:       "Technology",
			Quantity:     5,
			AveragePrice: 400,
			CurrentPrice: 380,
		},
		{
			ID:           portfolioID + "-vti",
			PortfolioID:  portfolioID,
			Symbol:       "VTI",
			CompanyName:  "Vanguard Total Stock Market ETF",
			Type:         domain.HoldingTypeETF,
			Market:       "NYSE Arca",
			Currency:     domain.CurrencyUSD,
			Sector:       "Diversified",
			Quantity:     20,
			AveragePrice: 200,
			CurrentPrice: 230,
		},
	}
	for i := range holdings {
		h := &holdings[i]
		h.PurchaseDate = FixtureTime
		h.LastUpdated = FixtureTime
		h.TotalCost = h.Quantity * h.AveragePrice
		h.CurrentValue = h.Quantity * h.CurrentPrice
		h.GainLoss = h.CurrentValue - h.TotalCost
		h.GainLossPercent = h.GainLoss / h.TotalCost * 100
	}
	return holdings
}

// NewTransactionFixture returns a buy of h's full position dated FixtureTime
func NewTransactionFixture(id string, h domain.Holding) domain.Transaction {
	return domain.Transaction{
		ID:              id,
		PortfolioID:     h.PortfolioID,
		HoldingID:       h.ID,
		Type:            domain.TransactionTypeBuy,
		Symbol:          h.Symbol,
		Currency:        h.Currency,
		Quantity:        h.Quantity,
		Price:           h.AveragePrice,
		TotalAmount:     h.Quantity * h.AveragePrice,
		TransactionDate: FixtureTime,
	}
}

// NewWatchlistFixture returns a watchlist item of userID
func NewWatchlistFixture(userID, id, symbol string) domain.WatchlistItem {
	return domain.WatchlistItem{
		ID:           id,
		UserID:       userID,
		Symbol:       symbol,
		CompanyName:  symbol + " Corp",
		CurrentPrice: 100,
		AddedDate:    FixtureTime,
	}
}
