package aggregation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folio/internal/domain"
)

func holding(id, portfolioID, sector string, qty, avg, current float64) domain.Holding {
	return domain.Holding{
		ID:           id,
		PortfolioID:  portfolioID,
		Symbol:       id,
		Sector:       sector,
		Quantity:     qty,
		AveragePrice: avg,
		CurrentPrice: current,
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name     string
		part     float64
		whole    float64
		expected float64
	}{
		{"normal", 25, 200, 12.5},
		{"negative part", -50, 200, -25},
		{"zero whole", 10, 0, 0},
		{"negative whole", 10, -5, 0},
		{"overflow", math.MaxFloat64, math.SmallestNonzeroFloat64, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Percent(tt.part, tt.whole))
		})
	}
}

func TestComputeHoldingDerived(t *testing.T) {
	d := ComputeHoldingDerived(holding("h1", "p1", "Tech", 10, 100, 120))

	assert.InDelta(t, 1000.0, d.TotalCost, 1e-9)
	assert.InDelta(t, 1200.0, d.CurrentValue, 1e-9)
	assert.InDelta(t, 200.0, d.GainLoss, 1e-9)
	assert.InDelta(t, 20.0, d.GainLossPercent, 1e-9)
}

func TestComputeHoldingDerived_ZeroCostNeverNaN(t *testing.T) {
	for _, h := range []domain.Holding{
		holding("a", "p1", "", 10, 0, 50),
		holding("b", "p1", "", 0, 10, 50),
		holding("c", "p1", "", 0, 0, 0),
	} {
		d := ComputeHoldingDerived(h)
		assert.False(t, math.IsNaN(d.GainLossPercent), h.ID)
		assert.False(t, math.IsInf(d.GainLossPercent, 0), h.ID)
		assert.Equal(t, 0.0, d.GainLossPercent, h.ID)
		assert.Equal(t, d.CurrentValue-d.TotalCost, d.GainLoss, h.ID)
	}
}

func TestWithDerived_OverwritesStaleFields(t *testing.T) {
	h := holding("h1", "p1", "Tech", 2, 50, 40)
	h.CurrentValue = 9999
	h.GainLoss = 9999

	got := WithDerived(h)

	assert.InDelta(t, 80.0, got.CurrentValue, 1e-9)
	assert.InDelta(t, -20.0, got.GainLoss, 1e-9)
	assert.InDelta(t, -20.0, got.GainLossPercent, 1e-9)
	assert.Equal(t, 9999.0, h.CurrentValue, "input must not be mutated")
}

func TestComputePortfolioTotals(t *testing.T) {
	totals := ComputePortfolioTotals([]domain.Holding{
		holding("h1", "p1", "Tech", 10, 100, 120),
		holding("h2", "p1", "Energy", 5, 20, 10),
	})

	assert.InDelta(t, 1250.0, totals.TotalValue, 1e-9)
	assert.InDelta(t, 1100.0, totals.TotalCost, 1e-9)
	assert.InDelta(t, 150.0, totals.TotalGainLoss, 1e-9)
	assert.InDelta(t, 150.0/1100.0*100, totals.TotalGainLossPercent, 1e-9)
}

func TestComputePortfolioTotals_Empty(t *testing.T) {
	assert.Equal(t, PortfolioTotals{}, ComputePortfolioTotals(nil))
}

func TestApplyTotalsAndMatches(t *testing.T) {
	totals := ComputePortfolioTotals([]domain.Holding{holding("h1", "p1", "", 1, 10, 15)})
	p := domain.Portfolio{ID: "p1", Name: "Main"}

	assert.False(t, totals.Matches(p))
	p = ApplyTotals(p, totals)
	assert.True(t, totals.Matches(p))
	assert.Equal(t, p.TotalValue-p.TotalCost, p.TotalGainLoss)
	assert.Equal(t, "Main", p.Name)
}

func TestComputeSummary_Empty(t *testing.T) {
	summary := ComputeSummary(nil, nil)

	assert.Nil(t, summary.TopGainer)
	assert.Nil(t, summary.TopLoser)
	assert.NotNil(t, summary.SectorAllocation)
	assert.Empty(t, summary.SectorAllocation)
	assert.NotNil(t, summary.CurrencyAllocation)
	assert.Empty(t, summary.CurrencyAllocation)
	assert.Zero(t, summary.TotalValue)
	assert.Zero(t, summary.TotalCost)
	assert.Zero(t, summary.TotalGainLoss)
	assert.Zero(t, summary.TotalGainLossPercent)
	assert.Zero(t, summary.PortfolioCount)
	assert.Zero(t, summary.HoldingCount)
}

func TestComputeSummary_PortfoliosWithoutHoldings(t *testing.T) {
	portfolios := []domain.Portfolio{
		{ID: "p1", Currency: domain.CurrencyUSD, TotalValue: 500},
	}

	summary := ComputeSummary(portfolios, nil)

	assert.Equal(t, 1, summary.PortfolioCount)
	assert.Zero(t, summary.TotalValue, "stored totals are recomputed from holdings")
	require.Len(t, summary.CurrencyAllocation, 1)
	assert.Equal(t, 0.0, summary.CurrencyAllocation[0].Percentage)
	assert.Nil(t, summary.TopGainer)
}

func TestComputeSummary_Aggregates(t *testing.T) {
	portfolios := []domain.Portfolio{
		{ID: "p1", Currency: domain.CurrencyUSD},
		{ID: "p2", Currency: domain.CurrencyCAD},
		{ID: "p3", Currency: domain.CurrencyUSD},
	}
	holdings := []domain.Holding{
		holding("AAPL", "p1", "Tech", 10, 100, 150), // +50%
		holding("XOM", "p1", "Energy", 10, 100, 80), // -20%
		holding("SHOP", "p2", "Tech", 5, 100, 100),  // 0%
		holding("RY", "p3", "Finance", 10, 50, 60),  // +20%
		holding("GONE", "p9", "Tech", 100, 1, 1000), // not owned
	}

	summary := ComputeSummary(portfolios, holdings)

	assert.Equal(t, 3, summary.PortfolioCount)
	assert.Equal(t, 4, summary.HoldingCount)
	assert.InDelta(t, 1500+800+500+600.0, summary.TotalValue, 1e-9)
	assert.InDelta(t, 1000+1000+500+500.0, summary.TotalCost, 1e-9)
	assert.InDelta(t, summary.TotalValue-summary.TotalCost, summary.TotalGainLoss, 1e-9)
	assert.InDelta(t, 400.0/3000.0*100, summary.TotalGainLossPercent, 1e-9)

	require.NotNil(t, summary.TopGainer)
	require.NotNil(t, summary.TopLoser)
	assert.Equal(t, "AAPL", summary.TopGainer.ID)
	assert.Equal(t, "XOM", summary.TopLoser.ID)

	require.Len(t, summary.SectorAllocation, 3)
	assert.Equal(t, "Tech", summary.SectorAllocation[0].Sector)
	assert.Equal(t, 2, summary.SectorAllocation[0].Count)
	assert.InDelta(t, 2000.0, summary.SectorAllocation[0].Value, 1e-9)
	assert.InDelta(t, 2000.0/3400.0*100, summary.SectorAllocation[0].Percentage, 1e-9)
	assert.Equal(t, "Energy", summary.SectorAllocation[1].Sector)
	assert.Equal(t, "Finance", summary.SectorAllocation[2].Sector)

	require.Len(t, summary.CurrencyAllocation, 2)
	assert.Equal(t, domain.CurrencyUSD, summary.CurrencyAllocation[0].Currency)
	assert.InDelta(t, 2900.0, summary.CurrencyAllocation[0].Value, 1e-9)
	assert.Equal(t, domain.CurrencyCAD, summary.CurrencyAllocation[1].Currency)
	assert.InDelta(t, 500.0, summary.CurrencyAllocation[1].Value, 1e-9)
}

func TestComputeSummary_TiesKeepFirstEncountered(t *testing.T) {
	portfolios := []domain.Portfolio{{ID: "p1", Currency: domain.CurrencyUSD}}
	holdings := []domain.Holding{
		holding("first", "p1", "", 1, 10, 12),
		holding("second", "p1", "", 2, 10, 12),
		holding("third", "p1", "", 3, 10, 12),
	}

	summary := ComputeSummary(portfolios, holdings)

	assert.Equal(t, "first", summary.TopGainer.ID)
	assert.Equal(t, "first", summary.TopLoser.ID)
}

func TestComputeSummary_Deterministic(t *testing.T) {
	portfolios := []domain.Portfolio{{ID: "p1", Currency: domain.CurrencyUSD}, {ID: "p2", Currency: domain.CurrencyCAD}}
	holdings := []domain.Holding{
		holding("a", "p1", "Tech", 1, 10, 12),
		holding("b", "p2", "Health", 2, 10, 8),
		holding("c", "p1", "Tech", 3, 10, 11),
	}

	assert.Equal(t, ComputeSummary(portfolios, holdings), ComputeSummary(portfolios, holdings))
}

func TestSectorAllocationByValue_SortedDescending(t *testing.T) {
	allocation := SectorAllocationByValue([]domain.Holding{
		holding("a", "p1", "Small", 1, 1, 10),
		holding("b", "p1", "Large", 1, 1, 100),
		holding("c", "p1", "Small", 1, 1, 5),
		holding("d", "p1", "Medium", 1, 1, 50),
	})

	require.Len(t, allocation, 3)
	assert.Equal(t, "Large", allocation[0].Sector)
	assert.Equal(t, "Medium", allocation[1].Sector)
	assert.Equal(t, "Small", allocation[2].Sector)
	assert.Equal(t, 2, allocation[2].Count)
	assert.InDelta(t, 15.0/165.0*100, allocation[2].Percentage, 1e-9)
}

func TestTopHoldings(t *testing.T) {
	holdings := []domain.Holding{
		holding("a", "p1", "", 1, 1, 10),
		holding("b", "p1", "", 1, 1, 30),
		holding("c", "p1", "", 1, 1, 20),
	}

	top := TopHoldings(holdings, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].ID)
	assert.Equal(t, "c", top[1].ID)

	assert.Len(t, TopHoldings(holdings, 10), 3)
	assert.Equal(t, "a", holdings[0].ID, "input order untouched")
}

func tx(typ domain.TransactionType, qty, price float64, day int) domain.Transaction {
	return domain.Transaction{
		Type:            typ,
		Quantity:        qty,
		Price:           price,
		TransactionDate: time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
	}
}

func TestFoldTransactions_BuysAverageCost(t *testing.T) {
	pos := FoldTransactions([]domain.Transaction{
		tx(domain.TransactionTypeBuy, 10, 10, 1),
		tx(domain.TransactionTypeBuy, 10, 20, 2),
	})

	assert.Equal(t, 20.0, pos.QuantityFloat())
	assert.Equal(t, 15.0, pos.AveragePrice())
	assert.Equal(t, 300.0, pos.CostFloat())
}

func TestFoldTransactions_SellKeepsAveragePrice(t *testing.T) {
	pos := FoldTransactions([]domain.Transaction{
		tx(domain.TransactionTypeBuy, 10, 10, 1),
		tx(domain.TransactionTypeBuy, 10, 20, 2),
		tx(domain.TransactionTypeSell, 15, 30, 3),
	})

	assert.Equal(t, 5.0, pos.QuantityFloat())
	assert.Equal(t, 15.0, pos.AveragePrice())
	assert.Equal(t, 75.0, pos.CostFloat())
	assert.True(t, pos.Open())
}

func TestFoldTransactions_DividendIsNoop(t *testing.T) {
	pos := FoldTransactions([]domain.Transaction{
		tx(domain.TransactionTypeBuy, 4, 25, 1),
		tx(domain.TransactionTypeDividend, 4, 0.5, 2),
	})

	assert.Equal(t, 4.0, pos.QuantityFloat())
	assert.Equal(t, 25.0, pos.AveragePrice())
}

func TestFoldTransactions_OrdersByDate(t *testing.T) {
	// Recorded out of order: the sell happened after both buys.
	pos := FoldTransactions([]domain.Transaction{
		tx(domain.TransactionTypeSell, 5, 30, 3),
		tx(domain.TransactionTypeBuy, 10, 10, 1),
		tx(domain.TransactionTypeBuy, 10, 20, 2),
	})

	assert.Equal(t, 15.0, pos.QuantityFloat())
	assert.Equal(t, 15.0, pos.AveragePrice())
}

func TestFoldTransactions_SellToZeroClosesPosition(t *testing.T) {
	pos := FoldTransactions([]domain.Transaction{
		tx(domain.TransactionTypeBuy, 10, 10, 1),
		tx(domain.TransactionTypeSell, 12, 10, 2),
	})

	assert.False(t, pos.Open())
	assert.Equal(t, 0.0, pos.AveragePrice())
	assert.Equal(t, 0.0, pos.CostFloat())
}

func TestFoldTransactions_SellBeforeAnyBuyNeverGoesNegative(t *testing.T) {
	pos := FoldTransactions([]domain.Transaction{
		tx(domain.TransactionTypeBuy, 10, 10, 2),
		tx(domain.TransactionTypeSell, 5, 12, 1),
	})

	assert.Equal(t, 10.0, pos.QuantityFloat())
	assert.Equal(t, 10.0, pos.AveragePrice())
	assert.Equal(t, 100.0, pos.CostFloat())
}

func TestFirstOversell(t *testing.T) {
	history := []domain.Transaction{
		tx(domain.TransactionTypeBuy, 10, 10, 2),
		tx(domain.TransactionTypeSell, 4, 12, 3),
	}
	_, found := FirstOversell(history)
	assert.False(t, found)

	backdated := tx(domain.TransactionTypeSell, 5, 12, 1)
	got, found := FirstOversell(append(history, backdated))
	require.True(t, found)
	assert.True(t, got.TransactionDate.Equal(backdated.TransactionDate))

	_, found = FirstOversell(append(history, tx(domain.TransactionTypeSell, 7, 12, 4)))
	assert.True(t, found)

	_, found = FirstOversell(append(history, tx(domain.TransactionTypeSell, 6, 12, 4)))
	assert.False(t, found)
}

func TestAdjustmentLeg(t *testing.T) {
	held := FoldTransactions([]domain.Transaction{tx(domain.TransactionTypeBuy, 10, 10, 1)})

	testCases := []struct {
		name     string
		from     Position
		quantity float64
		average  float64
		want     Leg
		ok       bool
	}{
		{"more shares same average", held, 20, 10, Leg{Type: domain.TransactionTypeBuy, Quantity: 10, Price: 10}, true},
		{"more shares new average", held, 20, 15, Leg{Type: domain.TransactionTypeBuy, Quantity: 10, Price: 20}, true},
		{"fewer shares same average", held, 4, 10, Leg{Type: domain.TransactionTypeSell, Quantity: 6, Price: 10}, true},
		{"fewer shares new average", held, 4, 12, Leg{}, false},
		{"unchanged", held, 10, 10, Leg{}, true},
		{"same shares new average", held, 10, 12, Leg{}, false},
		{"buy would need a negative price", held, 11, 1, Leg{}, false},
		{"empty position", Position{}, 10, 7.5, Leg{Type: domain.TransactionTypeBuy, Quantity: 10, Price: 7.5}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := AdjustmentLeg(tc.from, tc.quantity, tc.average)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAdjustmentLeg_FoldReachesTarget(t *testing.T) {
	history := []domain.Transaction{
		tx(domain.TransactionTypeBuy, 10, 10, 1),
		tx(domain.TransactionTypeBuy, 10, 20, 2),
	}
	leg, ok := AdjustmentLeg(FoldTransactions(history), 30, 18)
	require.True(t, ok)

	pos := FoldTransactions(append(history, tx(leg.Type, leg.Quantity, leg.Price, 3)))

	assert.InDelta(t, 30.0, pos.QuantityFloat(), 1e-9)
	assert.InDelta(t, 18.0, pos.AveragePrice(), 1e-9)
}

func TestFoldTransactions_DecimalExactness(t *testing.T) {
	pos := FoldTransactions([]domain.Transaction{
		tx(domain.TransactionTypeBuy, 0.1, 3, 1),
		tx(domain.TransactionTypeBuy, 0.2, 3, 2),
	})

	assert.Equal(t, 0.3, pos.QuantityFloat())
	assert.Equal(t, 0.9, pos.CostFloat())
}

func TestApplyPosition(t *testing.T) {
	h := holding("h1", "p1", "Tech", 1, 1, 18)
	pos := FoldTransactions([]domain.Transaction{
		tx(domain.TransactionTypeBuy, 10, 10, 1),
		tx(domain.TransactionTypeBuy, 10, 20, 2),
	})

	got := ApplyPosition(h, pos)

	assert.Equal(t, 20.0, got.Quantity)
	assert.Equal(t, 15.0, got.AveragePrice)
	assert.InDelta(t, 300.0, got.TotalCost, 1e-9)
	assert.InDelta(t, 360.0, got.CurrentValue, 1e-9)
	assert.InDelta(t, 20.0, got.GainLossPercent, 1e-9)
}

func TestTransactionTotal(t *testing.T) {
	assert.Equal(t, 1009.99, TransactionTotal(10, 100, 9.99))
	assert.Equal(t, 0.3, TransactionTotal(3, 0.1, 0))
}
