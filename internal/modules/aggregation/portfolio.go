package aggregation

import (
	"gonum.org/v1/gonum/floats"

	"github.com/aristath/folio/internal/domain"
)

// PortfolioTotals holds the derived fields of a Portfolio
type PortfolioTotals struct {
	TotalValue           float64
	TotalCost            float64
	TotalGainLoss        float64
	TotalGainLossPercent float64
}

// ComputePortfolioTotals sums the derived fields of holdings.
// Each holding's derived fields are recomputed first, so stale stored values
// never leak into the totals.
func ComputePortfolioTotals(holdings []domain.Holding) PortfolioTotals {
	values := make([]float64, len(holdings))
	costs := make([]float64, len(holdings))
	for i, h := range holdings {
		d := ComputeHoldingDerived(h)
		values[i] = d.CurrentValue
		costs[i] = d.TotalCost
	}

	totalValue := floats.Sum(values)
	totalCost := floats.Sum(costs)
	gainLoss := totalValue - totalCost

	return PortfolioTotals{
		TotalValue:           totalValue,
		TotalCost:            totalCost,
		TotalGainLoss:        gainLoss,
		TotalGainLossPercent: Percent(gainLoss, totalCost),
	}
}

// ApplyTotals returns a copy of p carrying t
func ApplyTotals(p domain.Portfolio, t PortfolioTotals) domain.Portfolio {
	p.TotalValue = t.TotalValue
	p.TotalCost = t.TotalCost
	p.TotalGainLoss = t.TotalGainLoss
	p.TotalGainLossPercent = t.TotalGainLossPercent
	return p
}

// Matches reports whether p already carries exactly t
func (t PortfolioTotals) Matches(p domain.Portfolio) bool {
	return p.TotalValue == t.TotalValue &&
		p.TotalCost == t.TotalCost &&
		p.TotalGainLoss == t.TotalGainLoss &&
		p.TotalGainLossPercent == t.TotalGainLossPercent
}
