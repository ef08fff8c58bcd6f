// Package aggregation computes derived portfolio figures from record snapshots.
//
// Every function here is pure: identical inputs give identical outputs, and
// nothing is cached between calls. Derived values are always recomputed from
// source fields, never patched incrementally.
package aggregation

import (
	"math"

	"github.com/aristath/folio/internal/domain"
)

// Percent returns part/whole*100, or 0 when whole is not positive or the
// result is not finite.
func Percent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	p := part / whole * 100
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	return p
}

// HoldingDerived holds the fields of a Holding that are computed, not entered
type HoldingDerived struct {
	TotalCost       float64
	CurrentValue    float64
	GainLoss        float64
	GainLossPercent float64
}

// ComputeHoldingDerived applies
//
//	totalCost    = quantity × averagePrice
//	currentValue = quantity × currentPrice
//	gainLoss     = currentValue − totalCost
//	gainLoss%    = gainLoss / totalCost × 100 (0 when totalCost is 0)
func ComputeHoldingDerived(h domain.Holding) HoldingDerived {
	totalCost := h.Quantity * h.AveragePrice
	currentValue := h.Quantity * h.CurrentPrice
	gainLoss := currentValue - totalCost

	return HoldingDerived{
		TotalCost:       totalCost,
		CurrentValue:    currentValue,
		GainLoss:        gainLoss,
		GainLossPercent: Percent(gainLoss, totalCost),
	}
}

// WithDerived returns a copy of h with its derived fields recomputed
func WithDerived(h domain.Holding) domain.Holding {
	d := ComputeHoldingDerived(h)
	h.TotalCost = d.TotalCost
	h.CurrentValue = d.CurrentValue
	h.GainLoss = d.GainLoss
	h.GainLossPercent = d.GainLossPercent
	return h
}

// ApplyPosition returns a copy of h carrying pos's quantity and average price,
// with derived fields recomputed.
func ApplyPosition(h domain.Holding, pos Position) domain.Holding {
	h.Quantity = pos.QuantityFloat()
	h.AveragePrice = pos.AveragePrice()
	return WithDerived(h)
}
