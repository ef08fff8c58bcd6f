package aggregation

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/aristath/folio/internal/domain"
)

// ComputeSummary aggregates portfolios and their holdings.
//
// Holdings whose portfolio is not in portfolios are ignored. Portfolio totals
// are recomputed from holdings rather than read from the stored fields.
// TopGainer and TopLoser are nil without holdings; ties keep the first
// holding in iteration order. Allocations list groups in first-seen order.
func ComputeSummary(portfolios []domain.Portfolio, holdings []domain.Holding) domain.PortfolioSummary {
	byPortfolio := make(map[string][]domain.Holding, len(portfolios))
	for _, p := range portfolios {
		byPortfolio[p.ID] = nil
	}

	owned := make([]domain.Holding, 0, len(holdings))
	for _, h := range holdings {
		if _, ok := byPortfolio[h.PortfolioID]; !ok {
			continue
		}
		h = WithDerived(h)
		byPortfolio[h.PortfolioID] = append(byPortfolio[h.PortfolioID], h)
		owned = append(owned, h)
	}

	values := make([]float64, len(portfolios))
	costs := make([]float64, len(portfolios))
	currencies := newGroups[domain.Currency]()
	for i, p := range portfolios {
		t := ComputePortfolioTotals(byPortfolio[p.ID])
		values[i] = t.TotalValue
		costs[i] = t.TotalCost
		currencies.add(p.Currency, t.TotalValue)
	}

	totalValue := floats.Sum(values)
	totalCost := floats.Sum(costs)
	gainLoss := totalValue - totalCost

	currencyAllocation := make([]domain.CurrencyAllocation, 0, len(currencies.order))
	for _, c := range currencies.order {
		g := currencies.byKey[c]
		currencyAllocation = append(currencyAllocation, domain.CurrencyAllocation{
			Currency:   c,
			Value:      g.value,
			Percentage: Percent(g.value, totalValue),
		})
	}

	summary := domain.PortfolioSummary{
		TotalValue:           totalValue,
		TotalCost:            totalCost,
		TotalGainLoss:        gainLoss,
		TotalGainLossPercent: Percent(gainLoss, totalCost),
		PortfolioCount:       len(portfolios),
		HoldingCount:         len(owned),
		SectorAllocation:     sectorAllocation(owned, totalValue),
		CurrencyAllocation:   currencyAllocation,
	}

	if len(owned) > 0 {
		gainer, loser := owned[0], owned[0]
		for _, h := range owned[1:] {
			if h.GainLossPercent > gainer.GainLossPercent {
				gainer = h
			}
			if h.GainLossPercent < loser.GainLossPercent {
				loser = h
			}
		}
		summary.TopGainer = &gainer
		summary.TopLoser = &loser
	}

	return summary
}

// SectorAllocationByValue groups holdings by sector, largest value first.
// Percentages are relative to the holdings' combined current value.
func SectorAllocationByValue(holdings []domain.Holding) []domain.SectorAllocation {
	derived := make([]domain.Holding, len(holdings))
	values := make([]float64, len(holdings))
	for i, h := range holdings {
		derived[i] = WithDerived(h)
		values[i] = derived[i].CurrentValue
	}

	out := sectorAllocation(derived, floats.Sum(values))
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value > out[j].Value
	})
	return out
}

// TopHoldings returns up to n holdings with the highest current value
func TopHoldings(holdings []domain.Holding, n int) []domain.Holding {
	out := make([]domain.Holding, len(holdings))
	for i, h := range holdings {
		out[i] = WithDerived(h)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CurrentValue > out[j].CurrentValue
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// sectorAllocation expects holdings with derived fields already computed
func sectorAllocation(holdings []domain.Holding, totalValue float64) []domain.SectorAllocation {
	sectors := newGroups[string]()
	for _, h := range holdings {
		sectors.add(h.Sector, h.CurrentValue)
	}

	out := make([]domain.SectorAllocation, 0, len(sectors.order))
	for _, s := range sectors.order {
		g := sectors.byKey[s]
		out = append(out, domain.SectorAllocation{
			Sector:     s,
			Value:      g.value,
			Percentage: Percent(g.value, totalValue),
			Count:      g.count,
		})
	}
	return out
}

type group struct {
	value float64
	count int
}

// groups accumulates values per key, remembering first-seen order
type groups[K comparable] struct {
	order []K
	byKey map[K]*group
}

func newGroups[K comparable]() *groups[K] {
	return &groups[K]{byKey: make(map[K]*group)}
}

func (g *groups[K]) add(key K, value float64) {
	entry, ok := g.byKey[key]
	if !ok {
		entry = &group{}
		g.byKey[key] = entry
		g.order = append(g.order, key)
	}
	entry.value += value
	entry.count++
}
