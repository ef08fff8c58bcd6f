package aggregation

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/aristath/folio/internal/domain"
)

// Position is the quantity and cost basis left after folding a transaction history
type Position struct {
	Quantity decimal.Decimal
	Cost     decimal.Decimal
}

// QuantityFloat returns the quantity as a float64
func (p Position) QuantityFloat() float64 {
	return p.Quantity.InexactFloat64()
}

// CostFloat returns the cost basis as a float64
func (p Position) CostFloat() float64 {
	return p.Cost.InexactFloat64()
}

// AveragePrice returns cost/quantity, or 0 for an empty position
func (p Position) AveragePrice() float64 {
	if !p.Quantity.IsPositive() {
		return 0
	}
	return p.Cost.Div(p.Quantity).InexactFloat64()
}

// Open reports whether any quantity remains
func (p Position) Open() bool {
	return p.Quantity.IsPositive()
}

// FoldTransactions replays txs in transaction-date order (insertion order for
// equal dates).
//
//   - buy adds quantity and quantity × price to cost. Fees are not capitalised.
//   - sell removes quantity. The remaining cost shrinks in proportion, so the
//     average price of the surviving shares is unchanged. A sell of more than
//     is held closes the position; it never goes negative.
//   - dividend leaves the position untouched.
func FoldTransactions(txs []domain.Transaction) Position {
	pos, _, _ := replay(txs)
	return pos
}

// FirstOversell returns the first sell, in fold order, that sells more than
// the position held at that point
func FirstOversell(txs []domain.Transaction) (domain.Transaction, bool) {
	_, oversell, found := replay(txs)
	return oversell, found
}

func replay(txs []domain.Transaction) (Position, domain.Transaction, bool) {
	ordered := make([]domain.Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TransactionDate.Before(ordered[j].TransactionDate)
	})

	var (
		oversell domain.Transaction
		found    bool
	)
	qty := decimal.Zero
	cost := decimal.Zero
	for _, tx := range ordered {
		q := decimal.NewFromFloat(tx.Quantity)
		switch tx.Type {
		case domain.TransactionTypeBuy:
			qty = qty.Add(q)
			cost = cost.Add(q.Mul(decimal.NewFromFloat(tx.Price)))
		case domain.TransactionTypeSell:
			if q.GreaterThan(qty) && !found {
				oversell, found = tx, true
			}
			remaining := qty.Sub(q)
			if !remaining.IsPositive() {
				qty, cost = decimal.Zero, decimal.Zero
				continue
			}
			cost = cost.Mul(remaining).Div(qty)
			qty = remaining
		}
	}

	return Position{Quantity: qty, Cost: cost}, oversell, found
}

// Leg is a single buy or sell that moves a position
type Leg struct {
	Type     domain.TransactionType
	Quantity float64
	Price    float64
}

// AdjustmentLeg returns the one transaction that turns from into a position
// of quantity shares at averagePrice.
//
//   - more shares: a buy priced so the new average comes out at averagePrice
//   - fewer shares: a sell, possible only while the average is unchanged
//   - same position: a zero Leg
//
// ok is false when no single buy or sell reaches the target.
func AdjustmentLeg(from Position, quantity, averagePrice float64) (Leg, bool) {
	target := decimal.NewFromFloat(quantity)
	avg := decimal.NewFromFloat(averagePrice)
	if !target.IsPositive() || !avg.IsPositive() {
		return Leg{}, false
	}

	sameAverage := from.Open() && math.Abs(from.AveragePrice()-averagePrice) <= 1e-9*math.Max(1, averagePrice)
	switch target.Cmp(from.Quantity) {
	case 0:
		return Leg{}, sameAverage
	case 1:
		added := target.Sub(from.Quantity)
		price := target.Mul(avg).Sub(from.Cost).Div(added)
		if !price.IsPositive() {
			return Leg{}, false
		}
		return Leg{
			Type:     domain.TransactionTypeBuy,
			Quantity: added.InexactFloat64(),
			Price:    price.InexactFloat64(),
		}, true
	default:
		if !sameAverage {
			return Leg{}, false
		}
		return Leg{
			Type:     domain.TransactionTypeSell,
			Quantity: from.Quantity.Sub(target).InexactFloat64(),
			Price:    averagePrice,
		}, true
	}
}

// TransactionTotal returns quantity × price + fees
func TransactionTotal(quantity, price, fees float64) float64 {
	return decimal.NewFromFloat(quantity).
		Mul(decimal.NewFromFloat(price)).
		Add(decimal.NewFromFloat(fees)).
		InexactFloat64()
}
