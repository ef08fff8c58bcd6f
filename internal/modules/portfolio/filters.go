package portfolio

import (
	"sort"
	"strings"
	"time"

	"github.com/aristath/folio/internal/domain"
)

// SortOrder is asc or desc
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// PortfolioFilter narrows and orders a portfolio listing.
// Zero values match everything; an empty SortBy keeps insertion order.
type PortfolioFilter struct {
	Broker    string
	Currency  domain.Currency
	IsActive  *bool
	SortBy    string // name | total_value | total_gain_loss | created_at
	SortOrder SortOrder
}

// HoldingFilter narrows and orders a holding listing
type HoldingFilter struct {
	PortfolioID string
	Type        domain.HoldingType
	Sector      string
	Currency    domain.Currency
	SortBy      string // symbol | current_value | gain_loss_percent
	SortOrder   SortOrder
}

// TransactionFilter narrows and orders a transaction listing
type TransactionFilter struct {
	PortfolioID string
	HoldingID   string
	Type        domain.TransactionType
	Symbol      string
	DateFrom    time.Time
	DateTo      time.Time
	SortBy      string // transaction_date | total_amount
	SortOrder   SortOrder
}

var portfolioSortKeys = map[string]func(a, b domain.Portfolio) bool{
	"name":            func(a, b domain.Portfolio) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) },
	"total_value":     func(a, b domain.Portfolio) bool { return a.TotalValue < b.TotalValue },
	"total_gain_loss": func(a, b domain.Portfolio) bool { return a.TotalGainLoss < b.TotalGainLoss },
	"created_at":      func(a, b domain.Portfolio) bool { return a.CreatedAt.Before(b.CreatedAt) },
}

var holdingSortKeys = map[string]func(a, b domain.Holding) bool{
	"symbol":            func(a, b domain.Holding) bool { return a.Symbol < b.Symbol },
	"current_value":     func(a, b domain.Holding) bool { return a.CurrentValue < b.CurrentValue },
	"gain_loss_percent": func(a, b domain.Holding) bool { return a.GainLossPercent < b.GainLossPercent },
}

var transactionSortKeys = map[string]func(a, b domain.Transaction) bool{
	"transaction_date": func(a, b domain.Transaction) bool { return a.TransactionDate.Before(b.TransactionDate) },
	"total_amount":     func(a, b domain.Transaction) bool { return a.TotalAmount < b.TotalAmount },
}

// Validate rejects unknown sort keys and orders
func (f PortfolioFilter) Validate() error {
	return validateSort(f.SortBy, f.SortOrder, keysOf(portfolioSortKeys))
}

// Validate rejects unknown sort keys and orders
func (f HoldingFilter) Validate() error {
	return validateSort(f.SortBy, f.SortOrder, keysOf(holdingSortKeys))
}

// Validate rejects unknown sort keys, orders and inverted date ranges
func (f TransactionFilter) Validate() error {
	if !f.DateFrom.IsZero() && !f.DateTo.IsZero() && f.DateTo.Before(f.DateFrom) {
		return domain.InvalidField("date_to", "gtefield", "must not be before date_from")
	}
	return validateSort(f.SortBy, f.SortOrder, keysOf(transactionSortKeys))
}

func (f PortfolioFilter) match(p domain.Portfolio) bool {
	if f.Broker != "" && !strings.EqualFold(p.Broker, f.Broker) {
		return false
	}
	if f.Currency != "" && p.Currency != f.Currency {
		return false
	}
	if f.IsActive != nil && p.IsActive != *f.IsActive {
		return false
	}
	return true
}

func (f HoldingFilter) match(h domain.Holding) bool {
	if f.PortfolioID != "" && h.PortfolioID != f.PortfolioID {
		return false
	}
	if f.Type != "" && h.Type != f.Type {
		return false
	}
	if f.Sector != "" && !strings.EqualFold(h.Sector, f.Sector) {
		return false
	}
	if f.Currency != "" && h.Currency != f.Currency {
		return false
	}
	return true
}

func (f TransactionFilter) match(t domain.Transaction) bool {
	if f.PortfolioID != "" && t.PortfolioID != f.PortfolioID {
		return false
	}
	if f.HoldingID != "" && t.HoldingID != f.HoldingID {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Symbol != "" && t.Symbol != normalizeSymbol(f.Symbol) {
		return false
	}
	if !f.DateFrom.IsZero() && t.TransactionDate.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && t.TransactionDate.After(f.DateTo) {
		return false
	}
	return true
}

func (f PortfolioFilter) sort(items []domain.Portfolio) {
	sortBy(items, portfolioSortKeys[f.SortBy], f.SortOrder)
}

func (f HoldingFilter) sort(items []domain.Holding) {
	sortBy(items, holdingSortKeys[f.SortBy], f.SortOrder)
}

func (f TransactionFilter) sort(items []domain.Transaction) {
	sortBy(items, transactionSortKeys[f.SortBy], f.SortOrder)
}

// sortBy stable-sorts items; a nil less keeps the current order
func sortBy[T any](items []T, less func(a, b T) bool, order SortOrder) {
	if less == nil {
		return
	}
	if order == SortDesc {
		sort.SliceStable(items, func(i, j int) bool { return less(items[j], items[i]) })
		return
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

func validateSort(sortBy string, order SortOrder, allowed []string) error {
	if order != "" && order != SortAsc && order != SortDesc {
		return domain.InvalidField("sort_order", "oneof", "must be one of: asc desc")
	}
	if sortBy == "" {
		return nil
	}
	for _, key := range allowed {
		if key == sortBy {
			return nil
		}
	}
	return domain.InvalidField("sort_by", "oneof", "must be one of: "+strings.Join(allowed, " "))
}

func keysOf[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
