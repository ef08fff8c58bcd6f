// Package domain provides core domain models and types.
package domain

import "time"

// Currency represents a currency code
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyCAD Currency = "CAD"
)

// Valid reports whether c is a supported currency
func (c Currency) Valid() bool {
	return c == CurrencyUSD || c == CurrencyCAD
}

// HoldingType represents the kind of security held
type HoldingType string

const (
	HoldingTypeStock HoldingType = "stock"
	HoldingTypeETF   HoldingType = "etf"
)

// TransactionType represents the kind of transaction
type TransactionType string

const (
	TransactionTypeBuy      TransactionType = "buy"
	TransactionTypeSell     TransactionType = "sell"
	TransactionTypeDividend TransactionType = "dividend"
)

// Portfolio represents a user's portfolio.
// The Total* fields are derived from the portfolio's holdings and are only
// written by the aggregation engine.
type Portfolio struct {
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Description          string    `json:"description"`
	UserID               string    `json:"user_id"`
	Broker               string    `json:"broker"`
	Currency             Currency  `json:"currency"`
	TotalValue           float64   `json:"total_value"`
	TotalCost            float64   `json:"total_cost"`
	TotalGainLoss        float64   `json:"total_gain_loss"`
	TotalGainLossPercent float64   `json:"total_gain_loss_percent"`
	IsActive             bool      `json:"is_active"`
}

// Holding represents a position in one security within one portfolio
type Holding struct {
	PurchaseDate    time.Time   `json:"purchase_date"`
	LastUpdated     time.Time   `json:"last_updated"`
	ID              string      `json:"id"`
	PortfolioID     string      `json:"portfolio_id"`
	Symbol          string      `json:"symbol"`
	CompanyName     string      `json:"company_name"`
	Type            HoldingType `json:"type"`
	Market          string      `json:"market"`
	Currency        Currency    `json:"currency"`
	Sector          string      `json:"sector"`
	Quantity        float64     `json:"quantity"`
	AveragePrice    float64     `json:"average_price"`
	CurrentPrice    float64     `json:"current_price"`
	TotalCost       float64     `json:"total_cost"`
	CurrentValue    float64     `json:"current_value"`
	GainLoss        float64     `json:"gain_loss"`
	GainLossPercent float64     `json:"gain_loss_percent"`
}

// Transaction is an entry in the append-only transaction log.
// HoldingID and PortfolioID are lookup references; the transaction outlives both.
type Transaction struct {
	TransactionDate time.Time       `json:"transaction_date"`
	ID              string          `json:"id"`
	PortfolioID     string          `json:"portfolio_id"`
	HoldingID       string          `json:"holding_id,omitempty"`
	Type            TransactionType `json:"type"`
	Symbol          string          `json:"symbol"`
	Currency        Currency        `json:"currency"`
	Notes           string          `json:"notes,omitempty"`
	Quantity        float64         `json:"quantity"`
	Price           float64         `json:"price"`
	TotalAmount     float64         `json:"total_amount"`
	Fees            float64         `json:"fees"`
}

// WatchlistItem is a symbol a user follows independently of any portfolio
type WatchlistItem struct {
	AddedDate     time.Time `json:"added_date"`
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Symbol        string    `json:"symbol"`
	CompanyName   string    `json:"company_name"`
	CurrentPrice  float64   `json:"current_price"`
	ChangePercent float64   `json:"change_percent"`
}

// SectorAllocation is the share of total value held in one sector
type SectorAllocation struct {
	Sector     string  `json:"sector"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
	Count      int     `json:"count"`
}

// CurrencyAllocation is the share of total value held in one portfolio currency
type CurrencyAllocation struct {
	Currency   Currency `json:"currency"`
	Value      float64  `json:"value"`
	Percentage float64  `json:"percentage"`
}

// PortfolioSummary aggregates every portfolio and holding of one user.
// It is never stored as state; it is recomputed from the current records.
type PortfolioSummary struct {
	TopGainer            *Holding             `json:"top_gainer,omitempty"`
	TopLoser             *Holding             `json:"top_loser,omitempty"`
	SectorAllocation     []SectorAllocation   `json:"sector_allocation"`
	CurrencyAllocation   []CurrencyAllocation `json:"currency_allocation"`
	TotalValue           float64              `json:"total_value"`
	TotalCost            float64              `json:"total_cost"`
	TotalGainLoss        float64              `json:"total_gain_loss"`
	TotalGainLossPercent float64              `json:"total_gain_loss_percent"`
	PortfolioCount       int                  `json:"portfolio_count"`
	HoldingCount         int                  `json:"holding_count"`
}

// EntityID implementations let the record store index any entity by id

func (p Portfolio) EntityID() string     { return p.ID }
func (h Holding) EntityID() string       { return h.ID }
func (t Transaction) EntityID() string   { return t.ID }
func (w WatchlistItem) EntityID() string { return w.ID }
