package domain

import "time"

// CreatePortfolioRequest is the input for creating a portfolio
type CreatePortfolioRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Broker      string   `json:"broker" validate:"required,max=100"`
	Currency    Currency `json:"currency" validate:"required,oneof=USD CAD"`
}

// UpdatePortfolioRequest changes only the fields that are set
type UpdatePortfolioRequest struct {
	Name        *string   `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=500"`
	Broker      *string   `json:"broker,omitempty" validate:"omitempty,min=1,max=100"`
	Currency    *Currency `json:"currency,omitempty" validate:"omitempty,oneof=USD CAD"`
	IsActive    *bool     `json:"is_active,omitempty"`
}

// CreateHoldingRequest is the input for opening a holding.
// A zero PurchaseDate means now.
type CreateHoldingRequest struct {
	PurchaseDate time.Time   `json:"purchase_date"`
	PortfolioID  string      `json:"portfolio_id" validate:"required"`
	Symbol       string      `json:"symbol" validate:"required,max=20"`
	CompanyName  string      `json:"company_name" validate:"required,max=200"`
	Type         HoldingType `json:"type" validate:"required,oneof=stock etf"`
	Market       string      `json:"market" validate:"max=50"`
	Currency     Currency    `json:"currency" validate:"required,oneof=USD CAD"`
	Sector       string      `json:"sector" validate:"max=100"`
	Quantity     float64     `json:"quantity" validate:"gt=0"`
	AveragePrice float64     `json:"average_price" validate:"gt=0"`
	CurrentPrice float64     `json:"current_price" validate:"gt=0"`
}

// UpdateHoldingRequest changes only the fields that are set
type UpdateHoldingRequest struct {
	CompanyName  *string  `json:"company_name,omitempty" validate:"omitempty,min=1,max=200"`
	Market       *string  `json:"market,omitempty" validate:"omitempty,max=50"`
	Sector       *string  `json:"sector,omitempty" validate:"omitempty,max=100"`
	Quantity     *float64 `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	AveragePrice *float64 `json:"average_price,omitempty" validate:"omitempty,gt=0"`
	CurrentPrice *float64 `json:"current_price,omitempty" validate:"omitempty,gt=0"`
}

// CreateTransactionRequest is the input for recording a transaction.
// A zero TransactionDate means now.
type CreateTransactionRequest struct {
	TransactionDate time.Time       `json:"transaction_date"`
	PortfolioID     string          `json:"portfolio_id" validate:"required"`
	HoldingID       string          `json:"holding_id,omitempty"`
	Type            TransactionType `json:"type" validate:"required,oneof=buy sell dividend"`
	Symbol          string          `json:"symbol" validate:"required,max=20"`
	Currency        Currency        `json:"currency" validate:"required,oneof=USD CAD"`
	Notes           string          `json:"notes,omitempty" validate:"max=500"`
	Quantity        float64         `json:"quantity" validate:"gt=0"`
	Price           float64         `json:"price" validate:"gt=0"`
	Fees            float64         `json:"fees" validate:"gte=0"`
}

// CreateWatchlistRequest is the input for following a symbol
type CreateWatchlistRequest struct {
	Symbol        string  `json:"symbol" validate:"required,max=20"`
	CompanyName   string  `json:"company_name" validate:"max=200"`
	CurrentPrice  float64 `json:"current_price" validate:"gte=0"`
	ChangePercent float64 `json:"change_percent"`
}
