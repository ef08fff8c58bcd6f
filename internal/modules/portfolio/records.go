package portfolio

import (
	"strings"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/aggregation"
)

// PrepareCreatePortfolio trims a create-portfolio request and validates it
func PrepareCreatePortfolio(req domain.CreatePortfolioRequest) (domain.CreatePortfolioRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.Broker = strings.TrimSpace(req.Broker)
	return req, ValidateRequest(req)
}

// PrepareUpdatePortfolio trims the set fields of a portfolio update and validates it
func PrepareUpdatePortfolio(req domain.UpdatePortfolioRequest) (domain.UpdatePortfolioRequest, error) {
	req.Name = trimPtr(req.Name)
	req.Description = trimPtr(req.Description)
	req.Broker = trimPtr(req.Broker)
	return req, ValidateRequest(req)
}

// PrepareCreateHolding normalises the symbol, trims the text fields and validates the request
func PrepareCreateHolding(req domain.CreateHoldingRequest) (domain.CreateHoldingRequest, error) {
	req.Symbol = normalizeSymbol(req.Symbol)
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	req.Market = strings.TrimSpace(req.Market)
	req.Sector = strings.TrimSpace(req.Sector)
	return req, ValidateRequest(req)
}

// PrepareUpdateHolding trims the set fields of a holding update and validates it
func PrepareUpdateHolding(req domain.UpdateHoldingRequest) (domain.UpdateHoldingRequest, error) {
	req.CompanyName = trimPtr(req.CompanyName)
	req.Market = trimPtr(req.Market)
	req.Sector = trimPtr(req.Sector)
	return req, ValidateRequest(req)
}

// PrepareCreateTransaction normalises the symbol, trims the notes and validates the request
func PrepareCreateTransaction(req domain.CreateTransactionRequest) (domain.CreateTransactionRequest, error) {
	req.Symbol = normalizeSymbol(req.Symbol)
	req.Notes = strings.TrimSpace(req.Notes)
	return req, ValidateRequest(req)
}

// PrepareCreateWatchlistItem normalises the symbol and validates the request
func PrepareCreateWatchlistItem(req domain.CreateWatchlistRequest) (domain.CreateWatchlistRequest, error) {
	req.Symbol = normalizeSymbol(req.Symbol)
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	return req, ValidateRequest(req)
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// NewPortfolio builds an active, empty portfolio from a prepared request.
// The id is left for the caller to assign.
func NewPortfolio(req domain.CreatePortfolioRequest, userID string, now time.Time) domain.Portfolio {
	return domain.Portfolio{
		Name:        req.Name,
		Description: req.Description,
		UserID:      userID,
		Broker:      req.Broker,
		Currency:    req.Currency,
		CreatedAt:   now,
		UpdatedAt:   now,
		IsActive:    true,
	}
}

// ApplyPortfolioUpdate returns p with the set fields of req applied
func ApplyPortfolioUpdate(p domain.Portfolio, req domain.UpdatePortfolioRequest, now time.Time) domain.Portfolio {
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Broker != nil {
		p.Broker = *req.Broker
	}
	if req.Currency != nil {
		p.Currency = *req.Currency
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	p.UpdatedAt = now
	return p
}

// NewHolding builds a holding from a prepared request with derived fields computed
func NewHolding(req domain.CreateHoldingRequest, now time.Time) domain.Holding {
	purchased := req.PurchaseDate
	if purchased.IsZero() {
		purchased = now
	}
	return aggregation.WithDerived(domain.Holding{
		PortfolioID:  req.PortfolioID,
		Symbol:       req.Symbol,
		CompanyName:  req.CompanyName,
		Type:         req.Type,
		Market:       req.Market,
		Currency:     req.Currency,
		Sector:       req.Sector,
		Quantity:     req.Quantity,
		AveragePrice: req.AveragePrice,
		CurrentPrice: req.CurrentPrice,
		PurchaseDate: purchased,
		LastUpdated:  now,
	})
}

// ApplyHoldingUpdate returns h with the set fields of req applied
func ApplyHoldingUpdate(h domain.Holding, req domain.UpdateHoldingRequest, now time.Time) domain.Holding {
	if req.CompanyName != nil {
		h.CompanyName = *req.CompanyName
	}
	if req.Market != nil {
		h.Market = *req.Market
	}
	if req.Sector != nil {
		h.Sector = *req.Sector
	}
	if req.Quantity != nil {
		h.Quantity = *req.Quantity
	}
	if req.AveragePrice != nil {
		h.AveragePrice = *req.AveragePrice
	}
	if req.CurrentPrice != nil {
		h.CurrentPrice = *req.CurrentPrice
	}
	h.LastUpdated = now
	return aggregation.WithDerived(h)
}

// NewTransaction builds a transaction from a prepared request
func NewTransaction(req domain.CreateTransactionRequest, now time.Time) domain.Transaction {
	date := req.TransactionDate
	if date.IsZero() {
		date = now
	}
	return domain.Transaction{
		PortfolioID:     req.PortfolioID,
		HoldingID:       req.HoldingID,
		Type:            req.Type,
		Symbol:          req.Symbol,
		Currency:        req.Currency,
		Notes:           req.Notes,
		Quantity:        req.Quantity,
		Price:           req.Price,
		Fees:            req.Fees,
		TotalAmount:     aggregation.TransactionTotal(req.Quantity, req.Price, req.Fees),
		TransactionDate: date,
	}
}

// OpeningTransaction is the buy that establishes h's initial position.
// Recording it keeps later reconciliation consistent with the opening quantity.
func OpeningTransaction(h domain.Holding) domain.Transaction {
	return domain.Transaction{
		PortfolioID:     h.PortfolioID,
		HoldingID:       h.ID,
		Type:            domain.TransactionTypeBuy,
		Symbol:          h.Symbol,
		Currency:        h.Currency,
		Notes:           "opening position",
		Quantity:        h.Quantity,
		Price:           h.AveragePrice,
		TotalAmount:     aggregation.TransactionTotal(h.Quantity, h.AveragePrice, 0),
		TransactionDate: h.PurchaseDate,
	}
}

// NewWatchlistItem builds a watchlist item from a prepared request
func NewWatchlistItem(req domain.CreateWatchlistRequest, userID string, now time.Time) domain.WatchlistItem {
	return domain.WatchlistItem{
		UserID:        userID,
		Symbol:        req.Symbol,
		CompanyName:   req.CompanyName,
		CurrentPrice:  req.CurrentPrice,
		ChangePercent: req.ChangePercent,
		AddedDate:     now,
	}
}
