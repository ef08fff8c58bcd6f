// Package persistence provides the SQLite-backed gateway for portfolio records.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/domain"
)

// Gateway stores portfolios, holdings, transactions and watchlist items in
// SQLite. It implements domain.Gateway: ids and timestamps missing from a
// record are assigned here and the stored record is returned.
type Gateway struct {
	db    *sql.DB
	log   zerolog.Logger
	now   func() time.Time
	newID func() string
}

// NewGateway creates a gateway over db, which must carry the folio schema
func NewGateway(db *sql.DB, log zerolog.Logger) *Gateway {
	return &Gateway{
		db:    db,
		log:   log.With().Str("repo", "gateway").Logger(),
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
}

var _ domain.Gateway = (*Gateway)(nil)

const (
	portfolioColumns = `id, user_id, name, description, broker, currency,
		total_value, total_cost, total_gain_loss, total_gain_loss_percent,
		is_active, created_at, updated_at`

	holdingColumns = `id, portfolio_id, symbol, company_name, type, market, currency, sector,
		quantity, average_price, current_price, total_cost, current_value,
		gain_loss, gain_loss_percent, purchase_date, last_updated`

	transactionColumns = `id, portfolio_id, holding_id, type, symbol, currency,
		quantity, price, fees, total_amount, transaction_date, notes`

	watchlistColumns = `id, user_id, symbol, company_name, current_price, change_percent, added_date`
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// FetchPortfolios returns the portfolios of userID in creation order
func (g *Gateway) FetchPortfolios(ctx context.Context, userID string) ([]domain.Portfolio, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT `+portfolioColumns+` FROM portfolios WHERE user_id = ? ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []domain.Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}
	return portfolios, nil
}

// FetchPortfolio returns one portfolio
func (g *Gateway) FetchPortfolio(ctx context.Context, id string) (*domain.Portfolio, error) {
	row := g.db.QueryRowContext(ctx, `SELECT `+portfolioColumns+` FROM portfolios WHERE id = ?`, id)
	p, err := scanPortfolio(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("portfolio", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio %s: %w", id, err)
	}
	return &p, nil
}

// FetchHoldings returns the holdings of one portfolio in insertion order
func (g *Gateway) FetchHoldings(ctx context.Context, portfolioID string) ([]domain.Holding, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT `+holdingColumns+` FROM holdings WHERE portfolio_id = ? ORDER BY rowid`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	return holdings, nil
}

// FetchTransactions returns every transaction recorded against a portfolio,
// oldest first
func (g *Gateway) FetchTransactions(ctx context.Context, portfolioID string) ([]domain.Transaction, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE portfolio_id = ?
		ORDER BY transaction_date, rowid`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

// FetchWatchlist returns the watchlist of userID in the order items were added
func (g *Gateway) FetchWatchlist(ctx context.Context, userID string) ([]domain.WatchlistItem, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT `+watchlistColumns+` FROM watchlist WHERE user_id = ? ORDER BY added_date, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	var items []domain.WatchlistItem
	for rows.Next() {
		w, err := scanWatchlistItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watchlist item: %w", err)
		}
		items = append(items, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchlist: %w", err)
	}
	return items, nil
}

// CreatePortfolio inserts p
func (g *Gateway) CreatePortfolio(ctx context.Context, p domain.Portfolio) (*domain.Portfolio, error) {
	if p.ID == "" {
		p.ID = g.newID()
	}
	now := g.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	_, err := g.db.ExecContext(ctx,
		`INSERT INTO portfolios (`+portfolioColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, p.Description, p.Broker, string(p.Currency),
		p.TotalValue, p.TotalCost, p.TotalGainLoss, p.TotalGainLossPercent,
		boolToInt(p.IsActive), formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Conflict("portfolio", fmt.Sprintf("a portfolio named %q already exists", p.Name))
		}
		return nil, fmt.Errorf("failed to insert portfolio: %w", err)
	}

	g.log.Debug().Str("portfolio_id", p.ID).Msg("Portfolio created")
	return &p, nil
}

// UpdatePortfolio overwrites the stored portfolio with p
func (g *Gateway) UpdatePortfolio(ctx context.Context, p domain.Portfolio) (*domain.Portfolio, error) {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = g.now()
	}

	result, err := g.db.ExecContext(ctx,
		`UPDATE portfolios SET name = ?, description = ?, broker = ?, currency = ?,
			total_value = ?, total_cost = ?, total_gain_loss = ?, total_gain_loss_percent = ?,
			is_active = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Description, p.Broker, string(p.Currency),
		p.TotalValue, p.TotalCost, p.TotalGainLoss, p.TotalGainLossPercent,
		boolToInt(p.IsActive), formatTime(p.UpdatedAt), p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Conflict("portfolio", fmt.Sprintf("a portfolio named %q already exists", p.Name))
		}
		return nil, fmt.Errorf("failed to update portfolio: %w", err)
	}
	if err := expectAffected(result, "portfolio", p.ID); err != nil {
		return nil, err
	}

	return g.FetchPortfolio(ctx, p.ID)
}

// DeletePortfolio deletes a portfolio; its holdings go with it
func (g *Gateway) DeletePortfolio(ctx context.Context, id string) error {
	result, err := g.db.ExecContext(ctx, `DELETE FROM portfolios WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	return expectAffected(result, "portfolio", id)
}

// CreateHolding inserts h
func (g *Gateway) CreateHolding(ctx context.Context, h domain.Holding) (*domain.Holding, error) {
	if h.ID == "" {
		h.ID = g.newID()
	}
	now := g.now()
	if h.PurchaseDate.IsZero() {
		h.PurchaseDate = now
	}
	if h.LastUpdated.IsZero() {
		h.LastUpdated = now
	}

	_, err := g.db.ExecContext(ctx,
		`INSERT INTO holdings (`+holdingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.PortfolioID, h.Symbol, h.CompanyName, string(h.Type), h.Market, string(h.Currency), h.Sector,
		h.Quantity, h.AveragePrice, h.CurrentPrice, h.TotalCost, h.CurrentValue,
		h.GainLoss, h.GainLossPercent, formatTime(h.PurchaseDate), formatTime(h.LastUpdated))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, domain.NotFound("portfolio", h.PortfolioID)
		}
		if isUniqueViolation(err) {
			return nil, domain.Conflict("holding", "holding "+h.ID+" already exists")
		}
		return nil, fmt.Errorf("failed to insert holding: %w", err)
	}
	return &h, nil
}

// UpdateHolding overwrites the stored holding with h
func (g *Gateway) UpdateHolding(ctx context.Context, h domain.Holding) (*domain.Holding, error) {
	if h.LastUpdated.IsZero() {
		h.LastUpdated = g.now()
	}

	result, err := g.db.ExecContext(ctx,
		`UPDATE holdings SET portfolio_id = ?, symbol = ?, company_name = ?, type = ?, market = ?,
			currency = ?, sector = ?, quantity = ?, average_price = ?, current_price = ?,
			total_cost = ?, current_value = ?, gain_loss = ?, gain_loss_percent = ?,
			purchase_date = ?, last_updated = ?
		WHERE id = ?`,
		h.PortfolioID, h.Symbol, h.CompanyName, string(h.Type), h.Market,
		string(h.Currency), h.Sector, h.Quantity, h.AveragePrice, h.CurrentPrice,
		h.TotalCost, h.CurrentValue, h.GainLoss, h.GainLossPercent,
		formatTime(h.PurchaseDate), formatTime(h.LastUpdated), h.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, domain.NotFound("portfolio", h.PortfolioID)
		}
		return nil, fmt.Errorf("failed to update holding: %w", err)
	}
	if err := expectAffected(result, "holding", h.ID); err != nil {
		return nil, err
	}
	return &h, nil
}

// DeleteHolding deletes a holding. Its transactions are kept.
func (g *Gateway) DeleteHolding(ctx context.Context, id string) error {
	result, err := g.db.ExecContext(ctx, `DELETE FROM holdings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	return expectAffected(result, "holding", id)
}

// CreateTransaction appends t to the transaction log
func (g *Gateway) CreateTransaction(ctx context.Context, t domain.Transaction) (*domain.Transaction, error) {
	if t.ID == "" {
		t.ID = g.newID()
	}
	if t.TransactionDate.IsZero() {
		t.TransactionDate = g.now()
	}

	_, err := g.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.PortfolioID, t.HoldingID, string(t.Type), t.Symbol, string(t.Currency),
		t.Quantity, t.Price, t.Fees, t.TotalAmount, formatTime(t.TransactionDate), t.Notes)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Conflict("transaction", "transaction "+t.ID+" already recorded")
		}
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return &t, nil
}

// CreateWatchlistItem inserts w
func (g *Gateway) CreateWatchlistItem(ctx context.Context, w domain.WatchlistItem) (*domain.WatchlistItem, error) {
	if w.ID == "" {
		w.ID = g.newID()
	}
	if w.AddedDate.IsZero() {
		w.AddedDate = g.now()
	}

	_, err := g.db.ExecContext(ctx,
		`INSERT INTO watchlist (`+watchlistColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.UserID, w.Symbol, w.CompanyName, w.CurrentPrice, w.ChangePercent, formatTime(w.AddedDate))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Conflict("watchlist item", w.Symbol+" is already on the watchlist")
		}
		return nil, fmt.Errorf("failed to insert watchlist item: %w", err)
	}
	return &w, nil
}

// UpdateWatchlistItem overwrites the quote fields of a watchlist item
func (g *Gateway) UpdateWatchlistItem(ctx context.Context, w domain.WatchlistItem) (*domain.WatchlistItem, error) {
	result, err := g.db.ExecContext(ctx,
		`UPDATE watchlist SET company_name = ?, current_price = ?, change_percent = ? WHERE id = ?`,
		w.CompanyName, w.CurrentPrice, w.ChangePercent, w.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update watchlist item: %w", err)
	}
	if err := expectAffected(result, "watchlist item", w.ID); err != nil {
		return nil, err
	}
	return &w, nil
}

// DeleteWatchlistItem deletes a watchlist item
func (g *Gateway) DeleteWatchlistItem(ctx context.Context, id string) error {
	result, err := g.db.ExecContext(ctx, `DELETE FROM watchlist WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete watchlist item: %w", err)
	}
	return expectAffected(result, "watchlist item", id)
}

func scanPortfolio(s scanner) (domain.Portfolio, error) {
	var (
		p                    domain.Portfolio
		currency             string
		isActive             int
		createdAt, updatedAt string
	)
	err := s.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Broker, &currency,
		&p.TotalValue, &p.TotalCost, &p.TotalGainLoss, &p.TotalGainLossPercent,
		&isActive, &createdAt, &updatedAt)
	if err != nil {
		return p, err
	}
	p.Currency = domain.Currency(currency)
	p.IsActive = isActive != 0
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return p, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return p, err
	}
	return p, nil
}

func scanHolding(s scanner) (domain.Holding, error) {
	var (
		h                         domain.Holding
		typ, currency             string
		purchaseDate, lastUpdated string
	)
	err := s.Scan(&h.ID, &h.PortfolioID, &h.Symbol, &h.CompanyName, &typ, &h.Market, &currency, &h.Sector,
		&h.Quantity, &h.AveragePrice, &h.CurrentPrice, &h.TotalCost, &h.CurrentValue,
		&h.GainLoss, &h.GainLossPercent, &purchaseDate, &lastUpdated)
	if err != nil {
		return h, err
	}
	h.Type = domain.HoldingType(typ)
	h.Currency = domain.Currency(currency)
	if h.PurchaseDate, err = parseTime(purchaseDate); err != nil {
		return h, err
	}
	if h.LastUpdated, err = parseTime(lastUpdated); err != nil {
		return h, err
	}
	return h, nil
}

func scanTransaction(s scanner) (domain.Transaction, error) {
	var (
		t             domain.Transaction
		typ, currency string
		date          string
	)
	err := s.Scan(&t.ID, &t.PortfolioID, &t.HoldingID, &typ, &t.Symbol, &currency,
		&t.Quantity, &t.Price, &t.Fees, &t.TotalAmount, &date, &t.Notes)
	if err != nil {
		return t, err
	}
	t.Type = domain.TransactionType(typ)
	t.Currency = domain.Currency(currency)
	if t.TransactionDate, err = parseTime(date); err != nil {
		return t, err
	}
	return t, nil
}

func scanWatchlistItem(s scanner) (domain.WatchlistItem, error) {
	var (
		w     domain.WatchlistItem
		added string
	)
	err := s.Scan(&w.ID, &w.UserID, &w.Symbol, &w.CompanyName, &w.CurrentPrice, &w.ChangePercent, &added)
	if err != nil {
		return w, err
	}
	if w.AddedDate, err = parseTime(added); err != nil {
		return w, err
	}
	return w, nil
}

// formatTime stores times as RFC 3339 in UTC so they sort lexically
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func expectAffected(result sql.Result, entity, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.NotFound(entity, id)
	}
	return nil
}

// Both SQLite drivers report constraint failures only through the message
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
