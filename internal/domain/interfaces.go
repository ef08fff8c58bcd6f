package domain

import (
	"context"
	"time"
)

// IdentityProvider supplies the id of the user the engine acts for.
// ok is false when nobody is authenticated.
type IdentityProvider interface {
	CurrentUserID() (userID string, ok bool)
}

// Gateway is the persistence/network collaborator.
// Each call returns the stored record, carrying server-assigned ids and timestamps.
type Gateway interface {
	FetchPortfolios(ctx context.Context, userID string) ([]Portfolio, error)
	FetchPortfolio(ctx context.Context, id string) (*Portfolio, error)
	FetchHoldings(ctx context.Context, portfolioID string) ([]Holding, error)
	FetchTransactions(ctx context.Context, portfolioID string) ([]Transaction, error)
	FetchWatchlist(ctx context.Context, userID string) ([]WatchlistItem, error)

	CreatePortfolio(ctx context.Context, p Portfolio) (*Portfolio, error)
	UpdatePortfolio(ctx context.Context, p Portfolio) (*Portfolio, error)
	DeletePortfolio(ctx context.Context, id string) error

	CreateHolding(ctx context.Context, h Holding) (*Holding, error)
	UpdateHolding(ctx context.Context, h Holding) (*Holding, error)
	DeleteHolding(ctx context.Context, id string) error

	CreateTransaction(ctx context.Context, t Transaction) (*Transaction, error)

	CreateWatchlistItem(ctx context.Context, w WatchlistItem) (*WatchlistItem, error)
	UpdateWatchlistItem(ctx context.Context, w WatchlistItem) (*WatchlistItem, error)
	DeleteWatchlistItem(ctx context.Context, id string) error
}

// QuoteProvider returns the latest known price for a symbol
type QuoteProvider interface {
	GetPrice(ctx context.Context, symbol string) (price float64, asOf time.Time, err error)
}
