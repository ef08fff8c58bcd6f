package testing

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/aristath/folio/internal/domain"
)

// MockGateway is a testify mock of domain.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) FetchPortfolios(ctx context.Context, userID string) ([]domain.Portfolio, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Portfolio), args.Error(1)
}

func (m *MockGateway) FetchPortfolio(ctx context.Context, id string) (*domain.Portfolio, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Portfolio), args.Error(1)
}

func (m *MockGateway) FetchHoldings(ctx context.Context, portfolioID string) ([]domain.Holding, error) {
	args := m.Called(ctx, portfolioID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Holding), args.Error(1)
}

func (m *MockGateway) FetchTransactions(ctx context.Context, portfolioID string) ([]domain.Transaction, error) {
	args := m.Called(ctx, portfolioID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

func (m *MockGateway) FetchWatchlist(ctx context.Context, userID string) ([]domain.WatchlistItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.WatchlistItem), args.Error(1)
}

func (m *MockGateway) CreatePortfolio(ctx context.Context, p domain.Portfolio) (*domain.Portfolio, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Portfolio), args.Error(1)
}

func (m *MockGateway) UpdatePortfolio(ctx context.Context, p domain.Portfolio) (*domain.Portfolio, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Portfolio), args.Error(1)
}

func (m *MockGateway) DeletePortfolio(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGateway) CreateHolding(ctx context.Context, h domain.Holding) (*domain.Holding, error) {
	args := m.Called(ctx, h)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Holding), args.Error(1)
}

func (m *MockGateway) UpdateHolding(ctx context.Context, h domain.Holding) (*domain.Holding, error) {
	args := m.Called(ctx, h)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Holding), args.Error(1)
}

func (m *MockGateway) DeleteHolding(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGateway) CreateTransaction(ctx context.Context, t domain.Transaction) (*domain.Transaction, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockGateway) CreateWatchlistItem(ctx context.Context, w domain.WatchlistItem) (*domain.WatchlistItem, error) {
	args := m.Called(ctx, w)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WatchlistItem), args.Error(1)
}

func (m *MockGateway) UpdateWatchlistItem(ctx context.Context, w domain.WatchlistItem) (*domain.WatchlistItem, error) {
	args := m.Called(ctx, w)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WatchlistItem), args.Error(1)
}

func (m *MockGateway) DeleteWatchlistItem(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockQuoteProvider is a testify mock of domain.QuoteProvider
type MockQuoteProvider struct {
	mock.Mock
}

func (m *MockQuoteProvider) GetPrice(ctx context.Context, symbol string) (float64, time.Time, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(float64), args.Get(1).(time.Time), args.Error(2)
}
