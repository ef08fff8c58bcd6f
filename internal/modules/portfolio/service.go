package portfolio

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
)

// Service runs requests against the gateway and the Coordinator.
//
// A request is validated and checked against local state first, then sent to
// the gateway outside the coordinator lock. The stored record the gateway
// returns is applied to the Coordinator, which recomputes the derived
// records locally. Those recomputed records are written back as best-effort
// side effects: a failure there is logged and published as a
// PersistenceFailed event, never returned to the caller.
type Service struct {
	gateway     domain.Gateway
	coordinator *Coordinator
	events      *events.Manager
	log         zerolog.Logger
	now         func() time.Time
}

// NewService creates a new service
func NewService(gateway domain.Gateway, coordinator *Coordinator, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		gateway:     gateway,
		coordinator: coordinator,
		events:      eventManager,
		log:         log.With().Str("service", "portfolio").Logger(),
		now:         time.Now,
	}
}

// Coordinator returns the coordinator the service writes to
func (s *Service) Coordinator() *Coordinator {
	return s.coordinator
}

// CreatePortfolio creates a portfolio for the current user
func (s *Service) CreatePortfolio(ctx context.Context, req domain.CreatePortfolioRequest) (domain.Portfolio, error) {
	userID, err := s.coordinator.userID()
	if err != nil {
		return domain.Portfolio{}, err
	}
	req, err = PrepareCreatePortfolio(req)
	if err != nil {
		return domain.Portfolio{}, err
	}
	if err := s.coordinator.CheckPortfolioName("", req.Name); err != nil {
		return domain.Portfolio{}, err
	}

	saved, err := s.gateway.CreatePortfolio(ctx, NewPortfolio(req, userID, s.now()))
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("failed to create portfolio: %w", err)
	}

	out, err := s.coordinator.PutPortfolio(*saved)
	if err != nil {
		return domain.Portfolio{}, err
	}
	created, _ := out.Portfolio(saved.ID)
	return created, nil
}

// UpdatePortfolio applies the set fields of req
func (s *Service) UpdatePortfolio(ctx context.Context, id string, req domain.UpdatePortfolioRequest) (domain.Portfolio, error) {
	req, err := PrepareUpdatePortfolio(req)
	if err != nil {
		return domain.Portfolio{}, err
	}
	current, err := s.coordinator.Portfolio(id)
	if err != nil {
		return domain.Portfolio{}, err
	}
	merged := ApplyPortfolioUpdate(current, req, s.now())
	if err := s.coordinator.CheckPortfolioName(id, merged.Name); err != nil {
		return domain.Portfolio{}, err
	}

	saved, err := s.gateway.UpdatePortfolio(ctx, merged)
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("failed to update portfolio: %w", err)
	}

	out, err := s.coordinator.PutPortfolio(*saved)
	if err != nil {
		return domain.Portfolio{}, err
	}
	updated, _ := out.Portfolio(id)
	return updated, nil
}

// DeletePortfolio deletes a portfolio and its holdings
func (s *Service) DeletePortfolio(ctx context.Context, id string) (Outcome, error) {
	if _, err := s.coordinator.Portfolio(id); err != nil {
		return Outcome{}, err
	}
	if err := s.gateway.DeletePortfolio(ctx, id); err != nil {
		return Outcome{}, fmt.Errorf("failed to delete portfolio: %w", err)
	}
	return s.coordinator.DeletePortfolio(id)
}

// CreateHolding opens a holding and records its opening buy transaction.
// When the opening transaction cannot be stored the holding is deleted
// again and the error returned.
func (s *Service) CreateHolding(ctx context.Context, req domain.CreateHoldingRequest) (domain.Holding, error) {
	req, err := PrepareCreateHolding(req)
	if err != nil {
		return domain.Holding{}, err
	}
	if _, err := s.coordinator.Portfolio(req.PortfolioID); err != nil {
		return domain.Holding{}, err
	}

	saved, err := s.gateway.CreateHolding(ctx, NewHolding(req, s.now()))
	if err != nil {
		return domain.Holding{}, fmt.Errorf("failed to create holding: %w", err)
	}
	opening, err := s.gateway.CreateTransaction(ctx, OpeningTransaction(*saved))
	if err != nil {
		if delErr := s.gateway.DeleteHolding(ctx, saved.ID); delErr != nil {
			s.reportFailure("delete", "holding", saved.ID, delErr)
		}
		return domain.Holding{}, fmt.Errorf("failed to record opening transaction: %w", err)
	}

	out, err := s.coordinator.OpenHolding(*saved, *opening)
	if err != nil {
		return domain.Holding{}, err
	}
	s.persist(ctx, out, skip{holding: saved.ID, transactions: []string{opening.ID}})
	created, _ := out.Holding(saved.ID)
	return created, nil
}

// UpdateHolding applies the set fields of req. A changed quantity or average
// price is stored as an adjusting transaction and the holding is rebuilt
// from its history.
func (s *Service) UpdateHolding(ctx context.Context, id string, req domain.UpdateHoldingRequest) (domain.Holding, error) {
	req, err := PrepareUpdateHolding(req)
	if err != nil {
		return domain.Holding{}, err
	}
	current, err := s.coordinator.Holding(id)
	if err != nil {
		return domain.Holding{}, err
	}
	planned, err := s.coordinator.PlanHoldingUpdate(id, req)
	if err != nil {
		return domain.Holding{}, err
	}
	merged := ApplyHoldingUpdate(current, req, s.now())

	if planned != nil {
		adjustment, err := s.gateway.CreateTransaction(ctx, *planned)
		if err != nil {
			return domain.Holding{}, fmt.Errorf("failed to record position adjustment: %w", err)
		}
		out, err := s.coordinator.PutAdjustedHolding(merged, adjustment)
		if err != nil {
			return domain.Holding{}, err
		}
		s.persist(ctx, out, skip{transactions: []string{adjustment.ID}})
		updated, _ := out.Holding(id)
		return updated, nil
	}

	saved, err := s.gateway.UpdateHolding(ctx, merged)
	if err != nil {
		return domain.Holding{}, fmt.Errorf("failed to update holding: %w", err)
	}

	out, err := s.coordinator.PutHolding(*saved)
	if err != nil {
		return domain.Holding{}, err
	}
	s.persist(ctx, out, skip{holding: id})
	updated, _ := out.Holding(id)
	return updated, nil
}

// DeleteHolding deletes a holding and recomputes its portfolio
func (s *Service) DeleteHolding(ctx context.Context, id string) (Outcome, error) {
	if _, err := s.coordinator.Holding(id); err != nil {
		return Outcome{}, err
	}
	if err := s.gateway.DeleteHolding(ctx, id); err != nil {
		return Outcome{}, fmt.Errorf("failed to delete holding: %w", err)
	}

	out, err := s.coordinator.RemoveHolding(id)
	if err != nil {
		return Outcome{}, err
	}
	s.persist(ctx, out, skip{holding: id})
	return out, nil
}

// AddTransaction records a transaction and reconciles its holding
func (s *Service) AddTransaction(ctx context.Context, req domain.CreateTransactionRequest) (Outcome, error) {
	req, err := PrepareCreateTransaction(req)
	if err != nil {
		return Outcome{}, err
	}
	t := NewTransaction(req, s.now())
	if err := s.coordinator.CheckTransactionTarget(t); err != nil {
		return Outcome{}, err
	}

	saved, err := s.gateway.CreateTransaction(ctx, t)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	out, err := s.coordinator.RecordTransaction(*saved)
	s.persist(ctx, out, skip{transactions: []string{saved.ID}})
	return out, err
}

// AddWatchlistItem puts a symbol on the current user's watchlist
func (s *Service) AddWatchlistItem(ctx context.Context, req domain.CreateWatchlistRequest) (domain.WatchlistItem, error) {
	userID, err := s.coordinator.userID()
	if err != nil {
		return domain.WatchlistItem{}, err
	}
	req, err = PrepareCreateWatchlistItem(req)
	if err != nil {
		return domain.WatchlistItem{}, err
	}
	if err := s.coordinator.CheckWatchlistSymbol(req.Symbol); err != nil {
		return domain.WatchlistItem{}, err
	}

	saved, err := s.gateway.CreateWatchlistItem(ctx, NewWatchlistItem(req, userID, s.now()))
	if err != nil {
		return domain.WatchlistItem{}, fmt.Errorf("failed to create watchlist item: %w", err)
	}

	out, err := s.coordinator.PutWatchlistItem(*saved)
	if err != nil {
		return domain.WatchlistItem{}, err
	}
	return out.Watchlist[0], nil
}

// RemoveWatchlistItem removes an item from the current user's watchlist
func (s *Service) RemoveWatchlistItem(ctx context.Context, id string) error {
	if _, err := s.watchlistItem(id); err != nil {
		return err
	}
	if err := s.gateway.DeleteWatchlistItem(ctx, id); err != nil {
		return fmt.Errorf("failed to delete watchlist item: %w", err)
	}
	_, err := s.coordinator.RemoveWatchlistItem(id)
	return err
}

// UpdatePrices applies quotes and writes back the repriced records
func (s *Service) UpdatePrices(ctx context.Context, prices map[string]float64) (Outcome, error) {
	out, err := s.coordinator.UpdatePrices(prices)
	if err != nil {
		return out, err
	}
	s.persist(ctx, out, skip{})
	return out, nil
}

func (s *Service) watchlistItem(id string) (domain.WatchlistItem, error) {
	items, err := s.coordinator.Watchlist()
	if err != nil {
		return domain.WatchlistItem{}, err
	}
	for _, w := range items {
		if w.ID == id {
			return w, nil
		}
	}
	return domain.WatchlistItem{}, domain.NotFound("watchlist item", id)
}

// skip names records the gateway already holds in their final form
type skip struct {
	holding      string
	transactions []string
}

// persist writes the records the Coordinator recomputed or added
func (s *Service) persist(ctx context.Context, out Outcome, already skip) {
	for _, t := range out.Transactions {
		if slices.Contains(already.transactions, t.ID) {
			continue
		}
		if _, err := s.gateway.CreateTransaction(ctx, t); err != nil {
			s.reportFailure("create", "transaction", t.ID, err)
		}
	}
	for _, h := range out.Holdings {
		if h.ID == already.holding {
			continue
		}
		if _, err := s.gateway.UpdateHolding(ctx, h); err != nil {
			s.reportFailure("update", "holding", h.ID, err)
		}
	}
	for _, h := range out.RemovedHoldings {
		if h.ID == already.holding {
			continue
		}
		if err := s.gateway.DeleteHolding(ctx, h.ID); err != nil {
			s.reportFailure("delete", "holding", h.ID, err)
		}
	}
	for _, p := range out.Portfolios {
		if _, err := s.gateway.UpdatePortfolio(ctx, p); err != nil {
			s.reportFailure("update", "portfolio", p.ID, err)
		}
	}
	for _, w := range out.Watchlist {
		if _, err := s.gateway.UpdateWatchlistItem(ctx, w); err != nil {
			s.reportFailure("update", "watchlist item", w.ID, err)
		}
	}
}

func (s *Service) reportFailure(operation, entity, id string, err error) {
	userID, _ := s.coordinator.userID()
	s.log.Error().
		Err(err).
		Str("operation", operation).
		Str("entity", entity).
		Str("id", id).
		Msg("Best-effort persistence failed")
	s.events.Emit(userID, eventModule, &events.PersistenceFailedData{
		Operation: operation,
		Entity:    entity,
		ID:        id,
		Error:     err.Error(),
	})
}
