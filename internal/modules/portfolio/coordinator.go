package portfolio

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
	"github.com/aristath/folio/internal/modules/aggregation"
)

const eventModule = "portfolio"

// Coordinator owns one user's Store and Selection and applies every change
// to them.
//
// All state sits behind a single mutex: each operation runs to completion
// before the next starts, so cross-entity invariants (holding totals,
// portfolio totals, selection) are never observed half-updated. An operation
// that fails leaves the state exactly as it found it. Events are published
// after the lock is released.
type Coordinator struct {
	mu        sync.Mutex
	store     *Store
	selection *Selection
	identity  domain.IdentityProvider
	events    *events.Manager
	log       zerolog.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithEvents publishes committed changes through m
func WithEvents(m *events.Manager) Option {
	return func(c *Coordinator) { c.events = m }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithIDGenerator overrides the id source for locally created records
func WithIDGenerator(newID func() string) Option {
	return func(c *Coordinator) { c.newID = newID }
}

// NewCoordinator creates a coordinator over an empty store
func NewCoordinator(identity domain.IdentityProvider, log zerolog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     NewStore(),
		selection: &Selection{},
		identity:  identity,
		log:       log.With().Str("component", "coordinator").Logger(),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	c.store.SetHooks(StoreHooks{
		PortfolioUpserted: c.selection.refresh,
		PortfolioRemoved:  c.selection.invalidate,
	})
	return c
}

func (c *Coordinator) userID() (string, error) {
	if c.identity == nil {
		return "", domain.Unauthenticated()
	}
	id, ok := c.identity.CurrentUserID()
	if !ok || id == "" {
		return "", domain.Unauthenticated()
	}
	return id, nil
}

// mutation is the working state of one locked operation
type mutation struct {
	c       *Coordinator
	userID  string
	out     Outcome
	saved   Outcome
	store   storeSnapshot
	sel     selectionSnapshot
	version uint64
}

// checkpoint commits everything done so far; a later failure rolls back
// only to this point
func (m *mutation) checkpoint() {
	m.store = m.c.store.snapshot()
	m.sel = m.c.selection.snapshot()
	m.saved = m.out.clone()
}

// mutate runs op under the lock. On error the state is rolled back to the
// last checkpoint (or to entry) and the committed part of the outcome is
// returned together with the error.
func (c *Coordinator) mutate(name string, op func(m *mutation) error) (Outcome, error) {
	userID, err := c.userID()
	if err != nil {
		return Outcome{}, err
	}

	c.mu.Lock()
	m := &mutation{
		c:       c,
		userID:  userID,
		store:   c.store.snapshot(),
		sel:     c.selection.snapshot(),
		version: c.selection.version,
	}

	opErr := op(m)
	if opErr != nil {
		c.store.restore(m.store)
		c.selection.restore(m.sel)
		m.out = m.saved
	}
	m.out.SelectionChanged = c.selection.version != m.version
	selected := c.selection.ID()
	c.mu.Unlock()

	if opErr != nil {
		c.log.Debug().Err(opErr).Str("op", name).Msg("Mutation rejected")
	} else {
		c.log.Debug().
			Str("op", name).
			Int("portfolios", len(m.out.Portfolios)).
			Int("holdings", len(m.out.Holdings)).
			Int("removed_holdings", len(m.out.RemovedHoldings)).
			Msg("Mutation committed")
	}

	c.publish(userID, m.out, selected)
	return m.out, opErr
}

// read runs fn under the lock with the current user id
func (c *Coordinator) read(fn func(userID string) error) error {
	userID, err := c.userID()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(userID)
}

func (c *Coordinator) publish(userID string, out Outcome, selected string) {
	if c.events == nil {
		return
	}
	for _, p := range out.Portfolios {
		c.events.Emit(userID, eventModule, &events.PortfolioChangedData{
			PortfolioID:          p.ID,
			TotalValue:           p.TotalValue,
			TotalGainLossPercent: p.TotalGainLossPercent,
		})
	}
	for _, id := range out.RemovedPortfolioIDs {
		c.events.Emit(userID, eventModule, &events.PortfolioChangedData{PortfolioID: id, Removed: true})
	}
	for _, h := range out.Holdings {
		c.events.Emit(userID, eventModule, &events.HoldingChangedData{
			HoldingID:    h.ID,
			PortfolioID:  h.PortfolioID,
			Symbol:       h.Symbol,
			Quantity:     h.Quantity,
			CurrentValue: h.CurrentValue,
		})
	}
	for _, h := range out.RemovedHoldings {
		c.events.Emit(userID, eventModule, &events.HoldingRemovedData{
			HoldingID:   h.ID,
			PortfolioID: h.PortfolioID,
			Symbol:      h.Symbol,
		})
	}
	for _, t := range out.Transactions {
		c.events.Emit(userID, eventModule, &events.TransactionRecordedData{
			TransactionID: t.ID,
			PortfolioID:   t.PortfolioID,
			HoldingID:     t.HoldingID,
			Type:          string(t.Type),
			Symbol:        t.Symbol,
			TotalAmount:   t.TotalAmount,
		})
	}
	for _, w := range out.Watchlist {
		c.events.Emit(userID, eventModule, &events.WatchlistChangedData{ItemID: w.ID, Symbol: w.Symbol})
	}
	for _, id := range out.RemovedWatchlistIDs {
		c.events.Emit(userID, eventModule, &events.WatchlistChangedData{ItemID: id, Removed: true})
	}
	if out.SelectionChanged {
		c.events.Emit(userID, eventModule, &events.SelectionChangedData{PortfolioID: selected})
	}
}

// Locked helpers. They assume c.mu is held.

func (c *Coordinator) ownedPortfolio(userID, id string) (domain.Portfolio, error) {
	p, err := c.store.Portfolio(id)
	if err != nil {
		return domain.Portfolio{}, err
	}
	if p.UserID != userID {
		return domain.Portfolio{}, domain.NotFound("portfolio", id)
	}
	return p, nil
}

func (c *Coordinator) ownedHolding(userID, id string) (domain.Holding, error) {
	h, err := c.store.Holding(id)
	if err != nil {
		return domain.Holding{}, err
	}
	if _, err := c.ownedPortfolio(userID, h.PortfolioID); err != nil {
		return domain.Holding{}, domain.NotFound("holding", id)
	}
	return h, nil
}

func (c *Coordinator) checkPortfolioName(userID, excludeID, name string) error {
	name = strings.TrimSpace(name)
	for _, p := range c.store.Portfolios(nil) {
		if p.UserID == userID && p.ID != excludeID && strings.EqualFold(p.Name, name) {
			return domain.Conflict("portfolio", "a portfolio named \""+name+"\" already exists")
		}
	}
	return nil
}

func (c *Coordinator) checkTransactionTarget(userID string, t domain.Transaction) error {
	if _, err := c.ownedPortfolio(userID, t.PortfolioID); err != nil {
		return err
	}
	if t.HoldingID == "" {
		return nil
	}
	h, err := c.ownedHolding(userID, t.HoldingID)
	if err != nil {
		return err
	}
	if h.PortfolioID != t.PortfolioID {
		return domain.InvalidField("holding_id", "portfolio", "holding does not belong to portfolio "+t.PortfolioID)
	}
	if h.Symbol != normalizeSymbol(t.Symbol) {
		return domain.InvalidField("symbol", "holding", "does not match holding symbol "+h.Symbol)
	}
	if t.Type == domain.TransactionTypeSell {
		if t.TransactionDate.IsZero() {
			t.TransactionDate = c.now()
		}
		return c.checkSell(h, t)
	}
	return nil
}

// holdingHistory returns the transactions recorded against h, or its opening
// buy when none are recorded yet
func (c *Coordinator) holdingHistory(h domain.Holding) []domain.Transaction {
	history := c.store.Transactions(func(t domain.Transaction) bool { return t.HoldingID == h.ID })
	if len(history) == 0 {
		return []domain.Transaction{OpeningTransaction(h)}
	}
	return history
}

// checkSell rejects t when adding it to h's history leaves some sell selling
// more shares than were held at its date. A history that already oversold
// before t is left to stand.
func (c *Coordinator) checkSell(h domain.Holding, t domain.Transaction) error {
	history := c.holdingHistory(h)
	if _, oversold := aggregation.FirstOversell(history); oversold {
		return nil
	}
	sell, oversold := aggregation.FirstOversell(append(history, t))
	if !oversold {
		return nil
	}
	return domain.InvalidField("quantity", "oversell", fmt.Sprintf(
		"sells more %s than is held on %s", h.Symbol, sell.TransactionDate.Format("2006-01-02")))
}

// putPortfolio stores p with its totals recomputed from its holdings
func (c *Coordinator) putPortfolio(m *mutation, p domain.Portfolio) (domain.Portfolio, error) {
	if p.ID == "" {
		return domain.Portfolio{}, domain.InvalidField("id", "required", "is required")
	}
	if p.UserID == "" {
		p.UserID = m.userID
	}
	if p.UserID != m.userID {
		return domain.Portfolio{}, domain.NotFound("portfolio", p.ID)
	}
	existing, err := c.store.Portfolio(p.ID)
	exists := err == nil
	if exists && existing.UserID != m.userID {
		return domain.Portfolio{}, domain.NotFound("portfolio", p.ID)
	}
	if err := c.checkPortfolioName(m.userID, p.ID, p.Name); err != nil {
		return domain.Portfolio{}, err
	}

	now := c.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
		if exists {
			p.CreatedAt = existing.CreatedAt
		}
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	p = aggregation.ApplyTotals(p, aggregation.ComputePortfolioTotals(c.store.HoldingsOf(p.ID)))
	c.store.UpsertPortfolio(p)
	m.out.addPortfolio(p)
	return p, nil
}

// putHolding stores h with derived fields recomputed and refreshes the
// totals of every portfolio it touches
func (c *Coordinator) putHolding(m *mutation, h domain.Holding) (domain.Holding, error) {
	if h.ID == "" {
		return domain.Holding{}, domain.InvalidField("id", "required", "is required")
	}
	if _, err := c.ownedPortfolio(m.userID, h.PortfolioID); err != nil {
		return domain.Holding{}, err
	}
	if h.Quantity <= 0 {
		return domain.Holding{}, domain.InvalidField("quantity", "gt", "must be greater than 0")
	}

	previous, err := c.store.Holding(h.ID)
	moved := err == nil && previous.PortfolioID != h.PortfolioID
	if moved {
		if _, err := c.ownedPortfolio(m.userID, previous.PortfolioID); err != nil {
			return domain.Holding{}, domain.NotFound("holding", h.ID)
		}
	}

	h.Symbol = normalizeSymbol(h.Symbol)
	if h.LastUpdated.IsZero() {
		h.LastUpdated = c.now()
	}
	h = aggregation.WithDerived(h)

	c.store.UpsertHolding(h)
	m.out.addHolding(h)

	if moved {
		if _, err := c.recalculate(m, previous.PortfolioID); err != nil {
			return domain.Holding{}, err
		}
	}
	if _, err := c.recalculate(m, h.PortfolioID); err != nil {
		return domain.Holding{}, err
	}
	return h, nil
}

// recordTransaction appends t and reconciles its holding.
// The append is committed before reconciliation starts.
func (c *Coordinator) recordTransaction(m *mutation, t domain.Transaction) error {
	if t.ID == "" {
		return domain.InvalidField("id", "required", "is required")
	}
	if t.TransactionDate.IsZero() {
		t.TransactionDate = c.now()
	}
	if err := c.checkTransactionTarget(m.userID, t); err != nil {
		return err
	}
	if t.HoldingID != "" {
		h, err := c.store.Holding(t.HoldingID)
		if err != nil {
			return err
		}
		if err := c.ensureOpening(m, h); err != nil {
			return err
		}
	}
	if err := c.appendTransaction(m, t); err != nil {
		return err
	}
	m.checkpoint()

	if t.HoldingID == "" {
		return nil
	}
	return c.reconcile(m, t.HoldingID)
}

// appendTransaction normalises t and adds it to the log
func (c *Coordinator) appendTransaction(m *mutation, t domain.Transaction) error {
	t.Symbol = normalizeSymbol(t.Symbol)
	if t.TotalAmount == 0 {
		t.TotalAmount = aggregation.TransactionTotal(t.Quantity, t.Price, t.Fees)
	}
	if t.TransactionDate.IsZero() {
		t.TransactionDate = c.now()
	}
	if err := c.store.AppendTransaction(t); err != nil {
		return err
	}
	m.out.Transactions = append(m.out.Transactions, t)
	return nil
}

// ensureOpening records h's opening buy when h has no transactions yet, so
// that later folds start from the position h was entered with
func (c *Coordinator) ensureOpening(m *mutation, h domain.Holding) error {
	if len(c.store.Transactions(func(t domain.Transaction) bool { return t.HoldingID == h.ID })) > 0 {
		return nil
	}
	opening := OpeningTransaction(h)
	opening.ID = c.newID()
	return c.appendTransaction(m, opening)
}

// openHolding stores a new holding together with its opening transaction
func (c *Coordinator) openHolding(m *mutation, h domain.Holding, opening domain.Transaction) (domain.Holding, error) {
	if _, err := c.store.Holding(h.ID); err == nil {
		return domain.Holding{}, domain.Conflict("holding", "holding "+h.ID+" already exists")
	}
	if opening.ID == "" {
		return domain.Holding{}, domain.InvalidField("id", "required", "is required")
	}
	if opening.HoldingID != h.ID || opening.Type != domain.TransactionTypeBuy {
		return domain.Holding{}, domain.InvalidField("holding_id", "opening", "opening transaction must buy holding "+h.ID)
	}
	created, err := c.putHolding(m, h)
	if err != nil {
		return domain.Holding{}, err
	}
	if err := c.appendTransaction(m, opening); err != nil {
		return domain.Holding{}, err
	}
	return created, nil
}

// planAdjustment returns the transaction that moves h's recorded position to
// the quantity and average price set in req, or nil when neither changes it.
// Edits no single buy or sell can reach are rejected.
func (c *Coordinator) planAdjustment(h domain.Holding, req domain.UpdateHoldingRequest) (*domain.Transaction, error) {
	if req.Quantity == nil && req.AveragePrice == nil {
		return nil, nil
	}
	quantity, averagePrice := h.Quantity, h.AveragePrice
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if req.AveragePrice != nil {
		averagePrice = *req.AveragePrice
	}

	leg, ok := aggregation.AdjustmentLeg(aggregation.FoldTransactions(c.holdingHistory(h)), quantity, averagePrice)
	if !ok {
		field := "average_price"
		if quantity < h.Quantity {
			field = "quantity"
		}
		return nil, domain.InvalidField(field, "adjustment", "cannot be reached by a single buy or sell; record transactions instead")
	}
	if leg.Quantity == 0 {
		return nil, nil
	}

	adjustment := &domain.Transaction{
		PortfolioID:     h.PortfolioID,
		HoldingID:       h.ID,
		Type:            leg.Type,
		Symbol:          h.Symbol,
		Currency:        h.Currency,
		Notes:           "position adjustment",
		Quantity:        leg.Quantity,
		Price:           leg.Price,
		TotalAmount:     aggregation.TransactionTotal(leg.Quantity, leg.Price, 0),
		TransactionDate: c.now(),
	}
	if adjustment.Type == domain.TransactionTypeSell {
		if err := c.checkSell(h, *adjustment); err != nil {
			return nil, err
		}
	}
	return adjustment, nil
}

// putAdjustedHolding replaces h and records adjustment against it, so the
// holding's transaction history folds to the position h carries
func (c *Coordinator) putAdjustedHolding(m *mutation, h domain.Holding, adjustment *domain.Transaction) (domain.Holding, error) {
	if adjustment == nil {
		return c.putHolding(m, h)
	}
	if adjustment.ID == "" {
		return domain.Holding{}, domain.InvalidField("id", "required", "is required")
	}
	if adjustment.HoldingID != h.ID {
		return domain.Holding{}, domain.InvalidField("holding_id", "holding", "does not match holding "+h.ID)
	}
	if err := c.checkTransactionTarget(m.userID, *adjustment); err != nil {
		return domain.Holding{}, err
	}

	existing, err := c.store.Holding(h.ID)
	if err != nil {
		return domain.Holding{}, err
	}
	if err := c.ensureOpening(m, existing); err != nil {
		return domain.Holding{}, err
	}
	if _, err := c.putHolding(m, h); err != nil {
		return domain.Holding{}, err
	}
	if err := c.appendTransaction(m, *adjustment); err != nil {
		return domain.Holding{}, err
	}
	if err := c.reconcile(m, h.ID); err != nil {
		return domain.Holding{}, err
	}
	return c.store.Holding(h.ID)
}

// reconcile rebuilds a holding's quantity and cost basis from its
// transaction history. A holding left with no quantity is removed. A holding
// with no recorded transactions keeps its entered position.
func (c *Coordinator) reconcile(m *mutation, holdingID string) error {
	h, err := c.ownedHolding(m.userID, holdingID)
	if err != nil {
		return err
	}

	history := c.store.Transactions(func(t domain.Transaction) bool { return t.HoldingID == holdingID })
	if len(history) > 0 {
		pos := aggregation.FoldTransactions(history)
		if !pos.Open() {
			removed, err := c.store.RemoveHolding(holdingID)
			if err != nil {
				return err
			}
			m.out.removeHolding(removed)
			_, err = c.recalculate(m, h.PortfolioID)
			return err
		}
		h = aggregation.ApplyPosition(h, pos)
		h.LastUpdated = c.now()
	} else {
		h = aggregation.WithDerived(h)
	}

	c.store.UpsertHolding(h)
	m.out.addHolding(h)
	_, err = c.recalculate(m, h.PortfolioID)
	return err
}

// recalculate recomputes a portfolio's totals from its holdings. The
// portfolio is only rewritten (and UpdatedAt moved) when a total changed.
func (c *Coordinator) recalculate(m *mutation, portfolioID string) (domain.Portfolio, error) {
	p, err := c.ownedPortfolio(m.userID, portfolioID)
	if err != nil {
		return domain.Portfolio{}, err
	}

	totals := aggregation.ComputePortfolioTotals(c.store.HoldingsOf(portfolioID))
	if totals.Matches(p) {
		return p, nil
	}

	p = aggregation.ApplyTotals(p, totals)
	p.UpdatedAt = c.now()
	c.store.UpsertPortfolio(p)
	m.out.addPortfolio(p)
	return p, nil
}

// Record-based operations apply records that already carry ids, such as
// those returned by the gateway.

// PutPortfolio adds or replaces a portfolio. Its totals are recomputed from
// the holdings in the store; any totals on p are ignored.
func (c *Coordinator) PutPortfolio(p domain.Portfolio) (Outcome, error) {
	return c.mutate("put_portfolio", func(m *mutation) error {
		_, err := c.putPortfolio(m, p)
		return err
	})
}

// PutHolding adds or replaces a holding and recomputes its portfolio
func (c *Coordinator) PutHolding(h domain.Holding) (Outcome, error) {
	return c.mutate("put_holding", func(m *mutation) error {
		_, err := c.putHolding(m, h)
		return err
	})
}

// OpenHolding adds a new holding together with the buy transaction that
// opened it
func (c *Coordinator) OpenHolding(h domain.Holding, opening domain.Transaction) (Outcome, error) {
	return c.mutate("open_holding", func(m *mutation) error {
		_, err := c.openHolding(m, h, opening)
		return err
	})
}

// PutAdjustedHolding replaces a holding and records adjustment, the
// transaction planned by PlanHoldingUpdate, in the same step. A nil
// adjustment makes it a plain PutHolding.
func (c *Coordinator) PutAdjustedHolding(h domain.Holding, adjustment *domain.Transaction) (Outcome, error) {
	return c.mutate("put_adjusted_holding", func(m *mutation) error {
		_, err := c.putAdjustedHolding(m, h, adjustment)
		return err
	})
}

// RecordTransaction appends t to the log and, when it references a holding,
// reconciles that holding. A holding with no history first gets its opening
// buy recorded. If reconciliation fails the transaction stays recorded and
// the error is returned.
func (c *Coordinator) RecordTransaction(t domain.Transaction) (Outcome, error) {
	return c.mutate("record_transaction", func(m *mutation) error {
		return c.recordTransaction(m, t)
	})
}

// PutWatchlistItem adds or replaces a watchlist item
func (c *Coordinator) PutWatchlistItem(w domain.WatchlistItem) (Outcome, error) {
	return c.mutate("put_watchlist_item", func(m *mutation) error {
		if w.ID == "" {
			return domain.InvalidField("id", "required", "is required")
		}
		if w.UserID == "" {
			w.UserID = m.userID
		}
		if w.UserID != m.userID {
			return domain.NotFound("watchlist item", w.ID)
		}
		w.Symbol = normalizeSymbol(w.Symbol)
		for _, other := range c.store.Watchlist(nil) {
			if other.ID != w.ID && other.UserID == m.userID && other.Symbol == w.Symbol {
				return domain.Conflict("watchlist item", w.Symbol+" is already on the watchlist")
			}
		}
		if w.AddedDate.IsZero() {
			w.AddedDate = c.now()
		}
		c.store.UpsertWatchlistItem(w)
		m.out.addWatchlistItem(w)
		return nil
	})
}

// Request-based operations validate a request and create records locally.

// CreatePortfolio creates an empty portfolio for the current user
func (c *Coordinator) CreatePortfolio(req domain.CreatePortfolioRequest) (domain.Portfolio, error) {
	userID, err := c.userID()
	if err != nil {
		return domain.Portfolio{}, err
	}
	req, err = PrepareCreatePortfolio(req)
	if err != nil {
		return domain.Portfolio{}, err
	}

	p := NewPortfolio(req, userID, c.now())
	p.ID = c.newID()
	out, err := c.PutPortfolio(p)
	if err != nil {
		return domain.Portfolio{}, err
	}
	created, _ := out.Portfolio(p.ID)
	return created, nil
}

// UpdatePortfolio applies the set fields of req
func (c *Coordinator) UpdatePortfolio(id string, req domain.UpdatePortfolioRequest) (domain.Portfolio, error) {
	req, err := PrepareUpdatePortfolio(req)
	if err != nil {
		return domain.Portfolio{}, err
	}

	var updated domain.Portfolio
	_, err = c.mutate("update_portfolio", func(m *mutation) error {
		existing, err := c.ownedPortfolio(m.userID, id)
		if err != nil {
			return err
		}
		updated, err = c.putPortfolio(m, ApplyPortfolioUpdate(existing, req, c.now()))
		return err
	})
	return updated, err
}

// DeletePortfolio removes a portfolio together with its holdings and clears
// the selection when it pointed at the portfolio. Transactions are kept.
func (c *Coordinator) DeletePortfolio(id string) (Outcome, error) {
	return c.mutate("delete_portfolio", func(m *mutation) error {
		if _, err := c.ownedPortfolio(m.userID, id); err != nil {
			return err
		}
		removed, err := c.store.RemovePortfolio(id)
		if err != nil {
			return err
		}
		m.out.RemovedHoldings = append(m.out.RemovedHoldings, removed...)
		m.out.RemovedPortfolioIDs = append(m.out.RemovedPortfolioIDs, id)
		return nil
	})
}

// CreateHolding opens a holding and records its opening buy transaction
func (c *Coordinator) CreateHolding(req domain.CreateHoldingRequest) (domain.Holding, error) {
	req, err := PrepareCreateHolding(req)
	if err != nil {
		return domain.Holding{}, err
	}

	var created domain.Holding
	_, err = c.mutate("create_holding", func(m *mutation) error {
		h := NewHolding(req, c.now())
		h.ID = c.newID()
		opening := OpeningTransaction(h)
		opening.ID = c.newID()
		created, err = c.openHolding(m, h, opening)
		return err
	})
	return created, err
}

// UpdateHolding applies the set fields of req and recomputes the portfolio.
// A new quantity or average price is recorded as an adjusting buy or sell.
func (c *Coordinator) UpdateHolding(id string, req domain.UpdateHoldingRequest) (domain.Holding, error) {
	req, err := PrepareUpdateHolding(req)
	if err != nil {
		return domain.Holding{}, err
	}

	var updated domain.Holding
	_, err = c.mutate("update_holding", func(m *mutation) error {
		existing, err := c.ownedHolding(m.userID, id)
		if err != nil {
			return err
		}
		adjustment, err := c.planAdjustment(existing, req)
		if err != nil {
			return err
		}
		if adjustment != nil {
			adjustment.ID = c.newID()
		}
		updated, err = c.putAdjustedHolding(m, ApplyHoldingUpdate(existing, req, c.now()), adjustment)
		return err
	})
	return updated, err
}

// RemoveHolding removes a holding and recomputes its portfolio.
// The holding's transactions are kept.
func (c *Coordinator) RemoveHolding(id string) (Outcome, error) {
	return c.mutate("remove_holding", func(m *mutation) error {
		if _, err := c.ownedHolding(m.userID, id); err != nil {
			return err
		}
		removed, err := c.store.RemoveHolding(id)
		if err != nil {
			return err
		}
		m.out.removeHolding(removed)
		_, err = c.recalculate(m, removed.PortfolioID)
		return err
	})
}

// AddTransaction validates req, appends the transaction and reconciles the
// referenced holding
func (c *Coordinator) AddTransaction(req domain.CreateTransactionRequest) (Outcome, error) {
	req, err := PrepareCreateTransaction(req)
	if err != nil {
		return Outcome{}, err
	}
	return c.mutate("add_transaction", func(m *mutation) error {
		t := NewTransaction(req, c.now())
		t.ID = c.newID()
		return c.recordTransaction(m, t)
	})
}

// ReconcileHolding rebuilds a holding from its full transaction history.
// It is safe to retry.
func (c *Coordinator) ReconcileHolding(holdingID string) (Outcome, error) {
	return c.mutate("reconcile_holding", func(m *mutation) error {
		return c.reconcile(m, holdingID)
	})
}

// RecalculatePortfolioTotals recomputes a portfolio's totals from its holdings
func (c *Coordinator) RecalculatePortfolioTotals(portfolioID string) (domain.Portfolio, error) {
	var p domain.Portfolio
	_, err := c.mutate("recalculate_portfolio", func(m *mutation) error {
		var err error
		p, err = c.recalculate(m, portfolioID)
		return err
	})
	return p, err
}

// AddWatchlistItem puts a symbol on the current user's watchlist
func (c *Coordinator) AddWatchlistItem(req domain.CreateWatchlistRequest) (domain.WatchlistItem, error) {
	userID, err := c.userID()
	if err != nil {
		return domain.WatchlistItem{}, err
	}
	req, err = PrepareCreateWatchlistItem(req)
	if err != nil {
		return domain.WatchlistItem{}, err
	}

	w := NewWatchlistItem(req, userID, c.now())
	w.ID = c.newID()
	out, err := c.PutWatchlistItem(w)
	if err != nil {
		return domain.WatchlistItem{}, err
	}
	return out.Watchlist[0], nil
}

// RemoveWatchlistItem removes an item from the current user's watchlist
func (c *Coordinator) RemoveWatchlistItem(id string) (Outcome, error) {
	return c.mutate("remove_watchlist_item", func(m *mutation) error {
		w, err := c.store.WatchlistItem(id)
		if err != nil {
			return err
		}
		if w.UserID != m.userID {
			return domain.NotFound("watchlist item", id)
		}
		if _, err := c.store.RemoveWatchlistItem(id); err != nil {
			return err
		}
		m.out.RemovedWatchlistIDs = append(m.out.RemovedWatchlistIDs, id)
		return nil
	})
}

// UpdatePrices sets the current price of every holding and watchlist item
// quoted in prices and recomputes the affected portfolios. Non-positive or
// non-finite prices are skipped and listed in Outcome.Rejected.
func (c *Coordinator) UpdatePrices(prices map[string]float64) (Outcome, error) {
	symbols := make([]string, 0, len(prices))
	for symbol := range prices {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	out, err := c.mutate("update_prices", func(m *mutation) error {
		now := c.now()
		affected := make(map[string]bool)

		for _, raw := range symbols {
			price := prices[raw]
			symbol := normalizeSymbol(raw)
			if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
				m.out.Rejected = append(m.out.Rejected, domain.FieldError{
					Field:   symbol,
					Code:    "gt",
					Message: "price must be greater than 0",
				})
				c.log.Warn().Str("symbol", symbol).Float64("price", price).Msg("Ignoring invalid price")
				continue
			}

			for _, h := range c.store.Holdings(func(h domain.Holding) bool { return h.Symbol == symbol }) {
				if _, err := c.ownedPortfolio(m.userID, h.PortfolioID); err != nil {
					continue
				}
				h.CurrentPrice = price
				h.LastUpdated = now
				h = aggregation.WithDerived(h)
				c.store.UpsertHolding(h)
				m.out.addHolding(h)
				affected[h.PortfolioID] = true
			}

			for _, w := range c.store.Watchlist(func(w domain.WatchlistItem) bool {
				return w.Symbol == symbol && w.UserID == m.userID
			}) {
				if w.CurrentPrice == price {
					continue
				}
				if w.CurrentPrice > 0 {
					w.ChangePercent = aggregation.Percent(price-w.CurrentPrice, w.CurrentPrice)
				}
				w.CurrentPrice = price
				c.store.UpsertWatchlistItem(w)
				m.out.addWatchlistItem(w)
			}
		}

		for _, p := range c.store.Portfolios(func(p domain.Portfolio) bool { return affected[p.ID] }) {
			if _, err := c.recalculate(m, p.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return out, err
	}

	if len(out.Holdings) > 0 || len(out.Watchlist) > 0 {
		userID, _ := c.userID()
		c.events.Emit(userID, eventModule, &events.PricesUpdatedData{
			Symbols:    symbols,
			Holdings:   len(out.Holdings),
			Portfolios: len(out.Portfolios),
		})
	}
	return out, nil
}

// Select makes id the selected portfolio
func (c *Coordinator) Select(id string) (domain.Portfolio, error) {
	var selected domain.Portfolio
	_, err := c.mutate("select", func(m *mutation) error {
		p, err := c.ownedPortfolio(m.userID, id)
		if err != nil {
			return err
		}
		c.selection.set(p)
		selected = p
		return nil
	})
	return selected, err
}

// ClearSelection resets the selection
func (c *Coordinator) ClearSelection() error {
	_, err := c.mutate("clear_selection", func(m *mutation) error {
		c.selection.clear()
		return nil
	})
	return err
}

// Checks run before gateway I/O so invalid requests are not sent out.

// CheckPortfolioName reports a Conflict when another of the user's
// portfolios already uses name
func (c *Coordinator) CheckPortfolioName(excludeID, name string) error {
	return c.read(func(userID string) error {
		return c.checkPortfolioName(userID, excludeID, name)
	})
}

// CheckTransactionTarget verifies that t's portfolio and holding exist and match
func (c *Coordinator) CheckTransactionTarget(t domain.Transaction) error {
	return c.read(func(userID string) error {
		return c.checkTransactionTarget(userID, t)
	})
}

// PlanHoldingUpdate returns the transaction that records req's change to a
// holding's quantity or average price, without an id. It returns nil when
// req leaves the position as it is.
func (c *Coordinator) PlanHoldingUpdate(id string, req domain.UpdateHoldingRequest) (*domain.Transaction, error) {
	var adjustment *domain.Transaction
	err := c.read(func(userID string) error {
		h, err := c.ownedHolding(userID, id)
		if err != nil {
			return err
		}
		adjustment, err = c.planAdjustment(h, req)
		return err
	})
	return adjustment, err
}

// CheckWatchlistSymbol reports a Conflict when symbol is already watched
func (c *Coordinator) CheckWatchlistSymbol(symbol string) error {
	return c.read(func(userID string) error {
		symbol = normalizeSymbol(symbol)
		for _, w := range c.store.Watchlist(nil) {
			if w.UserID == userID && w.Symbol == symbol {
				return domain.Conflict("watchlist item", symbol+" is already on the watchlist")
			}
		}
		return nil
	})
}
