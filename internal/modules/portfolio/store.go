package portfolio

import (
	"github.com/aristath/folio/internal/domain"
)

type entity interface {
	EntityID() string
}

// collection is an immutable, insertion-ordered set of records.
// Every write returns a new collection; existing values are never modified,
// so a snapshot taken before a write stays valid after it.
type collection[T entity] struct {
	items []T
	index map[string]int
}

func newCollection[T entity](items []T) collection[T] {
	c := collection[T]{
		items: make([]T, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	for _, item := range items {
		if i, ok := c.index[item.EntityID()]; ok {
			c.items[i] = item
			continue
		}
		c.index[item.EntityID()] = len(c.items)
		c.items = append(c.items, item)
	}
	return c
}

func (c collection[T]) get(id string) (T, bool) {
	i, ok := c.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return c.items[i], true
}

// upsert replaces a record in place or appends a new one
func (c collection[T]) upsert(item T) collection[T] {
	items := make([]T, len(c.items), len(c.items)+1)
	copy(items, c.items)

	if i, ok := c.index[item.EntityID()]; ok {
		items[i] = item
		return collection[T]{items: items, index: c.index}
	}

	index := make(map[string]int, len(c.index)+1)
	for k, v := range c.index {
		index[k] = v
	}
	index[item.EntityID()] = len(items)
	return collection[T]{items: append(items, item), index: index}
}

// removeWhere drops every record matching pred and returns the dropped records
func (c collection[T]) removeWhere(pred func(T) bool) (collection[T], []T) {
	var removed []T
	kept := make([]T, 0, len(c.items))
	for _, item := range c.items {
		if pred(item) {
			removed = append(removed, item)
			continue
		}
		kept = append(kept, item)
	}
	if len(removed) == 0 {
		return c, nil
	}
	return newCollection(kept), removed
}

// list returns a copy of the records matching pred, in insertion order
func (c collection[T]) list(pred func(T) bool) []T {
	out := make([]T, 0, len(c.items))
	for _, item := range c.items {
		if pred == nil || pred(item) {
			out = append(out, item)
		}
	}
	return out
}

func (c collection[T]) len() int {
	return len(c.items)
}

// StoreHooks lets the owner of a Store react to portfolio writes
type StoreHooks struct {
	PortfolioUpserted func(domain.Portfolio)
	PortfolioRemoved  func(id string)
}

// Store holds the authoritative records of one user.
//
// Store is not safe for concurrent use; the Coordinator serialises access.
type Store struct {
	portfolios   collection[domain.Portfolio]
	holdings     collection[domain.Holding]
	transactions collection[domain.Transaction]
	watchlist    collection[domain.WatchlistItem]
	hooks        StoreHooks
}

// storeSnapshot captures every collection at one point in time
type storeSnapshot struct {
	portfolios   collection[domain.Portfolio]
	holdings     collection[domain.Holding]
	transactions collection[domain.Transaction]
	watchlist    collection[domain.WatchlistItem]
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		portfolios:   newCollection[domain.Portfolio](nil),
		holdings:     newCollection[domain.Holding](nil),
		transactions: newCollection[domain.Transaction](nil),
		watchlist:    newCollection[domain.WatchlistItem](nil),
	}
}

// SetHooks installs portfolio write callbacks
func (s *Store) SetHooks(hooks StoreHooks) {
	s.hooks = hooks
}

func (s *Store) snapshot() storeSnapshot {
	return storeSnapshot{
		portfolios:   s.portfolios,
		holdings:     s.holdings,
		transactions: s.transactions,
		watchlist:    s.watchlist,
	}
}

func (s *Store) restore(snap storeSnapshot) {
	s.portfolios = snap.portfolios
	s.holdings = snap.holdings
	s.transactions = snap.transactions
	s.watchlist = snap.watchlist
}

// Portfolio returns the portfolio with id
func (s *Store) Portfolio(id string) (domain.Portfolio, error) {
	p, ok := s.portfolios.get(id)
	if !ok {
		return domain.Portfolio{}, domain.NotFound("portfolio", id)
	}
	return p, nil
}

// Holding returns the holding with id
func (s *Store) Holding(id string) (domain.Holding, error) {
	h, ok := s.holdings.get(id)
	if !ok {
		return domain.Holding{}, domain.NotFound("holding", id)
	}
	return h, nil
}

// Transaction returns the transaction with id
func (s *Store) Transaction(id string) (domain.Transaction, error) {
	t, ok := s.transactions.get(id)
	if !ok {
		return domain.Transaction{}, domain.NotFound("transaction", id)
	}
	return t, nil
}

// WatchlistItem returns the watchlist item with id
func (s *Store) WatchlistItem(id string) (domain.WatchlistItem, error) {
	w, ok := s.watchlist.get(id)
	if !ok {
		return domain.WatchlistItem{}, domain.NotFound("watchlist item", id)
	}
	return w, nil
}

// Portfolios lists portfolios matching pred (all when nil)
func (s *Store) Portfolios(pred func(domain.Portfolio) bool) []domain.Portfolio {
	return s.portfolios.list(pred)
}

// Holdings lists holdings matching pred (all when nil)
func (s *Store) Holdings(pred func(domain.Holding) bool) []domain.Holding {
	return s.holdings.list(pred)
}

// Transactions lists transactions matching pred (all when nil)
func (s *Store) Transactions(pred func(domain.Transaction) bool) []domain.Transaction {
	return s.transactions.list(pred)
}

// Watchlist lists watchlist items matching pred (all when nil)
func (s *Store) Watchlist(pred func(domain.WatchlistItem) bool) []domain.WatchlistItem {
	return s.watchlist.list(pred)
}

// HoldingsOf lists the holdings of one portfolio
func (s *Store) HoldingsOf(portfolioID string) []domain.Holding {
	return s.holdings.list(func(h domain.Holding) bool { return h.PortfolioID == portfolioID })
}

// UpsertPortfolio inserts or replaces a portfolio
func (s *Store) UpsertPortfolio(p domain.Portfolio) {
	s.portfolios = s.portfolios.upsert(p)
	if s.hooks.PortfolioUpserted != nil {
		s.hooks.PortfolioUpserted(p)
	}
}

// UpsertHolding inserts or replaces a holding
func (s *Store) UpsertHolding(h domain.Holding) {
	s.holdings = s.holdings.upsert(h)
}

// AppendTransaction adds a transaction to the log.
// Transactions are never replaced, so a duplicate id is a conflict.
func (s *Store) AppendTransaction(t domain.Transaction) error {
	if _, ok := s.transactions.get(t.ID); ok {
		return domain.Conflict("transaction", "transaction "+t.ID+" already recorded")
	}
	s.transactions = s.transactions.upsert(t)
	return nil
}

// UpsertWatchlistItem inserts or replaces a watchlist item
func (s *Store) UpsertWatchlistItem(w domain.WatchlistItem) {
	s.watchlist = s.watchlist.upsert(w)
}

// RemovePortfolio removes a portfolio and every holding it owns.
// Transactions are kept. The removed holdings are returned.
func (s *Store) RemovePortfolio(id string) ([]domain.Holding, error) {
	if _, ok := s.portfolios.get(id); !ok {
		return nil, domain.NotFound("portfolio", id)
	}

	var removed []domain.Holding
	s.holdings, removed = s.holdings.removeWhere(func(h domain.Holding) bool {
		return h.PortfolioID == id
	})
	s.portfolios, _ = s.portfolios.removeWhere(func(p domain.Portfolio) bool {
		return p.ID == id
	})

	if s.hooks.PortfolioRemoved != nil {
		s.hooks.PortfolioRemoved(id)
	}
	return removed, nil
}

// RemoveHolding removes a holding and returns it
func (s *Store) RemoveHolding(id string) (domain.Holding, error) {
	h, ok := s.holdings.get(id)
	if !ok {
		return domain.Holding{}, domain.NotFound("holding", id)
	}
	s.holdings, _ = s.holdings.removeWhere(func(x domain.Holding) bool { return x.ID == id })
	return h, nil
}

// RemoveWatchlistItem removes a watchlist item and returns it
func (s *Store) RemoveWatchlistItem(id string) (domain.WatchlistItem, error) {
	w, ok := s.watchlist.get(id)
	if !ok {
		return domain.WatchlistItem{}, domain.NotFound("watchlist item", id)
	}
	s.watchlist, _ = s.watchlist.removeWhere(func(x domain.WatchlistItem) bool { return x.ID == id })
	return w, nil
}

// ReplaceAll swaps in a complete set of records
func (s *Store) ReplaceAll(portfolios []domain.Portfolio, holdings []domain.Holding, transactions []domain.Transaction, watchlist []domain.WatchlistItem) {
	s.portfolios = newCollection(portfolios)
	s.holdings = newCollection(holdings)
	s.transactions = newCollection(transactions)
	s.watchlist = newCollection(watchlist)
}

// ReplacePortfolio swaps in the records of one portfolio, keeping its
// position in the portfolio order when it already exists
func (s *Store) ReplacePortfolio(p domain.Portfolio, holdings []domain.Holding, transactions []domain.Transaction) {
	s.holdings, _ = s.holdings.removeWhere(func(h domain.Holding) bool { return h.PortfolioID == p.ID })
	for _, h := range holdings {
		s.holdings = s.holdings.upsert(h)
	}

	s.transactions, _ = s.transactions.removeWhere(func(t domain.Transaction) bool { return t.PortfolioID == p.ID })
	for _, t := range transactions {
		s.transactions = s.transactions.upsert(t)
	}

	s.UpsertPortfolio(p)
}

// Counts returns the number of portfolios, holdings and transactions held
func (s *Store) Counts() (portfolios, holdings, transactions int) {
	return s.portfolios.len(), s.holdings.len(), s.transactions.len()
}
