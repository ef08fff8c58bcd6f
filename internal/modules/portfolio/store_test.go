package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folio/internal/domain"
)

func TestStore_KeepsInsertionOrder(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"c", "a", "b"} {
		s.UpsertPortfolio(domain.Portfolio{ID: id, Name: id})
	}
	s.UpsertPortfolio(domain.Portfolio{ID: "a", Name: "renamed"})

	got := s.Portfolios(nil)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, "renamed", got[1].Name)
	assert.Equal(t, "b", got[2].ID)
}

func TestStore_SnapshotIsUnaffectedByWrites(t *testing.T) {
	s := NewStore()
	s.UpsertPortfolio(domain.Portfolio{ID: "p1", Name: "One"})
	s.UpsertHolding(domain.Holding{ID: "h1", PortfolioID: "p1", Quantity: 1})

	snap := s.snapshot()

	s.UpsertPortfolio(domain.Portfolio{ID: "p1", Name: "Changed"})
	s.UpsertHolding(domain.Holding{ID: "h2", PortfolioID: "p1", Quantity: 2})
	_, err := s.RemoveHolding("h1")
	require.NoError(t, err)

	s.restore(snap)

	p, err := s.Portfolio("p1")
	require.NoError(t, err)
	assert.Equal(t, "One", p.Name)
	holdings := s.Holdings(nil)
	require.Len(t, holdings, 1)
	assert.Equal(t, "h1", holdings[0].ID)
}

func TestStore_ListReturnsCopies(t *testing.T) {
	s := NewStore()
	s.UpsertHolding(domain.Holding{ID: "h1", Symbol: "AAPL"})

	list := s.Holdings(nil)
	list[0].Symbol = "MUTATED"

	h, err := s.Holding("h1")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", h.Symbol)
}

func TestStore_RemovePortfolioCascades(t *testing.T) {
	s := NewStore()
	var removedIDs []string
	s.SetHooks(StoreHooks{PortfolioRemoved: func(id string) { removedIDs = append(removedIDs, id) }})

	s.UpsertPortfolio(domain.Portfolio{ID: "p1"})
	s.UpsertPortfolio(domain.Portfolio{ID: "p2"})
	s.UpsertHolding(domain.Holding{ID: "h1", PortfolioID: "p1"})
	s.UpsertHolding(domain.Holding{ID: "h2", PortfolioID: "p2"})
	s.UpsertHolding(domain.Holding{ID: "h3", PortfolioID: "p1"})
	require.NoError(t, s.AppendTransaction(domain.Transaction{ID: "t1", PortfolioID: "p1", HoldingID: "h1"}))

	removed, err := s.RemovePortfolio("p1")
	require.NoError(t, err)

	require.Len(t, removed, 2)
	assert.Equal(t, "h1", removed[0].ID)
	assert.Equal(t, "h3", removed[1].ID)
	assert.Equal(t, []string{"p1"}, removedIDs)

	np, nh, nt := s.Counts()
	assert.Equal(t, 1, np)
	assert.Equal(t, 1, nh)
	assert.Equal(t, 1, nt)

	_, err = s.RemovePortfolio("p1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_AppendTransactionRejectsDuplicates(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.AppendTransaction(domain.Transaction{ID: "t1", Quantity: 1}))

	err := s.AppendTransaction(domain.Transaction{ID: "t1", Quantity: 2})

	assert.ErrorIs(t, err, domain.ErrConflict)
	tx, err := s.Transaction("t1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, tx.Quantity)
}

func TestStore_ReplacePortfolio(t *testing.T) {
	s := NewStore()
	s.UpsertPortfolio(domain.Portfolio{ID: "p1", Name: "Old"})
	s.UpsertPortfolio(domain.Portfolio{ID: "p2"})
	s.UpsertHolding(domain.Holding{ID: "h1", PortfolioID: "p1"})
	s.UpsertHolding(domain.Holding{ID: "h9", PortfolioID: "p2"})
	require.NoError(t, s.AppendTransaction(domain.Transaction{ID: "t1", PortfolioID: "p1"}))

	s.ReplacePortfolio(
		domain.Portfolio{ID: "p1", Name: "New"},
		[]domain.Holding{{ID: "h2", PortfolioID: "p1"}},
		[]domain.Transaction{{ID: "t2", PortfolioID: "p1"}},
	)

	portfolios := s.Portfolios(nil)
	require.Len(t, portfolios, 2)
	assert.Equal(t, "New", portfolios[0].Name, "position is kept")

	_, err := s.Holding("h1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Holding("h9")
	assert.NoError(t, err)
	_, err = s.Transaction("t1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Transaction("t2")
	assert.NoError(t, err)
}

func TestStore_GettersReportNotFound(t *testing.T) {
	s := NewStore()

	_, err := s.Portfolio("x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Holding("x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Transaction("x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.WatchlistItem("x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.RemoveWatchlistItem("x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSelection(t *testing.T) {
	var s Selection

	_, ok := s.Get()
	assert.False(t, ok)
	assert.Equal(t, "", s.ID())
	assert.False(t, s.clear())

	p := domain.Portfolio{ID: "p1", TotalValue: 10}
	s.set(p)
	version := s.version

	s.refresh(p)
	assert.Equal(t, version, s.version, "identical record is not a change")

	s.refresh(domain.Portfolio{ID: "other", TotalValue: 99})
	got, _ := s.Get()
	assert.Equal(t, 10.0, got.TotalValue)

	s.refresh(domain.Portfolio{ID: "p1", TotalValue: 20})
	got, ok = s.Get()
	require.True(t, ok)
	assert.Equal(t, 20.0, got.TotalValue)
	assert.Greater(t, s.version, version)

	s.invalidate("other")
	assert.Equal(t, "p1", s.ID())
	s.invalidate("p1")
	assert.Equal(t, "", s.ID())
}
