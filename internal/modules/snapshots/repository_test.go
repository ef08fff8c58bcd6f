package snapshots

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folio/internal/domain"
	testingpkg "github.com/aristath/folio/internal/testing"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, cleanup := testingpkg.NewMemoryDB(t)
	t.Cleanup(cleanup)
	return NewRepository(db, zerolog.Nop())
}

func sampleSummary(totalValue float64) domain.PortfolioSummary {
	gainer := testingpkg.NewHoldingFixtures("p-1")[0]
	return domain.PortfolioSummary{
		TotalValue:     totalValue,
		TotalCost:      1000,
		TotalGainLoss:  totalValue - 1000,
		PortfolioCount: 1,
		HoldingCount:   3,
		TopGainer:      &gainer,
		SectorAllocation: []domain.SectorAllocation{
			{Sector: "Technology", Value: totalValue, Percentage: 100, Count: 3},
		},
	}
}

func TestRepository_RecordAndList(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	day := testingpkg.FixtureTime

	first, err := repo.Record(ctx, "alice", day, sampleSummary(1100))
	require.NoError(t, err)
	assert.Positive(t, first.ID)
	_, err = repo.Record(ctx, "alice", day.Add(24*time.Hour), sampleSummary(1200))
	require.NoError(t, err)
	_, err = repo.Record(ctx, "bob", day, sampleSummary(999))
	require.NoError(t, err)

	history, err := repo.List(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)

	latest := history[0]
	assert.Equal(t, 1200.0, latest.TotalValue)
	assert.True(t, latest.TakenAt.Equal(day.Add(24*time.Hour)))
	assert.Equal(t, "alice", latest.UserID)
	assert.Equal(t, 3, latest.Summary.HoldingCount)
	require.NotNil(t, latest.Summary.TopGainer)
	assert.Equal(t, "AAPL", latest.Summary.TopGainer.Symbol)
	assert.True(t, latest.Summary.TopGainer.PurchaseDate.Equal(day))
	require.Len(t, latest.Summary.SectorAllocation, 1)
	assert.Equal(t, "Technology", latest.Summary.SectorAllocation[0].Sector)
	assert.Nil(t, latest.Summary.TopLoser)

	assert.Equal(t, 1100.0, history[1].TotalValue)
}

func TestRepository_ListLimit(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := repo.Record(ctx, "alice", testingpkg.FixtureTime.Add(time.Duration(i)*time.Hour), sampleSummary(float64(1000+i)))
		require.NoError(t, err)
	}

	history, err := repo.List(ctx, "alice", 2)

	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1004.0, history[0].TotalValue)
	assert.Equal(t, 1003.0, history[1].TotalValue)
}

func TestRepository_ListEmpty(t *testing.T) {
	repo := newTestRepository(t)

	history, err := repo.List(context.Background(), "nobody", 10)

	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestRepository_Prune(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	day := testingpkg.FixtureTime

	_, err := repo.Record(ctx, "alice", day.Add(-48*time.Hour), sampleSummary(1))
	require.NoError(t, err)
	_, err = repo.Record(ctx, "alice", day, sampleSummary(2))
	require.NoError(t, err)
	_, err = repo.Record(ctx, "bob", day.Add(-48*time.Hour), sampleSummary(3))
	require.NoError(t, err)

	pruned, err := repo.Prune(ctx, "alice", day.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	alice, err := repo.List(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Len(t, alice, 1)
	bob, err := repo.List(ctx, "bob", 0)
	require.NoError(t, err)
	assert.Len(t, bob, 1)
}

func TestRepository_RecordAndPrune(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	day := testingpkg.FixtureTime

	_, err := repo.Record(ctx, "alice", day.Add(-72*time.Hour), sampleSummary(1))
	require.NoError(t, err)

	snapshot, pruned, err := repo.RecordAndPrune(ctx, "alice", day, sampleSummary(2), day.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)
	assert.Equal(t, 2.0, snapshot.TotalValue)

	history, err := repo.List(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, snapshot.ID, history[0].ID)
}

func TestRepository_RecordAndPruneRollsBack(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	day := testingpkg.FixtureTime

	_, err := repo.Record(ctx, "alice", day.Add(-72*time.Hour), sampleSummary(1))
	require.NoError(t, err)
	_, err = repo.db.Exec(`CREATE TRIGGER block_prune BEFORE DELETE ON summary_snapshots
		BEGIN SELECT RAISE(ABORT, 'prune blocked'); END`)
	require.NoError(t, err)

	_, _, err = repo.RecordAndPrune(ctx, "alice", day, sampleSummary(2), day.Add(-24*time.Hour))
	require.Error(t, err)

	history, err := repo.List(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 1.0, history[0].TotalValue)
}
