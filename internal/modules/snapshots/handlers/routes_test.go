package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folio/internal/auth"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/snapshots"
	testingpkg "github.com/aristath/folio/internal/testing"
)

func newTestRouter(t *testing.T) (http.Handler, *snapshots.Repository) {
	t.Helper()
	db, cleanup := testingpkg.NewMemoryDB(t)
	t.Cleanup(cleanup)

	repo := snapshots.NewRepository(db, zerolog.Nop())
	router := chi.NewRouter()
	router.Use(auth.HeaderMiddleware("X-User-ID", zerolog.Nop()))
	NewHandler(repo, zerolog.Nop()).RegisterRoutes(router)
	return router, repo
}

func get(router http.Handler, path, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleListSnapshots(t *testing.T) {
	router, repo := newTestRouter(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := repo.Record(ctx, "alice", testingpkg.FixtureTime.Add(time.Duration(i)*time.Hour),
			domain.PortfolioSummary{TotalValue: float64(100 * (i + 1))})
		require.NoError(t, err)
	}

	rec := get(router, "/snapshots?limit=2", "alice")

	require.Equal(t, http.StatusOK, rec.Code)
	var history []snapshots.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	require.Len(t, history, 2)
	assert.Equal(t, 300.0, history[0].TotalValue)
	assert.Equal(t, 200.0, history[1].TotalValue)
}

func TestHandleListSnapshots_OtherUserSeesNothing(t *testing.T) {
	router, repo := newTestRouter(t)
	_, err := repo.Record(context.Background(), "alice", testingpkg.FixtureTime, domain.PortfolioSummary{TotalValue: 1})
	require.NoError(t, err)

	rec := get(router, "/snapshots", "bob")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestHandleListSnapshots_BadLimit(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, limit := range []string{"0", "-1", "abc", "1001"} {
		rec := get(router, "/snapshots?limit="+limit, "alice")
		assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
	}
}

func TestHandleListSnapshots_RequiresUser(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := get(router, "/snapshots", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
