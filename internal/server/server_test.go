package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/aristath/folio/internal/di"
	"github.com/aristath/folio/internal/events"
	testingpkg "github.com/aristath/folio/internal/testing"
)

func newTestServer(t *testing.T) (*Server, *di.Container) {
	t.Helper()
	cfg := testingpkg.NewTestConfig(t)

	container, _, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	return New(Config{Log: zerolog.Nop(), Config: cfg, Container: container}), container
}

func request(s *Server, method, path, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	s, container := newTestServer(t)

	rec := request(s, "GET", "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "folio", body["service"])

	require.NoError(t, container.DB.Close())
	rec = request(s, "GET", "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleSystemStatus(t *testing.T) {
	s, _ := newTestServer(t)

	rec := request(s, "GET", "/api/system/status", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var status SystemStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, 2, status.ScheduledJobs)
	assert.Equal(t, 0, status.ActiveSessions)
	assert.Positive(t, status.Goroutines)
	require.NotNil(t, status.Database)
	assert.Positive(t, status.Database.PageCount)
}

func TestAPIRequiresUser(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/api/portfolios", "/api/snapshots", "/api/events/ws"} {
		rec := request(s, "GET", path, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestAPIServesPortfolioRoutes(t *testing.T) {
	s, _ := newTestServer(t)

	rec := request(s, "GET", "/api/portfolios", "alice")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = request(s, "GET", "/api/snapshots", "alice")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEventsStream_RejectsUnknownType(t *testing.T) {
	s, _ := newTestServer(t)

	rec := request(s, "GET", "/api/events/ws?types=PORTFOLIO_CHANGED,BOGUS", "alice")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "BOGUS")
}

func TestEventsStream_DeliversOwnFilteredEvents(t *testing.T) {
	s, container := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events/ws?types=portfolio_changed"
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{"X-User-ID": []string{"alice"}},
	})
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var connected map[string]interface{}
	readJSON(ctx, t, conn, &connected)
	assert.Equal(t, "connected", connected["type"])

	container.EventManager.Emit("bob", "portfolio", &events.PortfolioChangedData{PortfolioID: "bob-1"})
	container.EventManager.Emit("alice", "portfolio", &events.WatchlistChangedData{})
	container.EventManager.Emit("alice", "portfolio", &events.PortfolioChangedData{PortfolioID: "p-1", TotalValue: 8300})

	var received struct {
		Type   string                 `json:"type"`
		Module string                 `json:"module"`
		UserID string                 `json:"user_id"`
		Data   map[string]interface{} `json:"data"`
	}
	readJSON(ctx, t, conn, &received)
	assert.Equal(t, "PORTFOLIO_CHANGED", received.Type)
	assert.Equal(t, "alice", received.UserID)
	assert.Equal(t, "portfolio", received.Module)
	assert.Equal(t, "p-1", received.Data["portfolio_id"])
	assert.Equal(t, 8300.0, received.Data["total_value"])
}

func readJSON(ctx context.Context, t *testing.T, conn *websocket.Conn, dst interface{}) {
	t.Helper()
	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageText, typ)
	require.NoError(t, json.Unmarshal(data, dst))
}
