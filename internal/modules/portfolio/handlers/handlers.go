// Package handlers provides HTTP handlers for portfolio management.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/auth"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/portfolio"
)

// Handler handles portfolio HTTP requests.
// Every request acts on the engine of the authenticated user.
type Handler struct {
	sessions *portfolio.Sessions
	log      zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(sessions *portfolio.Sessions, log zerolog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		log:      log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleListPortfolios lists the user's portfolios
// Query: broker, currency, is_active, sort_by, sort_order
func (h *Handler) HandleListPortfolios(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := portfolio.PortfolioFilter{
		Broker:    q.Get("broker"),
		Currency:  domain.Currency(strings.ToUpper(q.Get("currency"))),
		SortBy:    q.Get("sort_by"),
		SortOrder: portfolio.SortOrder(q.Get("sort_order")),
	}
	if raw := q.Get("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "is_active must be true or false")
			return
		}
		filter.IsActive = &active
	}

	portfolios, err := engine.Coordinator.Portfolios(filter)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nonNil(portfolios))
}

// HandleCreatePortfolio creates a portfolio
func (h *Handler) HandleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	var req domain.CreatePortfolioRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := engine.Service.CreatePortfolio(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, p)
}

// HandleGetPortfolio returns the detail view of one portfolio
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	detail, err := engine.Coordinator.Detail(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, detail)
}

// HandleUpdatePortfolio applies a partial update to a portfolio
func (h *Handler) HandleUpdatePortfolio(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	var req domain.UpdatePortfolioRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := engine.Service.UpdatePortfolio(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// HandleDeletePortfolio deletes a portfolio and its holdings
func (h *Handler) HandleDeletePortfolio(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	out, err := engine.Service.DeletePortfolio(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

// HandleSelectPortfolio makes a portfolio the selected one
func (h *Handler) HandleSelectPortfolio(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	p, err := engine.Coordinator.Select(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// HandleReloadPortfolio refetches one portfolio from storage
func (h *Handler) HandleReloadPortfolio(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	applied, err := engine.Loader.LoadPortfolio(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"applied": applied})
}

// HandleGetSelection returns the selected portfolio, or null
func (h *Handler) HandleGetSelection(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	p, selected, err := engine.Coordinator.Selected()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if !selected {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"portfolio": nil})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"portfolio": p})
}

// HandleClearSelection clears the selected portfolio
func (h *Handler) HandleClearSelection(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	if err := engine.Coordinator.ClearSelection(); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListHoldings lists holdings across the user's portfolios
// Query: portfolio_id, type, sector, currency, sort_by, sort_order
func (h *Handler) HandleListHoldings(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	holdings, err := engine.Coordinator.Holdings(portfolio.HoldingFilter{
		PortfolioID: q.Get("portfolio_id"),
		Type:        domain.HoldingType(strings.ToLower(q.Get("type"))),
		Sector:      q.Get("sector"),
		Currency:    domain.Currency(strings.ToUpper(q.Get("currency"))),
		SortBy:      q.Get("sort_by"),
		SortOrder:   portfolio.SortOrder(q.Get("sort_order")),
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nonNil(holdings))
}

// HandleCreateHolding opens a holding and records its opening buy
func (h *Handler) HandleCreateHolding(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	var req domain.CreateHoldingRequest
	if !h.decode(w, r, &req) {
		return
	}

	holding, err := engine.Service.CreateHolding(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, holding)
}

// HandleUpdateHolding applies a partial update to a holding
func (h *Handler) HandleUpdateHolding(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	var req domain.UpdateHoldingRequest
	if !h.decode(w, r, &req) {
		return
	}

	holding, err := engine.Service.UpdateHolding(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, holding)
}

// HandleDeleteHolding removes a holding. Its transactions are kept.
func (h *Handler) HandleDeleteHolding(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	out, err := engine.Service.DeleteHolding(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

// HandleListTransactions lists the transaction log
// Query: portfolio_id, holding_id, type, symbol, date_from, date_to, sort_by, sort_order
func (h *Handler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := portfolio.TransactionFilter{
		PortfolioID: q.Get("portfolio_id"),
		HoldingID:   q.Get("holding_id"),
		Type:        domain.TransactionType(strings.ToLower(q.Get("type"))),
		Symbol:      q.Get("symbol"),
		SortBy:      q.Get("sort_by"),
		SortOrder:   portfolio.SortOrder(q.Get("sort_order")),
	}

	var err error
	if filter.DateFrom, err = parseDate(q.Get("date_from")); err != nil {
		h.writeError(w, http.StatusBadRequest, "date_from: "+err.Error())
		return
	}
	if filter.DateTo, err = parseDate(q.Get("date_to")); err != nil {
		h.writeError(w, http.StatusBadRequest, "date_to: "+err.Error())
		return
	}

	transactions, err := engine.Coordinator.Transactions(filter)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nonNil(transactions))
}

// HandleAddTransaction records a transaction and reconciles its holding
func (h *Handler) HandleAddTransaction(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	var req domain.CreateTransactionRequest
	if !h.decode(w, r, &req) {
		return
	}

	out, err := engine.Service.AddTransaction(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, out)
}

// HandleGetWatchlist lists the user's watchlist
func (h *Handler) HandleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	items, err := engine.Coordinator.Watchlist()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nonNil(items))
}

// HandleAddWatchlistItem follows a symbol
func (h *Handler) HandleAddWatchlistItem(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	var req domain.CreateWatchlistRequest
	if !h.decode(w, r, &req) {
		return
	}

	item, err := engine.Service.AddWatchlistItem(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, item)
}

// HandleRemoveWatchlistItem unfollows a symbol
func (h *Handler) HandleRemoveWatchlistItem(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	if err := engine.Service.RemoveWatchlistItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetSummary returns the summary across every portfolio of the user
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	summary, err := engine.Coordinator.Summary()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// HandleGetDashboard returns the dashboard view
func (h *Handler) HandleGetDashboard(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	dashboard, err := engine.Coordinator.Dashboard()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dashboard)
}

// HandleReload refetches every record of the user from storage
func (h *Handler) HandleReload(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	applied, err := engine.Loader.LoadAll(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"applied": applied})
}

// engine returns the session of the authenticated user, writing the error
// response itself when there is none
func (h *Handler) engine(w http.ResponseWriter, r *http.Request) (*portfolio.Engine, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthenticated")
		return nil, false
	}

	engine, err := h.sessions.Get(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to open session")
		h.writeDomainError(w, err)
		return nil, false
	}
	return engine, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.log.Debug().Err(err).Str("path", r.URL.Path).Msg("Failed to decode request")
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errors.New("expected RFC 3339 or YYYY-MM-DD")
	}
	return t, nil
}

// nonNil keeps empty listings encoding as [] rather than null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}

	body := map[string]interface{}{"error": err.Error()}
	if fields := domain.FieldErrors(err); len(fields) > 0 {
		body["fields"] = fields
	}
	h.writeJSON(w, status, body)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
