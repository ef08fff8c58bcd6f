package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolios", func(r chi.Router) {
		r.Get("/", h.HandleListPortfolios)
		r.Post("/", h.HandleCreatePortfolio)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGetPortfolio) // Detail view
			r.Put("/", h.HandleUpdatePortfolio)
			r.Delete("/", h.HandleDeletePortfolio)
			r.Post("/select", h.HandleSelectPortfolio)
			r.Post("/reload", h.HandleReloadPortfolio)
		})
	})

	r.Route("/selection", func(r chi.Router) {
		r.Get("/", h.HandleGetSelection)
		r.Delete("/", h.HandleClearSelection)
	})

	r.Route("/holdings", func(r chi.Router) {
		r.Get("/", h.HandleListHoldings)
		r.Post("/", h.HandleCreateHolding)
		r.Patch("/{id}", h.HandleUpdateHolding)
		r.Delete("/{id}", h.HandleDeleteHolding)
	})

	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.HandleListTransactions)
		r.Post("/", h.HandleAddTransaction) // Append-only: no update or delete
	})

	r.Route("/watchlist", func(r chi.Router) {
		r.Get("/", h.HandleGetWatchlist)
		r.Post("/", h.HandleAddWatchlistItem)
		r.Delete("/{id}", h.HandleRemoveWatchlistItem)
	})

	r.Get("/summary", h.HandleGetSummary)
	r.Get("/dashboard", h.HandleGetDashboard)
	r.Post("/reload", h.HandleReload) // Full reload from storage
}
