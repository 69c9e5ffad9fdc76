package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger) // Custom conditional HTTP logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	if h.Metrics != nil {
		r.Use(h.Metrics.InstrumentHandler)
		r.Handle("/metrics", h.Metrics.Handler())
	}

	// WebSocket stays outside the timeout middleware
	if h.Stream != nil {
		r.Handle("/ws", h.Stream)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Public reads
		r.Get("/api/competitions", h.handleListCompetitions)
		r.Get("/api/competitions/{id}", h.handleGetCompetition)
		r.Get("/api/competitions/{id}/events", h.handleGetEvents)
		r.Get("/api/competitions/{id}/holders", h.handleGetHolders)
		r.Get("/api/competitions/{id}/tickets", h.handleGetTickets)
		r.Get("/api/competitions/{id}/tickets/{ticket}", h.handleGetTicketOwner)
		r.Get("/api/competitions/{id}/tickets/{ticket}/qr", h.handleGetTicketQR)
		r.Get("/api/studios", h.handleListStudios)
		r.Get("/api/studios/{id}", h.handleGetStudio)
		r.Get("/api/assets", h.handleListAssets)
		r.Get("/api/assets/tokens/{symbol}/allowance", h.handleGetAllowance)
		r.Get("/api/accounts/{address}/balances", h.handleGetBalances)

		// Auth routes (public)
		r.Post("/api/admin/login", h.handleLogin)
		r.Post("/api/admin/logout", h.handleLogout)

		// Caller API (X-Caller-Address required, escrow addresses refused)
		r.Group(func(r chi.Router) {
			r.Use(h.requireCaller)

			// Studios
			r.Post("/api/studios", h.handleCreateStudio)
			r.Post("/api/studios/{id}/transfer", h.handleTransferStudio)

			// Competitions
			r.Post("/api/competitions", h.handleCreateCompetition)
			r.Post("/api/competitions/{id}/start", h.handleStartCompetition)
			if h.buyLimiter != nil {
				r.With(h.buyLimiter.Handler).Post("/api/competitions/{id}/tickets", h.handleBuyTickets)
			} else {
				r.Post("/api/competitions/{id}/tickets", h.handleBuyTickets)
			}
			r.Post("/api/competitions/{id}/tickets/{ticket}/transfer", h.handleTransferTicket)
			r.Post("/api/competitions/{id}/execute", h.handleExecute)
			r.Post("/api/competitions/{id}/fees", h.handleTransferFees)
			r.Post("/api/competitions/{id}/proceeds", h.handleTransferProceeds)
			r.Post("/api/competitions/{id}/claim", h.handleClaimReward)
			r.Post("/api/competitions/{id}/withdraw", h.handleWithdrawFunds)
			r.Post("/api/competitions/{id}/refund", h.handleClaimRefund)

			// Assets
			r.Post("/api/assets/tokens/{symbol}/approve", h.handleApproveToken)
			r.Post("/api/assets/tokens/{symbol}/transfer", h.handleTransferToken)
			r.Post("/api/assets/collections/{symbol}/approve", h.handleApproveItem)
			r.Post("/api/assets/collections/{symbol}/operators", h.handleSetOperator)
		})

		// Admin API (protected)
		r.Group(func(r chi.Router) {
			r.Use(h.Auth.RequireAuthAPI)

			// Settings
			r.Get("/api/admin/settings", h.handleGetSettings)
			r.Put("/api/admin/settings", h.handleUpdateSettings)
			r.Get("/api/admin/protocol", h.handleGetProtocol)
			r.Put("/api/admin/protocol", h.handleUpdateProtocol)

			// Stats & Database Management
			r.Get("/api/admin/stats", h.handleGetStats)
			r.Post("/api/admin/reset-database", h.handleResetDatabase)

			// Assets
			r.Post("/api/admin/tokens", h.handleCreateToken)
			r.Post("/api/admin/tokens/{symbol}/mint", h.handleMintToken)
			r.Post("/api/admin/collections", h.handleCreateCollection)
			r.Post("/api/admin/collections/{symbol}/mint", h.handleMintItem)
			r.Post("/api/admin/faucet", h.handleFaucet)
		})
	})

	return r
}
