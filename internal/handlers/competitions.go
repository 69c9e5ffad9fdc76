package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/rafflehouse/internal/auth"
	"github.com/abrezinsky/rafflehouse/internal/competition"
	"github.com/abrezinsky/rafflehouse/internal/models"
	"github.com/abrezinsky/rafflehouse/internal/services"
)

// ==================== Queries ====================

func (h *Handlers) handleListCompetitions(w http.ResponseWriter, r *http.Request) {
	views, err := h.Competitions.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, err)
		return
	}

	// Ensure we return an empty array, not null
	if views == nil {
		views = []competition.View{}
	}
	respondOK(w, views)
}

func (h *Handlers) handleGetCompetition(w http.ResponseWriter, r *http.Request) {
	view, err := h.Competitions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, view)
}

func (h *Handlers) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	after, err := parseUintQuery(r, "after")
	if err != nil {
		respondError(w, err)
		return
	}

	events, err := h.Competitions.Events(r.Context(), chi.URLParam(r, "id"), after)
	if err != nil {
		respondError(w, err)
		return
	}
	if events == nil {
		events = []models.EventRecord{}
	}
	respondOK(w, events)
}

func (h *Handlers) handleGetHolders(w http.ResponseWriter, r *http.Request) {
	holders, err := h.Competitions.Holders(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	if holders == nil {
		holders = []competition.Holding{}
	}
	respondOK(w, HoldersResponse{Holders: holders})
}

func (h *Handlers) handleGetTickets(w http.ResponseWriter, r *http.Request) {
	holder := r.URL.Query().Get("holder")
	if holder == "" {
		holder = auth.CallerFromRequest(r)
	}
	if holder == "" {
		respondError(w, BadRequest("Missing holder query parameter"))
		return
	}

	tickets, err := h.Competitions.TicketsOf(r.Context(), chi.URLParam(r, "id"), holder)
	if err != nil {
		respondError(w, err)
		return
	}
	if tickets == nil {
		tickets = []uint64{}
	}
	respondOK(w, TicketsResponse{Holder: holder, Tickets: tickets})
}

func (h *Handlers) handleGetTicketOwner(w http.ResponseWriter, r *http.Request) {
	ticket, err := parseUintParam(r, "ticket")
	if err != nil {
		respondError(w, err)
		return
	}

	owner, err := h.Competitions.OwnerOf(r.Context(), chi.URLParam(r, "id"), ticket)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, TicketOwnerResponse{Ticket: ticket, Owner: owner})
}

func (h *Handlers) handleGetTicketQR(w http.ResponseWriter, r *http.Request) {
	ticket, err := parseUintParam(r, "ticket")
	if err != nil {
		respondError(w, err)
		return
	}

	png, err := h.Competitions.TicketQR(r.Context(), chi.URLParam(r, "id"), ticket)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

// ==================== Lifecycle ====================

func (h *Handlers) handleCreateCompetition(w http.ResponseWriter, r *http.Request) {
	var req services.CreateCompetition
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	view, err := h.Competitions.Create(r.Context(), auth.CallerFromRequest(r), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, view)
}

func (h *Handlers) handleStartCompetition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Competitions.Start(r.Context(), auth.CallerFromRequest(r), id); err != nil {
		respondError(w, err)
		return
	}
	h.respondView(w, r, id)
}

func (h *Handlers) handleBuyTickets(w http.ResponseWriter, r *http.Request) {
	var req TicketPurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	first, err := h.Competitions.BuyTickets(r.Context(), auth.CallerFromRequest(r), chi.URLParam(r, "id"), req.Count, req.Value)
	if err != nil {
		respondError(w, err)
		return
	}

	tickets := make([]uint64, 0, req.Count)
	for i := uint64(0); i < req.Count; i++ {
		tickets = append(tickets, first+i)
	}
	respondCreated(w, TicketPurchaseResponse{FirstTicket: first, Tickets: tickets})
}

func (h *Handlers) handleTransferTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := parseUintParam(r, "ticket")
	if err != nil {
		respondError(w, err)
		return
	}
	var req TicketTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if err := h.Competitions.TransferTicket(r.Context(), auth.CallerFromRequest(r), chi.URLParam(r, "id"), req.To, ticket); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, TicketOwnerResponse{Ticket: ticket, Owner: req.To})
}

func (h *Handlers) handleExecute(w http.ResponseWriter, r *http.Request) {
	result, err := h.Competitions.Execute(r.Context(), auth.CallerFromRequest(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, result)
}

func (h *Handlers) handleTransferFees(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Competitions.TransferFees(r.Context(), auth.CallerFromRequest(r), id); err != nil {
		respondError(w, err)
		return
	}
	h.respondView(w, r, id)
}

func (h *Handlers) handleTransferProceeds(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Competitions.TransferProceeds(r.Context(), auth.CallerFromRequest(r), id); err != nil {
		respondError(w, err)
		return
	}
	h.respondView(w, r, id)
}

func (h *Handlers) handleClaimReward(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Competitions.ClaimReward(r.Context(), auth.CallerFromRequest(r), id); err != nil {
		respondError(w, err)
		return
	}
	h.respondView(w, r, id)
}

func (h *Handlers) handleWithdrawFunds(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Competitions.WithdrawFunds(r.Context(), auth.CallerFromRequest(r), id); err != nil {
		respondError(w, err)
		return
	}
	h.respondView(w, r, id)
}

func (h *Handlers) handleClaimRefund(w http.ResponseWriter, r *http.Request) {
	var req RefundRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	amount, err := h.Competitions.ClaimRefund(r.Context(), auth.CallerFromRequest(r), chi.URLParam(r, "id"), req.Tickets)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, RefundResponse{Refunded: amount})
}

// respondView writes the competition state after a successful operation
func (h *Handlers) respondView(w http.ResponseWriter, r *http.Request, id string) {
	view, err := h.Competitions.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, view)
}
