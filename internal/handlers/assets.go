package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/rafflehouse/internal/auth"
	"github.com/abrezinsky/rafflehouse/internal/models"
)

func (h *Handlers) handleListAssets(w http.ResponseWriter, r *http.Request) {
	respondOK(w, h.Assets.ListAssets(r.Context()))
}

func (h *Handlers) handleGetBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.Assets.Balances(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, balances)
}

func (h *Handlers) handleGetAllowance(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	spender := r.URL.Query().Get("spender")
	if owner == "" || spender == "" {
		respondError(w, BadRequest("owner and spender query parameters are required"))
		return
	}

	allowance, err := h.Assets.Allowance(r.Context(), chi.URLParam(r, "symbol"), owner, spender)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, AllowanceResponse{Owner: owner, Spender: spender, Allowance: allowance})
}

func (h *Handlers) handleApproveToken(w http.ResponseWriter, r *http.Request) {
	var req TokenApproveRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	caller := auth.CallerFromRequest(r)
	symbol := chi.URLParam(r, "symbol")
	if err := h.Assets.ApproveToken(r.Context(), caller, symbol, req.Spender, req.Amount); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, AllowanceResponse{Owner: caller, Spender: req.Spender, Allowance: req.Amount})
}

func (h *Handlers) handleTransferToken(w http.ResponseWriter, r *http.Request) {
	var req TokenTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if err := h.Assets.TransferToken(r.Context(), auth.CallerFromRequest(r), chi.URLParam(r, "symbol"), req.To, req.Amount); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Transfer complete")
}

func (h *Handlers) handleApproveItem(w http.ResponseWriter, r *http.Request) {
	var req ItemApproveRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if err := h.Assets.ApproveItem(r.Context(), auth.CallerFromRequest(r), chi.URLParam(r, "symbol"), req.Spender, req.Item); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Item approved")
}

func (h *Handlers) handleSetOperator(w http.ResponseWriter, r *http.Request) {
	var req OperatorRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if err := h.Assets.SetApprovalForAll(r.Context(), auth.CallerFromRequest(r), chi.URLParam(r, "symbol"), req.Operator, req.Approved); err != nil {
		respondError(w, err)
		return
	}
	if req.Approved {
		respondSuccess(w, "Operator approved")
		return
	}
	respondSuccess(w, "Operator revoked")
}

// ==================== Studios ====================

func (h *Handlers) handleListStudios(w http.ResponseWriter, r *http.Request) {
	studios, err := h.Studios.ListStudios(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if studios == nil {
		studios = []models.Studio{}
	}
	respondOK(w, studios)
}

func (h *Handlers) handleGetStudio(w http.ResponseWriter, r *http.Request) {
	studio, err := h.Studios.GetStudio(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, studio)
}

func (h *Handlers) handleCreateStudio(w http.ResponseWriter, r *http.Request) {
	var req StudioCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	studio, err := h.Studios.CreateStudio(r.Context(), req.Name, auth.CallerFromRequest(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, studio)
}

func (h *Handlers) handleTransferStudio(w http.ResponseWriter, r *http.Request) {
	var req StudioTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.Studios.TransferStudio(r.Context(), id, auth.CallerFromRequest(r), req.NewOwner); err != nil {
		respondError(w, err)
		return
	}

	studio, err := h.Studios.GetStudio(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, studio)
}
