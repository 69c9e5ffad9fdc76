package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/rafflehouse/internal/competition"
)

// ==================== Settings ====================

func (h *Handlers) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Settings.AllSettings(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, settings)
}

func (h *Handlers) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if req.BaseURL != nil {
		if err := h.Settings.SetBaseURL(r.Context(), *req.BaseURL); err != nil {
			respondError(w, err)
			return
		}
	}
	h.handleGetSettings(w, r)
}

func (h *Handlers) handleGetProtocol(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Settings.ProtocolConfig(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, cfg)
}

func (h *Handlers) handleUpdateProtocol(w http.ResponseWriter, r *http.Request) {
	var cfg competition.ProtocolConfig
	if err := decodeJSON(r, &cfg); err != nil {
		respondError(w, err)
		return
	}

	if err := h.Settings.UpdateProtocolConfig(r.Context(), cfg); err != nil {
		respondError(w, err)
		return
	}
	h.handleGetProtocol(w, r)
}

// ==================== Stats & Database ====================

func (h *Handlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Settings.Stats(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, stats)
}

func (h *Handlers) handleResetDatabase(w http.ResponseWriter, r *http.Request) {
	var req DatabaseResetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.Settings.ResetTables(r.Context(), req.Tables)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, ResetResponse{Tables: result.Tables, Message: result.Message})
}

// ==================== Assets ====================

func (h *Handlers) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	var req AssetCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	symbol, err := h.Assets.CreateToken(r.Context(), req.Symbol)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, AssetCreateResponse{Symbol: symbol})
}

func (h *Handlers) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var req AssetCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	symbol, err := h.Assets.CreateCollection(r.Context(), req.Symbol)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, AssetCreateResponse{Symbol: symbol})
}

func (h *Handlers) handleFaucet(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if err := h.Assets.Faucet(r.Context(), req.To, req.Amount); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Native balance credited")
}

func (h *Handlers) handleMintToken(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if err := h.Assets.MintToken(r.Context(), chi.URLParam(r, "symbol"), req.To, req.Amount); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Tokens minted")
}

func (h *Handlers) handleMintItem(w http.ResponseWriter, r *http.Request) {
	var req ItemMintRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	item, err := h.Assets.MintItem(r.Context(), chi.URLParam(r, "symbol"), req.To)
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, ItemMintResponse{Item: item})
}
