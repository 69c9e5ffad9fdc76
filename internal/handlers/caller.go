package handlers

import (
	"net/http"
	"strings"

	"github.com/abrezinsky/rafflehouse/internal/auth"
	"github.com/abrezinsky/rafflehouse/internal/competition"
)

// ErrReservedCaller is returned when a request claims a server-held address
var ErrReservedCaller = &APIError{Status: http.StatusForbidden, Code: ErrCodeForbidden, Message: "Caller address is reserved"}

// WithReservedCallers refuses requests acting as any of addresses, such as
// the randomness coordinator that collects request fees
func WithReservedCallers(addresses ...string) Option {
	return func(h *Handlers) {
		if h.reserved == nil {
			h.reserved = make(map[string]bool, len(addresses))
		}
		for _, addr := range addresses {
			if addr = strings.TrimSpace(addr); addr != "" {
				h.reserved[addr] = true
			}
		}
	}
}

// isReservedCaller reports whether caller is an escrow or a reserved address
func (h *Handlers) isReservedCaller(caller string) bool {
	return strings.HasPrefix(caller, competition.AddressPrefix) || h.reserved[caller]
}

// requireCaller requires a caller address that does not belong to the server.
// Escrow balances only move through competition operations.
func (h *Handlers) requireCaller(next http.Handler) http.Handler {
	return auth.RequireCaller(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.isReservedCaller(auth.CallerFromRequest(r)) {
			respondError(w, ErrReservedCaller)
			return
		}
		next.ServeHTTP(w, r)
	}))
}
