package handlers

import (
	"github.com/abrezinsky/rafflehouse/internal/competition"
)

// TicketPurchaseResponse is the response for a ticket purchase
type TicketPurchaseResponse struct {
	FirstTicket uint64   `json:"first_ticket"`
	Tickets     []uint64 `json:"tickets"`
}

// TicketsResponse lists a holder's tickets
type TicketsResponse struct {
	Holder  string   `json:"holder"`
	Tickets []uint64 `json:"tickets"`
}

// TicketOwnerResponse is the response for a ticket owner lookup
type TicketOwnerResponse struct {
	Ticket uint64 `json:"ticket"`
	Owner  string `json:"owner"`
}

// HoldersResponse lists every holder of a competition
type HoldersResponse struct {
	Holders []competition.Holding `json:"holders"`
}

// RefundResponse is the response for a refund claim
type RefundResponse struct {
	Refunded uint64 `json:"refunded"`
}

// ItemMintResponse is the response for an item mint
type ItemMintResponse struct {
	Item uint64 `json:"item"`
}

// AssetCreateResponse is the response for a token or collection registration
type AssetCreateResponse struct {
	Symbol string `json:"symbol"`
}

// AllowanceResponse is the response for an allowance query
type AllowanceResponse struct {
	Owner     string `json:"owner"`
	Spender   string `json:"spender"`
	Allowance uint64 `json:"allowance"`
}

// ResetResponse is the response for a database reset
type ResetResponse struct {
	Tables  []string `json:"tables"`
	Message string   `json:"message"`
}
