package handlers

// StudioCreateRequest represents a request to create a studio
type StudioCreateRequest struct {
	Name string `json:"name"`
}

// StudioTransferRequest represents a request to hand a studio to a new owner
type StudioTransferRequest struct {
	NewOwner string `json:"new_owner"`
}

// TicketPurchaseRequest represents a request to buy tickets. Value is the
// native amount sent and must be zero for token-priced competitions.
type TicketPurchaseRequest struct {
	Count uint64 `json:"count"`
	Value uint64 `json:"value"`
}

// TicketTransferRequest represents a request to move a ticket
type TicketTransferRequest struct {
	To string `json:"to"`
}

// RefundRequest lists the tickets to refund
type RefundRequest struct {
	Tickets []uint64 `json:"tickets"`
}

// AssetCreateRequest represents a request to register a token or collection
type AssetCreateRequest struct {
	Symbol string `json:"symbol"`
}

// MintRequest represents a request to mint native currency or tokens
type MintRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// ItemMintRequest represents a request to mint a collection item
type ItemMintRequest struct {
	To string `json:"to"`
}

// TokenApproveRequest represents a request to set a token allowance
type TokenApproveRequest struct {
	Spender string `json:"spender"`
	Amount  uint64 `json:"amount"`
}

// TokenTransferRequest represents a request to send tokens
type TokenTransferRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// ItemApproveRequest represents a request to approve one item
type ItemApproveRequest struct {
	Spender string `json:"spender"`
	Item    uint64 `json:"item"`
}

// OperatorRequest represents a request to set or clear an operator
type OperatorRequest struct {
	Operator string `json:"operator"`
	Approved bool   `json:"approved"`
}

// SettingsUpdateRequest represents a request to update settings
type SettingsUpdateRequest struct {
	BaseURL *string `json:"base_url"`
}

// DatabaseResetRequest represents a request to reset database tables
type DatabaseResetRequest struct {
	Tables []string `json:"tables"`
}

// LoginRequest represents an admin login
type LoginRequest struct {
	Password string `json:"password"`
}
