package services

import (
	"context"

	"github.com/abrezinsky/rafflehouse/internal/competition"
	"github.com/abrezinsky/rafflehouse/internal/models"
)

// CompetitionServicer defines the interface for competition operations
type CompetitionServicer interface {
	Create(ctx context.Context, caller string, req CreateCompetition) (*competition.View, error)
	Get(ctx context.Context, id string) (*competition.View, error)
	List(ctx context.Context, status string) ([]competition.View, error)
	Open() []competition.View
	Due() []string
	Start(ctx context.Context, caller, id string) error
	BuyTickets(ctx context.Context, caller, id string, count, value uint64) (uint64, error)
	TransferTicket(ctx context.Context, caller, id, to string, ticket uint64) error
	Execute(ctx context.Context, caller, id string) (competition.ExecuteResult, error)
	TransferFees(ctx context.Context, caller, id string) error
	TransferProceeds(ctx context.Context, caller, id string) error
	ClaimReward(ctx context.Context, caller, id string) error
	WithdrawFunds(ctx context.Context, caller, id string) error
	ClaimRefund(ctx context.Context, caller, id string, tickets []uint64) (uint64, error)
	TicketsOf(ctx context.Context, id, holder string) ([]uint64, error)
	Holders(ctx context.Context, id string) ([]competition.Holding, error)
	OwnerOf(ctx context.Context, id string, ticket uint64) (string, error)
	Events(ctx context.Context, id string, afterSeq uint64) ([]models.EventRecord, error)
	TicketQR(ctx context.Context, id string, ticket uint64) ([]byte, error)
	SetBroadcaster(b Broadcaster)
}

// AssetServicer defines the interface for asset operations
type AssetServicer interface {
	ListAssets(ctx context.Context) *AssetList
	CreateToken(ctx context.Context, symbol string) (string, error)
	CreateCollection(ctx context.Context, symbol string) (string, error)
	Faucet(ctx context.Context, to string, amount uint64) error
	MintToken(ctx context.Context, symbol, to string, amount uint64) error
	MintItem(ctx context.Context, symbol, to string) (uint64, error)
	ApproveToken(ctx context.Context, caller, symbol, spender string, amount uint64) error
	TransferToken(ctx context.Context, caller, symbol, to string, amount uint64) error
	ApproveItem(ctx context.Context, caller, symbol, spender string, item uint64) error
	SetApprovalForAll(ctx context.Context, caller, symbol, operator string, approved bool) error
	Balances(ctx context.Context, owner string) (*Balances, error)
	Allowance(ctx context.Context, symbol, owner, spender string) (uint64, error)
}

// SettingsServicer defines the interface for settings operations
type SettingsServicer interface {
	GetBaseURL(ctx context.Context) (string, error)
	SetBaseURL(ctx context.Context, url string) error
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	ProtocolConfig(ctx context.Context) (competition.ProtocolConfig, error)
	UpdateProtocolConfig(ctx context.Context, cfg competition.ProtocolConfig) error
	AllSettings(ctx context.Context) (*Settings, error)
	Stats(ctx context.Context) (*models.Stats, error)
	ResetTables(ctx context.Context, tables []string) (*ResetTablesResult, error)
}

// Ensure concrete types implement interfaces
var (
	_ CompetitionServicer = (*CompetitionService)(nil)
	_ AssetServicer       = (*AssetService)(nil)
	_ SettingsServicer    = (*SettingsService)(nil)
)
