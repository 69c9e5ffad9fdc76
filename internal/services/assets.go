package services

import (
	"context"

	"github.com/abrezinsky/rafflehouse/internal/assets"
	"github.com/abrezinsky/rafflehouse/internal/logger"
)

// AssetService mints and moves the in-memory assets competitions escrow
type AssetService struct {
	log  logger.Logger
	book *assets.Book
}

// NewAssetService creates a new AssetService
func NewAssetService(log logger.Logger, book *assets.Book) *AssetService {
	return &AssetService{log: log, book: book}
}

// AssetList names every registered token and collection
type AssetList struct {
	Tokens      []string `json:"tokens"`
	Collections []string `json:"collections"`
}

// ListAssets returns the registered symbols
func (s *AssetService) ListAssets(ctx context.Context) *AssetList {
	tokens, collections := s.book.Symbols()
	if tokens == nil {
		tokens = []string{}
	}
	if collections == nil {
		collections = []string{}
	}
	return &AssetList{Tokens: tokens, Collections: collections}
}

// CreateToken registers a fungible token
func (s *AssetService) CreateToken(ctx context.Context, symbol string) (string, error) {
	t, err := s.book.CreateToken(symbol)
	if err != nil {
		return "", err
	}
	s.log.Info("Token created", "symbol", t.Symbol())
	return t.Symbol(), nil
}

// CreateCollection registers a non-fungible collection
func (s *AssetService) CreateCollection(ctx context.Context, symbol string) (string, error) {
	c, err := s.book.CreateCollection(symbol)
	if err != nil {
		return "", err
	}
	s.log.Info("Collection created", "symbol", c.Symbol())
	return c.Symbol(), nil
}

// Faucet mints native currency to an account
func (s *AssetService) Faucet(ctx context.Context, to string, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if err := s.book.Native().Mint(ctx, to, amount); err != nil {
		return err
	}
	s.log.Info("Native currency minted", "to", to, "amount", amount)
	return nil
}

// MintToken mints fungible tokens to an account
func (s *AssetService) MintToken(ctx context.Context, symbol, to string, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	t, err := s.book.Token(symbol)
	if err != nil {
		return err
	}
	if err := t.Mint(ctx, to, amount); err != nil {
		return err
	}
	s.log.Info("Tokens minted", "symbol", t.Symbol(), "to", to, "amount", amount)
	return nil
}

// MintItem mints the next item of a collection to an account and returns its ID
func (s *AssetService) MintItem(ctx context.Context, symbol, to string) (uint64, error) {
	c, err := s.book.Collection(symbol)
	if err != nil {
		return 0, err
	}
	id, err := c.Mint(ctx, to)
	if err != nil {
		return 0, err
	}
	s.log.Info("Item minted", "symbol", c.Symbol(), "to", to, "item_id", id)
	return id, nil
}

// ApproveToken sets spender's allowance over caller's tokens
func (s *AssetService) ApproveToken(ctx context.Context, caller, symbol, spender string, amount uint64) error {
	if caller == "" {
		return ErrCallerRequired
	}
	t, err := s.book.Token(symbol)
	if err != nil {
		return err
	}
	return t.Approve(ctx, caller, spender, amount)
}

// TransferToken moves caller's tokens to another account
func (s *AssetService) TransferToken(ctx context.Context, caller, symbol, to string, amount uint64) error {
	if caller == "" {
		return ErrCallerRequired
	}
	t, err := s.book.Token(symbol)
	if err != nil {
		return err
	}
	return t.Transfer(ctx, caller, to, amount)
}

// ApproveItem lets spender move one of caller's items
func (s *AssetService) ApproveItem(ctx context.Context, caller, symbol, spender string, item uint64) error {
	if caller == "" {
		return ErrCallerRequired
	}
	c, err := s.book.Collection(symbol)
	if err != nil {
		return err
	}
	return c.Approve(ctx, caller, spender, item)
}

// SetApprovalForAll lets operator move every item caller holds in a collection
func (s *AssetService) SetApprovalForAll(ctx context.Context, caller, symbol, operator string, approved bool) error {
	if caller == "" {
		return ErrCallerRequired
	}
	c, err := s.book.Collection(symbol)
	if err != nil {
		return err
	}
	return c.SetApprovalForAll(ctx, caller, operator, approved)
}

// Balances is everything one account holds
type Balances struct {
	Owner  string              `json:"owner"`
	Native uint64              `json:"native"`
	Tokens map[string]uint64   `json:"tokens"`
	Items  map[string][]uint64 `json:"items"`
}

// Balances returns every balance held by owner
func (s *AssetService) Balances(ctx context.Context, owner string) (*Balances, error) {
	native, err := s.book.Native().BalanceOf(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := &Balances{
		Owner:  owner,
		Native: native,
		Tokens: make(map[string]uint64),
		Items:  make(map[string][]uint64),
	}

	tokens, collections := s.book.Symbols()
	for _, symbol := range tokens {
		t, err := s.book.Token(symbol)
		if err != nil {
			return nil, err
		}
		balance, err := t.BalanceOf(ctx, owner)
		if err != nil {
			return nil, err
		}
		if balance > 0 {
			out.Tokens[symbol] = balance
		}
	}
	for _, symbol := range collections {
		c, err := s.book.Collection(symbol)
		if err != nil {
			return nil, err
		}
		if items := c.ItemsOf(owner); len(items) > 0 {
			out.Items[symbol] = items
		}
	}
	return out, nil
}

// Allowance returns how much spender may pull from owner
func (s *AssetService) Allowance(ctx context.Context, symbol, owner, spender string) (uint64, error) {
	t, err := s.book.Token(symbol)
	if err != nil {
		return 0, err
	}
	return t.Allowance(ctx, owner, spender)
}
