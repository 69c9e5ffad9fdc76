// Package assets provides in-memory ledgers for the native currency,
// fungible tokens and non-fungible item collections that competitions
// escrow and pay out.
package assets

import (
	"context"
	"fmt"
	"sort"
	"sync"

	apperrors "github.com/abrezinsky/rafflehouse/internal/errors"
)

// Asset errors
var (
	ErrInsufficientBalance   = &apperrors.Error{Kind: apperrors.ErrInsufficientFunds, Message: "insufficient balance"}
	ErrInsufficientAllowance = &apperrors.Error{Kind: apperrors.ErrInsufficientFunds, Message: "insufficient allowance"}
	ErrInvalidAddress        = &apperrors.Error{Kind: apperrors.ErrValidation, Message: "invalid address"}
	ErrOverflow              = &apperrors.Error{Kind: apperrors.ErrValidation, Message: "amount overflows"}
	ErrUnknownItem           = &apperrors.Error{Kind: apperrors.ErrNotFound, Message: "unknown item"}
	ErrNotItemOwner          = &apperrors.Error{Kind: apperrors.ErrNotOwner, Message: "not the item owner"}
	ErrNotApproved           = &apperrors.Error{Kind: apperrors.ErrUnauthorized, Message: "spender not approved"}
	ErrItemExists            = &apperrors.Error{Kind: apperrors.ErrConflict, Message: "item already minted"}
	ErrUnknownAsset          = &apperrors.Error{Kind: apperrors.ErrNotFound, Message: "unknown asset"}
	ErrAssetExists           = &apperrors.Error{Kind: apperrors.ErrConflict, Message: "asset already exists"}
	ErrInvalidSymbol         = &apperrors.Error{Kind: apperrors.ErrValidation, Message: "invalid symbol"}
)

// balances is a mutex-free balance map; callers hold the owning lock
type balances map[string]uint64

func (b balances) credit(to string, amount uint64) error {
	if b[to]+amount < b[to] {
		return ErrOverflow
	}
	b[to] += amount
	return nil
}

func (b balances) move(from, to string, amount uint64) error {
	if to == "" {
		return ErrInvalidAddress
	}
	if b[from] < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientBalance, from, b[from], amount)
	}
	if from == to {
		return nil
	}
	if err := b.credit(to, amount); err != nil {
		return err
	}
	b[from] -= amount
	return nil
}

// NativeBank holds native currency balances
type NativeBank struct {
	mu       sync.Mutex
	balances balances
	supply   uint64
}

// NewNativeBank creates an empty bank
func NewNativeBank() *NativeBank {
	return &NativeBank{balances: make(balances)}
}

// Mint credits new currency to an account
func (n *NativeBank) Mint(_ context.Context, to string, amount uint64) error {
	if to == "" {
		return ErrInvalidAddress
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.supply+amount < n.supply {
		return ErrOverflow
	}
	if err := n.balances.credit(to, amount); err != nil {
		return err
	}
	n.supply += amount
	return nil
}

// BalanceOf returns the balance of owner
func (n *NativeBank) BalanceOf(_ context.Context, owner string) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.balances[owner], nil
}

// Transfer moves currency between accounts
func (n *NativeBank) Transfer(_ context.Context, from, to string, amount uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.balances.move(from, to, amount)
}

// Supply returns the total minted currency
func (n *NativeBank) Supply() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.supply
}

// Token is a fungible token with allowances
type Token struct {
	mu         sync.Mutex
	symbol     string
	balances   balances
	allowances map[string]map[string]uint64
	supply     uint64
}

// NewToken creates a token with no holders
func NewToken(symbol string) *Token {
	return &Token{
		symbol:     symbol,
		balances:   make(balances),
		allowances: make(map[string]map[string]uint64),
	}
}

// Symbol returns the token ticker
func (t *Token) Symbol() string {
	return t.symbol
}

// Mint credits new tokens to an account
func (t *Token) Mint(_ context.Context, to string, amount uint64) error {
	if to == "" {
		return ErrInvalidAddress
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.supply+amount < t.supply {
		return ErrOverflow
	}
	if err := t.balances.credit(to, amount); err != nil {
		return err
	}
	t.supply += amount
	return nil
}

// BalanceOf returns the balance of owner
func (t *Token) BalanceOf(_ context.Context, owner string) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[owner], nil
}

// Allowance returns how much spender may pull from owner
func (t *Token) Allowance(_ context.Context, owner, spender string) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allowances[owner][spender], nil
}

// Approve sets spender's allowance over owner's tokens, replacing any previous value
func (t *Token) Approve(_ context.Context, owner, spender string, amount uint64) error {
	if owner == "" || spender == "" {
		return ErrInvalidAddress
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if amount == 0 {
		delete(t.allowances[owner], spender)
		return nil
	}
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[string]uint64)
	}
	t.allowances[owner][spender] = amount
	return nil
}

// Transfer moves tokens owned by from
func (t *Token) Transfer(_ context.Context, from, to string, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances.move(from, to, amount)
}

// TransferFrom moves tokens on behalf of from, consuming spender's allowance
func (t *Token) TransferFrom(_ context.Context, spender, from, to string, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if spender != from {
		allowed := t.allowances[from][spender]
		if allowed < amount {
			return fmt.Errorf("%w: %s may spend %d of %s, needs %d", ErrInsufficientAllowance, spender, allowed, from, amount)
		}
		if err := t.balances.move(from, to, amount); err != nil {
			return err
		}
		if allowed-amount == 0 {
			delete(t.allowances[from], spender)
		} else {
			t.allowances[from][spender] = allowed - amount
		}
		return nil
	}
	return t.balances.move(from, to, amount)
}

// Supply returns the total minted tokens
func (t *Token) Supply() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.supply
}

// Holders lists non-zero balances sorted by address
func (t *Token) Holders() []Balance {
	t.mu.Lock()
	defer t.mu.Unlock()
	return sortedBalances(t.balances)
}

// Balance is one account's holding
type Balance struct {
	Owner  string `json:"owner"`
	Amount uint64 `json:"amount"`
}

func sortedBalances(b balances) []Balance {
	out := make([]Balance, 0, len(b))
	for owner, amount := range b {
		if amount > 0 {
			out = append(out, Balance{Owner: owner, Amount: amount})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out
}
