package competition

import (
	"context"

	"github.com/abrezinsky/rafflehouse/pkg/randomness"
)

// FungibleToken is a balance/allowance asset such as the randomness fee token
type FungibleToken interface {
	Symbol() string
	BalanceOf(ctx context.Context, owner string) (uint64, error)
	Allowance(ctx context.Context, owner, spender string) (uint64, error)
	Approve(ctx context.Context, owner, spender string, amount uint64) error
	Transfer(ctx context.Context, from, to string, amount uint64) error
	TransferFrom(ctx context.Context, spender, from, to string, amount uint64) error
}

// ItemCollection is a non-fungible asset
type ItemCollection interface {
	Symbol() string
	OwnerOf(ctx context.Context, item uint64) (string, error)
	IsApproved(ctx context.Context, spender string, item uint64) (bool, error)
	TransferFrom(ctx context.Context, spender, from, to string, item uint64) error
}

// NativeCurrency is the value attached to calls
type NativeCurrency interface {
	BalanceOf(ctx context.Context, owner string) (uint64, error)
	Transfer(ctx context.Context, from, to string, amount uint64) error
}

// Studio resolves the organizer at point of use
type Studio interface {
	ID() string
	Organizer(ctx context.Context) (string, error)
}

// ConfigResolver returns the live protocol configuration
type ConfigResolver interface {
	ProtocolConfig(ctx context.Context) (ProtocolConfig, error)
}

// Emitter receives events after an operation has committed. Emit is called
// while the competition is locked, so implementations must not call back into it.
type Emitter interface {
	Emit(ctx context.Context, e Event)
}

// EmitterFunc adapts a function to Emitter
type EmitterFunc func(ctx context.Context, e Event)

func (f EmitterFunc) Emit(ctx context.Context, e Event) {
	f(ctx, e)
}

type discardEmitter struct{}

func (discardEmitter) Emit(context.Context, Event) {}

var _ randomness.Consumer = (*Competition)(nil)
