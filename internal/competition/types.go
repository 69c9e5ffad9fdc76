package competition

import (
	"fmt"
	"strings"
	"time"
)

// MinDuration is the shortest allowed sale window
const MinDuration = 60 * time.Second

// FailsafeWindow is how long after the sale window a stalled draw is forced into failure
const FailsafeWindow = 30 * 24 * time.Hour

// MaxFeeBasisPoints is 100%
const MaxFeeBasisPoints = 10000

// Status is the lifecycle state of a competition
type Status int

const (
	StatusNew Status = iota
	StatusOpen
	StatusSuccess
	StatusFailed
)

var statusNames = [...]string{"new", "open", "success", "failed"}

func (s Status) String() string {
	if int(s) < len(statusNames) && s >= 0 {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Terminal reports whether no further status change is possible
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus converts a status name back to a Status
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if strings.EqualFold(n, name) {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", name)
}

// PaymentKind selects how tickets are paid for
type PaymentKind int

const (
	PaymentNative PaymentKind = iota
	PaymentFungible
)

func (k PaymentKind) String() string {
	if k == PaymentFungible {
		return "fungible"
	}
	return "native"
}

func (k PaymentKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PaymentKind) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "native":
		*k = PaymentNative
	case "fungible", "token":
		*k = PaymentFungible
	default:
		return fmt.Errorf("unknown payment kind %q", string(b))
	}
	return nil
}

// RewardKind selects what the winner receives
type RewardKind int

const (
	RewardFungible RewardKind = iota
	RewardNonFungible
)

func (k RewardKind) String() string {
	if k == RewardNonFungible {
		return "non_fungible"
	}
	return "fungible"
}

func (k RewardKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *RewardKind) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "fungible", "token":
		*k = RewardFungible
	case "non_fungible", "nft", "item":
		*k = RewardNonFungible
	default:
		return fmt.Errorf("unknown reward kind %q", string(b))
	}
	return nil
}

// PaymentSpec describes the ticket price and currency
type PaymentSpec struct {
	Kind        PaymentKind
	Token       FungibleToken // required for PaymentFungible
	TicketPrice uint64
}

// RewardSpec describes the escrowed prize
type RewardSpec struct {
	Kind       RewardKind
	Token      FungibleToken  // required for RewardFungible
	Amount     uint64         // fungible amount
	Collection ItemCollection // required for RewardNonFungible
	ItemID     uint64
}

// Limits bound ticket supply
type Limits struct {
	MinTickets     uint64 `json:"min_tickets" yaml:"min_tickets"`
	MaxTickets     uint64 `json:"max_tickets" yaml:"max_tickets"`
	PerWalletLimit uint64 `json:"per_wallet_limit" yaml:"per_wallet_limit"`
}

// Payout identifies one of the one-shot outgoing transfers
type Payout int

const (
	PayoutFees Payout = iota
	PayoutProceeds
	PayoutFailsafe
)

func (p Payout) String() string {
	switch p {
	case PayoutFees:
		return "fees"
	case PayoutProceeds:
		return "proceeds"
	case PayoutFailsafe:
		return "failsafe_withdrawal"
	}
	return fmt.Sprintf("payout(%d)", int(p))
}

// PayoutState tracks a one-shot payout
type PayoutState int

const (
	PayoutPending PayoutState = iota
	PayoutPaid
)

func (s PayoutState) String() string {
	if s == PayoutPaid {
		return "paid"
	}
	return "pending"
}

func (s PayoutState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *PayoutState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "paid":
		*s = PayoutPaid
	case "pending", "":
		*s = PayoutPending
	default:
		return fmt.Errorf("unknown payout state %q", string(b))
	}
	return nil
}

// Purpose tags a funding requirement so shortfalls can be told apart
type Purpose string

const (
	PurposeRandomnessFee Purpose = "randomness_fee"
	PurposeReward        Purpose = "reward"
	PurposePayment       Purpose = "payment"
)

// ProtocolConfig is the registry-wide configuration a competition reads
type ProtocolConfig struct {
	FeeBasisPoints           uint16 `json:"fee_basis_points" yaml:"fee_basis_points"`
	FeeDestination           string `json:"fee_destination" yaml:"fee_destination"`
	RandomnessFee            uint64 `json:"randomness_fee" yaml:"randomness_fee"`
	RandomnessConfirmations  uint16 `json:"randomness_confirmations" yaml:"randomness_confirmations"`
	RandomnessCallbackBudget uint32 `json:"randomness_callback_budget" yaml:"randomness_callback_budget"`
}
