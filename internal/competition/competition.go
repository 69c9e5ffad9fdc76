// Package competition implements the lottery state machine: escrow of the
// reward and randomness fee, ticket issuance, the asynchronous draw, and
// fee, proceeds and refund accounting.
//
// A Competition serializes every operation on its own mutex. Collaborators
// (assets, oracle, registry, studio) are called inside the critical section
// and must not call back into the competition synchronously.
package competition

import (
	"context"
	"math/big"
	"math/bits"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/abrezinsky/rafflehouse/internal/logger"
	"github.com/abrezinsky/rafflehouse/pkg/randomness"
)

// AddressPrefix is prepended to the competition ID to form its escrow address
const AddressPrefix = "competition:"

// Config holds everything needed to construct a competition
type Config struct {
	ID     string // generated when empty
	Name   string
	Symbol string

	Studio   Studio
	Registry ConfigResolver
	Oracle   randomness.Oracle
	FeeToken FungibleToken  // asset the randomness fee is paid in
	Native   NativeCurrency // required for native payment

	Payment  PaymentSpec
	Reward   RewardSpec
	Limits   Limits
	Duration time.Duration

	Clock   clockwork.Clock
	Emitter Emitter
	Log     logger.Logger
}

// Competition is a single lottery instance
type Competition struct {
	mu sync.Mutex

	id       string
	address  string
	name     string
	symbol   string
	studio   Studio
	registry ConfigResolver
	oracle   randomness.Oracle
	feeToken FungibleToken
	native   NativeCurrency
	payment  PaymentSpec
	reward   RewardSpec
	limits   Limits
	duration time.Duration
	feeBps   uint16

	clock   clockwork.Clock
	emitter Emitter
	log     logger.Logger

	status        Status
	createdAt     time.Time
	startedAt     time.Time
	endTime       time.Time
	tickets       *ledger
	winningTicket uint64
	winner        string
	requestID     randomness.RequestID
	requestedAt   time.Time
	randomWord    *big.Int
	payouts       [3]PayoutState
	rewardHeld    bool
	feeEscrow     uint64

	seq    uint64
	outbox []Event
}

// New validates cfg, snapshots the protocol fee rate and returns a competition in StatusNew
func New(ctx context.Context, cfg Config) (*Competition, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	protocol, err := cfg.Registry.ProtocolConfig(ctx)
	if err != nil {
		return nil, err
	}
	if protocol.FeeBasisPoints > MaxFeeBasisPoints {
		return nil, ErrInvalidParameter.withDetail("fee basis points %d above %d", protocol.FeeBasisPoints, MaxFeeBasisPoints)
	}

	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Emitter == nil {
		cfg.Emitter = discardEmitter{}
	}
	if cfg.Log == nil {
		cfg.Log = logger.Discard()
	}

	c := &Competition{
		id:        cfg.ID,
		address:   AddressPrefix + cfg.ID,
		name:      cfg.Name,
		symbol:    cfg.Symbol,
		studio:    cfg.Studio,
		registry:  cfg.Registry,
		oracle:    cfg.Oracle,
		feeToken:  cfg.FeeToken,
		native:    cfg.Native,
		payment:   cfg.Payment,
		reward:    cfg.Reward,
		limits:    cfg.Limits,
		duration:  cfg.Duration,
		feeBps:    protocol.FeeBasisPoints,
		clock:     cfg.Clock,
		emitter:   cfg.Emitter,
		log:       cfg.Log.With("competition_id", cfg.ID),
		status:    StatusNew,
		createdAt: cfg.Clock.Now(),
		tickets:   newLedger(),
	}

	err = c.run(ctx, func() error {
		c.record(EventCreated, Created{
			Name:           c.name,
			Symbol:         c.symbol,
			StudioID:       c.studio.ID(),
			PaymentKind:    c.payment.Kind,
			TicketPrice:    c.payment.TicketPrice,
			RewardKind:     c.reward.Kind,
			Limits:         c.limits,
			FeeBasisPoints: c.feeBps,
		})
		return nil
	})
	return c, err
}

func validate(cfg Config) error {
	switch {
	case cfg.Name == "":
		return ErrInvalidParameter.withDetail("name is required")
	case cfg.Symbol == "":
		return ErrInvalidParameter.withDetail("symbol is required")
	case cfg.Studio == nil:
		return ErrInvalidParameter.withDetail("studio is required")
	case cfg.Registry == nil:
		return ErrInvalidParameter.withDetail("registry is required")
	case cfg.Oracle == nil || cfg.Oracle.Address() == "":
		return ErrInvalidParameter.withDetail("randomness oracle is required")
	case cfg.FeeToken == nil:
		return ErrInvalidParameter.withDetail("randomness fee token is required")
	case cfg.Limits.MaxTickets < 1:
		return ErrInvalidParameter.withDetail("max tickets must be at least 1")
	case cfg.Limits.MinTickets > cfg.Limits.MaxTickets:
		return ErrInvalidParameter.withDetail("min tickets %d above max tickets %d", cfg.Limits.MinTickets, cfg.Limits.MaxTickets)
	case cfg.Limits.PerWalletLimit < 1:
		return ErrInvalidParameter.withDetail("per-wallet limit must be at least 1")
	case cfg.Duration < MinDuration:
		return ErrInvalidParameter.withDetail("duration %s below %s", cfg.Duration, MinDuration)
	}

	switch cfg.Payment.Kind {
	case PaymentNative:
		if cfg.Native == nil {
			return ErrInvalidParameter.withDetail("native currency is required for native payment")
		}
	case PaymentFungible:
		if cfg.Payment.Token == nil {
			return ErrInvalidParameter.withDetail("payment token is required")
		}
	default:
		return ErrInvalidParameter.withDetail("unknown payment kind %d", cfg.Payment.Kind)
	}
	if hi, _ := bits.Mul64(cfg.Payment.TicketPrice, cfg.Limits.MaxTickets); hi != 0 {
		return ErrInvalidParameter.withDetail("ticket price times max tickets overflows")
	}

	switch cfg.Reward.Kind {
	case RewardFungible:
		if cfg.Reward.Token == nil {
			return ErrInvalidParameter.withDetail("reward token is required")
		}
		if cfg.Reward.Amount == 0 {
			return ErrInvalidParameter.withDetail("reward amount must be positive")
		}
	case RewardNonFungible:
		if cfg.Reward.Collection == nil {
			return ErrInvalidParameter.withDetail("reward collection is required")
		}
	default:
		return ErrInvalidParameter.withDetail("unknown reward kind %d", cfg.Reward.Kind)
	}
	return nil
}

// run executes fn under the competition lock. Events recorded by fn are
// emitted in order only if fn succeeds; on error they are discarded.
func (c *Competition) run(ctx context.Context, fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.outbox = c.outbox[:0]
	if err := fn(); err != nil {
		c.outbox = c.outbox[:0]
		return err
	}
	if len(c.outbox) == 0 {
		return nil
	}

	state := c.viewLocked()
	for _, e := range c.outbox {
		c.seq++
		e.Seq = c.seq
		e.State = &state
		c.emitter.Emit(ctx, e)
	}
	c.outbox = c.outbox[:0]
	return nil
}

// ID returns the competition identifier
func (c *Competition) ID() string {
	return c.id
}

// Address returns the escrow address that holds deposits and ticket payments
func (c *Competition) Address() string {
	return c.address
}

// Status returns the current lifecycle status
func (c *Competition) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// TicketsSold returns the number of tickets ever minted
func (c *Competition) TicketsSold() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickets.sold()
}

// EndTime returns the close of the sale window, zero before Start
func (c *Competition) EndTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endTime
}

// Due reports whether the competition is open with its sale window closed
func (c *Competition) Due() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status == StatusOpen && c.clock.Now().After(c.endTime)
}

func (c *Competition) organizer(ctx context.Context) (string, error) {
	return c.studio.Organizer(ctx)
}

func (c *Competition) requireOrganizer(ctx context.Context, caller string) (string, error) {
	organizer, err := c.organizer(ctx)
	if err != nil {
		return "", err
	}
	if caller != organizer {
		return "", ErrNotOrganizer
	}
	return organizer, nil
}

func (c *Competition) requireStatus(want Status) error {
	if c.status != want {
		return ErrInvalidStatus.withDetail("expected %s, got %s", want, c.status)
	}
	return nil
}

// Start moves the competition from New to Open. The organizer must have
// approved the competition for the randomness fee and the reward.
func (c *Competition) Start(ctx context.Context, caller string) error {
	return c.run(ctx, func() error {
		if err := c.requireStatus(StatusNew); err != nil {
			return err
		}
		organizer, err := c.requireOrganizer(ctx, caller)
		if err != nil {
			return err
		}
		protocol, err := c.registry.ProtocolConfig(ctx)
		if err != nil {
			return err
		}
		fee := protocol.RandomnessFee

		if err := c.checkTokenFunding(ctx, c.feeToken, organizer, fee, PurposeRandomnessFee); err != nil {
			return err
		}
		if err := c.checkRewardFunding(ctx, organizer); err != nil {
			return err
		}

		if err := c.pullToken(ctx, c.feeToken, organizer, fee, PurposeRandomnessFee); err != nil {
			return err
		}
		if err := c.pullReward(ctx, organizer); err != nil {
			if fee > 0 {
				if rbErr := c.pushToken(ctx, c.feeToken, organizer, fee); rbErr != nil {
					c.log.Error("Failed to return randomness fee after reward deposit failure", "error", rbErr)
				}
			}
			return err
		}

		now := c.clock.Now()
		c.feeEscrow = fee
		c.rewardHeld = true
		c.startedAt = now
		c.endTime = now.Add(c.duration)

		c.record(EventRewardTransferred, RewardTransferred{
			Direction:        RewardDeposit,
			Counterparty:     organizer,
			Kind:             c.reward.Kind,
			Amount:           c.rewardAmount(),
			ItemID:           c.rewardItem(),
			RandomnessAmount: fee,
		})
		c.setStatus(StatusOpen)
		c.record(EventStarted, Started{Organizer: organizer, EndTime: c.endTime})
		c.log.Info("Competition started", "organizer", organizer, "end_time", c.endTime)
		return nil
	})
}

func (c *Competition) rewardAmount() uint64 {
	if c.reward.Kind == RewardFungible {
		return c.reward.Amount
	}
	return 0
}

func (c *Competition) rewardItem() uint64 {
	if c.reward.Kind == RewardNonFungible {
		return c.reward.ItemID
	}
	return 0
}
