package competition_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abrezinsky/rafflehouse/internal/competition"
	apperrors "github.com/abrezinsky/rafflehouse/internal/errors"
)

func TestCalculateFeesAndProceeds(t *testing.T) {
	tests := []struct {
		name           string
		price, sold    uint64
		bps            uint16
		fees, proceeds uint64
	}{
		{"five percent", 100, 1, 500, 5, 95},
		{"truncates toward organizer", 33, 1, 500, 1, 32},
		{"zero fee", 100, 10, 0, 0, 1000},
		{"full fee", 100, 10, 10000, 1000, 0},
		{"no sales", 100, 0, 500, 0, 0},
		{"wide intermediate product", math.MaxUint64 / 2, 2, 10000, math.MaxUint64 - 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fees, proceeds := competition.CalculateFeesAndProceeds(tt.price, tt.sold, tt.bps)
			assert.Equal(t, tt.fees, fees)
			assert.Equal(t, tt.proceeds, proceeds)
		})
	}
}

func TestCalculateFeesAndProceeds_Conserves(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 5000; i++ {
		price := uint64(rng.Int63n(1 << 30))
		sold := uint64(rng.Intn(1 << 16))
		bps := uint16(rng.Intn(competition.MaxFeeBasisPoints + 1))

		fees, proceeds := competition.CalculateFeesAndProceeds(price, sold, bps)
		require.Equal(t, price*sold, fees+proceeds)
		require.Equal(t, price*sold*uint64(bps)/competition.MaxFeeBasisPoints, fees)
	}
}

// The reference scenario: one ticket, word 42, native payment and a single-unit reward.
func TestScenario_SingleTicketDraw(t *testing.T) {
	f := newFixture(t)
	c := f.drawn(42, map[string]uint64{alice: 1})

	view := c.Snapshot()
	assert.Equal(t, uint64(1), view.WinningTicket)
	assert.Equal(t, alice, view.Winner)

	fees, proceeds := c.FeesAndProceeds()
	assert.Equal(t, ticketPrice*uint64(feeBps)/10000, fees)
	assert.Equal(t, ticketPrice-fees, proceeds)

	require.NoError(t, c.ClaimReward(f.ctx, alice))
	assert.Equal(t, uint64(1), f.balance(f.usd, alice))
	assert.ErrorIs(t, c.ClaimReward(f.ctx, alice), competition.ErrNotWinner)
	assert.Equal(t, uint64(1), f.balance(f.usd, alice))
}

func TestTransferFees(t *testing.T) {
	f := newFixture(t)
	c := f.drawn(0, map[string]uint64{alice: 2, bob: 2})

	// destination is resolved at call time
	f.registry.update(func(p *competition.ProtocolConfig) { p.FeeDestination = "new-treasury" })

	require.NoError(t, c.TransferFees(f.ctx, "anyone"))
	fees, _ := c.FeesAndProceeds()
	assert.Equal(t, fees, f.nativeBalance("new-treasury"))
	assert.Zero(t, f.nativeBalance(treasury))
	assert.Equal(t, competition.PayoutPaid, c.Snapshot().FeesTransferred)

	err := c.TransferFees(f.ctx, "anyone")
	assert.ErrorIs(t, err, competition.ErrAlreadyTransferred)
	assert.Equal(t, apperrors.ErrAlreadyPaid, apperrors.KindOf(err))
	assert.Equal(t, fees, f.nativeBalance("new-treasury"), "second call moves nothing")
}

func TestTransferProceeds(t *testing.T) {
	f := newFixture(t)
	c := f.drawn(0, map[string]uint64{alice: 2, bob: 1})

	// organizer is resolved at call time
	f.studio.setOwner("heir")

	require.NoError(t, c.TransferProceeds(f.ctx, "anyone"))
	_, proceeds := c.FeesAndProceeds()
	assert.Equal(t, proceeds, f.nativeBalance("heir"))
	assert.Equal(t, randomnessFee, f.balance(f.link, "heir"), "unspent randomness fee returns with the proceeds")
	assert.Zero(t, c.Snapshot().RandomnessEscrow)

	ev, ok := f.events.last(competition.EventProceedsTransferred)
	require.True(t, ok)
	assert.Equal(t, competition.ProceedsTransferred{To: "heir", Amount: proceeds, RandomnessRefund: randomnessFee}, ev.Payload)

	assert.ErrorIs(t, c.TransferProceeds(f.ctx, "anyone"), competition.ErrAlreadyTransferred)
	assert.Equal(t, proceeds, f.nativeBalance("heir"))
}

func TestPayouts_ConserveSales(t *testing.T) {
	f := newFixture(t)
	c := f.drawn(7, map[string]uint64{alice: 2, bob: 2})

	require.NoError(t, c.TransferFees(f.ctx, "keeper"))
	require.NoError(t, c.TransferProceeds(f.ctx, "keeper"))

	assert.Equal(t, 4*ticketPrice, f.nativeBalance(treasury)+f.nativeBalance(organizer))
	assert.Zero(t, f.nativeBalance(c.Address()))
}

func TestPayouts_RequireSuccess(t *testing.T) {
	f := newFixture(t)
	c := f.started()

	assert.ErrorIs(t, c.TransferFees(f.ctx, "x"), competition.ErrInvalidStatus)
	assert.ErrorIs(t, c.TransferProceeds(f.ctx, "x"), competition.ErrInvalidStatus)
	assert.ErrorIs(t, c.ClaimReward(f.ctx, "x"), competition.ErrInvalidStatus)
	assert.ErrorIs(t, c.WithdrawFunds(f.ctx, organizer), competition.ErrInvalidStatus)
	_, err := c.ClaimRefund(f.ctx, alice, []uint64{1})
	assert.ErrorIs(t, err, competition.ErrInvalidStatus)
}

func TestTransferFees_UnverifiedTransferIsRejected(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.usd.Mint(f.ctx, alice, 1000))
	liar := &lyingToken{Token: f.usd}
	f.cfg.Payment = competition.PaymentSpec{Kind: competition.PaymentFungible, Token: liar, TicketPrice: ticketPrice}
	f.cfg.Reward = competition.RewardSpec{Kind: competition.RewardFungible, Token: f.link, Amount: 1}
	require.NoError(t, f.link.Mint(f.ctx, organizer, 1))

	c := f.create()
	require.NoError(t, f.link.Approve(f.ctx, organizer, c.Address(), randomnessFee+1))
	require.NoError(t, c.Start(f.ctx, organizer))
	require.NoError(t, f.usd.Approve(f.ctx, alice, c.Address(), ticketPrice))
	_, err := c.BuyTickets(f.ctx, alice, 1, 0)
	require.NoError(t, err)
	f.closeWindow()
	_, err = c.Execute(f.ctx, "keeper")
	require.NoError(t, err)
	require.NoError(t, f.oracle.Fulfil(f.ctx, c, bigInt(1)))

	liar.lie = true
	err = c.TransferFees(f.ctx, "keeper")
	assert.ErrorIs(t, err, competition.ErrTransferFailed)
	assert.Equal(t, competition.PayoutPending, c.Snapshot().FeesTransferred, "failed payout stays claimable")

	liar.lie = false
	require.NoError(t, c.TransferFees(f.ctx, "keeper"))
	fees, _ := c.FeesAndProceeds()
	assert.Equal(t, fees, f.balance(f.usd, treasury))
}

func TestClaimReward_FollowsTicketTransfer(t *testing.T) {
	f := newFixture(t)
	c := f.drawn(0, map[string]uint64{alice: 1})

	require.NoError(t, c.TransferTicket(f.ctx, alice, bob, 1))
	assert.ErrorIs(t, c.ClaimReward(f.ctx, alice), competition.ErrNotWinner)

	require.NoError(t, c.ClaimReward(f.ctx, bob))
	assert.Equal(t, uint64(1), f.balance(f.usd, bob))

	_, err := c.OwnerOf(1)
	assert.ErrorIs(t, err, competition.ErrTicketNotFound, "winning ticket is burned")
	assert.ErrorIs(t, c.TransferTicket(f.ctx, bob, alice, 1), competition.ErrTicketNotFound)
	assert.False(t, c.Snapshot().RewardHeld)
}

func TestClaimReward_Item(t *testing.T) {
	f := newFixture(t)
	item, _ := f.punks.Mint(f.ctx, organizer)
	f.cfg.Reward = competition.RewardSpec{Kind: competition.RewardNonFungible, Collection: f.punks, ItemID: item}
	c := f.drawn(0, map[string]uint64{bob: 1})

	require.NoError(t, c.ClaimReward(f.ctx, bob))
	owner, _ := f.punks.OwnerOf(f.ctx, item)
	assert.Equal(t, bob, owner)

	ev, _ := f.events.last(competition.EventRewardTransferred)
	payload := ev.Payload.(competition.RewardTransferred)
	assert.Equal(t, competition.RewardClaim, payload.Direction)
	assert.Equal(t, item, payload.ItemID)
}

// Scenario: minimum two, one sold; the holder refunds exactly once.
func TestScenario_RefundAfterFailure(t *testing.T) {
	f := newFixture(t)
	f.cfg.Limits.MinTickets = 2
	c := f.started()
	f.buy(c, alice, 1)
	f.closeWindow()
	res, err := c.Execute(f.ctx, "keeper")
	require.NoError(t, err)
	require.Equal(t, competition.StatusFailed, res.Status)

	before := f.nativeBalance(alice)
	refund, err := c.ClaimRefund(f.ctx, alice, []uint64{1})
	require.NoError(t, err)
	assert.Equal(t, ticketPrice, refund)
	assert.Equal(t, before+ticketPrice, f.nativeBalance(alice))

	_, err = c.ClaimRefund(f.ctx, alice, []uint64{1})
	assert.ErrorIs(t, err, competition.ErrNotTicketHolder)
	assert.Equal(t, apperrors.ErrNotOwner, apperrors.KindOf(err))
	assert.Equal(t, before+ticketPrice, f.nativeBalance(alice))
}

func TestClaimRefund_Partial(t *testing.T) {
	f := newFixture(t)
	c := f.failed(map[string]uint64{alice: 2, bob: 1})

	refund, err := c.ClaimRefund(f.ctx, alice, []uint64{2})
	require.NoError(t, err)
	assert.Equal(t, ticketPrice, refund)
	assert.Equal(t, []uint64{1}, c.TicketsOf(alice))

	refund, err = c.ClaimRefund(f.ctx, alice, []uint64{1})
	require.NoError(t, err)
	assert.Equal(t, ticketPrice, refund)
	assert.Zero(t, c.BalanceOf(alice))
	assert.Equal(t, uint64(3), c.TicketsSold(), "refunds never decrease tickets sold")

	ev, ok := f.events.last(competition.EventRefunded)
	require.True(t, ok)
	assert.Equal(t, competition.Refunded{Holder: alice, Tickets: []uint64{1}, Amount: ticketPrice}, ev.Payload)
}

func TestClaimRefund_Validation(t *testing.T) {
	f := newFixture(t)
	c := f.failed(map[string]uint64{alice: 2, bob: 1})

	_, err := c.ClaimRefund(f.ctx, alice, nil)
	assert.ErrorIs(t, err, competition.ErrNoTicketsSpecified)

	_, err = c.ClaimRefund(f.ctx, alice, []uint64{1, 1})
	assert.ErrorIs(t, err, competition.ErrDuplicateTicket)

	_, err = c.ClaimRefund(f.ctx, alice, []uint64{1, 3})
	assert.ErrorIs(t, err, competition.ErrNotTicketHolder, "all listed tickets must belong to the caller")
	assert.Equal(t, uint64(2), c.BalanceOf(alice), "nothing burned when any ticket is rejected")

	_, err = c.ClaimRefund(f.ctx, alice, []uint64{99})
	assert.ErrorIs(t, err, competition.ErrNotTicketHolder)
}

func TestWithdrawFunds(t *testing.T) {
	f := newFixture(t)
	c := f.failed(map[string]uint64{alice: 1})

	assert.ErrorIs(t, c.WithdrawFunds(f.ctx, alice), competition.ErrNotOrganizer)

	require.NoError(t, c.WithdrawFunds(f.ctx, organizer))
	assert.Equal(t, randomnessFee, f.balance(f.link, organizer))
	assert.Equal(t, uint64(1), f.balance(f.usd, organizer))

	view := c.Snapshot()
	assert.Equal(t, competition.PayoutPaid, view.FailsafeWithdrawn)
	assert.False(t, view.RewardHeld)
	assert.Zero(t, view.RandomnessEscrow)

	assert.ErrorIs(t, c.WithdrawFunds(f.ctx, organizer), competition.ErrAlreadyTransferred)
	assert.Equal(t, uint64(1), f.balance(f.usd, organizer))

	// ticket proceeds stay put for buyers to refund
	assert.Equal(t, ticketPrice, f.nativeBalance(c.Address()))
}

func TestWithdrawFunds_AfterFailsafe(t *testing.T) {
	f := newFixture(t)
	c := f.started()
	f.buy(c, alice, 1)
	f.closeWindow()

	_, err := c.Execute(f.ctx, "keeper")
	require.NoError(t, err)
	f.clock.Advance(competition.FailsafeWindow)
	_, err = c.Execute(f.ctx, "keeper")
	require.NoError(t, err)
	require.Equal(t, competition.StatusFailed, c.Status())

	// the organizer is resolved when withdrawing
	f.studio.setOwner("heir")
	assert.ErrorIs(t, c.WithdrawFunds(f.ctx, organizer), competition.ErrNotOrganizer)
	require.NoError(t, c.WithdrawFunds(f.ctx, "heir"))
	assert.Equal(t, uint64(1), f.balance(f.usd, "heir"))
	assert.Equal(t, randomnessFee, f.balance(f.link, "heir"))

	refund, err := c.ClaimRefund(f.ctx, alice, []uint64{1})
	require.NoError(t, err)
	assert.Equal(t, ticketPrice, refund)
}

func TestWithdrawFunds_Item(t *testing.T) {
	f := newFixture(t)
	item, _ := f.punks.Mint(f.ctx, organizer)
	f.cfg.Reward = competition.RewardSpec{Kind: competition.RewardNonFungible, Collection: f.punks, ItemID: item}
	c := f.failed(nil)

	require.NoError(t, c.WithdrawFunds(f.ctx, organizer))
	owner, _ := f.punks.OwnerOf(f.ctx, item)
	assert.Equal(t, organizer, owner)
}
