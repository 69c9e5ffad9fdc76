package competition_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abrezinsky/rafflehouse/internal/competition"
	apperrors "github.com/abrezinsky/rafflehouse/internal/errors"
)

func TestNew_StartsInNew(t *testing.T) {
	f := newFixture(t)
	c := f.create()

	view := c.Snapshot()
	assert.Equal(t, competition.StatusNew, view.Status)
	assert.Equal(t, competition.AddressPrefix+c.ID(), c.Address())
	assert.Equal(t, feeBps, view.FeeBasisPoints)
	assert.Equal(t, "studio-1", view.StudioID)
	assert.Equal(t, "USD", view.RewardToken)
	assert.True(t, view.EndTime.IsZero())
	assert.Equal(t, []competition.EventType{competition.EventCreated}, f.events.types())
}

func TestNew_UsesProvidedID(t *testing.T) {
	f := newFixture(t)
	f.cfg.ID = "fixed"
	c := f.create()
	assert.Equal(t, "fixed", c.ID())
	assert.Equal(t, "competition:fixed", c.Address())
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*competition.Config)
	}{
		{"empty name", func(c *competition.Config) { c.Name = "" }},
		{"empty symbol", func(c *competition.Config) { c.Symbol = "" }},
		{"no studio", func(c *competition.Config) { c.Studio = nil }},
		{"no registry", func(c *competition.Config) { c.Registry = nil }},
		{"no oracle", func(c *competition.Config) { c.Oracle = nil }},
		{"no fee token", func(c *competition.Config) { c.FeeToken = nil }},
		{"zero max tickets", func(c *competition.Config) { c.Limits = competition.Limits{MaxTickets: 0, PerWalletLimit: 1} }},
		{"min above max", func(c *competition.Config) { c.Limits.MinTickets = 300 }},
		{"zero wallet limit", func(c *competition.Config) { c.Limits.PerWalletLimit = 0 }},
		{"zero duration", func(c *competition.Config) { c.Duration = 0 }},
		{"duration below minimum", func(c *competition.Config) { c.Duration = 59 * time.Second }},
		{"native payment without bank", func(c *competition.Config) { c.Native = nil }},
		{"token payment without token", func(c *competition.Config) {
			c.Payment = competition.PaymentSpec{Kind: competition.PaymentFungible, TicketPrice: 1}
		}},
		{"price overflow", func(c *competition.Config) { c.Payment.TicketPrice = math.MaxUint64 / 2 }},
		{"fungible reward without token", func(c *competition.Config) { c.Reward.Token = nil }},
		{"zero fungible reward", func(c *competition.Config) { c.Reward.Amount = 0 }},
		{"item reward without collection", func(c *competition.Config) {
			c.Reward = competition.RewardSpec{Kind: competition.RewardNonFungible, ItemID: 1}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.mutate(&f.cfg)

			_, err := competition.New(f.ctx, f.cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, competition.ErrInvalidParameter)
			assert.Equal(t, apperrors.ErrValidation, apperrors.KindOf(err))
		})
	}
}

func TestNew_MinimumDurationAccepted(t *testing.T) {
	f := newFixture(t)
	f.cfg.Duration = competition.MinDuration
	_, err := competition.New(f.ctx, f.cfg)
	assert.NoError(t, err)
}

func TestNew_RejectsFeeAboveHundredPercent(t *testing.T) {
	f := newFixture(t)
	f.registry.update(func(p *competition.ProtocolConfig) { p.FeeBasisPoints = 10001 })

	_, err := competition.New(f.ctx, f.cfg)
	assert.ErrorIs(t, err, competition.ErrInvalidParameter)
}

func TestNew_SnapshotsFeeRate(t *testing.T) {
	f := newFixture(t)
	c := f.create()

	f.registry.update(func(p *competition.ProtocolConfig) { p.FeeBasisPoints = 9000 })

	assert.Equal(t, feeBps, c.Snapshot().FeeBasisPoints)
}

func TestStart_EscrowsDepositsAndOpens(t *testing.T) {
	f := newFixture(t)
	c := f.create()
	f.approve(c)
	f.events.reset()

	require.NoError(t, c.Start(f.ctx, organizer))

	assert.Equal(t, competition.StatusOpen, c.Status())
	assert.Equal(t, epoch.Add(time.Hour), c.EndTime())
	assert.Equal(t, randomnessFee, f.balance(f.link, c.Address()))
	assert.Equal(t, uint64(1), f.balance(f.usd, c.Address()))
	assert.Zero(t, f.balance(f.link, organizer))
	assert.Zero(t, f.balance(f.usd, organizer))

	assert.Equal(t, []competition.EventType{
		competition.EventRewardTransferred,
		competition.EventStatusChanged,
		competition.EventStarted,
	}, f.events.types())

	deposit, _ := f.events.last(competition.EventRewardTransferred)
	payload := deposit.Payload.(competition.RewardTransferred)
	assert.Equal(t, competition.RewardDeposit, payload.Direction)
	assert.Equal(t, randomnessFee, payload.RandomnessAmount)

	changed, _ := f.events.last(competition.EventStatusChanged)
	assert.Equal(t, competition.StatusOpen, changed.Payload.(competition.StatusChanged).Status)
	require.NotNil(t, changed.State)
	assert.Equal(t, competition.StatusOpen, changed.State.Status)
	assert.Equal(t, randomnessFee, changed.State.RandomnessEscrow)
}

func TestStart_EventSequenceIsMonotonic(t *testing.T) {
	f := newFixture(t)
	f.started()

	var prev uint64
	for _, e := range f.events.events {
		assert.Greater(t, e.Seq, prev)
		prev = e.Seq
	}
}

func TestStart_OnlyOrganizer(t *testing.T) {
	f := newFixture(t)
	c := f.create()
	f.approve(c)

	err := c.Start(f.ctx, alice)
	assert.ErrorIs(t, err, competition.ErrNotOrganizer)
	assert.Equal(t, apperrors.ErrUnauthorized, apperrors.KindOf(err))
	assert.Equal(t, competition.StatusNew, c.Status())
}

func TestStart_OrganizerResolvedAtCallTime(t *testing.T) {
	f := newFixture(t)
	c := f.create()
	f.approve(c)

	f.studio.setOwner("new-owner")
	assert.ErrorIs(t, c.Start(f.ctx, organizer), competition.ErrNotOrganizer)
}

func TestStart_FundingFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture, c *competition.Competition)
		wantErr error
		purpose competition.Purpose
	}{
		{
			name: "randomness fee not approved",
			setup: func(f *fixture, c *competition.Competition) {
				f.usd.Approve(f.ctx, organizer, c.Address(), 1)
			},
			wantErr: competition.ErrInsufficientAllowance,
			purpose: competition.PurposeRandomnessFee,
		},
		{
			name: "randomness fee balance short",
			setup: func(f *fixture, c *competition.Competition) {
				f.approve(c)
				f.link.Transfer(f.ctx, organizer, bob, 1)
			},
			wantErr: competition.ErrInsufficientBalance,
			purpose: competition.PurposeRandomnessFee,
		},
		{
			name: "reward not approved",
			setup: func(f *fixture, c *competition.Competition) {
				f.link.Approve(f.ctx, organizer, c.Address(), randomnessFee)
			},
			wantErr: competition.ErrInsufficientAllowance,
			purpose: competition.PurposeReward,
		},
		{
			name: "reward balance short",
			setup: func(f *fixture, c *competition.Competition) {
				f.approve(c)
				f.usd.Transfer(f.ctx, organizer, bob, 1)
			},
			wantErr: competition.ErrInsufficientReward,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			c := f.create()
			tt.setup(f, c)

			err := c.Start(f.ctx, organizer)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, apperrors.ErrInsufficientFunds, apperrors.KindOf(err))
			if tt.purpose != "" {
				var cerr *competition.Error
				require.True(t, errors.As(err, &cerr))
				assert.Equal(t, tt.purpose, cerr.Purpose)
			}

			assert.Equal(t, competition.StatusNew, c.Status())
			assert.Zero(t, f.balance(f.link, c.Address()))
			assert.Zero(t, f.balance(f.usd, c.Address()))
		})
	}
}

func TestStart_ItemReward(t *testing.T) {
	f := newFixture(t)
	item, err := f.punks.Mint(f.ctx, organizer)
	require.NoError(t, err)
	f.cfg.Reward = competition.RewardSpec{Kind: competition.RewardNonFungible, Collection: f.punks, ItemID: item}

	c := f.create()
	f.link.Approve(f.ctx, organizer, c.Address(), randomnessFee)

	err = c.Start(f.ctx, organizer)
	assert.ErrorIs(t, err, competition.ErrInsufficientAllowance)

	f.approve(c)
	require.NoError(t, c.Start(f.ctx, organizer))

	owner, _ := f.punks.OwnerOf(f.ctx, item)
	assert.Equal(t, c.Address(), owner)
	assert.Equal(t, "PUNK", c.Snapshot().RewardToken)
}

func TestStart_ItemNotOwnedByOrganizer(t *testing.T) {
	f := newFixture(t)
	item, _ := f.punks.Mint(f.ctx, bob)
	f.cfg.Reward = competition.RewardSpec{Kind: competition.RewardNonFungible, Collection: f.punks, ItemID: item}
	c := f.create()
	f.link.Approve(f.ctx, organizer, c.Address(), randomnessFee)

	assert.ErrorIs(t, c.Start(f.ctx, organizer), competition.ErrInsufficientReward)
}

func TestStart_SharedFeeAndRewardToken(t *testing.T) {
	f := newFixture(t)
	f.cfg.Reward = competition.RewardSpec{Kind: competition.RewardFungible, Token: f.link, Amount: 5}
	c := f.create()

	// only enough for the fee
	f.link.Approve(f.ctx, organizer, c.Address(), randomnessFee)
	assert.ErrorIs(t, c.Start(f.ctx, organizer), competition.ErrInsufficientAllowance)

	f.link.Approve(f.ctx, organizer, c.Address(), randomnessFee+5)
	assert.ErrorIs(t, c.Start(f.ctx, organizer), competition.ErrInsufficientReward)

	f.link.Mint(f.ctx, organizer, 5)
	require.NoError(t, c.Start(f.ctx, organizer))
	assert.Equal(t, randomnessFee+5, f.balance(f.link, c.Address()))
}

func TestStart_OnlyOnce(t *testing.T) {
	f := newFixture(t)
	c := f.started()

	err := c.Start(f.ctx, organizer)
	assert.ErrorIs(t, err, competition.ErrInvalidStatus)
	assert.Equal(t, apperrors.ErrInvalidState, apperrors.KindOf(err))
}

func TestStart_ZeroRandomnessFee(t *testing.T) {
	f := newFixture(t)
	f.registry.update(func(p *competition.ProtocolConfig) { p.RandomnessFee = 0 })
	c := f.create()
	f.usd.Approve(f.ctx, organizer, c.Address(), 1)

	require.NoError(t, c.Start(f.ctx, organizer))
	assert.Zero(t, c.Snapshot().RandomnessEscrow)
}

func TestErrorMessage(t *testing.T) {
	err := competition.ErrInsufficientAllowance
	assert.Equal(t, "InsufficientAllowance", err.Error())

	f := newFixture(t)
	c := f.create()
	startErr := c.Start(f.ctx, organizer)
	assert.Contains(t, startErr.Error(), "InsufficientAllowance (randomness_fee)")
}

func TestStatus_TextRoundTrip(t *testing.T) {
	for _, s := range []competition.Status{competition.StatusNew, competition.StatusOpen, competition.StatusSuccess, competition.StatusFailed} {
		b, err := s.MarshalText()
		require.NoError(t, err)
		var parsed competition.Status
		require.NoError(t, parsed.UnmarshalText(b))
		assert.Equal(t, s, parsed)
	}
	assert.True(t, competition.StatusFailed.Terminal())
	assert.False(t, competition.StatusOpen.Terminal())

	_, err := competition.ParseStatus("cancelled")
	assert.Error(t, err)
}
