package competition_test

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/abrezinsky/rafflehouse/internal/assets"
	"github.com/abrezinsky/rafflehouse/internal/competition"
	"github.com/abrezinsky/rafflehouse/pkg/randomness"
)

const (
	organizer = "organizer"
	alice     = "alice"
	bob       = "bob"
	treasury  = "treasury"

	ticketPrice   = uint64(100)
	randomnessFee = uint64(10)
	feeBps        = uint16(500)
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stubStudio struct {
	mu    sync.Mutex
	id    string
	owner string
}

func (s *stubStudio) ID() string { return s.id }

func (s *stubStudio) Organizer(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner, nil
}

func (s *stubStudio) setOwner(owner string) {
	s.mu.Lock()
	s.owner = owner
	s.mu.Unlock()
}

type stubRegistry struct {
	mu  sync.Mutex
	cfg competition.ProtocolConfig
}

func (r *stubRegistry) ProtocolConfig(context.Context) (competition.ProtocolConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg, nil
}

func (r *stubRegistry) update(fn func(*competition.ProtocolConfig)) {
	r.mu.Lock()
	fn(&r.cfg)
	r.mu.Unlock()
}

type eventLog struct {
	mu     sync.Mutex
	events []competition.Event
}

func (l *eventLog) Emit(_ context.Context, e competition.Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) types() []competition.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]competition.EventType, len(l.events))
	for i, e := range l.events {
		out[i] = e.Type
	}
	return out
}

func (l *eventLog) last(t competition.EventType) (competition.Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Type == t {
			return l.events[i], true
		}
	}
	return competition.Event{}, false
}

func (l *eventLog) reset() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}

// lyingToken reports success on outgoing transfers without moving anything
type lyingToken struct {
	*assets.Token
	lie bool
}

func (t *lyingToken) Transfer(ctx context.Context, from, to string, amount uint64) error {
	if t.lie {
		return nil
	}
	return t.Token.Transfer(ctx, from, to, amount)
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	clock    *clockwork.FakeClock
	native   *assets.NativeBank
	link     *assets.Token
	usd      *assets.Token
	punks    *assets.Collection
	oracle   *randomness.MockOracle
	studio   *stubStudio
	registry *stubRegistry
	events   *eventLog
	cfg      competition.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		clock:  clockwork.NewFakeClockAt(epoch),
		native: assets.NewNativeBank(),
		link:   assets.NewToken("LINK"),
		usd:    assets.NewToken("USD"),
		punks:  assets.NewCollection("PUNK"),
		oracle: randomness.NewMockOracle(randomness.WithMockAddress("vrf")),
		studio: &stubStudio{id: "studio-1", owner: organizer},
		registry: &stubRegistry{cfg: competition.ProtocolConfig{
			FeeBasisPoints:           feeBps,
			FeeDestination:           treasury,
			RandomnessFee:            randomnessFee,
			RandomnessConfirmations:  3,
			RandomnessCallbackBudget: 100000,
		}},
		events: &eventLog{},
	}
	f.cfg = competition.Config{
		Name:     "Spring Raffle",
		Symbol:   "SPR",
		Studio:   f.studio,
		Registry: f.registry,
		Oracle:   f.oracle,
		FeeToken: f.link,
		Native:   f.native,
		Payment:  competition.PaymentSpec{Kind: competition.PaymentNative, TicketPrice: ticketPrice},
		Reward:   competition.RewardSpec{Kind: competition.RewardFungible, Token: f.usd, Amount: 1},
		Limits:   competition.Limits{MinTickets: 1, MaxTickets: 256, PerWalletLimit: 2},
		Duration: time.Hour,
		Clock:    f.clock,
		Emitter:  f.events,
	}

	require.NoError(t, f.link.Mint(f.ctx, organizer, randomnessFee))
	require.NoError(t, f.usd.Mint(f.ctx, organizer, 1))
	for _, buyer := range []string{alice, bob} {
		require.NoError(t, f.native.Mint(f.ctx, buyer, 10_000))
	}
	return f
}

func (f *fixture) create() *competition.Competition {
	f.t.Helper()
	c, err := competition.New(f.ctx, f.cfg)
	require.NoError(f.t, err)
	return c
}

// approve grants the competition the allowances Start needs
func (f *fixture) approve(c *competition.Competition) {
	f.t.Helper()
	require.NoError(f.t, f.link.Approve(f.ctx, organizer, c.Address(), randomnessFee))
	switch f.cfg.Reward.Kind {
	case competition.RewardFungible:
		require.NoError(f.t, f.cfg.Reward.Token.Approve(f.ctx, organizer, c.Address(), f.cfg.Reward.Amount))
	case competition.RewardNonFungible:
		require.NoError(f.t, f.punks.Approve(f.ctx, organizer, c.Address(), f.cfg.Reward.ItemID))
	}
}

func (f *fixture) started() *competition.Competition {
	f.t.Helper()
	c := f.create()
	f.approve(c)
	require.NoError(f.t, c.Start(f.ctx, organizer))
	return c
}

func (f *fixture) buy(c *competition.Competition, buyer string, count uint64) uint64 {
	f.t.Helper()
	first, err := c.BuyTickets(f.ctx, buyer, count, ticketPrice*count)
	require.NoError(f.t, err)
	return first
}

func (f *fixture) closeWindow() {
	f.clock.Advance(f.cfg.Duration + time.Second)
}

// drawn returns a competition in Success after selling the given tickets
func (f *fixture) drawn(word int64, sales map[string]uint64) *competition.Competition {
	f.t.Helper()
	c := f.started()
	for _, buyer := range []string{alice, bob} {
		if n := sales[buyer]; n > 0 {
			f.buy(c, buyer, n)
		}
	}
	f.closeWindow()
	_, err := c.Execute(f.ctx, "keeper")
	require.NoError(f.t, err)
	require.NoError(f.t, f.oracle.Fulfil(f.ctx, c, bigInt(word)))
	require.Equal(f.t, competition.StatusSuccess, c.Status())
	return c
}

// failed returns a competition in Failed after selling the given tickets below minimum
func (f *fixture) failed(sales map[string]uint64) *competition.Competition {
	f.t.Helper()
	f.cfg.Limits.MinTickets = 10
	c := f.started()
	for _, buyer := range []string{alice, bob} {
		if n := sales[buyer]; n > 0 {
			f.buy(c, buyer, n)
		}
	}
	f.closeWindow()
	res, err := c.Execute(f.ctx, "keeper")
	require.NoError(f.t, err)
	require.Equal(f.t, competition.StatusFailed, res.Status)
	return c
}

func (f *fixture) balance(token *assets.Token, owner string) uint64 {
	f.t.Helper()
	b, err := token.BalanceOf(f.ctx, owner)
	require.NoError(f.t, err)
	return b
}

func (f *fixture) nativeBalance(owner string) uint64 {
	f.t.Helper()
	b, err := f.native.BalanceOf(f.ctx, owner)
	require.NoError(f.t, err)
	return b
}

func bigInt(v int64) *big.Int {
	return big.NewInt(v)
}
