package competition

import (
	"context"
	"sort"
)

// ledger tracks ticket ownership. Ticket IDs are 1-based and sequential;
// a burned ticket keeps its slot with an empty owner.
type ledger struct {
	owners   []string
	holdings map[string]uint64
}

func newLedger() *ledger {
	return &ledger{holdings: make(map[string]uint64)}
}

func (l *ledger) sold() uint64 {
	return uint64(len(l.owners))
}

// mint assigns count new tickets to owner and returns the first ID
func (l *ledger) mint(owner string, count uint64) uint64 {
	first := l.sold() + 1
	for i := uint64(0); i < count; i++ {
		l.owners = append(l.owners, owner)
	}
	l.holdings[owner] += count
	return first
}

// unmint reverts the most recent mint of count tickets to owner
func (l *ledger) unmint(owner string, count uint64) {
	l.owners = l.owners[:l.sold()-count]
	l.release(owner, count)
}

func (l *ledger) ownerOf(id uint64) (string, bool) {
	if id == 0 || id > l.sold() {
		return "", false
	}
	owner := l.owners[id-1]
	return owner, owner != ""
}

func (l *ledger) balanceOf(owner string) uint64 {
	return l.holdings[owner]
}

func (l *ledger) burn(id uint64) {
	owner := l.owners[id-1]
	l.owners[id-1] = ""
	l.release(owner, 1)
}

// restore undoes a burn
func (l *ledger) restore(id uint64, owner string) {
	l.owners[id-1] = owner
	l.holdings[owner]++
}

func (l *ledger) move(id uint64, to string) {
	from := l.owners[id-1]
	l.owners[id-1] = to
	l.release(from, 1)
	l.holdings[to]++
}

func (l *ledger) ticketsOf(owner string) []uint64 {
	var ids []uint64
	for i, o := range l.owners {
		if o == owner {
			ids = append(ids, uint64(i+1))
		}
	}
	return ids
}

func (l *ledger) release(owner string, n uint64) {
	if l.holdings[owner] <= n {
		delete(l.holdings, owner)
		return
	}
	l.holdings[owner] -= n
}

// BuyTickets mints count tickets to caller and settles payment. For native
// payments value is the amount attached to the call; for token payments it
// must be zero and the price is pulled from the caller's allowance.
// It returns the ID of the first minted ticket.
func (c *Competition) BuyTickets(ctx context.Context, caller string, count, value uint64) (uint64, error) {
	var first uint64
	err := c.run(ctx, func() error {
		if c.status != StatusOpen {
			return ErrInvalidStatus.withDetail("expected %s, got %s", StatusOpen, c.status)
		}
		if count == 0 {
			return ErrCannotBuyNothing
		}
		sold := c.tickets.sold()
		if count > c.limits.MaxTickets || sold+count > c.limits.MaxTickets {
			return ErrNoMoreTickets.withDetail("%d of %d sold", sold, c.limits.MaxTickets)
		}
		if c.clock.Now().After(c.endTime) {
			return ErrCompetitionOver
		}
		held := c.tickets.balanceOf(caller)
		if held+count > c.limits.PerWalletLimit {
			return ErrWalletLimitExceeded.withDetail("holding %d, limit %d", held, c.limits.PerWalletLimit)
		}

		// count ≤ MaxTickets and price × MaxTickets is checked at construction
		cost := c.payment.TicketPrice * count

		switch c.payment.Kind {
		case PaymentNative:
			if value != cost {
				return ErrInvalidPaymentAmount.withDetail("expected %d", cost)
			}
		case PaymentFungible:
			if value != 0 {
				return ErrInvalidPaymentAmount.withDetail("expected 0 native value")
			}
			allowance, err := c.payment.Token.Allowance(ctx, caller, c.address)
			if err != nil {
				return &TransferError{Op: "read payment allowance", Err: err}
			}
			if allowance < cost {
				return ErrInsufficientAllowance.forPurpose(PurposePayment).withDetail("need %d, have %d", cost, allowance)
			}
		}

		first = c.tickets.mint(caller, count)

		if err := c.collectPayment(ctx, caller, cost); err != nil {
			c.tickets.unmint(caller, count)
			return err
		}

		c.record(EventTicketsMinted, TicketsMinted{Buyer: caller, FirstTicket: first, Count: count, Paid: cost})
		c.log.Info("Tickets minted", "competition_id", c.id, "buyer", caller, "first", first, "count", count)
		return nil
	})
	return first, err
}

func (c *Competition) collectPayment(ctx context.Context, caller string, cost uint64) error {
	if cost == 0 {
		return nil
	}
	switch c.payment.Kind {
	case PaymentNative:
		return c.pullNative(ctx, caller, cost)
	default:
		return c.pullToken(ctx, c.payment.Token, caller, cost, PurposePayment)
	}
}

// TransferTicket moves a ticket between holders
func (c *Competition) TransferTicket(ctx context.Context, caller, to string, id uint64) error {
	return c.run(ctx, func() error {
		if to == "" || to == c.address {
			return ErrInvalidTicketReceiver
		}
		owner, ok := c.tickets.ownerOf(id)
		if !ok {
			return ErrTicketNotFound.withDetail("ticket %d", id)
		}
		if owner != caller {
			return ErrNotTicketHolder.withDetail("ticket %d", id)
		}
		c.tickets.move(id, to)
		c.record(EventTicketTransferred, TicketTransferred{From: caller, To: to, Ticket: id})
		return nil
	})
}

// OwnerOf returns the current holder of a ticket
func (c *Competition) OwnerOf(id uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.tickets.ownerOf(id)
	if !ok {
		return "", ErrTicketNotFound.withDetail("ticket %d", id)
	}
	return owner, nil
}

// BalanceOf returns how many live tickets holder owns
func (c *Competition) BalanceOf(holder string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickets.balanceOf(holder)
}

// TicketsOf lists the IDs held by holder in ascending order
func (c *Competition) TicketsOf(holder string) []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickets.ticketsOf(holder)
}

// Holders returns every current holder with their ticket count, sorted by address
func (c *Competition) Holders() []Holding {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Holding, 0, len(c.tickets.holdings))
	for addr, n := range c.tickets.holdings {
		out = append(out, Holding{Holder: addr, Tickets: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Holder < out[j].Holder })
	return out
}

// Holding is a holder's live ticket count
type Holding struct {
	Holder  string `json:"holder"`
	Tickets uint64 `json:"tickets"`
}
