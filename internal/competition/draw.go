package competition

import (
	"context"
	"encoding/hex"
	"math/big"

	"github.com/abrezinsky/rafflehouse/pkg/randomness"
)

// ExecuteResult reports what an execute call did
type ExecuteResult struct {
	Status    Status               `json:"status"`
	RequestID randomness.RequestID `json:"request_id,omitempty"`
}

// Execute closes the sale. It fails the competition when too few tickets
// sold or the failsafe window has passed, and otherwise requests one random
// word from the oracle. The competition stays Open until the response arrives.
func (c *Competition) Execute(ctx context.Context, caller string) (ExecuteResult, error) {
	var result ExecuteResult
	err := c.run(ctx, func() error {
		now := c.clock.Now()
		if c.status != StatusOpen || !now.After(c.endTime) {
			return ErrCannotExecute.withDetail("status %s, window closes at %s", c.status, c.endTime.Format("2006-01-02T15:04:05Z07:00"))
		}

		sold := c.tickets.sold()
		failsafe := now.After(c.endTime.Add(FailsafeWindow))
		if sold == 0 || sold < c.limits.MinTickets || failsafe {
			c.setStatus(StatusFailed)
			result.Status = StatusFailed
			c.log.Info("Competition failed", "tickets_sold", sold, "min_tickets", c.limits.MinTickets, "failsafe", failsafe, "caller", caller)
			return nil
		}
		if c.requestID != "" {
			return ErrDrawPending.withDetail("request %s outstanding since %s", c.requestID, c.requestedAt.Format("2006-01-02T15:04:05Z07:00"))
		}

		id, err := c.requestDraw(ctx)
		if err != nil {
			return err
		}
		c.requestID = id
		c.requestedAt = now
		result = ExecuteResult{Status: StatusOpen, RequestID: id}
		c.log.Info("Draw requested", "request_id", id, "tickets_sold", sold, "caller", caller)
		return nil
	})
	return result, err
}

func (c *Competition) requestDraw(ctx context.Context) (randomness.RequestID, error) {
	protocol, err := c.registry.ProtocolConfig(ctx)
	if err != nil {
		return "", err
	}
	fee := protocol.RandomnessFee
	if fee > c.feeEscrow {
		return "", ErrInsufficientBalance.forPurpose(PurposeRandomnessFee).withDetail("need %d, escrowed %d", fee, c.feeEscrow)
	}

	oracle := c.oracle.Address()
	if fee > 0 {
		if err := c.feeToken.Approve(ctx, c.address, oracle, fee); err != nil {
			return "", &TransferError{Op: "approve randomness fee", Err: err}
		}
	}
	before, err := c.feeToken.BalanceOf(ctx, c.address)
	if err != nil {
		return "", &TransferError{Op: "read escrow balance", Err: err}
	}

	id, reqErr := c.oracle.RequestRandomWords(ctx, randomness.Request{
		Consumer:         c.address,
		CallbackGasLimit: protocol.RandomnessCallbackBudget,
		Confirmations:    protocol.RandomnessConfirmations,
		NumWords:         1,
		Fee:              fee,
	})
	if fee > 0 {
		if err := c.feeToken.Approve(ctx, c.address, oracle, 0); err != nil {
			c.log.Warn("Failed to reset oracle allowance", "error", err)
		}
	}
	if reqErr != nil {
		return "", ErrRandomnessRequest.withDetail("%v", reqErr)
	}

	after, err := c.feeToken.BalanceOf(ctx, c.address)
	if err != nil {
		return "", &TransferError{Op: "read escrow balance", Err: err}
	}
	spent := before - after
	if after > before || spent > c.feeEscrow {
		spent = c.feeEscrow
	}
	c.feeEscrow -= spent

	c.record(EventRandomnessRequested, RandomnessRequested{RequestID: string(id), Fee: spent})
	return id, nil
}

// FulfillRandomWords receives the oracle response and picks the winner as
// words[0] mod ticketsSold + 1. Responses from any sender other than the
// oracle, for any request other than the outstanding one, or after the
// competition has left Open are rejected.
func (c *Competition) FulfillRandomWords(ctx context.Context, sender string, requestID randomness.RequestID, words []*big.Int) error {
	return c.run(ctx, func() error {
		if sender != c.oracle.Address() {
			return ErrNotOracle
		}
		if err := c.requireStatus(StatusOpen); err != nil {
			return err
		}
		if c.requestID == "" || requestID != c.requestID {
			return ErrUnknownRequest.withDetail("request %s", requestID)
		}
		if len(words) == 0 || words[0] == nil {
			return ErrNoRandomWords
		}

		sold := c.tickets.sold()
		ticket := WinningTicket(words[0], sold)
		winner, _ := c.tickets.ownerOf(ticket)

		studio := c.studio.ID()
		c.randomWord = new(big.Int).Set(words[0])
		c.winningTicket = ticket
		c.winner = winner
		c.setStatus(StatusSuccess)
		c.record(EventDrawExecuted, DrawExecuted{
			StudioID:    studio,
			Winner:      winner,
			Ticket:      ticket,
			RequestID:   string(requestID),
			Randomness:  hex.EncodeToString(words[0].Bytes()),
			TicketsSold: sold,
		})
		c.log.Info("Draw executed", "request_id", requestID, "winner", winner, "ticket", ticket, "tickets_sold", sold)
		return nil
	})
}

// WinningTicket maps a random word onto a ticket ID in [1, sold]. sold must be positive.
func WinningTicket(word *big.Int, sold uint64) uint64 {
	n := new(big.Int).SetUint64(sold)
	idx := new(big.Int).Mod(word, n)
	return idx.Uint64() + 1
}
