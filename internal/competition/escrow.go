package competition

import (
	"context"
	"math/bits"
)

// CalculateFeesAndProceeds splits total sales into the protocol fee and the
// organizer's proceeds. The fee truncates toward zero.
func CalculateFeesAndProceeds(ticketPrice, sold uint64, feeBps uint16) (fees, proceeds uint64) {
	total := ticketPrice * sold
	hi, lo := bits.Mul64(total, uint64(feeBps))
	fees, _ = bits.Div64(hi, lo, MaxFeeBasisPoints)
	return fees, total - fees
}

// FeesAndProceeds applies CalculateFeesAndProceeds to the current sales
func (c *Competition) FeesAndProceeds() (fees, proceeds uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CalculateFeesAndProceeds(c.payment.TicketPrice, c.tickets.sold(), c.feeBps)
}

// TransferFees pays the protocol fee to the fee destination resolved at call time
func (c *Competition) TransferFees(ctx context.Context, caller string) error {
	return c.run(ctx, func() error {
		if err := c.requireStatus(StatusSuccess); err != nil {
			return err
		}
		if err := c.claimPayout(PayoutFees); err != nil {
			return err
		}
		protocol, err := c.registry.ProtocolConfig(ctx)
		if err != nil {
			c.payouts[PayoutFees] = PayoutPending
			return err
		}
		fees, _ := CalculateFeesAndProceeds(c.payment.TicketPrice, c.tickets.sold(), c.feeBps)
		if err := c.pushPayment(ctx, protocol.FeeDestination, fees); err != nil {
			c.payouts[PayoutFees] = PayoutPending
			return err
		}
		c.record(EventFeesTransferred, FeesTransferred{To: protocol.FeeDestination, Amount: fees})
		c.log.Info("Fees transferred", "to", protocol.FeeDestination, "amount", fees, "caller", caller)
		return nil
	})
}

// TransferProceeds pays the organizer the sales minus fees, plus any unspent randomness fee
func (c *Competition) TransferProceeds(ctx context.Context, caller string) error {
	return c.run(ctx, func() error {
		if err := c.requireStatus(StatusSuccess); err != nil {
			return err
		}
		if err := c.claimPayout(PayoutProceeds); err != nil {
			return err
		}
		organizer, err := c.organizer(ctx)
		if err != nil {
			c.payouts[PayoutProceeds] = PayoutPending
			return err
		}
		residual := c.feeEscrow
		if err := c.returnFeeEscrow(ctx, organizer); err != nil {
			c.payouts[PayoutProceeds] = PayoutPending
			return err
		}
		_, proceeds := CalculateFeesAndProceeds(c.payment.TicketPrice, c.tickets.sold(), c.feeBps)
		if err := c.pushPayment(ctx, organizer, proceeds); err != nil {
			// a retry only owes the proceeds; the residual has already left escrow
			c.payouts[PayoutProceeds] = PayoutPending
			c.log.Error("Proceeds transfer failed after randomness residual returned", "residual", residual, "error", err)
			return err
		}
		c.record(EventProceedsTransferred, ProceedsTransferred{To: organizer, Amount: proceeds, RandomnessRefund: residual})
		c.log.Info("Proceeds transferred", "to", organizer, "amount", proceeds, "randomness_refund", residual, "caller", caller)
		return nil
	})
}

// ClaimReward sends the escrowed reward to the holder of the winning ticket and burns it
func (c *Competition) ClaimReward(ctx context.Context, caller string) error {
	return c.run(ctx, func() error {
		if err := c.requireStatus(StatusSuccess); err != nil {
			return err
		}
		owner, ok := c.tickets.ownerOf(c.winningTicket)
		if !ok || owner != caller {
			return ErrNotWinner
		}

		c.tickets.burn(c.winningTicket)
		if err := c.pushReward(ctx, caller); err != nil {
			c.tickets.restore(c.winningTicket, owner)
			return err
		}
		c.rewardHeld = false

		c.record(EventTicketsBurned, TicketsBurned{Holder: caller, Tickets: []uint64{c.winningTicket}})
		c.record(EventRewardTransferred, RewardTransferred{
			Direction:    RewardClaim,
			Counterparty: caller,
			Kind:         c.reward.Kind,
			Amount:       c.rewardAmount(),
			ItemID:       c.rewardItem(),
		})
		c.log.Info("Reward claimed", "winner", caller, "ticket", c.winningTicket)
		return nil
	})
}

// WithdrawFunds returns the reward and unspent randomness fee to the organizer after failure
func (c *Competition) WithdrawFunds(ctx context.Context, caller string) error {
	return c.run(ctx, func() error {
		if err := c.requireStatus(StatusFailed); err != nil {
			return err
		}
		organizer, err := c.requireOrganizer(ctx, caller)
		if err != nil {
			return err
		}
		if err := c.claimPayout(PayoutFailsafe); err != nil {
			return err
		}

		residual := c.feeEscrow
		if err := c.returnFeeEscrow(ctx, organizer); err != nil {
			c.payouts[PayoutFailsafe] = PayoutPending
			return err
		}
		if c.rewardHeld {
			if err := c.pushReward(ctx, organizer); err != nil {
				c.payouts[PayoutFailsafe] = PayoutPending
				return err
			}
			c.rewardHeld = false
		}

		c.record(EventRewardTransferred, RewardTransferred{
			Direction:        RewardWithdraw,
			Counterparty:     organizer,
			Kind:             c.reward.Kind,
			Amount:           c.rewardAmount(),
			ItemID:           c.rewardItem(),
			RandomnessAmount: residual,
		})
		c.log.Info("Funds withdrawn after failure", "organizer", organizer, "randomness_refund", residual)
		return nil
	})
}

// ClaimRefund burns the caller's listed tickets and refunds their price
func (c *Competition) ClaimRefund(ctx context.Context, caller string, ids []uint64) (uint64, error) {
	var refund uint64
	err := c.run(ctx, func() error {
		if err := c.requireStatus(StatusFailed); err != nil {
			return err
		}
		if len(ids) == 0 {
			return ErrNoTicketsSpecified
		}
		seen := make(map[uint64]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				return ErrDuplicateTicket.withDetail("ticket %d", id)
			}
			seen[id] = struct{}{}
			owner, ok := c.tickets.ownerOf(id)
			if !ok || owner != caller {
				return ErrNotTicketHolder.withDetail("ticket %d", id)
			}
		}

		for _, id := range ids {
			c.tickets.burn(id)
		}
		// len(ids) ≤ sold ≤ MaxTickets, so this cannot overflow
		refund = c.payment.TicketPrice * uint64(len(ids))
		if err := c.pushPayment(ctx, caller, refund); err != nil {
			for _, id := range ids {
				c.tickets.restore(id, caller)
			}
			refund = 0
			return err
		}

		burned := append([]uint64(nil), ids...)
		c.record(EventTicketsBurned, TicketsBurned{Holder: caller, Tickets: burned})
		c.record(EventRefunded, Refunded{Holder: caller, Tickets: burned, Amount: refund})
		c.log.Info("Tickets refunded", "holder", caller, "count", len(ids), "amount", refund)
		return nil
	})
	return refund, err
}

// claimPayout flips a one-shot payout to paid, failing if it already was
func (c *Competition) claimPayout(p Payout) error {
	if c.payouts[p] == PayoutPaid {
		return ErrAlreadyTransferred.withDetail("%s", p)
	}
	c.payouts[p] = PayoutPaid
	return nil
}

func (c *Competition) returnFeeEscrow(ctx context.Context, to string) error {
	if c.feeEscrow == 0 {
		return nil
	}
	if err := c.pushToken(ctx, c.feeToken, to, c.feeEscrow); err != nil {
		return err
	}
	c.feeEscrow = 0
	return nil
}

func (c *Competition) checkTokenFunding(ctx context.Context, token FungibleToken, owner string, need uint64, purpose Purpose) error {
	if need == 0 {
		return nil
	}
	allowance, err := token.Allowance(ctx, owner, c.address)
	if err != nil {
		return &TransferError{Op: "read allowance", Err: err}
	}
	if allowance < need {
		return ErrInsufficientAllowance.forPurpose(purpose).withDetail("need %d, have %d", need, allowance)
	}
	balance, err := token.BalanceOf(ctx, owner)
	if err != nil {
		return &TransferError{Op: "read balance", Err: err}
	}
	if balance < need {
		if purpose == PurposeReward {
			return ErrInsufficientReward.withDetail("need %d, have %d", need, balance)
		}
		return ErrInsufficientBalance.forPurpose(purpose).withDetail("need %d, have %d", need, balance)
	}
	return nil
}

func (c *Competition) checkRewardFunding(ctx context.Context, organizer string) error {
	if c.reward.Kind == RewardNonFungible {
		owner, err := c.reward.Collection.OwnerOf(ctx, c.reward.ItemID)
		if err != nil || owner != organizer {
			return ErrInsufficientReward.withDetail("organizer does not own item %d", c.reward.ItemID)
		}
		approved, err := c.reward.Collection.IsApproved(ctx, c.address, c.reward.ItemID)
		if err != nil {
			return &TransferError{Op: "read item approval", Err: err}
		}
		if !approved {
			return ErrInsufficientAllowance.forPurpose(PurposeReward).withDetail("item %d not approved", c.reward.ItemID)
		}
		return nil
	}

	need := c.reward.Amount
	if c.reward.Token == c.feeToken {
		// both deposits draw on the same allowance
		protocol, err := c.registry.ProtocolConfig(ctx)
		if err != nil {
			return err
		}
		if need+protocol.RandomnessFee < need {
			return ErrInsufficientReward.withDetail("deposit overflows")
		}
		need += protocol.RandomnessFee
	}
	return c.checkTokenFunding(ctx, c.reward.Token, organizer, need, PurposeReward)
}

func (c *Competition) pullReward(ctx context.Context, organizer string) error {
	if c.reward.Kind == RewardNonFungible {
		if err := c.reward.Collection.TransferFrom(ctx, c.address, organizer, c.address, c.reward.ItemID); err != nil {
			return &TransferError{Op: "deposit reward item", Err: err}
		}
		return c.verifyItemOwner(ctx, c.address)
	}
	return c.pullToken(ctx, c.reward.Token, organizer, c.reward.Amount, PurposeReward)
}

func (c *Competition) pushReward(ctx context.Context, to string) error {
	if c.reward.Kind == RewardNonFungible {
		if err := c.reward.Collection.TransferFrom(ctx, c.address, c.address, to, c.reward.ItemID); err != nil {
			return &TransferError{Op: "send reward item", Err: err}
		}
		return c.verifyItemOwner(ctx, to)
	}
	return c.pushToken(ctx, c.reward.Token, to, c.reward.Amount)
}

func (c *Competition) verifyItemOwner(ctx context.Context, want string) error {
	owner, err := c.reward.Collection.OwnerOf(ctx, c.reward.ItemID)
	if err != nil {
		return &TransferError{Op: "verify item owner", Err: err}
	}
	if owner != want {
		return ErrTransferFailed.withDetail("item %d owned by %s after transfer", c.reward.ItemID, owner)
	}
	return nil
}

func (c *Competition) pushPayment(ctx context.Context, to string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if c.payment.Kind == PaymentNative {
		return c.pushNative(ctx, to, amount)
	}
	return c.pushToken(ctx, c.payment.Token, to, amount)
}

// pullToken moves amount from owner into escrow and verifies the balance delta
func (c *Competition) pullToken(ctx context.Context, token FungibleToken, owner string, amount uint64, purpose Purpose) error {
	if amount == 0 {
		return nil
	}
	before, err := token.BalanceOf(ctx, c.address)
	if err != nil {
		return &TransferError{Op: "read escrow balance", Err: err}
	}
	if err := token.TransferFrom(ctx, c.address, owner, c.address, amount); err != nil {
		return &TransferError{Op: "pull " + string(purpose), Err: err}
	}
	after, err := token.BalanceOf(ctx, c.address)
	if err != nil {
		return &TransferError{Op: "read escrow balance", Err: err}
	}
	if after-before != amount {
		return ErrTransferFailed.withDetail("%s: escrow received %d, expected %d", purpose, after-before, amount)
	}
	return nil
}

// pushToken moves amount out of escrow and verifies the balance delta
func (c *Competition) pushToken(ctx context.Context, token FungibleToken, to string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	before, err := token.BalanceOf(ctx, c.address)
	if err != nil {
		return &TransferError{Op: "read escrow balance", Err: err}
	}
	if err := token.Transfer(ctx, c.address, to, amount); err != nil {
		return &TransferError{Op: "transfer " + token.Symbol(), Err: err}
	}
	after, err := token.BalanceOf(ctx, c.address)
	if err != nil {
		return &TransferError{Op: "read escrow balance", Err: err}
	}
	if before-after != amount {
		return ErrTransferFailed.withDetail("escrow sent %d, expected %d", before-after, amount)
	}
	return nil
}

func (c *Competition) pullNative(ctx context.Context, from string, amount uint64) error {
	before, err := c.native.BalanceOf(ctx, c.address)
	if err != nil {
		return &TransferError{Op: "read escrow balance", Err: err}
	}
	if err := c.native.Transfer(ctx, from, c.address, amount); err != nil {
		return &TransferError{Op: "receive payment", Err: err}
	}
	after, err := c.native.BalanceOf(ctx, c.address)
	if err != nil {
		return &TransferError{Op: "read escrow balance", Err: err}
	}
	if after-before != amount {
		return ErrTransferFailed.withDetail("escrow received %d, expected %d", after-before, amount)
	}
	return nil
}

func (c *Competition) pushNative(ctx context.Context, to string, amount uint64) error {
	before, err := c.native.BalanceOf(ctx, c.address)
	if err != nil {
		return &TransferError{Op: "read escrow balance", Err: err}
	}
	if err := c.native.Transfer(ctx, c.address, to, amount); err != nil {
		return &TransferError{Op: "send native value", Err: err}
	}
	after, err := c.native.BalanceOf(ctx, c.address)
	if err != nil {
		return &TransferError{Op: "read escrow balance", Err: err}
	}
	if before-after != amount {
		return ErrTransferFailed.withDetail("escrow sent %d, expected %d", before-after, amount)
	}
	return nil
}
