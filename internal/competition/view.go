package competition

import "time"

// View is a point-in-time copy of a competition's state
type View struct {
	ID       string `json:"id"`
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	StudioID string `json:"studio_id"`
	Status   Status `json:"status"`

	PaymentKind  PaymentKind `json:"payment_kind"`
	PaymentToken string      `json:"payment_token,omitempty"`
	TicketPrice  uint64      `json:"ticket_price"`

	RewardKind   RewardKind `json:"reward_kind"`
	RewardToken  string     `json:"reward_token"`
	RewardAmount uint64     `json:"reward_amount,omitempty"`
	RewardItemID uint64     `json:"reward_item_id,omitempty"`
	RewardHeld   bool       `json:"reward_held"`

	Limits          Limits `json:"limits"`
	DurationSeconds int64  `json:"duration_seconds"`
	FeeBasisPoints  uint16 `json:"fee_basis_points"`

	CreatedAt time.Time `json:"created_at"`
	StartedAt time.Time `json:"started_at,omitzero"`
	EndTime   time.Time `json:"end_time,omitzero"`

	TicketsSold   uint64    `json:"tickets_sold"`
	WinningTicket uint64    `json:"winning_ticket,omitempty"`
	Winner        string    `json:"winner,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	RequestedAt   time.Time `json:"requested_at,omitzero"`
	Randomness    string    `json:"randomness,omitempty"`

	Fees     uint64 `json:"fees"`
	Proceeds uint64 `json:"proceeds"`

	FeesTransferred     PayoutState `json:"fees_transferred"`
	ProceedsTransferred PayoutState `json:"proceeds_transferred"`
	FailsafeWithdrawn   PayoutState `json:"failsafe_withdrawn"`
	RandomnessEscrow    uint64      `json:"randomness_escrow"`
}

// Snapshot returns the current state
func (c *Competition) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Competition) viewLocked() View {
	fees, proceeds := CalculateFeesAndProceeds(c.payment.TicketPrice, c.tickets.sold(), c.feeBps)
	v := View{
		ID:                  c.id,
		Address:             c.address,
		Name:                c.name,
		Symbol:              c.symbol,
		StudioID:            c.studio.ID(),
		Status:              c.status,
		PaymentKind:         c.payment.Kind,
		TicketPrice:         c.payment.TicketPrice,
		RewardKind:          c.reward.Kind,
		RewardAmount:        c.rewardAmount(),
		RewardItemID:        c.rewardItem(),
		RewardHeld:          c.rewardHeld,
		Limits:              c.limits,
		DurationSeconds:     int64(c.duration / time.Second),
		FeeBasisPoints:      c.feeBps,
		CreatedAt:           c.createdAt,
		StartedAt:           c.startedAt,
		EndTime:             c.endTime,
		TicketsSold:         c.tickets.sold(),
		WinningTicket:       c.winningTicket,
		Winner:              c.winner,
		RequestID:           string(c.requestID),
		RequestedAt:         c.requestedAt,
		Fees:                fees,
		Proceeds:            proceeds,
		FeesTransferred:     c.payouts[PayoutFees],
		ProceedsTransferred: c.payouts[PayoutProceeds],
		FailsafeWithdrawn:   c.payouts[PayoutFailsafe],
		RandomnessEscrow:    c.feeEscrow,
	}
	if c.payment.Kind == PaymentFungible {
		v.PaymentToken = c.payment.Token.Symbol()
	}
	if c.reward.Kind == RewardFungible {
		v.RewardToken = c.reward.Token.Symbol()
	} else {
		v.RewardToken = c.reward.Collection.Symbol()
	}
	if c.randomWord != nil {
		v.Randomness = c.randomWord.String()
	}
	return v
}
