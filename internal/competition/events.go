package competition

import "time"

// EventType names a competition notification
type EventType string

const (
	EventCreated             EventType = "competition_created"
	EventStarted             EventType = "competition_started"
	EventStatusChanged       EventType = "status_changed"
	EventTicketsMinted       EventType = "tickets_minted"
	EventTicketsBurned       EventType = "tickets_burned"
	EventTicketTransferred   EventType = "ticket_transferred"
	EventRandomnessRequested EventType = "randomness_requested"
	EventDrawExecuted        EventType = "draw_executed"
	EventFeesTransferred     EventType = "fees_transferred"
	EventProceedsTransferred EventType = "proceeds_transferred"
	EventRewardTransferred   EventType = "reward_transferred"
	EventRefunded            EventType = "tickets_refunded"
)

// Event is a committed notification. State is the competition view right
// after the operation that produced the event.
type Event struct {
	Type          EventType `json:"type"`
	CompetitionID string    `json:"competition_id"`
	Seq           uint64    `json:"seq"`
	At            time.Time `json:"at"`
	Payload       any       `json:"payload"`
	State         *View     `json:"-"`
}

// Created is emitted once at construction
type Created struct {
	Name           string      `json:"name"`
	Symbol         string      `json:"symbol"`
	StudioID       string      `json:"studio_id"`
	PaymentKind    PaymentKind `json:"payment_kind"`
	TicketPrice    uint64      `json:"ticket_price"`
	RewardKind     RewardKind  `json:"reward_kind"`
	Limits         Limits      `json:"limits"`
	FeeBasisPoints uint16      `json:"fee_basis_points"`
}

// Started is emitted when the sale window opens
type Started struct {
	Organizer string    `json:"organizer"`
	EndTime   time.Time `json:"end_time"`
}

// StatusChanged carries the new status
type StatusChanged struct {
	Status Status `json:"status"`
}

// TicketsMinted is emitted on purchase
type TicketsMinted struct {
	Buyer       string `json:"buyer"`
	FirstTicket uint64 `json:"first_ticket"`
	Count       uint64 `json:"count"`
	Paid        uint64 `json:"paid"`
}

// TicketsBurned is emitted when tickets are revoked on claim or refund
type TicketsBurned struct {
	Holder  string   `json:"holder"`
	Tickets []uint64 `json:"tickets"`
}

// TicketTransferred is emitted when a ticket changes hands
type TicketTransferred struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Ticket uint64 `json:"ticket"`
}

// RandomnessRequested is emitted when the draw is sent to the oracle
type RandomnessRequested struct {
	RequestID string `json:"request_id"`
	Fee       uint64 `json:"fee"`
}

// DrawExecuted is emitted when the winning ticket is chosen
type DrawExecuted struct {
	StudioID    string `json:"studio_id"`
	Winner      string `json:"winner"`
	Ticket      uint64 `json:"ticket"`
	RequestID   string `json:"request_id"`
	Randomness  string `json:"randomness"`
	TicketsSold uint64 `json:"tickets_sold"`
}

// FeesTransferred is emitted when the protocol fee is paid
type FeesTransferred struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// ProceedsTransferred is emitted when the organizer is paid
type ProceedsTransferred struct {
	To               string `json:"to"`
	Amount           uint64 `json:"amount"`
	RandomnessRefund uint64 `json:"randomness_refund"`
}

// RewardDirection tags reward movements
type RewardDirection string

const (
	RewardDeposit  RewardDirection = "deposit"
	RewardWithdraw RewardDirection = "withdraw"
	RewardClaim    RewardDirection = "claim"
)

// RewardTransferred is emitted whenever the reward moves in or out of escrow
type RewardTransferred struct {
	Direction        RewardDirection `json:"direction"`
	Counterparty     string          `json:"counterparty"`
	Kind             RewardKind      `json:"kind"`
	Amount           uint64          `json:"amount,omitempty"`
	ItemID           uint64          `json:"item_id,omitempty"`
	RandomnessAmount uint64          `json:"randomness_amount,omitempty"`
}

// Refunded is emitted when a holder is refunded on failure
type Refunded struct {
	Holder  string   `json:"holder"`
	Tickets []uint64 `json:"tickets"`
	Amount  uint64   `json:"amount"`
}

// record queues an event for emission once the running operation commits
func (c *Competition) record(t EventType, payload any) {
	c.outbox = append(c.outbox, Event{
		Type:          t,
		CompetitionID: c.id,
		At:            c.clock.Now(),
		Payload:       payload,
	})
}

func (c *Competition) setStatus(s Status) {
	c.status = s
	c.record(EventStatusChanged, StatusChanged{Status: s})
}
