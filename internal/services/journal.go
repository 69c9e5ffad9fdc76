package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/abrezinsky/rafflehouse/internal/competition"
	"github.com/abrezinsky/rafflehouse/internal/models"
)

// emit runs under the competition lock for every committed event. It must
// not call back into the competition or take the service's competition map lock.
func (s *CompetitionService) emit(ctx context.Context, e competition.Event) {
	// the journal write outlives a cancelled request
	ctx = context.WithoutCancel(ctx)

	if err := s.journal(ctx, e); err != nil {
		s.metrics.JournalErrors.Inc()
		s.log.Error("Failed to journal competition event",
			"competition_id", e.CompetitionID, "seq", e.Seq, "type", e.Type, "error", err)
	}
	s.record(e)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastEvent(e)
	}
}

func (s *CompetitionService) journal(ctx context.Context, e competition.Event) error {
	if e.State == nil {
		return nil
	}
	view, err := json.Marshal(e.State)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return err
	}

	rec := models.CompetitionRecord{
		ID:          e.State.ID,
		StudioID:    e.State.StudioID,
		Name:        e.State.Name,
		Symbol:      e.State.Symbol,
		Status:      e.State.Status.String(),
		TicketsSold: e.State.TicketsSold,
		View:        view,
		CreatedAt:   e.State.CreatedAt,
		UpdatedAt:   e.At,
	}
	if !e.State.EndTime.IsZero() {
		end := e.State.EndTime
		rec.EndTime = &end
	}

	return s.repo.RecordEvent(ctx, rec, models.EventRecord{
		EventID:       uuid.NewString(),
		CompetitionID: e.CompetitionID,
		Seq:           e.Seq,
		Type:          string(e.Type),
		Payload:       payload,
		At:            e.At,
	})
}

// record updates metrics for one event
func (s *CompetitionService) record(e competition.Event) {
	m := s.metrics
	switch p := e.Payload.(type) {
	case competition.Created:
		m.CompetitionsCreated.Inc()
		s.transition(e.CompetitionID, competition.StatusNew, true)
	case competition.StatusChanged:
		s.transition(e.CompetitionID, p.Status, false)
		if p.Status == competition.StatusFailed {
			m.DrawsCompleted.WithLabelValues(p.Status.String()).Inc()
		}
	case competition.TicketsMinted:
		m.TicketsSold.Add(float64(p.Count))
	case competition.RandomnessRequested:
		m.DrawsRequested.Inc()
	case competition.DrawExecuted:
		m.DrawsCompleted.WithLabelValues(competition.StatusSuccess.String()).Inc()
	case competition.FeesTransferred:
		m.Payouts.WithLabelValues(competition.PayoutFees.String()).Inc()
	case competition.ProceedsTransferred:
		m.Payouts.WithLabelValues(competition.PayoutProceeds.String()).Inc()
	case competition.RewardTransferred:
		switch p.Direction {
		case competition.RewardClaim:
			m.Payouts.WithLabelValues("reward").Inc()
		case competition.RewardWithdraw:
			m.Payouts.WithLabelValues(competition.PayoutFailsafe.String()).Inc()
		}
	case competition.Refunded:
		m.Payouts.WithLabelValues("refund").Inc()
		m.TicketsRefunded.Add(float64(len(p.Tickets)))
	}
}

func (s *CompetitionService) transition(id string, to competition.Status, created bool) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	from, known := s.statuses[id]
	s.statuses[id] = to
	if created || !known {
		s.metrics.Transition("", to.String())
		return
	}
	s.metrics.Transition(from.String(), to.String())
}
