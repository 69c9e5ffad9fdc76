package services

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/rafflehouse/internal/assets"
	"github.com/abrezinsky/rafflehouse/internal/competition"
	apperrors "github.com/abrezinsky/rafflehouse/internal/errors"
	"github.com/abrezinsky/rafflehouse/internal/logger"
	"github.com/abrezinsky/rafflehouse/internal/metrics"
	"github.com/abrezinsky/rafflehouse/internal/models"
	"github.com/abrezinsky/rafflehouse/internal/repository"
	"github.com/abrezinsky/rafflehouse/pkg/randomness"
)

// Broadcaster defines the interface for broadcasting events to clients
type Broadcaster interface {
	BroadcastEvent(e competition.Event)
}

// Registry resolves protocol configuration and studios
type Registry interface {
	competition.ConfigResolver
	Studio(ctx context.Context, id string) (competition.Studio, error)
}

// Registrar is implemented by oracles that route responses by consumer address
type Registrar interface {
	Register(consumer string, receiver randomness.Consumer)
}

// Journal is the persistence the competition service writes through
type Journal interface {
	repository.CompetitionRepository
	repository.EventRepository
	repository.SettingsRepository
}

// CompetitionService creates competitions and runs every operation on them
type CompetitionService struct {
	log      logger.Logger
	repo     Journal
	registry Registry
	book     *assets.Book
	oracle   randomness.Oracle
	feeToken competition.FungibleToken
	clock    clockwork.Clock
	metrics  *metrics.Metrics

	broadcaster Broadcaster

	mu   sync.RWMutex
	live map[string]*competition.Competition

	statusMu sync.Mutex
	statuses map[string]competition.Status
}

// Option configures a CompetitionService
type Option func(*CompetitionService)

// WithClock overrides the clock handed to new competitions
func WithClock(clock clockwork.Clock) Option {
	return func(s *CompetitionService) {
		s.clock = clock
	}
}

// WithMetrics records operations on m instead of a private registry
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *CompetitionService) {
		s.metrics = m
	}
}

// NewCompetitionService creates a new CompetitionService. feeToken is the
// asset randomness fees are paid in.
func NewCompetitionService(log logger.Logger, repo Journal, registry Registry, book *assets.Book, oracle randomness.Oracle, feeToken competition.FungibleToken, opts ...Option) *CompetitionService {
	s := &CompetitionService{
		log:      log,
		repo:     repo,
		registry: registry,
		book:     book,
		oracle:   oracle,
		feeToken: feeToken,
		clock:    clockwork.NewRealClock(),
		live:     make(map[string]*competition.Competition),
		statuses: make(map[string]competition.Status),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	return s
}

// SetBroadcaster sets the broadcaster for sending events to clients
func (s *CompetitionService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// PaymentRequest selects the ticket currency
type PaymentRequest struct {
	Kind        competition.PaymentKind `json:"kind"`
	Token       string                  `json:"token,omitempty"`
	TicketPrice uint64                  `json:"ticket_price"`
}

// RewardRequest selects the escrowed prize
type RewardRequest struct {
	Kind   competition.RewardKind `json:"kind"`
	Token  string                 `json:"token"`
	Amount uint64                 `json:"amount,omitempty"`
	ItemID uint64                 `json:"item_id,omitempty"`
}

// CreateCompetition holds the parameters for a new competition
type CreateCompetition struct {
	StudioID        string             `json:"studio_id"`
	Name            string             `json:"name"`
	Symbol          string             `json:"symbol"`
	Payment         PaymentRequest     `json:"payment"`
	Reward          RewardRequest      `json:"reward"`
	Limits          competition.Limits `json:"limits"`
	DurationSeconds int64              `json:"duration_seconds"`
}

// Create builds a competition for a studio. Only the studio owner may create one.
func (s *CompetitionService) Create(ctx context.Context, caller string, req CreateCompetition) (*competition.View, error) {
	if caller == "" {
		return nil, s.observe("create", ErrCallerRequired)
	}
	studio, err := s.registry.Studio(ctx, req.StudioID)
	if err != nil {
		return nil, s.observe("create", err)
	}
	owner, err := studio.Organizer(ctx)
	if err != nil {
		return nil, s.observe("create", err)
	}
	if owner != caller {
		return nil, s.observe("create", ErrNotStudioOwner)
	}

	payment, err := s.resolvePayment(req.Payment)
	if err != nil {
		return nil, s.observe("create", err)
	}
	reward, err := s.resolveReward(req.Reward)
	if err != nil {
		return nil, s.observe("create", err)
	}

	c, err := competition.New(ctx, competition.Config{
		Name:     req.Name,
		Symbol:   req.Symbol,
		Studio:   studio,
		Registry: s.registry,
		Oracle:   s.oracle,
		FeeToken: s.feeToken,
		Native:   s.book.Native(),
		Payment:  payment,
		Reward:   reward,
		Limits:   req.Limits,
		Duration: time.Duration(req.DurationSeconds) * time.Second,
		Clock:    s.clock,
		Emitter:  competition.EmitterFunc(s.emit),
		Log:      s.log,
	})
	if err != nil {
		return nil, s.observe("create", err)
	}

	if r, ok := s.oracle.(Registrar); ok {
		r.Register(c.Address(), c)
	}
	s.mu.Lock()
	s.live[c.ID()] = c
	s.mu.Unlock()

	s.log.Info("Competition created", "competition_id", c.ID(), "studio_id", req.StudioID, "name", req.Name)
	view := c.Snapshot()
	return &view, nil
}

func (s *CompetitionService) resolvePayment(req PaymentRequest) (competition.PaymentSpec, error) {
	spec := competition.PaymentSpec{Kind: req.Kind, TicketPrice: req.TicketPrice}
	if req.Kind == competition.PaymentFungible {
		token, err := s.book.Token(req.Token)
		if err != nil {
			return spec, err
		}
		spec.Token = token
	}
	return spec, nil
}

func (s *CompetitionService) resolveReward(req RewardRequest) (competition.RewardSpec, error) {
	spec := competition.RewardSpec{Kind: req.Kind, Amount: req.Amount, ItemID: req.ItemID}
	switch req.Kind {
	case competition.RewardFungible:
		token, err := s.book.Token(req.Token)
		if err != nil {
			return spec, err
		}
		spec.Token = token
	case competition.RewardNonFungible:
		collection, err := s.book.Collection(req.Token)
		if err != nil {
			return spec, err
		}
		spec.Collection = collection
	}
	return spec, nil
}

// Live returns the running competition with the given ID
func (s *CompetitionService) Live(ctx context.Context, id string) (*competition.Competition, error) {
	s.mu.RLock()
	c, ok := s.live[id]
	s.mu.RUnlock()
	if ok {
		return c, nil
	}
	if _, err := s.repo.GetCompetition(ctx, id); err == nil {
		return nil, ErrCompetitionNotRunning
	}
	return nil, apperrors.NotFoundf("competition %s not found", id)
}

// Get returns the current view of a competition. Competitions from an
// earlier process are served from the stored read model.
func (s *CompetitionService) Get(ctx context.Context, id string) (*competition.View, error) {
	s.mu.RLock()
	c, ok := s.live[id]
	s.mu.RUnlock()
	if ok {
		view := c.Snapshot()
		return &view, nil
	}

	rec, err := s.repo.GetCompetition(ctx, id)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFoundf("competition %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return decodeView(rec)
}

func decodeView(rec *models.CompetitionRecord) (*competition.View, error) {
	var view competition.View
	if err := json.Unmarshal(rec.View, &view); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal, "corrupt read model for competition "+rec.ID)
	}
	return &view, nil
}

// List returns competitions ordered by creation time, optionally filtered by status name
func (s *CompetitionService) List(ctx context.Context, status string) ([]competition.View, error) {
	if status != "" {
		parsed, err := competition.ParseStatus(status)
		if err != nil {
			return nil, apperrors.Validation(err.Error())
		}
		status = parsed.String()
	}

	records, err := s.repo.ListCompetitions(ctx, status)
	if err != nil {
		return nil, err
	}
	views := make(map[string]competition.View, len(records))
	for i := range records {
		view, err := decodeView(&records[i])
		if err != nil {
			return nil, err
		}
		views[view.ID] = *view
	}

	// live state wins over a possibly stale row
	s.mu.RLock()
	for id, c := range s.live {
		view := c.Snapshot()
		if status != "" && view.Status.String() != status {
			delete(views, id)
			continue
		}
		views[id] = view
	}
	s.mu.RUnlock()

	out := make([]competition.View, 0, len(views))
	for _, v := range views {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Open returns every running competition currently accepting tickets
func (s *CompetitionService) Open() []competition.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []competition.View
	for _, c := range s.live {
		if view := c.Snapshot(); view.Status == competition.StatusOpen {
			out = append(out, view)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Due returns the IDs of running competitions whose sale window has closed
func (s *CompetitionService) Due() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, c := range s.live {
		if c.Due() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Start opens the sale window
func (s *CompetitionService) Start(ctx context.Context, caller, id string) error {
	c, err := s.Live(ctx, id)
	if err != nil {
		return err
	}
	return s.observe("start", c.Start(ctx, caller))
}

// BuyTickets mints count tickets to caller and returns the first ticket ID
func (s *CompetitionService) BuyTickets(ctx context.Context, caller, id string, count, value uint64) (uint64, error) {
	c, err := s.Live(ctx, id)
	if err != nil {
		return 0, err
	}
	first, err := c.BuyTickets(ctx, caller, count, value)
	return first, s.observe("buy_tickets", err)
}

// TransferTicket moves a ticket from caller to another holder
func (s *CompetitionService) TransferTicket(ctx context.Context, caller, id, to string, ticket uint64) error {
	c, err := s.Live(ctx, id)
	if err != nil {
		return err
	}
	return s.observe("transfer_ticket", c.TransferTicket(ctx, caller, to, ticket))
}

// Execute closes the sale and requests the draw or fails the competition
func (s *CompetitionService) Execute(ctx context.Context, caller, id string) (competition.ExecuteResult, error) {
	c, err := s.Live(ctx, id)
	if err != nil {
		return competition.ExecuteResult{}, err
	}
	result, err := c.Execute(ctx, caller)
	return result, s.observe("execute", err)
}

// TransferFees pays the protocol fee
func (s *CompetitionService) TransferFees(ctx context.Context, caller, id string) error {
	c, err := s.Live(ctx, id)
	if err != nil {
		return err
	}
	return s.observe("transfer_fees", c.TransferFees(ctx, caller))
}

// TransferProceeds pays the organizer
func (s *CompetitionService) TransferProceeds(ctx context.Context, caller, id string) error {
	c, err := s.Live(ctx, id)
	if err != nil {
		return err
	}
	return s.observe("transfer_proceeds", c.TransferProceeds(ctx, caller))
}

// ClaimReward sends the reward to the winner
func (s *CompetitionService) ClaimReward(ctx context.Context, caller, id string) error {
	c, err := s.Live(ctx, id)
	if err != nil {
		return err
	}
	return s.observe("claim_reward", c.ClaimReward(ctx, caller))
}

// WithdrawFunds returns the reward and randomness escrow to the organizer
func (s *CompetitionService) WithdrawFunds(ctx context.Context, caller, id string) error {
	c, err := s.Live(ctx, id)
	if err != nil {
		return err
	}
	return s.observe("withdraw_funds", c.WithdrawFunds(ctx, caller))
}

// ClaimRefund burns caller's tickets and refunds their price
func (s *CompetitionService) ClaimRefund(ctx context.Context, caller, id string, tickets []uint64) (uint64, error) {
	c, err := s.Live(ctx, id)
	if err != nil {
		return 0, err
	}
	amount, err := c.ClaimRefund(ctx, caller, tickets)
	return amount, s.observe("claim_refund", err)
}

// TicketsOf returns the ticket IDs held by holder
func (s *CompetitionService) TicketsOf(ctx context.Context, id, holder string) ([]uint64, error) {
	c, err := s.Live(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.TicketsOf(holder), nil
}

// Holders returns every holder with their ticket count
func (s *CompetitionService) Holders(ctx context.Context, id string) ([]competition.Holding, error) {
	c, err := s.Live(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.Holders(), nil
}

// OwnerOf returns the holder of a ticket
func (s *CompetitionService) OwnerOf(ctx context.Context, id string, ticket uint64) (string, error) {
	c, err := s.Live(ctx, id)
	if err != nil {
		return "", err
	}
	return c.OwnerOf(ticket)
}

// Events returns journal entries for a competition after the given sequence number
func (s *CompetitionService) Events(ctx context.Context, id string, afterSeq uint64) ([]models.EventRecord, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx, id, afterSeq)
}

// TicketQR renders a PNG QR code linking to a ticket
func (s *CompetitionService) TicketQR(ctx context.Context, id string, ticket uint64) ([]byte, error) {
	if _, err := s.OwnerOf(ctx, id, ticket); err != nil {
		return nil, err
	}
	baseURL, err := s.repo.GetSetting(ctx, KeyBaseURL)
	if err != nil && err != repository.ErrNotFound {
		return nil, err
	}
	if baseURL == "" {
		return nil, ErrBaseURLNotConfigured
	}
	ticketURL := fmt.Sprintf("%s/competitions/%s/tickets/%d", strings.TrimSuffix(baseURL, "/"), id, ticket)
	return qrcode.Encode(ticketURL, qrcode.Medium, 256)
}

// observe counts a rejected operation by kind and passes err through
func (s *CompetitionService) observe(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := apperrors.KindOf(err)
	s.metrics.OperationErrors.WithLabelValues(op, kind.String()).Inc()
	if kind == apperrors.ErrInternal {
		s.log.Error("Competition operation failed", "operation", op, "error", err)
	} else {
		s.log.Debug("Competition operation rejected", "operation", op, "error", err)
	}
	return err
}
