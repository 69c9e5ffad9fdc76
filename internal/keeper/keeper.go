// Package keeper periodically executes competitions whose sale window has closed.
package keeper

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"github.com/abrezinsky/rafflehouse/internal/competition"
	apperrors "github.com/abrezinsky/rafflehouse/internal/errors"
	"github.com/abrezinsky/rafflehouse/internal/logger"
	"github.com/abrezinsky/rafflehouse/internal/metrics"
)

// DefaultAddress is the caller recorded for keeper-initiated executes
const DefaultAddress = "keeper"

// DefaultInterval is how often due competitions are swept
const DefaultInterval = 30 * time.Second

// Sweep outcomes
const (
	OutcomeRequested = "requested"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)

// Executor lists due competitions and executes them
type Executor interface {
	Due() []string
	Execute(ctx context.Context, caller, id string) (competition.ExecuteResult, error)
}

// Keeper runs a gocron job that executes every due competition
type Keeper struct {
	log      logger.Logger
	exec     Executor
	metrics  *metrics.Metrics
	address  string
	interval time.Duration
	clock    clockwork.Clock

	scheduler gocron.Scheduler
}

// Option configures a Keeper
type Option func(*Keeper)

// WithAddress sets the caller address used for executes
func WithAddress(address string) Option {
	return func(k *Keeper) {
		k.address = address
	}
}

// WithInterval sets the sweep interval
func WithInterval(d time.Duration) Option {
	return func(k *Keeper) {
		k.interval = d
	}
}

// WithClock overrides the scheduler clock
func WithClock(clock clockwork.Clock) Option {
	return func(k *Keeper) {
		k.clock = clock
	}
}

// New creates a Keeper. The job does not run until Start.
func New(log logger.Logger, exec Executor, m *metrics.Metrics, opts ...Option) (*Keeper, error) {
	k := &Keeper{
		log:      log,
		exec:     exec,
		metrics:  m,
		address:  DefaultAddress,
		interval: DefaultInterval,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(k)
	}

	scheduler, err := gocron.NewScheduler(
		gocron.WithClock(k.clock),
		gocron.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(k.interval),
		gocron.NewTask(func() {
			k.Sweep(context.Background())
		}),
		gocron.WithName("execute-due-competitions"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		scheduler.Shutdown()
		return nil, err
	}
	k.scheduler = scheduler
	return k, nil
}

// Start begins running the sweep job
func (k *Keeper) Start() {
	k.scheduler.Start()
	k.log.Info("Keeper started", "interval", k.interval, "address", k.address)
}

// Stop shuts the scheduler down, waiting for a running sweep to finish
func (k *Keeper) Stop() error {
	return k.scheduler.Shutdown()
}

// Summary counts the outcomes of one sweep
type Summary struct {
	Requested int
	Failed    int
	Rejected  int
}

// Sweep executes every due competition once
func (k *Keeper) Sweep(ctx context.Context) Summary {
	var summary Summary
	for _, id := range k.exec.Due() {
		outcome := k.execute(ctx, id)
		switch outcome {
		case OutcomeRequested:
			summary.Requested++
		case OutcomeFailed:
			summary.Failed++
		default:
			summary.Rejected++
		}
		if k.metrics != nil {
			k.metrics.KeeperRuns.WithLabelValues(outcome).Inc()
		}
	}
	if summary != (Summary{}) {
		k.log.Info("Keeper sweep finished",
			"requested", summary.Requested, "failed", summary.Failed, "rejected", summary.Rejected)
	}
	return summary
}

func (k *Keeper) execute(ctx context.Context, id string) string {
	result, err := k.exec.Execute(ctx, k.address, id)
	if err != nil {
		// a pending draw is not a keeper fault
		if apperrors.KindOf(err) == apperrors.ErrInternal {
			k.log.Error("Keeper execute failed", "competition_id", id, "error", err)
		} else {
			k.log.Debug("Keeper execute rejected", "competition_id", id, "error", err)
		}
		return OutcomeRejected
	}
	if result.Status == competition.StatusFailed {
		k.log.Info("Keeper failed competition", "competition_id", id)
		return OutcomeFailed
	}
	k.log.Info("Keeper requested draw", "competition_id", id, "request_id", result.RequestID)
	return OutcomeRequested
}
