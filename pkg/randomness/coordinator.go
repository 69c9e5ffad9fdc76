package randomness

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/abrezinsky/rafflehouse/internal/logger"
)

// DefaultBlockInterval approximates the time one confirmation takes
const DefaultBlockInterval = 2 * time.Second

// Coordinator is an in-process asynchronous oracle. Each accepted request is
// fulfilled on its own goroutine after Confirmations × blockInterval, so a
// consumer is never called back from inside RequestRandomWords.
type Coordinator struct {
	address        string
	source         Source
	fees           FeeCollector
	clock          clockwork.Clock
	blockInterval  time.Duration
	maxCallbackGas uint32
	log            logger.Logger

	mu        sync.Mutex
	consumers map[string]Consumer
	pending   map[RequestID]Request
	fulfilled map[RequestID]Response
	stopped   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// CoordinatorOption configures a Coordinator
type CoordinatorOption func(*Coordinator)

// WithFeeCollector charges each request's fee through the given token
func WithFeeCollector(fees FeeCollector) CoordinatorOption {
	return func(c *Coordinator) {
		c.fees = fees
	}
}

// WithClock overrides the clock used for confirmation delays
func WithClock(clock clockwork.Clock) CoordinatorOption {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

// WithBlockInterval sets the delay per confirmation
func WithBlockInterval(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.blockInterval = d
	}
}

// WithMaxCallbackGas rejects requests whose callback budget exceeds max
func WithMaxCallbackGas(max uint32) CoordinatorOption {
	return func(c *Coordinator) {
		c.maxCallbackGas = max
	}
}

// NewCoordinator creates a coordinator that answers from the given source
func NewCoordinator(address string, source Source, log logger.Logger, opts ...CoordinatorOption) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		address:       address,
		source:        source,
		clock:         clockwork.NewRealClock(),
		blockInterval: DefaultBlockInterval,
		log:           log,
		consumers:     make(map[string]Consumer),
		pending:       make(map[RequestID]Request),
		fulfilled:     make(map[RequestID]Response),
		ctx:           ctx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Address returns the sender address used for callbacks
func (c *Coordinator) Address() string {
	return c.address
}

// Register routes responses for consumer address to the given receiver
func (c *Coordinator) Register(consumer string, receiver Consumer) {
	c.mu.Lock()
	c.consumers[consumer] = receiver
	c.mu.Unlock()
}

// RequestRandomWords validates and charges the request, then schedules fulfillment
func (c *Coordinator) RequestRandomWords(ctx context.Context, req Request) (RequestID, error) {
	if err := req.Validate(c.maxCallbackGas); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return "", ErrStopped
	}
	receiver, ok := c.consumers[req.Consumer]
	if !ok {
		return "", ErrUnknownConsumer
	}

	if req.Fee > 0 && c.fees != nil {
		if err := c.fees.TransferFrom(ctx, c.address, req.Consumer, c.address, req.Fee); err != nil {
			return "", fmt.Errorf("randomness: fee payment failed: %w", err)
		}
	}

	id := RequestID(uuid.NewString())
	c.pending[id] = req
	c.log.Info("Randomness requested", "request_id", id, "consumer", req.Consumer, "confirmations", req.Confirmations, "num_words", req.NumWords)

	c.wg.Add(1)
	go c.fulfil(id, req, receiver)

	return id, nil
}

func (c *Coordinator) fulfil(id RequestID, req Request, receiver Consumer) {
	defer c.wg.Done()

	delay := time.Duration(req.Confirmations) * c.blockInterval
	select {
	case <-c.ctx.Done():
		return
	case <-c.clock.After(delay):
	}

	words, err := c.source.RandomWords(c.ctx, req.NumWords)
	if err != nil {
		c.log.Error("Randomness source failed", "request_id", id, "error", err)
		return
	}

	c.mu.Lock()
	delete(c.pending, id)
	c.fulfilled[id] = Response{RequestID: id, Words: words}
	c.mu.Unlock()

	if err := receiver.FulfillRandomWords(c.ctx, c.address, id, words); err != nil {
		c.log.Warn("Consumer rejected randomness", "request_id", id, "consumer", req.Consumer, "error", err)
		return
	}
	c.log.Info("Randomness fulfilled", "request_id", id, "consumer", req.Consumer)
}

// Pending returns the number of requests awaiting fulfillment
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Response returns the delivered response for id, if any
func (c *Coordinator) Response(id RequestID) (Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	resp, ok := c.fulfilled[id]
	return resp, ok
}

// Stop abandons outstanding requests and waits for workers to exit
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
}

// CryptoSource draws 256-bit words from crypto/rand
type CryptoSource struct{}

// RandomWords returns n uniformly random 256-bit words
func (CryptoSource) RandomWords(_ context.Context, n uint32) ([]*big.Int, error) {
	return cryptoWords(n)
}

var _ Oracle = (*Coordinator)(nil)
