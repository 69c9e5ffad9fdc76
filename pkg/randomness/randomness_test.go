package randomness

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/abrezinsky/rafflehouse/internal/logger"
)

type fulfilment struct {
	sender string
	id     RequestID
	words  []*big.Int
}

type recordingConsumer struct {
	calls chan fulfilment
	err   error
}

func newRecordingConsumer() *recordingConsumer {
	return &recordingConsumer{calls: make(chan fulfilment, 4)}
}

func (c *recordingConsumer) FulfillRandomWords(_ context.Context, sender string, id RequestID, words []*big.Int) error {
	c.calls <- fulfilment{sender: sender, id: id, words: words}
	return c.err
}

type feeLedger struct {
	mu      sync.Mutex
	charged map[string]uint64
	err     error
}

func (f *feeLedger) TransferFrom(_ context.Context, spender, from, to string, amount uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.charged == nil {
		f.charged = make(map[string]uint64)
	}
	f.charged[from] += amount
	return nil
}

func waitFulfilment(t *testing.T, c *recordingConsumer) fulfilment {
	t.Helper()
	select {
	case f := <-c.calls:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fulfilment")
		return fulfilment{}
	}
}

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		maxGas  uint32
		wantErr error
	}{
		{"valid", Request{NumWords: 1, CallbackGasLimit: 100}, 200, nil},
		{"no words", Request{NumWords: 0}, 0, ErrNoWords},
		{"too many words", Request{NumWords: MaxNumWords + 1}, 0, ErrTooManyWords},
		{"gas above max", Request{NumWords: 1, CallbackGasLimit: 300}, 200, ErrCallbackGasTooHigh},
		{"no gas max", Request{NumWords: 1, CallbackGasLimit: 1 << 30}, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(tt.maxGas); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCoordinator_FulfilsAfterConfirmations(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fees := &feeLedger{}
	coord := NewCoordinator("vrf", FixedSource{big.NewInt(42)}, logger.Discard(),
		WithClock(clock), WithBlockInterval(time.Second), WithFeeCollector(fees))
	defer coord.Stop()

	consumer := newRecordingConsumer()
	coord.Register("competition:1", consumer)

	id, err := coord.RequestRandomWords(context.Background(), Request{
		Consumer: "competition:1", Confirmations: 3, NumWords: 1, Fee: 5,
	})
	if err != nil {
		t.Fatalf("RequestRandomWords failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a request ID")
	}
	if coord.Pending() != 1 {
		t.Errorf("expected 1 pending request, got %d", coord.Pending())
	}
	if fees.charged["competition:1"] != 5 {
		t.Errorf("expected fee of 5 to be charged, got %d", fees.charged["competition:1"])
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("worker never waited on the clock: %v", err)
	}

	select {
	case <-consumer.calls:
		t.Fatal("consumer called before confirmations elapsed")
	default:
	}

	clock.Advance(3 * time.Second)

	got := waitFulfilment(t, consumer)
	if got.sender != "vrf" {
		t.Errorf("expected sender vrf, got %s", got.sender)
	}
	if got.id != id {
		t.Errorf("expected request ID %s, got %s", id, got.id)
	}
	if len(got.words) != 1 || got.words[0].Int64() != 42 {
		t.Errorf("unexpected words: %v", got.words)
	}
}

func TestCoordinator_RecordsResponse(t *testing.T) {
	clock := clockwork.NewFakeClock()
	coord := NewCoordinator("vrf", FixedSource{big.NewInt(7)}, logger.Discard(), WithClock(clock))
	defer coord.Stop()

	consumer := newRecordingConsumer()
	consumer.err = errors.New("invalid status")
	coord.Register("c", consumer)

	id, err := coord.RequestRandomWords(context.Background(), Request{Consumer: "c", Confirmations: 1, NumWords: 2})
	if err != nil {
		t.Fatalf("RequestRandomWords failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatal(err)
	}
	clock.Advance(DefaultBlockInterval)
	waitFulfilment(t, consumer)

	resp, ok := coord.Response(id)
	if !ok {
		t.Fatal("expected response to be recorded even when consumer rejects it")
	}
	if len(resp.Words) != 2 {
		t.Errorf("expected 2 words, got %d", len(resp.Words))
	}
	if coord.Pending() != 0 {
		t.Errorf("expected no pending requests, got %d", coord.Pending())
	}
}

func TestCoordinator_RejectsUnknownConsumer(t *testing.T) {
	coord := NewCoordinator("vrf", CryptoSource{}, logger.Discard())
	defer coord.Stop()

	_, err := coord.RequestRandomWords(context.Background(), Request{Consumer: "nobody", NumWords: 1})
	if !errors.Is(err, ErrUnknownConsumer) {
		t.Errorf("expected ErrUnknownConsumer, got %v", err)
	}
}

func TestCoordinator_RejectsInvalidRequest(t *testing.T) {
	coord := NewCoordinator("vrf", CryptoSource{}, logger.Discard(), WithMaxCallbackGas(1000))
	defer coord.Stop()
	coord.Register("c", newRecordingConsumer())

	_, err := coord.RequestRandomWords(context.Background(), Request{Consumer: "c", NumWords: 1, CallbackGasLimit: 5000})
	if !errors.Is(err, ErrCallbackGasTooHigh) {
		t.Errorf("expected ErrCallbackGasTooHigh, got %v", err)
	}
}

func TestCoordinator_FeeFailureRejectsRequest(t *testing.T) {
	fees := &feeLedger{err: errors.New("insufficient allowance")}
	coord := NewCoordinator("vrf", CryptoSource{}, logger.Discard(), WithFeeCollector(fees))
	defer coord.Stop()
	coord.Register("c", newRecordingConsumer())

	_, err := coord.RequestRandomWords(context.Background(), Request{Consumer: "c", NumWords: 1, Fee: 10})
	if err == nil {
		t.Fatal("expected fee failure to reject the request")
	}
	if coord.Pending() != 0 {
		t.Errorf("expected nothing pending, got %d", coord.Pending())
	}
}

func TestCoordinator_StopAbandonsPending(t *testing.T) {
	clock := clockwork.NewFakeClock()
	coord := NewCoordinator("vrf", CryptoSource{}, logger.Discard(), WithClock(clock))
	consumer := newRecordingConsumer()
	coord.Register("c", consumer)

	if _, err := coord.RequestRandomWords(context.Background(), Request{Consumer: "c", Confirmations: 10, NumWords: 1}); err != nil {
		t.Fatal(err)
	}
	coord.Stop()

	select {
	case <-consumer.calls:
		t.Error("consumer should not be called after Stop")
	default:
	}

	if _, err := coord.RequestRandomWords(context.Background(), Request{Consumer: "c", NumWords: 1}); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}

func TestCryptoSource_RandomWords(t *testing.T) {
	words, err := CryptoSource{}.RandomWords(context.Background(), 3)
	if err != nil {
		t.Fatalf("RandomWords failed: %v", err)
	}
	if len(words) != 3 {
		t.Fatalf("expected 3 words, got %d", len(words))
	}
	limit := new(big.Int).Lsh(big.NewInt(1), 256)
	for _, w := range words {
		if w.Sign() < 0 || w.Cmp(limit) >= 0 {
			t.Errorf("word out of 256-bit range: %s", w)
		}
	}
}

func TestExpandSeed_Deterministic(t *testing.T) {
	a := ExpandSeed([]byte("seed"), 2)
	b := ExpandSeed([]byte("seed"), 2)
	if a[0].Cmp(b[0]) != 0 || a[1].Cmp(b[1]) != 0 {
		t.Error("expected identical words for identical seed")
	}
	if a[0].Cmp(a[1]) == 0 {
		t.Error("expected distinct words per index")
	}
}

func TestFixedSource_Cycles(t *testing.T) {
	words, err := FixedSource{big.NewInt(1), big.NewInt(2)}.RandomWords(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if words[2].Int64() != 1 {
		t.Errorf("expected third word to cycle back to 1, got %s", words[2])
	}

	if _, err := (FixedSource{}).RandomWords(context.Background(), 1); err == nil {
		t.Error("expected error from empty fixed source")
	}
}

func TestBeaconClient_RandomWords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/public/latest" {
			t.Errorf("expected path /public/latest, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"round": 1234, "randomness": "8b6c1f2e"}`))
	}))
	defer server.Close()

	client := NewBeaconClient(server.URL+"/", logger.Discard())
	if client.BaseURL() != server.URL {
		t.Errorf("expected trailing slash trimmed, got %s", client.BaseURL())
	}

	words, err := client.RandomWords(context.Background(), 2)
	if err != nil {
		t.Fatalf("RandomWords failed: %v", err)
	}

	expected := ExpandSeed([]byte{0x8b, 0x6c, 0x1f, 0x2e}, 2)
	for i := range words {
		if words[i].Cmp(expected[i]) != 0 {
			t.Errorf("word %d: got %s, want %s", i, words[i], expected[i])
		}
	}
}

func TestBeaconClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `oops`},
		{"bad json", http.StatusOK, `{not json`},
		{"empty randomness", http.StatusOK, `{"round": 1}`},
		{"bad hex", http.StatusOK, `{"round": 1, "randomness": "zz"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewBeaconClientWithHTTPClient(server.URL, server.Client(), logger.Discard())
			if _, err := client.RandomWords(context.Background(), 1); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBeaconClient_ConnectionRefused(t *testing.T) {
	client := NewBeaconClient("http://127.0.0.1:1", logger.Discard())
	if _, err := client.Latest(context.Background()); err == nil {
		t.Error("expected connection error")
	}
}

func TestMockOracle(t *testing.T) {
	oracle := NewMockOracle(WithMockAddress("vrf"))
	if oracle.Address() != "vrf" {
		t.Errorf("expected address vrf, got %s", oracle.Address())
	}
	if oracle.LastRequestID() != "" {
		t.Error("expected no request ID before any request")
	}

	id, err := oracle.RequestRandomWords(context.Background(), Request{Consumer: "c", NumWords: 1})
	if err != nil {
		t.Fatal(err)
	}
	if id != oracle.LastRequestID() || len(oracle.Requests()) != 1 {
		t.Error("expected request to be recorded")
	}

	consumer := newRecordingConsumer()
	if err := oracle.Fulfil(context.Background(), consumer, big.NewInt(9)); err != nil {
		t.Fatal(err)
	}
	got := <-consumer.calls
	if got.sender != "vrf" || got.id != id || got.words[0].Int64() != 9 {
		t.Errorf("unexpected fulfilment: %+v", got)
	}

	failing := NewMockOracle(WithRequestError(errors.New("down")))
	if _, err := failing.RequestRandomWords(context.Background(), Request{}); err == nil {
		t.Error("expected configured request error")
	}
}
