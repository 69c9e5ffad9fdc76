// Package randomness provides an asynchronous random-word oracle and the
// message types exchanged with its consumers.
//
// A consumer sends a Request and receives a RequestID immediately. Some time
// later the coordinator delivers exactly one Response for that ID by calling
// the consumer's FulfillRandomWords with its own address as the sender.
package randomness

import (
	"context"
	"errors"
	"math/big"
)

// MaxNumWords is the largest number of words a single request may ask for
const MaxNumWords = 500

// RequestID correlates a Request with its Response
type RequestID string

// Request is the outbound message a consumer sends to the oracle
type Request struct {
	Consumer         string `json:"consumer"`
	CallbackGasLimit uint32 `json:"callback_gas_limit"`
	Confirmations    uint16 `json:"confirmations"`
	NumWords         uint32 `json:"num_words"`
	Fee              uint64 `json:"fee"`
}

// Response is the inbound message delivered back to the consumer
type Response struct {
	RequestID RequestID  `json:"request_id"`
	Words     []*big.Int `json:"words"`
}

// Consumer receives fulfilled randomness
type Consumer interface {
	FulfillRandomWords(ctx context.Context, sender string, requestID RequestID, words []*big.Int) error
}

// Oracle accepts randomness requests
type Oracle interface {
	// Address identifies the oracle as the sender of responses
	Address() string
	// RequestRandomWords queues a request and returns its correlation ID
	RequestRandomWords(ctx context.Context, req Request) (RequestID, error)
}

// Source produces random words
type Source interface {
	RandomWords(ctx context.Context, n uint32) ([]*big.Int, error)
}

// FeeCollector pulls request fees from the consumer's pre-authorized allowance
type FeeCollector interface {
	TransferFrom(ctx context.Context, spender, from, to string, amount uint64) error
}

// Request validation errors
var (
	ErrNoWords            = errors.New("randomness: at least one word must be requested")
	ErrTooManyWords       = errors.New("randomness: too many words requested")
	ErrCallbackGasTooHigh = errors.New("randomness: callback gas limit above maximum")
	ErrUnknownConsumer    = errors.New("randomness: consumer is not registered")
	ErrStopped            = errors.New("randomness: coordinator stopped")
)

// Validate checks the request against the coordinator limits
func (r Request) Validate(maxCallbackGas uint32) error {
	if r.NumWords == 0 {
		return ErrNoWords
	}
	if r.NumWords > MaxNumWords {
		return ErrTooManyWords
	}
	if maxCallbackGas > 0 && r.CallbackGasLimit > maxCallbackGas {
		return ErrCallbackGasTooHigh
	}
	return nil
}
