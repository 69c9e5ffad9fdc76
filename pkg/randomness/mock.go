package randomness

import (
	"context"
	"fmt"
	"math/big"
	"sync"
)

// MockOracle records requests and lets tests deliver responses by hand
type MockOracle struct {
	mu       sync.Mutex
	address  string
	requests []Request
	ids      []RequestID
	next     int

	// Error to return from RequestRandomWords (if set)
	RequestError error
}

// MockOption configures a MockOracle
type MockOption func(*MockOracle)

// WithMockAddress sets the oracle address
func WithMockAddress(address string) MockOption {
	return func(m *MockOracle) {
		m.address = address
	}
}

// WithRequestError makes every request fail with err
func WithRequestError(err error) MockOption {
	return func(m *MockOracle) {
		m.RequestError = err
	}
}

// NewMockOracle creates a mock oracle at address "oracle" unless overridden
func NewMockOracle(opts ...MockOption) *MockOracle {
	m := &MockOracle{address: "oracle"}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Address implements Oracle
func (m *MockOracle) Address() string {
	return m.address
}

// RequestRandomWords implements Oracle
func (m *MockOracle) RequestRandomWords(_ context.Context, req Request) (RequestID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RequestError != nil {
		return "", m.RequestError
	}
	m.next++
	id := RequestID(fmt.Sprintf("req-%d", m.next))
	m.requests = append(m.requests, req)
	m.ids = append(m.ids, id)
	return id, nil
}

// Requests returns a copy of every request received
func (m *MockOracle) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequestID returns the ID of the most recent request, or "" if none
func (m *MockOracle) LastRequestID() RequestID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.ids) == 0 {
		return ""
	}
	return m.ids[len(m.ids)-1]
}

// Fulfil delivers words for the latest request to consumer
func (m *MockOracle) Fulfil(ctx context.Context, consumer Consumer, words ...*big.Int) error {
	return consumer.FulfillRandomWords(ctx, m.address, m.LastRequestID(), words)
}

var _ Oracle = (*MockOracle)(nil)
