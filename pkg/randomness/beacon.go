package randomness

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/abrezinsky/rafflehouse/internal/logger"
)

// BeaconRound is a single round published by a public randomness beacon
type BeaconRound struct {
	Round      uint64 `json:"round"`
	Randomness string `json:"randomness"`
	Signature  string `json:"signature,omitempty"`
}

// BeaconClient fetches randomness from a drand-style HTTP beacon
// and expands the latest round into the requested number of words.
type BeaconClient struct {
	baseURL    string
	httpClient *http.Client
	log        logger.Logger
}

// NewBeaconClient creates a beacon client with a default timeout
func NewBeaconClient(baseURL string, log logger.Logger) *BeaconClient {
	return NewBeaconClientWithHTTPClient(baseURL, &http.Client{Timeout: 10 * time.Second}, log)
}

// NewBeaconClientWithHTTPClient creates a beacon client with a custom HTTP client (for testing)
func NewBeaconClientWithHTTPClient(baseURL string, httpClient *http.Client, log logger.Logger) *BeaconClient {
	return &BeaconClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		log:        log,
	}
}

// BaseURL returns the beacon URL
func (c *BeaconClient) BaseURL() string {
	return c.baseURL
}

// Latest fetches the most recent beacon round
func (c *BeaconClient) Latest(ctx context.Context) (*BeaconRound, error) {
	reqURL := c.baseURL + "/public/latest"

	c.log.Debug("Beacon request", "method", "GET", "url", reqURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to beacon: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("Beacon response", "status", resp.StatusCode, "body", string(body))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("beacon returned status %d", resp.StatusCode)
	}

	var round BeaconRound
	if err := json.Unmarshal(body, &round); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if round.Randomness == "" {
		return nil, fmt.Errorf("beacon round %d has no randomness", round.Round)
	}
	return &round, nil
}

// RandomWords implements Source using the latest beacon round as seed
func (c *BeaconClient) RandomWords(ctx context.Context, n uint32) ([]*big.Int, error) {
	round, err := c.Latest(ctx)
	if err != nil {
		return nil, err
	}
	seed, err := hex.DecodeString(round.Randomness)
	if err != nil {
		return nil, fmt.Errorf("failed to decode beacon randomness: %w", err)
	}
	c.log.Info("Beacon round fetched", "round", round.Round)
	return ExpandSeed(seed, n), nil
}

var _ Source = (*BeaconClient)(nil)
