package handlers

import (
	"context"
	"net/http"

	"github.com/abrezinsky/rafflehouse/internal/auth"
	"github.com/abrezinsky/rafflehouse/internal/metrics"
	"github.com/abrezinsky/rafflehouse/internal/models"
	"github.com/abrezinsky/rafflehouse/internal/services"
)

// StudioRegistry creates and transfers studios
type StudioRegistry interface {
	CreateStudio(ctx context.Context, name, owner string) (*models.Studio, error)
	TransferStudio(ctx context.Context, id, caller, newOwner string) error
	GetStudio(ctx context.Context, id string) (*models.Studio, error)
	ListStudios(ctx context.Context) ([]models.Studio, error)
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Competitions services.CompetitionServicer
	Assets       services.AssetServicer
	Settings     services.SettingsServicer
	Studios      StudioRegistry
	Auth         *auth.Auth
	Stream       http.Handler
	Metrics      *metrics.Metrics
	Log          HTTPLogger
	buyLimiter   *RateLimiter
	reserved     map[string]bool
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// Option configures optional handler dependencies
type Option func(*Handlers)

// WithStream mounts the event stream at /ws
func WithStream(stream http.Handler) Option {
	return func(h *Handlers) {
		h.Stream = stream
	}
}

// WithMetrics instruments the router and exposes /metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handlers) {
		h.Metrics = m
	}
}

// WithBuyRateLimit limits ticket purchases per caller
func WithBuyRateLimit(perSecond float64, burst int) Option {
	return func(h *Handlers) {
		h.buyLimiter = NewRateLimiter(perSecond, burst)
	}
}

// New creates a new Handlers instance with all dependencies
func New(
	competitions services.CompetitionServicer,
	assets services.AssetServicer,
	settings services.SettingsServicer,
	studios StudioRegistry,
	adminAuth *auth.Auth,
	log HTTPLogger,
	opts ...Option,
) *Handlers {
	h := &Handlers{
		Competitions: competitions,
		Assets:       assets,
		Settings:     settings,
		Studios:      studios,
		Auth:         adminAuth,
		Log:          log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NoopHTTPLogger is a test logger that always returns false for HTTP logging
type NoopHTTPLogger struct{}

func (NoopHTTPLogger) IsHTTPLoggingEnabled() bool { return false }

// NewForTesting creates a Handlers instance with a known admin password
func NewForTesting(
	competitions services.CompetitionServicer,
	assets services.AssetServicer,
	settings services.SettingsServicer,
	studios StudioRegistry,
	opts ...Option,
) *Handlers {
	// Create a test auth with a known password
	testAuth := auth.New("test-password")
	return New(competitions, assets, settings, studios, testAuth, NoopHTTPLogger{}, opts...)
}
