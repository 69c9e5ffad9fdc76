package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/rafflehouse/internal/assets"
	"github.com/abrezinsky/rafflehouse/internal/auth"
	"github.com/abrezinsky/rafflehouse/internal/config"
	"github.com/abrezinsky/rafflehouse/internal/handlers"
	"github.com/abrezinsky/rafflehouse/internal/keeper"
	"github.com/abrezinsky/rafflehouse/internal/logger"
	"github.com/abrezinsky/rafflehouse/internal/metrics"
	"github.com/abrezinsky/rafflehouse/internal/models"
	"github.com/abrezinsky/rafflehouse/internal/registry"
	"github.com/abrezinsky/rafflehouse/internal/repository"
	"github.com/abrezinsky/rafflehouse/internal/services"
	"github.com/abrezinsky/rafflehouse/internal/websocket"
	"github.com/abrezinsky/rafflehouse/pkg/randomness"
)

// shutdownTimeout bounds how long Run waits for in-flight requests
const shutdownTimeout = 10 * time.Second

// App holds all application dependencies
type App struct {
	log          logger.Logger
	cfg          *config.Config
	repo         *repository.Repository
	registry     *registry.Registry
	book         *assets.Book
	coordinator  *randomness.Coordinator
	competitions *services.CompetitionService
	settings     *services.SettingsService
	hub          *websocket.Hub
	keeper       *keeper.Keeper
	metrics      *metrics.Metrics
	handlers     *handlers.Handlers
}

// New creates and initializes a new application instance
func New(log logger.Logger, cfg *config.Config, adminAuth *auth.Auth) (*App, error) {
	ctx := context.Background()

	repo, err := repository.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	reg, err := registry.New(ctx, log, repo, cfg.Protocol.Competition())
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to initialize registry: %w", err)
	}

	// Randomness fees are paid in this token
	book := assets.NewBook()
	feeToken, err := book.CreateToken(cfg.Protocol.FeeToken)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to create fee token: %w", err)
	}

	var source randomness.Source = randomness.CryptoSource{}
	if cfg.Randomness.Source == config.SourceBeacon {
		source = randomness.NewBeaconClient(cfg.Randomness.BeaconURL, log)
	}
	coordinator := randomness.NewCoordinator(cfg.Randomness.Address, source, log,
		randomness.WithFeeCollector(feeToken),
		randomness.WithBlockInterval(cfg.Randomness.BlockInterval),
		randomness.WithMaxCallbackGas(cfg.Randomness.MaxCallbackGas),
	)

	m := metrics.New()

	// Initialize services
	competitionService := services.NewCompetitionService(log, repo, reg, book, coordinator, feeToken,
		services.WithMetrics(m))
	assetService := services.NewAssetService(log, book)
	settingsService := services.NewSettingsService(log, repo, reg)

	// Initialize WebSocket hub with DI
	hub := websocket.New(log, competitionService)
	hub.Start()
	competitionService.SetBroadcaster(hub)

	a := &App{
		log:          log,
		cfg:          cfg,
		repo:         repo,
		registry:     reg,
		book:         book,
		coordinator:  coordinator,
		competitions: competitionService,
		settings:     settingsService,
		hub:          hub,
		metrics:      m,
	}

	if cfg.Keeper.Enabled {
		k, err := keeper.New(log, competitionService, m,
			keeper.WithAddress(cfg.Keeper.Address),
			keeper.WithInterval(cfg.Keeper.Interval),
		)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize keeper: %w", err)
		}
		a.keeper = k
	}

	opts := []handlers.Option{
		handlers.WithStream(http.HandlerFunc(hub.ServeWs)),
		handlers.WithMetrics(m),
		handlers.WithReservedCallers(coordinator.Address()),
	}
	if cfg.RateLimit.BuyPerSecond > 0 {
		opts = append(opts, handlers.WithBuyRateLimit(cfg.RateLimit.BuyPerSecond, cfg.RateLimit.BuyBurst))
	}
	a.handlers = handlers.New(competitionService, assetService, settingsService, reg, adminAuth, log, opts...)

	return a, nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Book returns the asset book competitions escrow into
func (a *App) Book() *assets.Book {
	return a.book
}

// Sweep runs one keeper pass immediately. It reports false when the keeper is disabled.
func (a *App) Sweep(ctx context.Context) (keeper.Summary, bool) {
	if a.keeper == nil {
		return keeper.Summary{}, false
	}
	return a.keeper.Sweep(ctx), true
}

// Stats returns the persisted counts shown on the console
func (a *App) Stats(ctx context.Context) (*models.Stats, error) {
	return a.settings.Stats(ctx)
}

// Close performs graceful shutdown of app resources
func (a *App) Close() {
	if a.keeper != nil {
		if err := a.keeper.Stop(); err != nil {
			a.log.Warn("Keeper shutdown failed", "error", err)
		}
	}
	if a.coordinator != nil {
		a.coordinator.Stop()
	}
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.log.Warn("Database close failed", "error", err)
		}
	}
}

// Run starts the keeper and serves HTTP until ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	addr := a.cfg.Server.ListenAddr
	baseURL := a.cfg.Server.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL(addr, getPreferredIP(realNetworkProvider{}))
	}
	a.setDefaultBaseURL(baseURL)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return a.serve(ctx, listener, baseURL)
}

func (a *App) serve(ctx context.Context, listener net.Listener, baseURL string) error {
	if a.keeper != nil {
		a.keeper.Start()
	}

	server := &http.Server{
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	a.log.Info("Server starting", "url", baseURL, "addr", listener.Addr().String())
	a.log.Info("Event stream", "url", strings.Replace(baseURL, "http", "ws", 1)+"/ws")

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// setDefaultBaseURL sets the base URL setting if not already configured
// or if current value uses localhost (which isn't useful for QR codes)
func (a *App) setDefaultBaseURL(baseURL string) {
	ctx := context.Background()
	existing, err := a.settings.GetBaseURL(ctx)
	if err != nil {
		a.log.Warn("Failed to read base_url", "error", err)
		return
	}

	// Set default if empty or if current value uses localhost
	needsUpdate := existing == "" || strings.Contains(existing, "localhost")
	if needsUpdate {
		if err := a.settings.SetBaseURL(ctx, baseURL); err != nil {
			a.log.Warn("Failed to set default base_url", "error", err)
		} else {
			a.log.Info("Default base URL set", "url", baseURL)
		}
	}
}

// defaultBaseURL joins the detected host with the listen port
func defaultBaseURL(addr, host string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" || port == "0" {
		return "http://" + host
	}
	return "http://" + net.JoinHostPort(host, port)
}
