package services

import (
	"context"

	"github.com/abrezinsky/rafflehouse/internal/competition"
	"github.com/abrezinsky/rafflehouse/internal/logger"
	"github.com/abrezinsky/rafflehouse/internal/models"
	"github.com/abrezinsky/rafflehouse/internal/repository"
)

// KeyBaseURL is the setting holding the public URL encoded into ticket QR codes
const KeyBaseURL = "base_url"

// ProtocolStore reads and updates the protocol configuration
type ProtocolStore interface {
	ProtocolConfig(ctx context.Context) (competition.ProtocolConfig, error)
	SetProtocolConfig(ctx context.Context, cfg competition.ProtocolConfig) error
}

// SettingsService handles settings-related business logic
type SettingsService struct {
	log      logger.Logger
	repo     repository.SettingsRepository
	protocol ProtocolStore
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(log logger.Logger, repo repository.SettingsRepository, protocol ProtocolStore) *SettingsService {
	return &SettingsService{log: log, repo: repo, protocol: protocol}
}

// GetBaseURL returns the application base URL
func (s *SettingsService) GetBaseURL(ctx context.Context) (string, error) {
	value, err := s.repo.GetSetting(ctx, KeyBaseURL)
	if err != nil {
		if err == repository.ErrNotFound {
			return "", nil // No default - setting not yet configured
		}
		return "", err
	}
	return value, nil
}

// SetBaseURL saves the application base URL
func (s *SettingsService) SetBaseURL(ctx context.Context, url string) error {
	return s.repo.SetSetting(ctx, KeyBaseURL, url)
}

// GetSetting retrieves an arbitrary setting
func (s *SettingsService) GetSetting(ctx context.Context, key string) (string, error) {
	return s.repo.GetSetting(ctx, key)
}

// SetSetting saves an arbitrary setting
func (s *SettingsService) SetSetting(ctx context.Context, key, value string) error {
	return s.repo.SetSetting(ctx, key, value)
}

// ProtocolConfig returns the live protocol configuration
func (s *SettingsService) ProtocolConfig(ctx context.Context) (competition.ProtocolConfig, error) {
	return s.protocol.ProtocolConfig(ctx)
}

// UpdateProtocolConfig validates and stores a new protocol configuration
func (s *SettingsService) UpdateProtocolConfig(ctx context.Context, cfg competition.ProtocolConfig) error {
	return s.protocol.SetProtocolConfig(ctx, cfg)
}

// Settings is the admin view of all configurable values
type Settings struct {
	BaseURL  string                     `json:"base_url"`
	Protocol competition.ProtocolConfig `json:"protocol"`
}

// AllSettings returns the base URL and the protocol configuration
func (s *SettingsService) AllSettings(ctx context.Context) (*Settings, error) {
	baseURL, err := s.GetBaseURL(ctx)
	if err != nil {
		return nil, err
	}
	protocol, err := s.protocol.ProtocolConfig(ctx)
	if err != nil {
		return nil, err
	}
	return &Settings{BaseURL: baseURL, Protocol: protocol}, nil
}

// Stats returns counts across studios, competitions and the event journal
func (s *SettingsService) Stats(ctx context.Context) (*models.Stats, error) {
	return s.repo.GetStats(ctx)
}

// ResetTablesResult contains the result of a database reset
type ResetTablesResult struct {
	Tables  []string `json:"tables"`
	Message string   `json:"message"`
}

// ValidTables defines which tables can be reset. Studios and settings are
// read live by running competitions and cannot be cleared.
var ValidTables = map[string]bool{
	"events": true, "competitions": true,
}

// ResetTables clears the journal and read model. Running competitions keep
// their in-memory state and rewrite their row on their next event.
func (s *SettingsService) ResetTables(ctx context.Context, tables []string) (*ResetTablesResult, error) {
	if len(tables) == 0 {
		return nil, ErrNoTablesSpecified
	}

	requested := make(map[string]bool)
	for _, table := range tables {
		if !ValidTables[table] {
			return nil, &InvalidTableError{Table: table}
		}
		requested[table] = true
	}

	// events reference competitions, so they are always cleared first
	tablesToReset := []string{"events"}
	if requested["competitions"] {
		tablesToReset = append(tablesToReset, "competitions")
	}

	for _, table := range tablesToReset {
		if err := s.repo.ClearTable(ctx, table); err != nil {
			return nil, err
		}
	}
	s.log.Info("Tables reset", "tables", tablesToReset)

	return &ResetTablesResult{
		Tables:  tablesToReset,
		Message: "Successfully deleted data from tables",
	}, nil
}
