// Package registry holds the protocol-wide configuration and the studio
// identities that own competitions.
package registry

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abrezinsky/rafflehouse/internal/competition"
	"github.com/abrezinsky/rafflehouse/internal/errors"
	"github.com/abrezinsky/rafflehouse/internal/logger"
	"github.com/abrezinsky/rafflehouse/internal/models"
	"github.com/abrezinsky/rafflehouse/internal/repository"
)

// Setting keys for the protocol configuration
const (
	KeyFeeBasisPoints           = "protocol.fee_basis_points"
	KeyFeeDestination           = "protocol.fee_destination"
	KeyRandomnessFee            = "protocol.randomness_fee"
	KeyRandomnessConfirmations  = "protocol.randomness_confirmations"
	KeyRandomnessCallbackBudget = "protocol.randomness_callback_budget"
)

// Store is the persistence the registry needs
type Store interface {
	repository.SettingsRepository
	repository.StudioRepository
}

// Registry resolves protocol configuration and studio ownership at call time
type Registry struct {
	log   logger.Logger
	store Store
	mu    sync.Mutex
}

var _ competition.ConfigResolver = (*Registry)(nil)

// New creates a Registry and seeds any protocol settings not yet stored
func New(ctx context.Context, log logger.Logger, store Store, defaults competition.ProtocolConfig) (*Registry, error) {
	if err := Validate(defaults); err != nil {
		return nil, err
	}
	r := &Registry{log: log, store: store}
	for key, value := range encode(defaults) {
		_, err := store.GetSetting(ctx, key)
		if err == nil {
			continue
		}
		if err != repository.ErrNotFound {
			return nil, err
		}
		if err := store.SetSetting(ctx, key, value); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Validate checks a protocol configuration
func Validate(cfg competition.ProtocolConfig) error {
	if cfg.FeeBasisPoints > competition.MaxFeeBasisPoints {
		return errors.Validationf("fee basis points %d above %d", cfg.FeeBasisPoints, competition.MaxFeeBasisPoints)
	}
	// Running competitions keep their snapshotted rate, so the destination
	// must stay set even while new competitions are charged nothing.
	if strings.TrimSpace(cfg.FeeDestination) == "" {
		return errors.Validation("fee destination is required")
	}
	return nil
}

func encode(cfg competition.ProtocolConfig) map[string]string {
	return map[string]string{
		KeyFeeBasisPoints:           strconv.FormatUint(uint64(cfg.FeeBasisPoints), 10),
		KeyFeeDestination:           cfg.FeeDestination,
		KeyRandomnessFee:            strconv.FormatUint(cfg.RandomnessFee, 10),
		KeyRandomnessConfirmations:  strconv.FormatUint(uint64(cfg.RandomnessConfirmations), 10),
		KeyRandomnessCallbackBudget: strconv.FormatUint(uint64(cfg.RandomnessCallbackBudget), 10),
	}
}

// ProtocolConfig reads the current protocol configuration
func (r *Registry) ProtocolConfig(ctx context.Context) (competition.ProtocolConfig, error) {
	var cfg competition.ProtocolConfig

	bps, err := r.uintSetting(ctx, KeyFeeBasisPoints, 16)
	if err != nil {
		return cfg, err
	}
	dest, err := r.store.GetSetting(ctx, KeyFeeDestination)
	if err != nil && err != repository.ErrNotFound {
		return cfg, err
	}
	fee, err := r.uintSetting(ctx, KeyRandomnessFee, 64)
	if err != nil {
		return cfg, err
	}
	conf, err := r.uintSetting(ctx, KeyRandomnessConfirmations, 16)
	if err != nil {
		return cfg, err
	}
	budget, err := r.uintSetting(ctx, KeyRandomnessCallbackBudget, 32)
	if err != nil {
		return cfg, err
	}

	cfg = competition.ProtocolConfig{
		FeeBasisPoints:           uint16(bps),
		FeeDestination:           dest,
		RandomnessFee:            fee,
		RandomnessConfirmations:  uint16(conf),
		RandomnessCallbackBudget: uint32(budget),
	}
	return cfg, nil
}

func (r *Registry) uintSetting(ctx context.Context, key string, bits int) (uint64, error) {
	raw, err := r.store.GetSetting(ctx, key)
	if err == repository.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(raw, 10, bits)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrInternal, "invalid stored setting "+key)
	}
	return v, nil
}

// SetProtocolConfig validates and stores a new protocol configuration.
// Existing competitions keep the fee rate they were created with.
func (r *Registry) SetProtocolConfig(ctx context.Context, cfg competition.ProtocolConfig) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for key, value := range encode(cfg) {
		if err := r.store.SetSetting(ctx, key, value); err != nil {
			return err
		}
	}
	r.log.Info("Protocol config updated",
		"fee_basis_points", cfg.FeeBasisPoints,
		"fee_destination", cfg.FeeDestination,
		"randomness_fee", cfg.RandomnessFee)
	return nil
}

// CreateStudio registers a new studio owned by owner
func (r *Registry) CreateStudio(ctx context.Context, name, owner string) (*models.Studio, error) {
	if owner == "" {
		return nil, errors.Validation("studio owner is required")
	}
	now := time.Now().UTC()
	studio := models.Studio{
		ID:        uuid.NewString(),
		Name:      name,
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.CreateStudio(ctx, studio); err != nil {
		return nil, err
	}
	r.log.Info("Studio created", "studio_id", studio.ID, "owner", owner)
	return &studio, nil
}

// TransferStudio hands a studio to a new owner. Only the current owner may do so.
func (r *Registry) TransferStudio(ctx context.Context, id, caller, newOwner string) error {
	if newOwner == "" {
		return errors.Validation("new owner is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	studio, err := r.GetStudio(ctx, id)
	if err != nil {
		return err
	}
	if studio.Owner != caller {
		return &errors.Error{Kind: errors.ErrNotOwner, Message: "caller does not own studio " + id}
	}
	if err := r.store.UpdateStudioOwner(ctx, id, newOwner); err != nil {
		return err
	}
	r.log.Info("Studio transferred", "studio_id", id, "from", caller, "to", newOwner)
	return nil
}

// GetStudio returns a stored studio
func (r *Registry) GetStudio(ctx context.Context, id string) (*models.Studio, error) {
	studio, err := r.store.GetStudio(ctx, id)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.NotFoundf("studio %s not found", id)
	}
	return studio, err
}

// ListStudios returns all studios
func (r *Registry) ListStudios(ctx context.Context) ([]models.Studio, error) {
	return r.store.ListStudios(ctx)
}

// Studio returns a live handle to a studio for competitions to resolve their organizer
func (r *Registry) Studio(ctx context.Context, id string) (competition.Studio, error) {
	if _, err := r.GetStudio(ctx, id); err != nil {
		return nil, err
	}
	return &studioHandle{id: id, registry: r}, nil
}

type studioHandle struct {
	id       string
	registry *Registry
}

func (s *studioHandle) ID() string { return s.id }

func (s *studioHandle) Organizer(ctx context.Context) (string, error) {
	studio, err := s.registry.store.GetStudio(ctx, s.id)
	if err != nil {
		return "", err
	}
	return studio.Owner, nil
}
