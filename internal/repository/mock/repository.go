package mock

import (
	"context"

	"github.com/abrezinsky/rafflehouse/internal/models"
	"github.com/abrezinsky/rafflehouse/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
// This provides a flexible way to test error paths without complex database manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.RecordEventError = errors.New("database error")
//	svc := services.NewCompetitionService(log, mockRepo, ...)
//	// journal writes now fail with the injected error
type Repository struct {
	repository.FullRepository

	// ===== Studio Errors =====
	CreateStudioError      error
	GetStudioError         error
	ListStudiosError       error
	UpdateStudioOwnerError error

	// ===== Competition Errors =====
	SaveCompetitionError  error
	GetCompetitionError   error
	ListCompetitionsError error

	// ===== Event Errors =====
	RecordEventError error
	ListEventsError  error
	LastSeqError     error

	// ===== Settings Errors =====
	GetSettingError error
	SetSettingError error
	GetStatsError   error
	ClearTableError error
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
	}
}

// ===== Studio Methods =====

func (m *Repository) CreateStudio(ctx context.Context, studio models.Studio) error {
	if m.CreateStudioError != nil {
		return m.CreateStudioError
	}
	return m.FullRepository.CreateStudio(ctx, studio)
}

func (m *Repository) GetStudio(ctx context.Context, id string) (*models.Studio, error) {
	if m.GetStudioError != nil {
		return nil, m.GetStudioError
	}
	return m.FullRepository.GetStudio(ctx, id)
}

func (m *Repository) ListStudios(ctx context.Context) ([]models.Studio, error) {
	if m.ListStudiosError != nil {
		return nil, m.ListStudiosError
	}
	return m.FullRepository.ListStudios(ctx)
}

func (m *Repository) UpdateStudioOwner(ctx context.Context, id, owner string) error {
	if m.UpdateStudioOwnerError != nil {
		return m.UpdateStudioOwnerError
	}
	return m.FullRepository.UpdateStudioOwner(ctx, id, owner)
}

// ===== Competition Methods =====

func (m *Repository) SaveCompetition(ctx context.Context, rec models.CompetitionRecord) error {
	if m.SaveCompetitionError != nil {
		return m.SaveCompetitionError
	}
	return m.FullRepository.SaveCompetition(ctx, rec)
}

func (m *Repository) GetCompetition(ctx context.Context, id string) (*models.CompetitionRecord, error) {
	if m.GetCompetitionError != nil {
		return nil, m.GetCompetitionError
	}
	return m.FullRepository.GetCompetition(ctx, id)
}

func (m *Repository) ListCompetitions(ctx context.Context, status string) ([]models.CompetitionRecord, error) {
	if m.ListCompetitionsError != nil {
		return nil, m.ListCompetitionsError
	}
	return m.FullRepository.ListCompetitions(ctx, status)
}

// ===== Event Methods =====

func (m *Repository) RecordEvent(ctx context.Context, rec models.CompetitionRecord, ev models.EventRecord) error {
	if m.RecordEventError != nil {
		return m.RecordEventError
	}
	return m.FullRepository.RecordEvent(ctx, rec, ev)
}

func (m *Repository) ListEvents(ctx context.Context, competitionID string, afterSeq uint64) ([]models.EventRecord, error) {
	if m.ListEventsError != nil {
		return nil, m.ListEventsError
	}
	return m.FullRepository.ListEvents(ctx, competitionID, afterSeq)
}

func (m *Repository) LastSeq(ctx context.Context, competitionID string) (uint64, error) {
	if m.LastSeqError != nil {
		return 0, m.LastSeqError
	}
	return m.FullRepository.LastSeq(ctx, competitionID)
}

// ===== Settings Methods =====

func (m *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	if m.GetSettingError != nil {
		return "", m.GetSettingError
	}
	return m.FullRepository.GetSetting(ctx, key)
}

func (m *Repository) SetSetting(ctx context.Context, key, value string) error {
	if m.SetSettingError != nil {
		return m.SetSettingError
	}
	return m.FullRepository.SetSetting(ctx, key, value)
}

func (m *Repository) GetStats(ctx context.Context) (*models.Stats, error) {
	if m.GetStatsError != nil {
		return nil, m.GetStatsError
	}
	return m.FullRepository.GetStats(ctx)
}

func (m *Repository) ClearTable(ctx context.Context, table string) error {
	if m.ClearTableError != nil {
		return m.ClearTableError
	}
	return m.FullRepository.ClearTable(ctx, table)
}
