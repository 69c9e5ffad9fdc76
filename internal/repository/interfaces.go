package repository

import (
	"context"

	"github.com/abrezinsky/rafflehouse/internal/models"
)

// StudioRepository defines studio data operations
type StudioRepository interface {
	CreateStudio(ctx context.Context, studio models.Studio) error
	GetStudio(ctx context.Context, id string) (*models.Studio, error)
	ListStudios(ctx context.Context) ([]models.Studio, error)
	UpdateStudioOwner(ctx context.Context, id, owner string) error
}

// CompetitionRepository defines competition read model operations
type CompetitionRepository interface {
	SaveCompetition(ctx context.Context, rec models.CompetitionRecord) error
	GetCompetition(ctx context.Context, id string) (*models.CompetitionRecord, error)
	ListCompetitions(ctx context.Context, status string) ([]models.CompetitionRecord, error)
}

// EventRepository defines event journal operations
type EventRepository interface {
	// RecordEvent appends ev and upserts the competition read model in one transaction
	RecordEvent(ctx context.Context, rec models.CompetitionRecord, ev models.EventRecord) error
	ListEvents(ctx context.Context, competitionID string, afterSeq uint64) ([]models.EventRecord, error)
	LastSeq(ctx context.Context, competitionID string) (uint64, error)
}

// SettingsRepository defines settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	GetStats(ctx context.Context) (*models.Stats, error)
	ClearTable(ctx context.Context, table string) error
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	StudioRepository
	CompetitionRepository
	EventRepository
	SettingsRepository
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
