package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/abrezinsky/rafflehouse/internal/models"
	"github.com/abrezinsky/rafflehouse/internal/repository"
)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

// SeedStudio inserts a studio row directly
func SeedStudio(t *testing.T, repo repository.StudioRepository, id, owner string) {
	t.Helper()

	now := time.Now().UTC()
	err := repo.CreateStudio(context.Background(), models.Studio{
		ID: id, Name: id, Owner: owner, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("failed to seed studio %s: %v", id, err)
	}
}
