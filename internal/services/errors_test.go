package services_test

import (
	"strings"
	"testing"

	apperrors "github.com/abrezinsky/rafflehouse/internal/errors"
	"github.com/abrezinsky/rafflehouse/internal/services"
)

func TestServiceError_Error(t *testing.T) {
	err := &services.ServiceError{Message: "test error message"}

	result := err.Error()

	if result != "test error message" {
		t.Errorf("expected 'test error message', got %q", result)
	}
}

func TestInvalidTableError_Error(t *testing.T) {
	err := &services.InvalidTableError{Table: "bad_table"}

	result := err.Error()

	if !strings.Contains(result, "bad_table") {
		t.Errorf("expected error to contain 'bad_table', got %q", result)
	}
	if !strings.Contains(result, "invalid table") {
		t.Errorf("expected error to mention 'invalid table', got %q", result)
	}
	if apperrors.KindOf(err) != apperrors.ErrValidation {
		t.Errorf("expected validation kind, got %v", apperrors.KindOf(err))
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
		kind     apperrors.Kind
	}{
		{"ErrNoTablesSpecified", services.ErrNoTablesSpecified, "no tables", apperrors.ErrValidation},
		{"ErrBaseURLNotConfigured", services.ErrBaseURLNotConfigured, "base_url", apperrors.ErrConflict},
		{"ErrCallerRequired", services.ErrCallerRequired, "caller", apperrors.ErrUnauthorized},
		{"ErrNotStudioOwner", services.ErrNotStudioOwner, "studio owner", apperrors.ErrNotOwner},
		{"ErrInvalidAmount", services.ErrInvalidAmount, "positive", apperrors.ErrValidation},
		{"ErrCompetitionNotRunning", services.ErrCompetitionNotRunning, "not loaded", apperrors.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(tt.err.Error(), tt.contains) {
				t.Errorf("expected error to contain %q, got %q", tt.contains, tt.err.Error())
			}
			if got := apperrors.KindOf(tt.err); got != tt.kind {
				t.Errorf("expected kind %v, got %v", tt.kind, got)
			}
		})
	}
}
