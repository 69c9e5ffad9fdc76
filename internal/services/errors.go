package services

import (
	"fmt"

	apperrors "github.com/abrezinsky/rafflehouse/internal/errors"
)

// Service errors
var (
	ErrNoTablesSpecified     = &ServiceError{Message: "no tables specified", Kind: apperrors.ErrValidation}
	ErrBaseURLNotConfigured  = &ServiceError{Message: "base_url not configured", Kind: apperrors.ErrConflict}
	ErrCallerRequired        = &ServiceError{Message: "caller address is required", Kind: apperrors.ErrUnauthorized}
	ErrNotStudioOwner        = &ServiceError{Message: "only the studio owner may create competitions", Kind: apperrors.ErrNotOwner}
	ErrInvalidAmount         = &ServiceError{Message: "amount must be positive", Kind: apperrors.ErrValidation}
	ErrCompetitionNotRunning = &ServiceError{Message: "competition is not loaded in this process", Kind: apperrors.ErrInvalidState}
)

// ServiceError represents a service-level error
type ServiceError struct {
	Message string
	Kind    apperrors.Kind
}

func (e *ServiceError) Error() string {
	return e.Message
}

// ErrorKind classifies the error for the transport layer
func (e *ServiceError) ErrorKind() apperrors.Kind {
	return e.Kind
}

// InvalidTableError represents an invalid table name error
type InvalidTableError struct {
	Table string
}

func (e *InvalidTableError) Error() string {
	return fmt.Sprintf("invalid table name: %s", e.Table)
}

// ErrorKind classifies the error for the transport layer
func (e *InvalidTableError) ErrorKind() apperrors.Kind {
	return apperrors.ErrValidation
}
