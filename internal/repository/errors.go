package repository

import "errors"

// ErrNotFound is returned when a requested record is not found in the repository.
// This abstracts away the underlying storage implementation from the service layer.
var ErrNotFound = errors.New("record not found")

// ErrInvalidTable is returned when attempting to clear a table that is not whitelisted.
var ErrInvalidTable = errors.New("invalid table name")

// ErrDuplicate is returned when an insert collides with an existing key
var ErrDuplicate = errors.New("duplicate record")
