package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound           = errors.New("record not found")
	ErrUnsupportedBackend = errors.New("unsupported backend")
	ErrFixture            = errors.New("invalid fixture")
	ErrMigration          = errors.New("migration failed")
)
