// Package repository provides the roster, activity and viewed-flag stores.
package repository

import (
	"context"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/stats"
)

// ViewedStore persists which ceremonies have been watched.
type ViewedStore interface {
	// MarkViewed records the key. Marking twice is not an error.
	MarkViewed(ctx context.Context, key model.ViewedKey) error
	IsViewed(ctx context.Context, key model.ViewedKey) (bool, error)
}

// Store serves everything the standings and ceremony flows read.
type Store interface {
	stats.Roster
	stats.LogSource
	stats.TrialSource
	ViewedStore

	Close()
}
