// Package repository defines persistence interfaces consumed by the
// application layer.
package repository

import (
	"context"

	"github.com/probelab/benchforge/internal/domain/history"
)

// HistoryRepository persists finished benchmark runs.
type HistoryRepository interface {
	// Save stores one run record with its results.
	Save(ctx context.Context, record *history.Record) error

	// GetByID retrieves a run record with its results.
	GetByID(ctx context.Context, id string) (*history.Record, error)

	// List returns the newest runs first, without result rows.
	// A non-positive limit returns everything.
	List(ctx context.Context, limit int) ([]*history.Record, error)

	// Prune deletes all but the newest keep runs and reports how many
	// were removed.
	Prune(ctx context.Context, keep int) (int64, error)
}
