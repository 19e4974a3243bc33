package repository

import (
	"context"

	"docsync/internal/model"
)

// SyncRunRepository defines data access for the reconciliation run ledger.
type SyncRunRepository interface {
	// Create inserts a new run row with status in_progress at the given token.
	Create(ctx context.Context, token int64) (*model.SyncRun, error)

	// CountInProgressExcept counts in_progress runs other than the given one.
	// Used to detect an overlapping run after optimistically creating ours.
	CountInProgressExcept(ctx context.Context, id string) (int, error)

	// LastCompleted returns the most recent completed run, or nil when the
	// ledger holds none.
	LastCompleted(ctx context.Context) (*model.SyncRun, error)

	// MarkCompleted transitions the run to completed.
	MarkCompleted(ctx context.Context, id string) error

	// Delete removes a run row. Used to back out the optimistic in_progress
	// row when an overlap is detected.
	Delete(ctx context.Context, id string) error
}
