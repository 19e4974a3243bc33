package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"docsync/internal/model"
	"docsync/internal/repository"
)

// SyncRunPostgres is a PostgreSQL implementation of repository.SyncRunRepository.
type SyncRunPostgres struct {
	db DBTX
}

// NewSyncRunPostgres creates a new SyncRunPostgres repository.
func NewSyncRunPostgres(db DBTX) *SyncRunPostgres {
	return &SyncRunPostgres{db: db}
}

var _ repository.SyncRunRepository = (*SyncRunPostgres)(nil)

// Create inserts a new in_progress run row at the given token.
func (r *SyncRunPostgres) Create(ctx context.Context, token int64) (*model.SyncRun, error) {
	const q = `
		INSERT INTO sync_runs (id, token, status, started_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, token, status, started_at, completed_at
	`
	row := r.db.QueryRowContext(ctx, q, uuid.NewString(), token, model.SyncRunInProgress, time.Now().UTC())
	return scanSyncRun(row)
}

// CountInProgressExcept counts in_progress runs other than the given one.
func (r *SyncRunPostgres) CountInProgressExcept(ctx context.Context, id string) (int, error) {
	const q = `SELECT COUNT(*) FROM sync_runs WHERE status = $1 AND id <> $2`
	var n int
	if err := r.db.QueryRowContext(ctx, q, model.SyncRunInProgress, id).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// LastCompleted returns the most recent completed run, or nil when none exists.
func (r *SyncRunPostgres) LastCompleted(ctx context.Context) (*model.SyncRun, error) {
	const q = `
		SELECT id, token, status, started_at, completed_at
		FROM sync_runs
		WHERE status = $1
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`
	run, err := scanSyncRun(r.db.QueryRowContext(ctx, q, model.SyncRunCompleted))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return run, nil
}

// MarkCompleted transitions the run to completed.
func (r *SyncRunPostgres) MarkCompleted(ctx context.Context, id string) error {
	const q = `UPDATE sync_runs SET status = $2, completed_at = now() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id, model.SyncRunCompleted)
	return err
}

// Delete removes a run row.
func (r *SyncRunPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM sync_runs WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

func scanSyncRun(row interface{ Scan(dest ...any) error }) (*model.SyncRun, error) {
	var run model.SyncRun
	if err := row.Scan(
		&run.ID,
		&run.Token,
		&run.Status,
		&run.StartedAt,
		&run.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &run, nil
}
