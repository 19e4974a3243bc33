package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"docsync/internal/repository"
)

// TxManager binds the repositories to a single database/sql transaction so a
// whole reconciliation run commits or rolls back as one unit.
type TxManager struct {
	db *sql.DB
}

// NewTxManager creates a transaction manager over the given database handle.
func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

var _ repository.TxManager = (*TxManager)(nil)

// WithinTx starts a transaction, runs fn with transaction-bound repositories,
// and commits when fn returns nil. Any error (or panic) rolls the whole
// transaction back before being propagated.
func (m *TxManager) WithinTx(ctx context.Context, fn func(r repository.Repos) error) (err error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	repos := repository.Repos{
		Documents: NewDocumentPostgres(tx),
		Runs:      NewSyncRunPostgres(tx),
	}
	if err := fn(repos); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w; rollback failed: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
