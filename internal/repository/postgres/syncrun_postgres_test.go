package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"docsync/internal/model"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

var syncRunTestColumns = []string{"id", "token", "status", "started_at", "completed_at"}

func TestSyncRunPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSyncRunPostgres(db)
	ctx := context.Background()

	rows := sqlmock.NewRows(syncRunTestColumns).
		AddRow("run-1", int64(42), string(model.SyncRunInProgress), time.Now().UTC(), nil)

	mock.ExpectQuery("INSERT INTO sync_runs").
		WithArgs(sqlmock.AnyArg(), int64(42), model.SyncRunInProgress, sqlmock.AnyArg()).
		WillReturnRows(rows)

	run, err := repo.Create(ctx, 42)

	assert.NoError(t, err)
	assert.Equal(t, int64(42), run.Token)
	assert.Equal(t, model.SyncRunInProgress, run.Status)
	assert.Nil(t, run.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncRunPostgres_CountInProgressExcept(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSyncRunPostgres(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM sync_runs").
		WithArgs(model.SyncRunInProgress, "run-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	n, err := repo.CountInProgressExcept(ctx, "run-1")

	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSyncRunPostgres_LastCompleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSyncRunPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		completed := time.Now().UTC()
		rows := sqlmock.NewRows(syncRunTestColumns).
			AddRow("run-0", int64(17), string(model.SyncRunCompleted), completed.Add(-time.Minute), completed)

		mock.ExpectQuery("SELECT (.+) FROM sync_runs").
			WithArgs(model.SyncRunCompleted).
			WillReturnRows(rows)

		run, err := repo.LastCompleted(ctx)

		assert.NoError(t, err)
		assert.Equal(t, int64(17), run.Token)
		assert.NotNil(t, run.CompletedAt)
	})

	t.Run("empty ledger yields nil without error", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM sync_runs").
			WithArgs(model.SyncRunCompleted).
			WillReturnError(sql.ErrNoRows)

		run, err := repo.LastCompleted(ctx)

		assert.NoError(t, err)
		assert.Nil(t, run)
	})
}

func TestSyncRunPostgres_MarkCompleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSyncRunPostgres(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE sync_runs SET status").
		WithArgs("run-1", model.SyncRunCompleted).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.MarkCompleted(ctx, "run-1")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncRunPostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSyncRunPostgres(db)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM sync_runs WHERE id = ?").
		WithArgs("run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Delete(ctx, "run-1")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
