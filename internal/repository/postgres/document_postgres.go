package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"docsync/internal/model"
	"docsync/internal/repository"
)

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx. Repositories
// are constructed over it so the sync engine can bind them to one transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db DBTX
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db DBTX) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, identifier, store_object_id, title, description, author, language, confidentiality, creation_date, receipt_date, send_date, created_at, updated_at`

func scanDocument(row interface{ Scan(dest ...any) error }) (*model.Document, error) {
	var d model.Document
	if err := row.Scan(
		&d.ID,
		&d.Identifier,
		&d.StoreObjectID,
		&d.Title,
		&d.Description,
		&d.Author,
		&d.Language,
		&d.Confidentiality,
		&d.CreationDate,
		&d.ReceiptDate,
		&d.SendDate,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, identifier, store_object_id, title, description, author, language, confidentiality, creation_date, receipt_date, send_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Identifier,
		doc.StoreObjectID,
		doc.Title,
		doc.Description,
		doc.Author,
		doc.Language,
		doc.Confidentiality,
		doc.CreationDate,
		doc.ReceiptDate,
		doc.SendDate,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	stored, err := scanDocument(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", repository.ErrDuplicate, doc.Identifier)
		}
		return nil, err
	}
	return stored, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation
// (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// FindByIdentifier fetches a single document by its business identifier.
func (r *DocumentPostgres) FindByIdentifier(ctx context.Context, identifier string) (*model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE identifier = $1
	`
	return scanDocument(r.db.QueryRowContext(ctx, q, identifier))
}

// FindByObjectID fetches the document whose store object id matches.
func (r *DocumentPostgres) FindByObjectID(ctx context.Context, objectID string) (*model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE store_object_id = $1
	`
	return scanDocument(r.db.QueryRowContext(ctx, q, objectID))
}

// Update persists the mutable metadata fields of an existing row.
func (r *DocumentPostgres) Update(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		UPDATE documents
		SET title = $2, description = $3, author = $4, language = $5, confidentiality = $6,
			creation_date = $7, receipt_date = $8, send_date = $9, updated_at = now()
		WHERE id = $1
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Title,
		doc.Description,
		doc.Author,
		doc.Language,
		doc.Confidentiality,
		doc.CreationDate,
		doc.ReceiptDate,
		doc.SendDate,
	)
	return scanDocument(row)
}

// SetObjectID persists the store object id assigned on materialization.
func (r *DocumentPostgres) SetObjectID(ctx context.Context, id string, objectID string) error {
	const q = `UPDATE documents SET store_object_id = $2, updated_at = now() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id, objectID)
	return err
}

// DeleteByObjectID removes the record matching the store object id.
func (r *DocumentPostgres) DeleteByObjectID(ctx context.Context, objectID string) (int64, error) {
	const q = `DELETE FROM documents WHERE store_object_id = $1`
	res, err := r.db.ExecContext(ctx, q, objectID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// List returns documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	// Count total rows
	const qCount = `SELECT COUNT(*) FROM documents`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	// Fetch page
	const qList = `
		SELECT ` + documentColumns + `
		FROM documents
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}
