package repository

import (
	"context"
	"errors"

	"docsync/internal/model"
)

// ErrDuplicate reports an insert rejected by the identifier uniqueness
// constraint.
var ErrDuplicate = errors.New("duplicate document identifier")

// DocumentRepository defines data access for the local document record using
// SQL queries only. No business logic here - strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document record. The identifier column carries a
	// uniqueness constraint; a duplicate insert wraps ErrDuplicate.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByIdentifier returns a document by its business identifier.
	FindByIdentifier(ctx context.Context, identifier string) (*model.Document, error)

	// FindByObjectID returns the document whose store object id matches.
	FindByObjectID(ctx context.Context, objectID string) (*model.Document, error)

	// Update persists the document's mutable metadata fields.
	Update(ctx context.Context, doc *model.Document) (*model.Document, error)

	// SetObjectID persists the store object id assigned on materialization.
	SetObjectID(ctx context.Context, id string, objectID string) error

	// DeleteByObjectID removes the record matching the store object id and
	// returns the number of rows removed (0 when none matched).
	DeleteByObjectID(ctx context.Context, objectID string) (int64, error)

	// List returns a paginated list of documents and the total rows count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Document], error)
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
