package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"docsync/internal/model"
	"docsync/internal/repository"
	"docsync/internal/storage"
	"docsync/internal/store"
)

var (
	ErrIdentifierRequired = errors.New("identifier is required")
	ErrDocumentExists     = errors.New("document identifier is not unique")
	ErrNotFound           = errors.New("document not found")
	// ErrDocumentLocked is returned when a checkout hits an already locked document.
	ErrDocumentLocked = errors.New("document is already checked out")
	// ErrDocumentConflict is returned on a stale working-copy token or a
	// conflicting property update.
	ErrDocumentConflict = errors.New("document update conflict")
)

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// CreateDocumentInput carries everything needed to register a document and
// materialize it in the store in one step. Content may be nil (an empty stream
// is written so the store does not grow a placeholder version later).
type CreateDocumentInput struct {
	Document      model.Document
	CaseReference string
	Filename      string
	Sender        string
	Content       io.Reader
	ContentType   string
}

// UpdateDocumentInput carries a full metadata replacement plus optional new
// content. CheckoutID, when set, must match the document's active working copy;
// the working copy is checked in as the final step.
type UpdateDocumentInput struct {
	Metadata    model.Document
	CheckoutID  string
	Content     io.Reader
	ContentType string
	Filename    string
}

// ReadResult is the outcome of a content read. Filename is empty and Content
// an empty stream when the document has no store object at all; Filename is
// set and Content empty when the object exists without a content stream.
type ReadResult struct {
	Filename string
	Content  io.ReadCloser
}

// DocumentService owns the store-side lifecycle of a single document:
// creation, content, metadata updates, checkout locking, case linking and
// deletion. The remote store is the source of truth for conflict detection;
// there are no local retries.
type DocumentService interface {
	Create(ctx context.Context, in CreateDocumentInput) (*model.Document, error)
	Get(ctx context.Context, identifier string) (*model.Document, error)
	List(ctx context.Context, limit, offset int) (*DocumentListResult, error)
	Read(ctx context.Context, identifier string) (*ReadResult, error)
	SetContent(ctx context.Context, identifier string, content io.Reader, contentType string, checkoutID string) error
	Update(ctx context.Context, in UpdateDocumentInput) (*model.Document, error)
	LinkToCase(ctx context.Context, identifier, caseRef string) error
	UnlinkFromCase(ctx context.Context, identifier, caseRef string) error
	Checkout(ctx context.Context, identifier string) (store.Lock, error)
	CancelCheckout(ctx context.Context, identifier, checkoutID string) error
	IsLocked(ctx context.Context, identifier string) (bool, error)
	Delete(ctx context.Context, identifier string) error
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	gateway store.Gateway
	repo    repository.DocumentRepository
	folders FolderResolver
	// archive receives an audit copy of content before unlink/delete; nil
	// disables archiving.
	archive        storage.Archive
	senderProperty string
}

// NewDocumentService constructs a new DocumentService. archive may be nil.
func NewDocumentService(gateway store.Gateway, repo repository.DocumentRepository, folders FolderResolver, archive storage.Archive, senderProperty string) DocumentService {
	return &documentService{
		gateway:        gateway,
		repo:           repo,
		folders:        folders,
		archive:        archive,
		senderProperty: senderProperty,
	}
}

func validateMetadata(doc *model.Document) error {
	return validation.ValidateStruct(doc,
		validation.Field(&doc.Identifier, validation.Required, validation.Length(1, 128)),
		validation.Field(&doc.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&doc.Language, validation.Length(0, 8)),
	)
}

// resolveHandle finds the latest store version for the document's identifier.
// When checkoutID is supplied the handle's active working-copy token must
// match, otherwise the caller is working on a stale lock.
func (s *documentService) resolveHandle(ctx context.Context, identifier string, checkoutID string) (store.DocumentHandle, error) {
	handle, err := s.gateway.QueryDocumentByIdentifier(ctx, identifier)
	if err != nil {
		return store.DocumentHandle{}, err
	}
	if checkoutID != "" && handle.CheckoutID != checkoutID {
		return store.DocumentHandle{}, fmt.Errorf("%w: wrong working copy token", ErrDocumentConflict)
	}
	return handle, nil
}

func (s *documentService) lockFor(handle store.DocumentHandle, checkoutID string) store.Lock {
	return store.Lock{
		CheckoutID: checkoutID,
		CheckoutBy: handle.CheckoutBy,
		ObjectID:   handle.ObjectID,
	}
}

// Create registers the document locally, materializes it in the store with
// metadata and content in a single call, and persists the assigned store
// object id back onto the record as the final step.
func (s *documentService) Create(ctx context.Context, in CreateDocumentInput) (*model.Document, error) {
	doc := in.Document
	if err := validateMetadata(&doc); err != nil {
		return nil, err
	}

	// Uniqueness pre-check against the store. Not atomic with the create
	// below; a single writer is assumed.
	if _, err := s.gateway.QueryDocumentByIdentifier(ctx, doc.Identifier); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentExists, doc.Identifier)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("query store: %w", err)
	}

	var parent store.Folder
	var err error
	if in.CaseReference == "" {
		parent, _, err = s.gateway.ResolveFolder(ctx, store.TempFolderName, "", nil)
	} else {
		parent, err = s.folders.ResolveCaseFolder(ctx, in.CaseReference)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve target folder: %w", err)
	}

	now := time.Now().UTC()
	doc.ID = uuid.NewString()
	doc.StoreObjectID = nil
	doc.CreatedAt = now
	doc.UpdatedAt = now
	stored, err := s.repo.Create(ctx, &doc)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// A local row exists even though the store has no object, for
			// example an orphan from an earlier failed materialization.
			return nil, fmt.Errorf("%w: %s", ErrDocumentExists, doc.Identifier)
		}
		return nil, fmt.Errorf("save record: %w", err)
	}

	props := buildProperties(stored, in.Filename)
	if s.senderProperty != "" {
		// Overrides the mapped value sent to the store only; the local record
		// keeps its own author field.
		props[s.senderProperty] = in.Sender
	}

	content := in.Content
	if content == nil {
		content = bytes.NewReader(nil)
	}
	handle, err := s.gateway.CreateDocument(ctx, parent, stored.Title, props, content, in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("create store object: %w", err)
	}

	objectID := store.CanonicalObjectID(handle.ObjectID)
	if err := s.repo.SetObjectID(ctx, stored.ID, objectID); err != nil {
		// The store object exists but the record does not point at it; the
		// orphan is accepted (no sweep in this service).
		return nil, fmt.Errorf("persist store object id: %w", err)
	}
	stored.StoreObjectID = &objectID
	return stored, nil
}

// Get returns the local record by identifier.
func (s *documentService) Get(ctx context.Context, identifier string) (*model.Document, error) {
	if identifier == "" {
		return nil, ErrIdentifierRequired
	}
	doc, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

// List returns paginated documents without exposing repository types.
func (s *documentService) List(ctx context.Context, limit, offset int) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

// Read retrieves the document content. Missing store object and missing
// content stream are both non-errors; see ReadResult.
func (s *documentService) Read(ctx context.Context, identifier string) (*ReadResult, error) {
	if identifier == "" {
		return nil, ErrIdentifierRequired
	}
	handle, err := s.gateway.QueryDocumentByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &ReadResult{Filename: "", Content: io.NopCloser(bytes.NewReader(nil))}, nil
		}
		return nil, err
	}
	if !handle.HasContent {
		return &ReadResult{Filename: handle.Name, Content: io.NopCloser(bytes.NewReader(nil))}, nil
	}
	rc, err := s.gateway.GetContent(ctx, handle)
	if err != nil {
		return nil, err
	}
	return &ReadResult{Filename: handle.Name, Content: rc}, nil
}

// SetContent overwrites the document content, producing a new version. With a
// checkoutID the write goes against the validated working copy.
func (s *documentService) SetContent(ctx context.Context, identifier string, content io.Reader, contentType string, checkoutID string) error {
	handle, err := s.resolveHandle(ctx, identifier, checkoutID)
	if err != nil {
		return err
	}
	if err := s.gateway.SetContent(ctx, handle, content, contentType); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("%w: %v", ErrDocumentConflict, err)
		}
		return err
	}
	return nil
}

// Update pushes only the changed property keys to the store, optionally
// writes new content, then replaces the record metadata, and checks the
// working copy in as the final step when a checkout id was supplied. The
// store is written first so a store-side rejection leaves the local record
// untouched.
func (s *documentService) Update(ctx context.Context, in UpdateDocumentInput) (*model.Document, error) {
	if in.Metadata.Identifier == "" {
		return nil, ErrIdentifierRequired
	}
	current, err := s.repo.FindByIdentifier(ctx, in.Metadata.Identifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	next := in.Metadata
	next.ID = current.ID
	next.StoreObjectID = current.StoreObjectID
	next.CreatedAt = current.CreatedAt
	if err := validateMetadata(&next); err != nil {
		return nil, err
	}

	handle, err := s.resolveHandle(ctx, next.Identifier, in.CheckoutID)
	if err != nil {
		return nil, err
	}

	filename := ""
	if in.Content != nil {
		filename = in.Filename
	}
	diff := diffProperties(handle.Properties, buildProperties(&next, filename))
	if err := s.gateway.UpdateProperties(ctx, handle, diff); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("%w: %v", ErrDocumentConflict, err)
		}
		return nil, err
	}

	if in.Content != nil {
		if err := s.SetContent(ctx, next.Identifier, in.Content, in.ContentType, in.CheckoutID); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.Update(ctx, &next)
	if err != nil {
		return nil, fmt.Errorf("save record: %w", err)
	}

	if in.CheckoutID != "" {
		if err := s.gateway.Checkin(ctx, s.lockFor(handle, in.CheckoutID)); err != nil {
			return nil, fmt.Errorf("checkin: %w", err)
		}
	}
	return updated, nil
}

// LinkToCase moves the document from its current folder into the case folder.
// The relationship is carried purely by folder placement.
func (s *documentService) LinkToCase(ctx context.Context, identifier, caseRef string) error {
	handle, err := s.resolveHandle(ctx, identifier, "")
	if err != nil {
		return err
	}
	target, err := s.folders.ResolveCaseFolder(ctx, caseRef)
	if err != nil {
		return err
	}
	from := store.Folder{ObjectID: handle.ParentID}
	return s.gateway.Move(ctx, handle, from, target)
}

// UnlinkFromCase moves the document out of its case folder into the trash
// folder. The store object is kept so the detach is recoverable; an audit copy
// of the content goes to the archive bucket when one is configured.
func (s *documentService) UnlinkFromCase(ctx context.Context, identifier, caseRef string) error {
	handle, err := s.resolveHandle(ctx, identifier, "")
	if err != nil {
		return err
	}
	caseFolder, err := s.folders.ResolveCaseFolder(ctx, caseRef)
	if err != nil {
		return err
	}
	trash, _, err := s.gateway.ResolveFolder(ctx, store.TrashFolderName, "", nil)
	if err != nil {
		return fmt.Errorf("resolve trash folder: %w", err)
	}
	if err := s.archiveContent(ctx, handle); err != nil {
		return fmt.Errorf("archive content: %w", err)
	}
	return s.gateway.Move(ctx, handle, caseFolder, trash)
}

// Checkout locks the document's latest version and returns the working copy
// token and holder.
func (s *documentService) Checkout(ctx context.Context, identifier string) (store.Lock, error) {
	handle, err := s.resolveHandle(ctx, identifier, "")
	if err != nil {
		return store.Lock{}, err
	}
	lock, err := s.gateway.Checkout(ctx, handle)
	if err != nil {
		if errors.Is(err, store.ErrLocked) || errors.Is(err, store.ErrConflict) {
			return store.Lock{}, fmt.Errorf("%w: %s", ErrDocumentLocked, identifier)
		}
		return store.Lock{}, err
	}
	return lock, nil
}

// CancelCheckout discards the working copy identified by checkoutID.
func (s *documentService) CancelCheckout(ctx context.Context, identifier, checkoutID string) error {
	handle, err := s.resolveHandle(ctx, identifier, checkoutID)
	if err != nil {
		return err
	}
	return s.gateway.CancelCheckout(ctx, s.lockFor(handle, checkoutID))
}

// IsLocked reports whether a working copy currently exists.
func (s *documentService) IsLocked(ctx context.Context, identifier string) (bool, error) {
	handle, err := s.resolveHandle(ctx, identifier, "")
	if err != nil {
		return false, err
	}
	return handle.CheckoutID != "", nil
}

// Delete hard-deletes the store object. Intended for documents already moved
// to trash or never case-linked; the local record is left to the changelog
// reconciliation to clean up.
func (s *documentService) Delete(ctx context.Context, identifier string) error {
	handle, err := s.resolveHandle(ctx, identifier, "")
	if err != nil {
		return err
	}
	if err := s.archiveContent(ctx, handle); err != nil {
		return fmt.Errorf("archive content: %w", err)
	}
	return s.gateway.Delete(ctx, handle)
}

// archiveContent copies the object's content into the archive bucket. A nil
// archive or an object without content is a no-op.
func (s *documentService) archiveContent(ctx context.Context, handle store.DocumentHandle) error {
	if s.archive == nil || !handle.HasContent {
		return nil
	}
	rc, err := s.gateway.GetContent(ctx, handle)
	if err != nil {
		return err
	}
	defer rc.Close()

	key := "archive/" + store.CanonicalObjectID(handle.ObjectID) + "/" + handle.Name
	_, err = s.archive.Put(ctx, key, rc, storage.PutOptions{
		Size: -1,
		Metadata: map[string]string{
			"source-object-id": handle.ObjectID,
		},
	})
	return err
}
