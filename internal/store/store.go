package store

import (
	"context"
	"errors"
	"io"
)

// Package store defines the capability boundary to the remote content store.
// Implementations (see the browser subpackage) adapt the actual wire protocol;
// nothing above this interface knows how the store is spoken to.

var (
	// ErrNotFound is returned when a referenced object, folder or path does not
	// exist in the store.
	ErrNotFound = errors.New("store: object not found")
	// ErrConflict is returned on a stale property update or a content write
	// against a mismatched lock token.
	ErrConflict = errors.New("store: update conflict")
	// ErrLocked is returned when a checkout is attempted on an object that
	// already has a working copy.
	ErrLocked = errors.New("store: object already checked out")
)

// Folder is a node in the store's hierarchical namespace.
type Folder struct {
	ObjectID string
	Name     string
	Path     string
}

// DocumentHandle references one live store object together with the property
// values the store reported when the handle was resolved.
type DocumentHandle struct {
	ObjectID   string
	Name       string
	Properties map[string]any
	// CheckoutID is the working-copy token when the version series is checked
	// out, empty otherwise.
	CheckoutID string
	// CheckoutBy is the holder identity of the working copy, empty when not
	// checked out.
	CheckoutBy string
	// HasContent reports whether a content stream has been set on the object.
	HasContent bool
	// ParentID is the object id of the (single) parent folder.
	ParentID string
	// Path is the first path of the object, used to derive its case folder.
	Path string
}

// Lock identifies a working copy created by Checkout.
type Lock struct {
	CheckoutID string
	CheckoutBy string
	ObjectID   string
}

// ChangeType classifies one changelog entry.
type ChangeType string

const (
	ChangeCreated  ChangeType = "created"
	ChangeUpdated  ChangeType = "updated"
	ChangeDeleted  ChangeType = "deleted"
	ChangeSecurity ChangeType = "security"
)

// ChangeEntry is one entry of the store's incremental changelog feed.
type ChangeEntry struct {
	ID       string
	ObjectID string
	Type     ChangeType
}

// ChangeIterator is a finite, one-shot cursor over a changelog window. It is
// not restartable: each GetChanges call establishes a fresh window and the
// iterator must be consumed exactly once. After Next returns false the caller
// must check Err for a mid-stream transport failure.
type ChangeIterator interface {
	Next() (ChangeEntry, bool)
	Err() error
}

// Gateway is the capability interface over the remote document store. All side
// effects are against the store; implementations keep no cache beyond a single
// call's result.
type Gateway interface {
	// ResolveFolder gets or creates the folder with the given name under the
	// parent (store root when parent is nil). The returned flag reports whether
	// the folder was created. Never errors on "already exists"; no duplicate
	// siblings are ever created.
	ResolveFolder(ctx context.Context, name string, typeID string, parent *Folder) (Folder, bool, error)

	// ResolvePath looks up a folder by its absolute path. ErrNotFound if absent.
	ResolvePath(ctx context.Context, path string) (Folder, error)

	// QueryDocumentByIdentifier resolves the latest version of the tracked
	// document carrying the given business identifier. ErrNotFound if absent.
	QueryDocumentByIdentifier(ctx context.Context, identifier string) (DocumentHandle, error)

	// GetObject fetches a live object by its store object id.
	GetObject(ctx context.Context, objectID string) (DocumentHandle, error)

	// CreateDocument creates a document with properties and content in one step
	// under the parent folder and returns its handle.
	CreateDocument(ctx context.Context, parent Folder, name string, properties map[string]any, content io.Reader, contentType string) (DocumentHandle, error)

	// GetContent returns the object's content stream. When the object has no
	// content set, it returns an empty stream, not an error.
	GetContent(ctx context.Context, handle DocumentHandle) (io.ReadCloser, error)

	// SetContent overwrites the object's content stream, producing a new
	// content version per store semantics.
	SetContent(ctx context.Context, handle DocumentHandle, content io.Reader, contentType string) error

	// UpdateProperties sends only the given property diff. ErrConflict when the
	// handle is stale relative to an active lock held by another token.
	UpdateProperties(ctx context.Context, handle DocumentHandle, diff map[string]any) error

	// Checkout creates a working copy. ErrLocked when one already exists.
	Checkout(ctx context.Context, handle DocumentHandle) (Lock, error)

	// CancelCheckout discards the working copy.
	CancelCheckout(ctx context.Context, lock Lock) error

	// Checkin commits the working copy as the new latest version.
	Checkin(ctx context.Context, lock Lock) error

	// Move moves the object from one folder to another.
	Move(ctx context.Context, handle DocumentHandle, from, to Folder) error

	// Delete removes the object from the store.
	Delete(ctx context.Context, handle DocumentHandle) error

	// LatestChangeToken refreshes the repository metadata and returns the
	// current changelog watermark.
	LatestChangeToken(ctx context.Context) (int64, error)

	// GetChanges opens a one-shot iterator over at most maxItems changelog
	// entries after sinceToken.
	GetChanges(ctx context.Context, sinceToken int64, maxItems int64) (ChangeIterator, error)
}
