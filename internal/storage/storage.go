package storage

import (
	"context"
	"io"
)

// Archive receives a copy of a document's content stream before the
// document is detached from its case or deleted in the remote store.
// Implementations stream the content through; nothing touches local disk.

// PutOptions carry optional upload parameters. Size is the exact byte
// count if known, -1 otherwise.
type PutOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo describes a stored archive object.
type ObjectInfo struct {
	Key  string
	Size int64
	ETag string
}

// Archive is the audit-copy sink for document content.
type Archive interface {
	Put(ctx context.Context, key string, r io.Reader, opt PutOptions) (ObjectInfo, error)
}
