// Package remote defines the document store the remote watcher polls. The
// store is an opaque, already authenticated handle; see remote/drive for
// the Google Drive implementation.
package remote

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrTransient marks failures worth retrying on the next poll (rate
// limits, server errors, network trouble).
var ErrTransient = errors.New("remote store temporarily unavailable")

// Document is one listed bundle document.
type Document struct {
	ID          string
	Name        string
	MimeType    string
	CreatedTime time.Time
}

// Query selects candidate bundles.
type Query struct {
	// Prefix the document name must start with.
	Prefix string
	// MimeTypes accepted; empty means any.
	MimeTypes []string
	// PageSize caps the number of documents returned.
	PageSize int
}

// Store is the remote document store contract.
type Store interface {
	// List returns matching documents, newest first.
	List(ctx context.Context, q Query) ([]Document, error)
	// Download writes the document content to w.
	Download(ctx context.Context, id string, w io.Writer) error
	// Delete removes the document.
	Delete(ctx context.Context, id string) error
}
