// Package storage is the durable object-store boundary. Deletes are
// best-effort: the backing store is assumed eventually consistent, and
// sweep paths log individual failures without aborting.
package storage

import (
	"context"
	"io"
)

// ObjectStore is the narrow interface the core needs from durable storage.
type ObjectStore interface {
	// Put writes an object under path with the given content type.
	Put(ctx context.Context, path string, data []byte, contentType string) error
	// Get opens an object for reading; the caller closes it.
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, path string) error
}
