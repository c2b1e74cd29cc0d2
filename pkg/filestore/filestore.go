// Package filestore abstracts the object store that holds uploaded import
// files between the upload request and background processing.
package filestore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("filestore: object not found")

// Store is a minimal object store. Keys are opaque slash-separated paths.
type Store interface {
	Put(ctx context.Context, key string, content []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
