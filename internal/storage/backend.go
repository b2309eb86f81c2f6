// Package storage defines the Backend interface for run artifacts
// (checkpoints, CSV exports) with local-filesystem and S3
// implementations selected by configuration.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned by GetObject when no object is stored at
// the requested key.
var ErrNotExist = errors.New("object does not exist")

// Backend stores run artifacts by key.
type Backend interface {
	// GetObject retrieves an object by key.
	GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error)

	// PutObject writes content to the given key, replacing any
	// existing object atomically from the reader's point of view.
	PutObject(ctx context.Context, key string, body io.Reader, size int64) error

	// DeleteObject removes an object by key. Deleting a missing
	// object is not an error.
	DeleteObject(ctx context.Context, key string) error

	// ObjectExists checks if an object exists at the given key.
	ObjectExists(ctx context.Context, key string) (bool, error)

	// Type returns the backend type identifier ("local", "s3").
	Type() string

	// Close releases any resources held by the backend.
	Close() error
}
