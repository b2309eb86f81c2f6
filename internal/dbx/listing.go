package dbx

import (
	"context"
	"errors"
)

// Entry is one item returned by a single listing call.
type Entry struct {
	Path  string
	Name  string
	IsDir bool
	Size  int64
	// SizeEstimated marks entries from namespaces that do not report
	// exact sizes (Size then carries a fixed per-item estimate).
	SizeEstimated bool
}

// ErrListFailed wraps listing failures that exhausted retries or hit
// an unexpected response. Callers treat the path as having no
// content, but can count the failure.
var ErrListFailed = errors.New("listing failed")

// Lister lists the children of a path in one remote filesystem
// namespace. A nil entry slice with a nil error means the path has no
// content (including "path not found", which is not an error).
type Lister interface {
	// Name identifies the namespace ("dbfs", "workspace").
	Name() string

	// HomePath returns the namespace's home directory for a subject.
	HomePath(subject string) string

	// ListChildren returns the direct children of path.
	ListChildren(ctx context.Context, path string) ([]Entry, error)
}
