// Package blob abstracts the object store that source bundles are read
// from. Implementations cover a local directory of generated output and an
// in-memory store for tests.
package blob

import (
	"context"
	"errors"
)

// Store errors.
var (
	// ErrNotFound is returned when the named object does not exist.
	ErrNotFound = errors.New("blob: object not found")

	// ErrUnauthorized is returned when the store rejects the caller.
	// Freshly granted roles can take minutes to propagate, so listing
	// retries this class of error.
	ErrUnauthorized = errors.New("blob: not authorized")
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	// Name is the object's key within the store
	Name string

	// Size is the object's length in bytes
	Size int64
}

// Store is a read-only view of an object container.
type Store interface {
	// List returns every object in the container.
	List(ctx context.Context) ([]ObjectInfo, error)

	// Download returns the named object's content.
	Download(ctx context.Context, name string) ([]byte, error)
}

// IsAuthError reports whether an error is authorization-shaped and worth
// waiting out.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
