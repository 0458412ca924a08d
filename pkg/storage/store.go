package storage

import (
	"context"
	"errors"
)

// ErrSourceMissing is returned when the file to store does not exist
var ErrSourceMissing = errors.New("source file does not exist")

// Store persists audio artifacts with metadata and returns an opaque
// storage identifier.
type Store interface {
	// Name returns the backend name
	Name() string

	// Store persists the file at path with the given metadata
	Store(ctx context.Context, path string, metadata map[string]string) (string, error)
}
