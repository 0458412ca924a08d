package storage

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore records stored artifacts in memory. Used in tests and as
// a stand-in when no durable backend is configured.
type MemoryStore struct {
	mu sync.Mutex

	// Stored maps storage id to the original path
	Stored map[string]string

	// Metadata maps storage id to the metadata it was stored with
	Metadata map[string]map[string]string

	// Fail forces every call to return an error
	Fail error

	// SkipExistsCheck disables the source existence check
	SkipExistsCheck bool
}

// NewMemoryStore creates an in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Stored:   make(map[string]string),
		Metadata: make(map[string]map[string]string),
	}
}

// Name returns the backend name
func (s *MemoryStore) Name() string {
	return "memory"
}

// Store records the file and returns a fresh id
func (s *MemoryStore) Store(ctx context.Context, path string, metadata map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Fail != nil {
		return "", s.Fail
	}

	if !s.SkipExistsCheck {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %s", ErrSourceMissing, path)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	s.Stored[id] = path
	s.Metadata[id] = metadata
	return id, nil
}
