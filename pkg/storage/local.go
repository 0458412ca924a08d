package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LocalStore persists artifacts under a directory on the local
// filesystem, one uuid-named copy per stored file plus a JSON metadata
// sidecar.
type LocalStore struct {
	logger *logrus.Logger
	root   string
}

// NewLocalStore creates a local filesystem store rooted at dir
func NewLocalStore(logger *logrus.Logger, dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &LocalStore{logger: logger, root: dir}, nil
}

// Name returns the backend name
func (s *LocalStore) Name() string {
	return "local"
}

// Store copies the file into the store and writes its metadata sidecar
func (s *LocalStore) Store(ctx context.Context, path string, metadata map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrSourceMissing, path)
		}
		return "", fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	id := uuid.New().String()
	destPath := filepath.Join(s.root, id+filepath.Ext(path))

	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create stored file: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, src); err != nil {
		return "", fmt.Errorf("failed to copy into store: %w", err)
	}

	if len(metadata) > 0 {
		sidecar, err := json.MarshalIndent(metadata, "", "  ")
		if err == nil {
			if werr := os.WriteFile(destPath+".meta.json", sidecar, 0o644); werr != nil {
				s.logger.WithError(werr).Warn("Failed to write metadata sidecar")
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"file_id": id,
		"source":  filepath.Base(path),
	}).Info("Audio stored locally")

	return id, nil
}
