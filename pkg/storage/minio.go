package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"voiceqa-server/pkg/config"
)

// MinioStore persists artifacts in an S3-compatible object store
type MinioStore struct {
	logger *logrus.Logger
	client *minio.Client
	bucket string
}

// NewMinioStore creates and verifies a MinIO-backed store
func NewMinioStore(logger *logrus.Logger, cfg *config.MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init S3 client: %w", err)
	}

	exists, err := client.BucketExists(context.Background(), cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.Bucket)
	}

	return &MinioStore{
		logger: logger,
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// Name returns the backend name
func (s *MinioStore) Name() string {
	return "minio"
}

// Store uploads the file as a uuid-keyed object with user metadata
func (s *MinioStore) Store(ctx context.Context, path string, metadata map[string]string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", ErrSourceMissing, path)
	}

	id := uuid.New().String()
	key := id + filepath.Ext(path)

	_, err := s.client.FPutObject(ctx, s.bucket, key, path, minio.PutObjectOptions{
		ContentType:  "audio/wav",
		UserMetadata: metadata,
	})
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"file_id": id,
		"bucket":  s.bucket,
		"key":     key,
	}).Info("Audio stored in object storage")

	return id, nil
}
