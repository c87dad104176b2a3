package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrObjectNotFound is returned when an artifact does not exist in the backend
var ErrObjectNotFound = errors.New("artifact not found")

// Storage interface for artifact storage operations (statute snapshots, index files)
type Storage interface {
	// Upload stores an artifact under name and returns the storage path
	Upload(ctx context.Context, name string, data io.Reader) (string, error)

	// Download retrieves an artifact by name. Returns ErrObjectNotFound if missing.
	Download(ctx context.Context, name string) (io.ReadCloser, error)

	// Delete removes an artifact by name
	Delete(ctx context.Context, name string) error
}

// StorageType represents the storage backend type
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

// StorageConfig holds configuration for storage
type StorageConfig struct {
	Type         StorageType
	LocalPath    string // For local storage
	S3Bucket     string // For S3 storage
	S3Region     string // For S3 storage
	S3Prefix     string // Key prefix inside the bucket
	AWSAccessKey string
	AWSSecretKey string
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg StorageConfig) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal, "":
		return NewLocalStorage(cfg.LocalPath)
	case StorageTypeS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("AWS_S3_BUCKET is required for S3 storage")
		}
		if cfg.S3Region == "" {
			cfg.S3Region = "us-east-1"
		}
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// cleanName normalizes an artifact name into a relative slash-separated key.
// Names that try to escape the storage root are rejected.
func cleanName(name string) (string, error) {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	if name == "" {
		return "", errors.New("artifact name is empty")
	}
	cleaned := path.Clean("/" + name)[1:]
	if cleaned == "" || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("invalid artifact name: %s", name)
	}
	return cleaned, nil
}
