// Package storage provides an S3-compatible object store used to archive the
// raw CSV files behind each dataset, so an analysis can always be traced back
// to its exact inputs.
package storage

import (
	"context"
	"io"
	"time"
)

// PresignedURL contains the URL and metadata for a presigned download.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service defines the object storage operations the dataset module needs.
type Service interface {
	// ArchiveFile uploads a raw input file under the dataset's folder and
	// returns the full file key.
	ArchiveFile(ctx context.Context, bucket, folder, fileName string, reader io.Reader, size int64) (string, error)

	// GenerateDownloadURL creates a presigned URL for retrieving an archived file.
	GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*PresignedURL, error)

	// DeleteObject removes an archived file.
	DeleteObject(ctx context.Context, bucket, fileKey string) error

	// EnsureBucketExists creates the bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context, bucket string) error

	// ValidateFileSize checks the upload against the configured limit.
	ValidateFileSize(sizeBytes int64) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	IsMinIOEnabled() bool
}
