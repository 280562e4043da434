// Package storage keeps claim evidence photos in S3-compatible object storage.
package storage

import (
	"context"
	"io"
	"time"
)

// PresignedURL is a time-limited link to a stored object.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// EvidenceStore is the object storage the claims module needs.
type EvidenceStore interface {
	// UploadEvidence stores an evidence photo under folder and returns its key.
	UploadEvidence(ctx context.Context, folder, fileName, contentType string, reader io.Reader, size int64) (string, error)

	// EvidenceURL creates a presigned download link for reviewers.
	EvidenceURL(ctx context.Context, fileKey string) (*PresignedURL, error)

	// ValidateEvidence checks content type and size before upload.
	ValidateEvidence(contentType string, sizeBytes int64) error

	// MaxFileSize returns the configured maximum evidence size in bytes.
	MaxFileSize() int64
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketEvidence() string
	IsMinIOEnabled() bool
}
