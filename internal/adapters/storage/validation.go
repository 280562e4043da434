package storage

import (
	"fmt"
	"strings"
)

// AllowedContentTypes are the photo formats accepted as evidence.
var AllowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/heic": true,
}

// NormalizeContentType drops parameters and lower-cases a MIME type.
func NormalizeContentType(contentType string) string {
	normalized := strings.Split(contentType, ";")[0]
	return strings.TrimSpace(strings.ToLower(normalized))
}

// ValidateContentType checks if the content type is allowed.
func ValidateContentType(contentType string) error {
	if !AllowedContentTypes[NormalizeContentType(contentType)] {
		return fmt.Errorf("content type %q is not allowed", contentType)
	}
	return nil
}

// ValidateFileSize checks sizeBytes against maxBytes.
func ValidateFileSize(sizeBytes, maxBytes int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("file size must be greater than 0")
	}
	if sizeBytes > maxBytes {
		return fmt.Errorf("file size %d bytes exceeds maximum allowed size of %d bytes", sizeBytes, maxBytes)
	}
	return nil
}

// ValidateEvidence checks content type and size before upload.
func (s *MinIOService) ValidateEvidence(contentType string, sizeBytes int64) error {
	if err := ValidateContentType(contentType); err != nil {
		return err
	}
	return ValidateFileSize(sizeBytes, s.maxFileSize)
}
