package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kendall-kelly/tailoring-orders-api/utils"
)

// LocalBlobStore keeps fabric photos on local disk when no S3 bucket is configured.
// Files are served back by GET /api/v1/uploads/:filename.
type LocalBlobStore struct {
	dir string
}

// NewLocalBlobStore creates a store writing into dir
func NewLocalBlobStore(dir string) *LocalBlobStore {
	return &LocalBlobStore{dir: dir}
}

// PutBlob writes data to a new uniquely named file
func (s *LocalBlobStore) PutBlob(_ context.Context, data []byte, contentType string) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	ref := newBlobKey(contentType)
	fullPath := filepath.Join(s.dir, blobFilename(ref))
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return ref, nil
}

// DeleteBlob removes the file behind ref; a missing file is not an error
func (s *LocalBlobStore) DeleteBlob(_ context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, blobFilename(ref)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// BlobURL returns the API path the file is served from
func (s *LocalBlobStore) BlobURL(_ context.Context, ref string) (string, error) {
	return utils.GetImageURL(blobFilename(ref)), nil
}

// Dir returns the directory files are written to
func (s *LocalBlobStore) Dir() string {
	return s.dir
}
