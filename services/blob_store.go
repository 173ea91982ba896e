package services

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/google/uuid"
)

// BlobStore is the storage collaborator behind fabric sample photos
type BlobStore interface {
	// PutBlob stores data and returns the reference to keep on the order
	PutBlob(ctx context.Context, data []byte, contentType string) (string, error)

	// DeleteBlob removes a stored blob; an empty reference is a no-op
	DeleteBlob(ctx context.Context, ref string) error

	// BlobURL returns a URL a browser can load the blob from
	BlobURL(ctx context.Context, ref string) (string, error)
}

var blobStoreInstance BlobStore

// GetBlobStore returns the initialized blob store instance
func GetBlobStore() BlobStore {
	return blobStoreInstance
}

// SetBlobStore sets the blob store instance
func SetBlobStore(store BlobStore) {
	blobStoreInstance = store
}

// newBlobKey generates a unique key such as fabric-samples/3f2c....png
func newBlobKey(contentType string) string {
	ext := ".bin"
	switch contentType {
	case "image/png":
		ext = ".png"
	case "image/jpeg":
		ext = ".jpg"
	default:
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return fmt.Sprintf("fabric-samples/%s%s", uuid.NewString(), ext)
}

// blobFilename strips the key prefix, leaving the name used on local disk
func blobFilename(ref string) string {
	return strings.TrimPrefix(ref, "fabric-samples/")
}
