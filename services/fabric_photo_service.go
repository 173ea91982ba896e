package services

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/kendall-kelly/tailoring-orders-api/utils"
)

// PhotoUpload is a fabric sample image read from a request
type PhotoUpload struct {
	Data        []byte
	ContentType string
}

// PhotoFromFileHeader validates a multipart upload and reads it into memory
func PhotoFromFileHeader(fileHeader *multipart.FileHeader) (*PhotoUpload, error) {
	data, contentType, err := utils.ReadImageFile(fileHeader)
	if err != nil {
		return nil, err
	}
	return &PhotoUpload{Data: data, ContentType: contentType}, nil
}

// FabricPhotoService keeps fabric sample photos in a BlobStore.
// A nil BlobStore disables photos: Store fails and URL returns "".
type FabricPhotoService struct {
	blobs BlobStore
}

// NewFabricPhotoService creates a photo service storing into blobs
func NewFabricPhotoService(blobs BlobStore) *FabricPhotoService {
	return &FabricPhotoService{blobs: blobs}
}

// Store uploads the photo, returning the blob reference
func (s *FabricPhotoService) Store(ctx context.Context, photo *PhotoUpload) (string, error) {
	if s == nil || s.blobs == nil {
		return "", fmt.Errorf("failed to upload image: no blob store configured")
	}
	if photo == nil || len(photo.Data) == 0 {
		return "", fmt.Errorf("failed to upload image: empty file")
	}
	if len(photo.Data) > utils.MaxFileSize {
		return "", &utils.FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", utils.MaxFileSize/(1024*1024)),
		}
	}

	ref, err := s.blobs.PutBlob(ctx, photo.Data, photo.ContentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return ref, nil
}

// URL returns a browser URL for ref, or "" for an order without a photo
func (s *FabricPhotoService) URL(ctx context.Context, ref string) (string, error) {
	if ref == "" || s == nil || s.blobs == nil {
		return "", nil
	}

	url, err := s.blobs.BlobURL(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}
	return url, nil
}

// Delete removes the photo behind ref
func (s *FabricPhotoService) Delete(ctx context.Context, ref string) error {
	if ref == "" || s == nil || s.blobs == nil {
		return nil
	}

	if err := s.blobs.DeleteBlob(ctx, ref); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
