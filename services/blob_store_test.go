package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBlobKey(t *testing.T) {
	png := newBlobKey("image/png")
	jpeg := newBlobKey("image/jpeg")

	assert.True(t, strings.HasPrefix(png, "fabric-samples/"))
	assert.True(t, strings.HasSuffix(png, ".png"))
	assert.True(t, strings.HasSuffix(jpeg, ".jpg"))
	assert.NotEqual(t, png, newBlobKey("image/png"), "keys are unique")
	assert.True(t, strings.HasSuffix(newBlobKey("application/x-unknown-thing"), ".bin"))
}

func TestLocalBlobStore(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalBlobStore(filepath.Join(dir, "uploads"))
	ctx := context.Background()

	ref, err := store.PutBlob(ctx, []byte("lace swatch"), "image/png")
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(store.Dir(), blobFilename(ref)))
	require.NoError(t, err)
	assert.Equal(t, "lace swatch", string(content))

	url, err := store.BlobURL(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/uploads/"+blobFilename(ref), url)

	require.NoError(t, store.DeleteBlob(ctx, ref))
	_, err = os.Stat(filepath.Join(store.Dir(), blobFilename(ref)))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.DeleteBlob(ctx, ref), "deleting a missing file is not an error")
	assert.NoError(t, store.DeleteBlob(ctx, ""))
}

func TestMockBlobStore(t *testing.T) {
	store := NewMockBlobStore()
	ctx := context.Background()

	ref, err := store.PutBlob(ctx, []byte("data"), "image/jpeg")
	require.NoError(t, err)
	assert.True(t, store.Exists(ref))

	url, err := store.BlobURL(ctx, ref)
	require.NoError(t, err)
	assert.Contains(t, url, ref)

	_, err = store.BlobURL(ctx, "fabric-samples/missing.png")
	assert.Error(t, err)

	store.FailDeletes(true)
	assert.ErrorIs(t, store.DeleteBlob(ctx, ref), ErrMockBlobFailure)
	store.FailDeletes(false)
	require.NoError(t, store.DeleteBlob(ctx, ref))
	assert.False(t, store.Exists(ref))

	store.FailPuts(true)
	_, err = store.PutBlob(ctx, []byte("data"), "image/png")
	assert.ErrorIs(t, err, ErrMockBlobFailure)

	store.FailPuts(false)
	_, err = store.PutBlob(ctx, []byte("data"), "image/png")
	require.NoError(t, err)
	store.Clear()
	assert.Equal(t, 0, store.Count())
}

func TestMockBlobStore_SetAsMockForTesting(t *testing.T) {
	original := GetBlobStore()
	defer SetBlobStore(original)

	store := NewMockBlobStore()
	store.SetAsMockForTesting()
	assert.Same(t, store, GetBlobStore())
}

func TestFabricPhotoService(t *testing.T) {
	blobs := NewMockBlobStore()
	photos := NewFabricPhotoService(blobs)
	ctx := context.Background()

	ref, err := photos.Store(ctx, &PhotoUpload{Data: []byte("swatch"), ContentType: "image/png"})
	require.NoError(t, err)
	assert.True(t, blobs.Exists(ref))

	url, err := photos.URL(ctx, ref)
	require.NoError(t, err)
	assert.NotEmpty(t, url)

	url, err = photos.URL(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, url)

	require.NoError(t, photos.Delete(ctx, ref))
	assert.False(t, blobs.Exists(ref))

	_, err = photos.Store(ctx, &PhotoUpload{})
	assert.Error(t, err)

	_, err = photos.Store(ctx, &PhotoUpload{Data: make([]byte, 10*1024*1024+1), ContentType: "image/png"})
	assert.Error(t, err)
}

func TestFabricPhotoService_NilStore(t *testing.T) {
	var photos *FabricPhotoService
	ctx := context.Background()

	_, err := photos.Store(ctx, &PhotoUpload{Data: []byte("x"), ContentType: "image/png"})
	assert.Error(t, err)

	url, err := photos.URL(ctx, "fabric-samples/a.png")
	assert.NoError(t, err)
	assert.Empty(t, url)
	assert.NoError(t, photos.Delete(ctx, "fabric-samples/a.png"))
}

func TestPhotoFromFileHeader(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantType    string
		wantErrCode bool
	}{
		{"png", "ankara.png", "image/png", false},
		{"jpeg", "ankara.JPEG", "image/jpeg", false},
		{"gif rejected", "ankara.gif", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fileHeader := multipartFileHeader(t, tt.filename, []byte("image bytes"))

			photo, err := PhotoFromFileHeader(fileHeader)
			if tt.wantErrCode {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, photo.ContentType)
			assert.Equal(t, []byte("image bytes"), photo.Data)
		})
	}
}

// multipartFileHeader builds a real multipart.FileHeader by parsing a form upload
func multipartFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("fabric_photo", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))

	_, fileHeader, err := req.FormFile("fabric_photo")
	require.NoError(t, err)
	return fileHeader
}
