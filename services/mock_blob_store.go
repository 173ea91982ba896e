package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrMockBlobFailure is returned by MockBlobStore when a failure is switched on
var ErrMockBlobFailure = errors.New("mock blob store failure")

// MockBlobStore is an in-memory BlobStore for testing
type MockBlobStore struct {
	blobs map[string][]byte // map of blob key to content
	mu    sync.RWMutex

	failPut    bool
	failDelete bool
}

// NewMockBlobStore creates a new mock blob store
func NewMockBlobStore() *MockBlobStore {
	return &MockBlobStore{
		blobs: make(map[string][]byte),
	}
}

// SetAsMockForTesting sets this mock as the global blob store instance for testing
func (m *MockBlobStore) SetAsMockForTesting() {
	SetBlobStore(m)
}

// FailPuts makes every later PutBlob call fail
func (m *MockBlobStore) FailPuts(fail bool) {
	m.mu.Lock()
	m.failPut = fail
	m.mu.Unlock()
}

// FailDeletes makes every later DeleteBlob call fail
func (m *MockBlobStore) FailDeletes(fail bool) {
	m.mu.Lock()
	m.failDelete = fail
	m.mu.Unlock()
}

// PutBlob stores a copy of data
func (m *MockBlobStore) PutBlob(_ context.Context, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failPut {
		return "", ErrMockBlobFailure
	}

	key := newBlobKey(contentType)
	content := make([]byte, len(data))
	copy(content, data)
	m.blobs[key] = content
	return key, nil
}

// DeleteBlob removes the blob
func (m *MockBlobStore) DeleteBlob(_ context.Context, ref string) error {
	if ref == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failDelete {
		return ErrMockBlobFailure
	}
	delete(m.blobs, ref)
	return nil
}

// BlobURL returns a mock presigned URL
func (m *MockBlobStore) BlobURL(_ context.Context, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}

	m.mu.RLock()
	_, exists := m.blobs[ref]
	m.mu.RUnlock()

	if !exists {
		return "", fmt.Errorf("blob not found in mock storage: %s", ref)
	}

	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s?mock=true", ref), nil
}

// Exists checks if a blob exists in mock storage
func (m *MockBlobStore) Exists(ref string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.blobs[ref]
	return exists
}

// Count returns the number of stored blobs
func (m *MockBlobStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

// Clear removes all blobs from mock storage
func (m *MockBlobStore) Clear() {
	m.mu.Lock()
	m.blobs = make(map[string][]byte)
	m.mu.Unlock()
}
