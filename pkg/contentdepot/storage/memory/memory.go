package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/tendant/content-depot/pkg/contentdepot"
)

// Backend is an in-memory implementation of the contentdepot.BlobStore interface
type Backend struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// New creates a new in-memory storage backend
func New() contentdepot.BlobStore {
	return &Backend{
		blobs: make(map[string][]byte),
	}
}

// Upload stores blob bytes under the key. Content-addressed keys make
// repeated uploads byte-identical, so last-writer-wins is safe.
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[objectKey] = data
	return nil
}

// Download opens the blob for reading
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.blobs[objectKey]
	if !exists {
		return nil, errors.New("blob not found")
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Exists reports whether a blob is stored under the key
func (b *Backend) Exists(ctx context.Context, objectKey string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, exists := b.blobs[objectKey]
	return exists, nil
}

// Delete deletes the blob
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.blobs[objectKey]; !exists {
		return errors.New("blob not found")
	}

	delete(b.blobs, objectKey)
	return nil
}

// GetDownloadURL returns an error: the in-memory backend has no URL surface
func (b *Backend) GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error) {
	return "", errors.New("direct download required for memory backend")
}

// GetObjectMeta retrieves metadata for a blob in memory
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*contentdepot.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.blobs[objectKey]
	if !exists {
		return nil, errors.New("blob not found")
	}

	return &contentdepot.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(data)),
		ContentType: "application/octet-stream",
		Metadata:    map[string]string{},
	}, nil
}
