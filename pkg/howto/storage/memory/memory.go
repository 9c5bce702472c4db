// Package memory provides an in-memory blob store for tests and the
// default server configuration.
package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/makerhub/howto/pkg/howto"
)

// Backend is an in-memory implementation of the howto.BlobStore interface
type Backend struct {
	mu       sync.RWMutex
	objects  map[string][]byte
	mimeType map[string]string
	stored   map[string]time.Time
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects:  make(map[string][]byte),
		mimeType: make(map[string]string),
		stored:   make(map[string]time.Time),
	}
}

// Upload uploads content directly
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[objectKey] = data
	b.mimeType[objectKey] = http.DetectContentType(data)
	b.stored[objectKey] = time.Now().UTC()
	return nil
}

// Download downloads content directly
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete deletes content
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return errors.New("object not found")
	}
	delete(b.objects, objectKey)
	delete(b.mimeType, objectKey)
	delete(b.stored, objectKey)
	return nil
}

// GetDownloadURL returns a synthetic URL for downloading content.
// In-memory objects are not addressable over the network; the URL form
// exists so refs round-trip the same way as with real backends.
func (b *Backend) GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, exists := b.objects[objectKey]; !exists {
		return "", errors.New("object not found")
	}
	return fmt.Sprintf("memory://%s", objectKey), nil
}

// GetObjectMeta retrieves metadata for an object in memory
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*howto.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, errors.New("object not found")
	}

	mimeType := b.mimeType[objectKey]
	return &howto.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(data)),
		ContentType: mimeType,
		UpdatedAt:   b.stored[objectKey],
		Metadata:    map[string]string{"content_type": mimeType},
	}, nil
}
