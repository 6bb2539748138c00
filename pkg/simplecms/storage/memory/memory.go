// Package memory is an in-memory storage backend for tests and the
// temporary:// scheme.
package memory

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/tendant/simple-cms/pkg/simplecms/storage"
)

type object struct {
	data        []byte
	contentType string
	updatedAt   time.Time
}

// Backend keeps objects in a map.
type Backend struct {
	mu      sync.RWMutex
	objects map[string]object
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{objects: make(map[string]object)}
}

func (b *Backend) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = object{data: data, contentType: contentType, updatedAt: time.Now().UTC()}
	return nil
}

func (b *Backend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(b.objects, key)
	return nil
}

func (b *Backend) Stat(ctx context.Context, key string) (*storage.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.ObjectMeta{
		Key:         key,
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
		UpdatedAt:   obj.updatedAt,
	}, nil
}
