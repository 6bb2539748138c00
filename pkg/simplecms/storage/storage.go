// Package storage exposes file storage as stream wrappers: URIs such as
// public://styles/thumbnail/photo.png routed to the backend registered for
// their scheme.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// ErrInvalidURI indicates a URI without a registered scheme.
var ErrInvalidURI = errors.New("invalid stream wrapper URI")

// ErrNoURL is returned by backends that cannot hand out external URLs.
var ErrNoURL = errors.New("direct access required for this backend")

// ObjectMeta describes a stored object.
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
}

// Store is a storage backend addressed by object key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Stat(ctx context.Context, key string) (*ObjectMeta, error)
}

// URLGenerator is implemented by stores that can serve objects directly.
type URLGenerator interface {
	URL(ctx context.Context, key string) (string, error)
}
