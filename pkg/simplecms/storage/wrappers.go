package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"
)

// Well-known schemes.
const (
	SchemePublic    = "public"
	SchemePrivate   = "private"
	SchemeTemporary = "temporary"
)

// Wrappers routes URIs to the store registered for their scheme.
type Wrappers struct {
	mu     sync.RWMutex
	stores map[string]Store
	logger *slog.Logger
}

// WrappersOption configures Wrappers.
type WrappersOption func(*Wrappers)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) WrappersOption {
	return func(w *Wrappers) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWrappers returns an empty scheme registry.
func NewWrappers(opts ...WrappersOption) *Wrappers {
	w := &Wrappers{
		stores: make(map[string]Store),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Register binds scheme to store, replacing any previous binding.
func (w *Wrappers) Register(scheme string, store Store) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stores[scheme] = store
}

// Schemes returns the registered schemes, sorted.
func (w *Wrappers) Schemes() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	schemes := make([]string, 0, len(w.stores))
	for s := range w.stores {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

// Store returns the store of scheme.
func (w *Wrappers) Store(scheme string) (Store, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.stores[scheme]
	return s, ok
}

// ParseURI splits "scheme://target" and cleans the target. Targets may not
// escape their scheme root.
func ParseURI(uri string) (scheme, target string, err error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok || scheme == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	target = strings.TrimPrefix(path.Clean("/"+rest), "/")
	if target == "" || strings.Contains(rest, "..") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	return scheme, target, nil
}

// BuildURI joins scheme and target.
func BuildURI(scheme, target string) string {
	return scheme + "://" + strings.TrimPrefix(target, "/")
}

func (w *Wrappers) resolve(uri string) (Store, string, error) {
	scheme, target, err := ParseURI(uri)
	if err != nil {
		return nil, "", err
	}
	store, ok := w.Store(scheme)
	if !ok {
		return nil, "", fmt.Errorf("%w: scheme %q is not registered", ErrInvalidURI, scheme)
	}
	return store, target, nil
}

// Open returns a reader for uri.
func (w *Wrappers) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	store, key, err := w.resolve(uri)
	if err != nil {
		return nil, err
	}
	return store.Get(ctx, key)
}

// Write stores the content of r at uri.
func (w *Wrappers) Write(ctx context.Context, uri string, r io.Reader, contentType string) error {
	store, key, err := w.resolve(uri)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, key, r, contentType); err != nil {
		return err
	}
	w.logger.Debug("Wrote stream", "uri", uri, "content_type", contentType)
	return nil
}

// Delete removes uri.
func (w *Wrappers) Delete(ctx context.Context, uri string) error {
	store, key, err := w.resolve(uri)
	if err != nil {
		return err
	}
	return store.Delete(ctx, key)
}

// Stat returns the metadata of uri.
func (w *Wrappers) Stat(ctx context.Context, uri string) (*ObjectMeta, error) {
	store, key, err := w.resolve(uri)
	if err != nil {
		return nil, err
	}
	return store.Stat(ctx, key)
}

// ExternalURL returns a URL serving uri, when its store supports one.
func (w *Wrappers) ExternalURL(ctx context.Context, uri string) (string, error) {
	store, key, err := w.resolve(uri)
	if err != nil {
		return "", err
	}
	gen, ok := store.(URLGenerator)
	if !ok {
		return "", ErrNoURL
	}
	return gen.URL(ctx, key)
}
