// Package fs stores objects as files below a base directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/simple-cms/pkg/simplecms/storage"
)

// Config options for the file system backend.
type Config struct {
	BaseDir   string // Base directory for storing files
	URLPrefix string // Optional URL prefix files are served under
}

// Backend is a file system storage backend.
type Backend struct {
	baseDir   string
	urlPrefix string
}

// New creates the base directory if needed and returns the backend.
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(config.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &Backend{
		baseDir:   config.BaseDir,
		urlPrefix: strings.TrimSuffix(config.URLPrefix, "/"),
	}, nil
}

// Path returns the local file path of key.
func (b *Backend) Path(key string) string {
	return filepath.Join(b.baseDir, filepath.FromSlash(key))
}

func (b *Backend) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	filePath := b.Path(key)
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write next to the target and rename so readers never see partial files.
	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

func (b *Backend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	file, err := os.Open(b.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := os.Remove(b.Path(key)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (b *Backend) Stat(ctx context.Context, key string) (*storage.ObjectMeta, error) {
	info, err := os.Stat(b.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &storage.ObjectMeta{
		Key:         key,
		Size:        info.Size(),
		ContentType: contentType,
		UpdatedAt:   info.ModTime().UTC(),
	}, nil
}

// URL returns the public URL of key when a prefix is configured.
func (b *Backend) URL(ctx context.Context, key string) (string, error) {
	if b.urlPrefix == "" {
		return "", storage.ErrNoURL
	}
	return b.urlPrefix + "/" + strings.TrimPrefix(key, "/"), nil
}
