package imagestyle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	simage "github.com/tendant/simple-cms/pkg/simplecms/image"
	"github.com/tendant/simple-cms/pkg/simplecms/image/gd"
	"github.com/tendant/simple-cms/pkg/simplecms/storage"
)

var (
	// ErrInvalidSource is returned when the source is not a usable image.
	ErrInvalidSource = errors.New("source is not a valid image")
	// ErrEffectFailed is returned when an effect cannot be applied.
	ErrEffectFailed = errors.New("image effect failed")
	// ErrSaveFailed is returned when the derivative cannot be encoded.
	ErrSaveFailed = errors.New("failed to save derivative")
)

// ConfigReader loads raw config objects.
type ConfigReader interface {
	Get(ctx context.Context, name string) (map[string]any, error)
}

// ToolkitFactory returns a fresh toolkit for one image.
type ToolkitFactory func() simage.Toolkit

// Service builds style derivatives through stream wrappers.
type Service struct {
	wrappers   *storage.Wrappers
	config     ConfigReader
	newToolkit ToolkitFactory
	tempDir    string
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets where styles are loaded from.
func WithConfig(config ConfigReader) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithToolkitFactory replaces the default gd toolkit.
func WithToolkitFactory(fn ToolkitFactory) Option {
	return func(s *Service) {
		if fn != nil {
			s.newToolkit = fn
		}
	}
}

// WithTempDir sets the scratch directory used while processing.
func WithTempDir(dir string) Option {
	return func(s *Service) {
		s.tempDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService returns a service writing through wrappers.
func NewService(wrappers *storage.Wrappers, opts ...Option) *Service {
	s := &Service{
		wrappers: wrappers,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newToolkit == nil {
		logger := s.logger
		s.newToolkit = func() simage.Toolkit { return gd.New(gd.WithLogger(logger)) }
	}
	return s
}

// LoadStyle reads the style called name from config.
func (s *Service) LoadStyle(ctx context.Context, name string) (*Style, error) {
	if s.config == nil {
		return nil, ErrStyleNotFound
	}
	data, err := s.config.Get(ctx, ConfigPrefix+name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStyleNotFound, name, err)
	}
	return FromConfig(data)
}

// CreateDerivative applies style to sourceURI and writes the result to
// derivativeURI. Effects run in weight order and the first failing effect
// aborts the derivative.
func (s *Service) CreateDerivative(ctx context.Context, style *Style, sourceURI, derivativeURI string) error {
	work, err := os.MkdirTemp(s.tempDir, "imagestyle-*")
	if err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(work)

	src := filepath.Join(work, "source"+path.Ext(sourceURI))
	if err := s.download(ctx, sourceURI, src); err != nil {
		return err
	}

	img := simage.New(s.newToolkit(), src, simage.WithLogger(s.logger))
	if !img.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidSource, sourceURI)
	}
	for _, effect := range style.SortedEffects() {
		if !img.Apply(effect.ID, simage.Arguments(effect.Data)) {
			return fmt.Errorf("%w: %s on %s", ErrEffectFailed, effect.ID, sourceURI)
		}
	}

	dst := filepath.Join(work, "derivative"+path.Ext(derivativeURI))
	if !img.Save(dst) {
		return fmt.Errorf("%w: %s", ErrSaveFailed, derivativeURI)
	}
	f, err := os.Open(dst)
	if err != nil {
		return fmt.Errorf("open derivative: %w", err)
	}
	defer f.Close()

	if err := s.wrappers.Write(ctx, derivativeURI, f, img.MimeType()); err != nil {
		return fmt.Errorf("store derivative: %w", err)
	}
	s.logger.Info("Created image derivative",
		"style", style.Name, "source", sourceURI, "derivative", derivativeURI,
		"width", img.Width(), "height", img.Height())
	return nil
}

func (s *Service) download(ctx context.Context, uri, dst string) error {
	rc, err := s.wrappers.Open(ctx, uri)
	if err != nil {
		return fmt.Errorf("open source %s: %w", uri, err)
	}
	defer rc.Close()

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create scratch file: %w", err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return fmt.Errorf("copy source %s: %w", uri, err)
	}
	return f.Close()
}
