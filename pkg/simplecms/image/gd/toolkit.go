// Package gd is the default image toolkit. It decodes, manipulates and
// encodes raster images with the Go image codecs and imaging.
package gd

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/disintegration/imaging"
	simage "github.com/tendant/simple-cms/pkg/simplecms/image"
)

// ID is the toolkit plugin id.
const ID = "gd"

// DefaultJPEGQuality matches the system.image.gd:jpeg_quality default.
const DefaultJPEGQuality = 75

// Image types understood by the toolkit.
const (
	TypePNG  = "png"
	TypeJPEG = "jpeg"
	TypeGIF  = "gif"
)

var mimeTypes = map[string]string{
	TypePNG:  "image/png",
	TypeJPEG: "image/jpeg",
	TypeGIF:  "image/gif",
}

var extensionTypes = map[string]string{
	"png":  TypePNG,
	"jpg":  TypeJPEG,
	"jpeg": TypeJPEG,
	"jpe":  TypeJPEG,
	"gif":  TypeGIF,
}

// MaxPixels bounds the area of any surface the toolkit allocates.
const MaxPixels = 1 << 28

var (
	// ErrNoImage is returned when the toolkit holds no decoded surface.
	ErrNoImage = errors.New("no image loaded")
	// ErrTooLarge is returned when a surface would exceed MaxPixels.
	ErrTooLarge = errors.New("image dimensions too large")
)

// Toolkit implements simage.Toolkit.
type Toolkit struct {
	img         *simage.Image
	resource    draw.Image
	imageType   string
	jpegQuality int
	operations  map[string]simage.Operation
	logger      *slog.Logger
}

// Option configures a Toolkit.
type Option func(*Toolkit)

// WithJPEGQuality sets the JPEG encoding quality (1-100).
func WithJPEGQuality(q int) Option {
	return func(t *Toolkit) {
		if q >= 1 && q <= 100 {
			t.jpegQuality = q
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Toolkit) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New returns a toolkit with every built-in operation registered.
func New(opts ...Option) *Toolkit {
	t := &Toolkit{
		jpegQuality: DefaultJPEGQuality,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.operations = map[string]simage.Operation{
		"convert":        &convertOp{t: t},
		"crop":           &cropOp{t: t},
		"desaturate":     &desaturateOp{t: t},
		"resize":         &resizeOp{t: t},
		"rotate":         &rotateOp{t: t},
		"scale":          &scaleOp{t: t},
		"scale_and_crop": &scaleAndCropOp{t: t},
	}
	return t
}

func (t *Toolkit) ID() string                { return ID }
func (t *Toolkit) SetImage(img *simage.Image) { t.img = img }
func (t *Toolkit) Image() *simage.Image       { return t.img }

// Operations returns the ids of the registered operations, sorted.
func (t *Toolkit) Operations() []string {
	ids := make([]string, 0, len(t.operations))
	for id := range t.operations {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Resource returns the current surface, or nil.
func (t *Toolkit) Resource() draw.Image { return t.resource }

// SetResource replaces the current surface.
func (t *Toolkit) SetResource(res draw.Image) { t.resource = res }

// Type returns the image type the surface will be saved as.
func (t *Toolkit) Type() string { return t.imageType }

// SetType changes the type the surface will be saved as.
func (t *Toolkit) SetType(imageType string) error {
	if _, ok := mimeTypes[imageType]; !ok {
		return fmt.Errorf("unsupported image type %q", imageType)
	}
	t.imageType = imageType
	return nil
}

func (t *Toolkit) Width() int {
	if t.resource == nil {
		return 0
	}
	return t.resource.Bounds().Dx()
}

func (t *Toolkit) Height() int {
	if t.resource == nil {
		return 0
	}
	return t.resource.Bounds().Dy()
}

func (t *Toolkit) MimeType() string {
	return mimeTypes[t.imageType]
}

// ParseFile decodes the image source.
func (t *Toolkit) ParseFile() bool {
	if t.img == nil {
		return false
	}
	source := t.img.Source()
	f, err := os.Open(source)
	if err != nil {
		t.logger.Debug("Image source cannot be opened", "source", source, "error", err)
		return false
	}
	defer f.Close()

	decoded, format, err := image.Decode(f)
	if err != nil {
		t.logger.Debug("Image source cannot be decoded", "source", source, "error", err)
		return false
	}
	if _, ok := mimeTypes[format]; !ok {
		t.logger.Debug("Unsupported image format", "source", source, "format", format)
		return false
	}
	t.resource = imaging.Clone(decoded)
	t.imageType = format
	return true
}

// Apply runs a registered operation.
func (t *Toolkit) Apply(operation string, args simage.Arguments) bool {
	op, ok := t.operations[operation]
	if !ok {
		t.logger.Error("Image toolkit operation failed",
			"toolkit", ID, "operation", operation, "error", simage.ErrUnknownOperation)
		return false
	}
	return simage.Run(t.logger, ID, operation, op, args)
}

// Save encodes the surface as the current image type.
func (t *Toolkit) Save(destination string) bool {
	if err := t.save(destination); err != nil {
		t.logger.Error("Failed to save image", "destination", destination, "type", t.imageType, "error", err)
		return false
	}
	return true
}

func (t *Toolkit) save(destination string) error {
	if t.resource == nil {
		return ErrNoImage
	}
	if err := os.MkdirAll(filepath.Dir(destination), 0o775); err != nil {
		return fmt.Errorf("prepare directory: %w", err)
	}
	f, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if err := t.Encode(f); err != nil {
		f.Close()
		os.Remove(destination)
		return err
	}
	return f.Close()
}

// Encode writes the surface to w as the current image type.
func (t *Toolkit) Encode(w io.Writer) error {
	if t.resource == nil {
		return ErrNoImage
	}
	switch t.imageType {
	case TypePNG:
		return png.Encode(w, t.resource)
	case TypeJPEG:
		return jpeg.Encode(w, t.resource, &jpeg.Options{Quality: t.jpegQuality})
	case TypeGIF:
		return gif.Encode(w, t.resource, nil)
	}
	return fmt.Errorf("unsupported image type %q", t.imageType)
}

// CreateTmp allocates a blank surface of the given size. PNG and GIF
// surfaces start transparent; JPEG surfaces start white.
func (t *Toolkit) CreateTmp(width, height int) (*image.NRGBA, error) {
	if err := checkDimensions(width, height); err != nil {
		return nil, err
	}
	var fill color.Color = color.Transparent
	if t.imageType == TypeJPEG {
		fill = color.White
	}
	return imaging.New(width, height, fill), nil
}

func checkDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid image dimensions %dx%d", width, height)
	}
	if float64(width)*float64(height) > MaxPixels {
		return fmt.Errorf("%w: %dx%d", ErrTooLarge, width, height)
	}
	return nil
}

// SupportedExtensions lists the file extensions the toolkit can write.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionTypes))
	for ext := range extensionTypes {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// TypeForExtension maps a file extension to an image type.
func TypeForExtension(ext string) (string, bool) {
	typ, ok := extensionTypes[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return typ, ok
}
