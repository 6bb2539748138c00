package image

import (
	"log/slog"
	"os"
)

// DefaultFileMode is applied to saved images.
const DefaultFileMode os.FileMode = 0o664

// Toolkit performs the actual decoding, manipulation and encoding on behalf
// of an Image. The toolkit keeps a reference back to the image it serves.
type Toolkit interface {
	// ID is the toolkit plugin id, e.g. "gd".
	ID() string
	SetImage(img *Image)
	Image() *Image
	// ParseFile loads the image's source. It reports false when the file
	// is missing or not a supported image.
	ParseFile() bool
	Width() int
	Height() int
	MimeType() string
	// Apply runs a named operation. It reports false when the operation is
	// unknown, its arguments are invalid or it fails.
	Apply(operation string, args Arguments) bool
	// Save writes the current surface to destination.
	Save(destination string) bool
}

// ChmodFunc changes the permissions of a saved file.
type ChmodFunc func(path string, mode os.FileMode) error

// Image is an image file handled through a toolkit.
type Image struct {
	source   string
	toolkit  Toolkit
	fileSize int64
	valid    bool
	chmod    ChmodFunc
	fileMode os.FileMode
	logger   *slog.Logger
}

// Option configures an Image.
type Option func(*Image)

// WithChmod replaces the permission setter used after saving.
func WithChmod(fn ChmodFunc) Option {
	return func(img *Image) {
		if fn != nil {
			img.chmod = fn
		}
	}
}

// WithFileMode sets the mode applied to saved files.
func WithFileMode(mode os.FileMode) Option {
	return func(img *Image) {
		img.fileMode = mode
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(img *Image) {
		if logger != nil {
			img.logger = logger
		}
	}
}

// New wraps source with toolkit. A non-empty source is parsed right away;
// a file that cannot be parsed leaves the image invalid.
func New(toolkit Toolkit, source string, opts ...Option) *Image {
	img := &Image{
		toolkit:  toolkit,
		chmod:    os.Chmod,
		fileMode: DefaultFileMode,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(img)
	}
	toolkit.SetImage(img)
	if source != "" {
		img.source = source
		img.parseFile()
	}
	return img
}

func (img *Image) parseFile() bool {
	img.valid = img.toolkit.ParseFile()
	if img.valid {
		if info, err := os.Stat(img.source); err == nil {
			img.fileSize = info.Size()
		}
	}
	return img.valid
}

// IsValid reports whether the source was parsed successfully.
func (img *Image) IsValid() bool { return img.valid }

func (img *Image) Width() int        { return img.toolkit.Width() }
func (img *Image) Height() int       { return img.toolkit.Height() }
func (img *Image) FileSize() int64   { return img.fileSize }
func (img *Image) MimeType() string  { return img.toolkit.MimeType() }
func (img *Image) Source() string    { return img.source }
func (img *Image) ToolkitID() string { return img.toolkit.ID() }
func (img *Image) Toolkit() Toolkit  { return img.toolkit }

// Save writes the image to destination, or over its source when
// destination is empty. It fails without touching the filesystem when the
// image is invalid.
func (img *Image) Save(destination string) bool {
	if !img.IsValid() {
		return false
	}
	if destination == "" {
		destination = img.source
	}
	if !img.toolkit.Save(destination) {
		return false
	}

	info, err := os.Stat(destination)
	if err != nil {
		img.logger.Error("Saved image cannot be read back", "destination", destination, "error", err)
		return false
	}
	img.fileSize = info.Size()
	img.source = destination

	if err := img.chmod(destination, img.fileMode); err != nil {
		img.logger.Error("Failed to set image permissions", "destination", destination, "mode", img.fileMode, "error", err)
		return false
	}
	return true
}

// Apply runs a toolkit operation.
func (img *Image) Apply(operation string, args Arguments) bool {
	if args == nil {
		args = Arguments{}
	}
	return img.toolkit.Apply(operation, args)
}

// Crop cuts a width by height rectangle starting at x, y.
func (img *Image) Crop(x, y, width, height float64) bool {
	return img.Apply("crop", Arguments{"x": x, "y": y, "width": width, "height": height})
}

// CropWidth crops to width, deriving the height from the aspect ratio.
func (img *Image) CropWidth(x, y, width float64) bool {
	return img.Apply("crop", Arguments{"x": x, "y": y, "width": width, "height": nil})
}

// CropHeight crops to height, deriving the width from the aspect ratio.
func (img *Image) CropHeight(x, y, height float64) bool {
	return img.Apply("crop", Arguments{"x": x, "y": y, "width": nil, "height": height})
}

// Desaturate converts the image to grayscale.
func (img *Image) Desaturate() bool {
	return img.Apply("desaturate", Arguments{})
}

// Resize stretches the image to exactly width by height.
func (img *Image) Resize(width, height int) bool {
	return img.Apply("resize", Arguments{"width": width, "height": height})
}

// Rotate turns the image clockwise by degrees, filling uncovered area with
// background ("#rrggbb"; empty for transparent where supported).
func (img *Image) Rotate(degrees float64, background string) bool {
	args := Arguments{"degrees": degrees, "background": nil}
	if background != "" {
		args["background"] = background
	}
	return img.Apply("rotate", args)
}

// ScaleAndCrop scales the image to cover width by height and crops the
// overflow evenly from both sides.
func (img *Image) ScaleAndCrop(width, height int) bool {
	return img.Apply("scale_and_crop", Arguments{"width": width, "height": height})
}

// Scale resizes while keeping the aspect ratio. A zero dimension is
// unconstrained. Images are never enlarged unless upscale is set.
func (img *Image) Scale(width, height int, upscale bool) bool {
	return img.Apply("scale", Arguments{
		"width":   optional(float64(width)),
		"height":  optional(float64(height)),
		"upscale": upscale,
	})
}

// Convert changes the format the image is saved in.
func (img *Image) Convert(extension string) bool {
	return img.Apply("convert", Arguments{"extension": extension})
}

func optional(v float64) any {
	if v == 0 {
		return nil
	}
	return v
}
