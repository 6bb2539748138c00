package gd

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	simage "github.com/tendant/simple-cms/pkg/simplecms/image"
)

func positiveDimensions(op string, width, height int) error {
	if width <= 0 {
		return simage.NewArgumentError(op, "Invalid width (%d) specified for the image '%s' operation", width, op)
	}
	if height <= 0 {
		return simage.NewArgumentError(op, "Invalid height (%d) specified for the image '%s' operation", height, op)
	}
	return boundedDimensions(op, width, height)
}

func boundedDimensions(op string, width, height int) error {
	if float64(width)*float64(height) > MaxPixels {
		return simage.NewArgumentError(op, "Dimensions (%dx%d) exceed the maximum image size for the image '%s' operation", width, height, op)
	}
	return nil
}

// resizeOp stretches the surface to an exact size.
type resizeOp struct {
	t *Toolkit
}

func (o *resizeOp) Arguments() map[string]simage.ArgumentSpec {
	return map[string]simage.ArgumentSpec{
		"width":  {Description: "The new width of the resized image, in pixels", Required: true},
		"height": {Description: "The new height of the resized image, in pixels", Required: true},
	}
}

func (o *resizeOp) Validate(args simage.Arguments) (simage.Arguments, error) {
	width, height := simage.Int(args["width"]), simage.Int(args["height"])
	if err := positiveDimensions("resize", width, height); err != nil {
		return nil, err
	}
	return simage.Arguments{"width": width, "height": height}, nil
}

func (o *resizeOp) Execute(args simage.Arguments) bool {
	src := o.t.Resource()
	if src == nil {
		return false
	}
	width, height := args["width"].(int), args["height"].(int)
	resized := resize.Resize(uint(width), uint(height), src, resize.Bilinear)
	o.t.SetResource(imaging.Clone(resized))
	return true
}

// scaleOp resizes while keeping the aspect ratio.
type scaleOp struct {
	t *Toolkit
}

func (o *scaleOp) Arguments() map[string]simage.ArgumentSpec {
	return map[string]simage.ArgumentSpec{
		"width":   {Description: "The target width, in pixels. This value is omitted then the scaling will based only on the height value"},
		"height":  {Description: "The target height, in pixels. This value is omitted then the scaling will based only on the width value"},
		"upscale": {Description: "Boolean indicating that files smaller than the dimensions will be scaled up", Default: false},
	}
}

// Validate computes the dimension that keeps the aspect ratio without
// exceeding either target.
func (o *scaleOp) Validate(args simage.Arguments) (simage.Arguments, error) {
	if simage.Empty(args["width"]) && simage.Empty(args["height"]) {
		return nil, simage.NewArgumentError("scale", "At least one dimension ('width' or 'height') must be provided to the image 'scale' operation")
	}
	if o.t.Width() == 0 || o.t.Height() == 0 {
		return nil, simage.NewArgumentError("scale", "Image dimensions are unknown for the image 'scale' operation")
	}
	width, _ := simage.Float(args["width"])
	height, _ := simage.Float(args["height"])

	aspect := float64(o.t.Height()) / float64(o.t.Width())
	if (width != 0 && height == 0) || (width != 0 && height != 0 && aspect < height/width) {
		height = math.Round(width * aspect)
	} else {
		width = math.Round(height / aspect)
	}

	out := simage.Arguments{
		"width":   simage.Round(width),
		"height":  simage.Round(height),
		"upscale": simage.Bool(args["upscale"]),
	}
	if err := positiveDimensions("scale", out["width"].(int), out["height"].(int)); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *scaleOp) Execute(args simage.Arguments) bool {
	width, height := args["width"].(int), args["height"].(int)
	if !args["upscale"].(bool) && (width > o.t.Width() || height > o.t.Height()) {
		return true
	}
	return o.t.Apply("resize", simage.Arguments{"width": width, "height": height})
}

// scaleAndCropOp scales to cover the target then crops the overflow.
type scaleAndCropOp struct {
	t *Toolkit
}

func (o *scaleAndCropOp) Arguments() map[string]simage.ArgumentSpec {
	return map[string]simage.ArgumentSpec{
		"width":  {Description: "The target width, in pixels", Required: true},
		"height": {Description: "The target height, in pixels", Required: true},
	}
}

func (o *scaleAndCropOp) Validate(args simage.Arguments) (simage.Arguments, error) {
	width, height := simage.Int(args["width"]), simage.Int(args["height"])
	if err := positiveDimensions("scale_and_crop", width, height); err != nil {
		return nil, err
	}
	actualWidth, actualHeight := float64(o.t.Width()), float64(o.t.Height())
	if actualWidth == 0 || actualHeight == 0 {
		return nil, simage.NewArgumentError("scale_and_crop", "Image dimensions are unknown for the image 'scale_and_crop' operation")
	}
	scale := math.Max(float64(width)/actualWidth, float64(height)/actualHeight)
	out := simage.Arguments{
		"x":             simage.Round((actualWidth*scale - float64(width)) / 2),
		"y":             simage.Round((actualHeight*scale - float64(height)) / 2),
		"width":         width,
		"height":        height,
		"resize_width":  simage.Round(actualWidth * scale),
		"resize_height": simage.Round(actualHeight * scale),
	}
	if err := boundedDimensions("scale_and_crop", out["resize_width"].(int), out["resize_height"].(int)); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *scaleAndCropOp) Execute(args simage.Arguments) bool {
	return o.t.Apply("resize", simage.Arguments{"width": args["resize_width"], "height": args["resize_height"]}) &&
		o.t.Apply("crop", simage.Arguments{"x": args["x"], "y": args["y"], "width": args["width"], "height": args["height"]})
}

// rotateOp turns the surface clockwise.
type rotateOp struct {
	t *Toolkit
}

func (o *rotateOp) Arguments() map[string]simage.ArgumentSpec {
	return map[string]simage.ArgumentSpec{
		"degrees":    {Description: "The number of (clockwise) degrees to rotate the image", Required: true},
		"background": {Description: "A string specifying the hexadecimal color code to use as background for the uncovered area of the image after the rotation. E.g. '#000000' for black"},
	}
}

func (o *rotateOp) Validate(args simage.Arguments) (simage.Arguments, error) {
	degrees, ok := simage.Float(args["degrees"])
	if !ok {
		return nil, simage.NewArgumentError("rotate", "Invalid degrees (%v) specified for the image 'rotate' operation", args["degrees"])
	}
	degrees = math.Mod(degrees, 360)
	if degrees < 0 {
		degrees += 360
	}

	var bg color.Color = color.NRGBA{}
	if o.t.Type() == TypeJPEG {
		bg = color.White
	}
	if s := simage.String(args["background"]); s != "" {
		c, err := ParseHexColor(s)
		if err != nil {
			return nil, simage.NewArgumentError("rotate", "Invalid color ('%s') specified for the image 'rotate' operation", s)
		}
		bg = c
	}
	return simage.Arguments{"degrees": degrees, "background": bg}, nil
}

func (o *rotateOp) Execute(args simage.Arguments) bool {
	src := o.t.Resource()
	if src == nil {
		return false
	}
	degrees := args["degrees"].(float64)
	if degrees == 0 {
		return true
	}
	// imaging turns counter-clockwise.
	o.t.SetResource(imaging.Rotate(src, 360-degrees, args["background"].(color.Color)))
	return true
}

// ParseHexColor parses "#rgb" or "#rrggbb".
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 || !strings.HasPrefix(s, "#") {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// desaturateOp converts the surface to grayscale, keeping alpha.
type desaturateOp struct {
	t *Toolkit
}

func (o *desaturateOp) Arguments() map[string]simage.ArgumentSpec {
	return map[string]simage.ArgumentSpec{}
}

func (o *desaturateOp) Validate(args simage.Arguments) (simage.Arguments, error) {
	return args, nil
}

func (o *desaturateOp) Execute(simage.Arguments) bool {
	src := o.t.Resource()
	if src == nil {
		return false
	}
	o.t.SetResource(imaging.Grayscale(src))
	return true
}

// convertOp changes the type the surface is saved as.
type convertOp struct {
	t *Toolkit
}

func (o *convertOp) Arguments() map[string]simage.ArgumentSpec {
	return map[string]simage.ArgumentSpec{
		"extension": {Description: "The new extension of the converted image", Required: true},
	}
}

func (o *convertOp) Validate(args simage.Arguments) (simage.Arguments, error) {
	ext := simage.String(args["extension"])
	typ, ok := TypeForExtension(ext)
	if !ok {
		return nil, simage.NewArgumentError("convert", "Invalid extension (%s) specified for the image 'convert' operation", ext)
	}
	return simage.Arguments{"extension": ext, "type": typ}, nil
}

func (o *convertOp) Execute(args simage.Arguments) bool {
	return o.t.SetType(args["type"].(string)) == nil
}
