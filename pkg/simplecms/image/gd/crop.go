package gd

import (
	"image"

	"github.com/disintegration/imaging"
	simage "github.com/tendant/simple-cms/pkg/simplecms/image"
)

type cropOp struct {
	t *Toolkit
}

func (o *cropOp) Arguments() map[string]simage.ArgumentSpec {
	return map[string]simage.ArgumentSpec{
		"x":      {Description: "The starting x offset at which to start the crop, in pixels", Required: true},
		"y":      {Description: "The starting y offset at which to start the crop, in pixels", Required: true},
		"width":  {Description: "The width of the cropped area, in pixels"},
		"height": {Description: "The height of the cropped area, in pixels"},
	}
}

// Validate derives an omitted dimension from the current aspect ratio and
// rounds every argument. An explicit zero is not treated as omitted.
func (o *cropOp) Validate(args simage.Arguments) (simage.Arguments, error) {
	width, hasWidth := simage.Float(args["width"])
	height, hasHeight := simage.Float(args["height"])
	if !hasWidth && !hasHeight {
		return nil, simage.NewArgumentError("crop", "At least one dimension ('width' or 'height') must be provided to the image 'crop' operation")
	}

	if !hasWidth || !hasHeight {
		if o.t.Width() == 0 || o.t.Height() == 0 {
			return nil, simage.NewArgumentError("crop", "Image dimensions are unknown for the image 'crop' operation")
		}
		aspect := float64(o.t.Height()) / float64(o.t.Width())
		if !hasHeight {
			height = width * aspect
		}
		if !hasWidth {
			width = height / aspect
		}
	}

	x, _ := simage.Float(args["x"])
	y, _ := simage.Float(args["y"])
	out := simage.Arguments{
		"x":      simage.Round(x),
		"y":      simage.Round(y),
		"width":  simage.Round(width),
		"height": simage.Round(height),
	}

	if w := out["width"].(int); w <= 0 {
		return nil, simage.NewArgumentError("crop", "Invalid width (%d) specified for the image 'crop' operation", w)
	}
	if h := out["height"].(int); h <= 0 {
		return nil, simage.NewArgumentError("crop", "Invalid height (%d) specified for the image 'crop' operation", h)
	}
	if err := boundedDimensions("crop", out["width"].(int), out["height"].(int)); err != nil {
		return nil, err
	}
	return out, nil
}

// Execute copies the requested rectangle onto a fresh surface. The toolkit
// keeps its old surface when there is nothing to copy from.
func (o *cropOp) Execute(args simage.Arguments) bool {
	src := o.t.Resource()
	if src == nil {
		return false
	}
	x, y := args["x"].(int), args["y"].(int)
	width, height := args["width"].(int), args["height"].(int)

	dst, err := o.t.CreateTmp(width, height)
	if err != nil {
		o.t.logger.Error("Failed to create temporary image", "operation", "crop", "error", err)
		return false
	}
	o.t.SetResource(imaging.Paste(dst, src, image.Pt(-x, -y)))
	return true
}
