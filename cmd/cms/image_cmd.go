package main

import (
	"fmt"

	"github.com/spf13/cobra"
	simage "github.com/tendant/simple-cms/pkg/simplecms/image"
	"github.com/tendant/simple-cms/pkg/simplecms/image/gd"
)

var (
	flagX, flagY          float64
	flagWidth, flagHeight float64
	flagUpscale           bool
)

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Process local image files with the gd toolkit",
}

var imageInfoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Print the dimensions and type of an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := openImage(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%dx%d\t%s\t%d bytes\n",
			img.Source(), img.Width(), img.Height(), img.MimeType(), img.FileSize())
		return nil
	},
}

var imageCropCmd = &cobra.Command{
	Use:   "crop <src> <dst>",
	Short: "Crop an image",
	Long: `Crop cuts a width x height rectangle starting at x,y. Leaving out one of
width or height keeps the aspect ratio.

Example:
  cms image crop in.png out.png --x 10 --y 10 --width 100`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := openImage(args[0])
		if err != nil {
			return err
		}
		opArgs := simage.Arguments{"x": flagX, "y": flagY}
		if cmd.Flags().Changed("width") {
			opArgs["width"] = flagWidth
		}
		if cmd.Flags().Changed("height") {
			opArgs["height"] = flagHeight
		}
		return applyAndSave(img, "crop", opArgs, args[1])
	},
}

var imageScaleCmd = &cobra.Command{
	Use:   "scale <src> <dst>",
	Short: "Scale an image keeping its aspect ratio",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := openImage(args[0])
		if err != nil {
			return err
		}
		opArgs := simage.Arguments{"upscale": flagUpscale}
		if cmd.Flags().Changed("width") {
			opArgs["width"] = flagWidth
		}
		if cmd.Flags().Changed("height") {
			opArgs["height"] = flagHeight
		}
		return applyAndSave(img, "scale", opArgs, args[1])
	},
}

func init() {
	imageCropCmd.Flags().Float64Var(&flagX, "x", 0, "left edge of the crop")
	imageCropCmd.Flags().Float64Var(&flagY, "y", 0, "top edge of the crop")
	for _, c := range []*cobra.Command{imageCropCmd, imageScaleCmd} {
		c.Flags().Float64Var(&flagWidth, "width", 0, "target width")
		c.Flags().Float64Var(&flagHeight, "height", 0, "target height")
	}
	imageScaleCmd.Flags().BoolVar(&flagUpscale, "upscale", false, "allow growing the image")

	imageCmd.AddCommand(imageInfoCmd)
	imageCmd.AddCommand(imageCropCmd)
	imageCmd.AddCommand(imageScaleCmd)
}

func openImage(path string) (*simage.Image, error) {
	toolkit := gd.New(gd.WithJPEGQuality(serverCfg.JPEGQuality), gd.WithLogger(logger))
	img := simage.New(toolkit, path, simage.WithLogger(logger))
	if !img.IsValid() {
		return nil, fmt.Errorf("%s is not a supported image", path)
	}
	return img, nil
}

func applyAndSave(img *simage.Image, op string, args simage.Arguments, dst string) error {
	if !img.Apply(op, args) {
		return fmt.Errorf("%s failed on %s", op, img.Source())
	}
	if !img.Save(dst) {
		return fmt.Errorf("failed to save %s", dst)
	}
	logger.Info("Saved image", "operation", op, "destination", dst, "width", img.Width(), "height", img.Height())
	return nil
}
