package imageproc

import (
	"errors"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// FlattenOnWhite composites img over an opaque white canvas of the same size.
func FlattenOnWhite(img image.Image) *image.NRGBA {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// CoverFit scales img to cover width x height and crops the overflow around
// the center.
func CoverFit(img image.Image, width, height int) (*image.NRGBA, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "resize", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &ImageProcessingError{Operation: "resize", Err: errors.New("invalid image dimensions")}
	}
	out := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
	if out.Bounds().Dx() != width || out.Bounds().Dy() != height {
		return nil, &ImageProcessingError{Operation: "resize", Err: errors.New("unexpected output dimensions")}
	}
	return out, nil
}

// FitWithin downscales img, keeping its aspect ratio, so that neither side
// exceeds maxSide. Smaller images are returned unchanged.
func FitWithin(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxSide && b.Dy() <= maxSide {
		return img
	}
	return imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
}

// RGBSamples strips alpha and returns interleaved 8-bit RGB samples.
func RGBSamples(img *image.NRGBA) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, 0, w*h*3)
	for y := range h {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			out = append(out, row[x], row[x+1], row[x+2])
		}
	}
	return out
}
