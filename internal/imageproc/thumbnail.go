package imageproc

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"

	"github.com/disintegration/imaging"
)

// DefaultThumbnailSize is the side of generated thumbnails.
const DefaultThumbnailSize = 150

// Thumbnail encodes a size x size center-cropped JPEG (quality 80) of img as
// base64.
func Thumbnail(img image.Image, size int) (string, error) {
	if img == nil {
		return "", &ImageProcessingError{Operation: "thumbnail", Err: errors.New("input image is nil")}
	}
	if size <= 0 {
		size = DefaultThumbnailSize
	}
	thumb := imaging.Fill(FlattenOnWhite(img), size, size, imaging.Center, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return "", &ImageProcessingError{Operation: "thumbnail", Err: err}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, &ImageProcessingError{Operation: "encode", Err: err}
	}
	return buf.Bytes(), nil
}
