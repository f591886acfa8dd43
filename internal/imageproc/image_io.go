// Package imageproc holds the image plumbing shared by the preprocessor and
// the analyzer: decoding, sniffing, fitting, statistics, thumbnails and
// upload checks.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Dimension limits accepted by the canonical pipeline.
const (
	MinSide = 32
	MaxSide = 4096

	// maxDecodeSide bounds the allocation made by a full decode.
	maxDecodeSide = 16384
)

// FormatRaw names packed 8-bit RGB buffers without a container.
const FormatRaw = "raw"

var acceptedFormats = map[string]bool{
	"jpeg":    true,
	"png":     true,
	"gif":     true,
	"bmp":     true,
	"webp":    true,
	"tiff":    true,
	FormatRaw: true,
}

// Input is a raw image as handed to the pipeline. Data wins over Path when
// both are set.
type Input struct {
	Data     []byte
	Path     string
	MIMEType string
	Name     string
}

// FromPath builds an Input that reads from disk.
func FromPath(path string) Input {
	return Input{Path: path, Name: filepath.Base(path), MIMEType: mimeFromExt(path)}
}

// FromBytes builds an in-memory Input.
func FromBytes(data []byte, name string) Input {
	return Input{Data: data, Name: name, MIMEType: mimeFromExt(name)}
}

// IsPath reports whether the bytes must be sourced from disk.
func (in Input) IsPath() bool {
	return in.Data == nil && in.Path != ""
}

// Source names the input for logs.
func (in Input) Source() string {
	switch {
	case in.Name != "":
		return in.Name
	case in.Path != "":
		return in.Path
	default:
		return fmt.Sprintf("<%d bytes>", len(in.Data))
	}
}

// Read returns the encoded bytes of the input.
func (in Input) Read() ([]byte, error) {
	if in.Data != nil {
		return in.Data, nil
	}
	if in.Path == "" {
		return nil, &ImageProcessingError{Operation: "read", Err: errors.New("input has neither data nor path")}
	}
	data, err := os.ReadFile(in.Path) //nolint:gosec // G304: reading user-provided image path is expected
	if err != nil {
		return nil, &ImageProcessingError{Operation: "read", Err: err}
	}
	return data, nil
}

// Metadata describes an image as decoded, or placeholder values when
// Synthetic is set.
type Metadata struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Channels  int    `json:"channels"`
	Format    string `json:"format"`
	SizeBytes int64  `json:"sizeBytes"`
	Synthetic bool   `json:"synthetic,omitempty"`
}

// AspectRatio returns width/height, or 0 for a zero height.
func (m Metadata) AspectRatio() float64 {
	if m.Height == 0 {
		return 0
	}
	return float64(m.Width) / float64(m.Height)
}

// Pixels returns the pixel count.
func (m Metadata) Pixels() int {
	return m.Width * m.Height
}

// Decode decodes an encoded image and applies its EXIF orientation.
// The returned format is the registered decoder name ("jpeg", "png", ...).
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", &ImageProcessingError{Operation: "decode", Err: errors.New("empty input")}
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", &ImageProcessingError{Operation: "decode", Err: err}
	}
	if cfg.Width > maxDecodeSide || cfg.Height > maxDecodeSide {
		return nil, "", &ImageProcessingError{
			Operation: "decode",
			Err:       fmt.Errorf("image too large: %dx%d", cfg.Width, cfg.Height),
		}
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", &ImageProcessingError{Operation: "decode", Err: err}
	}
	return img, format, nil
}

// Open decodes an image file like Decode. The format comes from the
// content, not the file name.
func Open(path string) (image.Image, string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: reading user-provided image path is expected
	if err != nil {
		return nil, "", &ImageProcessingError{Operation: "open", Err: err}
	}
	return Decode(data)
}

// Validate checks the canonical dimension range and accepted formats.
func Validate(img image.Image, format string) error {
	if img == nil {
		return &ImageProcessingError{Operation: "validate", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < MinSide || h < MinSide || w > MaxSide || h > MaxSide {
		return &ImageProcessingError{
			Operation: "validate",
			Err:       fmt.Errorf("dimensions %dx%d outside [%d, %d]", w, h, MinSide, MaxSide),
		}
	}
	if !acceptedFormats[format] {
		return &ImageProcessingError{Operation: "validate", Err: fmt.Errorf("unsupported format: %q", format)}
	}
	return nil
}

// DecodeRawRGB interprets data as a square packed 8-bit RGB buffer.
func DecodeRawRGB(data []byte) (*image.NRGBA, error) {
	n := len(data)
	if n == 0 || n%3 != 0 {
		return nil, &ImageProcessingError{Operation: "raw", Err: fmt.Errorf("length %d is not a multiple of 3", n)}
	}
	side := isqrt(n / 3)
	if side*side*3 != n || side < MinSide {
		return nil, &ImageProcessingError{Operation: "raw", Err: fmt.Errorf("length %d is not a square RGB buffer", n)}
	}
	img := image.NewNRGBA(image.Rect(0, 0, side, side))
	for i, j := 0, 0; i < n; i, j = i+3, j+4 {
		img.Pix[j] = data[i]
		img.Pix[j+1] = data[i+1]
		img.Pix[j+2] = data[i+2]
		img.Pix[j+3] = 0xff
	}
	return img, nil
}

// Channels reports the channel count of a decoded image: 1 for gray,
// 4 when it carries transparency, 3 otherwise.
func Channels(img image.Image) int {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	}
	if o, ok := img.(interface{ Opaque() bool }); ok && !o.Opaque() {
		return 4
	}
	return 3
}

// MetadataOf describes a decoded image.
func MetadataOf(img image.Image, format string, size int64) Metadata {
	b := img.Bounds()
	return Metadata{
		Width:     b.Dx(),
		Height:    b.Dy(),
		Channels:  Channels(img),
		Format:    format,
		SizeBytes: size,
	}
}

func isqrt(n int) int {
	if n <= 0 {
		return 0
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}
