package testutil

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

// Reference colours for synthetic leaves.
var (
	MidGreen   = color.NRGBA{R: 70, G: 140, B: 60, A: 255}
	LeafYellow = color.NRGBA{R: 200, G: 190, B: 70, A: 255}
	SpotBrown  = color.NRGBA{R: 110, G: 70, B: 40, A: 255}
	Backdrop   = color.NRGBA{R: 225, G: 220, B: 205, A: 255}
)

// UniformImage returns a w x h image filled with c.
func UniformImage(w, h int, c color.Color) *image.NRGBA {
	return imaging.New(w, h, c)
}

// LeafImage draws a green elliptical leaf with brown spots on a light
// backdrop. The output is deterministic.
func LeafImage(w, h int) *image.NRGBA {
	img := imaging.New(w, h, Backdrop)
	cx, cy := float64(w)/2, float64(h)/2
	rx, ry := float64(w)*0.42, float64(h)*0.3
	for y := range h {
		for x := range w {
			dx := (float64(x) - cx) / rx
			dy := (float64(y) - cy) / ry
			d := dx*dx + dy*dy
			if d > 1 {
				continue
			}
			c := MidGreen
			// Midrib and a few lesions.
			if math.Abs(float64(y)-cy) < 1.5 {
				c = LeafYellow
			}
			if math.Mod(float64(x)*0.13+float64(y)*0.07, 1) < 0.06 {
				c = SpotBrown
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// GradientImage returns a horizontal black to white gradient.
func GradientImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			v := uint8(x * 255 / max(w-1, 1))
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// NoisyImage returns uniformly random pixels from a seeded source.
func NoisyImage(w, h int, seed uint64) *image.NRGBA {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(rng.IntN(256))
		img.Pix[i+1] = uint8(rng.IntN(256))
		img.Pix[i+2] = uint8(rng.IntN(256))
		img.Pix[i+3] = 255
	}
	return img
}

// TransparentLeafImage returns a leaf whose backdrop is fully transparent.
func TransparentLeafImage(w, h int) *image.NRGBA {
	img := LeafImage(w, h)
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] == Backdrop.R && img.Pix[i+1] == Backdrop.G && img.Pix[i+2] == Backdrop.B {
			img.Pix[i+3] = 0
		}
	}
	return img
}

// EncodePNG encodes img as PNG.
func EncodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

// EncodeJPEG encodes img as JPEG with the given quality.
func EncodeJPEG(t testing.TB, img image.Image, quality int) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)))
	return buf.Bytes()
}

// SaveImage writes img below dir, encoded by the extension of name, and
// returns the path.
func SaveImage(t testing.TB, dir, name string, img image.Image) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, EnsureDir(filepath.Dir(path)))
	require.NoError(t, imaging.Save(img, path), "Failed to save image: %s", path)
	return path
}
