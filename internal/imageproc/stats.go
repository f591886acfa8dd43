package imageproc

import (
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// maxStatPixels caps how many pixels ComputeStats samples.
const maxStatPixels = 262144

// ChannelStats summarizes one colour channel on the 0..255 scale.
type ChannelStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
}

// NeutralStats is the stand-in used when real statistics are unavailable.
func NeutralStats() []ChannelStats {
	n := ChannelStats{Min: 0, Max: 255, Mean: 128, StdDev: 64}
	return []ChannelStats{n, n, n}
}

// ComputeStats returns R, G and B statistics of img flattened onto white.
// Large images are sampled on a regular grid.
func ComputeStats(img image.Image) []ChannelStats {
	src := FlattenOnWhite(img)
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return NeutralStats()
	}

	step := 1
	if total := w * h; total > maxStatPixels {
		step = int(math.Ceil(math.Sqrt(float64(total) / maxStatPixels)))
	}
	n := ((w + step - 1) / step) * ((h + step - 1) / step)
	r := make([]float64, 0, n)
	g := make([]float64, 0, n)
	bl := make([]float64, 0, n)
	for y := 0; y < h; y += step {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x += step {
			i := x * 4
			r = append(r, float64(row[i]))
			g = append(g, float64(row[i+1]))
			bl = append(bl, float64(row[i+2]))
		}
	}
	return []ChannelStats{summarize(r), summarize(g), summarize(bl)}
}

// MeanBrightness averages the channel means.
func MeanBrightness(stats []ChannelStats) float64 {
	if len(stats) == 0 {
		return 0
	}
	var sum float64
	for _, s := range stats {
		sum += s.Mean
	}
	return sum / float64(len(stats))
}

// MeanStdDev averages the channel standard deviations.
func MeanStdDev(stats []ChannelStats) float64 {
	if len(stats) == 0 {
		return 0
	}
	var sum float64
	for _, s := range stats {
		sum += s.StdDev
	}
	return sum / float64(len(stats))
}

func summarize(xs []float64) ChannelStats {
	if len(xs) == 0 {
		return ChannelStats{}
	}
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) < 2 || math.IsNaN(std) {
		std = 0
	}
	return ChannelStats{
		Min:    floats.Min(xs),
		Max:    floats.Max(xs),
		Mean:   mean,
		StdDev: std,
	}
}
