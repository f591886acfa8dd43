package model

import (
	"math/rand/v2"

	"github.com/MeKo-Tech/leafscan/internal/disease"
	"github.com/MeKo-Tech/leafscan/internal/tensor"
)

// classPatterns are the mean RGB colours of the synthetic training classes,
// in vocabulary order.
var classPatterns = [disease.NumClasses][3]float64{
	{0.2, 0.8, 0.2}, // Healthy
	{0.6, 0.4, 0.2}, // Early Blight
	{0.4, 0.3, 0.2}, // Late Blight
	{0.5, 0.6, 0.3}, // Leaf Spot
	{0.7, 0.7, 0.7}, // Powdery Mildew
	{0.8, 0.4, 0.2}, // Rust
	{0.3, 0.5, 0.2}, // Bacterial Spot
	{0.6, 0.8, 0.4}, // Mosaic Virus
	{0.9, 0.9, 0.3}, // Yellowing
	{0.4, 0.3, 0.2}, // Wilting
	{0.5, 0.5, 0.5}, // Other/Unknown
}

const syntheticNoise = 0.25

// syntheticImage fills dst with normal noise scaled by the class colour.
func syntheticImage(rng *rand.Rand, class int, dst []float32) {
	p := classPatterns[class]
	for i := 0; i+2 < len(dst); i += tensor.Channels {
		for ch := range tensor.Channels {
			v := p[ch] * (1 + syntheticNoise*rng.NormFloat64())
			dst[i+ch] = float32(min(max(v, 0), 1))
		}
	}
}

// syntheticBatch returns n images with balanced class labels.
func syntheticBatch(rng *rand.Rand, offset, n int) ([][]float32, []int) {
	imgs := make([][]float32, n)
	labels := make([]int, n)
	for i := range n {
		labels[i] = (offset + i) % disease.NumClasses
		imgs[i] = make([]float32, tensor.ImageSize)
		syntheticImage(rng, labels[i], imgs[i])
	}
	return imgs, labels
}
