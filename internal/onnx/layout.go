package onnx

import (
	"fmt"
	"math"
)

// Layout is the memory order of a 4-D image input.
type Layout string

const (
	LayoutNHWC Layout = "NHWC"
	LayoutNCHW Layout = "NCHW"
)

// DetectLayout inspects model input dimensions ([N,H,W,C] or [N,C,H,W];
// dynamic dimensions are negative) and picks the layout whose channel axis
// holds 3.
func DetectLayout(dims []int64) (Layout, error) {
	if len(dims) != 4 {
		return "", fmt.Errorf("expected 4D input, got %dD", len(dims))
	}
	switch {
	case dims[3] == 3:
		return LayoutNHWC, nil
	case dims[1] == 3:
		return LayoutNCHW, nil
	case dims[3] <= 0 && dims[1] <= 0:
		return LayoutNHWC, nil
	}
	return "", fmt.Errorf("cannot find a 3-channel axis in input shape %v", dims)
}

// NHWCToNCHW reorders a batch of interleaved images into planar order.
func NHWCToNCHW(src []float32, n, h, w, c int) ([]float32, error) {
	if len(src) != n*h*w*c {
		return nil, fmt.Errorf("unexpected data length: got %d, want %d", len(src), n*h*w*c)
	}
	dst := make([]float32, len(src))
	plane := h * w
	for b := range n {
		in := src[b*plane*c : (b+1)*plane*c]
		out := dst[b*plane*c : (b+1)*plane*c]
		for p := range plane {
			for ch := range c {
				out[ch*plane+p] = in[p*c+ch]
			}
		}
	}
	return dst, nil
}

// IsProbabilities reports whether v is non-negative and sums to 1 within tol.
func IsProbabilities(v []float32, tol float64) bool {
	if len(v) == 0 {
		return false
	}
	var sum float64
	for _, x := range v {
		if x < 0 || math.IsNaN(float64(x)) {
			return false
		}
		sum += float64(x)
	}
	return math.Abs(sum-1) <= tol
}

// Softmax converts logits into probabilities.
func Softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}

	// Find max for numerical stability
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		maxLogit = max(maxLogit, v)
	}

	var sum float64
	probs := make([]float64, len(logits))
	for i, v := range logits {
		e := math.Exp(float64(v - maxLogit))
		probs[i] = e
		sum += e
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
