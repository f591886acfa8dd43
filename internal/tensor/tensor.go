// Package tensor provides the scoped float32 tensors that carry images from
// the preprocessor to the model. Every tensor must be released exactly once;
// Live reports how many are still outstanding.
package tensor

import (
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/MeKo-Tech/leafscan/internal/mempool"
)

// Canonical image geometry, NHWC.
const (
	Height    = 224
	Width     = 224
	Channels  = 3
	ImageSize = Height * Width * Channels
)

// ErrReleased is returned when a released tensor is used.
var ErrReleased = errors.New("tensor already released")

var live atomic.Int64

// Live returns the number of tensors created and not yet released.
func Live() int64 {
	return live.Load()
}

// Tensor is a dense row-major float32 tensor backed by a pooled buffer.
type Tensor struct {
	data     []float32
	shape    []int
	released atomic.Bool
}

// New allocates a zeroed tensor of the given shape.
func New(shape ...int) (*Tensor, error) {
	n, err := volume(shape)
	if err != nil {
		return nil, err
	}
	live.Add(1)
	return &Tensor{data: mempool.GetZeroedFloat32(n), shape: slices.Clone(shape)}, nil
}

// NewImage allocates a zeroed [224,224,3] tensor.
func NewImage() (*Tensor, error) {
	return New(Height, Width, Channels)
}

// FromSamples builds an image tensor from 8-bit interleaved RGB samples,
// scaling each into [0,1].
func FromSamples(samples []byte) (*Tensor, error) {
	if len(samples) != ImageSize {
		return nil, fmt.Errorf("unexpected sample count: got %d, want %d", len(samples), ImageSize)
	}
	t, err := NewImage()
	if err != nil {
		return nil, err
	}
	for i, s := range samples {
		t.data[i] = float32(s) / 255
	}
	return t, nil
}

// Stack copies equally shaped tensors into one [N, ...] tensor. The inputs
// are left untouched; the caller still owns and must release them.
func Stack(ts []*Tensor) (*Tensor, error) {
	if len(ts) == 0 {
		return nil, errors.New("empty batch")
	}
	first := ts[0]
	if first == nil || first.Released() {
		return nil, fmt.Errorf("item 0: %w", ErrReleased)
	}
	for i, t := range ts[1:] {
		if t == nil || t.Released() {
			return nil, fmt.Errorf("item %d: %w", i+1, ErrReleased)
		}
		if !slices.Equal(t.shape, first.shape) {
			return nil, fmt.Errorf("item %d has shape %v, want %v", i+1, t.shape, first.shape)
		}
	}

	out, err := New(append([]int{len(ts)}, first.shape...)...)
	if err != nil {
		return nil, err
	}
	per := len(first.data)
	for i, t := range ts {
		copy(out.data[i*per:(i+1)*per], t.data)
	}
	return out, nil
}

// Shape returns a copy of the tensor shape.
func (t *Tensor) Shape() []int {
	return slices.Clone(t.shape)
}

// Len returns the number of elements.
func (t *Tensor) Len() int {
	return len(t.data)
}

// Data exposes the backing slice. It is nil after Release.
func (t *Tensor) Data() []float32 {
	if t.Released() {
		return nil
	}
	return t.data
}

// Row returns the i-th outer slice of a batched tensor without copying.
func (t *Tensor) Row(i int) ([]float32, error) {
	if t.Released() {
		return nil, ErrReleased
	}
	if len(t.shape) < 2 || i < 0 || i >= t.shape[0] {
		return nil, fmt.Errorf("row %d out of range for shape %v", i, t.shape)
	}
	per := len(t.data) / t.shape[0]
	return t.data[i*per : (i+1)*per], nil
}

// Release returns the buffer to the pool. Subsequent calls are no-ops.
func (t *Tensor) Release() {
	if t == nil || !t.released.CompareAndSwap(false, true) {
		return
	}
	mempool.PutFloat32(t.data)
	t.data = nil
	live.Add(-1)
}

// Released reports whether Release has been called.
func (t *Tensor) Released() bool {
	return t == nil || t.released.Load()
}

// Clamp limits every element to [lo, hi].
func (t *Tensor) Clamp(lo, hi float32) {
	for i, v := range t.data {
		t.data[i] = min(max(v, lo), hi)
	}
}

// IsImage reports whether the tensor has the canonical [224,224,3] shape.
func (t *Tensor) IsImage() bool {
	return slices.Equal(t.shape, []int{Height, Width, Channels})
}

// IsImageBatch reports whether the tensor is shaped [N,224,224,3].
func (t *Tensor) IsImageBatch() bool {
	return len(t.shape) == 4 && t.shape[0] > 0 && slices.Equal(t.shape[1:], []int{Height, Width, Channels})
}

// Stats computes min, max and mean for debug output.
func Stats(data []float32) (float32, float32, float32) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	minVal, maxVal := data[0], data[0]
	var sum float64
	for _, v := range data {
		minVal = min(minVal, v)
		maxVal = max(maxVal, v)
		sum += float64(v)
	}
	return minVal, maxVal, float32(sum / float64(len(data)))
}

func volume(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, errors.New("empty shape")
	}
	n := 1
	for i, d := range shape {
		if d <= 0 {
			return 0, fmt.Errorf("dimension %d must be > 0, got %d", i, d)
		}
		n *= d
	}
	return n, nil
}
