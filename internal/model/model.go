// Package model resolves and runs the disease classifier.
//
// A Provider tries, in order, a pretrained ONNX model, a pure-Go CNN fitted
// on synthetic data and a small dense network. The first backend that can be
// built serves every prediction until Close.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/MeKo-Tech/leafscan/internal/onnx"
	"github.com/MeKo-Tech/leafscan/internal/tensor"
)

// Kind identifies a classifier backend.
type Kind string

const (
	KindPretrained      Kind = "pretrained"
	KindFallbackTrained Kind = "fallback_trained"
	KindFallbackSimple  Kind = "fallback_simple"
)

// HighCapacity reports whether the kind is fit for production use.
func (k Kind) HighCapacity() bool {
	return k == KindPretrained
}

func (k Kind) String() string {
	return string(k)
}

// Classifier is a loaded backend. Predict returns one non-negative score per
// vocabulary label, in vocabulary order.
type Classifier interface {
	Kind() Kind
	Layers() int
	Version() string
	Predict(t *tensor.Tensor) ([]float64, error)
	PredictBatch(t *tensor.Tensor) ([][]float64, error)
	Close()
}

// ErrNotInitialized is returned by Provider methods used before Init.
var ErrNotInitialized = errors.New("model not initialized")

// errSkipped marks a resolution step that did not apply.
var errSkipped = errors.New("step skipped")

// ShapeError reports a tensor whose shape the model cannot accept.
type ShapeError struct {
	Got  []int
	Want string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("invalid input shape %v, want %s", e.Got, e.Want)
}

// StepError wraps the failure of one resolution step.
type StepError struct {
	Kind Kind
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s model: %v", e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StepResult records one step of model resolution.
type StepResult struct {
	Kind     Kind
	Skipped  bool
	Err      error
	Duration time.Duration
}

// Selected reports whether this step produced the serving model.
func (r StepResult) Selected() bool {
	return !r.Skipped && r.Err == nil
}

// Status is "selected", "skipped" or "failed".
func (r StepResult) Status() string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Err != nil:
		return "failed"
	default:
		return "selected"
	}
}

// Config controls model resolution and the fallback networks.
type Config struct {
	ModelsDir  string
	ModelPath  string // explicit ONNX file, overrides ModelsDir lookup
	LabelsPath string // explicit classes.json or labels.txt

	DisablePretrained  bool
	DisableFallbackCNN bool

	NumThreads int
	GPU        onnx.GPUConfig

	Seed              uint64
	Filters           []int
	TrainingBatches   int
	TrainingBatchSize int
	LearningRate      float64
	DropoutRate       float64
	DenseHidden       int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		GPU:               onnx.DefaultGPUConfig(),
		Seed:              42,
		Filters:           []int{8, 16, 32},
		TrainingBatches:   10,
		TrainingBatchSize: 32,
		LearningRate:      0.1,
		DropoutRate:       0.5,
		DenseHidden:       16,
	}
}

// TestConfig returns a configuration that skips the ONNX lookup and fits the
// fallback CNN on a handful of images.
func TestConfig() Config {
	c := DefaultConfig()
	c.DisablePretrained = true
	c.TrainingBatches = 2
	c.TrainingBatchSize = 11
	return c
}

func (c Config) validateCNN() error {
	if len(c.Filters) != 3 {
		return fmt.Errorf("expected 3 convolution widths, got %d", len(c.Filters))
	}
	for i, f := range c.Filters {
		if f <= 0 {
			return fmt.Errorf("convolution %d width must be positive, got %d", i, f)
		}
	}
	if c.TrainingBatches <= 0 || c.TrainingBatchSize <= 0 {
		return fmt.Errorf("training needs positive batches and batch size, got %d x %d",
			c.TrainingBatches, c.TrainingBatchSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %v", c.LearningRate)
	}
	return c.validateDropout()
}

func (c Config) validateDense() error {
	if c.DenseHidden <= 0 {
		return fmt.Errorf("dense hidden units must be positive, got %d", c.DenseHidden)
	}
	return c.validateDropout()
}

func (c Config) validateDropout() error {
	if c.DropoutRate < 0 || c.DropoutRate >= 1 {
		return fmt.Errorf("dropout rate must be in [0,1), got %v", c.DropoutRate)
	}
	return nil
}

func checkImage(t *tensor.Tensor) error {
	if t.Released() {
		return fmt.Errorf("predict: %w", tensor.ErrReleased)
	}
	if !t.IsImage() {
		return &ShapeError{Got: t.Shape(), Want: "[224 224 3]"}
	}
	return nil
}

func checkBatch(t *tensor.Tensor) error {
	if t.Released() {
		return fmt.Errorf("predict batch: %w", tensor.ErrReleased)
	}
	if !t.IsImageBatch() {
		return &ShapeError{Got: t.Shape(), Want: "[N 224 224 3]"}
	}
	return nil
}

// batchRows applies predict to every row of a checked [N,224,224,3] tensor.
func batchRows(t *tensor.Tensor, predict func([]float32) []float64) ([][]float64, error) {
	n := t.Shape()[0]
	out := make([][]float64, n)
	for i := range n {
		row, err := t.Row(i)
		if err != nil {
			return nil, err
		}
		out[i] = predict(row)
	}
	return out, nil
}
