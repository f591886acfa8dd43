// Package preprocess turns raw images into canonical [224,224,3] tensors.
//
// Preprocess never gives up on a readable call: when decoding or resizing
// fails it walks down a ladder of substitutes (raw read, gray gradient,
// random pixels, random unit values) and reports the stage it ended on.
package preprocess

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math/rand/v2"

	"github.com/MeKo-Tech/leafscan/internal/imageproc"
	"github.com/MeKo-Tech/leafscan/internal/metrics"
	"github.com/MeKo-Tech/leafscan/internal/tensor"
)

// Stage names the ladder rung that produced a tensor.
type Stage string

const (
	StagePrimary      Stage = "primary"
	StageRawRead      Stage = "raw_read"
	StageGradient     Stage = "gradient"
	StageRandomPixels Stage = "random_pixels"
	StageRandomUnit   Stage = "random_unit"
)

// Degraded reports whether the stage substituted for the primary path.
func (s Stage) Degraded() bool {
	return s != StagePrimary
}

// Synthetic reports whether the tensor content was invented rather than
// derived from the input pixels.
func (s Stage) Synthetic() bool {
	switch s {
	case StageGradient, StageRandomPixels, StageRandomUnit:
		return true
	}
	return false
}

// Error is returned only when no stage, including the last resort, could
// produce a tensor.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("preprocessing failed at %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Outcome carries the produced tensor. The caller owns Tensor and must
// release it. Cause holds the errors that pushed processing down the ladder.
type Outcome struct {
	Tensor *tensor.Tensor
	Stage  Stage
	Cause  error
}

// Option configures a Preprocessor.
type Option func(*Preprocessor)

// WithNormalSource replaces the standard normal random source used by the
// synthetic stages.
func WithNormalSource(f func() float64) Option {
	return func(p *Preprocessor) {
		if f != nil {
			p.normal = f
		}
	}
}

// Preprocessor is safe for concurrent use when its random source is.
type Preprocessor struct {
	normal func() float64

	// Overridable ladder steps.
	fit         func(image.Image) (*image.NRGBA, error)
	fromSamples func([]byte) (*tensor.Tensor, error)
}

// New creates a Preprocessor.
func New(opts ...Option) *Preprocessor {
	p := &Preprocessor{
		normal:      rand.NormFloat64,
		fit:         fitCanonical,
		fromSamples: tensor.FromSamples,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Preprocess converts in into a [224,224,3] tensor with values in [0,1].
func (p *Preprocessor) Preprocess(in imageproc.Input) (out *Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			if out != nil {
				out.Tensor.Release()
			}
			out, err = p.lastResort(in, fmt.Errorf("preprocessing panicked: %v", r))
		}
	}()

	samples, stage, cause := p.samples(in)
	t, terr := p.fromSamples(samples)
	if terr == nil {
		return p.finish(in, t, stage, cause), nil
	}
	cause = errors.Join(cause, terr)

	t, rerr := p.synthesize(func() float32 {
		return float32((p.normal()*128 + 128) / 255)
	})
	if rerr == nil {
		return p.finish(in, t, StageRandomPixels, cause), nil
	}
	return p.lastResort(in, errors.Join(cause, rerr))
}

// samples yields 224*224*3 RGB bytes from the primary or raw-read path, or
// the gray gradient when neither produced a fitted image.
func (p *Preprocessor) samples(in imageproc.Input) ([]byte, Stage, error) {
	img, stage, cause := p.decode(in)
	if img != nil {
		fitted, err := p.fit(img)
		if err == nil {
			return imageproc.RGBSamples(fitted), stage, cause
		}
		cause = errors.Join(cause, err)
	}
	return gradient(), StageGradient, cause
}

func (p *Preprocessor) decode(in imageproc.Input) (image.Image, Stage, error) {
	var (
		img    image.Image
		format string
		err    error
	)
	if in.IsPath() {
		img, format, err = imageproc.Open(in.Path)
	} else {
		img, format, err = imageproc.Decode(in.Data)
	}
	if err == nil {
		verr := imageproc.Validate(img, format)
		if verr == nil {
			return img, StagePrimary, nil
		}
		// Decoded pixels outside the canonical range are kept, bounded to
		// MaxSide before the cover fit.
		return imageproc.FitWithin(img, imageproc.MaxSide), StageRawRead, verr
	}

	data, rerr := in.Read()
	if rerr != nil {
		return nil, "", errors.Join(err, rerr)
	}
	packed, perr := imageproc.DecodeRawRGB(data)
	if perr == nil {
		return packed, StageRawRead, err
	}
	return nil, "", errors.Join(err, perr)
}

func (p *Preprocessor) lastResort(in imageproc.Input, cause error) (*Outcome, error) {
	t, err := p.synthesize(func() float32 {
		return float32(p.normal()/2 + 0.5)
	})
	if err != nil {
		return nil, &Error{Stage: StageRandomUnit, Err: errors.Join(cause, err)}
	}
	return p.finish(in, t, StageRandomUnit, cause), nil
}

// synthesize fills a fresh image tensor from gen, clamped to [0,1].
func (p *Preprocessor) synthesize(gen func() float32) (t *tensor.Tensor, err error) {
	t, err = tensor.NewImage()
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			t.Release()
			t, err = nil, fmt.Errorf("synthesis panicked: %v", r)
		}
	}()
	data := t.Data()
	for i := range data {
		data[i] = gen()
	}
	t.Clamp(0, 1)
	return t, nil
}

func (p *Preprocessor) finish(in imageproc.Input, t *tensor.Tensor, stage Stage, cause error) *Outcome {
	if stage.Degraded() {
		slog.Warn("Preprocessing degraded", "source", in.Source(), "stage", stage, "error", cause)
		metrics.RecordDegradation(string(stage))
	} else {
		minV, maxV, mean := tensor.Stats(t.Data())
		slog.Debug("Preprocessed image", "source", in.Source(), "min", minV, "max", maxV, "mean", mean)
	}
	return &Outcome{Tensor: t, Stage: stage, Cause: cause}
}

func fitCanonical(img image.Image) (*image.NRGBA, error) {
	return imageproc.CoverFit(imageproc.FlattenOnWhite(img), tensor.Width, tensor.Height)
}

// gradient builds the gray ramp where the RGB triple starting at byte i
// has value floor(i/len*255).
func gradient() []byte {
	buf := make([]byte, tensor.ImageSize)
	for i := 0; i < len(buf); i += tensor.Channels {
		v := byte(i * 255 / len(buf))
		buf[i], buf[i+1], buf[i+2] = v, v, v
	}
	return buf
}

// PreprocessBatch stacks the inputs into one [N,224,224,3] tensor. Per-image
// tensors are released before returning, also on error.
func (p *Preprocessor) PreprocessBatch(inputs []imageproc.Input) (*tensor.Tensor, []Stage, error) {
	if len(inputs) == 0 {
		return nil, nil, errors.New("empty batch")
	}

	items := make([]*tensor.Tensor, 0, len(inputs))
	defer func() {
		for _, t := range items {
			t.Release()
		}
	}()

	stages := make([]Stage, 0, len(inputs))
	for i, in := range inputs {
		out, err := p.Preprocess(in)
		if err != nil {
			return nil, nil, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, out.Tensor)
		stages = append(stages, out.Stage)
	}

	batch, err := tensor.Stack(items)
	if err != nil {
		return nil, nil, fmt.Errorf("stack batch: %w", err)
	}
	return batch, stages, nil
}
