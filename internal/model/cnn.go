package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/MeKo-Tech/leafscan/internal/disease"
	"github.com/MeKo-Tech/leafscan/internal/onnx"
	"github.com/MeKo-Tech/leafscan/internal/tensor"
)

const (
	cnnInputPool = 4
	cnnLayers    = 13
)

var errNonFiniteLoss = errors.New("non-finite training loss")

// cnnClassifier is the small convolutional fallback.
type cnnClassifier struct {
	convs   [3]*conv2D
	norms   [3]*batchNorm
	head    *dense
	version string
	loss    float64
}

// newCNN builds the CNN, calibrates its normalization layers and fits the
// dense head on synthetic data.
func newCNN(ctx context.Context, cfg Config) (*cnnClassifier, error) {
	if err := cfg.validateCNN(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5eed))

	c := &cnnClassifier{
		version: fmt.Sprintf("cnn-%d-%d-%d-seed%d", cfg.Filters[0], cfg.Filters[1], cfg.Filters[2], cfg.Seed),
	}
	inC := tensor.Channels
	for i, f := range cfg.Filters {
		c.convs[i] = newConv2D(rng, inC, f)
		c.norms[i] = newBatchNorm(f)
		inC = f
	}
	c.head = newDense(rng, inC, disease.NumClasses)

	calib, _ := syntheticBatch(rng, 0, cfg.TrainingBatchSize)
	c.calibrate(calib)

	for b := range cfg.TrainingBatches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		imgs, labels := syntheticBatch(rng, b*cfg.TrainingBatchSize, cfg.TrainingBatchSize)
		feats := make([][]float32, len(imgs))
		for i, img := range imgs {
			feats[i] = c.features(img)
		}
		loss := sgdStep(rng, c.head, feats, labels, cfg.LearningRate, cfg.DropoutRate)
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return nil, fmt.Errorf("batch %d: %w", b, errNonFiniteLoss)
		}
		c.loss = loss
		slog.Debug("Fallback CNN training batch", "batch", b+1, "of", cfg.TrainingBatches, "loss", loss)
	}
	return c, nil
}

// calibrate estimates batch-norm statistics layer by layer.
func (c *cnnClassifier) calibrate(imgs [][]float32) {
	maps := make([]*fmap, len(imgs))
	for i, img := range imgs {
		maps[i] = avgPool(&fmap{h: tensor.Height, w: tensor.Width, c: tensor.Channels, data: img}, cnnInputPool)
	}
	for l := range c.convs {
		for i := range maps {
			maps[i] = c.convs[l].forward(maps[i])
		}
		c.norms[l].calibrate(maps)
		for i := range maps {
			maps[i] = c.norms[l].forward(maps[i])
			if l < len(c.convs)-1 {
				maps[i] = maxPool2(maps[i])
			}
		}
	}
}

func (c *cnnClassifier) features(img []float32) []float32 {
	x := avgPool(&fmap{h: tensor.Height, w: tensor.Width, c: tensor.Channels, data: img}, cnnInputPool)
	for l := range c.convs {
		x = c.norms[l].forward(c.convs[l].forward(x))
		if l < len(c.convs)-1 {
			x = maxPool2(x)
		}
	}
	return globalAvgPool(x)
}

func (c *cnnClassifier) predictRow(img []float32) []float64 {
	return onnx.Softmax(c.head.forward(c.features(img)))
}

func (c *cnnClassifier) Kind() Kind      { return KindFallbackTrained }
func (c *cnnClassifier) Layers() int     { return cnnLayers }
func (c *cnnClassifier) Version() string { return c.version }
func (c *cnnClassifier) Close()          {}

func (c *cnnClassifier) Predict(t *tensor.Tensor) ([]float64, error) {
	if err := checkImage(t); err != nil {
		return nil, err
	}
	return c.predictRow(t.Data()), nil
}

func (c *cnnClassifier) PredictBatch(t *tensor.Tensor) ([][]float64, error) {
	if err := checkBatch(t); err != nil {
		return nil, err
	}
	return batchRows(t, c.predictRow)
}

// sgdStep runs one mini-batch of softmax cross-entropy SGD on l and returns
// the mean loss.
func sgdStep(rng *rand.Rand, l *dense, feats [][]float32, labels []int, lr, dropout float64) float64 {
	gw := make([]float64, len(l.w))
	gb := make([]float64, len(l.b))
	var loss float64
	for i, f := range feats {
		x := f
		if dropout > 0 {
			mask := dropoutMask(rng, len(f), dropout)
			x = make([]float32, len(f))
			for j := range f {
				x[j] = f[j] * mask[j]
			}
		}
		p := onnx.Softmax(l.forward(x))
		loss -= math.Log(max(p[labels[i]], 1e-12))
		for o := range l.out {
			d := p[o]
			if o == labels[i] {
				d--
			}
			gb[o] += d
			for j, v := range x {
				gw[o*l.in+j] += d * float64(v)
			}
		}
	}
	n := float64(len(feats))
	for k := range l.w {
		l.w[k] -= float32(lr * gw[k] / n)
	}
	for k := range l.b {
		l.b[k] -= float32(lr * gb[k] / n)
	}
	return loss / n
}
