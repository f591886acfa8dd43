package model

import (
	"fmt"
	"math/rand/v2"

	"github.com/MeKo-Tech/leafscan/internal/disease"
	"github.com/MeKo-Tech/leafscan/internal/onnx"
	"github.com/MeKo-Tech/leafscan/internal/tensor"
)

const denseLayers = 5

// denseClassifier is the last-resort network: flatten, one hidden layer,
// dropout (identity at inference) and the output layer.
type denseClassifier struct {
	hidden  *dense
	out     *dense
	version string
}

func newDenseClassifier(cfg Config) (*denseClassifier, error) {
	if err := cfg.validateDense(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0xd0d0))
	return &denseClassifier{
		hidden:  newDense(rng, tensor.ImageSize, cfg.DenseHidden),
		out:     newDense(rng, cfg.DenseHidden, disease.NumClasses),
		version: fmt.Sprintf("dense-%d-seed%d", cfg.DenseHidden, cfg.Seed),
	}, nil
}

func (d *denseClassifier) predictRow(img []float32) []float64 {
	return onnx.Softmax(d.out.forward(relu(d.hidden.forward(img))))
}

func (d *denseClassifier) Kind() Kind      { return KindFallbackSimple }
func (d *denseClassifier) Layers() int     { return denseLayers }
func (d *denseClassifier) Version() string { return d.version }
func (d *denseClassifier) Close()          {}

func (d *denseClassifier) Predict(t *tensor.Tensor) ([]float64, error) {
	if err := checkImage(t); err != nil {
		return nil, err
	}
	return d.predictRow(t.Data()), nil
}

func (d *denseClassifier) PredictBatch(t *tensor.Tensor) ([][]float64, error) {
	if err := checkBatch(t); err != nil {
		return nil, err
	}
	return batchRows(t, d.predictRow)
}
