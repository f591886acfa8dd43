package model

import (
	"math/rand/v2"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/leafscan/internal/tensor"
)

func TestAvgAndMaxPool(t *testing.T) {
	in := &fmap{h: 2, w: 2, c: 1, data: []float32{1, 2, 3, 6}}

	avg := avgPool(in, 2)
	require.Equal(t, 1, avg.h)
	assert.InDelta(t, 3.0, avg.data[0], 1e-6)

	mx := maxPool2(in)
	assert.Equal(t, []float32{6}, mx.data)

	gap := globalAvgPool(in)
	assert.InDeltaSlice(t, []float32{3}, gap, 1e-6)
}

func TestConv2D_CenterTapIsIdentity(t *testing.T) {
	l := &conv2D{inC: 1, outC: 1, w: make([]float32, 9), b: []float32{0.5}}
	l.w[4] = 1

	in := &fmap{h: 2, w: 3, c: 1, data: []float32{1, 2, 3, 4, 5, 6}}
	out := l.forward(in)
	assert.Equal(t, []float32{1.5, 2.5, 3.5, 4.5, 5.5, 6.5}, out.data)
}

func TestBatchNorm_CalibrateCentersActivations(t *testing.T) {
	bn := newBatchNorm(1)
	m := &fmap{h: 1, w: 4, c: 1, data: []float32{1, 2, 3, 4}}
	bn.calibrate([]*fmap{m})
	assert.InDelta(t, 2.5, bn.mean[0], 1e-6)

	out := bn.forward(m)
	// Below-mean values are zeroed by the ReLU.
	assert.Zero(t, out.data[0])
	assert.Zero(t, out.data[1])
	assert.Greater(t, out.data[3], out.data[2])
}

func TestDropoutMask(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	mask := dropoutMask(rng, 1000, 0.5)
	var kept int
	for _, v := range mask {
		if v != 0 {
			assert.InDelta(t, 2.0, v, 1e-6)
			kept++
		}
	}
	assert.InDelta(t, 500, kept, 100)
}

func TestSGDStep_ReducesLoss(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	l := newDense(rng, 2, 2)
	feats := [][]float32{{1, 0}, {0, 1}}
	labels := []int{0, 1}

	first := sgdStep(rng, l, feats, labels, 0.5, 0)
	var last float64
	for range 20 {
		last = sgdStep(rng, l, feats, labels, 0.5, 0)
	}
	assert.Less(t, last, first)
}

func TestNewCNN_InvalidConfig(t *testing.T) {
	cfg := TestConfig()
	cfg.LearningRate = 0
	_, err := newCNN(t.Context(), cfg)
	require.Error(t, err)

	cfg = TestConfig()
	cfg.DropoutRate = 1
	_, err = newCNN(t.Context(), cfg)
	require.Error(t, err)

	cfg = TestConfig()
	cfg.LearningRate = 1e300
	_, err = newCNN(t.Context(), cfg)
	assert.ErrorIs(t, err, errNonFiniteLoss)
}

func TestSyntheticImage_InUnitRange(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 25
	properties := gopter.NewProperties(params)

	properties.Property("synthetic pixels stay in [0,1]", prop.ForAll(
		func(seed uint64, class int) bool {
			rng := rand.New(rand.NewPCG(seed, 7))
			dst := make([]float32, 3*64)
			syntheticImage(rng, class, dst)
			for _, v := range dst {
				if v < 0 || v > 1 {
					return false
				}
			}
			return true
		},
		gen.UInt64(),
		gen.IntRange(0, 10),
	))

	properties.TestingRun(t)
}

func TestSyntheticBatch_BalancedLabels(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	imgs, labels := syntheticBatch(rng, 5, 12)
	require.Len(t, imgs, 12)
	assert.Equal(t, 5, labels[0])
	assert.Equal(t, 0, labels[6])
	assert.Len(t, imgs[0], tensor.ImageSize)
}
