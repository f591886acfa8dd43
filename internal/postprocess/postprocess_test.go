package postprocess

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/leafscan/internal/disease"
)

func oneHot(idx int, v float64) []float64 {
	s := make([]float64, disease.NumClasses)
	s[idx] = v
	return s
}

func sum(preds []Prediction) float64 {
	var s float64
	for _, p := range preds {
		s += p.Confidence
	}
	return s
}

func assertInvariants(t *testing.T, preds []Prediction) {
	t.Helper()
	require.Len(t, preds, disease.NumClasses)
	assert.InDelta(t, 1.0, sum(preds), 1e-9)
	seen := map[disease.Label]bool{}
	for i, p := range preds {
		assert.False(t, seen[p.Disease], "duplicate %s", p.Disease)
		seen[p.Disease] = true
		if i > 0 {
			assert.LessOrEqual(t, p.Confidence, preds[i-1].Confidence)
		}
	}
}

func TestProcess_ConfidentPrediction(t *testing.T) {
	c := New(DefaultConfig())
	scores := oneHot(5, 0.9)
	scores[0] = 0.1

	preds, err := c.Process(scores)
	require.NoError(t, err)
	assertInvariants(t, preds)

	assert.Equal(t, disease.Rust, preds[0].Disease)
	assert.InDelta(t, 0.9, preds[0].Confidence, 1e-9)
	assert.Equal(t, disease.SeveritySevere, preds[0].Severity)
	assert.Equal(t, disease.Healthy, preds[1].Disease)
	assert.Equal(t, disease.SeverityNone, preds[1].Severity)
}

func TestProcess_UncertainBoostsHealthy(t *testing.T) {
	c := New(DefaultConfig())
	scores := make([]float64, disease.NumClasses)
	for i := range scores {
		scores[i] = 0.05
	}
	scores[3] = 0.2

	preds, err := c.Process(scores)
	require.NoError(t, err)
	assertInvariants(t, preds)

	// Healthy 0.05+0.3 = 0.35 over a total of 0.7+0.3.
	assert.Equal(t, disease.Healthy, preds[0].Disease)
	assert.InDelta(t, 0.35, preds[0].Confidence, 1e-9)
	assert.Equal(t, disease.LeafSpot, preds[1].Disease)
}

func TestProcess_HealthyBoostCapped(t *testing.T) {
	c := New(DefaultConfig())
	scores := oneHot(0, 0.29)
	scores[1] = 0.29

	preds, err := c.Process(scores)
	require.NoError(t, err)
	// min(0.6, 0.59) = 0.59 against 0.29.
	assert.Equal(t, disease.Healthy, preds[0].Disease)
	assert.InDelta(t, 0.59/0.88, preds[0].Confidence, 1e-9)
}

func TestProcess_AllZeroAndInvalid(t *testing.T) {
	c := New(DefaultConfig())

	// All zero: Healthy is boosted to 0.3 and takes everything.
	preds, err := c.Process(make([]float64, disease.NumClasses))
	require.NoError(t, err)
	assertInvariants(t, preds)
	assert.Equal(t, disease.Healthy, preds[0].Disease)
	assert.InDelta(t, 1.0, preds[0].Confidence, 1e-9)

	scores := oneHot(2, 0.8)
	scores[4] = math.NaN()
	scores[6] = -3
	scores[7] = math.Inf(1)
	preds, err = c.Process(scores)
	require.NoError(t, err)
	assertInvariants(t, preds)
	assert.Equal(t, disease.LateBlight, preds[0].Disease)

	_, err = c.Process([]float64{1, 2})
	assert.Error(t, err)
}

func TestProcess_TiesKeepVocabularyOrder(t *testing.T) {
	c := New(DefaultConfig())
	scores := make([]float64, disease.NumClasses)
	scores[9] = 0.4
	scores[2] = 0.4

	preds, err := c.Process(scores)
	require.NoError(t, err)
	assert.Equal(t, disease.LateBlight, preds[0].Disease)
	assert.Equal(t, disease.Wilting, preds[1].Disease)
}

func TestProcess_Temperature(t *testing.T) {
	c := New(DefaultConfig())
	scores := oneHot(1, 0.7)
	scores[2] = 0.3

	plain, err := c.Process(scores)
	require.NoError(t, err)
	soft, err := c.Process(scores, c.ForHighCapacity(false))
	require.NoError(t, err)
	sharp, err := c.Process(scores, WithTemperature(0.5))
	require.NoError(t, err)

	assertInvariants(t, soft)
	assertInvariants(t, sharp)
	assert.Less(t, soft[0].Confidence, plain[0].Confidence)
	assert.Greater(t, sharp[0].Confidence, plain[0].Confidence)
	assert.Equal(t, disease.EarlyBlight, soft[0].Disease)

	same, err := c.Process(scores, c.ForHighCapacity(true))
	require.NoError(t, err)
	assert.Equal(t, plain, same)
}

func TestProcess_NoiseKeepsInvariants(t *testing.T) {
	c := New(Config{TemperaturePretrained: 1, TemperatureFallback: 1.5, NoiseAmplitude: 0.1})
	calls := 0
	c.noise = func() float64 {
		calls++
		return float64(calls%2) // alternates 1 and 0: +0.05, -0.05
	}

	scores := oneHot(5, 0.6)
	scores[1] = 0.4
	preds, err := c.Process(scores)
	require.NoError(t, err)
	assertInvariants(t, preds)
	assert.Equal(t, disease.NumClasses, calls)

	// Disabled per call.
	calls = 0
	_, err = c.Process(scores, WithNoise(0))
	require.NoError(t, err)
	assert.Zero(t, calls)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{TemperaturePretrained: 0, TemperatureFallback: 1}.Validate())
	assert.Error(t, Config{TemperaturePretrained: 1, TemperatureFallback: 1, NoiseAmplitude: 2}.Validate())
}

func TestTop(t *testing.T) {
	preds := []Prediction{{Disease: disease.Rust}, {Disease: disease.Healthy}, {Disease: disease.Wilting}, {Disease: disease.Yellowing}}
	assert.Len(t, Top(preds, 3), 3)
	assert.Len(t, Top(preds, 10), 4)
	assert.Len(t, Top(preds, 0), 4)
}

func TestProcess_Properties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 50
	properties := gopter.NewProperties(params)
	c := New(DefaultConfig())

	properties.Property("calibrated output is a sorted distribution", prop.ForAll(
		func(scores []float64, temp float64) bool {
			preds, err := c.Process(scores, WithTemperature(temp))
			if err != nil || len(preds) != disease.NumClasses {
				return false
			}
			if math.Abs(sum(preds)-1) > 1e-3 {
				return false
			}
			for i := 1; i < len(preds); i++ {
				if preds[i].Confidence > preds[i-1].Confidence {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(disease.NumClasses, gen.Float64Range(0, 1)),
		gen.Float64Range(0.5, 3),
	))

	properties.TestingRun(t)
}
