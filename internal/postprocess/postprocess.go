// Package postprocess turns raw model scores into a calibrated, ordered
// distribution over the disease vocabulary.
package postprocess

import (
	"cmp"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/MeKo-Tech/leafscan/internal/disease"
)

// Prediction is one calibrated class score.
type Prediction struct {
	Disease    disease.Label    `json:"disease"`
	Confidence float64          `json:"confidence"`
	Severity   disease.Severity `json:"severity"`
}

const (
	uncertainTop = 0.3
	healthyBoost = 0.3
	healthyCap   = 0.6
)

// Default temperatures per model tier.
const (
	DefaultTemperaturePretrained = 1.0
	DefaultTemperatureFallback   = 1.5
)

// Config holds calibration settings.
type Config struct {
	TemperaturePretrained float64
	TemperatureFallback   float64
	NoiseAmplitude        float64
}

// DefaultConfig returns the calibration defaults. Noise is disabled.
func DefaultConfig() Config {
	return Config{
		TemperaturePretrained: DefaultTemperaturePretrained,
		TemperatureFallback:   DefaultTemperatureFallback,
	}
}

// Validate checks the calibration settings.
func (c Config) Validate() error {
	if c.TemperaturePretrained <= 0 || c.TemperatureFallback <= 0 {
		return fmt.Errorf("temperatures must be positive, got %v and %v",
			c.TemperaturePretrained, c.TemperatureFallback)
	}
	if c.NoiseAmplitude < 0 || c.NoiseAmplitude > 1 {
		return fmt.Errorf("noise amplitude must be in [0,1], got %v", c.NoiseAmplitude)
	}
	return nil
}

// Calibrator applies the calibration pipeline.
type Calibrator struct {
	cfg   Config
	noise func() float64
}

// New returns a Calibrator for cfg.
func New(cfg Config) *Calibrator {
	return &Calibrator{cfg: cfg, noise: rand.Float64}
}

type options struct {
	temperature float64
	noise       float64
}

// Option adjusts a single Process call.
type Option func(*options)

// WithTemperature overrides the temperature.
func WithTemperature(t float64) Option {
	return func(o *options) { o.temperature = t }
}

// ForHighCapacity selects the temperature for the model tier.
func (c *Calibrator) ForHighCapacity(high bool) Option {
	if high {
		return WithTemperature(c.cfg.TemperaturePretrained)
	}
	return WithTemperature(c.cfg.TemperatureFallback)
}

// WithNoise overrides the noise amplitude.
func WithNoise(amplitude float64) Option {
	return func(o *options) { o.noise = amplitude }
}

// Process calibrates a vocabulary-ordered score vector. The result sums to 1,
// is sorted by descending confidence and holds every label once.
func (c *Calibrator) Process(scores []float64, opts ...Option) ([]Prediction, error) {
	if len(scores) != disease.NumClasses {
		return nil, fmt.Errorf("expected %d scores, got %d", disease.NumClasses, len(scores))
	}
	o := options{temperature: 1, noise: c.cfg.NoiseAmplitude}
	for _, opt := range opts {
		opt(&o)
	}

	labels := disease.Labels()
	preds := make([]Prediction, len(scores))
	for i, s := range scores {
		if math.IsNaN(s) || s < 0 || math.IsInf(s, 0) {
			s = 0
		}
		preds[i] = Prediction{Disease: labels[i], Confidence: s, Severity: disease.SeverityFor(labels[i], s)}
	}
	sortDesc(preds)

	if preds[0].Confidence < uncertainTop {
		for i := range preds {
			if preds[i].Disease == disease.Healthy {
				preds[i].Confidence = min(healthyCap, preds[i].Confidence+healthyBoost)
				break
			}
		}
	}
	normalize(preds)
	sortDesc(preds)

	if t := o.temperature; t > 0 && t != 1 {
		for i := range preds {
			preds[i].Confidence = math.Pow(preds[i].Confidence, 1/t)
		}
		normalize(preds)
		sortDesc(preds)
	}

	if o.noise > 0 {
		for i := range preds {
			delta := (c.noise() - 0.5) * o.noise
			preds[i].Confidence = min(max(preds[i].Confidence+delta, 0), 1)
		}
		normalize(preds)
		sortDesc(preds)
	}
	return preds, nil
}

// Top returns the first n predictions.
func Top(preds []Prediction, n int) []Prediction {
	if n <= 0 || n >= len(preds) {
		return slices.Clone(preds)
	}
	return slices.Clone(preds[:n])
}

// sortDesc orders by confidence, ties by vocabulary position.
func sortDesc(preds []Prediction) {
	slices.SortStableFunc(preds, func(a, b Prediction) int {
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}
		ia, _ := disease.Index(a.Disease)
		ib, _ := disease.Index(b.Disease)
		return cmp.Compare(ia, ib)
	})
}

func normalize(preds []Prediction) {
	var sum float64
	for _, p := range preds {
		sum += p.Confidence
	}
	if sum <= 0 || math.IsInf(sum, 0) {
		u := 1 / float64(len(preds))
		for i := range preds {
			preds[i].Confidence = u
		}
		return
	}
	for i := range preds {
		preds[i].Confidence /= sum
	}
}
