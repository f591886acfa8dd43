package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/leafscan/internal/disease"
	"github.com/MeKo-Tech/leafscan/internal/tensor"
)

// step builds one candidate backend.
type step struct {
	kind     Kind
	disabled bool
	build    func(ctx context.Context, cfg Config) (Classifier, error)
}

// Provider resolves a classifier once and serves predictions from it.
type Provider struct {
	cfg Config

	mu         sync.RWMutex
	done       bool
	initErr    error
	clf        Classifier
	resolution []StepResult

	steps []step
}

// NewProvider creates an uninitialized provider.
func NewProvider(cfg Config) *Provider {
	return &Provider{
		cfg: cfg,
		steps: []step{
			{kind: KindPretrained, disabled: cfg.DisablePretrained, build: func(_ context.Context, c Config) (Classifier, error) {
				return newONNXClassifier(c)
			}},
			{kind: KindFallbackTrained, disabled: cfg.DisableFallbackCNN, build: func(ctx context.Context, c Config) (Classifier, error) {
				return newCNN(ctx, c)
			}},
			{kind: KindFallbackSimple, build: func(_ context.Context, c Config) (Classifier, error) {
				return newDenseClassifier(c)
			}},
		},
	}
}

// Init runs the resolution pipeline. It is safe to call repeatedly and
// concurrently; every call after the first returns the cached outcome.
func (p *Provider) Init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done {
		return p.initErr
	}

	var lastErr error
	for _, s := range p.steps {
		if err := ctx.Err(); err != nil {
			// Cancellation is not cached; a later Init may retry.
			p.resolution = nil
			return err
		}

		res := StepResult{Kind: s.kind}
		if s.disabled {
			res.Skipped = true
			res.Err = errors.New("disabled by configuration")
			p.resolution = append(p.resolution, res)
			slog.Debug("Model step disabled", "kind", s.kind)
			continue
		}

		start := time.Now()
		clf, err := s.build(ctx, p.cfg)
		res.Duration = time.Since(start)

		switch {
		case err == nil:
			p.resolution = append(p.resolution, res)
			p.clf = clf
			p.done = true
			slog.Info("Model selected", "kind", s.kind, "version", clf.Version(),
				"layers", clf.Layers(), "duration", res.Duration)
			return nil
		case errors.Is(err, errSkipped):
			res.Skipped = true
			res.Err = err
			slog.Debug("Model step skipped", "kind", s.kind, "reason", err)
		case ctx.Err() != nil:
			p.resolution = nil
			return ctx.Err()
		default:
			res.Err = &StepError{Kind: s.kind, Err: err}
			lastErr = res.Err
			slog.Warn("Model step failed", "kind", s.kind, "error", err)
		}
		p.resolution = append(p.resolution, res)
	}

	if lastErr == nil {
		lastErr = errors.New("every model step was skipped")
	}
	p.done = true
	p.initErr = fmt.Errorf("no usable model: %w", lastErr)
	return p.initErr
}

func (p *Provider) current() (Classifier, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.clf == nil {
		return nil, ErrNotInitialized
	}
	return p.clf, nil
}

// Predict returns vocabulary-ordered scores for a [224,224,3] tensor.
func (p *Provider) Predict(t *tensor.Tensor) ([]float64, error) {
	clf, err := p.current()
	if err != nil {
		return nil, err
	}
	scores, err := clf.Predict(t)
	if err != nil {
		return nil, err
	}
	if len(scores) != disease.NumClasses {
		return nil, fmt.Errorf("model returned %d scores, want %d", len(scores), disease.NumClasses)
	}
	return scores, nil
}

// PredictBatch returns one score vector per image of a [N,224,224,3] tensor.
func (p *Provider) PredictBatch(t *tensor.Tensor) ([][]float64, error) {
	clf, err := p.current()
	if err != nil {
		return nil, err
	}
	rows, err := clf.PredictBatch(t)
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		if len(r) != disease.NumClasses {
			return nil, fmt.Errorf("model returned %d scores for image %d, want %d", len(r), i, disease.NumClasses)
		}
	}
	return rows, nil
}

// Kind is the selected backend, or "" before a successful Init.
func (p *Provider) Kind() Kind {
	clf, err := p.current()
	if err != nil {
		return ""
	}
	return clf.Kind()
}

// IsHighCapacity reports whether the selected backend is production grade.
func (p *Provider) IsHighCapacity() bool {
	return p.Kind().HighCapacity()
}

func (p *Provider) Layers() int {
	clf, err := p.current()
	if err != nil {
		return 0
	}
	return clf.Layers()
}

func (p *Provider) Version() string {
	clf, err := p.current()
	if err != nil {
		return ""
	}
	return clf.Version()
}

// Initialized reports whether a model is loaded.
func (p *Provider) Initialized() bool {
	_, err := p.current()
	return err == nil
}

// Resolution returns the recorded resolution steps.
func (p *Provider) Resolution() []StepResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]StepResult, len(p.resolution))
	copy(out, p.resolution)
	return out
}

// Close releases the backend. The provider can be initialized again.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.clf != nil {
		p.clf.Close()
	}
	p.clf = nil
	p.done = false
	p.initErr = nil
	p.resolution = nil
}
