package analysis

import (
	"context"
	"fmt"
	"sync"

	"github.com/MeKo-Tech/leafscan/internal/knowledge"
	"github.com/MeKo-Tech/leafscan/internal/metrics"
	"github.com/MeKo-Tech/leafscan/internal/model"
	"github.com/MeKo-Tech/leafscan/internal/postprocess"
	"github.com/MeKo-Tech/leafscan/internal/preprocess"
)

// NotInitializedError is returned when analysis runs without a ready model.
type NotInitializedError struct {
	Cause error
}

func (e *NotInitializedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("model context not initialized: %v", e.Cause)
	}
	return "model context not initialized"
}

func (e *NotInitializedError) Unwrap() error {
	return e.Cause
}

// ModelContext owns the loaded model and the read-only helpers every
// analysis shares. Create it once and pass it to each call.
type ModelContext struct {
	cfg Config

	provider   *model.Provider
	pre        *preprocess.Preprocessor
	calibrator *postprocess.Calibrator

	mu      sync.RWMutex
	catalog *knowledge.Catalog
}

// NewModelContext builds an uninitialized context.
func NewModelContext(cfg Config) *ModelContext {
	return &ModelContext{
		cfg:        cfg,
		provider:   model.NewProvider(cfg.Model),
		pre:        preprocess.New(),
		calibrator: postprocess.New(cfg.Postprocess),
	}
}

// Initialize creates and initializes a context.
func Initialize(ctx context.Context, cfg Config) (*ModelContext, error) {
	mc := NewModelContext(cfg)
	if err := mc.Init(ctx); err != nil {
		return nil, err
	}
	return mc, nil
}

// Init loads the knowledge catalog and resolves the model. Repeated calls
// return the first outcome.
func (mc *ModelContext) Init(ctx context.Context) error {
	if err := mc.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid analysis config: %w", err)
	}
	if err := mc.loadCatalog(); err != nil {
		return err
	}
	if err := mc.provider.Init(ctx); err != nil {
		return err
	}
	metrics.SetModel(string(mc.provider.Kind()), mc.provider.Version())
	return nil
}

func (mc *ModelContext) loadCatalog() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.catalog != nil {
		return nil
	}
	if mc.cfg.CatalogPath == "" {
		mc.catalog = knowledge.Default()
		return nil
	}
	c, err := knowledge.Load(mc.cfg.CatalogPath)
	if err != nil {
		return err
	}
	mc.catalog = c
	return nil
}

// Initialized reports whether the context can serve analyses.
func (mc *ModelContext) Initialized() bool {
	return mc != nil && mc.provider.Initialized() && mc.Catalog() != nil
}

// Catalog returns the loaded knowledge catalog, nil before Init.
func (mc *ModelContext) Catalog() *knowledge.Catalog {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.catalog
}

// Provider exposes the model provider.
func (mc *ModelContext) Provider() *model.Provider {
	return mc.provider
}

// Config returns the context configuration.
func (mc *ModelContext) Config() Config {
	return mc.cfg
}

// Close releases the model.
func (mc *ModelContext) Close() {
	if mc == nil {
		return
	}
	mc.provider.Close()
}
