package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/leafscan/internal/analysis"
	"github.com/MeKo-Tech/leafscan/internal/disease"
	"github.com/MeKo-Tech/leafscan/internal/model"
	"github.com/MeKo-Tech/leafscan/internal/models"
	"github.com/MeKo-Tech/leafscan/internal/onnx"
	"github.com/MeKo-Tech/leafscan/internal/postprocess"
)

// Valid option values.
var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{"text", "json", "csv"}
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	m := model.DefaultConfig()
	a := analysis.DefaultConfig()
	p := postprocess.DefaultConfig()
	return Config{
		ModelsDir: models.DefaultModelsDir,
		LogLevel:  "info",
		Verbose:   false,
		Model: ModelConfig{
			Seed:              m.Seed,
			Filters:           slices.Clone(m.Filters),
			TrainingBatches:   m.TrainingBatches,
			TrainingBatchSize: m.TrainingBatchSize,
			LearningRate:      m.LearningRate,
			DropoutRate:       m.DropoutRate,
			DenseHidden:       m.DenseHidden,
		},
		Postprocess: PostprocessConfig{
			TemperaturePretrained: p.TemperaturePretrained,
			TemperatureFallback:   p.TemperatureFallback,
			NoiseAmplitude:        p.NoiseAmplitude,
		},
		Analysis: AnalysisConfig{
			MinQuality:    a.MinQuality,
			TopN:          a.TopN,
			Thumbnail:     a.Thumbnail,
			ThumbnailSize: a.ThumbnailSize,
		},
		Batch: BatchConfig{
			Workers: 4,
		},
		Output: OutputConfig{
			Format: "json",
		},
		GPU: GPUConfig{
			Enabled:     false,
			Device:      0,
			MemoryLimit: "auto",
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if err := validateThreshold(c.Analysis.MinQuality, "analysis.min_quality"); err != nil {
		return err
	}
	if err := validateThreshold(c.Postprocess.NoiseAmplitude, "postprocess.noise_amplitude"); err != nil {
		return err
	}
	if err := validateThreshold(c.Model.DropoutRate, "model.dropout_rate"); err != nil {
		return err
	}

	if c.Analysis.TopN < 1 || c.Analysis.TopN > disease.NumClasses {
		return fmt.Errorf("invalid analysis top_n: %d (must be between 1 and %d)", c.Analysis.TopN, disease.NumClasses)
	}
	if c.Analysis.Thumbnail && c.Analysis.ThumbnailSize <= 0 {
		return fmt.Errorf("invalid thumbnail size: %d (must be positive)", c.Analysis.ThumbnailSize)
	}
	if c.Postprocess.TemperaturePretrained <= 0 || c.Postprocess.TemperatureFallback <= 0 {
		return fmt.Errorf("invalid temperatures: %.2f/%.2f (must be positive)",
			c.Postprocess.TemperaturePretrained, c.Postprocess.TemperatureFallback)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	if c.Model.NumThreads < 0 {
		return fmt.Errorf("invalid model num_threads: %d (must not be negative)", c.Model.NumThreads)
	}
	if c.GPU.Device < 0 {
		return fmt.Errorf("invalid GPU device: %d (must not be negative)", c.GPU.Device)
	}
	if _, err := onnx.ParseMemoryLimit(c.GPU.MemoryLimit); err != nil {
		return fmt.Errorf("invalid GPU memory limit: %w", err)
	}
	if err := onnx.ValidateGPUConfig(c.toGPUConfig()); err != nil {
		return fmt.Errorf("invalid GPU configuration: %w", err)
	}
	return nil
}

// ToAnalysisConfig converts the config to the analysis configuration.
func (c *Config) ToAnalysisConfig() analysis.Config {
	cfg := analysis.DefaultConfig()
	cfg.Model = c.toModelConfig()
	cfg.Postprocess = postprocess.Config{
		TemperaturePretrained: c.Postprocess.TemperaturePretrained,
		TemperatureFallback:   c.Postprocess.TemperatureFallback,
		NoiseAmplitude:        c.Postprocess.NoiseAmplitude,
	}
	cfg.MinQuality = c.Analysis.MinQuality
	cfg.TopN = c.Analysis.TopN
	cfg.Thumbnail = c.Analysis.Thumbnail
	cfg.ThumbnailSize = c.Analysis.ThumbnailSize
	cfg.CatalogPath = c.Knowledge.CatalogPath
	return cfg
}

func (c *Config) toModelConfig() model.Config {
	cfg := model.DefaultConfig()
	cfg.ModelsDir = c.ModelsDir
	cfg.ModelPath = c.Model.ModelPath
	cfg.LabelsPath = c.Model.LabelsPath
	cfg.DisablePretrained = c.Model.DisablePretrained
	cfg.DisableFallbackCNN = c.Model.DisableFallbackCNN
	cfg.NumThreads = c.Model.NumThreads
	cfg.Seed = c.Model.Seed
	if len(c.Model.Filters) > 0 {
		cfg.Filters = slices.Clone(c.Model.Filters)
	}
	cfg.TrainingBatches = c.Model.TrainingBatches
	cfg.TrainingBatchSize = c.Model.TrainingBatchSize
	cfg.LearningRate = c.Model.LearningRate
	cfg.DropoutRate = c.Model.DropoutRate
	cfg.DenseHidden = c.Model.DenseHidden
	cfg.GPU = c.toGPUConfig()
	return cfg
}

func (c *Config) toGPUConfig() onnx.GPUConfig {
	cfg := onnx.DefaultGPUConfig()
	cfg.UseGPU = c.GPU.Enabled
	cfg.DeviceID = c.GPU.Device
	// Validate has already rejected malformed limits.
	cfg.GPUMemLimit, _ = onnx.ParseMemoryLimit(c.GPU.MemoryLimit)
	return cfg
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}
