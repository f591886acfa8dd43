//nolint:lll
package config

// Config represents the complete configuration for the leafscan CLI.
// It is loaded from configuration files, environment variables and
// command-line flags.
type Config struct {
	// Global settings
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Model resolution and fallback training
	Model ModelConfig `mapstructure:"model" yaml:"model" json:"model"`

	// Prediction calibration
	Postprocess PostprocessConfig `mapstructure:"postprocess" yaml:"postprocess" json:"postprocess"`

	// Analysis settings
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis" json:"analysis"`

	// Treatment knowledge
	Knowledge KnowledgeConfig `mapstructure:"knowledge" yaml:"knowledge" json:"knowledge"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// GPU configuration
	GPU GPUConfig `mapstructure:"gpu" yaml:"gpu" json:"gpu"`
}

// ModelConfig contains model resolution settings.
type ModelConfig struct {
	ModelPath          string `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	LabelsPath         string `mapstructure:"labels_path" yaml:"labels_path" json:"labels_path"`
	DisablePretrained  bool   `mapstructure:"disable_pretrained" yaml:"disable_pretrained" json:"disable_pretrained"`
	DisableFallbackCNN bool   `mapstructure:"disable_fallback_cnn" yaml:"disable_fallback_cnn" json:"disable_fallback_cnn"`
	NumThreads         int    `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`

	// Fallback networks
	Seed              uint64  `mapstructure:"seed" yaml:"seed" json:"seed"`
	Filters           []int   `mapstructure:"filters" yaml:"filters" json:"filters"`
	TrainingBatches   int     `mapstructure:"training_batches" yaml:"training_batches" json:"training_batches"`
	TrainingBatchSize int     `mapstructure:"training_batch_size" yaml:"training_batch_size" json:"training_batch_size"`
	LearningRate      float64 `mapstructure:"learning_rate" yaml:"learning_rate" json:"learning_rate"`
	DropoutRate       float64 `mapstructure:"dropout_rate" yaml:"dropout_rate" json:"dropout_rate"`
	DenseHidden       int     `mapstructure:"dense_hidden" yaml:"dense_hidden" json:"dense_hidden"`
}

// PostprocessConfig contains calibration settings.
type PostprocessConfig struct {
	TemperaturePretrained float64 `mapstructure:"temperature_pretrained" yaml:"temperature_pretrained" json:"temperature_pretrained"`
	TemperatureFallback   float64 `mapstructure:"temperature_fallback" yaml:"temperature_fallback" json:"temperature_fallback"`
	NoiseAmplitude        float64 `mapstructure:"noise_amplitude" yaml:"noise_amplitude" json:"noise_amplitude"`
}

// AnalysisConfig contains analysis settings.
type AnalysisConfig struct {
	MinQuality    float64 `mapstructure:"min_quality" yaml:"min_quality" json:"min_quality"`
	TopN          int     `mapstructure:"top_n" yaml:"top_n" json:"top_n"`
	Thumbnail     bool    `mapstructure:"thumbnail" yaml:"thumbnail" json:"thumbnail"`
	ThumbnailSize int     `mapstructure:"thumbnail_size" yaml:"thumbnail_size" json:"thumbnail_size"`
}

// KnowledgeConfig points at a replacement treatment catalog.
type KnowledgeConfig struct {
	CatalogPath string `mapstructure:"catalog_path" yaml:"catalog_path" json:"catalog_path"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers   int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include   []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude   []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// GPUConfig contains GPU acceleration settings.
type GPUConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Device      int    `mapstructure:"device" yaml:"device" json:"device"`
	MemoryLimit string `mapstructure:"memory_limit" yaml:"memory_limit" json:"memory_limit"`
}
