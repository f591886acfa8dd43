package analysis

import (
	"fmt"

	"github.com/MeKo-Tech/leafscan/internal/disease"
	"github.com/MeKo-Tech/leafscan/internal/imageproc"
	"github.com/MeKo-Tech/leafscan/internal/model"
	"github.com/MeKo-Tech/leafscan/internal/postprocess"
)

// Defaults for analysis settings.
const (
	DefaultMinQuality = 0.3
	DefaultTopN       = 3
)

// Config controls a ModelContext and the analyses run against it.
type Config struct {
	Model       model.Config
	Postprocess postprocess.Config

	MinQuality    float64
	TopN          int
	Thumbnail     bool
	ThumbnailSize int

	// CatalogPath replaces the embedded knowledge catalog when set.
	CatalogPath string
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Model:         model.DefaultConfig(),
		Postprocess:   postprocess.DefaultConfig(),
		MinQuality:    DefaultMinQuality,
		TopN:          DefaultTopN,
		Thumbnail:     true,
		ThumbnailSize: imageproc.DefaultThumbnailSize,
	}
}

// TestConfig returns defaults with the fast fallback model.
func TestConfig() Config {
	c := DefaultConfig()
	c.Model = model.TestConfig()
	return c
}

// Validate checks the analysis settings.
func (c Config) Validate() error {
	if c.MinQuality < 0 || c.MinQuality > 1 {
		return fmt.Errorf("min quality must be in [0,1], got %v", c.MinQuality)
	}
	if c.TopN < 1 || c.TopN > disease.NumClasses {
		return fmt.Errorf("top n must be in 1..%d, got %d", disease.NumClasses, c.TopN)
	}
	if c.Thumbnail && c.ThumbnailSize <= 0 {
		return fmt.Errorf("thumbnail size must be positive, got %d", c.ThumbnailSize)
	}
	return c.Postprocess.Validate()
}
