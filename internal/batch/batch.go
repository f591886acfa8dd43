// Package batch runs the analysis over many files: discovery, the parallel
// run, result formatting and statistics.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/leafscan/internal/analysis"
	"github.com/MeKo-Tech/leafscan/internal/imageproc"
	"github.com/MeKo-Tech/leafscan/internal/metrics"
)

// ErrNoImages is returned when discovery finds nothing to analyze.
var ErrNoImages = errors.New("no image files found")

// ProcessBatch discovers images under imagePaths and analyzes them with mc.
// Progress goes to progressOut when enabled.
func ProcessBatch(ctx context.Context, mc *analysis.ModelContext, imagePaths []string, config *Config,
	progressOut io.Writer,
) (*Result, error) {
	files, err := DiscoverImageFiles(imagePaths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoImages
	}

	var progress analysis.ProgressCallback
	switch {
	case config.Quiet:
		// silent
	case config.ShowProgress && progressOut != nil:
		progress = analysis.NewConsoleProgressCallback(progressOut, "Analyzing: ")
	default:
		progress = analysis.NewLogProgressCallback(logInterval(len(files)))
	}

	inputs := make([]imageproc.Input, len(files))
	for i, f := range files {
		inputs[i] = imageproc.FromPath(f)
	}

	slog.Debug("Starting batch", "files", len(files), "workers", config.Workers)
	startTime := time.Now()
	items := analysis.NewAnalyzer().AnalyzeBatch(ctx, mc, inputs, analysis.BatchOptions{
		Workers:  config.Workers,
		Progress: progress,
	})
	duration := time.Since(startTime)

	if config.MetricsOut != "" {
		if err := metrics.WriteTextfile(config.MetricsOut); err != nil {
			return nil, fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	return &Result{
		Items:       items,
		ImagePaths:  files,
		Duration:    duration,
		WorkerCount: config.Workers,
	}, nil
}

// logInterval logs roughly ten progress lines per batch.
func logInterval(n int) int {
	return max(n/10, 1)
}
