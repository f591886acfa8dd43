package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/leafscan/internal/batch"
	"github.com/MeKo-Tech/leafscan/internal/config"
)

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <paths...>",
		Short: "Analyze many images in parallel",
		Long: `Discover images in files and directories and analyze them on a pool of
parallel workers. Results keep the discovery order, and a failing image never
affects the others.

Examples:
  leafscan batch photos/ --recursive --workers 8
  leafscan batch a.jpg b.png --format csv --output results.csv
  leafscan batch photos/ --progress --stats --metrics-out leafscan.prom`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, a, args)
		},
	}

	// Output flags
	cmd.Flags().StringP("format", "f", "json", "output format: json, text, csv")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	cmd.Flags().String("metrics-out", "", "write Prometheus metrics in the textfile format")

	// Parallel processing flags
	cmd.Flags().IntP("workers", "w", 0, "number of parallel workers (default from config)")

	// File discovery flags
	cmd.Flags().BoolP("recursive", "r", false, "recursively scan directories")
	cmd.Flags().StringSlice("include", nil, "file patterns to include (default: supported image extensions)")
	cmd.Flags().StringSlice("exclude", nil, "file patterns to exclude")

	// Progress and monitoring flags
	cmd.Flags().Bool("progress", false, "show progress bar")
	cmd.Flags().Bool("quiet", false, "suppress progress and summary output")
	cmd.Flags().Bool("stats", false, "show processing statistics")
	return cmd
}

// configToBatchConfig maps the loaded configuration to batch.Config.
// Explicit flags take precedence.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) *batch.Config {
	bc := &batch.Config{
		Workers:         cfg.Batch.Workers,
		Recursive:       cfg.Batch.Recursive,
		IncludePatterns: cfg.Batch.Include,
		ExcludePatterns: cfg.Batch.Exclude,
		Format:          cfg.Output.Format,
		OutputFile:      cfg.Output.File,
	}

	if cmd.Flags().Changed("workers") {
		bc.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("recursive") {
		bc.Recursive, _ = cmd.Flags().GetBool("recursive")
	}
	if cmd.Flags().Changed("include") {
		bc.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	}
	if cmd.Flags().Changed("exclude") {
		bc.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")
	}

	bc.MetricsOut, _ = cmd.Flags().GetString("metrics-out")
	bc.ShowProgress, _ = cmd.Flags().GetBool("progress")
	bc.Quiet, _ = cmd.Flags().GetBool("quiet")
	bc.ShowStats, _ = cmd.Flags().GetBool("stats")
	return bc
}

func runBatch(cmd *cobra.Command, a *app, args []string) error {
	cfg := *a.cfg
	applyOutputFlags(cmd, &cfg)
	bc := configToBatchConfig(&cfg, cmd)
	if bc.Workers <= 0 {
		return fmt.Errorf("invalid workers: %d (must be positive)", bc.Workers)
	}

	mc, err := a.modelContext(cmd.Context(), cfg.ToAnalysisConfig())
	if err != nil {
		return err
	}
	defer mc.Close()

	result, err := batch.ProcessBatch(cmd.Context(), mc, args, bc, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("batch processing failed: %w", err)
	}

	if err := result.SaveResults(cmd.OutOrStdout(), bc.Format, bc.OutputFile, bc.Quiet); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	if bc.ShowStats {
		result.PrintStats(cmd.ErrOrStderr(), bc.Quiet)
	}
	return itemErrors(result.Items)
}
