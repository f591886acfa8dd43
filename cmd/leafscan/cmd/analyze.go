package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/leafscan/internal/analysis"
	"github.com/MeKo-Tech/leafscan/internal/batch"
	"github.com/MeKo-Tech/leafscan/internal/config"
	"github.com/MeKo-Tech/leafscan/internal/disease"
	"github.com/MeKo-Tech/leafscan/internal/imageproc"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <image...>",
		Short: "Analyze leaf images for plant diseases",
		Long: `Analyze one or more leaf photos and report the diagnosis, severity,
reliability and treatment recommendations for each.

Supported formats: JPEG, PNG, WebP, TIFF, BMP, GIF

Examples:
  leafscan analyze leaf.jpg
  leafscan analyze *.png --format text
  leafscan analyze leaf.jpg --top 5 --no-thumbnail --output result.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, a, args)
		},
	}

	cmd.Flags().StringP("format", "f", "json", "output format: json, text, csv")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	cmd.Flags().Int("top", 0, fmt.Sprintf("number of predictions to report (1-%d)", disease.NumClasses))
	cmd.Flags().Bool("no-thumbnail", false, "omit the base64 thumbnail from results")
	return cmd
}

func runAnalyze(cmd *cobra.Command, a *app, args []string) error {
	cfg := *a.cfg
	applyOutputFlags(cmd, &cfg)
	if cmd.Flags().Changed("top") {
		cfg.Analysis.TopN, _ = cmd.Flags().GetInt("top")
	}
	if noThumb, _ := cmd.Flags().GetBool("no-thumbnail"); noThumb {
		cfg.Analysis.Thumbnail = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	mc, err := a.modelContext(cmd.Context(), cfg.ToAnalysisConfig())
	if err != nil {
		return err
	}
	defer mc.Close()

	inputs := make([]imageproc.Input, len(args))
	for i, path := range args {
		inputs[i] = imageproc.FromPath(path)
	}
	items := analysis.NewAnalyzer().AnalyzeBatch(cmd.Context(), mc, inputs, analysis.BatchOptions{
		Workers: cfg.Batch.Workers,
	})

	res := &batch.Result{Items: items, ImagePaths: args, WorkerCount: cfg.Batch.Workers}
	if err := res.SaveResults(cmd.OutOrStdout(), cfg.Output.Format, cfg.Output.File, false); err != nil {
		return err
	}
	return itemErrors(items)
}

// applyOutputFlags lets --format and --output override the config file.
func applyOutputFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("format") || cfg.Output.Format == "" {
		cfg.Output.Format, _ = cmd.Flags().GetString("format")
	}
	if cmd.Flags().Changed("output") {
		cfg.Output.File, _ = cmd.Flags().GetString("output")
	}
}

// itemErrors joins the hard failures of a run. Quality rejections are
// results, not errors.
func itemErrors(items []analysis.BatchItem) error {
	var errs []error
	for _, it := range items {
		if it.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", it.Source, it.Err))
		}
	}
	return errors.Join(errs...)
}
