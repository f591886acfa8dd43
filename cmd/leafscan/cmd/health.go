package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/leafscan/internal/analysis"
)

var errUnhealthy = errors.New("health check failed")

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Run a model self-test and print the health report",
		Long: `Initialize the model, push two synthetic images through batch
preprocessing and prediction, and print the health report as JSON.

The command fails when the status is "error" or "not_initialized". A
"degraded" status (for example when a fallback model is serving) still
succeeds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mc, err := a.modelContext(cmd.Context(), a.cfg.ToAnalysisConfig())
			if err != nil {
				_ = writeJSON(cmd.OutOrStdout(), analysis.Health{
					Status:  analysis.StatusError,
					Message: err.Error(),
				})
				return err
			}
			defer mc.Close()

			h := analysis.NewAnalyzer().HealthCheck(cmd.Context(), mc)
			if err := writeJSON(cmd.OutOrStdout(), h); err != nil {
				return err
			}
			switch h.Status {
			case analysis.StatusError, analysis.StatusNotInitialized:
				return fmt.Errorf("%w: %s", errUnhealthy, h.Message)
			}
			return nil
		},
	}
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the serving model and its resolution steps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mc, err := a.modelContext(cmd.Context(), a.cfg.ToAnalysisConfig())
			if err != nil {
				return err
			}
			defer mc.Close()
			return writeJSON(cmd.OutOrStdout(), analysis.ModelInfo(mc))
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
