// Package cmd implements the leafscan command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/leafscan/internal/analysis"
	"github.com/MeKo-Tech/leafscan/internal/config"
	"github.com/MeKo-Tech/leafscan/internal/models"
	"github.com/MeKo-Tech/leafscan/internal/version"
)

// app carries the state shared by one command tree.
type app struct {
	v       *viper.Viper
	loader  *config.Loader
	cfg     *config.Config
	cfgFile string
}

// Execute runs the root command and exits non-zero on failure.
// This is called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCommand builds a fresh command tree with its own configuration
// state, so tests can execute commands without calling os.Exit().
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	a.loader = config.NewLoaderWith(a.v)

	rootCmd := &cobra.Command{
		Use:   "leafscan",
		Short: "Plant disease analysis for leaf photos",
		Long: `leafscan analyzes photos of plant leaves and reports the most likely
disease, its severity, a reliability score and treatment recommendations.

It prefers a pretrained ONNX classifier from the models directory and falls
back to a small network trained on synthetic leaves when none is installed.
Fallback results are for demonstration only.

Examples:
  leafscan analyze leaf.jpg
  leafscan analyze *.png --format text
  leafscan batch photos/ --recursive --workers 8 --progress
  leafscan health`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			setupLogging(cmd.ErrOrStderr(), a.cfg)
			return nil
		},
	}
	rootCmd.SetVersionTemplate("leafscan version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/leafscan, /etc/leafscan)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	defaultModelsDir := models.DefaultModelsDir
	if envDir := os.Getenv(models.EnvModelsDir); envDir != "" {
		defaultModelsDir = envDir
	}
	rootCmd.PersistentFlags().String("models-dir", defaultModelsDir,
		"directory containing model.onnx and its labels (can also be set via "+models.EnvModelsDir+")")

	_ = a.v.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = a.v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("models_dir", rootCmd.PersistentFlags().Lookup("models-dir"))

	rootCmd.AddCommand(
		newAnalyzeCmd(a),
		newBatchCmd(a),
		newValidateCmd(a),
		newHealthCmd(a),
		newInfoCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// loadConfig reads the config file and environment once per command tree.
func (a *app) loadConfig() error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := a.loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.cfg = cfg
	return nil
}

// modelContext initializes the analysis context from the loaded config.
// The caller must Close it.
func (a *app) modelContext(ctx context.Context, cfg analysis.Config) (*analysis.ModelContext, error) {
	mc, err := analysis.Initialize(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model: %w", err)
	}
	res := mc.Provider().Resolution()
	for _, step := range res {
		slog.Debug("Model resolution step", "kind", step.Kind, "status", step.Status(),
			"duration", step.Duration, "error", step.Err)
	}
	return mc, nil
}

func setupLogging(w io.Writer, cfg *config.Config) {
	var logLevel slog.Level
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}
