// Package cli defines the volumetry command tree.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"volumetry/internal/analysis"
	"volumetry/internal/study"
	"volumetry/pkg/config"
	"volumetry/pkg/volumetry"
)

// NewRootCmd builds the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	var configPath string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "volumetry",
		Short: "Per-label volumetric statistics for 3D medical image segmentations",
		Long: `Volumetry computes per-label statistics from a NIfTI segmentation volume:
voxel-derived volume in mL, left/right hemispheric asymmetry around a
data-derived median sagittal plane, and world-space centroids.

Results are persisted as metrics.json inside each study directory and can
be served over a small HTTP API.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			setupLogging(verbose)
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to YAML config file")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newAnalyzeCmd(&configPath))
	cmd.AddCommand(newMetricsCmd(&configPath))
	cmd.AddCommand(newInitConfigCmd(&configPath))

	return cmd
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// buildService assembles the store, engine, and orchestration service from
// the loaded configuration.
func buildService(cfg *config.Config) *analysis.Service {
	store := study.New(cfg.Storage.Root)
	engine := volumetry.NewEngine(cfg.Labels)
	return analysis.NewService(store, engine, cfg.Storage.SaveParquet)
}
