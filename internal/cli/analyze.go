package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"volumetry/pkg/config"
)

func newAnalyzeCmd(configPath *string) *cobra.Command {
	var parquet bool

	cmd := &cobra.Command{
		Use:   "analyze <study-code> <filename>",
		Short: "Run the volumetry analysis for one study",
		Long: `Analyzes a segmentation file inside a study directory and writes the
per-label metrics to metrics.json in that directory.`,
		Example: `  # Analyze storage/studies/STUDY01/sub-01_seg.nii.gz
  volumetry analyze STUDY01 sub-01_seg.nii.gz

  # Also write metrics.parquet
  volumetry analyze STUDY01 sub-01_seg.nii.gz --parquet`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			if parquet {
				cfg.Storage.SaveParquet = true
			}

			summary, err := buildService(cfg).ProcessStudy(args[0], args[1])
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&parquet, "parquet", false, "Additionally write metrics.parquet")

	return cmd
}
