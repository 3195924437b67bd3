package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"volumetry/pkg/config"
)

func newMetricsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics <study-code>",
		Short: "Print the saved metrics of a study",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}

			metrics, err := buildService(cfg).StudyMetrics(args[0])
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(metrics, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
