package cli

import (
	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show control-plane or per-pipeline health",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]interface{}
			if err := client().get("/health", nil, &out); err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "pipeline <id>",
		Short: "Show a specific pipeline's health and drift summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]interface{}
			if err := client().get("/health/pipelines/"+args[0], nil, &out); err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	})
	return cmd
}
