package cli

import (
	"github.com/spf13/cobra"
)

// newLogsCmd surfaces a pipeline's current status and drift summary as a
// stand-in for tailing its run log: there is no dedicated log-streaming
// RPC (the RPC transport and CLI presentation layer are both external
// collaborators per spec §1), so this reports the same GetPipelineHealth
// snapshot flywheelctl health pipeline shows, scoped under the `logs`
// verb operators expect from similar CLIs.
func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show a pipeline's recent status",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "pipeline <id>",
		Short: "Show a pipeline's current status and drift summary",
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
