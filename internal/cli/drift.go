package cli

import (
	"github.com/spf13/cobra"
)

func newDriftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Inspect drift detection state",
	}
	cmd.AddCommand(newDriftStatusCmd(), newDriftHistoryCmd())
	return cmd
}

func newDriftStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <pipeline-id> <model-id>",
		Short: "Show the open drift event (if any) for a pipeline/model pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]interface{}
			if err := client().get("/health/drift/"+args[0]+"/"+args[1], nil, &out); err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
}

func newDriftHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <pipeline-id>",
		Short: "List every recorded drift event for a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]interface{}
			if err := client().get("/health/drift/"+args[0]+"/events", nil, &out); err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
}
