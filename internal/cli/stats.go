package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newStatsCmd reports the control plane's aggregate counters. Per-kind
// breakdowns (predictions/feedback/training) all come from the same
// GetHealth snapshot today — there is no dedicated stats RPC method,
// only the health service's rollup (spec §1 places real-time metric
// dashboards out of scope; this is a one-shot snapshot, not a dashboard).
func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "stats [predictions|feedback|training]",
		Short:     "Show control-plane statistics",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"predictions", "feedback", "training"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := "overview"
			if len(args) == 1 {
				kind = args[0]
			}
			var out map[string]interface{}
			if err := client().get("/health", nil, &out); err != nil {
				return err
			}
			fmt.Printf("stats (%s):\n", kind)
			printJSON(out)
			return nil
		},
	}
	return cmd
}
