package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flywheel-ml/flywheel/internal/dsl"
)

// newGraphCmd renders a pipeline's stage chain as an arrow-separated
// graph, parsed client-side from the spec_yaml the control service
// already returns — no separate graph-rendering RPC exists, matching the
// "CLI formatting" external-collaborator carve-out (spec §1).
func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render a pipeline's stage chain",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "pipeline <id>",
		Short: "Print the ordered stage chain for one pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p struct {
				SpecYAML string `json:"spec_yaml"`
			}
			if err := client().get("/control/pipelines/"+args[0], nil, &p); err != nil {
				return err
			}
			manifest, _, err := dsl.Parse(p.SpecYAML)
			if err != nil {
				return fmt.Errorf("parse stored manifest: %w", err)
			}
			fmt.Print(manifest.Spec.Source)
			for _, stage := range manifest.Spec.Stages {
				fmt.Printf(" -> %s(%s)", stage.ID, stage.Type)
			}
			fmt.Println()
			return nil
		},
	})
	return cmd
}
