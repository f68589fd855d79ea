package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flywheel-ml/flywheel/internal/dsl"
)

// newValidateCmd parses a pipeline manifest locally without contacting the
// server, the same check pipeline apply performs before submission — a
// dry-run client-side validation pass.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <manifest.yaml>",
		Short: "Validate a pipeline manifest without submitting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read manifest: %w", err)
			}
			manifest, hash, err := dsl.Parse(string(raw))
			if err != nil {
				return err
			}
			fmt.Printf("valid: %s/%s (%d stages), spec_hash=%s\n",
				manifest.Metadata.Namespace, manifest.Metadata.Name, len(manifest.Spec.Stages), hash)
			return nil
		},
	}
}
