package cli

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"
)

// newExportCmd lists the labeled-example files the training-export stage
// has already written. Export itself runs server-side as part of a
// pipeline's feedback-join/training-export cycle (internal/export); the
// CLI only surfaces what landed on the configured output directory, since
// object-storage uploaders are an explicit external collaborator (spec §1).
func newExportCmd() *cobra.Command {
	var outputDir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Inspect exported training data",
	}
	training := &cobra.Command{
		Use:   "training",
		Short: "List labeled-example files written by the training-export stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			// The exporter writes into partition subdirectories, so walk the tree.
			return filepath.WalkDir(outputDir, func(path string, e fs.DirEntry, err error) error {
				if err != nil {
					return fmt.Errorf("read export dir %s: %w", outputDir, err)
				}
				if e.IsDir() {
					return nil
				}
				info, err := e.Info()
				if err != nil {
					return nil
				}
				fmt.Printf("%-40s %10d bytes\n", path, info.Size())
				return nil
			})
		},
	}
	training.Flags().StringVar(&outputDir, "output-dir", envOr("FLYWHEEL_EXPORT_DIR", "./export"), "training-export output directory (env: FLYWHEEL_EXPORT_DIR)")
	cmd.AddCommand(training)
	return cmd
}
