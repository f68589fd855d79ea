// Package cli implements flywheelctl's cobra command tree: a thin client
// over internal/rpc's JSON-over-HTTP surface, grounded on
// AbdelazizMoustafa10m-Raven's internal/cli package structure (one
// newXCmd() constructor per subcommand, a package-level rootCmd, flags
// bound via PersistentFlags).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagServer string

var rootCmd = &cobra.Command{
	Use:           "flywheelctl",
	Short:         "Control flywheel pipelines, models, and drift from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", envOr("FLYWHEEL_SERVER", "http://localhost:8090"), "flywheel-server base URL (env: FLYWHEEL_SERVER)")

	rootCmd.AddCommand(newPipelineCmd())
	rootCmd.AddCommand(newModelCmd())
	rootCmd.AddCommand(newDriftCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newLogsCmd())
	rootCmd.AddCommand(newGraphCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newValidateCmd())
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func client() *apiClient {
	return newAPIClient(flagServer)
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
