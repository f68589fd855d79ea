package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

type modelInfo struct {
	ModelID      string  `json:"model_id"`
	Version      string  `json:"version"`
	Type         string  `json:"model_type"`
	Endpoint     string  `json:"endpoint"`
	Status       string  `json:"status"`
	Accuracy     float64 `json:"accuracy"`
	LatencyP99Ms int64   `json:"latency_p99_ms"`
}

func newModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage registered models",
	}
	cmd.AddCommand(newModelListCmd(), newModelShowCmd(), newModelHistoryCmd(), newModelCompareCmd())
	return cmd
}

func newModelListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered models",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Models []modelInfo `json:"models"`
			}
			if err := client().get("/control/models", nil, &out); err != nil {
				return err
			}
			printJSON(out.Models)
			return nil
		},
	}
}

func newModelShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the active version of a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out modelInfo
			if err := client().get("/control/models/"+args[0], nil, &out); err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
}

func newModelHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "List every registered version of a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"model_id": {args[0]}}
			var out struct {
				Models []modelInfo `json:"models"`
			}
			if err := client().get("/control/models", q, &out); err != nil {
				return err
			}
			printJSON(out.Models)
			return nil
		},
	}
}

func newModelCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <id-a> <id-b>",
		Short: "Compare the active versions of two models side by side",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var a, b modelInfo
			if err := client().get("/control/models/"+args[0], nil, &a); err != nil {
				return err
			}
			if err := client().get("/control/models/"+args[1], nil, &b); err != nil {
				return err
			}
			fmt.Printf("%-20s %-25s %-25s\n", "field", a.ModelID, b.ModelID)
			fmt.Printf("%-20s %-25s %-25s\n", "version", a.Version, b.Version)
			fmt.Printf("%-20s %-25s %-25s\n", "status", a.Status, b.Status)
			fmt.Printf("%-20s %-25.4f %-25.4f\n", "accuracy", a.Accuracy, b.Accuracy)
			fmt.Printf("%-20s %-25d %-25d\n", "p99_latency_ms", a.LatencyP99Ms, b.LatencyP99Ms)
			return nil
		},
	}
}
