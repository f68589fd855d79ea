package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/flywheel-ml/flywheel/internal/dsl"
)

type pipelineInfo struct {
	PipelineID string `json:"pipeline_id"`
	Name       string `json:"name"`
	Namespace  string `json:"namespace"`
	Status     string `json:"status"`
	SpecHash   string `json:"spec_hash"`
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func newPipelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Manage pipelines",
	}
	cmd.AddCommand(newPipelineApplyCmd(), newPipelineListCmd(), newPipelineGetCmd(),
		newPipelineEnableCmd(), newPipelineDisableCmd(), newPipelineDeleteCmd())
	return cmd
}

func newPipelineApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <manifest.yaml>",
		Short: "Create a pipeline from a manifest file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read manifest: %w", err)
			}
			manifest, _, err := dsl.Parse(string(raw))
			if err != nil {
				return fmt.Errorf("manifest invalid: %w", err)
			}

			var out pipelineInfo
			req := map[string]string{
				"name": manifest.Metadata.Name, "namespace": manifest.Metadata.Namespace, "spec_yaml": string(raw),
			}
			if err := client().post("/control/pipelines", req, &out); err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
}

func newPipelineListCmd() *cobra.Command {
	var namespace string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pipelines",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if namespace != "" {
				q.Set("namespace", namespace)
			}
			var out struct {
				Pipelines []pipelineInfo `json:"pipelines"`
			}
			if err := client().get("/control/pipelines", q, &out); err != nil {
				return err
			}
			printJSON(out.Pipelines)
			return nil
		},
	}
	cmd.Flags().StringVar(&namespace, "namespace", "", "filter by namespace")
	return cmd
}

func newPipelineGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out pipelineInfo
			if err := client().get("/control/pipelines/"+args[0], nil, &out); err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
}

func newPipelineEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <id>",
		Short: "Enable a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]interface{}
			if err := client().post("/control/pipelines/"+args[0]+"/enable", nil, &out); err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
}

func newPipelineDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <id>",
		Short: "Disable a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]interface{}
			if err := client().post("/control/pipelines/"+args[0]+"/disable", nil, &out); err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
}

func newPipelineDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]interface{}
			if err := client().delete("/control/pipelines/"+args[0], &out); err != nil {
				return err
			}
			printJSON(out)
			return nil
		},
	}
}
