// Command flywheelctl is the control plane's operator CLI: pipeline,
// model, drift, and health inspection against a running flywheel-server.
package main

import (
	"os"

	"github.com/flywheel-ml/flywheel/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
