package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stealthybif/dcan-bold-processing/internal/spec"
)

var rootCmd = &cobra.Command{
	Use:   "dcanbold",
	Short: "dcanbold wraps the compiled DCAN signal-processing engine",
	Long: `dcanbold wraps the compiled DCAN signal-processing engine. It runs in
three modes:

  setup:    creates white matter and ventricular masks for regression;
            must be run prior to task runs.
  task:     runs regressions on a given task/fmri and outputs a corrected
            dtseries along with motion numbers.
  teardown: concatenates resting-state runs into a single dtseries.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = spec.Version
	rootCmd.AddCommand(runCmd)
}
