// Package main provides the runci CLI, a local front-end for the
// pipeline execution engine.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "runci",
	Short: "runci - a minimal CI pipeline execution engine",
	Long: `runci executes declarative CI pipeline documents: trigger rules
gate dispatch, jobs run concurrently, and the steps inside each job run
sequentially with fail-fast semantics.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
