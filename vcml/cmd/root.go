// Package cmd provides the command-line interface of vcml.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vcml",
	Short: "vcml runs a virtual platform built from transaction-level models.",
	Long: `vcml elaborates a demo platform with a processor, a bus, a ROM and ` +
		`a RAM, runs it for a span of simulated time and executes debug ` +
		`commands on its components.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Exit handlers registered with atexit always run.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
