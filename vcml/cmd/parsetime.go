package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slahiruk/vcml/sim/timing"
)

var parseTimeCmd = &cobra.Command{
	Use:   "parse-time <value>",
	Short: "Print a time value in picoseconds",
	Long: "parse-time reads a time the way properties do, for example 10ns, " +
		"1.5us or a raw picosecond count, and prints it in picoseconds.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := timing.ParseTime(args[0])
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d ps (%s)\n", uint64(t), t)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseTimeCmd)
}
