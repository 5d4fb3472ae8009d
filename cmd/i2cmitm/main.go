package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "i2cmitm",
		Short: "Intercepting proxy for I2C driver sessions",
		Long: `i2cmitm sits between I2C clients and the bus driver. Sessions to the
BQ24193 charger are intercepted so that the configured charge voltage is
programmed instead of the stock value; everything else passes through.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSelftestCmd())
	rootCmd.AddCommand(newVoltageCmd())
	rootCmd.AddCommand(newDecodeCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "i2cmitm %s (%s)\n", version, commit)
			return nil
		},
	}
}
