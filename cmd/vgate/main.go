package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vgate/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦  ╦┌─┐┌─┐┌┬┐┌─┐
  ╚╗╔╝│ ┬├─┤ │ ├┤
   ╚╝ └─┘┴ ┴ ┴ └─┘
`

func newRootCmd() *cobra.Command {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "vgate",
		Short: "A real-time gateway bot client",
		Long: `vgate keeps an authenticated gateway connection open and runs
text commands from the messages it receives.

  • Identify and resume handshake
  • Heartbeats with dead connection detection
  • Bounded reconnect with linear backoff
  • Health, status and Prometheus metrics endpoints`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				errors.DisableColors()
			}
		},
	}
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		runCmd(),
		configCmd(),
		tokenCmd(),
		versionCmd(),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}
