// Package cli provides the Cobra-based command-line interface for the panel.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "proxypanel",
	Short: "Telemetry and control panel for a CLIProxyAPI deployment",
	Long: `proxypanel monitors an externally-running CLIProxyAPI service:
it tails its access log, reconciles usage statistics from its management
API, controls its systemd unit, and applies releases while it is idle.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default panel.yaml in the working directory)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
