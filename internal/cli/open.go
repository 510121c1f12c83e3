package cli

import (
	"fmt"

	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"

	log "github.com/nghyane/proxypanel/internal/logging"
)

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Open the panel dashboard in a browser",
	Run: func(cmd *cobra.Command, args []string) {
		result, err := Bootstrap(cfgFile)
		if err != nil {
			log.Fatalf("Failed to bootstrap: %v", err)
		}

		url := fmt.Sprintf("http://127.0.0.1:%d", result.Config.PanelPort)
		if err := open.Run(url); err != nil {
			log.Fatalf("Failed to open %s: %v", url, err)
		}
	},
}

func init() {
	rootCmd.AddCommand(openCmd)
}
