package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nghyane/proxypanel/internal/cache"
	log "github.com/nghyane/proxypanel/internal/logging"
	"github.com/nghyane/proxypanel/internal/servicectl"
)

var serviceCmd = &cobra.Command{
	Use:       "service [start|stop|restart|status]",
	Short:     "Control the managed proxy's systemd unit",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"start", "stop", "restart", "status"},
	Run: func(cmd *cobra.Command, args []string) {
		result, err := Bootstrap(cfgFile)
		if err != nil {
			log.Fatalf("Failed to bootstrap: %v", err)
		}

		ctrl := servicectl.New(result.Config.ServiceName, cache.New())
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		action := args[0]
		if action == "status" {
			printStatus(ctrl.Status(ctx))
			return
		}

		status, err := ctrl.Apply(ctx, action)
		if err != nil {
			log.Fatalf("Service %s failed: %v", action, err)
		}
		printStatus(status)
	},
}

func printStatus(status servicectl.Status) {
	fmt.Printf("State: %s\n", status.State)
	if status.MainPID != 0 {
		fmt.Printf("Main PID: %d\n", status.MainPID)
	}
}

func init() {
	rootCmd.AddCommand(serviceCmd)
}
