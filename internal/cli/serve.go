package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nghyane/proxypanel/internal/api"
	"github.com/nghyane/proxypanel/internal/config"
	"github.com/nghyane/proxypanel/internal/logging"
	log "github.com/nghyane/proxypanel/internal/logging"
	"github.com/nghyane/proxypanel/internal/panel"
	"github.com/nghyane/proxypanel/internal/watcher"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the panel server",
	Long: `Start the panel HTTP server.

It loads the configuration, starts the background workers that track the
proxy's logs and usage, and serves the dashboard API.`,
	Run: func(c *cobra.Command, args []string) {
		result, err := Bootstrap(cfgFile)
		if err != nil {
			log.Fatalf("Failed to bootstrap: %v", err)
		}

		cfg := result.Config
		if servePort != 0 && servePort != 8080 {
			cfg.PanelPort = servePort
		}

		logging.SetDebug(cfg.Debug)
		if err := logging.ConfigureLogOutput(cfg.LoggingToFile, cfg.LogDir()); err != nil {
			log.Fatalf("Failed to configure log output: %v", err)
		}

		runServer(cfg, result)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "panel port")
	rootCmd.AddCommand(serveCmd)
}

func runServer(cfg *config.Config, result *BootstrapResult) {
	core := panel.New(cfg)

	w := watcher.New(result.ConfigFilePath, cfg)
	w.OnReload(func(_, current *config.Config) {
		core.ApplyConfig(current)
	})
	if err := w.Start(); err != nil {
		log.WithError(err).Warnf("Config watcher disabled")
	} else {
		core.Watcher = w
	}

	core.StartWorkers()

	router := api.NewRouter(cfg, core, result.EnvFilePath)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.PanelPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Panel listening on :%d (proxy unit %s)", cfg.PanelPort, cfg.ServiceName)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Infof("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Warnf("HTTP shutdown did not complete cleanly")
	}
	core.Shutdown()
}
