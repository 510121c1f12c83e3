package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/nghyane/proxypanel/internal/config"
	log "github.com/nghyane/proxypanel/internal/logging"
)

// BootstrapResult contains the result of bootstrapping the panel.
type BootstrapResult struct {
	Config         *config.Config
	ConfigFilePath string
	EnvFilePath    string
}

// Bootstrap loads the .env file and the YAML config. It should be called
// before any command that needs configuration.
func Bootstrap(configPath string) (*BootstrapResult, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	// Load environment variables from .env if present. Settings changed
	// through the API are written back there.
	envPath := filepath.Join(wd, ".env")
	if errLoad := godotenv.Load(envPath); errLoad != nil {
		if !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warnf("Failed to load .env file")
		}
	}

	if configPath == "" {
		configPath = filepath.Join(wd, "panel.yaml")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &BootstrapResult{
		Config:         cfg,
		ConfigFilePath: configPath,
		EnvFilePath:    envPath,
	}, nil
}
