// Package config provides configuration management for the panel.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nghyane/proxypanel/internal/cli/env"
)

// EnvPrefix namespaces the panel's environment overrides.
const EnvPrefix = "CLIPROXY_PANEL_"

// Config is the panel's full configuration surface. Values come from the
// YAML config file, then the .env file, then process environment variables,
// later sources winning.
type Config struct {
	// ProxyDir is the checkout directory of the managed proxy.
	ProxyDir string `yaml:"proxy-dir" json:"proxy-dir"`

	// ProxyConfig is the proxy's YAML config file path.
	ProxyConfig string `yaml:"proxy-config" json:"proxy-config"`

	// ProxyBinary is the proxy executable path, rebuilt on update.
	ProxyBinary string `yaml:"proxy-binary" json:"proxy-binary"`

	// ProxyLog is the access log the tracker tails.
	ProxyLog string `yaml:"proxy-log" json:"proxy-log"`

	// ProxyStderrLog supplements ProxyLog in the log view when the main
	// log is quiet.
	ProxyStderrLog string `yaml:"proxy-stderr-log" json:"proxy-stderr-log"`

	// ServiceName is the systemd unit controlling the proxy.
	ServiceName string `yaml:"service-name" json:"service-name"`

	// UpdateRepo is the owner/name GitHub slug polled for releases.
	UpdateRepo string `yaml:"update-repo" json:"update-repo"`

	// PanelPort is the panel's own HTTP port.
	PanelPort int `yaml:"panel-port" json:"panel-port"`

	// APIBase and APIPort locate the proxy's management endpoint.
	APIBase string `yaml:"api-base" json:"api-base"`
	APIPort int    `yaml:"api-port" json:"api-port"`

	// ManagementKey is the shared secret sent to the management endpoint.
	ManagementKey string `yaml:"management-key,omitempty" json:"-"`

	// IdleThresholdSeconds is how long without a counted request the
	// system is considered idle. Minimum 10.
	IdleThresholdSeconds int `yaml:"idle-threshold-seconds" json:"idle-threshold-seconds"`

	// AutoUpdateCheckInterval is the auto-update poll cadence in seconds.
	// Minimum 60.
	AutoUpdateCheckInterval int `yaml:"auto-update-check-interval" json:"auto-update-check-interval"`

	// AutoUpdateEnabled gates the auto-update worker.
	AutoUpdateEnabled bool `yaml:"auto-update-enabled" json:"auto-update-enabled"`

	// PricingInput, PricingOutput, PricingCache are dollars per million
	// tokens. Zero disables cost reporting.
	PricingInput  float64 `yaml:"pricing-input" json:"pricing-input"`
	PricingOutput float64 `yaml:"pricing-output" json:"pricing-output"`
	PricingCache  float64 `yaml:"pricing-cache" json:"pricing-cache"`

	// DataDir holds the panel's durable state files.
	DataDir string `yaml:"data-dir" json:"data-dir"`

	// HistoryDSN selects the update-history backend
	// (sqlite://path or postgres://...). Empty disables history.
	HistoryDSN string `yaml:"history-dsn,omitempty" json:"history-dsn,omitempty"`

	Debug         bool `yaml:"debug" json:"debug"`
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`
}

// NewDefaultConfig returns the defaults matching a standard proxy install.
func NewDefaultConfig() *Config {
	return &Config{
		ProxyDir:                "/opt/CLIProxyAPI",
		ProxyConfig:             "/opt/CLIProxyAPI/config.yaml",
		ProxyBinary:             "/opt/CLIProxyAPI/cliproxy",
		ProxyLog:                "/opt/CLIProxyAPI/logs/main.log",
		ProxyStderrLog:          "/var/log/cliproxy/stderr.log",
		ServiceName:             "cliproxy",
		UpdateRepo:              "router-for-me/CLIProxyAPI",
		PanelPort:               8080,
		APIBase:                 "http://127.0.0.1",
		APIPort:                 8317,
		IdleThresholdSeconds:    1800,
		AutoUpdateCheckInterval: 300,
		AutoUpdateEnabled:       true,
		DataDir:                 "data",
	}
}

// LoadConfig reads the YAML file at path over the defaults. A missing file
// is not an error; env overrides and clamping are applied either way.
func LoadConfig(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.Sanitize()
	return cfg, nil
}

// applyEnvOverrides layers CLIPROXY_PANEL_* environment variables over cfg.
func applyEnvOverrides(cfg *Config) {
	if v, ok := env.LookupEnv(EnvPrefix + "PROXY_DIR"); ok {
		cfg.ProxyDir = v
	}
	if v, ok := env.LookupEnv(EnvPrefix + "PROXY_CONFIG"); ok {
		cfg.ProxyConfig = v
	}
	if v, ok := env.LookupEnv(EnvPrefix + "PROXY_BINARY"); ok {
		cfg.ProxyBinary = v
	}
	if v, ok := env.LookupEnv(EnvPrefix + "PROXY_LOG"); ok {
		cfg.ProxyLog = v
	}
	if v, ok := env.LookupEnv(EnvPrefix + "PROXY_STDERR_LOG"); ok {
		cfg.ProxyStderrLog = v
	}
	if v, ok := env.LookupEnv(EnvPrefix + "SERVICE_NAME"); ok {
		cfg.ServiceName = v
	}
	if v, ok := env.LookupEnv(EnvPrefix + "UPDATE_REPO"); ok {
		cfg.UpdateRepo = v
	}
	if v, ok := env.LookupEnvInt(EnvPrefix + "PANEL_PORT"); ok {
		cfg.PanelPort = v
	}
	if v, ok := env.LookupEnv(EnvPrefix + "API_BASE"); ok {
		cfg.APIBase = v
	}
	if v, ok := env.LookupEnvInt(EnvPrefix + "API_PORT"); ok {
		cfg.APIPort = v
	}
	if v, ok := env.LookupEnv(EnvPrefix + "MANAGEMENT_KEY"); ok {
		cfg.ManagementKey = v
	}
	if v, ok := env.LookupEnvInt(EnvPrefix + "IDLE_THRESHOLD_SECONDS"); ok {
		cfg.IdleThresholdSeconds = v
	}
	if v, ok := env.LookupEnvInt(EnvPrefix + "AUTO_UPDATE_CHECK_INTERVAL"); ok {
		cfg.AutoUpdateCheckInterval = v
	}
	if v, ok := env.LookupEnvBool(EnvPrefix + "AUTO_UPDATE_ENABLED"); ok {
		cfg.AutoUpdateEnabled = v
	}
	if v, ok := env.LookupEnvFloat(EnvPrefix + "PRICING_INPUT"); ok {
		cfg.PricingInput = v
	}
	if v, ok := env.LookupEnvFloat(EnvPrefix + "PRICING_OUTPUT"); ok {
		cfg.PricingOutput = v
	}
	if v, ok := env.LookupEnvFloat(EnvPrefix + "PRICING_CACHE"); ok {
		cfg.PricingCache = v
	}
	if v, ok := env.LookupEnv(EnvPrefix + "DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if v, ok := env.LookupEnv(EnvPrefix + "HISTORY_DSN"); ok {
		cfg.HistoryDSN = v
	}
	if v, ok := env.LookupEnvBool(EnvPrefix + "DEBUG"); ok {
		cfg.Debug = v
	}
	if v, ok := env.LookupEnvBool(EnvPrefix + "LOGGING_TO_FILE"); ok {
		cfg.LoggingToFile = v
	}
}

// Sanitize clamps values to the supported ranges.
func (c *Config) Sanitize() {
	if c.IdleThresholdSeconds < 10 {
		c.IdleThresholdSeconds = 10
	}
	if c.AutoUpdateCheckInterval < 60 {
		c.AutoUpdateCheckInterval = 60
	}
	if c.PanelPort <= 0 || c.PanelPort > 65535 {
		c.PanelPort = 8080
	}
	if c.PricingInput < 0 {
		c.PricingInput = 0
	}
	if c.PricingOutput < 0 {
		c.PricingOutput = 0
	}
	if c.PricingCache < 0 {
		c.PricingCache = 0
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
}

// UsageSnapshotPath is the durable fallback copy of the last usage snapshot.
func (c *Config) UsageSnapshotPath() string {
	return filepath.Join(c.DataDir, "usage_snapshot.json")
}

// LogStatsPath is the tracker's cursor checkpoint.
func (c *Config) LogStatsPath() string {
	return filepath.Join(c.DataDir, "log_stats.json")
}

// PersistentStatsPath is the cumulative counters file.
func (c *Config) PersistentStatsPath() string {
	return filepath.Join(c.DataDir, "persistent_stats.json")
}

// LogDir is where the panel's own rotating log lives.
func (c *Config) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}
