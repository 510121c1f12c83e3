package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.PanelPort != 8080 || cfg.ServiceName != "cliproxy" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.IdleThresholdSeconds != 1800 {
		t.Errorf("unexpected default idle threshold: %d", cfg.IdleThresholdSeconds)
	}
}

func TestLoadConfigYAMLAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel.yaml")
	content := "panel-port: 9000\nidle-threshold-seconds: 120\npricing-input: 2.5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvPrefix+"IDLE_THRESHOLD_SECONDS", "600")
	t.Setenv(EnvPrefix+"MANAGEMENT_KEY", "hunter2")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PanelPort != 9000 {
		t.Errorf("yaml value not applied: %d", cfg.PanelPort)
	}
	if cfg.IdleThresholdSeconds != 600 {
		t.Errorf("env should outrank yaml: %d", cfg.IdleThresholdSeconds)
	}
	if cfg.PricingInput != 2.5 {
		t.Errorf("pricing not applied: %f", cfg.PricingInput)
	}
	if cfg.ManagementKey != "hunter2" {
		t.Errorf("management key not applied")
	}
}

func TestSanitizeClampsRanges(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.IdleThresholdSeconds = 3
	cfg.AutoUpdateCheckInterval = 5
	cfg.PricingInput = -1
	cfg.PanelPort = -80

	cfg.Sanitize()
	if cfg.IdleThresholdSeconds != 10 {
		t.Errorf("idle threshold floor is 10, got %d", cfg.IdleThresholdSeconds)
	}
	if cfg.AutoUpdateCheckInterval != 60 {
		t.Errorf("check interval floor is 60, got %d", cfg.AutoUpdateCheckInterval)
	}
	if cfg.PricingInput != 0 {
		t.Errorf("negative pricing should clamp to zero, got %f", cfg.PricingInput)
	}
	if cfg.PanelPort != 8080 {
		t.Errorf("invalid port should reset to default, got %d", cfg.PanelPort)
	}
}

func TestUpdateDotenvPreservesUnrelatedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	seed := "# panel settings\nOTHER_TOOL_FLAG=1\n" + EnvPrefix + "PRICING_INPUT=1.0\n"
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatalf("seed .env: %v", err)
	}

	err := UpdateDotenv(path, map[string]string{
		"pricing_input":          "3.5",
		"idle_threshold_seconds": "900",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "# panel settings") || !strings.Contains(content, "OTHER_TOOL_FLAG=1") {
		t.Errorf("unrelated lines dropped:\n%s", content)
	}
	if !strings.Contains(content, EnvPrefix+"PRICING_INPUT=3.5") {
		t.Errorf("existing key not rewritten:\n%s", content)
	}
	if !strings.Contains(content, EnvPrefix+"IDLE_THRESHOLD_SECONDS=900") {
		t.Errorf("new key not appended:\n%s", content)
	}
	if strings.Count(content, EnvPrefix+"PRICING_INPUT=") != 1 {
		t.Errorf("duplicate key written:\n%s", content)
	}
}

func TestFormatEnvValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{true, "true"},
		{false, "false"},
		{3.5, "3.5"},
		{0.0, "0"},
		{900, "900"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := FormatEnvValue(tt.in); got != tt.want {
			t.Errorf("FormatEnvValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
