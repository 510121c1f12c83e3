package watcher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/nghyane/proxypanel/internal/config"
)

// fileHash returns the hex sha256 of the file, or "" when unreadable.
func fileHash(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// buildConfigChangeDetails computes a redacted, human-readable list of
// config changes. Secrets are never printed.
func buildConfigChangeDetails(oldCfg, newCfg *config.Config) []string {
	changes := make([]string, 0, 16)
	if oldCfg == nil || newCfg == nil {
		return changes
	}

	if oldCfg.PanelPort != newCfg.PanelPort {
		changes = append(changes, fmt.Sprintf("panel-port: %d -> %d", oldCfg.PanelPort, newCfg.PanelPort))
	}
	if oldCfg.ProxyDir != newCfg.ProxyDir {
		changes = append(changes, fmt.Sprintf("proxy-dir: %s -> %s", oldCfg.ProxyDir, newCfg.ProxyDir))
	}
	if oldCfg.ProxyLog != newCfg.ProxyLog {
		changes = append(changes, fmt.Sprintf("proxy-log: %s -> %s", oldCfg.ProxyLog, newCfg.ProxyLog))
	}
	if oldCfg.ServiceName != newCfg.ServiceName {
		changes = append(changes, fmt.Sprintf("service-name: %s -> %s", oldCfg.ServiceName, newCfg.ServiceName))
	}
	if oldCfg.UpdateRepo != newCfg.UpdateRepo {
		changes = append(changes, fmt.Sprintf("update-repo: %s -> %s", oldCfg.UpdateRepo, newCfg.UpdateRepo))
	}
	if oldCfg.APIBase != newCfg.APIBase || oldCfg.APIPort != newCfg.APIPort {
		changes = append(changes, fmt.Sprintf("api endpoint: %s:%d -> %s:%d",
			oldCfg.APIBase, oldCfg.APIPort, newCfg.APIBase, newCfg.APIPort))
	}
	if oldCfg.IdleThresholdSeconds != newCfg.IdleThresholdSeconds {
		changes = append(changes, fmt.Sprintf("idle-threshold-seconds: %d -> %d",
			oldCfg.IdleThresholdSeconds, newCfg.IdleThresholdSeconds))
	}
	if oldCfg.AutoUpdateCheckInterval != newCfg.AutoUpdateCheckInterval {
		changes = append(changes, fmt.Sprintf("auto-update-check-interval: %d -> %d",
			oldCfg.AutoUpdateCheckInterval, newCfg.AutoUpdateCheckInterval))
	}
	if oldCfg.AutoUpdateEnabled != newCfg.AutoUpdateEnabled {
		changes = append(changes, fmt.Sprintf("auto-update-enabled: %t -> %t",
			oldCfg.AutoUpdateEnabled, newCfg.AutoUpdateEnabled))
	}
	if oldCfg.PricingInput != newCfg.PricingInput {
		changes = append(changes, fmt.Sprintf("pricing-input: %g -> %g", oldCfg.PricingInput, newCfg.PricingInput))
	}
	if oldCfg.PricingOutput != newCfg.PricingOutput {
		changes = append(changes, fmt.Sprintf("pricing-output: %g -> %g", oldCfg.PricingOutput, newCfg.PricingOutput))
	}
	if oldCfg.PricingCache != newCfg.PricingCache {
		changes = append(changes, fmt.Sprintf("pricing-cache: %g -> %g", oldCfg.PricingCache, newCfg.PricingCache))
	}
	if oldCfg.DataDir != newCfg.DataDir {
		changes = append(changes, fmt.Sprintf("data-dir: %s -> %s", oldCfg.DataDir, newCfg.DataDir))
	}
	if oldCfg.Debug != newCfg.Debug {
		changes = append(changes, fmt.Sprintf("debug: %t -> %t", oldCfg.Debug, newCfg.Debug))
	}
	if oldCfg.LoggingToFile != newCfg.LoggingToFile {
		changes = append(changes, fmt.Sprintf("logging-to-file: %t -> %t", oldCfg.LoggingToFile, newCfg.LoggingToFile))
	}

	// Secrets: report the transition, never the value.
	switch {
	case oldCfg.ManagementKey == "" && newCfg.ManagementKey != "":
		changes = append(changes, "management-key: added")
	case oldCfg.ManagementKey != "" && newCfg.ManagementKey == "":
		changes = append(changes, "management-key: removed")
	case oldCfg.ManagementKey != newCfg.ManagementKey:
		changes = append(changes, "management-key: updated")
	}
	switch {
	case oldCfg.HistoryDSN == "" && newCfg.HistoryDSN != "":
		changes = append(changes, "history-dsn: added")
	case oldCfg.HistoryDSN != "" && newCfg.HistoryDSN == "":
		changes = append(changes, "history-dsn: removed")
	case oldCfg.HistoryDSN != newCfg.HistoryDSN:
		changes = append(changes, "history-dsn: updated (redacted)")
	}

	return changes
}
