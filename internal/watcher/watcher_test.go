package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nghyane/proxypanel/internal/config"
)

func TestFileHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel.yaml")
	if got := fileHash(path); got != "" {
		t.Errorf("missing file should hash to empty, got %q", got)
	}

	if err := os.WriteFile(path, []byte("panel-port: 9000\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	first := fileHash(path)
	if first == "" {
		t.Fatalf("expected a hash for existing file")
	}
	if second := fileHash(path); second != first {
		t.Errorf("hash not stable: %q vs %q", first, second)
	}

	if err := os.WriteFile(path, []byte("panel-port: 9001\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if changed := fileHash(path); changed == first {
		t.Errorf("hash should change with content")
	}
}

func TestBuildConfigChangeDetailsRedactsSecrets(t *testing.T) {
	oldCfg := config.NewDefaultConfig()
	newCfg := config.NewDefaultConfig()
	newCfg.IdleThresholdSeconds = 900
	newCfg.PricingInput = 1.25
	newCfg.ManagementKey = "super-secret"
	newCfg.HistoryDSN = "postgres://user:pass@db/panel"

	changes := buildConfigChangeDetails(oldCfg, newCfg)
	joined := strings.Join(changes, "\n")

	if !strings.Contains(joined, "idle-threshold-seconds: 1800 -> 900") {
		t.Errorf("missing idle threshold change:\n%s", joined)
	}
	if !strings.Contains(joined, "pricing-input: 0 -> 1.25") {
		t.Errorf("missing pricing change:\n%s", joined)
	}
	if !strings.Contains(joined, "management-key: added") {
		t.Errorf("missing management key transition:\n%s", joined)
	}
	if strings.Contains(joined, "super-secret") || strings.Contains(joined, "user:pass") {
		t.Errorf("secret leaked into change details:\n%s", joined)
	}
}

func TestBuildConfigChangeDetailsNoChanges(t *testing.T) {
	cfg := config.NewDefaultConfig()
	if changes := buildConfigChangeDetails(cfg, config.NewDefaultConfig()); len(changes) != 0 {
		t.Errorf("identical configs should diff empty, got %v", changes)
	}
}

func TestReloadNotifiesOnEffectiveChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel.yaml")
	if err := os.WriteFile(path, []byte("idle-threshold-seconds: 600\n"), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	initial, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	w := New(path, initial)

	var gotOld, gotNew *config.Config
	w.OnReload(func(old, current *config.Config) {
		gotOld, gotNew = old, current
	})

	// Same content: hash short-circuits, no callback.
	w.reload()
	if gotNew != nil {
		t.Fatalf("unchanged file should not trigger reload callbacks")
	}

	if err := os.WriteFile(path, []byte("idle-threshold-seconds: 1200\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	w.reload()
	if gotNew == nil {
		t.Fatalf("changed file should trigger reload callbacks")
	}
	if gotOld.IdleThresholdSeconds != 600 || gotNew.IdleThresholdSeconds != 1200 {
		t.Errorf("callback got old=%d new=%d", gotOld.IdleThresholdSeconds, gotNew.IdleThresholdSeconds)
	}
	if w.Current().IdleThresholdSeconds != 1200 {
		t.Errorf("Current() not updated")
	}
}
