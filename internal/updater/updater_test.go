package updater

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nghyane/proxypanel/internal/cache"
	"github.com/nghyane/proxypanel/internal/config"
	"github.com/nghyane/proxypanel/internal/servicectl"
)

type fakeService struct {
	stopCalls  int
	startCalls int
	startState string
	stopErr    error
	startErr   error
}

func (f *fakeService) Stop(context.Context) (servicectl.Status, error) {
	f.stopCalls++
	return servicectl.Status{State: "inactive"}, f.stopErr
}

func (f *fakeService) Start(context.Context) (servicectl.Status, error) {
	f.startCalls++
	state := f.startState
	if state == "" {
		state = "active"
	}
	return servicectl.Status{State: state, Active: state == "active"}, f.startErr
}

func newTestUpdater(t *testing.T, lastSeen func() (time.Time, bool)) (*Updater, *fakeService) {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.ProxyDir = t.TempDir()
	cfg.ProxyBinary = filepath.Join(cfg.ProxyDir, "cliproxy")
	if lastSeen == nil {
		lastSeen = func() (time.Time, bool) { return time.Time{}, false }
	}
	svc := &fakeService{}
	u := New(cfg, cache.New(), svc, nil, lastSeen)
	u.run = func(context.Context, string, string, ...string) ([]byte, error) { return nil, nil }
	return u, svc
}

func TestIsIdleBoundary(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	threshold := 1800 * time.Second

	var last time.Time
	seen := true
	u, _ := newTestUpdater(t, func() (time.Time, bool) { return last, seen })
	u.now = func() time.Time { return now }
	u.SetIdleThreshold(threshold)

	last = now.Add(-(threshold + time.Second))
	if !u.IsIdle() {
		t.Errorf("last request just past the threshold should be idle")
	}

	last = now.Add(-(threshold - time.Second))
	if u.IsIdle() {
		t.Errorf("last request within the threshold should not be idle")
	}

	seen = false
	if !u.IsIdle() {
		t.Errorf("no counted request on record should be idle")
	}
}

func TestLocalVersionPrefersVersionFile(t *testing.T) {
	u, _ := newTestUpdater(t, nil)
	if err := os.WriteFile(filepath.Join(u.cfg.ProxyDir, "VERSION"), []byte("v2.3.4\n"), 0o644); err != nil {
		t.Fatalf("write VERSION: %v", err)
	}
	u.run = func(context.Context, string, string, ...string) ([]byte, error) {
		t.Errorf("git should not run when VERSION exists")
		return nil, nil
	}
	if got := u.LocalVersion(context.Background()); got != "v2.3.4" {
		t.Errorf("LocalVersion = %q, want v2.3.4", got)
	}
}

func TestLocalVersionFallsBackToGit(t *testing.T) {
	u, _ := newTestUpdater(t, nil)
	u.run = func(_ context.Context, _ string, name string, args ...string) ([]byte, error) {
		if name == "git" && args[0] == "describe" {
			return nil, fmt.Errorf("no tags")
		}
		if name == "git" && args[0] == "rev-parse" {
			return []byte("abc1234\n"), nil
		}
		return nil, fmt.Errorf("unexpected command %s %v", name, args)
	}
	if got := u.LocalVersion(context.Background()); got != "abc1234" {
		t.Errorf("LocalVersion = %q, want abc1234", got)
	}
}

func TestCheckForUpdatesUsesReleaseAndCache(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/repos/router-for-me/CLIProxyAPI/releases/latest" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"tag_name":"v9.9.9","name":"v9.9.9"}`)
	}))
	defer server.Close()

	u, _ := newTestUpdater(t, nil)
	u.releases.baseURL = server.URL
	if err := os.WriteFile(filepath.Join(u.cfg.ProxyDir, "VERSION"), []byte("v1.0.0"), 0o644); err != nil {
		t.Fatalf("write VERSION: %v", err)
	}

	check := u.CheckForUpdates(context.Background(), false)
	if check.CurrentVersion != "v1.0.0" || check.LatestVersion != "v9.9.9" {
		t.Fatalf("unexpected check: %+v", check)
	}
	if !check.UpdateAvailable {
		t.Errorf("update should be available")
	}

	again := u.CheckForUpdates(context.Background(), true)
	if hits.Load() != 1 {
		t.Errorf("cached check should not re-hit the release API, got %d hits", hits.Load())
	}
	if again.LatestVersion != "v9.9.9" {
		t.Errorf("cached check lost data: %+v", again)
	}
}

func TestCheckForUpdatesSameVersionNotAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"tag_name":"v1.0.0"}`)
	}))
	defer server.Close()

	u, _ := newTestUpdater(t, nil)
	u.releases.baseURL = server.URL
	if err := os.WriteFile(filepath.Join(u.cfg.ProxyDir, "VERSION"), []byte("v1.0.0"), 0o644); err != nil {
		t.Fatalf("write VERSION: %v", err)
	}

	if check := u.CheckForUpdates(context.Background(), false); check.UpdateAvailable {
		t.Errorf("matching versions should not flag an update: %+v", check)
	}
}

func TestPerformUpdateStopsBuildsAndStarts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"tag_name":"v2.0.0"}`)
	}))
	defer server.Close()

	u, svc := newTestUpdater(t, nil)
	u.releases.baseURL = server.URL
	if err := os.WriteFile(filepath.Join(u.cfg.ProxyDir, "VERSION"), []byte("v1.0.0"), 0o644); err != nil {
		t.Fatalf("write VERSION: %v", err)
	}

	var commands []string
	u.run = func(_ context.Context, _ string, name string, args ...string) ([]byte, error) {
		commands = append(commands, name+" "+args[0])
		return nil, nil
	}

	event, err := u.PerformUpdate(context.Background(), false)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !event.Success || event.Version != "v2.0.0" || event.Previous != "v1.0.0" {
		t.Errorf("unexpected event: %+v", event)
	}
	if svc.stopCalls != 1 || svc.startCalls != 1 {
		t.Errorf("service calls: stop=%d start=%d", svc.stopCalls, svc.startCalls)
	}
	if len(commands) != 2 || commands[0] != "git pull" || commands[1] != "go build" {
		t.Errorf("unexpected command sequence: %v", commands)
	}
	if u.InProgress() {
		t.Errorf("in-progress flag not cleared")
	}
}

func TestPerformUpdateSkipsWhenCurrent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"tag_name":"v1.0.0"}`)
	}))
	defer server.Close()

	u, svc := newTestUpdater(t, nil)
	u.releases.baseURL = server.URL
	if err := os.WriteFile(filepath.Join(u.cfg.ProxyDir, "VERSION"), []byte("v1.0.0"), 0o644); err != nil {
		t.Fatalf("write VERSION: %v", err)
	}

	if _, err := u.PerformUpdate(context.Background(), false); err != ErrAlreadyCurrent {
		t.Fatalf("expected ErrAlreadyCurrent, got %v", err)
	}
	if svc.stopCalls != 0 {
		t.Errorf("service should not be touched when already current")
	}
}

func TestPerformUpdateRejectsConcurrent(t *testing.T) {
	u, _ := newTestUpdater(t, nil)
	if err := u.begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer u.end()

	if _, err := u.PerformUpdate(context.Background(), true); err != ErrUpdateInProgress {
		t.Fatalf("expected ErrUpdateInProgress, got %v", err)
	}
}

func TestPerformUpdateBuildFailureRestartsService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"tag_name":"v2.0.0"}`)
	}))
	defer server.Close()

	u, svc := newTestUpdater(t, nil)
	u.releases.baseURL = server.URL
	if err := os.WriteFile(filepath.Join(u.cfg.ProxyDir, "VERSION"), []byte("v1.0.0"), 0o644); err != nil {
		t.Fatalf("write VERSION: %v", err)
	}
	u.run = func(_ context.Context, _ string, name string, _ ...string) ([]byte, error) {
		if name == "go" {
			return []byte("compile error\n"), fmt.Errorf("exit status 1")
		}
		return nil, nil
	}

	event, err := u.PerformUpdate(context.Background(), false)
	if err == nil {
		t.Fatalf("expected build failure")
	}
	if event.Success {
		t.Errorf("failed update recorded as success")
	}
	if svc.startCalls != 1 {
		t.Errorf("service should be restarted after a failed build, start calls = %d", svc.startCalls)
	}
}
