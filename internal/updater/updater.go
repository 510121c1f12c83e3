// Package updater checks for and applies releases of the managed proxy.
package updater

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/nghyane/proxypanel/internal/cache"
	"github.com/nghyane/proxypanel/internal/config"
	"github.com/nghyane/proxypanel/internal/history"
	log "github.com/nghyane/proxypanel/internal/logging"
	"github.com/nghyane/proxypanel/internal/servicectl"
)

var (
	// ErrUpdateInProgress is returned when an update is already running.
	ErrUpdateInProgress = errors.New("update already in progress")

	// ErrAlreadyCurrent is returned when no newer release exists and the
	// update was not forced.
	ErrAlreadyCurrent = errors.New("already running the latest release")
)

const (
	updateCheckCacheKey = "update_check"
	updateCheckCacheTTL = 60 * time.Second
)

// UpdateCheck is the outcome of comparing local and released versions.
type UpdateCheck struct {
	CurrentVersion  string    `json:"current_version"`
	LatestVersion   string    `json:"latest_version"`
	UpdateAvailable bool      `json:"update_available"`
	CheckedAt       time.Time `json:"checked_at"`
	Error           string    `json:"error,omitempty"`
}

// runFunc executes a command in a working directory and returns combined
// output. Swappable in tests.
type runFunc func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// serviceController is the slice of servicectl the updater needs.
type serviceController interface {
	Stop(ctx context.Context) (servicectl.Status, error)
	Start(ctx context.Context) (servicectl.Status, error)
}

// Updater owns version resolution, the idle gate, and update execution.
type Updater struct {
	cfg     *config.Config
	cache   *cache.Cache
	service serviceController
	hist    history.Backend

	// lastSeen reports when the proxy last served a counted request.
	lastSeen func() (time.Time, bool)

	run      runFunc
	now      func() time.Time
	releases *releaseClient

	mu            sync.Mutex
	inProgress    bool
	idleThreshold time.Duration
}

// New wires an updater. hist may be nil when history is disabled.
func New(cfg *config.Config, c *cache.Cache, service serviceController, hist history.Backend, lastSeen func() (time.Time, bool)) *Updater {
	return &Updater{
		cfg:           cfg,
		cache:         c,
		service:       service,
		hist:          hist,
		lastSeen:      lastSeen,
		now:           time.Now,
		releases:      newReleaseClient(cfg.UpdateRepo, c),
		idleThreshold: time.Duration(cfg.IdleThresholdSeconds) * time.Second,
		run: func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
			cmd := exec.CommandContext(ctx, name, args...)
			cmd.Dir = dir
			return cmd.CombinedOutput()
		},
	}
}

// SetIdleThreshold adjusts the idle gate at runtime.
func (u *Updater) SetIdleThreshold(d time.Duration) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.idleThreshold = d
}

// IdleThreshold returns the current idle gate duration.
func (u *Updater) IdleThreshold() time.Duration {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.idleThreshold
}

// IsIdle reports whether the proxy has been quiet long enough to update.
// With no counted request on record the system counts as idle.
func (u *Updater) IsIdle() bool {
	last, ok := u.lastSeen()
	if !ok {
		return true
	}
	return u.now().Sub(last) > u.IdleThreshold()
}

// InProgress reports whether an update is currently running.
func (u *Updater) InProgress() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.inProgress
}

func (u *Updater) begin() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.inProgress {
		return ErrUpdateInProgress
	}
	u.inProgress = true
	return nil
}

func (u *Updater) end() {
	u.mu.Lock()
	u.inProgress = false
	u.mu.Unlock()
}

// CheckForUpdates compares the installed version against the latest
// release. Results are cached briefly unless useCache is false.
func (u *Updater) CheckForUpdates(ctx context.Context, useCache bool) UpdateCheck {
	if useCache {
		if cached, ok := cache.GetTyped[UpdateCheck](u.cache, updateCheckCacheKey, updateCheckCacheTTL); ok {
			return cached
		}
	}

	check := UpdateCheck{
		CurrentVersion: u.LocalVersion(ctx),
		CheckedAt:      u.now(),
	}
	release, err := u.releases.Latest(ctx)
	if err != nil {
		check.Error = err.Error()
		log.WithError(err).Warnf("Release lookup failed for %s", u.cfg.UpdateRepo)
	} else {
		check.LatestVersion = release.TagName
		check.UpdateAvailable = release.TagName != "" && release.TagName != check.CurrentVersion
	}

	u.cache.Set(updateCheckCacheKey, check)
	return check
}

// PerformUpdate stops the proxy, pulls and rebuilds it, and restarts it.
// Only one update may run at a time. When force is false the update is
// skipped unless a newer release exists.
func (u *Updater) PerformUpdate(ctx context.Context, force bool) (history.UpdateEvent, error) {
	if err := u.begin(); err != nil {
		return history.UpdateEvent{}, err
	}
	defer u.end()

	check := u.CheckForUpdates(ctx, false)
	if !force && !check.UpdateAvailable {
		return history.UpdateEvent{}, ErrAlreadyCurrent
	}

	event := history.UpdateEvent{
		Version:    check.LatestVersion,
		Previous:   check.CurrentVersion,
		OccurredAt: u.now(),
	}
	if event.Version == "" {
		event.Version = check.CurrentVersion
	}

	err := u.applyUpdate(ctx)
	if err != nil {
		event.Detail = err.Error()
		log.WithError(err).Errorf("Update to %s failed", event.Version)
	} else {
		event.Success = true
		log.Infof("Updated proxy from %s to %s", event.Previous, event.Version)
	}

	u.invalidateVersionCaches()
	u.recordEvent(event)
	if err != nil {
		return event, err
	}
	return event, nil
}

// applyUpdate performs the stop, pull, build, start sequence. The service
// is restarted even when an intermediate step fails so a broken update
// does not leave the proxy down with its old binary intact.
func (u *Updater) applyUpdate(ctx context.Context) error {
	if _, err := u.service.Stop(ctx); err != nil {
		return fmt.Errorf("stop service: %w", err)
	}

	stepErr := u.pullAndBuild(ctx)

	status, startErr := u.service.Start(ctx)
	if stepErr != nil {
		return stepErr
	}
	if startErr != nil {
		return fmt.Errorf("start service: %w", startErr)
	}
	if !status.Active {
		return fmt.Errorf("service %s did not come back up (state %s)", u.cfg.ServiceName, status.State)
	}
	return nil
}

func (u *Updater) pullAndBuild(ctx context.Context) error {
	if out, err := u.run(ctx, u.cfg.ProxyDir, "git", "pull", "--ff-only"); err != nil {
		return fmt.Errorf("git pull: %w: %s", err, firstLine(out))
	}
	if out, err := u.run(ctx, u.cfg.ProxyDir, "go", "build", "-o", u.cfg.ProxyBinary, "."); err != nil {
		return fmt.Errorf("build: %w: %s", err, firstLine(out))
	}
	return nil
}

func (u *Updater) recordEvent(event history.UpdateEvent) {
	if u.hist == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := u.hist.RecordUpdate(ctx, event); err != nil {
		log.WithError(err).Warnf("Failed to record update event")
	}
}

// RunAutoUpdate polls for releases and applies them while the proxy is
// idle. It returns when stop is closed.
func (u *Updater) RunAutoUpdate(interval time.Duration, enabled func() bool, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !enabled() {
				continue
			}
			check := u.CheckForUpdates(context.Background(), true)
			if !check.UpdateAvailable {
				continue
			}
			if !u.IsIdle() {
				log.Debugf("Update %s available but proxy is busy, deferring", check.LatestVersion)
				continue
			}
			if _, err := u.PerformUpdate(context.Background(), false); err != nil &&
				!errors.Is(err, ErrUpdateInProgress) && !errors.Is(err, ErrAlreadyCurrent) {
				log.WithError(err).Errorf("Auto-update failed")
			}
		case <-stop:
			return
		}
	}
}

func firstLine(out []byte) string {
	for i, b := range out {
		if b == '\n' {
			return string(out[:i])
		}
	}
	return string(out)
}
