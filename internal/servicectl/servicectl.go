// Package servicectl controls the managed proxy's systemd unit.
package servicectl

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/nghyane/proxypanel/internal/cache"
	log "github.com/nghyane/proxypanel/internal/logging"
)

const (
	statusCacheKey = "service_status"
	statusCacheTTL = 1 * time.Second

	// settleDelay gives systemd time to transition the unit before the
	// status is re-read.
	settleDelay = 2 * time.Second
)

// Status describes the unit's current state.
type Status struct {
	Active  bool   `json:"active"`
	State   string `json:"state"`
	MainPID int    `json:"main_pid,omitempty"`
}

// runFunc executes a command and returns its stdout. Swappable in tests.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Controller wraps systemctl for a single unit.
type Controller struct {
	unit  string
	cache *cache.Cache
	run   runFunc
	sleep func(time.Duration)
}

// New returns a controller for the named systemd unit.
func New(unit string, c *cache.Cache) *Controller {
	return &Controller{
		unit:  unit,
		cache: c,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
		sleep: time.Sleep,
	}
}

// Status reports the unit state. Results are cached briefly so that
// bursts of panel requests do not shell out repeatedly.
func (c *Controller) Status(ctx context.Context) Status {
	if cached, ok := cache.GetTyped[Status](c.cache, statusCacheKey, statusCacheTTL); ok {
		return cached
	}
	status := c.readStatus(ctx)
	c.cache.Set(statusCacheKey, status)
	return status
}

func (c *Controller) readStatus(ctx context.Context) Status {
	// is-active exits non-zero for anything but "active"; the printed
	// state is still meaningful.
	out, err := c.run(ctx, "systemctl", "is-active", c.unit)
	state := strings.TrimSpace(string(out))
	if state == "" {
		if err != nil {
			log.WithError(err).Debugf("systemctl is-active %s failed", c.unit)
		}
		state = "unknown"
	}

	status := Status{State: state, Active: state == "active"}
	if !status.Active {
		return status
	}

	out, err = c.run(ctx, "systemctl", "show", c.unit, "--property", "MainPID", "--value")
	if err == nil {
		if pid, convErr := strconv.Atoi(strings.TrimSpace(string(out))); convErr == nil {
			status.MainPID = pid
		}
	}
	return status
}

// ValidAction reports whether action is a supported unit operation.
func ValidAction(action string) bool {
	switch action {
	case "start", "stop", "restart":
		return true
	}
	return false
}

// Apply runs the given action on the unit and waits for it to settle.
func (c *Controller) Apply(ctx context.Context, action string) (Status, error) {
	if !ValidAction(action) {
		return Status{}, fmt.Errorf("unsupported service action: %q", action)
	}

	log.Infof("Running systemctl %s %s", action, c.unit)
	if _, err := c.run(ctx, "systemctl", action, c.unit); err != nil {
		return Status{}, fmt.Errorf("systemctl %s %s: %w", action, c.unit, err)
	}

	c.sleep(settleDelay)
	c.cache.Invalidate(statusCacheKey)
	return c.Status(ctx), nil
}

// Start starts the unit.
func (c *Controller) Start(ctx context.Context) (Status, error) { return c.Apply(ctx, "start") }

// Stop stops the unit.
func (c *Controller) Stop(ctx context.Context) (Status, error) { return c.Apply(ctx, "stop") }

// Restart restarts the unit.
func (c *Controller) Restart(ctx context.Context) (Status, error) { return c.Apply(ctx, "restart") }
