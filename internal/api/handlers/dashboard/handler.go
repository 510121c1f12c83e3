package dashboard

import (
	"time"

	"github.com/nghyane/proxypanel/internal/panel"
)

// Handler serves the dashboard API on top of the panel core.
type Handler struct {
	core *panel.Panel

	// envPath is the .env file runtime setting changes are persisted to.
	envPath string

	startedAt time.Time
}

// NewHandler returns a handler bound to the panel core.
func NewHandler(core *panel.Panel, envPath string) *Handler {
	if envPath == "" {
		envPath = ".env"
	}
	return &Handler{
		core:      core,
		envPath:   envPath,
		startedAt: time.Now(),
	}
}
