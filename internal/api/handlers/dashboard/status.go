package dashboard

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nghyane/proxypanel/internal/buildinfo"
	"github.com/nghyane/proxypanel/internal/logstats"
	"github.com/nghyane/proxypanel/internal/panel"
	"github.com/nghyane/proxypanel/internal/servicectl"
	"github.com/nghyane/proxypanel/internal/stats"
)

// StatusResponse is the combined dashboard snapshot.
type StatusResponse struct {
	Service          servicectl.Status `json:"service"`
	Requests         logstats.Result   `json:"requests"`
	Counters         stats.Counters    `json:"counters"`
	Usage            panel.UsageReport `json:"usage"`
	ProxyVersion     string            `json:"proxy_version"`
	PanelVersion     string            `json:"panel_version"`
	Idle             bool              `json:"idle"`
	UpdateInProgress bool              `json:"update_in_progress"`
	UptimeSeconds    int64             `json:"uptime_seconds"`
}

// GetStatus returns everything the dashboard needs in one call.
func (h *Handler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()

	response := StatusResponse{
		Service:          h.core.Service.Status(ctx),
		Requests:         h.core.RequestCounts(),
		Counters:         h.core.Store.Snapshot(),
		Usage:            h.core.UsageReport(ctx),
		ProxyVersion:     h.core.Updater.LocalVersion(ctx),
		PanelVersion:     buildinfo.Version,
		Idle:             h.core.Updater.IsIdle(),
		UpdateInProgress: h.core.Updater.InProgress(),
		UptimeSeconds:    int64(time.Since(h.startedAt).Seconds()),
	}
	respondOK(c, response)
}

// GetUsage returns the reconciled usage report on its own.
func (h *Handler) GetUsage(c *gin.Context) {
	respondOK(c, h.core.UsageReport(c.Request.Context()))
}
