package dashboard

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nghyane/proxypanel/internal/updater"
)

// CheckUpdate compares the installed proxy against the latest release.
func (h *Handler) CheckUpdate(c *gin.Context) {
	useCache := c.Query("refresh") == ""
	respondOK(c, h.core.Updater.CheckForUpdates(c.Request.Context(), useCache))
}

type updateRequest struct {
	Force bool `json:"force"`
}

// PerformUpdate applies the latest release. With force the proxy is
// rebuilt even when no newer release exists.
func (h *Handler) PerformUpdate(c *gin.Context) {
	var req updateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid payload: "+err.Error())
			return
		}
	}

	event, err := h.core.Updater.PerformUpdate(c.Request.Context(), req.Force)
	switch {
	case errors.Is(err, updater.ErrUpdateInProgress):
		respondConflict(c, "an update is already in progress")
		return
	case errors.Is(err, updater.ErrAlreadyCurrent):
		respondOK(c, gin.H{"updated": false, "reason": "already on the latest release"})
		return
	case err != nil:
		respondInternalError(c, "update failed: "+err.Error())
		return
	}
	respondOK(c, gin.H{"updated": true, "event": event})
}

// GetUpdateHistory returns the newest update events.
func (h *Handler) GetUpdateHistory(c *gin.Context) {
	if h.core.History == nil {
		respondOK(c, gin.H{"enabled": false, "events": []any{}})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	events, err := h.core.History.RecentUpdates(c.Request.Context(), limit)
	if err != nil {
		respondInternalError(c, "failed to read update history: "+err.Error())
		return
	}
	respondOK(c, gin.H{"enabled": true, "events": events})
}

// GetDailyTotals returns per-day counter high-water marks.
func (h *Handler) GetDailyTotals(c *gin.Context) {
	if h.core.History == nil {
		respondOK(c, gin.H{"enabled": false, "days": []any{}})
		return
	}

	days := 30
	if raw := c.Query("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 365 {
			days = n
		}
	}

	since := startOfDaysAgo(days)
	totals, err := h.core.History.DailyTotals(c.Request.Context(), since)
	if err != nil {
		respondInternalError(c, "failed to read daily totals: "+err.Error())
		return
	}
	respondOK(c, gin.H{"enabled": true, "days": totals})
}
