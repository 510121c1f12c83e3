package dashboard

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nghyane/proxypanel/internal/servicectl"
)

// ServiceAction runs start, stop, or restart on the proxy's unit and
// returns the settled status.
func (h *Handler) ServiceAction(c *gin.Context) {
	action := c.Param("action")
	if !servicectl.ValidAction(action) {
		respondBadRequest(c, "unsupported action: "+action)
		return
	}

	status, err := h.core.Service.Apply(c.Request.Context(), action)
	if err != nil {
		respondInternalError(c, "service "+action+" failed: "+err.Error())
		return
	}
	respondOK(c, gin.H{"action": action, "status": status})
}

// GetServiceStatus returns the unit status on its own.
func (h *Handler) GetServiceStatus(c *gin.Context) {
	respondOK(c, h.core.Service.Status(c.Request.Context()))
}

// startOfDaysAgo returns midnight UTC n days back.
func startOfDaysAgo(n int) time.Time {
	t := time.Now().UTC().AddDate(0, 0, -n)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
