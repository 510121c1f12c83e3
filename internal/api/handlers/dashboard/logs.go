package dashboard

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultLogLines = 200
	maxLogLines     = 2000
)

func parseLineCount(c *gin.Context, key string) int {
	lines := defaultLogLines
	if raw := c.Query(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			lines = n
		}
	}
	if lines > maxLogLines {
		lines = maxLogLines
	}
	return lines
}

// GetLogs returns the newest raw log lines.
func (h *Handler) GetLogs(c *gin.Context) {
	lines := h.core.RequestLogs(parseLineCount(c, "lines"))
	respondOK(c, gin.H{"lines": lines, "count": len(lines)})
}

// GetRequestLogs returns the newest structured request entries.
func (h *Handler) GetRequestLogs(c *gin.Context) {
	entries := h.core.ParsedRequestLogs(parseLineCount(c, "limit"))
	respondOK(c, gin.H{"entries": entries, "count": len(entries)})
}

// ClearLogs truncates the proxy logs and resets the request counters.
func (h *Handler) ClearLogs(c *gin.Context) {
	if err := h.core.ClearLogs(); err != nil {
		respondInternalError(c, "failed to clear logs: "+err.Error())
		return
	}
	respondOK(c, gin.H{"cleared": true})
}
