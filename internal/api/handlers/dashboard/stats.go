package dashboard

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
)

type recordRequestBody struct {
	Model  string `json:"model"`
	Status string `json:"status"`
}

// GetStats returns the persistent counters on their own.
func (h *Handler) GetStats(c *gin.Context) {
	respondOK(c, h.core.Store.Snapshot())
}

// RecordRequest ingests one request outcome pushed by the proxy's callback
// hook and folds it into the persistent counters. An empty body counts as a
// failed request against the "unknown" model.
func (h *Handler) RecordRequest(c *gin.Context) {
	var body recordRequestBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		respondBadRequest(c, "invalid request body")
		return
	}
	h.core.RecordRequest(body.Model, body.Status == "success")
	respondOK(c, gin.H{"recorded": true})
}

// ClearStats zeroes the persistent counters and clears the proxy logs.
func (h *Handler) ClearStats(c *gin.Context) {
	if err := h.core.ClearStats(); err != nil {
		respondInternalError(c, "failed to clear stats: "+err.Error())
		return
	}
	respondOK(c, gin.H{"cleared": true})
}
