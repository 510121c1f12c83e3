package dashboard

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/nghyane/proxypanel/internal/config"
	log "github.com/nghyane/proxypanel/internal/logging"
	"github.com/nghyane/proxypanel/internal/usage"
)

// persistSettings writes changed settings to the .env file so they
// survive restarts. A write failure is logged but does not fail the
// request; the running value is already applied.
func (h *Handler) persistSettings(updates map[string]string) {
	if err := config.UpdateDotenv(h.envPath, updates); err != nil {
		log.WithError(err).Warnf("Failed to persist settings to %s", h.envPath)
	}
}

// GetPricing returns the configured per-million-token prices.
func (h *Handler) GetPricing(c *gin.Context) {
	respondOK(c, h.core.Pricing())
}

type pricingRequest struct {
	Input  *float64 `json:"input"`
	Output *float64 `json:"output"`
	Cache  *float64 `json:"cache"`
}

// SetPricing updates per-million-token prices. Omitted fields keep
// their current value; negative prices are rejected.
func (h *Handler) SetPricing(c *gin.Context) {
	var req pricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid pricing payload: "+err.Error())
		return
	}

	pricing := h.core.Pricing()
	if req.Input != nil {
		pricing.Input = *req.Input
	}
	if req.Output != nil {
		pricing.Output = *req.Output
	}
	if req.Cache != nil {
		pricing.Cache = *req.Cache
	}
	if pricing.Input < 0 || pricing.Output < 0 || pricing.Cache < 0 {
		respondValidation(c, "prices must be non-negative")
		return
	}

	h.core.SetPricing(usage.Pricing{Input: pricing.Input, Output: pricing.Output, Cache: pricing.Cache})
	h.persistSettings(map[string]string{
		"pricing_input":  config.FormatEnvValue(pricing.Input),
		"pricing_output": config.FormatEnvValue(pricing.Output),
		"pricing_cache":  config.FormatEnvValue(pricing.Cache),
	})
	respondOK(c, pricing)
}

type secondsRequest struct {
	Seconds int `json:"seconds"`
}

// SetIdleThreshold updates how long the proxy must be quiet before
// auto-updates may run. Minimum 10 seconds.
func (h *Handler) SetIdleThreshold(c *gin.Context) {
	var req secondsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid payload: "+err.Error())
		return
	}
	if req.Seconds < 10 {
		respondValidation(c, fmt.Sprintf("idle threshold must be at least 10 seconds, got %d", req.Seconds))
		return
	}

	h.core.SetIdleThreshold(req.Seconds)
	h.persistSettings(map[string]string{
		"idle_threshold_seconds": config.FormatEnvValue(req.Seconds),
	})
	respondOK(c, gin.H{"idle_threshold_seconds": req.Seconds})
}

// SetCheckInterval updates the auto-update poll cadence. Minimum 60 seconds.
func (h *Handler) SetCheckInterval(c *gin.Context) {
	var req secondsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid payload: "+err.Error())
		return
	}
	if req.Seconds < 60 {
		respondValidation(c, fmt.Sprintf("check interval must be at least 60 seconds, got %d", req.Seconds))
		return
	}

	h.core.SetCheckInterval(req.Seconds)
	h.persistSettings(map[string]string{
		"auto_update_check_interval": config.FormatEnvValue(req.Seconds),
	})
	respondOK(c, gin.H{"auto_update_check_interval": req.Seconds})
}

type enabledRequest struct {
	Enabled bool `json:"enabled"`
}

// SetAutoUpdate toggles the auto-update worker.
func (h *Handler) SetAutoUpdate(c *gin.Context) {
	var req enabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid payload: "+err.Error())
		return
	}

	h.core.SetAutoUpdateEnabled(req.Enabled)
	h.persistSettings(map[string]string{
		"auto_update_enabled": config.FormatEnvValue(req.Enabled),
	})
	respondOK(c, gin.H{"auto_update_enabled": req.Enabled})
}
