// Package api builds the panel's HTTP router.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nghyane/proxypanel/internal/api/handlers/dashboard"
	"github.com/nghyane/proxypanel/internal/api/middleware"
	"github.com/nghyane/proxypanel/internal/config"
	"github.com/nghyane/proxypanel/internal/panel"
)

// NewRouter wires the dashboard API onto a gin engine.
func NewRouter(cfg *config.Config, core *panel.Panel, envPath string) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.RequestSizeLimitMiddleware(middleware.DefaultMaxRequestSize))

	h := dashboard.NewHandler(core, envPath)

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := engine.Group("/api")
	{
		apiGroup.GET("/status", h.GetStatus)
		apiGroup.GET("/usage", h.GetUsage)

		apiGroup.GET("/logs", h.GetLogs)
		apiGroup.GET("/request-logs", h.GetRequestLogs)
		apiGroup.POST("/logs/clear", h.ClearLogs)

		apiGroup.GET("/stats", h.GetStats)
		apiGroup.POST("/record-request", h.RecordRequest)
		apiGroup.POST("/stats/clear", h.ClearStats)

		apiGroup.GET("/pricing", h.GetPricing)
		apiGroup.POST("/pricing", h.SetPricing)
		apiGroup.POST("/config/idle-threshold", h.SetIdleThreshold)
		apiGroup.POST("/config/check-interval", h.SetCheckInterval)
		apiGroup.POST("/config/auto-update", h.SetAutoUpdate)

		apiGroup.GET("/check-update", h.CheckUpdate)
		apiGroup.POST("/update", h.PerformUpdate)
		apiGroup.GET("/update-history", h.GetUpdateHistory)
		apiGroup.GET("/daily-totals", h.GetDailyTotals)

		apiGroup.GET("/service", h.GetServiceStatus)
		apiGroup.POST("/service/:action", h.ServiceAction)
	}

	return engine
}
