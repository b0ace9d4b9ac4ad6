package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charterdesk/recon-engine/internal/api/handler"
	"github.com/charterdesk/recon-engine/internal/api/middleware"
)

// setupRouter configures the read-only reporting routes and middleware
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	runHandler *handler.RunHandler,
	auditHandler *handler.AuditHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	v1 := r.Group("/api/v1")
	{
		runs := v1.Group("/runs")
		{
			runs.GET("", runHandler.List)
			runs.GET("/:id", runHandler.GetByID)
			runs.GET("/:id/audits", runHandler.GetAudits)
		}

		v1.GET("/audits", auditHandler.List)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
