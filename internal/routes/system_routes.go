package routes

import (
	"github.com/gin-gonic/gin"

	"bus_portal/internal/metrics"
)

// SystemRoutes mounts health, metrics and the demo/debug helpers.
func SystemRoutes(r *gin.Engine, api *gin.RouterGroup, h Handlers) {
	r.GET("/healthz", h.System.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api.POST("/demo/seed", h.System.SeedDemo)
	api.GET("/debug/config", h.System.DebugConfig)
	api.GET("/test/razorpay", h.Payments.TestGateway)
}
