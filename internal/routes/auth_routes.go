package routes

import (
	"github.com/gin-gonic/gin"
)

func AuthRoutes(api *gin.RouterGroup, h Handlers) {
	auth := api.Group("/auth")
	{
		auth.POST("/driver-login", h.Auth.DriverLogin)
		auth.POST("/student-login", h.Auth.StudentLogin)
		auth.POST("/first-login", h.Auth.FirstLogin)
		auth.POST("/sync-external-id", h.Auth.SyncExternalID)
	}
}
