package routes

import (
	"github.com/gin-gonic/gin"
)

func WebSocketRoutes(r *gin.Engine, h Handlers) {
	wsRoutes := r.Group("/ws")
	{
		wsRoutes.GET("/location", h.Locations.DriverSocket)
		wsRoutes.GET("/routes/:routeId/location", h.Locations.WatchRoute)
	}
}
