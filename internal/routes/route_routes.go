package routes

import (
	"github.com/gin-gonic/gin"
)

// RouteRoutes mounts the public route and schedule browsing endpoints.
func RouteRoutes(api *gin.RouterGroup, h Handlers) {
	rt := api.Group("/routes")
	{
		rt.GET("", h.Routes.ListRoutes)
		rt.GET("/:routeId", h.Routes.GetRoute)
		rt.GET("/:routeId/stops", h.Routes.RouteStops)
		rt.GET("/:routeId/availability", h.Routes.Availability)
	}
	api.GET("/schedules", h.Routes.ListSchedules)
	api.GET("/driver-location/:driverId", h.Locations.DriverLocation)
}
