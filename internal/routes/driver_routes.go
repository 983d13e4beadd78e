package routes

import (
	"github.com/gin-gonic/gin"

	"bus_portal/internal/middleware"
)

func DriverRoutes(api *gin.RouterGroup, h Handlers) {
	driver := api.Group("/driver")
	driver.Use(h.Sessions.RequireSession(middleware.RoleDriver))
	{
		driver.GET("/profile", h.Drivers.GetProfile)
		driver.PUT("/profile", h.Drivers.UpdateProfile)
		driver.GET("/route", h.Drivers.AssignedRoute)
		driver.PUT("/location-settings", h.Drivers.LocationSettings)
		driver.POST("/location", h.Locations.UpdateLocation)
	}

	// the boarding manifest is read by the driver app before sign-in
	api.GET("/driver/bookings", h.Bookings.DriverBookings)
}
