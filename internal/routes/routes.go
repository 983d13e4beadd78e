package routes

import (
	"github.com/gin-gonic/gin"

	"bus_portal/internal/controllers"
	"bus_portal/internal/middleware"
)

// Handlers bundles every controller the router mounts.
type Handlers struct {
	Auth          *controllers.AuthController
	Routes        *controllers.RouteController
	Bookings      *controllers.BookingController
	Locations     *controllers.LocationController
	Drivers       *controllers.DriverController
	Notifications *controllers.NotificationController
	Push          *controllers.PushController
	Payments      *controllers.PaymentController
	Admin         *controllers.AdminController
	System        *controllers.SystemController

	Sessions *middleware.Sessions
	AdminKey string
}

// SetupRouter builds the engine. Global middleware runs in the order given.
func SetupRouter(h Handlers, global ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(global...)

	api := r.Group("/api")
	AuthRoutes(api, h)
	RouteRoutes(api, h)
	StudentRoutes(api, h)
	DriverRoutes(api, h)
	AdminRoutes(api, h)
	SystemRoutes(r, api, h)
	WebSocketRoutes(r, h)

	return r
}
