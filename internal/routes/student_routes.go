package routes

import (
	"github.com/gin-gonic/gin"
)

// StudentRoutes mounts bookings, notifications, push and payments.
func StudentRoutes(api *gin.RouterGroup, h Handlers) {
	bookings := api.Group("/bookings")
	{
		bookings.GET("", h.Bookings.StudentBookings)
		bookings.POST("", h.Bookings.CreateBooking)
		bookings.DELETE("/:id", h.Bookings.CancelBooking)
	}

	notifications := api.Group("/notifications")
	{
		notifications.GET("", h.Notifications.ListNotifications)
		notifications.PUT("/mark-all-read", h.Notifications.MarkAllRead)
		notifications.PUT("/:id/read", h.Notifications.MarkRead)
	}

	push := api.Group("/push")
	{
		push.GET("/vapid-public-key", h.Push.VAPIDPublicKey)
		push.POST("/subscribe", h.Push.Subscribe)
		push.DELETE("/subscribe", h.Push.Unsubscribe)
	}

	payments := api.Group("/payments")
	{
		payments.POST("/create-order", h.Payments.CreateOrder)
		payments.POST("/verify", h.Payments.VerifyPayment)
	}
}
