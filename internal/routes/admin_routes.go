package routes

import (
	"github.com/gin-gonic/gin"

	"bus_portal/internal/middleware"
)

func AdminRoutes(api *gin.RouterGroup, h Handlers) {
	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdminKey(h.AdminKey))
	{
		admin.GET("/students", h.Admin.ListStudents)
		admin.POST("/students", h.Admin.CreateStudent)
		admin.POST("/students/import", h.Admin.ImportStudents)
		admin.GET("/students/:id", h.Admin.GetStudent)
		admin.PUT("/students/:id", h.Admin.UpdateStudent)
		admin.DELETE("/students/:id", h.Admin.DeleteStudent)

		admin.GET("/drivers", h.Admin.ListDrivers)
		admin.POST("/drivers", h.Admin.CreateDriver)
		admin.PUT("/drivers/:id", h.Admin.UpdateDriver)
		admin.DELETE("/drivers/:id", h.Admin.DeleteDriver)

		admin.POST("/routes", h.Admin.CreateRoute)
		admin.PUT("/routes/:id", h.Admin.UpdateRoute)
		admin.PUT("/routes/:id/stops", h.Admin.ReplaceStops)
		admin.PUT("/routes/:id/driver", h.Admin.AssignDriver)
		admin.DELETE("/routes/:id", h.Admin.DeleteRoute)

		admin.POST("/schedules", h.Admin.CreateSchedule)
		admin.POST("/notifications", h.Notifications.CreateNotification)

		admin.GET("/fees", h.Admin.GetFees)
		admin.PUT("/fees", h.Admin.UpdateFees)
		admin.GET("/settings", h.Admin.ListSettings)
		admin.PUT("/settings/:key", h.Admin.PutSetting)

		admin.GET("/export/students", h.Admin.ExportStudents)
		admin.GET("/export/bookings", h.Admin.ExportBookings)
	}
}
