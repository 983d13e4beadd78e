package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"

	"bus_portal/internal/config"
	"bus_portal/internal/metrics"
	"bus_portal/internal/models"
	"bus_portal/internal/store"
)

// UnknownStop groups bookings that carry no boarding stop.
const UnknownStop = "Unknown Stop"

type BookingController struct {
	store *store.Store
	cfg   *config.Config
}

func NewBookingController(st *store.Store, cfg *config.Config) *BookingController {
	return &BookingController{store: st, cfg: cfg}
}

// groupByStop buckets bookings by boarding stop, keeping input order.
func groupByStop(bookings []models.Booking) map[string][]models.Booking {
	out := make(map[string][]models.Booking)
	for _, b := range bookings {
		stop := strings.TrimSpace(b.BoardingStop)
		if stop == "" {
			stop = UnknownStop
		}
		out[stop] = append(out[stop], b)
	}
	return out
}

// DriverBookings handles GET /api/driver/bookings?routeId|routeNumber&date,
// the driver's boarding manifest.
func (bc *BookingController) DriverBookings(c *gin.Context) {
	routeID := strings.TrimSpace(c.Query("routeId"))
	routeNumber := strings.TrimSpace(c.Query("routeNumber"))
	if routeID == "" && routeNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Route ID or route number is required"})
		return
	}
	date, dateStr, err := parseDate(bc.cfg, c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format, expected YYYY-MM-DD"})
		return
	}

	// routeId is tried first, then routeNumber; either may hold an id or a number
	var route *models.Route
	err = store.ErrNotFound
	if routeID != "" {
		route, err = resolveRoute(c, bc.store, routeID)
	}
	if errors.Is(err, store.ErrNotFound) && routeNumber != "" {
		route, err = resolveRoute(c, bc.store, routeNumber)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
			return
		}
		respondServerError(c, err, "Failed to fetch route")
		return
	}

	bookings, err := bc.store.Bookings.ForRouteDate(c.Request.Context(), route.ID, date, models.ActiveBookingStatuses)
	if err != nil {
		respondServerError(c, err, "Failed to fetch bookings")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"route": gin.H{
			"id":           route.ID,
			"route_number": route.RouteNumber,
			"route_name":   route.RouteName,
		},
		"date":     dateStr,
		"bookings": bookings,
		"stopWise": groupByStop(bookings),
		"count":    len(bookings),
	})
}

type createBookingInput struct {
	StudentID    string `json:"studentId"`
	ScheduleID   string `json:"scheduleId"`
	BoardingStop string `json:"boardingStop"`
	SeatNumber   string `json:"seatNumber"`
}

// CreateBooking handles POST /api/bookings. The seat is taken atomically;
// a full schedule answers 409.
func (bc *BookingController) CreateBooking(c *gin.Context) {
	var in createBookingInput
	if err := c.ShouldBindJSON(&in); err != nil ||
		in.StudentID == "" || in.ScheduleID == "" || strings.TrimSpace(in.BoardingStop) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Student ID, schedule ID and boarding stop are required"})
		return
	}
	if !models.IsUUID(in.StudentID) || !models.IsUUID(in.ScheduleID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	ctx := c.Request.Context()
	if _, err := bc.store.Students.FindByID(ctx, in.StudentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
			return
		}
		respondServerError(c, err, "Failed to fetch student")
		return
	}
	schedule, err := bc.store.Schedules.FindByID(ctx, in.ScheduleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Schedule not found"})
			return
		}
		respondServerError(c, err, "Failed to fetch schedule")
		return
	}

	var fare float64
	if route, err := bc.store.Routes.FindByID(ctx, schedule.RouteID); err == nil {
		fare = route.Fare
	} else {
		logrus.WithError(err).WithField("route_id", schedule.RouteID).Warn("Booking for schedule whose route could not be loaded")
	}

	booking := &models.Booking{
		StudentID:     in.StudentID,
		RouteID:       schedule.RouteID,
		ScheduleID:    schedule.ID,
		TripDate:      schedule.ScheduleDate,
		BoardingStop:  strings.TrimSpace(in.BoardingStop),
		SeatNumber:    strings.TrimSpace(in.SeatNumber),
		Status:        models.BookingConfirmed,
		PaymentStatus: models.PaymentPending,
		Amount:        fare,
	}
	if err := bc.store.Bookings.Create(ctx, booking); err != nil {
		switch {
		case errors.Is(err, store.ErrNoSeats):
			metrics.Bookings.WithLabelValues("sold_out").Inc()
			c.JSON(http.StatusConflict, gin.H{"error": "No seats available"})
		case errors.Is(err, store.ErrDuplicate):
			metrics.Bookings.WithLabelValues("duplicate").Inc()
			c.JSON(http.StatusConflict, gin.H{"error": "Booking already exists"})
		default:
			respondServerError(c, err, "Failed to create booking")
		}
		return
	}

	metrics.Bookings.WithLabelValues("created").Inc()
	logrus.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"student_id":  booking.StudentID,
		"schedule_id": booking.ScheduleID,
	}).Info("Booking created")
	c.JSON(http.StatusCreated, gin.H{"success": true, "booking": booking})
}

// StudentBookings handles GET /api/bookings?studentId.
func (bc *BookingController) StudentBookings(c *gin.Context) {
	studentID := strings.TrimSpace(c.Query("studentId"))
	if studentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Student ID is required"})
		return
	}
	if !models.IsUUID(studentID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	bookings, err := bc.store.Bookings.ForStudent(c.Request.Context(), studentID)
	if err != nil {
		respondServerError(c, err, "Failed to fetch bookings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "bookings": bookings, "count": len(bookings)})
}

// CancelBooking handles DELETE /api/bookings/:id and releases the seat.
func (bc *BookingController) CancelBooking(c *gin.Context) {
	id := c.Param("id")
	if !models.IsUUID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	if err := bc.store.Bookings.Cancel(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		case errors.Is(err, store.ErrNotCancellable):
			c.JSON(http.StatusConflict, gin.H{"error": "Only confirmed bookings can be cancelled"})
		default:
			respondServerError(c, err, "Failed to cancel booking")
		}
		return
	}
	metrics.Bookings.WithLabelValues("cancelled").Inc()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Booking cancelled"})
}
