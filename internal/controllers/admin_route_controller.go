package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"

	"bus_portal/internal/geo"
	"bus_portal/internal/models"
	"bus_portal/internal/store"
)

type stopInput struct {
	StopName      string   `json:"stopName"`
	StopTime      string   `json:"stopTime"`
	SequenceOrder int      `json:"sequenceOrder"`
	IsMajorStop   bool     `json:"isMajorStop"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
}

const (
	msgStopOrder = "Stop sequence order must be strictly increasing"
	msgStopName  = "Every stop needs a name"
)

// buildStops checks the submitted order: sequence numbers must strictly
// increase in the order given. A non-empty message means rejection.
func buildStops(in []stopInput) ([]models.RouteStop, string) {
	stops := make([]models.RouteStop, 0, len(in))
	for i, s := range in {
		if strings.TrimSpace(s.StopName) == "" {
			return nil, msgStopName
		}
		if i > 0 && s.SequenceOrder <= in[i-1].SequenceOrder {
			return nil, msgStopOrder
		}
		stops = append(stops, models.RouteStop{
			StopName:      strings.TrimSpace(s.StopName),
			StopTime:      strings.TrimSpace(s.StopTime),
			SequenceOrder: s.SequenceOrder,
			IsMajorStop:   s.IsMajorStop,
			Latitude:      s.Latitude,
			Longitude:     s.Longitude,
		})
	}
	return stops, ""
}

type routeInput struct {
	RouteNumber   *string         `json:"routeNumber"`
	RouteName     *string         `json:"routeName"`
	StartLocation *string         `json:"startLocation"`
	EndLocation   *string         `json:"endLocation"`
	StartTime     *string         `json:"startTime"`
	EndTime       *string         `json:"endTime"`
	TotalCapacity *int            `json:"totalCapacity"`
	VehicleNumber *string         `json:"vehicleNumber"`
	Fare          *float64        `json:"fare"`
	Status        *string         `json:"status"`
	Geometry      json.RawMessage `json:"geometry"`
	Stops         []stopInput     `json:"stops"`
}

func hasGeometry(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null"
}

// CreateRoute handles POST /api/admin/routes with optional stops and
// GeoJSON geometry.
func (ac *AdminController) CreateRoute(c *gin.Context) {
	var in routeInput
	if err := c.ShouldBindJSON(&in); err != nil || trimmed(in.RouteNumber) == "" || trimmed(in.RouteName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Route number and route name are required"})
		return
	}
	stops, msg := buildStops(in.Stops)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	route := &models.Route{
		RouteNumber:   trimmed(in.RouteNumber),
		RouteName:     trimmed(in.RouteName),
		StartLocation: trimmed(in.StartLocation),
		EndLocation:   trimmed(in.EndLocation),
		StartTime:     trimmed(in.StartTime),
		EndTime:       trimmed(in.EndTime),
		VehicleNumber: trimmed(in.VehicleNumber),
		Status:        models.RouteActive,
		Stops:         stops,
	}
	if in.TotalCapacity != nil {
		if *in.TotalCapacity < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Capacity cannot be negative"})
			return
		}
		route.TotalCapacity = *in.TotalCapacity
	}
	if in.Fare != nil {
		route.Fare = *in.Fare
	}
	if in.Status != nil {
		route.Status = trimmed(in.Status)
	}
	if hasGeometry(in.Geometry) {
		wkb, err := geo.ParseGeoJSON(string(in.Geometry))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid geometry: " + err.Error()})
			return
		}
		route.Geometry = wkb
	}

	if err := ac.store.Routes.Create(c.Request.Context(), route); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Route number already exists"})
			return
		}
		respondServerError(c, err, "Failed to create route")
		return
	}
	logrus.WithFields(logrus.Fields{
		"route_id":     route.ID,
		"route_number": route.RouteNumber,
		"stops":        len(stops),
	}).Info("Route created")
	c.JSON(http.StatusCreated, gin.H{"success": true, "route": toRouteResponse(*route)})
}

// UpdateRoute handles PUT /api/admin/routes/:id. Stops are replaced with
// PUT /api/admin/routes/:id/stops.
func (ac *AdminController) UpdateRoute(c *gin.Context) {
	id := c.Param("id")
	if !models.IsUUID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}
	var in routeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	fields := map[string]interface{}{}
	set := func(col string, v *string) {
		if v != nil {
			fields[col] = strings.TrimSpace(*v)
		}
	}
	set("route_number", in.RouteNumber)
	set("route_name", in.RouteName)
	set("start_location", in.StartLocation)
	set("end_location", in.EndLocation)
	set("start_time", in.StartTime)
	set("end_time", in.EndTime)
	set("vehicle_number", in.VehicleNumber)
	set("status", in.Status)
	if in.TotalCapacity != nil {
		if *in.TotalCapacity < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Capacity cannot be negative"})
			return
		}
		fields["total_capacity"] = *in.TotalCapacity
	}
	if in.Fare != nil {
		fields["fare"] = *in.Fare
	}
	if hasGeometry(in.Geometry) {
		wkb, err := geo.ParseGeoJSON(string(in.Geometry))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid geometry: " + err.Error()})
			return
		}
		fields["geometry"] = wkb
	}
	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	route, err := ac.store.Routes.Update(c.Request.Context(), id, fields)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		case errors.Is(err, store.ErrDuplicate):
			c.JSON(http.StatusConflict, gin.H{"error": "Route number already exists"})
		default:
			respondServerError(c, err, "Failed to update route")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "route": toRouteResponse(*route)})
}

type replaceStopsInput struct {
	Stops []stopInput `json:"stops"`
}

// ReplaceStops handles PUT /api/admin/routes/:id/stops.
func (ac *AdminController) ReplaceStops(c *gin.Context) {
	id := c.Param("id")
	if !models.IsUUID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}
	var in replaceStopsInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	stops, msg := buildStops(in.Stops)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	ctx := c.Request.Context()
	if _, err := ac.store.Routes.FindByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
			return
		}
		respondServerError(c, err, "Failed to fetch route")
		return
	}
	if err := ac.store.Routes.ReplaceStops(ctx, id, stops); err != nil {
		respondServerError(c, err, "Failed to save route stops")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stops": stops, "count": len(stops)})
}

// DeleteRoute handles DELETE /api/admin/routes/:id.
func (ac *AdminController) DeleteRoute(c *gin.Context) {
	id := c.Param("id")
	if !models.IsUUID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}
	if err := ac.store.Routes.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
			return
		}
		respondServerError(c, err, "Failed to delete route")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Route deleted"})
}

type assignDriverInput struct {
	DriverID *string `json:"driverId"`
}

// AssignDriver handles PUT /api/admin/routes/:id/driver. A null driverId
// clears the assignment.
func (ac *AdminController) AssignDriver(c *gin.Context) {
	id := c.Param("id")
	if !models.IsUUID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}
	var in assignDriverInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	driverID := in.DriverID
	if driverID != nil {
		trimmedID := strings.TrimSpace(*driverID)
		if trimmedID == "" {
			driverID = nil
		} else if !models.IsUUID(trimmedID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid driver ID"})
			return
		} else {
			driverID = &trimmedID
		}
	}

	if err := ac.store.Routes.AssignDriver(c.Request.Context(), id, driverID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route or driver not found"})
			return
		}
		respondServerError(c, err, "Failed to assign driver")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "routeId": id, "driverId": driverID})
}

type scheduleInput struct {
	RouteID       string `json:"routeId"`
	ScheduleDate  string `json:"scheduleDate"`
	DepartureTime string `json:"departureTime"`
	ArrivalTime   string `json:"arrivalTime"`
	TotalSeats    *int   `json:"totalSeats"`
}

// CreateSchedule handles POST /api/admin/schedules. Seats default to the
// route capacity.
func (ac *AdminController) CreateSchedule(c *gin.Context) {
	var in scheduleInput
	if err := c.ShouldBindJSON(&in); err != nil || in.RouteID == "" || strings.TrimSpace(in.DepartureTime) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Route ID and departure time are required"})
		return
	}
	date, _, err := parseDate(ac.cfg, in.ScheduleDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format, expected YYYY-MM-DD"})
		return
	}

	ctx := c.Request.Context()
	route, err := resolveRoute(c, ac.store, in.RouteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
			return
		}
		respondServerError(c, err, "Failed to fetch route")
		return
	}
	seats := route.TotalCapacity
	if in.TotalSeats != nil {
		seats = *in.TotalSeats
	}
	if seats <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Total seats must be greater than zero"})
		return
	}

	schedule := &models.Schedule{
		RouteID:       route.ID,
		ScheduleDate:  date,
		DepartureTime: strings.TrimSpace(in.DepartureTime),
		ArrivalTime:   strings.TrimSpace(in.ArrivalTime),
		TotalSeats:    seats,
		Status:        models.ScheduleScheduled,
	}
	if err := ac.store.Schedules.Create(ctx, schedule); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Schedule already exists for this departure"})
			return
		}
		respondServerError(c, err, "Failed to create schedule")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "schedule": scheduleView{Schedule: *schedule, AvailableSeats: schedule.AvailableSeats()}})
}
