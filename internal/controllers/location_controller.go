package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	logrus "github.com/sirupsen/logrus"

	"bus_portal/internal/geo"
	"bus_portal/internal/metrics"
	"bus_portal/internal/middleware"
	"bus_portal/internal/models"
	"bus_portal/internal/store"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

var (
	errSharingDisabled = errors.New("location sharing disabled")
	errBadCoordinates  = errors.New("invalid coordinates")
)

type LocationController struct {
	store    *store.Store
	hub      *LocationHub
	sessions *middleware.Sessions
}

func NewLocationController(st *store.Store, hub *LocationHub, sessions *middleware.Sessions) *LocationController {
	return &LocationController{store: st, hub: hub, sessions: sessions}
}

func parseLimit(raw string) (int, bool) {
	if raw == "" {
		return defaultHistoryLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	if n > maxHistoryLimit {
		n = maxHistoryLimit
	}
	return n, true
}

func currentLocation(d *models.Driver) gin.H {
	if d.CurrentLatitude == nil || d.CurrentLongitude == nil {
		return nil
	}
	return gin.H{
		"latitude":    *d.CurrentLatitude,
		"longitude":   *d.CurrentLongitude,
		"accuracy":    d.LocationAccuracy,
		"lastUpdated": d.LastLocationUpdate,
	}
}

// DriverLocation handles GET /api/driver-location/:driverId?routeId&limit.
func (lc *LocationController) DriverLocation(c *gin.Context) {
	driverID := strings.TrimSpace(c.Param("driverId"))
	if !models.IsUUID(driverID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid driver ID"})
		return
	}
	routeID := strings.TrimSpace(c.Query("routeId"))
	if routeID != "" && !models.IsUUID(routeID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}
	limit, ok := parseLimit(c.Query("limit"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Limit must be a positive integer"})
		return
	}

	ctx := c.Request.Context()
	driver, err := lc.store.Drivers.FindByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Driver not found"})
			return
		}
		respondServerError(c, err, "Failed to fetch driver")
		return
	}
	if !driver.LocationSharingEnabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "Driver location sharing is disabled"})
		return
	}

	history := []models.LocationHistory{}
	if routeID != "" {
		if history, err = lc.store.Locations.Recent(ctx, driver.ID, routeID, limit); err != nil {
			respondServerError(c, err, "Failed to fetch tracking history")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"driver": gin.H{
			"id":                     driver.ID,
			"name":                   driver.Name,
			"phone":                  driver.Phone,
			"assignedRouteId":        driver.AssignedRouteID,
			"locationSharingEnabled": driver.LocationSharingEnabled,
			"locationEnabled":        driver.LocationEnabled,
			"currentLocation":        currentLocation(driver),
		},
		"trackingHistory": history,
	})
}

// locationEvent is what the driver gets back and watchers receive.
type locationEvent struct {
	Saved    bool
	Event    string
	Distance float64
	Payload  gin.H
}

// record stores a fix for driver: the last-known point always, the history
// trail only for significant movement. Fixes are broadcast to the route.
func (lc *LocationController) record(ctx context.Context, driver *models.Driver, in LocationData) (*locationEvent, error) {
	if !driver.LocationSharingEnabled {
		return nil, errSharingDisabled
	}
	if in.Latitude == nil || in.Longitude == nil ||
		*in.Latitude < -90 || *in.Latitude > 90 || *in.Longitude < -180 || *in.Longitude > 180 {
		return nil, errBadCoordinates
	}
	at := in.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}
	routeID := strings.TrimSpace(in.RouteID)
	if routeID == "" && driver.AssignedRouteID != nil {
		routeID = *driver.AssignedRouteID
	}

	next := geo.Fix{Point: geo.Point{Lat: *in.Latitude, Lng: *in.Longitude}, Speed: in.Speed, At: at}
	if next.Speed < 0 {
		next.Speed = 0
	}

	if err := lc.store.Drivers.UpdateLocation(ctx, driver.ID, next.Lat, next.Lng, in.Accuracy, at); err != nil {
		return nil, err
	}

	var last *geo.Fix
	prev, err := lc.store.Locations.Last(ctx, driver.ID)
	switch {
	case err == nil:
		last = &geo.Fix{Point: geo.Point{Lat: prev.Latitude, Lng: prev.Longitude}, Speed: prev.Speed, At: prev.RecordedAt}
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	save, event := geo.ShouldRecord(last, next)
	var distance, heading float64
	if last != nil {
		distance = geo.Distance(last.Point, next.Point)
		heading = geo.Bearing(last.Point, next.Point)
	}
	if in.Heading != nil {
		heading = *in.Heading
	}

	ev := &locationEvent{Saved: save, Event: event, Distance: distance}
	metrics.LocationUpdates.WithLabelValues(event).Inc()

	// every fix is broadcast; sequenceId stays empty when no history row was written
	var sequenceID string
	if save {
		point := &models.LocationHistory{
			DriverID:         driver.ID,
			Latitude:         next.Lat,
			Longitude:        next.Lng,
			Accuracy:         in.Accuracy,
			Speed:            next.Speed,
			Heading:          heading,
			DistanceFromLast: distance,
			RecordedAt:       at,
		}
		if routeID != "" {
			point.RouteID = &routeID
		}
		if err := lc.store.Locations.Append(ctx, point); err != nil {
			return nil, err
		}
		sequenceID = point.ID
	}

	ev.Payload = gin.H{
		"driverId":    driver.ID,
		"routeId":     routeID,
		"latitude":    next.Lat,
		"longitude":   next.Lng,
		"accuracy":    in.Accuracy,
		"speed":       next.Speed,
		"heading":     heading,
		"eventType":   event,
		"distance":    distance,
		"timestamp":   at.Format(time.RFC3339Nano),
		"sequenceId":  sequenceID,
		"vehicleInfo": nil,
	}
	lc.hub.Publish(routeID, ev.Payload)
	return ev, nil
}

func (ev *locationEvent) response() gin.H {
	status := "received"
	if ev.Saved {
		status = "saved"
	}
	return gin.H{"success": true, "status": status, "eventType": ev.Event, "distance": ev.Distance}
}

// UpdateLocation handles POST /api/driver/location for a signed-in driver.
func (lc *LocationController) UpdateLocation(c *gin.Context) {
	var in LocationData
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location payload"})
		return
	}
	ctx := c.Request.Context()
	driver, err := lc.store.Drivers.FindByID(ctx, middleware.UserID(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Driver not found"})
			return
		}
		respondServerError(c, err, "Failed to fetch driver")
		return
	}

	ev, err := lc.record(ctx, driver, in)
	if err != nil {
		switch {
		case errors.Is(err, errSharingDisabled):
			c.JSON(http.StatusForbidden, gin.H{"error": "Driver location sharing is disabled"})
		case errors.Is(err, errBadCoordinates):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Latitude and longitude are required and must be in range"})
		default:
			respondServerError(c, err, "Failed to save location")
		}
		return
	}
	c.JSON(http.StatusOK, ev.response())
}

// DriverSocket handles GET /ws/location?token=. The driver app streams
// fixes and gets an acknowledgement for each.
func (lc *LocationController) DriverSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authentication token"})
		return
	}
	claims, err := lc.sessions.Validate(token)
	if err != nil || claims.Role != middleware.RoleDriver {
		logrus.WithError(err).Warn("WebSocket connection attempt with invalid token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	driver, err := lc.store.Drivers.FindByID(c.Request.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Driver not found"})
			return
		}
		respondServerError(c, err, "Failed to fetch driver")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	log := logrus.WithField("driver_id", driver.ID)
	log.Info("Driver WebSocket connection established")
	for {
		messageType, p, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).Warn("Error reading driver WebSocket message")
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var in LocationData
		if err := json.Unmarshal(p, &in); err != nil {
			_ = conn.WriteJSON(gin.H{"error": "Invalid location data format"})
			continue
		}
		// settings may change while connected
		if fresh, err := lc.store.Drivers.FindByID(c.Request.Context(), driver.ID); err == nil {
			driver = fresh
		}
		ev, err := lc.record(c.Request.Context(), driver, in)
		switch {
		case errors.Is(err, errSharingDisabled):
			_ = conn.WriteJSON(gin.H{"error": "Driver location sharing is disabled"})
		case errors.Is(err, errBadCoordinates):
			_ = conn.WriteJSON(gin.H{"error": "Latitude and longitude are required and must be in range"})
		case err != nil:
			log.WithError(err).Error("Failed to save driver location")
			_ = conn.WriteJSON(gin.H{"error": "Failed to save location"})
		default:
			_ = conn.WriteJSON(ev.response())
		}
	}
	log.Info("Driver WebSocket connection closed")
}

// WatchRoute handles GET /ws/routes/:routeId/location. Watchers only
// receive; anything they send is ignored.
func (lc *LocationController) WatchRoute(c *gin.Context) {
	routeID := strings.TrimSpace(c.Param("routeId"))
	if !models.IsUUID(routeID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}
	if _, err := lc.store.Routes.FindByID(c.Request.Context(), routeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
			return
		}
		respondServerError(c, err, "Failed to fetch route")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	lc.hub.Register(routeID, conn)
	defer lc.hub.Unregister(routeID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
