package controllers

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"

	"bus_portal/internal/config"
	"bus_portal/internal/geo"
	"bus_portal/internal/models"
	"bus_portal/internal/store"
)

type RouteController struct {
	store *store.Store
	cfg   *config.Config
}

func NewRouteController(st *store.Store, cfg *config.Config) *RouteController {
	return &RouteController{store: st, cfg: cfg}
}

// RouteResponse is a route as clients see it, geometry as GeoJSON.
type RouteResponse struct {
	models.Route
	Geometry string `json:"geometry,omitempty"`
}

func toRouteResponse(route models.Route) RouteResponse {
	resp := RouteResponse{Route: route}
	if gj, err := geo.ToGeoJSON(route.Geometry); err != nil {
		logrus.WithError(err).WithField("route_id", route.ID).Warn("Stored route geometry is not valid WKB")
	} else {
		resp.Geometry = gj
	}
	return resp
}

type scheduleView struct {
	models.Schedule
	AvailableSeats int `json:"available_seats"`
}

func toScheduleViews(schedules []models.Schedule) ([]scheduleView, int, int) {
	views := make([]scheduleView, 0, len(schedules))
	total, available := 0, 0
	for _, s := range schedules {
		views = append(views, scheduleView{Schedule: s, AvailableSeats: s.AvailableSeats()})
		total += s.TotalSeats
		available += s.AvailableSeats()
	}
	return views, total, available
}

// resolveRoute looks a route up by UUID or, failing that, by route number.
func resolveRoute(c *gin.Context, st *store.Store, ref string) (*models.Route, error) {
	ref = strings.TrimSpace(ref)
	if models.IsUUID(ref) {
		route, err := st.Routes.FindByID(c.Request.Context(), ref)
		if err == nil || !errors.Is(err, store.ErrNotFound) {
			return route, err
		}
	}
	return st.Routes.FindByNumber(c.Request.Context(), ref)
}

// sortedStops orders stops by sequence and drops repeated sequence numbers.
func sortedStops(stops []models.RouteStop) []models.RouteStop {
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].SequenceOrder < stops[j].SequenceOrder })
	out := make([]models.RouteStop, 0, len(stops))
	for i, s := range stops {
		if i > 0 && s.SequenceOrder == out[len(out)-1].SequenceOrder {
			continue
		}
		out = append(out, s)
	}
	return out
}

func stopsPath(stops []models.RouteStop) string {
	points := make([]geo.Point, 0, len(stops))
	for _, s := range stops {
		if s.Latitude != nil && s.Longitude != nil {
			points = append(points, geo.Point{Lat: *s.Latitude, Lng: *s.Longitude})
		}
	}
	path, err := geo.PathFromPoints(points)
	if err != nil {
		logrus.WithError(err).Warn("Could not build stop path")
		return ""
	}
	return path
}

// ListRoutes handles GET /api/routes.
func (rc *RouteController) ListRoutes(c *gin.Context) {
	routes, err := rc.store.Routes.List(c.Request.Context(), true)
	if err != nil {
		respondServerError(c, err, "Failed to fetch routes")
		return
	}
	out := make([]RouteResponse, 0, len(routes))
	for _, r := range routes {
		out = append(out, toRouteResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "routes": out, "count": len(out)})
}

// GetRoute handles GET /api/routes/:routeId by id or route number.
func (rc *RouteController) GetRoute(c *gin.Context) {
	route, err := resolveRoute(c, rc.store, c.Param("routeId"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
			return
		}
		respondServerError(c, err, "Failed to fetch route")
		return
	}
	stops, err := rc.store.Routes.Stops(c.Request.Context(), route.ID)
	if err != nil {
		respondServerError(c, err, "Failed to fetch route stops")
		return
	}
	route.Stops = sortedStops(stops)
	c.JSON(http.StatusOK, gin.H{"success": true, "route": toRouteResponse(*route)})
}

// RouteStops handles GET /api/routes/:routeId/stops.
func (rc *RouteController) RouteStops(c *gin.Context) {
	routeID := strings.TrimSpace(c.Param("routeId"))
	if !models.IsUUID(routeID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	ctx := c.Request.Context()
	route, err := rc.store.Routes.FindByID(ctx, routeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
			return
		}
		respondServerError(c, err, "Failed to fetch route")
		return
	}
	stops, err := rc.store.Routes.Stops(ctx, route.ID)
	if err != nil {
		respondServerError(c, err, "Failed to fetch route stops")
		return
	}
	stops = sortedStops(stops)

	resp := gin.H{
		"success": true,
		"route": gin.H{
			"id":             route.ID,
			"route_number":   route.RouteNumber,
			"route_name":     route.RouteName,
			"start_location": route.StartLocation,
			"end_location":   route.EndLocation,
		},
		"stops": stops,
		"count": len(stops),
	}
	if path := stopsPath(stops); path != "" {
		resp["path"] = path
	}
	c.JSON(http.StatusOK, resp)
}

// Availability handles GET /api/routes/:routeId/availability?date.
// Seats available are total_seats - booked_seats of each schedule.
func (rc *RouteController) Availability(c *gin.Context) {
	route, err := resolveRoute(c, rc.store, c.Param("routeId"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
			return
		}
		respondServerError(c, err, "Failed to fetch route")
		return
	}
	date, dateStr, err := parseDate(rc.cfg, c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format, expected YYYY-MM-DD"})
		return
	}

	schedules, err := rc.store.Schedules.ForRoute(c.Request.Context(), route.ID, date)
	if err != nil {
		respondServerError(c, err, "Failed to fetch schedules")
		return
	}
	views, total, available := toScheduleViews(schedules)
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"route":          gin.H{"id": route.ID, "route_number": route.RouteNumber, "route_name": route.RouteName},
		"date":           dateStr,
		"schedules":      views,
		"totalSeats":     total,
		"availableSeats": available,
	})
}

// ListSchedules handles GET /api/schedules?routeId&date.
func (rc *RouteController) ListSchedules(c *gin.Context) {
	ref := c.Query("routeId")
	if strings.TrimSpace(ref) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Route ID is required"})
		return
	}
	route, err := resolveRoute(c, rc.store, ref)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
			return
		}
		respondServerError(c, err, "Failed to fetch route")
		return
	}
	date, dateStr, err := parseDate(rc.cfg, c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format, expected YYYY-MM-DD"})
		return
	}
	schedules, err := rc.store.Schedules.ForRoute(c.Request.Context(), route.ID, date)
	if err != nil {
		respondServerError(c, err, "Failed to fetch schedules")
		return
	}
	views, _, _ := toScheduleViews(schedules)
	c.JSON(http.StatusOK, gin.H{"success": true, "date": dateStr, "schedules": views, "count": len(views)})
}
