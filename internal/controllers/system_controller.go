package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"

	"bus_portal/internal/config"
	"bus_portal/internal/metrics"
	"bus_portal/internal/models"
	"bus_portal/internal/store"
)

// Demo fixtures.
const (
	DemoRouteNumber     = "RT001"
	DemoDriverEmail     = "driver@demo.local"
	DemoDriverPassword  = "driver123"
	DemoStudentEmail    = "student@demo.local"
	DemoStudentBirthday = "2000-01-01"
)

const healthTimeout = 800 * time.Millisecond

type SystemController struct {
	store *store.Store
	cfg   *config.Config
}

func NewSystemController(st *store.Store, cfg *config.Config) *SystemController {
	return &SystemController{store: st, cfg: cfg}
}

// Health handles GET /healthz.
func (sc *SystemController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	start := time.Now()
	err := sc.store.Health.Ping(ctx)
	metrics.ObserveDBPing(time.Since(start))
	if err != nil {
		logrus.WithError(err).Warn("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "db": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "up"})
}

// DebugConfig handles GET /api/debug/config. Only presence is reported.
func (sc *SystemController) DebugConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"config": gin.H{
			"env":                  sc.cfg.Env,
			"demoMode":             sc.cfg.DemoMode,
			"hasStoreUrl":          sc.cfg.Store.URL != "",
			"hasServiceRoleKey":    sc.cfg.Store.ServiceRoleKey != "",
			"hasAnonKey":           sc.cfg.Store.AnonKey != "",
			"usingPrivilegedStore": sc.cfg.Store.Privileged(),
			"hasRazorpayKeys":      sc.cfg.PaymentConfigured(),
			"hasVapidKeys":         sc.cfg.PushConfigured(),
			"hasAdminSetupKey":     sc.cfg.AdminSetupKey != "",
			"hasSentryDsn":         sc.cfg.SentryDSN != "",
		},
	})
}

// SeedDemo handles POST /api/demo/seed. Rows that already exist are reused,
// so seeding twice changes nothing.
func (sc *SystemController) SeedDemo(c *gin.Context) {
	if !sc.cfg.DemoMode {
		c.JSON(http.StatusForbidden, gin.H{"error": "Demo mode is disabled"})
		return
	}
	ctx := c.Request.Context()

	route, err := sc.seedRoute(ctx)
	if err != nil {
		respondServerError(c, err, "Failed to seed demo route")
		return
	}
	schedule, err := sc.seedSchedule(ctx, route)
	if err != nil {
		respondServerError(c, err, "Failed to seed demo schedule")
		return
	}
	driver, err := sc.seedDriver(ctx)
	if err != nil {
		respondServerError(c, err, "Failed to seed demo driver")
		return
	}
	if route.DriverID == nil || *route.DriverID != driver.ID {
		if err := sc.store.Routes.AssignDriver(ctx, route.ID, &driver.ID); err != nil {
			respondServerError(c, err, "Failed to assign demo driver")
			return
		}
	}
	student, err := sc.seedStudent(ctx, route)
	if err != nil {
		respondServerError(c, err, "Failed to seed demo student")
		return
	}

	logrus.WithField("route_id", route.ID).Info("Demo data seeded")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"route":   gin.H{"id": route.ID, "route_number": route.RouteNumber},
		"schedule": gin.H{
			"id":            schedule.ID,
			"schedule_date": schedule.ScheduleDate.Format(config.DateLayout),
		},
		"driver":  gin.H{"id": driver.ID, "email": driver.Email, "password": DemoDriverPassword},
		"student": gin.H{"id": student.ID, "email": student.Email, "dateOfBirth": DemoStudentBirthday},
	})
}

func ptr(f float64) *float64 { return &f }

func (sc *SystemController) seedRoute(ctx context.Context) (*models.Route, error) {
	route, err := sc.store.Routes.FindByNumber(ctx, DemoRouteNumber)
	if err == nil || !errors.Is(err, store.ErrNotFound) {
		return route, err
	}
	route = &models.Route{
		RouteNumber:   DemoRouteNumber,
		RouteName:     "Campus Express",
		StartLocation: "City Centre",
		EndLocation:   "Main Campus",
		StartTime:     "07:30",
		EndTime:       "08:45",
		TotalCapacity: 40,
		VehicleNumber: "KA-01-AB-1234",
		Fare:          50,
		Status:        models.RouteActive,
		Stops: []models.RouteStop{
			{StopName: "City Centre", StopTime: "07:30", SequenceOrder: 1, IsMajorStop: true, Latitude: ptr(12.9716), Longitude: ptr(77.5946)},
			{StopName: "Railway Station", StopTime: "07:45", SequenceOrder: 2, Latitude: ptr(12.9780), Longitude: ptr(77.5720)},
			{StopName: "Market Square", StopTime: "08:05", SequenceOrder: 3, Latitude: ptr(12.9900), Longitude: ptr(77.5600)},
			{StopName: "Main Campus", StopTime: "08:45", SequenceOrder: 4, IsMajorStop: true, Latitude: ptr(13.0100), Longitude: ptr(77.5500)},
		},
	}
	if err := sc.store.Routes.Create(ctx, route); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return sc.store.Routes.FindByNumber(ctx, DemoRouteNumber)
		}
		return nil, err
	}
	return route, nil
}

func (sc *SystemController) seedSchedule(ctx context.Context, route *models.Route) (*models.Schedule, error) {
	today, _, err := parseDate(sc.cfg, "")
	if err != nil {
		return nil, err
	}
	existing, err := sc.store.Schedules.ForRoute(ctx, route.ID, today)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return &existing[0], nil
	}
	schedule := &models.Schedule{
		RouteID:       route.ID,
		ScheduleDate:  today,
		DepartureTime: route.StartTime,
		ArrivalTime:   route.EndTime,
		TotalSeats:    route.TotalCapacity,
		Status:        models.ScheduleScheduled,
	}
	if err := sc.store.Schedules.Create(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

func (sc *SystemController) seedDriver(ctx context.Context) (*models.Driver, error) {
	driver, err := sc.store.Drivers.FindByEmail(ctx, DemoDriverEmail)
	if err == nil || !errors.Is(err, store.ErrNotFound) {
		return driver, err
	}
	hash, err := hashPassword(DemoDriverPassword)
	if err != nil {
		return nil, err
	}
	driver = &models.Driver{
		Name:                   "Demo Driver",
		Email:                  DemoDriverEmail,
		Phone:                  "+910000000001",
		LicenseNumber:          "DL-DEMO-0001",
		PasswordHash:           hash,
		Status:                 models.DriverActive,
		LocationSharingEnabled: true,
		LocationEnabled:        true,
	}
	if err := sc.store.Drivers.Create(ctx, driver); err != nil {
		return nil, err
	}
	return driver, nil
}

func (sc *SystemController) seedStudent(ctx context.Context, route *models.Route) (*models.Student, error) {
	student, err := sc.store.Students.FindByEmail(ctx, DemoStudentEmail)
	if err == nil || !errors.Is(err, store.ErrNotFound) {
		return student, err
	}
	dob, _ := time.Parse(config.DateLayout, DemoStudentBirthday)
	student = &models.Student{
		StudentID:       "DEMO001",
		Name:            "Demo Student",
		Email:           DemoStudentEmail,
		Phone:           "+910000000002",
		DateOfBirth:     &dob,
		Department:      "Computer Science",
		YearOfStudy:     2,
		RouteID:         &route.ID,
		BoardingStop:    "Railway Station",
		TransportStatus: "active",
	}
	if err := sc.store.Students.Create(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}
