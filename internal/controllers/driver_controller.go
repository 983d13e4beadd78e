package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"

	"bus_portal/internal/middleware"
	"bus_portal/internal/models"
	"bus_portal/internal/store"
)

// updateDriverInput defines the profile fields a driver may change.
type updateDriverInput struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Password *string `json:"password"`
}

// locationSettingsInput toggles the driver's sharing flags.
type locationSettingsInput struct {
	LocationSharingEnabled *bool `json:"locationSharingEnabled"`
	LocationEnabled        *bool `json:"locationEnabled"`
}

type DriverController struct {
	store *store.Store
}

func NewDriverController(st *store.Store) *DriverController {
	return &DriverController{store: st}
}

// current loads the signed-in driver or writes the error response.
func (dc *DriverController) current(c *gin.Context) (*models.Driver, bool) {
	driver, err := dc.store.Drivers.FindByID(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Driver not found"})
			return nil, false
		}
		respondServerError(c, err, "Failed to fetch driver")
		return nil, false
	}
	return driver, true
}

// GetProfile handles GET /api/driver/profile.
func (dc *DriverController) GetProfile(c *gin.Context) {
	driver, ok := dc.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "driver": driver})
}

// UpdateProfile handles PUT /api/driver/profile.
func (dc *DriverController) UpdateProfile(c *gin.Context) {
	var in updateDriverInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	fields := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name cannot be empty"})
			return
		}
		fields["name"] = name
	}
	if in.Phone != nil {
		fields["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Password != nil {
		if len(*in.Password) < minPasswordLength {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 6 characters long"})
			return
		}
		hash, err := hashPassword(*in.Password)
		if err != nil {
			respondServerError(c, err, "Failed to hash password")
			return
		}
		fields["password_hash"] = hash
	}
	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	driver, err := dc.store.Drivers.Update(c.Request.Context(), middleware.UserID(c), fields)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Driver not found"})
			return
		}
		respondServerError(c, err, "Failed to update driver profile")
		return
	}
	logrus.WithField("driver_id", driver.ID).Info("Driver profile updated")
	c.JSON(http.StatusOK, gin.H{"success": true, "driver": driver})
}

// AssignedRoute handles GET /api/driver/route.
func (dc *DriverController) AssignedRoute(c *gin.Context) {
	driver, ok := dc.current(c)
	if !ok {
		return
	}
	if driver.AssignedRouteID == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No route assigned"})
		return
	}

	ctx := c.Request.Context()
	route, err := dc.store.Routes.FindByID(ctx, *driver.AssignedRouteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No route assigned"})
			return
		}
		respondServerError(c, err, "Failed to fetch route")
		return
	}
	stops, err := dc.store.Routes.Stops(ctx, route.ID)
	if err != nil {
		respondServerError(c, err, "Failed to fetch route stops")
		return
	}
	route.Stops = sortedStops(stops)
	c.JSON(http.StatusOK, gin.H{"success": true, "route": toRouteResponse(*route)})
}

// LocationSettings handles PUT /api/driver/location-settings.
func (dc *DriverController) LocationSettings(c *gin.Context) {
	var in locationSettingsInput
	if err := c.ShouldBindJSON(&in); err != nil || (in.LocationSharingEnabled == nil && in.LocationEnabled == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "locationSharingEnabled or locationEnabled is required"})
		return
	}
	fields := map[string]interface{}{}
	if in.LocationSharingEnabled != nil {
		fields["location_sharing_enabled"] = *in.LocationSharingEnabled
	}
	if in.LocationEnabled != nil {
		fields["location_enabled"] = *in.LocationEnabled
	}

	driver, err := dc.store.Drivers.Update(c.Request.Context(), middleware.UserID(c), fields)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Driver not found"})
			return
		}
		respondServerError(c, err, "Failed to update location settings")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":                true,
		"locationSharingEnabled": driver.LocationSharingEnabled,
		"locationEnabled":        driver.LocationEnabled,
	})
}
