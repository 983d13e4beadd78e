package models

import "time"

// Driver statuses.
const (
	DriverActive    = "active"
	DriverInactive  = "inactive"
	DriverSuspended = "suspended"
)

// Driver operates a route and optionally shares live location. The current
// point is denormalised onto the row; the trail lives in LocationHistory.
type Driver struct {
	Base
	Name            string  `json:"name"`
	Email           string  `json:"email" gorm:"uniqueIndex"`
	Phone           string  `json:"phone"`
	LicenseNumber   string  `json:"license_number"`
	PasswordHash    string  `json:"-"`
	Status          string  `json:"status" gorm:"default:active"`
	AssignedRouteID *string `json:"assigned_route_id" gorm:"type:uuid"`
	ExternalID      *string `json:"external_id"`

	CurrentLatitude        *float64   `json:"current_latitude"`
	CurrentLongitude       *float64   `json:"current_longitude"`
	LocationAccuracy       *float64   `json:"location_accuracy"`
	LastLocationUpdate     *time.Time `json:"last_location_update"`
	LocationSharingEnabled bool       `json:"location_sharing_enabled"`
	LocationEnabled        bool       `json:"location_enabled"`
}

// IsActive reports whether the driver may sign in.
func (d Driver) IsActive() bool {
	return d.Status == DriverActive
}
