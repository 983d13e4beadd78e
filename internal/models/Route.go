package models

// Route statuses.
const (
	RouteActive   = "active"
	RouteInactive = "inactive"
)

// Route is a bus line with an ordered list of stops.
type Route struct {
	Base
	RouteNumber   string  `json:"route_number" gorm:"uniqueIndex"`
	RouteName     string  `json:"route_name"`
	StartLocation string  `json:"start_location"`
	EndLocation   string  `json:"end_location"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	TotalCapacity int     `json:"total_capacity"`
	DriverID      *string `json:"driver_id" gorm:"type:uuid"`
	VehicleNumber string  `json:"vehicle_number"`
	Fare          float64 `json:"fare"`
	Status        string  `json:"status" gorm:"default:active"`

	// Path stored as WKB (SRID 4326); clients send and receive GeoJSON.
	Geometry []byte `json:"-" gorm:"type:bytea"`

	Stops []RouteStop `json:"stops,omitempty" gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
