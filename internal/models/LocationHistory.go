package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LocationHistory is one recorded point of a driver's trail on a route.
type LocationHistory struct {
	ID               string    `json:"id" gorm:"type:uuid;primaryKey"`
	DriverID         string    `json:"driver_id" gorm:"type:uuid;index"`
	RouteID          *string   `json:"route_id" gorm:"type:uuid;index"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	Accuracy         float64   `json:"accuracy"` // metres
	Speed            float64   `json:"speed"`    // m/s
	Heading          float64   `json:"heading"`  // degrees
	DistanceFromLast float64   `json:"distance_from_last"`
	RecordedAt       time.Time `json:"recorded_at"`
}

func (LocationHistory) TableName() string { return "driver_location_history" }

func (l *LocationHistory) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
