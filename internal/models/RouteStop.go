package models

// RouteStop is a boarding point along a route.
// SequenceOrder is strictly increasing within a route.
type RouteStop struct {
	Base
	RouteID       string   `json:"route_id" gorm:"type:uuid;index"`
	StopName      string   `json:"stop_name"`
	StopTime      string   `json:"stop_time"`
	SequenceOrder int      `json:"sequence_order"`
	IsMajorStop   bool     `json:"is_major_stop"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
}
