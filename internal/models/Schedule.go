package models

import "time"

// Schedule statuses.
const (
	ScheduleScheduled = "scheduled"
	ScheduleCancelled = "cancelled"
	ScheduleCompleted = "completed"
)

// Schedule is one run of a route on a calendar date. BookedSeats is only
// changed by the booking transaction, never past TotalSeats.
type Schedule struct {
	Base
	RouteID       string    `json:"route_id" gorm:"type:uuid;index"`
	ScheduleDate  time.Time `json:"schedule_date" gorm:"type:date"`
	DepartureTime string    `json:"departure_time"`
	ArrivalTime   string    `json:"arrival_time"`
	TotalSeats    int       `json:"total_seats"`
	BookedSeats   int       `json:"booked_seats"`
	Status        string    `json:"status" gorm:"default:scheduled"`

	Route *Route `json:"route,omitempty" gorm:"foreignKey:RouteID"`
}

// AvailableSeats is capacity minus booked seats, floored at zero.
func (s Schedule) AvailableSeats() int {
	if n := s.TotalSeats - s.BookedSeats; n > 0 {
		return n
	}
	return 0
}
