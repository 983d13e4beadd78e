package models

import "time"

// Booking statuses.
const (
	BookingConfirmed = "confirmed"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
)

// Payment statuses.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

// ActiveBookingStatuses are the statuses shown on driver manifests.
var ActiveBookingStatuses = []string{BookingConfirmed, BookingCompleted}

// Booking reserves a seat for a student on a schedule.
type Booking struct {
	Base
	StudentID      string    `json:"student_id" gorm:"type:uuid;index"`
	RouteID        string    `json:"route_id" gorm:"type:uuid;index"`
	ScheduleID     string    `json:"schedule_id" gorm:"type:uuid;index"`
	TripDate       time.Time `json:"trip_date" gorm:"type:date"`
	BoardingStop   string    `json:"boarding_stop"`
	SeatNumber     string    `json:"seat_number"`
	Status         string    `json:"status" gorm:"default:confirmed"`
	PaymentStatus  string    `json:"payment_status" gorm:"default:pending"`
	Amount         float64   `json:"amount"`
	PaymentOrderID *string   `json:"payment_order_id"`
	PaymentID      *string   `json:"payment_id"`

	Student  *Student  `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Route    *Route    `json:"route,omitempty" gorm:"foreignKey:RouteID"`
	Schedule *Schedule `json:"schedule,omitempty" gorm:"foreignKey:ScheduleID"`
}
