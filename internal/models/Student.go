package models

import "time"

// Student is a rider imported by an administrator. The password is set on
// first login after the date of birth has been confirmed.
type Student struct {
	Base
	StudentID           string     `json:"student_id" gorm:"column:student_id"` // roll number
	Name                string     `json:"name"`
	Email               string     `json:"email" gorm:"uniqueIndex"`
	Phone               string     `json:"phone"`
	DateOfBirth         *time.Time `json:"date_of_birth" gorm:"type:date"`
	Department          string     `json:"department"`
	YearOfStudy         int        `json:"year_of_study"`
	PasswordHash        string     `json:"-"`
	FirstLoginCompleted bool       `json:"first_login_completed"`
	FailedLoginAttempts int        `json:"failed_login_attempts"`
	LastLoginAt         *time.Time `json:"last_login_at"`
	ExternalID          *string    `json:"external_id"`
	RouteID             *string    `json:"route_id" gorm:"type:uuid"`
	BoardingStop        string     `json:"boarding_stop"`
	TransportStatus     string     `json:"transport_status" gorm:"default:active"`
}
