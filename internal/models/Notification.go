package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Target audiences.
const (
	AudienceAll      = "all"
	AudienceStudents = "students"
	AudienceDrivers  = "drivers"
	AudienceSpecific = "specific"
)

// Notification is a broadcast or targeted message. ReadBy holds each user id
// at most once.
type Notification struct {
	Base
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Type           string         `json:"type" gorm:"default:info"`
	TargetAudience string         `json:"target_audience" gorm:"default:all"`
	SpecificUsers  pq.StringArray `json:"specific_users" gorm:"type:text[]"`
	ReadBy         pq.StringArray `json:"read_by" gorm:"type:text[]"`
	IsActive       bool           `json:"is_active" gorm:"default:true"`
	ExpiresAt      *time.Time     `json:"expires_at"`
	CreatedBy      string         `json:"created_by"`
}

// BeforeCreate fills the id and turns nil lists into empty arrays; a nil
// pq.StringArray binds as NULL and both columns are NOT NULL.
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.SpecificUsers == nil {
		n.SpecificUsers = pq.StringArray{}
	}
	if n.ReadBy == nil {
		n.ReadBy = pq.StringArray{}
	}
	return n.Base.BeforeCreate(tx)
}

// AudienceFor maps a user type to its audience bucket.
func AudienceFor(userType string) string {
	if userType == "driver" {
		return AudienceDrivers
	}
	return AudienceStudents
}

// VisibleTo reports whether the notification targets userID of userType at now.
func (n Notification) VisibleTo(userID, userType string, now time.Time) bool {
	if !n.IsActive {
		return false
	}
	if n.ExpiresAt != nil && !n.ExpiresAt.After(now) {
		return false
	}
	switch n.TargetAudience {
	case AudienceAll:
		return true
	case AudienceSpecific:
		return containsString(n.SpecificUsers, userID)
	default:
		return n.TargetAudience == AudienceFor(userType)
	}
}

// ReadByUser reports whether userID is already in the read list.
func (n Notification) ReadByUser(userID string) bool {
	return containsString(n.ReadBy, userID)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
