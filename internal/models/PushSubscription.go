package models

// PushSubscription is a browser push endpoint for a user. (UserID, Endpoint)
// is unique; rows are deactivated rather than deleted.
type PushSubscription struct {
	Base
	UserID   string `json:"user_id" gorm:"uniqueIndex:idx_push_user_endpoint"`
	UserType string `json:"user_type"`
	Endpoint string `json:"endpoint" gorm:"uniqueIndex:idx_push_user_endpoint"`
	P256DH   string `json:"p256dh" gorm:"column:p256dh"`
	Auth     string `json:"auth"`
	IsActive bool   `json:"is_active" gorm:"default:true"`
}
