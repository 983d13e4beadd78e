package models

import "time"

// Known setting keys.
const SettingTransportFees = "transport_fees"

// AdminSetting is a key/value row. Structured values are stored as JSON text.
type AdminSetting struct {
	Key       string    `json:"key" gorm:"primaryKey"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
