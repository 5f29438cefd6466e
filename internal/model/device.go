package model

import (
	"time"

	"github.com/google/uuid"
)

// DeviceType is the platform an FCM token was issued for
type DeviceType string

const (
	DeviceAndroid DeviceType = "android"
	DeviceIOS     DeviceType = "ios"
	DeviceWeb     DeviceType = "web"
)

// UserDevice is a push target. A token is unique per user.
type UserDevice struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID       uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_user_devices_token,priority:1"`
	FCMToken     string     `json:"fcm_token" gorm:"size:500;not null;uniqueIndex:idx_user_devices_token,priority:2"`
	DeviceType   DeviceType `json:"device_type" gorm:"size:20"`
	LastActiveAt time.Time  `json:"last_active_at"`
	CreatedAt    time.Time  `json:"created_at"`
}
