package model

import (
	"time"

	"github.com/google/uuid"
)

// OTPPurpose separates registration codes from password reset codes
type OTPPurpose string

const (
	OTPPurposeEmailVerification OTPPurpose = "email_verification"
	OTPPurposePasswordReset     OTPPurpose = "password_reset"
)

// Valid reports whether p is a known purpose
func (p OTPPurpose) Valid() bool {
	return p == OTPPurposeEmailVerification || p == OTPPurposePasswordReset
}

// OTPCode is a single-use six digit code. Replaced codes are marked used,
// never deleted, so they still count towards the hourly send limit.
type OTPCode struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Code      string     `json:"-" gorm:"size:6;not null"`
	Purpose   OTPPurpose `json:"purpose" gorm:"size:32;not null;default:'email_verification'"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// ValidAt reports whether the code can still be consumed at t
func (o *OTPCode) ValidAt(t time.Time) bool {
	return o.UsedAt == nil && t.Before(o.ExpiresAt)
}

// RemainingSeconds is what clients show as the code's countdown
func (o *OTPCode) RemainingSeconds(t time.Time) int {
	if !t.Before(o.ExpiresAt) {
		return 0
	}
	return int(o.ExpiresAt.Sub(t).Seconds())
}
