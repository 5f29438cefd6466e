package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthProvider defines how the user authenticates
type AuthProvider string

const (
	AuthProviderEmail  AuthProvider = "email"
	AuthProviderGoogle AuthProvider = "google"
)

// Role decides which side of the booking a user is on
type Role string

const (
	RoleUser   Role = "User"
	RoleExpert Role = "Expert"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleExpert
}

// OrDefault returns r, or RoleUser when r is empty or unknown
func (r Role) OrDefault() Role {
	if r.Valid() {
		return r
	}
	return RoleUser
}

// User represents a registered client or expert account
type User struct {
	ID              uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name            string       `json:"name" gorm:"size:100;not null"`
	Email           string       `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Phone           *string      `json:"phone" gorm:"uniqueIndex;size:32"`
	Password        string       `json:"-" gorm:"size:255"` // empty for Google OAuth users
	Avatar          string       `json:"avatar" gorm:"size:500;default:''"`
	Role            Role         `json:"role" gorm:"size:20;not null;default:'User'"`
	AuthProvider    AuthProvider `json:"auth_provider" gorm:"size:20;default:'email'"`
	GoogleID        *string      `json:"-" gorm:"uniqueIndex;size:255"`
	EmailVerifiedAt *time.Time   `json:"email_verified_at" gorm:"type:timestamptz"` // NULL = not verified

	IsNotificationEnabled bool   `json:"is_notification_enabled" gorm:"default:true"`
	Language              string `json:"language" gorm:"size:10;default:'en'"`

	IsOnline  bool           `json:"is_online" gorm:"default:false"`
	LastSeen  *time.Time     `json:"last_seen"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// IsEmailVerified checks if the user's email has been verified
func (u *User) IsEmailVerified() bool {
	return u.EmailVerifiedAt != nil
}

// UserResponse is the safe version of User for API responses
type UserResponse struct {
	ID                    uuid.UUID    `json:"id"`
	Name                  string       `json:"name"`
	Email                 string       `json:"email"`
	Phone                 string       `json:"phone,omitempty"`
	Avatar                string       `json:"avatar"`
	Role                  Role         `json:"role"`
	AuthProvider          AuthProvider `json:"auth_provider"`
	EmailVerified         bool         `json:"email_verified"`
	IsOnline              bool         `json:"is_online"`
	IsNotificationEnabled bool         `json:"is_notification_enabled"`
	Language              string       `json:"language"`
	LastSeen              *time.Time   `json:"last_seen"`
}

// ToResponse converts User to safe UserResponse
func (u *User) ToResponse() UserResponse {
	phone := ""
	if u.Phone != nil {
		phone = *u.Phone
	}
	return UserResponse{
		ID:                    u.ID,
		Name:                  u.Name,
		Email:                 u.Email,
		Phone:                 phone,
		Avatar:                u.Avatar,
		Role:                  u.Role.OrDefault(),
		AuthProvider:          u.AuthProvider,
		EmailVerified:         u.IsEmailVerified(),
		IsOnline:              u.IsOnline,
		IsNotificationEnabled: u.IsNotificationEnabled,
		Language:              u.Language,
		LastSeen:              u.LastSeen,
	}
}
