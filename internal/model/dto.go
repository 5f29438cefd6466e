package model

import (
	"time"

	"github.com/google/uuid"
)

// ========== Auth DTOs ==========

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"omitempty,min=6,max=32"`
	Password string `json:"password" binding:"required,min=6"`
	Role     Role   `json:"role" binding:"omitempty,oneof=User Expert"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token" binding:"required"` // Google ID token from frontend
	Role    Role   `json:"role" binding:"omitempty,oneof=User Expert"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	Role  Role         `json:"role"`
	User  UserResponse `json:"user"`
}

// ========== OTP DTOs ==========

// IdentityRequest addresses a user by email or phone
type IdentityRequest struct {
	Email string `json:"email" binding:"required_without=Phone,omitempty,email"`
	Phone string `json:"phone" binding:"required_without=Email"`
}

type VerifyOTPRequest struct {
	IdentityRequest
	Code string `json:"code" binding:"required,len=6,numeric"`
}

type ResendOTPRequest struct {
	IdentityRequest
}

type OTPSentResponse struct {
	Message   string `json:"message"`
	Email     string `json:"email"`
	ExpiresIn int    `json:"expires_in"` // seconds until code expires
}

type ForgotPasswordRequest struct {
	IdentityRequest
}

type VerifyResetOTPRequest struct {
	IdentityRequest
	Code string `json:"code" binding:"required,len=6,numeric"`
}

type ResetTokenResponse struct {
	ResetToken string `json:"reset_token"`
	ExpiresIn  int    `json:"expires_in"`
}

type ResetPasswordRequest struct {
	ResetToken  string `json:"reset_token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// ========== Google OAuth DTOs ==========

type GoogleUserInfo struct {
	GoogleID string `json:"sub"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Picture  string `json:"picture"`
	Verified bool   `json:"email_verified"`
}

type UpdateProfileRequest struct {
	Name                  string `form:"name" json:"name" binding:"max=100"`
	Phone                 string `form:"phone" json:"phone" binding:"omitempty,min=6,max=32"`
	IsNotificationEnabled *bool  `form:"is_notification_enabled" json:"is_notification_enabled"`
	Language              string `form:"language" json:"language" binding:"omitempty,len=2"`
}

type RegisterDeviceRequest struct {
	FCMToken   string     `json:"fcm_token" binding:"required"`
	DeviceType DeviceType `json:"device_type" binding:"required,oneof=android ios web"`
}

// ========== Expert DTOs ==========

type CreateExpertRequest struct {
	Name            string `json:"name" binding:"required,min=2,max=100"`
	Specialization  string `json:"specialization" binding:"required,max=100"`
	Bio             string `json:"bio" binding:"max=5000"`
	ExperienceYears int    `json:"experience_years" binding:"min=0,max=80"`
	SessionPrice    int64  `json:"session_price" binding:"min=0"`
	Currency        string `json:"currency" binding:"omitempty,len=3"`
	SessionMinutes  int    `json:"session_minutes" binding:"omitempty,min=15,max=240"`
	Languages       string `json:"languages" binding:"max=255"`
}

type UpdateExpertRequest struct {
	Name            *string `json:"name" binding:"omitempty,min=2,max=100"`
	Specialization  *string `json:"specialization" binding:"omitempty,max=100"`
	Bio             *string `json:"bio" binding:"omitempty,max=5000"`
	ExperienceYears *int    `json:"experience_years" binding:"omitempty,min=0,max=80"`
	SessionPrice    *int64  `json:"session_price" binding:"omitempty,min=0"`
	SessionMinutes  *int    `json:"session_minutes" binding:"omitempty,min=15,max=240"`
	Languages       *string `json:"languages" binding:"omitempty,max=255"`
	IsAvailable     *bool   `json:"is_available"`
}

type ListExpertsQuery struct {
	Q              string `form:"q"`
	Specialization string `form:"specialization"`
	Page           int    `form:"page,default=1" binding:"min=1"`
	Limit          int    `form:"limit,default=20" binding:"min=1"`
}

type ExpertListResponse struct {
	Experts []Expert `json:"experts"`
	Total   int64    `json:"total"`
	Page    int      `json:"page"`
	Limit   int      `json:"limit"`
}

// ========== Appointment DTOs ==========

type CreateAppointmentRequest struct {
	ExpertID        uuid.UUID `json:"expert_id" binding:"required"`
	ScheduledAt     time.Time `json:"scheduled_at" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"omitempty,min=15,max=240"`
	Notes           string    `json:"notes" binding:"max=2000"`
}

// ========== WebSocket Event DTOs ==========

type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocket event types
const (
	WSEventOnline             = "online"
	WSEventOffline            = "offline"
	WSEventAppointmentUpdated = "appointment_updated"
	WSEventCallOffer          = "call_offer"
	WSEventCallAnswer         = "call_answer"
	WSEventCallICE            = "call_ice_candidate"
	WSEventCallHangup         = "call_hangup"
)

type OnlineEvent struct {
	UserID   uuid.UUID `json:"user_id"`
	IsOnline bool      `json:"is_online"`
}

type AppointmentEvent struct {
	AppointmentID uuid.UUID         `json:"appointment_id"`
	Status        AppointmentStatus `json:"status"`
	ScheduledAt   time.Time         `json:"scheduled_at"`
	ChangedBy     uuid.UUID         `json:"changed_by"`
}

// ========== Call Signaling DTOs ==========

// CallSignal is relayed untouched between the two parties of an appointment
type CallSignal struct {
	From          uuid.UUID   `json:"from"`
	To            uuid.UUID   `json:"to"`
	AppointmentID uuid.UUID   `json:"appointment_id"`
	SDP           interface{} `json:"sdp,omitempty"`
	Candidate     interface{} `json:"candidate,omitempty"`
	CallType      string      `json:"call_type,omitempty"` // "audio" or "video"
}

// ========== Common ==========

// Envelope wraps every JSON response body
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
