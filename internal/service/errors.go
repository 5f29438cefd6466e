package service

import "errors"

// Sentinel errors mapped to HTTP status codes by the handlers
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrEmailTaken         = errors.New("email already registered")
	ErrPhoneTaken         = errors.New("phone already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrInvalidOTP         = errors.New("invalid or expired OTP code")
	ErrOTPRateLimited     = errors.New("too many OTP requests. Please try again later")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email not verified. Please check your inbox for the verification code")
	ErrGoogleAccount      = errors.New("this account uses Google login. Please sign in with Google")
	ErrInvalidResetToken  = errors.New("reset token is invalid or has expired")
	ErrExpertExists       = errors.New("expert profile already exists")
	ErrExpertUnavailable  = errors.New("expert is not accepting bookings")
	ErrPastAppointment    = errors.New("appointment must be scheduled in the future")
	ErrSlotTaken          = errors.New("time slot overlaps an existing appointment")
	ErrInvalidTransition  = errors.New("appointment cannot move to that status")
)
