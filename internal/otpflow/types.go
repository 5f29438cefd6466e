// Package otpflow drives the six-digit one-time code screen used after
// registration and during password reset: digit entry, delayed auto-submit,
// de-duplicated verification, resend and post-verification routing.
package otpflow

import (
	"context"
	"strings"
)

// Variant tells which upstream process started the OTP challenge
type Variant string

const (
	VariantRegistration  Variant = "registration"
	VariantPasswordReset Variant = "password_reset"
)

// Valid reports whether v is a known flow variant
func (v Variant) Valid() bool {
	return v == VariantRegistration || v == VariantPasswordReset
}

// Identity is the immutable input handed over by the navigating screen
type Identity struct {
	Email   string
	Phone   string
	Variant Variant
}

// Value returns the identifier the code was sent to, email first
func (i Identity) Value() string {
	if e := strings.TrimSpace(i.Email); e != "" {
		return e
	}
	return strings.TrimSpace(i.Phone)
}

// Complete reports whether the identity carries enough to run the flow
func (i Identity) Complete() bool {
	return i.Value() != "" && i.Variant.Valid()
}

// Roles returned by the auth service
const (
	RoleUser   = "User"
	RoleExpert = "Expert"
)

// Screen routes the controller navigates to
const (
	RouteUserHome       = "UserHome"
	RouteExpertHome     = "ExpertHome"
	RouteResetPassword  = "ResetPassword"
	RouteRegister       = "Register"
	RouteForgotPassword = "ForgotPassword"
)

// Session keys written on verified registration
const (
	SessionTokenKey = "session_token"
	SessionRoleKey  = "user_role"
)

// Params is the parameter bag passed along with a navigation
type Params map[string]string

// VerifyRequest is sent to the auth service for one verification attempt
type VerifyRequest struct {
	Identity Identity
	Code     string
}

// VerifyResult is the auth service's answer to VerifyOTP
type VerifyResult struct {
	Success bool
	Token   string
	Role    string
	Message string
}

// RequestResult is the auth service's answer to RequestOTP
type RequestResult struct {
	Success bool
	Message string
}

// AuthService is the external collaborator that issues and checks codes
type AuthService interface {
	VerifyOTP(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
	RequestOTP(ctx context.Context, identity Identity) (*RequestResult, error)
}

// Navigator moves between screens
type Navigator interface {
	Push(route string, params Params)
	Replace(route string, params Params)
	Back()
}

// SessionStore persists session artifacts on verified success
type SessionStore interface {
	Set(ctx context.Context, key, value string) error
}

// NoticeLevel classifies a user-facing message
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a toast or inline message for the user
type Notice struct {
	Level   NoticeLevel
	Message string
}

// View receives presentation side effects from the controller
type View interface {
	SetVerifying(loading bool)
	SetResending(loading bool)
	Focus(index int)
	Notify(n Notice)
}

// NopView discards every presentation side effect
type NopView struct{}

func (NopView) SetVerifying(bool) {}
func (NopView) SetResending(bool) {}
func (NopView) Focus(int)         {}
func (NopView) Notify(Notice)     {}
