package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wellnest/wellnest-api/internal/model"
	"github.com/wellnest/wellnest-api/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	uploads     *UploadHandler
}

func NewAuthHandler(authService *service.AuthService, uploads *UploadHandler) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		uploads:     uploads,
	}
}

// Register godoc
// @Summary Register a User or Expert account (sends OTP for verification)
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body model.RegisterRequest true "Register request"
// @Success 201 {object} model.Envelope{data=model.OTPSentResponse}
// @Failure 400 {object} model.Envelope
// @Failure 409 {object} model.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		serviceError(c, err)
		return
	}

	success(c, http.StatusCreated, resp.Message, resp)
}

// VerifyOTP godoc
// @Summary Verify registration with an OTP code
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body model.VerifyOTPRequest true "Verify OTP request"
// @Success 200 {object} model.Envelope{data=model.LoginResponse}
// @Failure 400 {object} model.Envelope
// @Router /auth/verify-otp [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req model.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.authService.VerifyOTP(c.Request.Context(), req)
	if err != nil {
		serviceError(c, err)
		return
	}

	success(c, http.StatusOK, "Verification successful", resp)
}

// ResendOTP godoc
// @Summary Resend the registration OTP code
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body model.ResendOTPRequest true "Resend OTP request"
// @Success 200 {object} model.Envelope{data=model.OTPSentResponse}
// @Failure 429 {object} model.Envelope
// @Router /auth/resend-otp [post]
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req model.ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.authService.ResendOTP(c.Request.Context(), req)
	if err != nil {
		serviceError(c, err)
		return
	}

	success(c, http.StatusOK, resp.Message, resp)
}

// Login godoc
// @Summary Login with email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body model.LoginRequest true "Login request"
// @Success 200 {object} model.Envelope{data=model.LoginResponse}
// @Failure 401 {object} model.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		serviceError(c, err)
		return
	}

	success(c, http.StatusOK, "Login successful", resp)
}

// GoogleLogin godoc
// @Summary Login with Google
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body model.GoogleLoginRequest true "Google login request"
// @Success 200 {object} model.Envelope{data=model.LoginResponse}
// @Failure 401 {object} model.Envelope
// @Router /auth/google [post]
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req model.GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.authService.LoginWithGoogle(c.Request.Context(), req)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError && strings.HasPrefix(err.Error(), "invalid google token") {
			failure(c, http.StatusUnauthorized, "Invalid Google token")
			return
		}
		serviceError(c, err)
		return
	}

	success(c, http.StatusOK, "Login successful", resp)
}

// ForgotPassword godoc
// @Summary Send a password reset OTP
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body model.ForgotPasswordRequest true "Email or phone"
// @Success 200 {object} model.Envelope{data=model.OTPSentResponse}
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req model.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.authService.ForgotPassword(c.Request.Context(), req)
	if err != nil {
		serviceError(c, err)
		return
	}

	success(c, http.StatusOK, resp.Message, resp)
}

// VerifyResetOTP godoc
// @Summary Exchange a password reset OTP for a one-time reset token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body model.VerifyResetOTPRequest true "Verify reset OTP request"
// @Success 200 {object} model.Envelope{data=model.ResetTokenResponse}
// @Failure 400 {object} model.Envelope
// @Router /auth/verify-reset-otp [post]
func (h *AuthHandler) VerifyResetOTP(c *gin.Context) {
	var req model.VerifyResetOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.authService.VerifyResetOTP(c.Request.Context(), req)
	if err != nil {
		serviceError(c, err)
		return
	}

	success(c, http.StatusOK, "Code verified", resp)
}

// ResetPassword godoc
// @Summary Set a new password with a reset token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body model.ResetPasswordRequest true "Reset password request"
// @Success 200 {object} model.Envelope
// @Failure 400 {object} model.Envelope
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req model.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), req); err != nil {
		serviceError(c, err)
		return
	}

	success(c, http.StatusOK, "Password has been reset", nil)
}

// Logout godoc
// @Summary Revoke the current token
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, _ := currentUser(c)
	token := c.GetString("token")

	if err := h.authService.Logout(c.Request.Context(), userID, token); err != nil {
		serviceError(c, err)
		return
	}

	success(c, http.StatusOK, "Logged out", nil)
}

// GetProfile godoc
// @Summary Get current user profile
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Envelope{data=model.UserResponse}
// @Router /auth/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, _ := currentUser(c)

	profile, err := h.authService.GetProfile(userID)
	if err != nil {
		serviceError(c, err)
		return
	}

	success(c, http.StatusOK, "Profile", profile)
}

// UpdateProfile godoc
// @Summary Update profile fields and optionally the avatar
// @Tags Auth
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param name formData string false "Display name"
// @Param phone formData string false "Phone number"
// @Param language formData string false "Two letter language code"
// @Param avatar formData file false "Avatar image (jpeg, png, webp, max 5MB)"
// @Success 200 {object} model.Envelope{data=model.UserResponse}
// @Router /auth/profile [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, _ := currentUser(c)

	var req model.UpdateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	avatarURL, previous := "", ""
	if _, err := c.FormFile("avatar"); err == nil {
		current, err := h.authService.GetProfile(userID)
		if err != nil {
			serviceError(c, err)
			return
		}
		previous = current.Avatar

		url, ok := h.uploads.avatar(c, "avatar", "avatars/users")
		if !ok {
			return
		}
		avatarURL = url
	}

	profile, err := h.authService.UpdateProfile(userID, req, avatarURL)
	if err != nil {
		serviceError(c, err)
		return
	}
	if avatarURL != "" {
		h.uploads.discard(previous)
	}

	success(c, http.StatusOK, "Profile updated", profile)
}

// RegisterDevice godoc
// @Summary Register an FCM device token
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.RegisterDeviceRequest true "Device"
// @Success 200 {object} model.Envelope
// @Router /auth/device [post]
func (h *AuthHandler) RegisterDevice(c *gin.Context) {
	userID, _ := currentUser(c)

	var req model.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.authService.RegisterDevice(userID, req); err != nil {
		serviceError(c, err)
		return
	}

	success(c, http.StatusOK, "Device registered", nil)
}
