package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wellnest/wellnest-api/internal/model"
	"github.com/wellnest/wellnest-api/internal/service"
	"github.com/wellnest/wellnest-api/pkg/storage"
)

func success(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, model.Envelope{Success: true, Message: message, Data: data})
}

func failure(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, model.Envelope{Success: false, Message: message})
}

func badRequest(c *gin.Context, err error) {
	failure(c, http.StatusBadRequest, "Invalid request: "+err.Error())
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrEmailNotVerified),
		errors.Is(err, service.ErrGoogleAccount):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrEmailTaken), errors.Is(err, service.ErrPhoneTaken),
		errors.Is(err, service.ErrExpertExists), errors.Is(err, service.ErrSlotTaken),
		errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrAlreadyVerified):
		return http.StatusConflict
	case errors.Is(err, service.ErrOTPRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrInvalidOTP), errors.Is(err, service.ErrInvalidResetToken),
		errors.Is(err, service.ErrPastAppointment), errors.Is(err, service.ErrExpertUnavailable),
		errors.Is(err, storage.ErrFileTooLarge), errors.Is(err, storage.ErrUnsupportedImage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// serviceError writes err with its mapped status. Internal errors are not
// echoed to the client.
func serviceError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "Something went wrong. Please try again"
	}
	failure(c, status, msg)
}

// currentUser reads the identity the auth middleware stored on the context
func currentUser(c *gin.Context) (uuid.UUID, model.Role) {
	id, _ := c.Get("user_id")
	role, _ := c.Get("role")
	userID, _ := id.(uuid.UUID)
	r, _ := role.(string)
	return userID, model.Role(r).OrDefault()
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		failure(c, http.StatusBadRequest, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}
