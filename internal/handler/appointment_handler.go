package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wellnest/wellnest-api/internal/model"
	"github.com/wellnest/wellnest-api/internal/service"
)

// AppointmentHandler handles booking endpoints
type AppointmentHandler struct {
	appointmentService *service.AppointmentService
}

func NewAppointmentHandler(appointmentService *service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointmentService: appointmentService}
}

// List godoc
// @Summary List the caller's appointments (as client or expert)
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Envelope{data=[]model.Appointment}
// @Router /appointments [get]
func (h *AppointmentHandler) List(c *gin.Context) {
	userID, _ := currentUser(c)

	appts, err := h.appointmentService.List(userID)
	if err != nil {
		serviceError(c, err)
		return
	}

	success(c, http.StatusOK, "Appointments", appts)
}

// Create godoc
// @Summary Book a session with an expert
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.CreateAppointmentRequest true "Booking"
// @Success 201 {object} model.Envelope{data=model.Appointment}
// @Failure 409 {object} model.Envelope
// @Router /appointments [post]
func (h *AppointmentHandler) Create(c *gin.Context) {
	userID, role := currentUser(c)

	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	appt, err := h.appointmentService.Book(c.Request.Context(), userID, role, req)
	if err != nil {
		serviceError(c, err)
		return
	}

	success(c, http.StatusCreated, "Appointment requested", appt)
}

// Confirm godoc
// @Summary Confirm a pending appointment (expert)
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Success 200 {object} model.Envelope{data=model.Appointment}
// @Router /appointments/{id}/confirm [post]
func (h *AppointmentHandler) Confirm(c *gin.Context) {
	h.change(c, "Appointment confirmed", h.appointmentService.Confirm)
}

// Cancel godoc
// @Summary Cancel an appointment (client or expert)
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Success 200 {object} model.Envelope{data=model.Appointment}
// @Router /appointments/{id}/cancel [post]
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	h.change(c, "Appointment cancelled", h.appointmentService.Cancel)
}

// Complete godoc
// @Summary Mark a confirmed appointment as completed (expert)
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Success 200 {object} model.Envelope{data=model.Appointment}
// @Router /appointments/{id}/complete [post]
func (h *AppointmentHandler) Complete(c *gin.Context) {
	h.change(c, "Appointment completed", h.appointmentService.Complete)
}

func (h *AppointmentHandler) change(c *gin.Context, message string, op func(userID, id uuid.UUID) (*model.Appointment, error)) {
	userID, _ := currentUser(c)
	id, valid := pathID(c)
	if !valid {
		return
	}

	appt, err := op(userID, id)
	if err != nil {
		serviceError(c, err)
		return
	}

	success(c, http.StatusOK, message, appt)
}
