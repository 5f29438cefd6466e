package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wellnest/wellnest-api/internal/model"
	"github.com/wellnest/wellnest-api/internal/service"
)

// ExpertHandler handles expert profile endpoints
type ExpertHandler struct {
	expertService *service.ExpertService
	uploads       *UploadHandler
}

func NewExpertHandler(expertService *service.ExpertService, uploads *UploadHandler) *ExpertHandler {
	return &ExpertHandler{expertService: expertService, uploads: uploads}
}

// List godoc
// @Summary Browse experts
// @Tags Experts
// @Produce json
// @Security BearerAuth
// @Param q query string false "Free text search"
// @Param specialization query string false "Exact specialization"
// @Param page query int false "Page (from 1)"
// @Param limit query int false "Page size (max 50)"
// @Success 200 {object} model.Envelope{data=model.ExpertListResponse}
// @Router /experts [get]
func (h *ExpertHandler) List(c *gin.Context) {
	var q model.ListExpertsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.expertService.List(q)
	if err != nil {
		serviceError(c, err)
		return
	}

	success(c, http.StatusOK, "Experts", resp)
}

// Get godoc
// @Summary Get an expert
// @Tags Experts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Expert ID"
// @Success 200 {object} model.Envelope{data=model.Expert}
// @Failure 404 {object} model.Envelope
// @Router /experts/{id} [get]
func (h *ExpertHandler) Get(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}

	expert, err := h.expertService.Get(id)
	if err != nil {
		serviceError(c, err)
		return
	}

	success(c, http.StatusOK, "Expert", expert)
}

// Create godoc
// @Summary Create the caller's expert profile
// @Tags Experts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.CreateExpertRequest true "Expert profile"
// @Success 201 {object} model.Envelope{data=model.Expert}
// @Failure 409 {object} model.Envelope
// @Router /experts [post]
func (h *ExpertHandler) Create(c *gin.Context) {
	userID, role := currentUser(c)

	var req model.CreateExpertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	expert, err := h.expertService.Create(userID, role, req)
	if err != nil {
		serviceError(c, err)
		return
	}

	success(c, http.StatusCreated, "Expert profile created", expert)
}

// Update godoc
// @Summary Update the caller's expert profile
// @Tags Experts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Expert ID"
// @Param body body model.UpdateExpertRequest true "Fields to change"
// @Success 200 {object} model.Envelope{data=model.Expert}
// @Failure 403 {object} model.Envelope
// @Router /experts/{id} [put]
func (h *ExpertHandler) Update(c *gin.Context) {
	userID, _ := currentUser(c)
	id, valid := pathID(c)
	if !valid {
		return
	}

	var req model.UpdateExpertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	expert, err := h.expertService.Update(userID, id, req)
	if err != nil {
		serviceError(c, err)
		return
	}

	success(c, http.StatusOK, "Expert profile updated", expert)
}

// Delete godoc
// @Summary Delete the caller's expert profile
// @Tags Experts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Expert ID"
// @Success 200 {object} model.Envelope
// @Failure 403 {object} model.Envelope
// @Router /experts/{id} [delete]
func (h *ExpertHandler) Delete(c *gin.Context) {
	userID, _ := currentUser(c)
	id, valid := pathID(c)
	if !valid {
		return
	}

	if err := h.expertService.Delete(userID, id); err != nil {
		serviceError(c, err)
		return
	}

	success(c, http.StatusOK, "Expert profile deleted", nil)
}

// UploadAvatar godoc
// @Summary Upload the expert's avatar
// @Tags Experts
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Expert ID"
// @Param avatar formData file true "Image (jpeg, png, webp, max 5MB)"
// @Success 200 {object} model.Envelope{data=model.Expert}
// @Router /experts/{id}/avatar [post]
func (h *ExpertHandler) UploadAvatar(c *gin.Context) {
	userID, _ := currentUser(c)
	id, valid := pathID(c)
	if !valid {
		return
	}

	// check ownership before touching storage
	current, err := h.expertService.CheckOwner(userID, id)
	if err != nil {
		serviceError(c, err)
		return
	}

	url, stored := h.uploads.avatar(c, "avatar", "avatars/experts")
	if !stored {
		return
	}

	expert, err := h.expertService.SetAvatar(userID, id, url)
	if err != nil {
		serviceError(c, err)
		return
	}
	h.uploads.discard(current.Avatar)

	success(c, http.StatusOK, "Avatar updated", expert)
}
