package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/wellnest/wellnest-api/pkg/storage"
)

const (
	maxUploadSize  = 10 << 20
	discardTimeout = 10 * time.Second
)

var allowedUploadTypes = map[string]string{
	"image/jpeg":      "images",
	"image/png":       "images",
	"image/webp":      "images",
	"application/pdf": "documents",
}

// UploadResponse is returned for every stored file
type UploadResponse struct {
	URL      string `json:"url"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	MimeType string `json:"mime_type"`
}

// UploadHandler handles file upload endpoints
type UploadHandler struct {
	storage storage.Storage
	log     logrus.FieldLogger
}

// NewUploadHandler creates a new upload handler. A nil storage disables
// uploads.
func NewUploadHandler(storage storage.Storage, log logrus.FieldLogger) *UploadHandler {
	return &UploadHandler{storage: storage, log: log}
}

// UploadFile godoc
// @Summary Upload an image or a PDF (certificates, intake forms)
// @Tags Upload
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "File to upload"
// @Success 200 {object} model.Envelope{data=handler.UploadResponse}
// @Failure 400 {object} model.Envelope
// @Failure 413 {object} model.Envelope
// @Router /upload [post]
func (h *UploadHandler) UploadFile(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			failure(c, http.StatusRequestEntityTooLarge, "File too large (max 10MB)")
			return
		}
		failure(c, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	folder, ok := allowedUploadTypes[strings.ToLower(header.Header.Get("Content-Type"))]
	if !ok {
		failure(c, http.StatusBadRequest, "Unsupported file type. Allowed: jpg, png, webp, pdf")
		return
	}

	result, err := h.storage.Upload(c.Request.Context(), file, header, folder)
	if err != nil {
		_ = c.Error(err)
		failure(c, http.StatusInternalServerError, "Failed to upload file")
		return
	}

	success(c, http.StatusOK, "File uploaded", UploadResponse{
		URL:      result.URL,
		FileName: result.FileName,
		FileSize: result.FileSize,
		MimeType: result.MimeType,
	})
}

// avatar stores the image in form field under folder and returns its URL.
// On failure the response has been written and ok is false.
func (h *UploadHandler) avatar(c *gin.Context, field, folder string) (string, bool) {
	if !h.enabled(c) {
		return "", false
	}
	header, err := c.FormFile(field)
	if err != nil {
		failure(c, http.StatusBadRequest, "Image is required")
		return "", false
	}
	if err := storage.ValidateAvatar(header); err != nil {
		serviceError(c, err)
		return "", false
	}

	file, err := header.Open()
	if err != nil {
		failure(c, http.StatusBadRequest, "Unreadable image")
		return "", false
	}
	defer file.Close()

	result, err := h.storage.Upload(c.Request.Context(), file, header, folder)
	if err != nil {
		_ = c.Error(err)
		failure(c, http.StatusInternalServerError, "Failed to upload image")
		return "", false
	}
	return result.URL, true
}

// enabled reports whether object storage is configured
func (h *UploadHandler) enabled(c *gin.Context) bool {
	if h == nil || h.storage == nil {
		failure(c, http.StatusServiceUnavailable, "File upload is disabled")
		return false
	}
	return true
}

// discard removes a replaced avatar in the background. Objects this
// storage does not own are left alone.
func (h *UploadHandler) discard(objectURL string) {
	if h == nil || h.storage == nil {
		return
	}
	key, owned := h.storage.KeyFor(objectURL)
	if !owned {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), discardTimeout)
		defer cancel()
		if err := h.storage.Delete(ctx, key); err != nil {
			h.log.WithError(err).WithField("key", key).Warn("failed to delete replaced avatar")
		}
	}()
}
