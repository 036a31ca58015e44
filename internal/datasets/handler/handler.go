// Package handler exposes the dataset HTTP endpoints.
package handler

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketscope_backend/internal/datasets/service"
	"marketscope_backend/internal/datasets/transport"
	"marketscope_backend/platform/httpkit"
	"marketscope_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid dataset id"
)

// Handler handles HTTP requests for datasets.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new datasets handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the dataset routes.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("", h.Upload)
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.DELETE("/:id", h.Delete)
	group.GET("/:id/files/:kind", h.DownloadFile)
}

// Upload accepts a multipart dataset upload.
// POST /api/v1/datasets
func (h *Handler) Upload(c *gin.Context) {
	var form transport.UploadDatasetForm
	if err := c.ShouldBind(&form); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(form); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	customers, err := readFormFile(c, "customers")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "customers file is required", nil)
		return
	}

	in := service.UploadInput{
		Name:        form.Name,
		Vertical:    form.Vertical,
		PracticeZip: form.PracticeZip,
		Customers:   *customers,
	}
	if competitors, err := readFormFile(c, "competitors"); err == nil {
		in.Competitors = competitors
	}
	if demographics, err := readFormFile(c, "demographics"); err == nil {
		in.Demographics = demographics
	}

	result, err := h.svc.Upload(c.Request.Context(), in)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// List returns all datasets.
// GET /api/v1/datasets
func (h *Handler) List(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get returns one dataset.
// GET /api/v1/datasets/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Delete removes a dataset and its stored rows.
// DELETE /api/v1/datasets/:id
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), id)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// DownloadFile presigns a download for one archived raw file.
// GET /api/v1/datasets/:id/files/:kind
func (h *Handler) DownloadFile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.DownloadURL(c.Request.Context(), id, c.Param("kind"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func readFormFile(c *gin.Context, field string) (*service.UploadFile, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	return loadFormFile(fileHeader)
}

func loadFormFile(fileHeader *multipart.FileHeader) (*service.UploadFile, error) {
	f, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &service.UploadFile{
		FileName: fileHeader.Filename,
		Size:     int64(len(content)),
		Content:  content,
	}, nil
}
