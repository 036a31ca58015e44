// Package handler exposes the analysis HTTP endpoints.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketscope_backend/internal/analysis/service"
	"marketscope_backend/internal/analysis/transport"
	"marketscope_backend/platform/httpkit"
	"marketscope_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid run id"
	msgInvalidDatasetID = "invalid dataset id"
)

// Handler handles HTTP requests for analysis runs.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new analysis handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the analysis routes.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/runs", h.CreateRun)
	group.GET("/runs", h.ListRuns)
	group.GET("/runs/:id", h.GetRun)
	group.POST("/holdout", h.Holdout)
}

// CreateRun queues a new analysis run.
// POST /api/v1/analysis/runs
func (h *Handler) CreateRun(c *gin.Context) {
	var req transport.CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.CreateRun(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusAccepted, result)
}

// ListRuns returns all runs for a dataset.
// GET /api/v1/analysis/runs?dataset_id=...
func (h *Handler) ListRuns(c *gin.Context) {
	datasetID, err := uuid.Parse(c.Query("dataset_id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidDatasetID, nil)
		return
	}

	result, err := h.svc.ListRuns(c.Request.Context(), datasetID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetRun returns one run including its result document when complete.
// GET /api/v1/analysis/runs/:id
func (h *Handler) GetRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.GetRun(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Holdout runs a train/test concordance measurement synchronously.
// POST /api/v1/analysis/holdout
func (h *Handler) Holdout(c *gin.Context) {
	var req transport.HoldoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Holdout(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
