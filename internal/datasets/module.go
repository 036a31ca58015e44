// Package datasets provides the dataset upload domain module.
package datasets

import (
	"marketscope_backend/internal/datasets/handler"
	"marketscope_backend/internal/datasets/repository"
	"marketscope_backend/internal/datasets/service"
	"marketscope_backend/internal/geo"
	apphttp "marketscope_backend/internal/http"
	"marketscope_backend/internal/storage"
	"marketscope_backend/platform/events"
	"marketscope_backend/platform/logger"
	"marketscope_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the datasets domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new datasets module with all dependencies wired
func NewModule(pool *pgxpool.Pool, centroids *geo.Table, eventBus *events.InMemoryBus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, centroids, log)
	svc.SetEventBus(eventBus)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// SetArchiveStorage wires the optional MinIO archive for raw uploads.
func (m *Module) SetArchiveStorage(store storage.Service, bucket string) {
	m.service.SetArchiveStorage(store, bucket)
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "datasets"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for cross-module wiring.
func (m *Module) Repository() *repository.Repository {
	return m.service.Repository()
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/datasets")
	if ctx.UploadRateLimiter != nil {
		group.Use(ctx.UploadRateLimiter.RateLimit())
	}
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
