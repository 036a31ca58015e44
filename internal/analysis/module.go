// Package analysis provides the analysis run domain module.
package analysis

import (
	"marketscope_backend/internal/analysis/handler"
	"marketscope_backend/internal/analysis/repository"
	"marketscope_backend/internal/analysis/service"
	datasetsrepo "marketscope_backend/internal/datasets/repository"
	apphttp "marketscope_backend/internal/http"
	"marketscope_backend/internal/scheduler"
	"marketscope_backend/platform/config"
	"marketscope_backend/platform/events"
	"marketscope_backend/platform/logger"
	"marketscope_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the analysis domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new analysis module with all dependencies wired
func NewModule(pool *pgxpool.Pool, datasets *datasetsrepo.Repository, cfg config.ScoringConfig, eventBus *events.InMemoryBus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, datasets, cfg, log)
	svc.SetEventBus(eventBus)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// SetEnqueuer wires the scheduler client for queued execution.
func (m *Module) SetEnqueuer(enqueuer scheduler.RunEnqueuer) {
	m.service.SetEnqueuer(enqueuer)
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "analysis"
}

// Service returns the service layer for external use (worker wiring)
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/analysis")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
