// Package webhook provides the message ingestion bounded context module.
package webhook

import (
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
}

// NewModule creates and initializes the webhook module with all its dependencies.
func NewModule(pool *pgxpool.Pool, leads LeadResolver, enqueuer Enqueuer, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	svc := NewService(repo, leads, enqueuer, log)
	h := NewHandler(svc, log)

	return &Module{handler: h, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// Repository returns the message store for external use (the classification
// worker loads messages and history through it).
func (m *Module) Repository() *Repository {
	return m.repo
}

// RegisterRoutes mounts webhook routes on the provided router context.
// The endpoint authenticates with the instance token, not a JWT, so it
// mounts on the public v1 group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	webhookGroup := ctx.V1.Group("/webhook")
	m.handler.RegisterRoutes(webhookGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
