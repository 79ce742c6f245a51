// Package handler exposes the leads HTTP endpoints.
package handler

import (
	"context"
	"net/http"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/service"
	"leadflow_backend/internal/leads/transport"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgTenantRequired   = "tenant context required"
)

// StatusLogStore lists the status history for a lead.
// Satisfied by repository.Repository.
type StatusLogStore interface {
	ListStatusLog(ctx context.Context, leadID, tenantID uuid.UUID, limit int) ([]repository.StatusLogEntry, error)
}

// Handler handles HTTP requests for leads.
type Handler struct {
	svc  *service.Service
	logs StatusLogStore
	val  *validator.Validator
}

// New creates a new leads handler.
func New(svc *service.Service, logs StatusLogStore, val *validator.Validator) *Handler {
	return &Handler{svc: svc, logs: logs, val: val}
}

// RegisterRoutes adds lead routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:leadId", h.GetLead)
	rg.PATCH("/:leadId/status", h.ChangeStatus)
	rg.GET("/:leadId/status-log", h.GetStatusLog)
}

// GetLead returns one lead scoped to the caller's tenant.
func (h *Handler) GetLead(c *gin.Context) {
	leadID, tenantID, ok := h.resolveScope(c)
	if !ok {
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), leadID, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// ChangeStatus applies a human-requested status change. Won leads reject
// everything but won, won requires a value, and moving backwards requires
// a reason.
func (h *Handler) ChangeStatus(c *gin.Context) {
	leadID, tenantID, ok := h.resolveScope(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	status, valid := domain.ParseStatus(req.Status)
	if !valid {
		httpkit.Error(c, http.StatusBadRequest, "unknown status", req.Status)
		return
	}

	lead, err := h.svc.ApplyManual(c.Request.Context(), leadID, tenantID, domain.ManualChange{
		Status:     status,
		ActingUser: identity.UserID(),
		Reason:     req.Reason,
		Value:      req.Value,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

// GetStatusLog returns the status history for one lead, newest first.
func (h *Handler) GetStatusLog(c *gin.Context) {
	leadID, tenantID, ok := h.resolveScope(c)
	if !ok {
		return
	}

	entries, err := h.logs.ListStatusLog(c.Request.Context(), leadID, tenantID, 50)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToStatusLogResponse(entries))
}

// resolveScope extracts the lead ID from the path and the tenant from the
// authenticated identity.
func (h *Handler) resolveScope(c *gin.Context) (leadID, tenantID uuid.UUID, ok bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.Nil, uuid.Nil, false
	}
	tenant := identity.TenantID()
	if tenant == nil {
		httpkit.Error(c, http.StatusForbidden, msgTenantRequired, nil)
		return uuid.Nil, uuid.Nil, false
	}

	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, uuid.Nil, false
	}
	return leadID, *tenant, true
}
