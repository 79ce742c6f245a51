package webhook

import (
	"errors"
	"io"
	"net/http"

	"leadflow_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

const tokenHeader = "X-Webhook-Token"

// maxEventBytes bounds the accepted envelope size.
const maxEventBytes = 1 << 20

// Handler exposes the webhook ingestion endpoint.
type Handler struct {
	svc *Service
	log *logger.Logger
}

// NewHandler creates the webhook handler.
func NewHandler(svc *Service, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes adds webhook routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/whatsapp", h.Receive)
}

// Receive ingests one provider event. The response is always 200 with a
// trivial acknowledgement, except for an unknown token which yields 401.
// Upstream treats non-200 as retryable, so validation and persistence
// failures are acknowledged anyway.
func (h *Handler) Receive(c *gin.Context) {
	token := c.GetHeader(tokenHeader)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing webhook token"})
		return
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventBytes))
	if err != nil {
		h.log.Warn("webhook: body read failed", "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "received"})
		return
	}

	if _, err := h.svc.Ingest(c.Request.Context(), token, raw); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook token"})
			return
		}
		h.log.Error("webhook: ingestion failed", "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
