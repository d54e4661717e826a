package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"almacen/internal/domain/alerts"
)

// AlertsHandler evaluates low-stock alerts on demand.
type AlertsHandler struct {
	*BaseHandler
	service *alerts.Service
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(base *BaseHandler, service *alerts.Service) *AlertsHandler {
	return &AlertsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Evaluate handles GET /stock/alerts
func (h *AlertsHandler) Evaluate(c *gin.Context) {
	ctx := c.Request.Context()

	triggered, err := h.service.Evaluate(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	if triggered == nil {
		triggered = []alerts.Alert{}
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": triggered,
		"count":  len(triggered),
	})
}
