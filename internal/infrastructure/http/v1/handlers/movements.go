package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"almacen/internal/core/apperror"
	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/domain/ledger"
)

// MovementsHandler exposes the quantity ledger as a read-only movement feed.
type MovementsHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewMovementsHandler creates a new movements handler.
func NewMovementsHandler(base *BaseHandler, service *ledger.Service) *MovementsHandler {
	return &MovementsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// List handles GET /movimientos
func (h *MovementsHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	f := ledger.Filter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	for key, dst := range map[string]**id.ID{
		"depotId":    &f.DepotID,
		"positionId": &f.PositionID,
		"itemId":     &f.ItemID,
		"lotId":      &f.LotID,
		"refId":      &f.RefID,
	} {
		str := c.Query(key)
		if str == "" {
			continue
		}
		parsed, err := id.Parse(str)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid "+key+" format"))
			return
		}
		*dst = &parsed
	}

	if typeStr := c.Query("type"); typeStr != "" {
		entryType := entity.EntryType(typeStr)
		if !entryType.IsValid() {
			h.Error(c, apperror.NewValidation("unknown movement type").WithDetail("type", typeStr))
			return
		}
		f.Type = &entryType
	}

	if fromStr := c.Query("from"); fromStr != "" {
		parsed, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid from date, expected RFC3339"))
			return
		}
		f.From = &parsed
	}

	if toStr := c.Query("to"); toStr != "" {
		parsed, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid to date, expected RFC3339"))
			return
		}
		f.To = &parsed
	}

	entries, err := h.service.Query(ctx, f)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":  entries,
		"limit":  f.Limit,
		"offset": f.Offset,
	})
}

// RegisterRoutes registers movement routes.
func (h *MovementsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
}
