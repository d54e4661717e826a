package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/domain/lot"
	"almacen/internal/infrastructure/http/v1/dto"
)

// LotHandler handles lot lookup and rename. Lots are created implicitly
// by inbound receipts, never through this API.
type LotHandler struct {
	*BaseHandler
	service *lot.Service
}

// NewLotHandler creates a new lot handler.
func NewLotHandler(base *BaseHandler, service *lot.Service) *LotHandler {
	return &LotHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Get handles GET /lotes/:id
func (h *LotHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	lotID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	l, err := h.service.GetByID(ctx, lotID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromLot(l))
}

// ListByItem handles GET /lotes?itemId=...
func (h *LotHandler) ListByItem(c *gin.Context) {
	ctx := c.Request.Context()

	itemIDStr := c.Query("itemId")
	if itemIDStr == "" {
		h.Error(c, apperror.NewValidation("itemId is required"))
		return
	}

	itemID, err := id.Parse(itemIDStr)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid itemId format"))
		return
	}

	lots, err := h.service.ListByItem(ctx, itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.LotResponse, len(lots))
	for i, l := range lots {
		items[i] = dto.FromLot(l)
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Rename handles PATCH /lotes/:id - relabels the lot number.
// Ledger history references the lot id, so history is untouched.
func (h *LotHandler) Rename(c *gin.Context) {
	ctx := c.Request.Context()

	lotID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.RenameLotRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.Rename(ctx, lotID, req.Number); err != nil {
		h.Error(c, err)
		return
	}

	l, err := h.service.GetByID(ctx, lotID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromLot(l))
}

// RenameBatchNumber handles PATCH /stock/batch-number - same rename,
// addressed by body instead of path (the stock screens work this way).
func (h *LotHandler) RenameBatchNumber(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RenameBatchNumberRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.Rename(ctx, req.LotID, req.Number); err != nil {
		h.Error(c, err)
		return
	}

	l, err := h.service.GetByID(ctx, req.LotID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromLot(l))
}

// RegisterRoutes registers lot routes.
func (h *LotHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListByItem)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Rename)
}
