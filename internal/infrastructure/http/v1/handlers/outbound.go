package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/domain"
	"almacen/internal/domain/outbound"
	"almacen/internal/infrastructure/http/v1/dto"
)

// OutboundHandler handles outbound shipments: preview a FIFO plan,
// commit it, and read back committed documents.
type OutboundHandler struct {
	*BaseHandler
	service *outbound.Service
}

// NewOutboundHandler creates a new outbound handler.
func NewOutboundHandler(base *BaseHandler, service *outbound.Service) *OutboundHandler {
	return &OutboundHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Preview handles POST /remitos-salida/preview - plan without committing.
func (h *OutboundHandler) Preview(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.PreviewShipmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	plan, err := h.service.Preview(ctx, req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// Commit handles POST /remitos-salida - commit a previewed plan.
func (h *OutboundHandler) Commit(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CommitShipmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	shipment, err := h.service.Commit(ctx, req.Plan, req.Meta(), outbound.CommitOptions{Replan: req.Replan})
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromShipment(shipment)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", response)
	c.JSON(http.StatusCreated, response)
}

// Get handles GET /remitos-salida/:id
func (h *OutboundHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	shipment, err := h.service.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromShipment(shipment))
}

// GetPlan handles GET /remitos-salida/:id/plan - archived commit snapshot.
func (h *OutboundHandler) GetPlan(c *gin.Context) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	plan, err := h.service.GetPlan(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// List handles GET /remitos-salida
func (h *OutboundHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	f := outbound.ListFilter{
		ListFilter: domain.ListFilter{
			Search:         c.Query("search"),
			OrderBy:        c.DefaultQuery("orderBy", "-date"),
			IncludeDeleted: c.Query("includeDeleted") == "true",
			Limit:          h.ParseIntQuery(c, "limit", 50),
			Offset:         h.ParseIntQuery(c, "offset", 0),
		},
	}

	for key, dst := range map[string]**id.ID{
		"clientId": &f.ClientID,
		"itemId":   &f.ItemID,
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

	if fromStr := c.Query("dateFrom"); fromStr != "" {
		parsed, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid dateFrom, expected RFC3339"))
			return
		}
		f.DateFrom = &parsed
	}

	if toStr := c.Query("dateTo"); toStr != "" {
		parsed, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid dateTo, expected RFC3339"))
			return
		}
		f.DateTo = &parsed
	}

	result, err := h.service.List(ctx, f)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.ShipmentResponse, len(result.Items))
	for i, s := range result.Items {
		items[i] = dto.FromShipment(s)
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Delete handles DELETE /remitos-salida/:id - reverses the shipment
// with compensating ledger entries and marks the document deleted.
func (h *OutboundHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Delete(ctx, docID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// RegisterRoutes registers outbound shipment routes.
func (h *OutboundHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/preview", h.Preview)
	rg.POST("", h.Commit)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/plan", h.GetPlan)
	rg.DELETE("/:id", h.Delete)
}
