package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/domain"
	"almacen/internal/domain/inbound"
	"almacen/internal/infrastructure/http/v1/dto"
)

// InboundHandler handles inbound receipts.
type InboundHandler struct {
	*BaseHandler
	service *inbound.Service
}

// NewInboundHandler creates a new inbound handler.
func NewInboundHandler(base *BaseHandler, service *inbound.Service) *InboundHandler {
	return &InboundHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Receive handles POST /remitos-entrada - register incoming goods.
func (h *InboundHandler) Receive(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ReceiveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	receipt, err := h.service.Receive(ctx, req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromReceipt(receipt)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", response)
	c.JSON(http.StatusCreated, response)
}

// Get handles GET /remitos-entrada/:id
func (h *InboundHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	receipt, err := h.service.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromReceipt(receipt))
}

// List handles GET /remitos-entrada
func (h *InboundHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	f := inbound.ListFilter{
		ListFilter: domain.ListFilter{
			Search:         c.Query("search"),
			OrderBy:        c.DefaultQuery("orderBy", "-date"),
			IncludeDeleted: c.Query("includeDeleted") == "true",
			Limit:          h.ParseIntQuery(c, "limit", 50),
			Offset:         h.ParseIntQuery(c, "offset", 0),
		},
	}

	for key, dst := range map[string]**id.ID{
		"supplierId": &f.SupplierID,
		"depotId":    &f.DepotID,
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

	items := make([]dto.ReceiptResponse, len(result.Items))
	for i, r := range result.Items {
		items[i] = dto.FromReceipt(r)
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// RegisterRoutes registers inbound receipt routes.
func (h *InboundHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Receive)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
}
