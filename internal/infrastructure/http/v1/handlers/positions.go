package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/domain/catalogs/depot"
	"almacen/internal/infrastructure/http/v1/dto"
)

// PositionHandler handles positions nested under a depot.
type PositionHandler struct {
	*BaseHandler
	service *depot.Service
}

// NewPositionHandler creates a new position handler.
func NewPositionHandler(base *BaseHandler, service *depot.Service) *PositionHandler {
	return &PositionHandler{
		BaseHandler: base,
		service:     service,
	}
}

// List handles GET /depots/:id/positions
func (h *PositionHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	depotID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	positions, err := h.service.ListPositions(ctx, depotID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.PositionResponse, len(positions))
	for i, p := range positions {
		items[i] = dto.FromPosition(p)
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Create handles POST /depots/:id/positions
func (h *PositionHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	depotID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.CreatePositionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p := depot.NewPosition(depotID, req.Code, req.Name, depot.PositionType(req.Type))
	if err := h.service.CreatePosition(ctx, p); err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromPosition(p)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", response)
	c.JSON(http.StatusCreated, response)
}

// Get handles GET /positions/:id
func (h *PositionHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	positionID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	p, err := h.service.GetPosition(ctx, positionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromPosition(p))
}

// Delete handles DELETE /positions/:id - soft delete.
func (h *PositionHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	positionID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.DeletePosition(ctx, positionID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}
