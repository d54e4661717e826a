package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/domain/stock"
	"almacen/internal/infrastructure/http/v1/dto"
)

// StockHandler handles HTTP requests for stock balances and corrections.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		service:     service,
	}
}

// parseIDQuery parses an optional UUID query parameter.
func (h *StockHandler) parseIDQuery(c *gin.Context, key string) (*id.ID, bool) {
	str := c.Query(key)
	if str == "" {
		return nil, true
	}
	parsed, err := id.Parse(str)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid "+key+" format"))
		return nil, false
	}
	return &parsed, true
}

func (h *StockHandler) parseBalanceFilter(c *gin.Context) (stock.BalanceFilter, bool) {
	f := stock.BalanceFilter{
		Search:      c.Query("search"),
		IncludeZero: c.Query("includeZero") == "true",
		Limit:       h.ParseIntQuery(c, "limit", 100),
		Offset:      h.ParseIntQuery(c, "offset", 0),
	}

	var ok bool
	if f.DepotID, ok = h.parseIDQuery(c, "depotId"); !ok {
		return f, false
	}
	if f.PositionID, ok = h.parseIDQuery(c, "positionId"); !ok {
		return f, false
	}
	if f.ItemID, ok = h.parseIDQuery(c, "itemId"); !ok {
		return f, false
	}
	if f.LotID, ok = h.parseIDQuery(c, "lotId"); !ok {
		return f, false
	}
	if f.SupplierID, ok = h.parseIDQuery(c, "supplierId"); !ok {
		return f, false
	}
	return f, true
}

// GetBalances handles GET /stock
func (h *StockHandler) GetBalances(c *gin.Context) {
	ctx := c.Request.Context()

	f, ok := h.parseBalanceFilter(c)
	if !ok {
		return
	}

	balances, err := h.service.QueryBalances(ctx, f)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BalanceListResponse{Items: balances})
}

// GetSummary handles GET /stock/summary
func (h *StockHandler) GetSummary(c *gin.Context) {
	ctx := c.Request.Context()

	group := stock.SummaryGroup(c.DefaultQuery("groupBy", string(stock.GroupByItem)))
	if !group.IsValid() {
		h.Error(c, apperror.NewValidation("groupBy must be one of: item, lot, category"))
		return
	}

	f, ok := h.parseBalanceFilter(c)
	if !ok {
		return
	}

	rows, err := h.service.Summarize(ctx, group, f)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SummaryResponse{GroupBy: string(group), Rows: rows})
}

// Adjust handles PATCH /stock/adjust
func (h *StockHandler) Adjust(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.Adjust(ctx, req.ToDomain()); err != nil {
		h.Error(c, err)
		return
	}

	balance, err := h.service.GetBalance(ctx, req.Key())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, balance)
}

// Move handles POST /stock/move
func (h *StockHandler) Move(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.MoveStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.Move(ctx, req.ToDomain()); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "stock moved")
}

// DeleteRow handles DELETE /stock
func (h *StockHandler) DeleteRow(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.DeleteStockRowRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.DeleteRow(ctx, req.Key(), req.Note); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Rebuild handles POST /stock/rebuild - replays the ledger into balances.
func (h *StockHandler) Rebuild(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.service.RebuildBalances(ctx); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "balances rebuilt from ledger")
}

// Verify handles GET /stock/verify - compares ledger sums against balances.
func (h *StockHandler) Verify(c *gin.Context) {
	ctx := c.Request.Context()

	mismatches, err := h.service.VerifyConservation(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MismatchListResponse{
		Consistent: len(mismatches) == 0,
		Mismatches: mismatches,
	})
}

// RegisterRoutes registers stock routes. Rebuild replaces the whole
// balance table, so the router guards it separately.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.GetBalances)
	rg.GET("/summary", h.GetSummary)
	rg.GET("/verify", h.Verify)
	rg.PATCH("/adjust", h.Adjust)
	rg.POST("/move", h.Move)
	rg.DELETE("", h.DeleteRow)
}
