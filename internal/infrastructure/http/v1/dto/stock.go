package dto

import (
	"time"

	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/stock"
)

// --- Stock key ---

// StockKeyRequest names one stock bucket.
type StockKeyRequest struct {
	DepotID    id.ID `json:"depotId" binding:"required"`
	PositionID id.ID `json:"positionId" binding:"required"`
	ItemID     id.ID `json:"itemId" binding:"required"`
	LotID      id.ID `json:"lotId" binding:"required"`
}

// Key converts the request to a domain stock key.
func (r StockKeyRequest) Key() entity.StockKey {
	return entity.StockKey{
		DepotID:    r.DepotID,
		PositionID: r.PositionID,
		ItemID:     r.ItemID,
		LotID:      r.LotID,
	}
}

// --- Requests ---

// AdjustStockRequest corrects one balance by a signed delta.
type AdjustStockRequest struct {
	StockKeyRequest

	DeltaKilos    types.Quantity  `json:"deltaKilos"`
	DeltaUnidades *types.Quantity `json:"deltaUnidades,omitempty"`
	Date          *time.Time      `json:"date,omitempty"`
	Note          string          `json:"note,omitempty"`
}

// ToDomain converts to the service request.
func (r AdjustStockRequest) ToDomain() stock.AdjustRequest {
	req := stock.AdjustRequest{
		Key:           r.Key(),
		DeltaKilos:    r.DeltaKilos,
		DeltaUnidades: r.DeltaUnidades,
		Note:          r.Note,
	}
	if r.Date != nil {
		req.Date = *r.Date
	}
	return req
}

// MoveStockRequest relocates quantity of one lot between positions.
type MoveStockRequest struct {
	ItemID id.ID `json:"itemId" binding:"required"`
	LotID  id.ID `json:"lotId" binding:"required"`

	FromDepotID    id.ID `json:"fromDepotId" binding:"required"`
	FromPositionID id.ID `json:"fromPositionId" binding:"required"`
	ToDepotID      id.ID `json:"toDepotId" binding:"required"`
	ToPositionID   id.ID `json:"toPositionId" binding:"required"`

	Kilos    types.Quantity  `json:"kilos"`
	Unidades *types.Quantity `json:"unidades,omitempty"`
	Date     *time.Time      `json:"date,omitempty"`
	Note     string          `json:"note,omitempty"`
}

// ToDomain converts to the service request.
func (r MoveStockRequest) ToDomain() stock.MoveRequest {
	req := stock.MoveRequest{
		ItemID:         r.ItemID,
		LotID:          r.LotID,
		FromDepotID:    r.FromDepotID,
		FromPositionID: r.FromPositionID,
		ToDepotID:      r.ToDepotID,
		ToPositionID:   r.ToPositionID,
		Kilos:          r.Kilos,
		Unidades:       r.Unidades,
		Note:           r.Note,
	}
	if r.Date != nil {
		req.Date = *r.Date
	}
	return req
}

// DeleteStockRowRequest zeroes one balance via a counter-entry.
type DeleteStockRowRequest struct {
	StockKeyRequest

	Note string `json:"note,omitempty"`
}

// --- Responses ---

// BalanceListResponse wraps enriched balances.
type BalanceListResponse struct {
	Items []stock.BalanceView `json:"items"`
}

// SummaryResponse wraps grouped totals.
type SummaryResponse struct {
	GroupBy string             `json:"groupBy"`
	Rows    []stock.SummaryRow `json:"rows"`
}

// MismatchListResponse reports conservation drift found by verify.
type MismatchListResponse struct {
	Consistent bool             `json:"consistent"`
	Mismatches []stock.Mismatch `json:"mismatches"`
}
