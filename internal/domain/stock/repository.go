// Package stock provides the materialized stock balance store and the
// direct balance operations (adjust, move, delete-row, rebuild).
package stock

import (
	"context"
	"time"

	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/allocation"
	"almacen/internal/domain/ledger"
)

// Repository defines operations on the balance table.
type Repository interface {
	// GetBalance returns the current balance for a key.
	// An absent row reads as a zero balance, not an error.
	GetBalance(ctx context.Context, key entity.StockKey) (entity.StockBalance, error)

	// GetBalancesForUpdate locks and returns balances for keys, in the
	// order given. Callers sort keys canonically first. Absent rows come
	// back as zero balances without a lock.
	GetBalancesForUpdate(ctx context.Context, keys []entity.StockKey) ([]entity.StockBalance, error)

	// ApplyDelta upserts the balance row for key. The update is guarded:
	// if the result would be negative it affects no row and the
	// repository returns INVARIANT_VIOLATION. Must run in the same
	// transaction as the matching ledger append.
	ApplyDelta(ctx context.Context, key entity.StockKey, dKilos types.Quantity, dUnidades *types.Quantity, at time.Time) error

	// QueryBalances returns balances enriched with descriptors.
	QueryBalances(ctx context.Context, f BalanceFilter) ([]BalanceView, error)

	// Summarize folds balances into totals per group.
	Summarize(ctx context.Context, group SummaryGroup, f BalanceFilter) ([]SummaryRow, error)

	// EligibleLots returns the FIFO candidate buckets for a request:
	// picking positions only, positive kilos, the requested item. With
	// lock=true rows are locked FOR UPDATE in canonical key order.
	EligibleLots(ctx context.Context, req allocation.Request, lock bool) ([]allocation.LotBalance, error)

	// ReplaceBalances atomically swaps the whole balance table for the
	// folded ledger sums. Used by rebuild only.
	ReplaceBalances(ctx context.Context, sums []ledger.KeySum) error
}

// BalanceFilter narrows balance queries.
type BalanceFilter struct {
	DepotID    *id.ID
	PositionID *id.ID
	ItemID     *id.ID
	LotID      *id.ID
	SupplierID *id.ID

	// Search matches item code/name and lot number
	Search string

	// IncludeZero keeps zero-balance rows in the result
	IncludeZero bool

	Limit  int
	Offset int
}

// SummaryGroup selects the grouping of Summarize.
type SummaryGroup string

const (
	GroupByItem     SummaryGroup = "item"
	GroupByLot      SummaryGroup = "lot"
	GroupByCategory SummaryGroup = "category"
)

// IsValid reports whether g is a known grouping.
func (g SummaryGroup) IsValid() bool {
	switch g {
	case GroupByItem, GroupByLot, GroupByCategory:
		return true
	}
	return false
}

// BalanceView is a balance enriched with descriptors for rendering.
type BalanceView struct {
	entity.StockBalance

	ItemCode     string  `db:"item_code" json:"itemCode"`
	ItemName     string  `db:"item_name" json:"itemName"`
	ItemCategory string  `db:"item_category" json:"itemCategory"`
	LotNumber    string  `db:"lot_number" json:"lotNumber"`
	PositionCode string  `db:"position_code" json:"positionCode"`
	DepotName    string  `db:"depot_name" json:"depotName"`
	SupplierName *string `db:"supplier_name" json:"supplierName,omitempty"`
}

// SummaryRow is one line of the grouped stock summary.
type SummaryRow struct {
	GroupID  string         `db:"group_id" json:"groupId"`
	Label    string         `db:"label" json:"label"`
	Kilos    types.Quantity `db:"kilos" json:"kilos"`
	Unidades types.Quantity `db:"unidades" json:"unidades"`
	Buckets  int64          `db:"buckets" json:"buckets"`
}
