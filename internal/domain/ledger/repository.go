// Package ledger provides the append-only quantity ledger: the source of
// truth every stock balance is derived from.
package ledger

import (
	"context"
	"time"

	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
)

// Repository defines operations on the ledger table.
// There is deliberately no update or delete: corrections are new entries.
type Repository interface {
	// Append inserts entries. Used inside the same transaction that
	// applies the matching balance deltas.
	Append(ctx context.Context, entries []entity.LedgerEntry) error

	// Query returns enriched entries, newest business date first.
	Query(ctx context.Context, f Filter) ([]EntryView, error)

	// SumByKey folds the whole ledger into per-key totals. Drives
	// balance rebuild and the conservation check.
	SumByKey(ctx context.Context) ([]KeySum, error)

	// ListByRef returns the entries a document produced, oldest first.
	ListByRef(ctx context.Context, refID id.ID) ([]entity.LedgerEntry, error)
}

// Filter narrows ledger queries.
type Filter struct {
	DepotID    *id.ID
	PositionID *id.ID
	ItemID     *id.ID
	LotID      *id.ID
	Type       *entity.EntryType
	RefID      *id.ID
	From       *time.Time
	To         *time.Time

	Limit  int
	Offset int
}

// EntryView is a ledger entry enriched with descriptors for rendering.
type EntryView struct {
	entity.LedgerEntry

	ItemCode     string `db:"item_code" json:"itemCode"`
	ItemName     string `db:"item_name" json:"itemName"`
	LotNumber    string `db:"lot_number" json:"lotNumber"`
	PositionCode string `db:"position_code" json:"positionCode"`
	DepotName    string `db:"depot_name" json:"depotName"`
}

// KeySum is the folded total of one stock key.
type KeySum struct {
	entity.StockKey

	Kilos          types.Quantity `db:"kilos" json:"kilos"`
	Unidades       types.Quantity `db:"unidades" json:"unidades"`
	LastMovementAt time.Time      `db:"last_movement_at" json:"lastMovementAt"`
}
