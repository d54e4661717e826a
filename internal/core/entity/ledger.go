package entity

import (
	"bytes"
	"sort"
	"time"

	"almacen/internal/core/id"
	"almacen/internal/core/types"
)

// EntryType classifies a ledger row by the operation that produced it.
type EntryType string

const (
	EntryRemitoEntrada EntryType = "REMITO_ENTRADA"
	EntryRemitoSalida  EntryType = "REMITO_SALIDA"
	EntryAjusteSuma    EntryType = "AJUSTE_SUMA"
	EntryAjusteResta   EntryType = "AJUSTE_RESTA"
	EntryMoveSalida    EntryType = "MOVE_SALIDA"
	EntryMoveEntrada   EntryType = "MOVE_ENTRADA"
)

// Sign returns +1 for entry types that add stock, -1 for those that remove it.
func (t EntryType) Sign() int {
	switch t {
	case EntryRemitoEntrada, EntryAjusteSuma, EntryMoveEntrada:
		return 1
	case EntryRemitoSalida, EntryAjusteResta, EntryMoveSalida:
		return -1
	}
	return 0
}

// IsValid reports whether t is one of the known entry types.
func (t EntryType) IsValid() bool {
	return t.Sign() != 0
}

// StockKey identifies a single stock bucket: one item, in one lot,
// at one position of one depot. Every ledger entry and every balance
// row is addressed by exactly one StockKey.
type StockKey struct {
	DepotID    id.ID `db:"depot_id" json:"depotId"`
	PositionID id.ID `db:"position_id" json:"positionId"`
	ItemID     id.ID `db:"item_id" json:"itemId"`
	LotID      id.ID `db:"lot_id" json:"lotId"`
}

// Compare orders keys canonically: depot, position, item, lot.
// Row locks are always taken in this order to prevent deadlocks.
func (k StockKey) Compare(other StockKey) int {
	if c := bytes.Compare(k.DepotID[:], other.DepotID[:]); c != 0 {
		return c
	}
	if c := bytes.Compare(k.PositionID[:], other.PositionID[:]); c != 0 {
		return c
	}
	if c := bytes.Compare(k.ItemID[:], other.ItemID[:]); c != 0 {
		return c
	}
	return bytes.Compare(k.LotID[:], other.LotID[:])
}

// SortKeys sorts keys in place into canonical lock order.
func SortKeys(keys []StockKey) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Compare(keys[j]) < 0
	})
}

// LedgerEntry is one immutable row of the quantity ledger.
// Entries are append-only: corrections are new compensating entries,
// never updates of existing rows.
type LedgerEntry struct {
	LineID id.ID     `db:"line_id" json:"lineId"`
	Type   EntryType `db:"entry_type" json:"entryType"`

	StockKey

	// DeltaKilos is signed: negative for outbound, positive for inbound.
	DeltaKilos types.Quantity `db:"delta_kilos" json:"deltaKilos"`

	// DeltaUnidades is the optional secondary unit delta (piece count).
	DeltaUnidades *types.Quantity `db:"delta_unidades" json:"deltaUnidades,omitempty"`

	// RefID points at the document that produced the entry, if any.
	RefID   *id.ID `db:"ref_id" json:"refId,omitempty"`
	RefType string `db:"ref_type" json:"refType,omitempty"`

	Date      time.Time `db:"entry_date" json:"date"`
	UserID    string    `db:"user_id" json:"userId,omitempty"`
	Note      string    `db:"note" json:"note,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewLedgerEntry creates an entry with a generated line ID and creation time.
func NewLedgerEntry(entryType EntryType, key StockKey, deltaKilos types.Quantity) LedgerEntry {
	return LedgerEntry{
		LineID:     id.New(),
		Type:       entryType,
		StockKey:   key,
		DeltaKilos: deltaKilos,
		Date:       time.Now().UTC(),
		CreatedAt:  time.Now().UTC(),
	}
}

// StockBalance is the materialized current balance for one StockKey.
// It is always derivable by summing the ledger; the stored row exists
// so reads and negativity checks don't replay history.
type StockBalance struct {
	StockKey

	Kilos    types.Quantity `db:"kilos" json:"kilos"`
	Unidades types.Quantity `db:"unidades" json:"unidades"`

	LastMovementAt time.Time `db:"last_movement_at" json:"lastMovementAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// IsEmpty reports whether both quantities are zero.
func (b StockBalance) IsEmpty() bool {
	return b.Kilos.IsZero() && b.Unidades.IsZero()
}
