// Package lot provides the lot (batch) registry. A lot is identified by
// its id, never by its number: the number is a mutable label that can be
// renamed without touching ledger history.
package lot

import (
	"context"
	"strings"
	"time"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
)

// ImplicitNumber is the label of the single implicit lot created for
// items that are not lot-tracked.
const ImplicitNumber = "SIN-LOTE"

// Lot is one batch of one item.
type Lot struct {
	ID id.ID `db:"id" json:"id"`

	// ItemID is the owning item; a lot never spans items
	ItemID id.ID `db:"item_id" json:"itemId"`

	// Number is the human label, unique per (item, supplier). Mutable.
	Number string `db:"number" json:"number"`

	// SupplierID is the partner the lot came from, when known
	SupplierID *id.ID `db:"supplier_id" json:"supplierId,omitempty"`

	// Implicit marks the per-item placeholder lot of non-tracked items
	Implicit bool `db:"is_implicit" json:"implicit"`

	// CreatedAt drives FIFO ordering: older lots are consumed first
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewLot creates a lot with a generated time-ordered id.
func NewLot(itemID id.ID, number string, supplierID *id.ID) *Lot {
	return &Lot{
		ID:         id.New(),
		ItemID:     itemID,
		Number:     strings.TrimSpace(number),
		SupplierID: supplierID,
		CreatedAt:  time.Now().UTC(),
	}
}

// Validate checks lot invariants.
func (l *Lot) Validate(ctx context.Context) error {
	if id.IsNil(l.ItemID) {
		return apperror.NewValidation("item is required").
			WithDetail("field", "itemId")
	}
	if strings.TrimSpace(l.Number) == "" {
		return apperror.NewValidation("lot number is required").
			WithDetail("field", "number")
	}
	return nil
}
