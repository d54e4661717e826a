// Package inbound provides the inbound receipt document (remito de
// entrada) and the receive engine that resolves suppliers, items and lots
// before appending positive ledger entries.
package inbound

import (
	"context"
	"time"

	"almacen/internal/core/apperror"
	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
)

// DocumentType identifies receipt ledger references.
const DocumentType = "InboundReceipt"

// Receipt represents a committed inbound receipt.
type Receipt struct {
	entity.Document

	// SupplierID references the source partner
	SupplierID *id.ID `db:"supplier_id" json:"supplierId,omitempty"`

	// SupplierName is the denormalized display name
	SupplierName string `db:"supplier_name" json:"supplierName"`

	// DepotID is the receiving depot
	DepotID id.ID `db:"depot_id" json:"depotId"`

	// SupplierDocRef is the supplier's own document reference
	SupplierDocRef *string `db:"supplier_doc_ref" json:"supplierDocRef,omitempty"`

	// TotalKilos is the sum of line kilos
	TotalKilos types.Quantity `db:"total_kilos" json:"totalKilos"`

	// Table part: received lines
	Lines []ReceiptLine `db:"-" json:"lines"`
}

// ReceiptLine is one received quantity into one stock bucket.
type ReceiptLine struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	entity.StockKey

	LotNumber string `db:"lot_number" json:"lotNumber"`

	Kilos    types.Quantity  `db:"kilos" json:"kilos"`
	Unidades *types.Quantity `db:"unidades" json:"unidades,omitempty"`
}

// NewReceipt creates a new receipt document.
func NewReceipt(depotID id.ID, supplierName string) *Receipt {
	return &Receipt{
		Document:     entity.NewDocument(),
		DepotID:      depotID,
		SupplierName: supplierName,
		Lines:        make([]ReceiptLine, 0),
	}
}

// AddLine appends a line and recalculates the total.
func (r *Receipt) AddLine(key entity.StockKey, lotNumber string, kilos types.Quantity, unidades *types.Quantity) {
	r.Lines = append(r.Lines, ReceiptLine{
		LineID:    id.New(),
		LineNo:    len(r.Lines) + 1,
		StockKey:  key,
		LotNumber: lotNumber,
		Kilos:     kilos,
		Unidades:  unidades,
	})
	r.TotalKilos += kilos
}

// Validate implements entity.Validatable.
func (r *Receipt) Validate(ctx context.Context) error {
	if err := r.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(r.DepotID) {
		return apperror.NewValidation("depot is required").
			WithDetail("field", "depotId")
	}

	if len(r.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range r.Lines {
		if id.IsNil(line.ItemID) || id.IsNil(line.LotID) {
			return apperror.NewValidation("line stock key is incomplete").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !line.Kilos.IsPositive() {
			return apperror.NewValidation("line kilos must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// ReceiveRequest is the external shape of a receipt before resolution.
type ReceiveRequest struct {
	// Supplier by id or by name; an unknown name creates the partner.
	SupplierID   *id.ID
	SupplierName string

	DepotID        id.ID
	Date           time.Time
	SupplierDocRef *string
	Note           string

	Lines []ReceiveLine
}

// ReceiveLine names an item by id or code; an unknown code with a
// description creates the item inline.
type ReceiveLine struct {
	ItemID      *id.ID
	ItemCode    string
	Description string
	Category    string

	// LotNumber is required for lot-tracked items, ignored otherwise
	LotNumber string

	// PositionID overrides the depot's default inbound position
	PositionID *id.ID

	Kilos    types.Quantity
	Unidades *types.Quantity
}
