// Package outbound provides the outbound shipment document (remito de
// salida) and the preview-then-commit engine around the FIFO planner.
package outbound

import (
	"context"
	"time"

	"almacen/internal/core/apperror"
	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
)

// DocumentType identifies shipment ledger references.
const DocumentType = "OutboundShipment"

// Shipment represents a committed outbound shipment. It only ever exists
// committed: its lines and ledger entries are written in one transaction.
type Shipment struct {
	entity.Document

	// ClientID references the partner the goods went to, when known
	ClientID *id.ID `db:"client_id" json:"clientId,omitempty"`

	// ClientName is the denormalized display name (kept even if the
	// partner record changes later)
	ClientName string `db:"client_name" json:"clientName"`

	// OrderRef is the client's order reference
	OrderRef *string `db:"order_ref" json:"orderRef,omitempty"`

	// TotalKilos is the sum of line kilos
	TotalKilos types.Quantity `db:"total_kilos" json:"totalKilos"`

	// Table part: shipped lines in FIFO order
	Lines []ShipmentLine `db:"-" json:"lines"`
}

// ShipmentLine is one committed draw from one stock bucket.
type ShipmentLine struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	entity.StockKey

	// LotNumber as it read at commit time
	LotNumber string `db:"lot_number" json:"lotNumber"`

	Kilos    types.Quantity  `db:"kilos" json:"kilos"`
	Unidades *types.Quantity `db:"unidades" json:"unidades,omitempty"`
}

// NewShipment creates a new shipment document.
func NewShipment(clientName string) *Shipment {
	return &Shipment{
		Document:   entity.NewDocument(),
		ClientName: clientName,
		Lines:      make([]ShipmentLine, 0),
	}
}

// AddLine appends a line and recalculates the total.
func (s *Shipment) AddLine(key entity.StockKey, lotNumber string, kilos types.Quantity, unidades *types.Quantity) {
	s.Lines = append(s.Lines, ShipmentLine{
		LineID:    id.New(),
		LineNo:    len(s.Lines) + 1,
		StockKey:  key,
		LotNumber: lotNumber,
		Kilos:     kilos,
		Unidades:  unidades,
	})
	s.TotalKilos += kilos
}

// Validate implements entity.Validatable.
func (s *Shipment) Validate(ctx context.Context) error {
	if err := s.Document.Validate(ctx); err != nil {
		return err
	}

	if s.ClientName == "" && s.ClientID == nil {
		return apperror.NewValidation("client is required").
			WithDetail("field", "clientName")
	}

	if len(s.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range s.Lines {
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

// CommitMeta carries the business fields of a commit.
type CommitMeta struct {
	Date       time.Time
	ClientID   *id.ID
	ClientName string
	OrderRef   *string
	Note       string
}

// CommitOptions controls conflict handling at commit time.
type CommitOptions struct {
	// Replan re-runs the planner inside the commit transaction instead
	// of failing fast when the previewed plan went stale.
	Replan bool
}
