// Package depot provides the Depot catalog and its storage positions.
// A depot is a physical warehouse area; positions are the addressable
// slots inside it where stock actually sits.
package depot

import (
	"context"

	"almacen/internal/core/apperror"
	"almacen/internal/core/entity"
	"almacen/internal/core/id"
)

// DepotType defines how a depot participates in picking.
type DepotType string

const (
	TypeStorage DepotType = "storage" // bulk storage, not FIFO-eligible
	TypePicking DepotType = "picking" // picking area, FIFO-eligible
	TypeMixed   DepotType = "mixed"   // both kinds of positions
)

// PositionType defines the role of a single position.
type PositionType string

const (
	PositionStorage PositionType = "storage"
	PositionPicking PositionType = "picking"
)

// Depot represents a warehouse area.
type Depot struct {
	entity.Catalog

	// Type defines the depot category
	Type DepotType `db:"type" json:"type"`

	// Plant is a free-form plant/site label
	Plant string `db:"plant" json:"plant,omitempty"`

	// DefaultInboundPositionID is where receipts land when the caller
	// does not name a position (the "ENTRADA" convention, explicit)
	DefaultInboundPositionID *id.ID `db:"default_inbound_position_id" json:"defaultInboundPositionId,omitempty"`
}

// NewDepot creates a new Depot with required fields.
func NewDepot(code, name string, depotType DepotType) *Depot {
	return &Depot{
		Catalog: entity.NewCatalog(code, name),
		Type:    depotType,
	}
}

// Validate implements entity.Validatable interface.
func (d *Depot) Validate(ctx context.Context) error {
	if err := d.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !isValidDepotType(d.Type) {
		return apperror.NewValidation("invalid depot type").
			WithDetail("field", "type").
			WithDetail("value", string(d.Type))
	}

	return nil
}

// Position is one addressable slot inside a depot.
// Code is unique within the owning depot.
type Position struct {
	entity.Catalog

	// DepotID is the owning depot
	DepotID id.ID `db:"depot_id" json:"depotId"`

	// Type defines whether the position is FIFO-eligible
	Type PositionType `db:"type" json:"type"`
}

// NewPosition creates a new Position with required fields.
func NewPosition(depotID id.ID, code, name string, posType PositionType) *Position {
	return &Position{
		Catalog: entity.NewCatalog(code, name),
		DepotID: depotID,
		Type:    posType,
	}
}

// Validate implements entity.Validatable interface.
func (p *Position) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(p.DepotID) {
		return apperror.NewValidation("depot is required").
			WithDetail("field", "depotId")
	}

	if p.Type != PositionStorage && p.Type != PositionPicking {
		return apperror.NewValidation("invalid position type").
			WithDetail("field", "type").
			WithDetail("value", string(p.Type))
	}

	return nil
}

// IsPicking reports whether the position participates in FIFO allocation.
func (p *Position) IsPicking() bool {
	return p.Type == PositionPicking
}

// --- Validation Helpers ---

func isValidDepotType(t DepotType) bool {
	switch t {
	case TypeStorage, TypePicking, TypeMixed:
		return true
	}
	return false
}
