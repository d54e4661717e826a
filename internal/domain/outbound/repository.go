package outbound

import (
	"context"
	"time"

	"almacen/internal/core/id"
	"almacen/internal/domain"
	"almacen/internal/domain/allocation"
)

// Repository defines operations for shipment documents.
type Repository interface {
	Create(ctx context.Context, doc *Shipment) error
	GetByID(ctx context.Context, docID id.ID) (*Shipment, error)
	GetByNumber(ctx context.Context, number string) (*Shipment, error)
	Delete(ctx context.Context, docID id.ID) error

	GetLines(ctx context.Context, docID id.ID) ([]ShipmentLine, error)
	SaveLines(ctx context.Context, docID id.ID, lines []ShipmentLine) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Shipment], error)
}

// ListFilter for filtering shipments.
type ListFilter struct {
	domain.ListFilter

	ClientID *id.ID
	ItemID   *id.ID
	DateFrom *time.Time
	DateTo   *time.Time
}

// PlanArchiver stores the exact plan a shipment was committed from.
// Snapshots are for audit only and never read back by the engine.
type PlanArchiver interface {
	// Archive stores the committed plan snapshot for a shipment.
	Archive(ctx context.Context, shipmentID id.ID, plan *allocation.Plan) error

	// GetPlan retrieves the archived snapshot.
	GetPlan(ctx context.Context, shipmentID id.ID) (*allocation.Plan, error)
}

// NumberGenerator issues sequential document numbers for a prefix.
type NumberGenerator interface {
	Next(ctx context.Context, prefix string) (string, error)
}
