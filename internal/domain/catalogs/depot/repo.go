package depot

import (
	"context"

	"almacen/internal/core/id"
	"almacen/internal/domain"
)

// Repository defines the interface for Depot persistence.
type Repository interface {
	domain.CatalogRepository[*Depot]

	// GetByName retrieves a depot by its unique name.
	GetByName(ctx context.Context, name string) (*Depot, error)
}

// PositionRepository defines the interface for Position persistence.
type PositionRepository interface {
	domain.CatalogRepository[*Position]

	// ListByDepot returns all positions of a depot.
	ListByDepot(ctx context.Context, depotID id.ID) ([]*Position, error)

	// GetByDepotAndCode retrieves a position by its code within a depot.
	GetByDepotAndCode(ctx context.Context, depotID id.ID, code string) (*Position, error)
}
