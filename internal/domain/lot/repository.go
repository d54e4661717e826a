package lot

import (
	"context"

	"almacen/internal/core/id"
)

// Repository defines the interface for lot persistence.
type Repository interface {
	// Create inserts a new lot.
	Create(ctx context.Context, l *Lot) error

	// GetByID retrieves a lot by id.
	GetByID(ctx context.Context, lotID id.ID) (*Lot, error)

	// Find retrieves a lot by item + number + supplier.
	// supplierID nil matches lots without a supplier.
	Find(ctx context.Context, itemID id.ID, number string, supplierID *id.ID) (*Lot, error)

	// FindImplicit retrieves the implicit lot of an item.
	FindImplicit(ctx context.Context, itemID id.ID) (*Lot, error)

	// Rename changes the lot number label.
	Rename(ctx context.Context, lotID id.ID, number string) error

	// ListByItem returns all lots of an item, oldest first.
	ListByItem(ctx context.Context, itemID id.ID) ([]*Lot, error)
}
