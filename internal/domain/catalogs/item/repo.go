package item

import (
	"context"

	"almacen/internal/domain"
)

// Repository defines the interface for Item persistence.
type Repository interface {
	domain.CatalogRepository[*Item]

	// ListWithAlerts returns active items that carry any alert
	// configuration (threshold or rule).
	ListWithAlerts(ctx context.Context) ([]*Item, error)
}
