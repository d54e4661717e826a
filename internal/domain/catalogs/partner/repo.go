package partner

import (
	"context"

	"almacen/internal/domain"
)

// Repository defines the interface for Partner persistence.
type Repository interface {
	domain.CatalogRepository[*Partner]

	// GetByName retrieves a partner by exact name.
	GetByName(ctx context.Context, name string) (*Partner, error)
}
