package inbound

import (
	"context"
	"time"

	"almacen/internal/core/id"
	"almacen/internal/domain"
	"almacen/internal/domain/catalogs/depot"
	"almacen/internal/domain/catalogs/item"
	"almacen/internal/domain/catalogs/partner"
	"almacen/internal/domain/lot"
)

// Repository defines operations for receipt documents.
type Repository interface {
	Create(ctx context.Context, doc *Receipt) error
	GetByID(ctx context.Context, docID id.ID) (*Receipt, error)
	GetByNumber(ctx context.Context, number string) (*Receipt, error)

	GetLines(ctx context.Context, docID id.ID) ([]ReceiptLine, error)
	SaveLines(ctx context.Context, docID id.ID, lines []ReceiptLine) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Receipt], error)
}

// ListFilter for filtering receipts.
type ListFilter struct {
	domain.ListFilter

	SupplierID *id.ID
	DepotID    *id.ID
	DateFrom   *time.Time
	DateTo     *time.Time
}

// The receive engine depends on narrow views of the catalogs, not the
// full services, so tests can fake exactly what resolution needs.

// ItemCatalog resolves and creates items.
type ItemCatalog interface {
	GetByID(ctx context.Context, itemID id.ID) (*item.Item, error)
	GetByCode(ctx context.Context, code string) (*item.Item, error)
	Create(ctx context.Context, it *item.Item) error
}

// PartnerCatalog resolves suppliers.
type PartnerCatalog interface {
	GetByID(ctx context.Context, partnerID id.ID) (*partner.Partner, error)
	GetOrCreateSupplier(ctx context.Context, name string) (*partner.Partner, error)
}

// DepotCatalog resolves depots and positions.
type DepotCatalog interface {
	GetByID(ctx context.Context, depotID id.ID) (*depot.Depot, error)
	GetPosition(ctx context.Context, positionID id.ID) (*depot.Position, error)
}

// LotRegistry resolves lots, creating them on first receipt.
type LotRegistry interface {
	Resolve(ctx context.Context, itemID id.ID, number string, supplierID *id.ID) (*lot.Lot, error)
	ResolveImplicit(ctx context.Context, itemID id.ID) (*lot.Lot, error)
}

// NumberGenerator issues sequential document numbers for a prefix.
type NumberGenerator interface {
	Next(ctx context.Context, prefix string) (string, error)
}
