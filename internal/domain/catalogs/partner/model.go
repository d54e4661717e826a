// Package partner provides the Partner catalog: the clients shipments go
// to and the suppliers receipts come from. One partner may be both.
package partner

import (
	"context"

	"almacen/internal/core/apperror"
	"almacen/internal/core/entity"
)

// Partner represents a client and/or supplier.
type Partner struct {
	entity.Catalog

	// IsClient indicates the partner can receive outbound shipments
	IsClient bool `db:"is_client" json:"isClient"`

	// IsSupplier indicates the partner can be a receipt source
	IsSupplier bool `db:"is_supplier" json:"isSupplier"`

	// TaxID is the fiscal identifier (CUIT)
	TaxID *string `db:"tax_id" json:"taxId,omitempty"`

	// Contact fields
	Phone   *string `db:"phone" json:"phone,omitempty"`
	Email   *string `db:"email" json:"email,omitempty"`
	Address *string `db:"address" json:"address,omitempty"`
}

// NewPartner creates a new Partner with required fields.
func NewPartner(code, name string) *Partner {
	return &Partner{
		Catalog: entity.NewCatalog(code, name),
	}
}

// Validate implements entity.Validatable interface.
func (p *Partner) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !p.IsClient && !p.IsSupplier {
		return apperror.NewValidation("partner must be a client, a supplier, or both").
			WithDetail("field", "isClient")
	}

	return nil
}
