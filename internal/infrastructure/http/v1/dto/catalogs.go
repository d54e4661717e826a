package dto

import (
	"time"

	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/catalogs/depot"
	"almacen/internal/domain/catalogs/item"
	"almacen/internal/domain/catalogs/partner"
	"almacen/internal/domain/lot"
)

// --- Items ---

// CreateItemRequest creates an item. Code is auto-generated when empty.
type CreateItemRequest struct {
	Code                string          `json:"code"`
	Name                string          `json:"name" binding:"required"`
	Category            string          `json:"category" binding:"required"`
	Description         *string         `json:"description,omitempty"`
	TrackLot            bool            `json:"trackLot"`
	TrackUnidades       bool            `json:"trackUnidades"`
	AlertThresholdKilos *types.Quantity `json:"alertThresholdKilos,omitempty"`
	AlertRule           *string         `json:"alertRule,omitempty"`
}

// ToDomain builds the item entity.
func (r CreateItemRequest) ToDomain() *item.Item {
	it := item.NewItem(r.Code, r.Name, item.Category(r.Category))
	it.Description = r.Description
	it.TrackLot = r.TrackLot
	it.TrackUnidades = r.TrackUnidades
	it.AlertThresholdKilos = r.AlertThresholdKilos
	it.AlertRule = r.AlertRule
	return it
}

// UpdateItemRequest updates an item. Nil fields are left untouched.
type UpdateItemRequest struct {
	Name                *string         `json:"name,omitempty"`
	Category            *string         `json:"category,omitempty"`
	Description         *string         `json:"description,omitempty"`
	TrackUnidades       *bool           `json:"trackUnidades,omitempty"`
	Active              *bool           `json:"active,omitempty"`
	AlertThresholdKilos *types.Quantity `json:"alertThresholdKilos,omitempty"`
	AlertRule           *string         `json:"alertRule,omitempty"`
	Version             int             `json:"version" binding:"required,min=1"`
}

// Apply copies the provided fields onto the existing item.
func (r UpdateItemRequest) Apply(existing *item.Item) *item.Item {
	if r.Name != nil {
		existing.Name = *r.Name
	}
	if r.Category != nil {
		existing.Category = item.Category(*r.Category)
	}
	if r.Description != nil {
		existing.Description = r.Description
	}
	if r.TrackUnidades != nil {
		existing.TrackUnidades = *r.TrackUnidades
	}
	if r.Active != nil {
		existing.Active = *r.Active
	}
	if r.AlertThresholdKilos != nil {
		existing.AlertThresholdKilos = r.AlertThresholdKilos
	}
	if r.AlertRule != nil {
		existing.AlertRule = r.AlertRule
	}
	existing.Version = r.Version
	return existing
}

// ItemResponse is the item API shape.
type ItemResponse struct {
	CatalogResponse
	Category            string          `json:"category"`
	Description         *string         `json:"description,omitempty"`
	TrackLot            bool            `json:"trackLot"`
	TrackUnidades       bool            `json:"trackUnidades"`
	Active              bool            `json:"active"`
	AlertThresholdKilos *types.Quantity `json:"alertThresholdKilos,omitempty"`
	AlertRule           *string         `json:"alertRule,omitempty"`
}

// FromItem converts an item to its response shape.
func FromItem(it *item.Item) ItemResponse {
	return ItemResponse{
		CatalogResponse:     FromCatalog(it.Catalog),
		Category:            string(it.Category),
		Description:         it.Description,
		TrackLot:            it.TrackLot,
		TrackUnidades:       it.TrackUnidades,
		Active:              it.Active,
		AlertThresholdKilos: it.AlertThresholdKilos,
		AlertRule:           it.AlertRule,
	}
}

// --- Depots ---

// CreateDepotRequest creates a depot.
type CreateDepotRequest struct {
	Code  string `json:"code" binding:"required"`
	Name  string `json:"name" binding:"required"`
	Type  string `json:"type" binding:"required"`
	Plant string `json:"plant,omitempty"`
}

// ToDomain builds the depot entity.
func (r CreateDepotRequest) ToDomain() *depot.Depot {
	d := depot.NewDepot(r.Code, r.Name, depot.DepotType(r.Type))
	d.Plant = r.Plant
	return d
}

// UpdateDepotRequest updates a depot.
type UpdateDepotRequest struct {
	Name                     *string `json:"name,omitempty"`
	Type                     *string `json:"type,omitempty"`
	Plant                    *string `json:"plant,omitempty"`
	DefaultInboundPositionID *id.ID  `json:"defaultInboundPositionId,omitempty"`
	Version                  int     `json:"version" binding:"required,min=1"`
}

// Apply copies the provided fields onto the existing depot.
func (r UpdateDepotRequest) Apply(existing *depot.Depot) *depot.Depot {
	if r.Name != nil {
		existing.Name = *r.Name
	}
	if r.Type != nil {
		existing.Type = depot.DepotType(*r.Type)
	}
	if r.Plant != nil {
		existing.Plant = *r.Plant
	}
	if r.DefaultInboundPositionID != nil {
		existing.DefaultInboundPositionID = r.DefaultInboundPositionID
	}
	existing.Version = r.Version
	return existing
}

// DepotResponse is the depot API shape.
type DepotResponse struct {
	CatalogResponse
	Type                     string  `json:"type"`
	Plant                    string  `json:"plant,omitempty"`
	DefaultInboundPositionID *string `json:"defaultInboundPositionId,omitempty"`
}

// FromDepot converts a depot to its response shape.
func FromDepot(d *depot.Depot) DepotResponse {
	resp := DepotResponse{
		CatalogResponse: FromCatalog(d.Catalog),
		Type:            string(d.Type),
		Plant:           d.Plant,
	}
	if d.DefaultInboundPositionID != nil {
		v := d.DefaultInboundPositionID.String()
		resp.DefaultInboundPositionID = &v
	}
	return resp
}

// --- Positions ---

// CreatePositionRequest creates a position inside a depot.
type CreatePositionRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
	Type string `json:"type" binding:"required"`
}

// PositionResponse is the position API shape.
type PositionResponse struct {
	CatalogResponse
	DepotID string `json:"depotId"`
	Type    string `json:"type"`
}

// FromPosition converts a position to its response shape.
func FromPosition(p *depot.Position) PositionResponse {
	return PositionResponse{
		CatalogResponse: FromCatalog(p.Catalog),
		DepotID:         p.DepotID.String(),
		Type:            string(p.Type),
	}
}

// --- Partners ---

// CreatePartnerRequest creates a partner.
type CreatePartnerRequest struct {
	Code       string  `json:"code"`
	Name       string  `json:"name" binding:"required"`
	IsClient   bool    `json:"isClient"`
	IsSupplier bool    `json:"isSupplier"`
	TaxID      *string `json:"taxId,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Email      *string `json:"email,omitempty"`
	Address    *string `json:"address,omitempty"`
}

// ToDomain builds the partner entity.
func (r CreatePartnerRequest) ToDomain() *partner.Partner {
	p := partner.NewPartner(r.Code, r.Name)
	p.IsClient = r.IsClient
	p.IsSupplier = r.IsSupplier
	p.TaxID = r.TaxID
	p.Phone = r.Phone
	p.Email = r.Email
	p.Address = r.Address
	return p
}

// UpdatePartnerRequest updates a partner.
type UpdatePartnerRequest struct {
	Name       *string `json:"name,omitempty"`
	IsClient   *bool   `json:"isClient,omitempty"`
	IsSupplier *bool   `json:"isSupplier,omitempty"`
	TaxID      *string `json:"taxId,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Email      *string `json:"email,omitempty"`
	Address    *string `json:"address,omitempty"`
	Version    int     `json:"version" binding:"required,min=1"`
}

// Apply copies the provided fields onto the existing partner.
func (r UpdatePartnerRequest) Apply(existing *partner.Partner) *partner.Partner {
	if r.Name != nil {
		existing.Name = *r.Name
	}
	if r.IsClient != nil {
		existing.IsClient = *r.IsClient
	}
	if r.IsSupplier != nil {
		existing.IsSupplier = *r.IsSupplier
	}
	if r.TaxID != nil {
		existing.TaxID = r.TaxID
	}
	if r.Phone != nil {
		existing.Phone = r.Phone
	}
	if r.Email != nil {
		existing.Email = r.Email
	}
	if r.Address != nil {
		existing.Address = r.Address
	}
	existing.Version = r.Version
	return existing
}

// PartnerResponse is the partner API shape.
type PartnerResponse struct {
	CatalogResponse
	IsClient   bool    `json:"isClient"`
	IsSupplier bool    `json:"isSupplier"`
	TaxID      *string `json:"taxId,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Email      *string `json:"email,omitempty"`
	Address    *string `json:"address,omitempty"`
}

// FromPartner converts a partner to its response shape.
func FromPartner(p *partner.Partner) PartnerResponse {
	return PartnerResponse{
		CatalogResponse: FromCatalog(p.Catalog),
		IsClient:        p.IsClient,
		IsSupplier:      p.IsSupplier,
		TaxID:           p.TaxID,
		Phone:           p.Phone,
		Email:           p.Email,
		Address:         p.Address,
	}
}

// --- Lots ---

// RenameLotRequest changes the lot number label.
type RenameLotRequest struct {
	Number string `json:"number" binding:"required"`
}

// RenameBatchNumberRequest is the stock-view variant of lot rename.
type RenameBatchNumberRequest struct {
	LotID  id.ID  `json:"lotId" binding:"required"`
	Number string `json:"number" binding:"required"`
}

// LotResponse is the lot API shape.
type LotResponse struct {
	ID         string    `json:"id"`
	ItemID     string    `json:"itemId"`
	Number     string    `json:"number"`
	SupplierID *string   `json:"supplierId,omitempty"`
	Implicit   bool      `json:"implicit"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FromLot converts a lot to its response shape.
func FromLot(l *lot.Lot) LotResponse {
	resp := LotResponse{
		ID:        l.ID.String(),
		ItemID:    l.ItemID.String(),
		Number:    l.Number,
		Implicit:  l.Implicit,
		CreatedAt: l.CreatedAt,
	}
	if l.SupplierID != nil {
		v := l.SupplierID.String()
		resp.SupplierID = &v
	}
	return resp
}
