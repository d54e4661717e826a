package memory

import (
	"context"
	"sort"

	"almacen/internal/core/apperror"
	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/domain/catalogs/depot"
	"almacen/internal/domain/catalogs/item"
	"almacen/internal/domain/catalogs/partner"
)

// --- Items ---

// ItemRepo implements item.Repository over the store.
type ItemRepo struct {
	catalogTable[*item.Item]
}

// NewItemRepo creates the item repository.
func NewItemRepo(store *Store) *ItemRepo {
	return &ItemRepo{catalogTable[*item.Item]{
		store: store,
		name:  "item",
		rows:  func() map[id.ID]*item.Item { return store.items },
		meta:  func(it *item.Item) *entity.Catalog { return &it.Catalog },
		clone: func(it *item.Item) *item.Item { c := *it; return &c },
	}}
}

// ListWithAlerts returns active items with alert configuration.
func (r *ItemRepo) ListWithAlerts(ctx context.Context) ([]*item.Item, error) {
	var out []*item.Item
	err := r.store.locked(ctx, func() error {
		for _, it := range r.store.items {
			if it.DeletionMark || !it.Active || !it.HasAlert() {
				continue
			}
			c := *it
			out = append(out, &c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// --- Depots ---

// DepotRepo implements depot.Repository over the store.
type DepotRepo struct {
	catalogTable[*depot.Depot]
}

// NewDepotRepo creates the depot repository.
func NewDepotRepo(store *Store) *DepotRepo {
	return &DepotRepo{catalogTable[*depot.Depot]{
		store: store,
		name:  "depot",
		rows:  func() map[id.ID]*depot.Depot { return store.depots },
		meta:  func(d *depot.Depot) *entity.Catalog { return &d.Catalog },
		clone: func(d *depot.Depot) *depot.Depot { c := *d; return &c },
	}}
}

// GetByName retrieves a depot by its unique name.
func (r *DepotRepo) GetByName(ctx context.Context, name string) (*depot.Depot, error) {
	var out *depot.Depot
	err := r.store.locked(ctx, func() error {
		for _, d := range r.store.depots {
			if d.Name == name && !d.DeletionMark {
				c := *d
				out = &c
				return nil
			}
		}
		return apperror.NewNotFound("depot", name)
	})
	return out, err
}

// --- Positions ---

// PositionRepo implements depot.PositionRepository over the store.
type PositionRepo struct {
	catalogTable[*depot.Position]
}

// NewPositionRepo creates the position repository.
func NewPositionRepo(store *Store) *PositionRepo {
	return &PositionRepo{catalogTable[*depot.Position]{
		store: store,
		name:  "position",
		rows:  func() map[id.ID]*depot.Position { return store.positions },
		meta:  func(p *depot.Position) *entity.Catalog { return &p.Catalog },
		clone: func(p *depot.Position) *depot.Position { c := *p; return &c },
	}}
}

// Create checks code uniqueness within the depot, not globally.
func (r *PositionRepo) Create(ctx context.Context, p *depot.Position) error {
	return r.store.locked(ctx, func() error {
		for _, existing := range r.store.positions {
			if existing.DepotID == p.DepotID && existing.Code == p.Code {
				return apperror.NewDuplicate("position", "code", p.Code)
			}
		}
		c := *p
		r.store.positions[p.ID] = &c
		return nil
	})
}

// ListByDepot returns all positions of a depot ordered by code.
func (r *PositionRepo) ListByDepot(ctx context.Context, depotID id.ID) ([]*depot.Position, error) {
	var out []*depot.Position
	err := r.store.locked(ctx, func() error {
		for _, p := range r.store.positions {
			if p.DepotID != depotID || p.DeletionMark {
				continue
			}
			c := *p
			out = append(out, &c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// GetByDepotAndCode retrieves a position by code within a depot.
func (r *PositionRepo) GetByDepotAndCode(ctx context.Context, depotID id.ID, code string) (*depot.Position, error) {
	var out *depot.Position
	err := r.store.locked(ctx, func() error {
		for _, p := range r.store.positions {
			if p.DepotID == depotID && p.Code == code {
				c := *p
				out = &c
				return nil
			}
		}
		return apperror.NewNotFound("position", code)
	})
	return out, err
}

// --- Partners ---

// PartnerRepo implements partner.Repository over the store.
type PartnerRepo struct {
	catalogTable[*partner.Partner]
}

// NewPartnerRepo creates the partner repository.
func NewPartnerRepo(store *Store) *PartnerRepo {
	return &PartnerRepo{catalogTable[*partner.Partner]{
		store: store,
		name:  "partner",
		rows:  func() map[id.ID]*partner.Partner { return store.partners },
		meta:  func(p *partner.Partner) *entity.Catalog { return &p.Catalog },
		clone: func(p *partner.Partner) *partner.Partner { c := *p; return &c },
	}}
}

// GetByName retrieves a partner by exact name.
func (r *PartnerRepo) GetByName(ctx context.Context, name string) (*partner.Partner, error) {
	var out *partner.Partner
	err := r.store.locked(ctx, func() error {
		for _, p := range r.store.partners {
			if p.Name == name && !p.DeletionMark {
				c := *p
				out = &c
				return nil
			}
		}
		return apperror.NewNotFound("partner", name)
	})
	return out, err
}
