package memory

import (
	"context"
	"sort"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/domain/lot"
)

// LotRepo implements lot.Repository over the store.
type LotRepo struct {
	store *Store
}

// NewLotRepo creates the lot repository.
func NewLotRepo(store *Store) *LotRepo {
	return &LotRepo{store: store}
}

// Create inserts a new lot, enforcing (item, number, supplier) uniqueness.
func (r *LotRepo) Create(ctx context.Context, l *lot.Lot) error {
	return r.store.locked(ctx, func() error {
		for _, existing := range r.store.lots {
			if existing.ItemID == l.ItemID && existing.Number == l.Number &&
				sameSupplier(existing.SupplierID, l.SupplierID) {
				return apperror.NewDuplicate("lot", "number", l.Number)
			}
		}
		c := *l
		r.store.lots[l.ID] = &c
		return nil
	})
}

// GetByID retrieves a lot by id.
func (r *LotRepo) GetByID(ctx context.Context, lotID id.ID) (*lot.Lot, error) {
	var out *lot.Lot
	err := r.store.locked(ctx, func() error {
		l, ok := r.store.lots[lotID]
		if !ok {
			return apperror.NewNotFound("lot", lotID.String())
		}
		c := *l
		out = &c
		return nil
	})
	return out, err
}

// Find retrieves a lot by item + number + supplier.
func (r *LotRepo) Find(ctx context.Context, itemID id.ID, number string, supplierID *id.ID) (*lot.Lot, error) {
	var out *lot.Lot
	err := r.store.locked(ctx, func() error {
		for _, l := range r.store.lots {
			if l.ItemID == itemID && l.Number == number && sameSupplier(l.SupplierID, supplierID) {
				c := *l
				out = &c
				return nil
			}
		}
		return apperror.NewNotFound("lot", number)
	})
	return out, err
}

// FindImplicit retrieves the implicit lot of an item.
func (r *LotRepo) FindImplicit(ctx context.Context, itemID id.ID) (*lot.Lot, error) {
	var out *lot.Lot
	err := r.store.locked(ctx, func() error {
		for _, l := range r.store.lots {
			if l.ItemID == itemID && l.Implicit {
				c := *l
				out = &c
				return nil
			}
		}
		return apperror.NewNotFound("lot", lot.ImplicitNumber)
	})
	return out, err
}

// Rename changes the lot number label.
func (r *LotRepo) Rename(ctx context.Context, lotID id.ID, number string) error {
	return r.store.locked(ctx, func() error {
		l, ok := r.store.lots[lotID]
		if !ok {
			return apperror.NewNotFound("lot", lotID.String())
		}
		c := *l
		c.Number = number
		r.store.lots[lotID] = &c
		return nil
	})
}

// ListByItem returns all lots of an item, oldest first.
func (r *LotRepo) ListByItem(ctx context.Context, itemID id.ID) ([]*lot.Lot, error) {
	var out []*lot.Lot
	err := r.store.locked(ctx, func() error {
		for _, l := range r.store.lots {
			if l.ItemID == itemID {
				c := *l
				out = append(out, &c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func sameSupplier(a, b *id.ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
