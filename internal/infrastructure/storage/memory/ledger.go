package memory

import (
	"context"
	"sort"

	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/domain/ledger"
)

// LedgerRepo implements ledger.Repository over the store.
type LedgerRepo struct {
	store *Store
}

// NewLedgerRepo creates the ledger repository.
func NewLedgerRepo(store *Store) *LedgerRepo {
	return &LedgerRepo{store: store}
}

// Append inserts entries. The slice is copied; entries are immutable
// afterwards.
func (r *LedgerRepo) Append(ctx context.Context, entries []entity.LedgerEntry) error {
	return r.store.locked(ctx, func() error {
		r.store.entries = append(r.store.entries, entries...)
		return nil
	})
}

// Query returns enriched entries, newest business date first.
func (r *LedgerRepo) Query(ctx context.Context, f ledger.Filter) ([]ledger.EntryView, error) {
	var out []ledger.EntryView
	err := r.store.locked(ctx, func() error {
		for _, e := range r.store.entries {
			if f.DepotID != nil && e.DepotID != *f.DepotID {
				continue
			}
			if f.PositionID != nil && e.PositionID != *f.PositionID {
				continue
			}
			if f.ItemID != nil && e.ItemID != *f.ItemID {
				continue
			}
			if f.LotID != nil && e.LotID != *f.LotID {
				continue
			}
			if f.Type != nil && e.Type != *f.Type {
				continue
			}
			if f.RefID != nil && (e.RefID == nil || *e.RefID != *f.RefID) {
				continue
			}
			if f.From != nil && e.Date.Before(*f.From) {
				continue
			}
			if f.To != nil && e.Date.After(*f.To) {
				continue
			}
			out = append(out, r.enrich(e))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			out = nil
		} else {
			out = out[f.Offset:]
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *LedgerRepo) enrich(e entity.LedgerEntry) ledger.EntryView {
	view := ledger.EntryView{LedgerEntry: e}
	if it, ok := r.store.items[e.ItemID]; ok {
		view.ItemCode = it.Code
		view.ItemName = it.Name
	}
	if l, ok := r.store.lots[e.LotID]; ok {
		view.LotNumber = l.Number
	}
	if p, ok := r.store.positions[e.PositionID]; ok {
		view.PositionCode = p.Code
	}
	if d, ok := r.store.depots[e.DepotID]; ok {
		view.DepotName = d.Name
	}
	return view
}

// SumByKey folds the whole ledger into per-key totals.
func (r *LedgerRepo) SumByKey(ctx context.Context) ([]ledger.KeySum, error) {
	sums := make(map[entity.StockKey]*ledger.KeySum)
	err := r.store.locked(ctx, func() error {
		for _, e := range r.store.entries {
			sum, ok := sums[e.StockKey]
			if !ok {
				sum = &ledger.KeySum{StockKey: e.StockKey}
				sums[e.StockKey] = sum
			}
			sum.Kilos += e.DeltaKilos
			if e.DeltaUnidades != nil {
				sum.Unidades += *e.DeltaUnidades
			}
			if e.Date.After(sum.LastMovementAt) {
				sum.LastMovementAt = e.Date
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]ledger.KeySum, 0, len(sums))
	for _, sum := range sums {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StockKey.Compare(out[j].StockKey) < 0
	})
	return out, nil
}

// ListByRef returns the entries a document produced, oldest first.
func (r *LedgerRepo) ListByRef(ctx context.Context, refID id.ID) ([]entity.LedgerEntry, error) {
	var out []entity.LedgerEntry
	err := r.store.locked(ctx, func() error {
		for _, e := range r.store.entries {
			if e.RefID != nil && *e.RefID == refID {
				out = append(out, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
