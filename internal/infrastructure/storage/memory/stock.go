package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"almacen/internal/core/apperror"
	"almacen/internal/core/entity"
	"almacen/internal/core/types"
	"almacen/internal/domain/allocation"
	"almacen/internal/domain/catalogs/depot"
	"almacen/internal/domain/ledger"
	"almacen/internal/domain/stock"
)

// StockRepo implements stock.Repository over the store.
type StockRepo struct {
	store *Store
}

// NewStockRepo creates the stock repository.
func NewStockRepo(store *Store) *StockRepo {
	return &StockRepo{store: store}
}

// GetBalance returns the balance for a key; absent rows read as zero.
func (r *StockRepo) GetBalance(ctx context.Context, key entity.StockKey) (entity.StockBalance, error) {
	var out entity.StockBalance
	err := r.store.locked(ctx, func() error {
		if bal, ok := r.store.balances[key]; ok {
			out = bal
		} else {
			out = entity.StockBalance{StockKey: key}
		}
		return nil
	})
	return out, err
}

// GetBalancesForUpdate returns balances in the order given. The memory
// store has no row locks; the transaction mutex already serializes.
func (r *StockRepo) GetBalancesForUpdate(ctx context.Context, keys []entity.StockKey) ([]entity.StockBalance, error) {
	out := make([]entity.StockBalance, 0, len(keys))
	err := r.store.locked(ctx, func() error {
		for _, key := range keys {
			if bal, ok := r.store.balances[key]; ok {
				out = append(out, bal)
			} else {
				out = append(out, entity.StockBalance{StockKey: key})
			}
		}
		return nil
	})
	return out, err
}

// ApplyDelta upserts the balance row, rejecting a negative result.
func (r *StockRepo) ApplyDelta(ctx context.Context, key entity.StockKey, dKilos types.Quantity, dUnidades *types.Quantity, at time.Time) error {
	return r.store.locked(ctx, func() error {
		bal, ok := r.store.balances[key]
		if !ok {
			bal = entity.StockBalance{StockKey: key}
		}

		newKilos := bal.Kilos + dKilos
		newUnidades := bal.Unidades
		if dUnidades != nil {
			newUnidades += *dUnidades
		}
		if newKilos.IsNegative() || newUnidades.IsNegative() {
			return apperror.NewInvariantViolation("balance would become negative").
				WithDetail("item_id", key.ItemID.String()).
				WithDetail("lot_id", key.LotID.String()).
				WithDetail("requested", dKilos.Abs().String()).
				WithDetail("available", bal.Kilos.String())
		}

		bal.Kilos = newKilos
		bal.Unidades = newUnidades
		bal.LastMovementAt = at
		bal.UpdatedAt = time.Now().UTC()
		r.store.balances[key] = bal
		return nil
	})
}

// QueryBalances returns balances enriched with descriptors.
func (r *StockRepo) QueryBalances(ctx context.Context, f stock.BalanceFilter) ([]stock.BalanceView, error) {
	var out []stock.BalanceView
	err := r.store.locked(ctx, func() error {
		for key, bal := range r.store.balances {
			if !f.IncludeZero && bal.IsEmpty() {
				continue
			}
			if !r.matches(key, f) {
				continue
			}
			out = append(out, r.enrich(bal))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ItemCode != out[j].ItemCode {
			return out[i].ItemCode < out[j].ItemCode
		}
		return out[i].StockKey.Compare(out[j].StockKey) < 0
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

func (r *StockRepo) matches(key entity.StockKey, f stock.BalanceFilter) bool {
	if f.DepotID != nil && key.DepotID != *f.DepotID {
		return false
	}
	if f.PositionID != nil && key.PositionID != *f.PositionID {
		return false
	}
	if f.ItemID != nil && key.ItemID != *f.ItemID {
		return false
	}
	if f.LotID != nil && key.LotID != *f.LotID {
		return false
	}
	if f.SupplierID != nil {
		l, ok := r.store.lots[key.LotID]
		if !ok || l.SupplierID == nil || *l.SupplierID != *f.SupplierID {
			return false
		}
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		matched := false
		if it, ok := r.store.items[key.ItemID]; ok {
			matched = strings.Contains(strings.ToLower(it.Code), needle) ||
				strings.Contains(strings.ToLower(it.Name), needle)
		}
		if !matched {
			if l, ok := r.store.lots[key.LotID]; ok {
				matched = strings.Contains(strings.ToLower(l.Number), needle)
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func (r *StockRepo) enrich(bal entity.StockBalance) stock.BalanceView {
	view := stock.BalanceView{StockBalance: bal}
	if it, ok := r.store.items[bal.ItemID]; ok {
		view.ItemCode = it.Code
		view.ItemName = it.Name
		view.ItemCategory = string(it.Category)
	}
	if l, ok := r.store.lots[bal.LotID]; ok {
		view.LotNumber = l.Number
		if l.SupplierID != nil {
			if p, ok := r.store.partners[*l.SupplierID]; ok {
				name := p.Name
				view.SupplierName = &name
			}
		}
	}
	if p, ok := r.store.positions[bal.PositionID]; ok {
		view.PositionCode = p.Code
	}
	if d, ok := r.store.depots[bal.DepotID]; ok {
		view.DepotName = d.Name
	}
	return view
}

// Summarize folds balances into totals per group.
func (r *StockRepo) Summarize(ctx context.Context, group stock.SummaryGroup, f stock.BalanceFilter) ([]stock.SummaryRow, error) {
	rows := make(map[string]*stock.SummaryRow)
	err := r.store.locked(ctx, func() error {
		for key, bal := range r.store.balances {
			if !f.IncludeZero && bal.IsEmpty() {
				continue
			}
			if !r.matches(key, f) {
				continue
			}

			groupID, label := r.groupOf(group, key)
			row, ok := rows[groupID]
			if !ok {
				row = &stock.SummaryRow{GroupID: groupID, Label: label}
				rows[groupID] = row
			}
			row.Kilos += bal.Kilos
			row.Unidades += bal.Unidades
			row.Buckets++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]stock.SummaryRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (r *StockRepo) groupOf(group stock.SummaryGroup, key entity.StockKey) (string, string) {
	switch group {
	case stock.GroupByLot:
		label := ""
		if l, ok := r.store.lots[key.LotID]; ok {
			label = l.Number
		}
		return key.LotID.String(), label
	case stock.GroupByCategory:
		category := ""
		if it, ok := r.store.items[key.ItemID]; ok {
			category = string(it.Category)
		}
		return category, category
	default:
		label := ""
		if it, ok := r.store.items[key.ItemID]; ok {
			label = it.Name
		}
		return key.ItemID.String(), label
	}
}

// EligibleLots returns FIFO candidates: picking positions, positive
// kilos, the requested item. lock is a no-op here; the transaction mutex
// already serializes commits.
func (r *StockRepo) EligibleLots(ctx context.Context, req allocation.Request, lock bool) ([]allocation.LotBalance, error) {
	var out []allocation.LotBalance
	err := r.store.locked(ctx, func() error {
		for key, bal := range r.store.balances {
			if key.ItemID != req.ItemID || !bal.Kilos.IsPositive() {
				continue
			}
			if req.DepotID != nil && key.DepotID != *req.DepotID {
				continue
			}
			if req.PositionID != nil && key.PositionID != *req.PositionID {
				continue
			}
			pos, ok := r.store.positions[key.PositionID]
			if !ok || pos.Type != depot.PositionPicking || pos.DeletionMark {
				continue
			}
			l, ok := r.store.lots[key.LotID]
			if !ok {
				continue
			}
			out = append(out, allocation.LotBalance{
				StockKey:     key,
				LotNumber:    l.Number,
				LotCreatedAt: l.CreatedAt,
				Kilos:        bal.Kilos,
				Unidades:     bal.Unidades,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StockKey.Compare(out[j].StockKey) < 0
	})
	return out, nil
}

// ReplaceBalances swaps the whole balance table for the folded sums.
func (r *StockRepo) ReplaceBalances(ctx context.Context, sums []ledger.KeySum) error {
	return r.store.locked(ctx, func() error {
		now := time.Now().UTC()
		fresh := make(map[entity.StockKey]entity.StockBalance, len(sums))
		for _, sum := range sums {
			fresh[sum.StockKey] = entity.StockBalance{
				StockKey:       sum.StockKey,
				Kilos:          sum.Kilos,
				Unidades:       sum.Unidades,
				LastMovementAt: sum.LastMovementAt,
				UpdatedAt:      now,
			}
		}
		r.store.balances = fresh
		return nil
	})
}
