package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"almacen/internal/core/apperror"
	"almacen/internal/core/entity"
	"almacen/internal/core/types"
	"almacen/internal/domain/allocation"
	"almacen/internal/domain/ledger"
	"almacen/internal/domain/stock"
	"almacen/internal/infrastructure/storage/postgres"
)

const balancesTable = "reg_stock_balances"

var balanceColumns = []string{
	"depot_id", "position_id", "item_id", "lot_id",
	"kilos", "unidades", "last_movement_at", "updated_at",
}

// BalanceRepo implements stock.Repository over the materialized balance
// table. Negativity is enforced twice: the services check under row
// locks, and ApplyDelta's guarded upsert refuses to produce a negative
// row even if a caller skips the check.
type BalanceRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewBalanceRepo creates a new balance repository.
func NewBalanceRepo(txManager *postgres.TxManager) *BalanceRepo {
	return &BalanceRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetBalance returns the current balance for a key; absent rows read as
// zero.
func (r *BalanceRepo) GetBalance(ctx context.Context, key entity.StockKey) (entity.StockBalance, error) {
	q := r.builder.Select(balanceColumns...).
		From(balancesTable).
		Where(squirrel.Eq{
			"depot_id":    key.DepotID,
			"position_id": key.PositionID,
			"item_id":     key.ItemID,
			"lot_id":      key.LotID,
		}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return entity.StockBalance{}, fmt.Errorf("build query: %w", err)
	}

	var balance entity.StockBalance
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &balance, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity.StockBalance{StockKey: key}, nil
		}
		return entity.StockBalance{}, postgres.MapError(fmt.Errorf("get balance: %w", err), "stock balance")
	}
	return balance, nil
}

// GetBalancesForUpdate locks balances one key at a time, in the order
// given. Callers sort canonically first, so concurrent transactions
// always acquire row locks in the same order.
func (r *BalanceRepo) GetBalancesForUpdate(ctx context.Context, keys []entity.StockKey) ([]entity.StockBalance, error) {
	sql := `
		SELECT depot_id, position_id, item_id, lot_id,
			   kilos, unidades, last_movement_at, updated_at
		FROM reg_stock_balances
		WHERE depot_id = $1 AND position_id = $2 AND item_id = $3 AND lot_id = $4
		FOR UPDATE
	`

	querier := r.txManager.GetQuerier(ctx)
	out := make([]entity.StockBalance, 0, len(keys))
	for _, key := range keys {
		var balance entity.StockBalance
		err := pgxscan.Get(ctx, querier, &balance, sql,
			key.DepotID, key.PositionID, key.ItemID, key.LotID)
		if err != nil {
			if pgxscan.NotFound(err) {
				out = append(out, entity.StockBalance{StockKey: key})
				continue
			}
			return nil, postgres.MapError(fmt.Errorf("lock balance: %w", err), "stock balance")
		}
		out = append(out, balance)
	}
	return out, nil
}

// ApplyDelta upserts the balance row for key. The statement is guarded:
// a delta that would leave either quantity negative affects no row, and
// the zero row count comes back as INVARIANT_VIOLATION.
func (r *BalanceRepo) ApplyDelta(ctx context.Context, key entity.StockKey, dKilos types.Quantity, dUnidades *types.Quantity, at time.Time) error {
	var du types.Quantity
	if dUnidades != nil {
		du = *dUnidades
	}

	sql := `
		INSERT INTO reg_stock_balances AS b
			(depot_id, position_id, item_id, lot_id, kilos, unidades, last_movement_at, updated_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE $5::bigint >= 0 AND $6::bigint >= 0
		ON CONFLICT (depot_id, position_id, item_id, lot_id) DO UPDATE SET
			kilos = b.kilos + EXCLUDED.kilos,
			unidades = b.unidades + EXCLUDED.unidades,
			last_movement_at = GREATEST(b.last_movement_at, EXCLUDED.last_movement_at),
			updated_at = EXCLUDED.updated_at
		WHERE b.kilos + EXCLUDED.kilos >= 0
		  AND b.unidades + EXCLUDED.unidades >= 0
	`

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql,
		key.DepotID, key.PositionID, key.ItemID, key.LotID,
		dKilos, du, at, time.Now().UTC())
	if err != nil {
		return postgres.MapError(fmt.Errorf("apply balance delta: %w", err), "stock balance")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewInvariantViolation("balance would become negative").
			WithDetail("item_id", key.ItemID.String()).
			WithDetail("lot_id", key.LotID.String()).
			WithDetail("requested", dKilos.Abs().String())
	}
	return nil
}

func (r *BalanceRepo) enrichedQuery() squirrel.SelectBuilder {
	return r.builder.Select(
		"b.depot_id", "b.position_id", "b.item_id", "b.lot_id",
		"b.kilos", "b.unidades", "b.last_movement_at", "b.updated_at",
		"COALESCE(i.code, '') AS item_code",
		"COALESCE(i.name, '') AS item_name",
		"COALESCE(i.category, '') AS item_category",
		"COALESCE(l.number, '') AS lot_number",
		"COALESCE(p.code, '') AS position_code",
		"COALESCE(d.name, '') AS depot_name",
		"s.name AS supplier_name",
	).From(balancesTable + " b").
		LeftJoin("cat_items i ON i.id = b.item_id").
		LeftJoin("cat_lots l ON l.id = b.lot_id").
		LeftJoin("cat_positions p ON p.id = b.position_id").
		LeftJoin("cat_depots d ON d.id = b.depot_id").
		LeftJoin("cat_partners s ON s.id = l.supplier_id")
}

func applyBalanceFilter(q squirrel.SelectBuilder, f stock.BalanceFilter) squirrel.SelectBuilder {
	if f.DepotID != nil {
		q = q.Where(squirrel.Eq{"b.depot_id": *f.DepotID})
	}
	if f.PositionID != nil {
		q = q.Where(squirrel.Eq{"b.position_id": *f.PositionID})
	}
	if f.ItemID != nil {
		q = q.Where(squirrel.Eq{"b.item_id": *f.ItemID})
	}
	if f.LotID != nil {
		q = q.Where(squirrel.Eq{"b.lot_id": *f.LotID})
	}
	if f.SupplierID != nil {
		q = q.Where(squirrel.Eq{"l.supplier_id": *f.SupplierID})
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"i.code": pattern},
			squirrel.ILike{"i.name": pattern},
			squirrel.ILike{"l.number": pattern},
		})
	}
	if !f.IncludeZero {
		q = q.Where("(b.kilos <> 0 OR b.unidades <> 0)")
	}
	return q
}

// QueryBalances returns balances enriched with descriptors.
func (r *BalanceRepo) QueryBalances(ctx context.Context, f stock.BalanceFilter) ([]stock.BalanceView, error) {
	q := applyBalanceFilter(r.enrichedQuery(), f).
		OrderBy("item_code", "b.depot_id", "b.position_id", "b.item_id", "b.lot_id")

	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var views []stock.BalanceView
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &views, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("select balances: %w", err), "stock balance")
	}
	return views, nil
}

// Summarize folds balances into totals per group.
func (r *BalanceRepo) Summarize(ctx context.Context, group stock.SummaryGroup, f stock.BalanceFilter) ([]stock.SummaryRow, error) {
	var groupID, label string
	switch group {
	case stock.GroupByLot:
		groupID = "b.lot_id::text"
		label = "COALESCE(l.number, '')"
	case stock.GroupByCategory:
		groupID = "COALESCE(i.category, '')"
		label = "COALESCE(i.category, '')"
	default:
		groupID = "b.item_id::text"
		label = "COALESCE(i.name, '')"
	}

	q := r.builder.Select(
		groupID+" AS group_id",
		label+" AS label",
		"SUM(b.kilos) AS kilos",
		"SUM(b.unidades) AS unidades",
		"COUNT(*) AS buckets",
	).From(balancesTable + " b").
		LeftJoin("cat_items i ON i.id = b.item_id").
		LeftJoin("cat_lots l ON l.id = b.lot_id")

	q = applyBalanceFilter(q, f).
		GroupBy(groupID, label).
		OrderBy("label")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []stock.SummaryRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("summarize balances: %w", err), "stock balance")
	}
	return rows, nil
}

// EligibleLots returns the FIFO candidate buckets: picking positions
// only, positive kilos, the requested item. With lock=true rows are
// locked FOR UPDATE in canonical key order, which is also how the query
// orders its result.
func (r *BalanceRepo) EligibleLots(ctx context.Context, req allocation.Request, lock bool) ([]allocation.LotBalance, error) {
	q := r.builder.Select(
		"b.depot_id", "b.position_id", "b.item_id", "b.lot_id",
		"l.number AS lot_number",
		"l.created_at AS lot_created_at",
		"b.kilos", "b.unidades",
	).From(balancesTable+" b").
		Join("cat_positions p ON p.id = b.position_id").
		Join("cat_lots l ON l.id = b.lot_id").
		Where(squirrel.Eq{"b.item_id": req.ItemID}).
		Where(squirrel.Gt{"b.kilos": 0}).
		Where(squirrel.Eq{"p.type": "picking"}).
		Where(squirrel.Eq{"p.deletion_mark": false})

	if req.DepotID != nil {
		q = q.Where(squirrel.Eq{"b.depot_id": *req.DepotID})
	}
	if req.PositionID != nil {
		q = q.Where(squirrel.Eq{"b.position_id": *req.PositionID})
	}

	q = q.OrderBy("b.depot_id", "b.position_id", "b.item_id", "b.lot_id")
	if lock {
		q = q.Suffix("FOR UPDATE OF b")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lots []allocation.LotBalance
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &lots, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("select eligible lots: %w", err), "stock balance")
	}
	return lots, nil
}

// ReplaceBalances swaps the whole balance table for the folded ledger
// sums. Runs inside the rebuild transaction; COPY keeps the swap fast
// even for large key counts.
func (r *BalanceRepo) ReplaceBalances(ctx context.Context, sums []ledger.KeySum) error {
	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, "DELETE FROM "+balancesTable); err != nil {
		return postgres.MapError(fmt.Errorf("clear balances: %w", err), "stock balance")
	}
	if len(sums) == 0 {
		return nil
	}

	now := time.Now().UTC()
	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(sums))
		for _, sum := range sums {
			rows = append(rows, []any{
				sum.DepotID, sum.PositionID, sum.ItemID, sum.LotID,
				sum.Kilos, sum.Unidades, sum.LastMovementAt, now,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, balancesTable, balanceColumns, rows); err != nil {
			return postgres.MapError(fmt.Errorf("copy balances: %w", err), "stock balance")
		}
		return nil
	}

	q := r.builder.Insert(balancesTable).Columns(balanceColumns...)
	for _, sum := range sums {
		q = q.Values(
			sum.DepotID, sum.PositionID, sum.ItemID, sum.LotID,
			sum.Kilos, sum.Unidades, sum.LastMovementAt, now,
		)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert balances: %w", err), "stock balance")
	}
	return nil
}

// Ensure interface compliance.
var _ stock.Repository = (*BalanceRepo)(nil)
