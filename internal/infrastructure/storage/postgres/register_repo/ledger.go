// Package register_repo provides the PostgreSQL implementations of the
// ledger and balance registers.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/domain/ledger"
	"almacen/internal/infrastructure/storage/postgres"
)

const ledgerTable = "reg_ledger_entries"

var ledgerColumns = []string{
	"line_id", "entry_type",
	"depot_id", "position_id", "item_id", "lot_id",
	"delta_kilos", "delta_unidades",
	"ref_id", "ref_type",
	"entry_date", "user_id", "note", "created_at",
}

// LedgerRepo implements ledger.Repository. The table is append-only;
// there is no update or delete statement anywhere in this file.
type LedgerRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txManager *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Append inserts entries. Uses COPY inside a transaction, which is where
// every engine calls it from; falls back to a multi-row INSERT otherwise.
func (r *LedgerRepo) Append(ctx context.Context, entries []entity.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, ledgerValues(e))
		}
		if _, err := inserter.CopyFromSlice(ctx, ledgerTable, ledgerColumns, rows); err != nil {
			return postgres.MapError(fmt.Errorf("copy ledger entries: %w", err), "ledger entry")
		}
		return nil
	}

	q := r.builder.Insert(ledgerTable).Columns(ledgerColumns...)
	for _, e := range entries {
		q = q.Values(ledgerValues(e)...)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert ledger entries: %w", err), "ledger entry")
	}
	return nil
}

func ledgerValues(e entity.LedgerEntry) []any {
	return []any{
		e.LineID, e.Type,
		e.DepotID, e.PositionID, e.ItemID, e.LotID,
		e.DeltaKilos, e.DeltaUnidades,
		e.RefID, e.RefType,
		e.Date, e.UserID, e.Note, e.CreatedAt,
	}
}

// Query returns enriched entries, newest business date first.
func (r *LedgerRepo) Query(ctx context.Context, f ledger.Filter) ([]ledger.EntryView, error) {
	q := r.builder.Select(
		"e.line_id", "e.entry_type",
		"e.depot_id", "e.position_id", "e.item_id", "e.lot_id",
		"e.delta_kilos", "e.delta_unidades",
		"e.ref_id", "e.ref_type",
		"e.entry_date", "e.user_id", "e.note", "e.created_at",
		"COALESCE(i.code, '') AS item_code",
		"COALESCE(i.name, '') AS item_name",
		"COALESCE(l.number, '') AS lot_number",
		"COALESCE(p.code, '') AS position_code",
		"COALESCE(d.name, '') AS depot_name",
	).From(ledgerTable + " e").
		LeftJoin("cat_items i ON i.id = e.item_id").
		LeftJoin("cat_lots l ON l.id = e.lot_id").
		LeftJoin("cat_positions p ON p.id = e.position_id").
		LeftJoin("cat_depots d ON d.id = e.depot_id")

	if f.DepotID != nil {
		q = q.Where(squirrel.Eq{"e.depot_id": *f.DepotID})
	}
	if f.PositionID != nil {
		q = q.Where(squirrel.Eq{"e.position_id": *f.PositionID})
	}
	if f.ItemID != nil {
		q = q.Where(squirrel.Eq{"e.item_id": *f.ItemID})
	}
	if f.LotID != nil {
		q = q.Where(squirrel.Eq{"e.lot_id": *f.LotID})
	}
	if f.Type != nil {
		q = q.Where(squirrel.Eq{"e.entry_type": *f.Type})
	}
	if f.RefID != nil {
		q = q.Where(squirrel.Eq{"e.ref_id": *f.RefID})
	}
	if f.From != nil {
		q = q.Where(squirrel.GtOrEq{"e.entry_date": *f.From})
	}
	if f.To != nil {
		q = q.Where(squirrel.LtOrEq{"e.entry_date": *f.To})
	}

	q = q.OrderBy("e.entry_date DESC", "e.created_at DESC")
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

	var views []ledger.EntryView
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &views, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("select ledger entries: %w", err), "ledger entry")
	}
	return views, nil
}

// SumByKey folds the whole ledger into per-key totals, canonical key
// order.
func (r *LedgerRepo) SumByKey(ctx context.Context) ([]ledger.KeySum, error) {
	sql := `
		SELECT depot_id, position_id, item_id, lot_id,
			   SUM(delta_kilos) AS kilos,
			   COALESCE(SUM(delta_unidades), 0) AS unidades,
			   MAX(entry_date) AS last_movement_at
		FROM reg_ledger_entries
		GROUP BY depot_id, position_id, item_id, lot_id
		ORDER BY depot_id, position_id, item_id, lot_id
	`

	var sums []ledger.KeySum
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &sums, sql); err != nil {
		return nil, postgres.MapError(fmt.Errorf("fold ledger: %w", err), "ledger entry")
	}
	return sums, nil
}

// ListByRef returns the entries a document produced, oldest first.
func (r *LedgerRepo) ListByRef(ctx context.Context, refID id.ID) ([]entity.LedgerEntry, error) {
	q := r.builder.Select(ledgerColumns...).
		From(ledgerTable).
		Where(squirrel.Eq{"ref_id": refID}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []entity.LedgerEntry
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("select entries by ref: %w", err), "ledger entry")
	}
	return entries, nil
}

// Ensure interface compliance.
var _ ledger.Repository = (*LedgerRepo)(nil)
