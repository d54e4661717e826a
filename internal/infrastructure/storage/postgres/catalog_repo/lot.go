package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/domain/lot"
	"almacen/internal/infrastructure/storage/postgres"
)

const lotTable = "cat_lots"

var lotColumns = []string{"id", "item_id", "number", "supplier_id", "is_implicit", "created_at"}

// LotRepo implements lot.Repository. Lots do not follow the catalog
// shape: they have no code, no deletion mark and no version. Identity
// is the id; the number is just a mutable label.
type LotRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewLotRepo creates a new lot repository.
func NewLotRepo(txManager *postgres.TxManager) *LotRepo {
	return &LotRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new lot.
func (r *LotRepo) Create(ctx context.Context, l *lot.Lot) error {
	q := r.builder.Insert(lotTable).
		Columns(lotColumns...).
		Values(l.ID, l.ItemID, l.Number, l.SupplierID, l.Implicit, l.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert lot: %w", err), "lot")
	}
	return nil
}

// GetByID retrieves a lot by id.
func (r *LotRepo) GetByID(ctx context.Context, lotID id.ID) (*lot.Lot, error) {
	q := r.builder.Select(lotColumns...).
		From(lotTable).
		Where(squirrel.Eq{"id": lotID})

	return r.getOne(ctx, q, lotID.String())
}

// Find retrieves a lot by item + number + supplier.
// supplierID nil matches lots without a supplier.
func (r *LotRepo) Find(ctx context.Context, itemID id.ID, number string, supplierID *id.ID) (*lot.Lot, error) {
	q := r.builder.Select(lotColumns...).
		From(lotTable).
		Where(squirrel.Eq{"item_id": itemID}).
		Where(squirrel.Eq{"number": number})

	if supplierID != nil {
		q = q.Where(squirrel.Eq{"supplier_id": *supplierID})
	} else {
		q = q.Where(squirrel.Eq{"supplier_id": nil})
	}

	return r.getOne(ctx, q, number)
}

// FindImplicit retrieves the implicit lot of an item.
func (r *LotRepo) FindImplicit(ctx context.Context, itemID id.ID) (*lot.Lot, error) {
	q := r.builder.Select(lotColumns...).
		From(lotTable).
		Where(squirrel.Eq{"item_id": itemID}).
		Where(squirrel.Eq{"is_implicit": true})

	return r.getOne(ctx, q, itemID.String())
}

// Rename changes the lot number label. Ledger rows reference the lot by
// id, so history is untouched.
func (r *LotRepo) Rename(ctx context.Context, lotID id.ID, number string) error {
	q := r.builder.Update(lotTable).
		Set("number", number).
		Where(squirrel.Eq{"id": lotID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(fmt.Errorf("rename lot: %w", err), "lot")
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("lot", lotID.String())
	}
	return nil
}

// ListByItem returns all lots of an item, oldest first.
func (r *LotRepo) ListByItem(ctx context.Context, itemID id.ID) ([]*lot.Lot, error) {
	q := r.builder.Select(lotColumns...).
		From(lotTable).
		Where(squirrel.Eq{"item_id": itemID}).
		OrderBy("created_at", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lots []*lot.Lot
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &lots, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("list lots by item: %w", err), "lot")
	}
	return lots, nil
}

func (r *LotRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key string) (*lot.Lot, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var l lot.Lot
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &l, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("lot", key)
		}
		return nil, postgres.MapError(fmt.Errorf("get lot: %w", err), "lot")
	}
	return &l, nil
}

var _ lot.Repository = (*LotRepo)(nil)
