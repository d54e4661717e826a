package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/domain/catalogs/depot"
	"almacen/internal/infrastructure/storage/postgres"
)

const (
	depotTable    = "cat_depots"
	positionTable = "cat_positions"
)

// DepotRepo implements depot.Repository.
type DepotRepo struct {
	*BaseCatalogRepo[*depot.Depot]
}

// NewDepotRepo creates a new depot repository.
func NewDepotRepo(txManager *postgres.TxManager) *DepotRepo {
	return &DepotRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*depot.Depot](
			txManager,
			depotTable,
			postgres.ExtractDBColumns[depot.Depot](),
			func() *depot.Depot { return &depot.Depot{} },
		),
	}
}

// GetByName retrieves a depot by its unique name.
func (r *DepotRepo) GetByName(ctx context.Context, name string) (*depot.Depot, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"name": name}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	return r.FindOne(ctx, q)
}

// PositionRepo implements depot.PositionRepository.
// Position codes are unique per depot, not globally, so the code
// lookups take the owning depot.
type PositionRepo struct {
	*BaseCatalogRepo[*depot.Position]
}

// NewPositionRepo creates a new position repository.
func NewPositionRepo(txManager *postgres.TxManager) *PositionRepo {
	return &PositionRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*depot.Position](
			txManager,
			positionTable,
			postgres.ExtractDBColumns[depot.Position](),
			func() *depot.Position { return &depot.Position{} },
		),
	}
}

// GetByCode is ambiguous for positions: the same code exists in several
// depots. Callers must use GetByDepotAndCode.
func (r *PositionRepo) GetByCode(ctx context.Context, code string) (*depot.Position, error) {
	return nil, apperror.NewValidation("position code is only unique within a depot").
		WithDetail("code", code)
}

// GetByDepotAndCode retrieves a position by its code within a depot.
func (r *PositionRepo) GetByDepotAndCode(ctx context.Context, depotID id.ID, code string) (*depot.Position, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"depot_id": depotID}).
		Where(squirrel.Eq{"code": code}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	return r.FindOne(ctx, q)
}

// ListByDepot returns all positions of a depot, code order.
func (r *PositionRepo) ListByDepot(ctx context.Context, depotID id.ID) ([]*depot.Position, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"depot_id": depotID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("code")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var positions []*depot.Position
	if err := pgxscan.Select(ctx, r.querier(ctx), &positions, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("list positions by depot: %w", err), positionTable)
	}
	return positions, nil
}

var (
	_ depot.Repository         = (*DepotRepo)(nil)
	_ depot.PositionRepository = (*PositionRepo)(nil)
)
