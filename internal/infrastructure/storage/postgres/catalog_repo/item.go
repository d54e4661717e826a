package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"almacen/internal/domain/catalogs/item"
	"almacen/internal/infrastructure/storage/postgres"
)

const itemTable = "cat_items"

// ItemRepo implements item.Repository.
type ItemRepo struct {
	*BaseCatalogRepo[*item.Item]
}

// NewItemRepo creates a new item repository.
func NewItemRepo(txManager *postgres.TxManager) *ItemRepo {
	return &ItemRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*item.Item](
			txManager,
			itemTable,
			postgres.ExtractDBColumns[item.Item](),
			func() *item.Item { return &item.Item{} },
		),
	}
}

// ListWithAlerts returns active items carrying any alert configuration.
// The alert sweep calls this on every pass, so the filter runs in SQL
// instead of loading the whole catalog.
func (r *ItemRepo) ListWithAlerts(ctx context.Context) ([]*item.Item, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.Eq{"is_active": true}).
		Where(squirrel.Or{
			squirrel.NotEq{"alert_threshold_kilos": nil},
			squirrel.And{
				squirrel.NotEq{"alert_rule": nil},
				squirrel.NotEq{"alert_rule": ""},
			},
		}).
		OrderBy("code")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*item.Item
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("list items with alerts: %w", err), itemTable)
	}
	return items, nil
}

var _ item.Repository = (*ItemRepo)(nil)
