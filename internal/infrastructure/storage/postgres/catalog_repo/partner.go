package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"almacen/internal/domain/catalogs/partner"
	"almacen/internal/infrastructure/storage/postgres"
)

const partnerTable = "cat_partners"

// PartnerRepo implements partner.Repository.
type PartnerRepo struct {
	*BaseCatalogRepo[*partner.Partner]
}

// NewPartnerRepo creates a new partner repository.
func NewPartnerRepo(txManager *postgres.TxManager) *PartnerRepo {
	return &PartnerRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*partner.Partner](
			txManager,
			partnerTable,
			postgres.ExtractDBColumns[partner.Partner](),
			func() *partner.Partner { return &partner.Partner{} },
		),
	}
}

// GetByName retrieves a partner by exact name. Inbound uses this to
// resolve suppliers given only the name on the paperwork.
func (r *PartnerRepo) GetByName(ctx context.Context, name string) (*partner.Partner, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"name": name}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	return r.FindOne(ctx, q)
}

var _ partner.Repository = (*PartnerRepo)(nil)
