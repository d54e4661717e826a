package ledger

import (
	"context"
	"fmt"

	"almacen/internal/core/apperror"
	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/pkg/logger"
)

// DefaultQueryLimit caps unbounded movement queries.
const DefaultQueryLimit = 100

// Service provides ledger validation and queries. Appends are driven by
// the stock/outbound/inbound engines inside their transactions.
type Service struct {
	repo Repository
}

// NewService creates a new ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Append validates and inserts entries. Caller owns the transaction.
func (s *Service) Append(ctx context.Context, entries []entity.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	for i, e := range entries {
		if !e.Type.IsValid() {
			return apperror.NewValidation(fmt.Sprintf("entry %d: unknown entry type %q", i, e.Type))
		}
		if e.DeltaKilos.IsZero() && (e.DeltaUnidades == nil || e.DeltaUnidades.IsZero()) {
			return apperror.NewValidation(fmt.Sprintf("entry %d: empty delta", i))
		}
		// Sign must match the entry type: outbound entries are negative,
		// inbound positive.
		if e.Type.Sign() > 0 && e.DeltaKilos.IsNegative() ||
			e.Type.Sign() < 0 && e.DeltaKilos.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("entry %d: delta sign does not match type %s", i, e.Type))
		}
		if id.IsNil(e.ItemID) || id.IsNil(e.DepotID) || id.IsNil(e.PositionID) || id.IsNil(e.LotID) {
			return apperror.NewValidation(fmt.Sprintf("entry %d: incomplete stock key", i))
		}
	}

	if err := s.repo.Append(ctx, entries); err != nil {
		return fmt.Errorf("append ledger entries: %w", err)
	}

	logger.Info(ctx, "appended ledger entries",
		"count", len(entries),
		"type", entries[0].Type,
	)

	return nil
}

// Query returns enriched entries, newest first.
func (s *Service) Query(ctx context.Context, f Filter) ([]EntryView, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultQueryLimit
	}
	return s.repo.Query(ctx, f)
}

// SumByKey folds the whole ledger into per-key totals.
func (s *Service) SumByKey(ctx context.Context) ([]KeySum, error) {
	return s.repo.SumByKey(ctx)
}

// ListByRef returns the entries a document produced.
func (s *Service) ListByRef(ctx context.Context, refID id.ID) ([]entity.LedgerEntry, error) {
	return s.repo.ListByRef(ctx, refID)
}
