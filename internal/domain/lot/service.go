package lot

import (
	"context"
	"strings"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/core/tx"
)

// Service provides lot resolution and renaming.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new lot service.
func NewService(repo Repository, txm tx.Manager) *Service {
	return &Service{repo: repo, txManager: txm}
}

// GetByID retrieves a lot by id.
func (s *Service) GetByID(ctx context.Context, lotID id.ID) (*Lot, error) {
	l, err := s.repo.GetByID(ctx, lotID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("lot", lotID.String())
		}
		return nil, err
	}
	return l, nil
}

// Resolve finds the lot for (item, number, supplier), creating it on first
// receipt. A concurrent create of the same lot is absorbed by re-reading.
func (s *Service) Resolve(ctx context.Context, itemID id.ID, number string, supplierID *id.ID) (*Lot, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, apperror.NewValidation("lot number is required").
			WithDetail("field", "lot")
	}

	existing, err := s.repo.Find(ctx, itemID, number, supplierID)
	if err == nil {
		return existing, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	l := NewLot(itemID, number, supplierID)
	createErr := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, l)
	})
	if createErr != nil {
		// Another receipt may have created the same lot concurrently.
		if appErr, ok := apperror.AsAppError(createErr); ok && appErr.Code == apperror.CodeDuplicate {
			return s.repo.Find(ctx, itemID, number, supplierID)
		}
		return nil, createErr
	}
	return l, nil
}

// ResolveImplicit returns the single implicit lot of a non-tracked item,
// creating it on first receipt.
func (s *Service) ResolveImplicit(ctx context.Context, itemID id.ID) (*Lot, error) {
	existing, err := s.repo.FindImplicit(ctx, itemID)
	if err == nil {
		return existing, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	l := NewLot(itemID, ImplicitNumber, nil)
	l.Implicit = true
	createErr := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, l)
	})
	if createErr != nil {
		if appErr, ok := apperror.AsAppError(createErr); ok && appErr.Code == apperror.CodeDuplicate {
			return s.repo.FindImplicit(ctx, itemID)
		}
		return nil, createErr
	}
	return l, nil
}

// Rename changes the lot number label. History keeps pointing at the same
// lot id, so past movements are unaffected.
func (s *Service) Rename(ctx context.Context, lotID id.ID, number string) error {
	number = strings.TrimSpace(number)
	if number == "" {
		return apperror.NewValidation("lot number is required").
			WithDetail("field", "number")
	}

	l, err := s.GetByID(ctx, lotID)
	if err != nil {
		return err
	}
	if l.Implicit {
		return apperror.NewValidation("implicit lot cannot be renamed").
			WithDetail("lotId", lotID.String())
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Rename(ctx, lotID, number)
	})
}

// ListByItem returns all lots of an item, oldest first.
func (s *Service) ListByItem(ctx context.Context, itemID id.ID) ([]*Lot, error) {
	return s.repo.ListByItem(ctx, itemID)
}
