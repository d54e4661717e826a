package depot

import (
	"context"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/core/tx"
	"almacen/internal/domain"
)

// Service provides business logic for the Depot catalog and positions.
type Service struct {
	*domain.CatalogService[*Depot]
	repo      Repository
	positions PositionRepository
	txManager tx.Manager
}

// NewService creates a new Depot service.
func NewService(repo Repository, positions PositionRepository, txm tx.Manager) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Depot]{
		Repo:       repo,
		TxManager:  txm,
		EntityName: "depot",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		positions:      positions,
		txManager:      txm,
	}

	base.Hooks().On(domain.BeforeUpdate, svc.checkInboundPosition)

	return svc
}

// checkInboundPosition verifies the default inbound position belongs to the depot.
func (s *Service) checkInboundPosition(ctx context.Context, d *Depot) error {
	if d.DefaultInboundPositionID == nil {
		return nil
	}
	pos, err := s.positions.GetByID(ctx, *d.DefaultInboundPositionID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewValidation("default inbound position does not exist").
				WithDetail("positionId", d.DefaultInboundPositionID.String())
		}
		return err
	}
	if pos.DepotID != d.ID {
		return apperror.NewValidation("default inbound position belongs to another depot").
			WithDetail("positionId", pos.ID.String()).
			WithDetail("depotId", pos.DepotID.String())
	}
	return nil
}

// GetByName retrieves a depot by name.
func (s *Service) GetByName(ctx context.Context, name string) (*Depot, error) {
	d, err := s.repo.GetByName(ctx, name)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("depot", name)
		}
		return nil, err
	}
	return d, nil
}

// --- Positions ---

// CreatePosition validates and inserts a new position.
func (s *Service) CreatePosition(ctx context.Context, p *Position) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}

	// Depot must exist and code must be unique within it.
	if _, err := s.repo.GetByID(ctx, p.DepotID); err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewNotFound("depot", p.DepotID.String())
		}
		return err
	}
	if existing, err := s.positions.GetByDepotAndCode(ctx, p.DepotID, p.Code); err == nil && existing != nil {
		return apperror.NewDuplicate("position", "code", p.Code)
	} else if err != nil && !apperror.IsNotFound(err) {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.positions.Create(ctx, p)
	})
}

// GetPosition retrieves a position by ID.
func (s *Service) GetPosition(ctx context.Context, positionID id.ID) (*Position, error) {
	pos, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("position", positionID.String())
		}
		return nil, err
	}
	return pos, nil
}

// ListPositions returns all positions of a depot.
func (s *Service) ListPositions(ctx context.Context, depotID id.ID) ([]*Position, error) {
	return s.positions.ListByDepot(ctx, depotID)
}

// UpdatePosition modifies an existing position.
func (s *Service) UpdatePosition(ctx context.Context, p *Position) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.positions.Update(ctx, p)
	})
}

// DeletePosition soft-deletes a position.
func (s *Service) DeletePosition(ctx context.Context, positionID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.positions.SetDeletionMark(ctx, positionID, true)
	})
}
