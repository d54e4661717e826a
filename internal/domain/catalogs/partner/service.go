package partner

import (
	"context"
	"fmt"
	"strings"

	"almacen/internal/core/apperror"
	"almacen/internal/core/tx"
	"almacen/internal/domain"
)

// NumberGenerator issues sequential codes for a prefix.
type NumberGenerator interface {
	Next(ctx context.Context, prefix string) (string, error)
}

// Service provides business logic for the Partner catalog.
type Service struct {
	*domain.CatalogService[*Partner]
	repo      Repository
	generator NumberGenerator
}

// NewService creates a new Partner service.
func NewService(repo Repository, txm tx.Manager, generator NumberGenerator) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Partner]{
		Repo:       repo,
		TxManager:  txm,
		EntityName: "partner",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		generator:      generator,
	}

	base.Hooks().On(domain.BeforeCreate, svc.prepareForCreate)

	return svc
}

func (s *Service) prepareForCreate(ctx context.Context, p *Partner) error {
	if p.Code == "" {
		code, err := s.generator.Next(ctx, "PRT")
		if err != nil {
			return fmt.Errorf("generate partner code: %w", err)
		}
		p.Code = code
	}
	return nil
}

// GetByName retrieves a partner by exact name.
func (s *Service) GetByName(ctx context.Context, name string) (*Partner, error) {
	p, err := s.repo.GetByName(ctx, name)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("partner", name)
		}
		return nil, err
	}
	return p, nil
}

// GetOrCreateSupplier finds a supplier by name, creating one when absent.
// Used by the inbound engine when a receipt names a supplier not yet known.
func (s *Service) GetOrCreateSupplier(ctx context.Context, name string) (*Partner, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.NewValidation("supplier name is required").
			WithDetail("field", "supplier")
	}

	existing, err := s.repo.GetByName(ctx, name)
	if err == nil {
		if !existing.IsSupplier {
			existing.IsSupplier = true
			if err := s.Update(ctx, existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	p := NewPartner("", name)
	p.IsSupplier = true
	if err := s.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
