package item

import (
	"context"
	"fmt"

	"almacen/internal/core/tx"
	"almacen/internal/domain"
)

// NumberGenerator issues sequential codes for a prefix.
type NumberGenerator interface {
	Next(ctx context.Context, prefix string) (string, error)
}

// Service provides business logic for the Item catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Item]
	repo      Repository
	generator NumberGenerator
}

// NewService creates a new Item service.
func NewService(repo Repository, txm tx.Manager, generator NumberGenerator) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Item]{
		Repo:       repo,
		TxManager:  txm,
		EntityName: "item",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		generator:      generator,
	}

	base.Hooks().On(domain.BeforeCreate, svc.prepareForCreate)

	return svc
}

// prepareForCreate generates the item code when not provided.
func (s *Service) prepareForCreate(ctx context.Context, it *Item) error {
	if it.Code == "" {
		code, err := s.generator.Next(ctx, "ART")
		if err != nil {
			return fmt.Errorf("generate item code: %w", err)
		}
		it.Code = code
	}
	return nil
}

// ListWithAlerts returns active items with alert configuration.
func (s *Service) ListWithAlerts(ctx context.Context) ([]*Item, error) {
	return s.repo.ListWithAlerts(ctx)
}
