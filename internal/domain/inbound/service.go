package inbound

import (
	"context"
	"fmt"
	"strings"

	"almacen/internal/core/apperror"
	appctx "almacen/internal/core/context"
	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/core/tx"
	"almacen/internal/domain"
	"almacen/internal/domain/catalogs/depot"
	"almacen/internal/domain/catalogs/item"
	"almacen/internal/domain/catalogs/partner"
	"almacen/internal/domain/ledger"
	"almacen/internal/domain/lot"
	"almacen/internal/domain/stock"
	"almacen/pkg/logger"
)

// numberPrefix for receipt numbers (RE-2026-000001).
const numberPrefix = "RE"

// Service is the receive engine.
type Service struct {
	repo      Repository
	stockRepo stock.Repository
	entries   *ledger.Service
	items     ItemCatalog
	partners  PartnerCatalog
	depots    DepotCatalog
	lots      LotRegistry
	generator NumberGenerator
	txManager tx.Manager
}

// NewService creates the inbound engine.
func NewService(
	repo Repository,
	stockRepo stock.Repository,
	entries *ledger.Service,
	items ItemCatalog,
	partners PartnerCatalog,
	depots DepotCatalog,
	lots LotRegistry,
	generator NumberGenerator,
	txm tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		stockRepo: stockRepo,
		entries:   entries,
		items:     items,
		partners:  partners,
		depots:    depots,
		lots:      lots,
		generator: generator,
		txManager: txm,
	}
}

// Receive resolves every reference in the request and commits the receipt
// atomically: document, lines, positive ledger entries, balance deltas.
func (s *Service) Receive(ctx context.Context, req ReceiveRequest) (*Receipt, error) {
	if len(req.Lines) == 0 {
		return nil, apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}
	if id.IsNil(req.DepotID) {
		return nil, apperror.NewValidation("depot is required").
			WithDetail("field", "depotId")
	}
	for i, line := range req.Lines {
		if !line.Kilos.IsPositive() {
			return nil, apperror.NewValidation("line kilos must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.Unidades != nil && line.Unidades.IsNegative() {
			return nil, apperror.NewValidation("line unidades cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	var receipt *Receipt
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		supplier, err := s.resolveSupplier(ctx, req)
		if err != nil {
			return err
		}

		d, err := s.depots.GetByID(ctx, req.DepotID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("depot", req.DepotID.String())
			}
			return err
		}

		doc := NewReceipt(d.ID, supplier.Name)
		supplierID := supplier.ID
		doc.SupplierID = &supplierID
		doc.SupplierDocRef = req.SupplierDocRef
		doc.Comment = req.Note
		if !req.Date.IsZero() {
			doc.Date = req.Date
		}
		doc.CreatedBy = appctx.GetUserID(ctx)

		for i, line := range req.Lines {
			it, err := s.resolveItem(ctx, line)
			if err != nil {
				return err
			}

			positionID, err := s.resolvePosition(ctx, d, line.PositionID, i)
			if err != nil {
				return err
			}

			l, err := s.resolveLot(ctx, it, line, &supplierID)
			if err != nil {
				return err
			}

			key := entity.StockKey{
				DepotID:    d.ID,
				PositionID: positionID,
				ItemID:     it.ID,
				LotID:      l.ID,
			}
			doc.AddLine(key, l.Number, line.Kilos, line.Unidades)
		}

		number, err := s.generator.Next(ctx, numberPrefix)
		if err != nil {
			return fmt.Errorf("generate receipt number: %w", err)
		}
		doc.Number = number

		if err := doc.Validate(ctx); err != nil {
			return err
		}

		entries := make([]entity.LedgerEntry, 0, len(doc.Lines))
		for _, line := range doc.Lines {
			e := entity.NewLedgerEntry(entity.EntryRemitoEntrada, line.StockKey, line.Kilos)
			e.DeltaUnidades = line.Unidades
			refID := doc.ID
			e.RefID = &refID
			e.RefType = DocumentType
			e.Date = doc.Date
			e.UserID = doc.CreatedBy
			e.Note = req.Note
			entries = append(entries, e)
		}

		if err := s.entries.Append(ctx, entries); err != nil {
			return err
		}
		for _, e := range entries {
			if err := s.stockRepo.ApplyDelta(ctx, e.StockKey, e.DeltaKilos, e.DeltaUnidades, doc.Date); err != nil {
				return err
			}
		}

		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create receipt: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save receipt lines: %w", err)
		}

		receipt = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "receipt committed",
		"number", receipt.Number,
		"lines", len(receipt.Lines),
		"total_kilos", receipt.TotalKilos,
	)

	return receipt, nil
}

func (s *Service) resolveSupplier(ctx context.Context, req ReceiveRequest) (*partner.Partner, error) {
	if req.SupplierID != nil {
		p, err := s.partners.GetByID(ctx, *req.SupplierID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return nil, apperror.NewNotFound("supplier", req.SupplierID.String())
			}
			return nil, err
		}
		return p, nil
	}
	if strings.TrimSpace(req.SupplierName) == "" {
		return nil, apperror.NewValidation("supplier is required").
			WithDetail("field", "supplier")
	}
	return s.partners.GetOrCreateSupplier(ctx, req.SupplierName)
}

func (s *Service) resolveItem(ctx context.Context, line ReceiveLine) (*item.Item, error) {
	if line.ItemID != nil {
		it, err := s.items.GetByID(ctx, *line.ItemID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return nil, apperror.NewNotFound("item", line.ItemID.String())
			}
			return nil, err
		}
		return it, nil
	}

	code := strings.TrimSpace(line.ItemCode)
	if code == "" {
		return nil, apperror.NewValidation("line item is required").
			WithDetail("field", "itemCode")
	}

	it, err := s.items.GetByCode(ctx, code)
	if err == nil {
		return it, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	// Unknown code: create the item inline when the line describes it.
	if strings.TrimSpace(line.Description) == "" {
		return nil, apperror.NewNotFound("item", code)
	}
	category := item.Category(line.Category)
	if line.Category == "" {
		category = item.CategorySupply
	}
	created := item.NewItem(code, line.Description, category)
	if err := s.items.Create(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) resolvePosition(ctx context.Context, d *depot.Depot, positionID *id.ID, lineNo int) (id.ID, error) {
	if positionID != nil {
		pos, err := s.depots.GetPosition(ctx, *positionID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return id.Nil(), apperror.NewNotFound("position", positionID.String())
			}
			return id.Nil(), err
		}
		if pos.DepotID != d.ID {
			return id.Nil(), apperror.NewValidation("position belongs to another depot").
				WithDetail("field", "lines").
				WithDetail("lineNo", lineNo+1)
		}
		return pos.ID, nil
	}
	if d.DefaultInboundPositionID != nil {
		return *d.DefaultInboundPositionID, nil
	}
	return id.Nil(), apperror.NewValidation("depot has no default inbound position; name a position on the line").
		WithDetail("field", "lines").
		WithDetail("lineNo", lineNo+1)
}

func (s *Service) resolveLot(ctx context.Context, it *item.Item, line ReceiveLine, supplierID *id.ID) (*lot.Lot, error) {
	if it.TrackLot {
		if strings.TrimSpace(line.LotNumber) == "" {
			return nil, apperror.NewValidation("lot number is required for lot-tracked item").
				WithDetail("item_code", it.Code)
		}
		return s.lots.Resolve(ctx, it.ID, line.LotNumber, supplierID)
	}
	return s.lots.ResolveImplicit(ctx, it.ID)
}

// GetByID retrieves a receipt with its lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Receipt, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("receipt", docID.String())
		}
		return nil, err
	}
	return doc, nil
}

// List retrieves receipts with filtering.
func (s *Service) List(ctx context.Context, f ListFilter) (domain.ListResult[*Receipt], error) {
	return s.repo.List(ctx, f)
}
