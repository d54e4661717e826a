package outbound

import (
	"context"
	"fmt"
	"time"

	"almacen/internal/core/apperror"
	appctx "almacen/internal/core/context"
	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/core/tx"
	"almacen/internal/domain"
	"almacen/internal/domain/allocation"
	"almacen/internal/domain/ledger"
	"almacen/internal/domain/stock"
	"almacen/pkg/logger"
)

// numberPrefix for shipment numbers (RS-2026-000001).
const numberPrefix = "RS"

// Service is the outbound commit engine: preview builds a plan from a
// read-only snapshot, commit revalidates that plan under row locks and
// writes everything or nothing.
type Service struct {
	repo      Repository
	stockRepo stock.Repository
	entries   *ledger.Service
	archiver  PlanArchiver
	generator NumberGenerator
	txManager tx.Manager
}

// NewService creates the outbound engine.
func NewService(
	repo Repository,
	stockRepo stock.Repository,
	entries *ledger.Service,
	archiver PlanArchiver,
	generator NumberGenerator,
	txm tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		stockRepo: stockRepo,
		entries:   entries,
		archiver:  archiver,
		generator: generator,
		txManager: txm,
	}
}

// Preview builds an allocation plan from current stock without locking or
// mutating anything. Re-previewing without intervening mutations returns
// the identical plan.
func (s *Service) Preview(ctx context.Context, req allocation.Request) (*allocation.Plan, error) {
	lots, err := s.stockRepo.EligibleLots(ctx, req, false)
	if err != nil {
		return nil, fmt.Errorf("load eligible lots: %w", err)
	}
	return allocation.BuildPlan(req, lots)
}

// Commit turns a previewed plan into a shipment. In one transaction it
// locks the plan's keys in canonical order, revalidates every line
// against the locked balances, appends the outbound ledger entries,
// applies the balance deltas, creates the document and archives the plan
// snapshot. A stale plan fails with STALE_PLAN_CONFLICT unless
// opts.Replan is set, in which case the planner re-runs inside the
// transaction against the locked balances.
func (s *Service) Commit(ctx context.Context, plan *allocation.Plan, meta CommitMeta, opts CommitOptions) (*Shipment, error) {
	if plan == nil || len(plan.Lines) == 0 {
		return nil, apperror.NewValidation("plan has no lines to commit").
			WithDetail("field", "plan")
	}
	if meta.ClientName == "" && meta.ClientID == nil {
		return nil, apperror.NewValidation("client is required").
			WithDetail("field", "clientName")
	}

	var shipment *Shipment
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		committed, err := s.revalidate(ctx, plan, opts)
		if err != nil {
			return err
		}

		number, err := s.generator.Next(ctx, numberPrefix)
		if err != nil {
			return fmt.Errorf("generate shipment number: %w", err)
		}

		doc := NewShipment(meta.ClientName)
		doc.Number = number
		doc.ClientID = meta.ClientID
		doc.OrderRef = meta.OrderRef
		doc.Comment = meta.Note
		if !meta.Date.IsZero() {
			doc.Date = meta.Date
		}
		doc.CreatedBy = appctx.GetUserID(ctx)
		for _, line := range committed.Lines {
			doc.AddLine(line.StockKey, line.LotNumber, line.Kilos, line.Unidades)
		}
		if err := doc.Validate(ctx); err != nil {
			return err
		}

		entries := make([]entity.LedgerEntry, 0, len(doc.Lines))
		for _, line := range doc.Lines {
			e := entity.NewLedgerEntry(entity.EntryRemitoSalida, line.StockKey, line.Kilos.Neg())
			if line.Unidades != nil {
				n := line.Unidades.Neg()
				e.DeltaUnidades = &n
			}
			refID := doc.ID
			e.RefID = &refID
			e.RefType = DocumentType
			e.Date = doc.Date
			e.UserID = doc.CreatedBy
			e.Note = meta.Note
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
			return fmt.Errorf("create shipment: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save shipment lines: %w", err)
		}
		if err := s.archiver.Archive(ctx, doc.ID, committed); err != nil {
			return fmt.Errorf("archive plan snapshot: %w", err)
		}

		shipment = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "shipment committed",
		"number", shipment.Number,
		"lines", len(shipment.Lines),
		"total_kilos", shipment.TotalKilos,
	)

	return shipment, nil
}

// revalidate locks the plan's keys and checks every line against the
// locked balances. Returns the plan to commit: the original when it still
// holds, a fresh in-transaction plan when Replan absorbs the conflict.
func (s *Service) revalidate(ctx context.Context, plan *allocation.Plan, opts CommitOptions) (*allocation.Plan, error) {
	keys := make([]entity.StockKey, 0, len(plan.Lines))
	for _, line := range plan.Lines {
		keys = append(keys, line.StockKey)
	}
	entity.SortKeys(keys)

	balances, err := s.stockRepo.GetBalancesForUpdate(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("lock plan keys: %w", err)
	}
	byKey := make(map[entity.StockKey]entity.StockBalance, len(balances))
	for _, b := range balances {
		byKey[b.StockKey] = b
	}

	stale := ""
	for _, line := range plan.Lines {
		bal := byKey[line.StockKey]
		if bal.Kilos < line.Kilos {
			stale = fmt.Sprintf("lot %s at position %s: planned %s kg, available %s kg",
				line.LotID, line.PositionID, line.Kilos, bal.Kilos)
			break
		}
		if line.Unidades != nil && bal.Unidades < *line.Unidades {
			stale = fmt.Sprintf("lot %s at position %s: planned %s u, available %s u",
				line.LotID, line.PositionID, *line.Unidades, bal.Unidades)
			break
		}
	}
	if stale == "" {
		return plan, nil
	}
	if !opts.Replan {
		return nil, apperror.NewStalePlanConflict("plan no longer matches current stock").
			WithDetail("conflict", stale)
	}

	// Re-plan against locked balances. The fresh plan must cover at least
	// what the previewed plan promised, otherwise the caller has to see
	// the shrinkage and decide.
	lots, err := s.stockRepo.EligibleLots(ctx, plan.Request, true)
	if err != nil {
		return nil, fmt.Errorf("reload eligible lots: %w", err)
	}
	fresh, err := allocation.BuildPlan(plan.Request, lots)
	if err != nil {
		return nil, err
	}
	if fresh.TotalKilos < plan.TotalKilos {
		return nil, apperror.NewStalePlanConflict("replanning covers less than the previewed plan").
			WithDetail("previewed_kilos", plan.TotalKilos.String()).
			WithDetail("replanned_kilos", fresh.TotalKilos.String())
	}
	logger.Info(ctx, "plan replanned inside commit",
		"item_id", plan.Request.ItemID,
		"lines", len(fresh.Lines),
	)
	return fresh, nil
}

// GetByID retrieves a shipment with its lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Shipment, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("shipment", docID.String())
		}
		return nil, err
	}
	return doc, nil
}

// List retrieves shipments with filtering.
func (s *Service) List(ctx context.Context, f ListFilter) (domain.ListResult[*Shipment], error) {
	return s.repo.List(ctx, f)
}

// GetPlan retrieves the archived plan snapshot of a shipment.
func (s *Service) GetPlan(ctx context.Context, docID id.ID) (*allocation.Plan, error) {
	return s.archiver.GetPlan(ctx, docID)
}

// Delete reverses a shipment: it appends compensating adjust-increase
// entries for every line and soft-deletes the document. The original
// outbound entries stay in the ledger untouched.
func (s *Service) Delete(ctx context.Context, docID id.ID) error {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if doc.DeletionMark {
		return apperror.NewConflict("shipment is already deleted").
			WithDetail("id", docID.String())
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		keys := make([]entity.StockKey, 0, len(doc.Lines))
		for _, line := range doc.Lines {
			keys = append(keys, line.StockKey)
		}
		entity.SortKeys(keys)
		if _, err := s.stockRepo.GetBalancesForUpdate(ctx, keys); err != nil {
			return fmt.Errorf("lock shipment keys: %w", err)
		}

		note := fmt.Sprintf("reversal of %s", doc.Number)
		userID := appctx.GetUserID(ctx)
		now := time.Now().UTC()

		entries := make([]entity.LedgerEntry, 0, len(doc.Lines))
		for _, line := range doc.Lines {
			e := entity.NewLedgerEntry(entity.EntryAjusteSuma, line.StockKey, line.Kilos)
			if line.Unidades != nil {
				u := *line.Unidades
				e.DeltaUnidades = &u
			}
			refID := doc.ID
			e.RefID = &refID
			e.RefType = DocumentType
			e.Date = now
			e.UserID = userID
			e.Note = note
			entries = append(entries, e)
		}

		if err := s.entries.Append(ctx, entries); err != nil {
			return err
		}
		for _, e := range entries {
			if err := s.stockRepo.ApplyDelta(ctx, e.StockKey, e.DeltaKilos, e.DeltaUnidades, now); err != nil {
				return err
			}
		}

		if err := s.repo.Delete(ctx, doc.ID); err != nil {
			return fmt.Errorf("delete shipment: %w", err)
		}

		logger.Info(ctx, "shipment reversed", "number", doc.Number)
		return nil
	})
}
