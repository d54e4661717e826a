package stock

import (
	"context"
	"fmt"
	"time"

	"almacen/internal/core/apperror"
	appctx "almacen/internal/core/context"
	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/core/tx"
	"almacen/internal/core/types"
	"almacen/internal/domain/ledger"
	"almacen/pkg/logger"
)

// Service provides balance reads and the direct balance mutations:
// adjust, move, delete-row, rebuild. Every mutation appends ledger
// entries and applies balance deltas in one transaction.
type Service struct {
	repo      Repository
	entries   *ledger.Service
	txManager tx.Manager
}

// NewService creates a new stock service.
func NewService(repo Repository, entries *ledger.Service, txm tx.Manager) *Service {
	return &Service{
		repo:      repo,
		entries:   entries,
		txManager: txm,
	}
}

// GetBalance returns the current balance for a key (zero when absent).
func (s *Service) GetBalance(ctx context.Context, key entity.StockKey) (entity.StockBalance, error) {
	return s.repo.GetBalance(ctx, key)
}

// QueryBalances returns enriched balances.
func (s *Service) QueryBalances(ctx context.Context, f BalanceFilter) ([]BalanceView, error) {
	return s.repo.QueryBalances(ctx, f)
}

// Summarize folds balances into totals per group.
func (s *Service) Summarize(ctx context.Context, group SummaryGroup, f BalanceFilter) ([]SummaryRow, error) {
	if !group.IsValid() {
		return nil, apperror.NewValidation("invalid summary grouping").
			WithDetail("field", "groupBy").
			WithDetail("value", string(group))
	}
	return s.repo.Summarize(ctx, group, f)
}

// AdjustRequest corrects one balance by a signed delta.
type AdjustRequest struct {
	Key           entity.StockKey
	DeltaKilos    types.Quantity
	DeltaUnidades *types.Quantity
	Date          time.Time
	Note          string
}

// Adjust appends an adjustment entry and applies the delta atomically.
// A decrease below zero is rejected with INVARIANT_VIOLATION.
func (s *Service) Adjust(ctx context.Context, req AdjustRequest) error {
	if req.DeltaKilos.IsZero() && (req.DeltaUnidades == nil || req.DeltaUnidades.IsZero()) {
		return apperror.NewValidation("adjustment delta must be non-zero").
			WithDetail("field", "deltaKilos")
	}

	entryType := entity.EntryAjusteSuma
	if req.DeltaKilos.IsNegative() ||
		(req.DeltaKilos.IsZero() && req.DeltaUnidades != nil && req.DeltaUnidades.IsNegative()) {
		entryType = entity.EntryAjusteResta
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		balances, err := s.repo.GetBalancesForUpdate(ctx, []entity.StockKey{req.Key})
		if err != nil {
			return fmt.Errorf("lock balance: %w", err)
		}
		if err := checkResult(req.Key, balances[0], req.DeltaKilos, req.DeltaUnidades); err != nil {
			return err
		}

		e := entity.NewLedgerEntry(entryType, req.Key, req.DeltaKilos)
		e.DeltaUnidades = req.DeltaUnidades
		e.Note = req.Note
		e.UserID = appctx.GetUserID(ctx)
		if !req.Date.IsZero() {
			e.Date = req.Date
		}

		if err := s.entries.Append(ctx, []entity.LedgerEntry{e}); err != nil {
			return err
		}
		if err := s.repo.ApplyDelta(ctx, req.Key, req.DeltaKilos, req.DeltaUnidades, e.Date); err != nil {
			return err
		}

		logger.Info(ctx, "stock adjusted",
			"item_id", req.Key.ItemID,
			"delta_kilos", req.DeltaKilos,
		)
		return nil
	})
}

// MoveRequest relocates quantity of one lot between positions.
type MoveRequest struct {
	ItemID id.ID
	LotID  id.ID

	FromDepotID    id.ID
	FromPositionID id.ID
	ToDepotID      id.ID
	ToPositionID   id.ID

	Kilos    types.Quantity
	Unidades *types.Quantity
	Date     time.Time
	Note     string
}

// Move appends a paired move-out/move-in and applies both deltas
// atomically. The pair nets to zero, preserving conservation.
func (s *Service) Move(ctx context.Context, req MoveRequest) error {
	if !req.Kilos.IsPositive() {
		return apperror.NewValidation("move kilos must be positive").
			WithDetail("field", "kilos")
	}
	if req.Unidades != nil && req.Unidades.IsNegative() {
		return apperror.NewValidation("move unidades cannot be negative").
			WithDetail("field", "unidades")
	}

	from := entity.StockKey{
		DepotID:    req.FromDepotID,
		PositionID: req.FromPositionID,
		ItemID:     req.ItemID,
		LotID:      req.LotID,
	}
	to := entity.StockKey{
		DepotID:    req.ToDepotID,
		PositionID: req.ToPositionID,
		ItemID:     req.ItemID,
		LotID:      req.LotID,
	}
	if from == to {
		return apperror.NewValidation("source and destination positions are the same").
			WithDetail("field", "toPositionId")
	}

	negKilos := req.Kilos.Neg()
	var negUnidades *types.Quantity
	if req.Unidades != nil {
		n := req.Unidades.Neg()
		negUnidades = &n
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// Lock both keys in canonical order to keep concurrent moves
		// deadlock-free.
		keys := []entity.StockKey{from, to}
		entity.SortKeys(keys)
		balances, err := s.repo.GetBalancesForUpdate(ctx, keys)
		if err != nil {
			return fmt.Errorf("lock balances: %w", err)
		}
		for i, b := range balances {
			if keys[i] == from {
				if err := checkResult(from, b, negKilos, negUnidades); err != nil {
					return err
				}
			}
		}

		date := req.Date
		if date.IsZero() {
			date = time.Now().UTC()
		}
		userID := appctx.GetUserID(ctx)

		out := entity.NewLedgerEntry(entity.EntryMoveSalida, from, negKilos)
		out.DeltaUnidades = negUnidades
		out.Note = req.Note
		out.UserID = userID
		out.Date = date

		in := entity.NewLedgerEntry(entity.EntryMoveEntrada, to, req.Kilos)
		in.DeltaUnidades = req.Unidades
		in.Note = req.Note
		in.UserID = userID
		in.Date = date

		if err := s.entries.Append(ctx, []entity.LedgerEntry{out, in}); err != nil {
			return err
		}
		if err := s.repo.ApplyDelta(ctx, from, negKilos, negUnidades, date); err != nil {
			return err
		}
		if err := s.repo.ApplyDelta(ctx, to, req.Kilos, req.Unidades, date); err != nil {
			return err
		}

		logger.Info(ctx, "stock moved",
			"item_id", req.ItemID,
			"lot_id", req.LotID,
			"kilos", req.Kilos,
		)
		return nil
	})
}

// DeleteRow zeroes one balance via a compensating decrease entry. The
// ledger keeps the full history; nothing is physically removed.
func (s *Service) DeleteRow(ctx context.Context, key entity.StockKey, note string) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		balances, err := s.repo.GetBalancesForUpdate(ctx, []entity.StockKey{key})
		if err != nil {
			return fmt.Errorf("lock balance: %w", err)
		}
		bal := balances[0]
		if bal.IsEmpty() {
			return apperror.NewNotFound("stock balance", fmt.Sprintf("%s/%s", key.ItemID, key.LotID))
		}

		negKilos := bal.Kilos.Neg()
		var negUnidades *types.Quantity
		if !bal.Unidades.IsZero() {
			n := bal.Unidades.Neg()
			negUnidades = &n
		}

		e := entity.NewLedgerEntry(entity.EntryAjusteResta, key, negKilos)
		e.DeltaUnidades = negUnidades
		e.Note = note
		e.UserID = appctx.GetUserID(ctx)

		if err := s.entries.Append(ctx, []entity.LedgerEntry{e}); err != nil {
			return err
		}
		if err := s.repo.ApplyDelta(ctx, key, negKilos, negUnidades, e.Date); err != nil {
			return err
		}

		logger.Info(ctx, "stock row zeroed",
			"item_id", key.ItemID,
			"lot_id", key.LotID,
			"kilos", bal.Kilos,
		)
		return nil
	})
}

// RebuildBalances replays the whole ledger and swaps the balance table
// for the folded sums. Recovery path after suspected drift.
func (s *Service) RebuildBalances(ctx context.Context) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sums, err := s.entries.SumByKey(ctx)
		if err != nil {
			return fmt.Errorf("fold ledger: %w", err)
		}
		if err := s.repo.ReplaceBalances(ctx, sums); err != nil {
			return fmt.Errorf("replace balances: %w", err)
		}
		logger.Info(ctx, "balances rebuilt from ledger", "keys", len(sums))
		return nil
	})
}

// Mismatch is one key where the stored balance disagrees with the ledger.
type Mismatch struct {
	entity.StockKey

	LedgerKilos  types.Quantity `json:"ledgerKilos"`
	BalanceKilos types.Quantity `json:"balanceKilos"`
}

// VerifyConservation folds the ledger and compares it to the stored
// balances. An empty result means the store is consistent.
func (s *Service) VerifyConservation(ctx context.Context) ([]Mismatch, error) {
	sums, err := s.entries.SumByKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("fold ledger: %w", err)
	}

	var mismatches []Mismatch
	for _, sum := range sums {
		bal, err := s.repo.GetBalance(ctx, sum.StockKey)
		if err != nil {
			return nil, err
		}
		if bal.Kilos != sum.Kilos || bal.Unidades != sum.Unidades {
			mismatches = append(mismatches, Mismatch{
				StockKey:     sum.StockKey,
				LedgerKilos:  sum.Kilos,
				BalanceKilos: bal.Kilos,
			})
		}
	}
	return mismatches, nil
}

// checkResult rejects a delta that would leave the balance negative.
func checkResult(key entity.StockKey, bal entity.StockBalance, dKilos types.Quantity, dUnidades *types.Quantity) error {
	if (bal.Kilos + dKilos).IsNegative() {
		return apperror.NewInvariantViolation("balance would become negative").
			WithDetail("item_id", key.ItemID.String()).
			WithDetail("lot_id", key.LotID.String()).
			WithDetail("requested", dKilos.Abs().String()).
			WithDetail("available", bal.Kilos.String())
	}
	if dUnidades != nil && (bal.Unidades + *dUnidades).IsNegative() {
		return apperror.NewInvariantViolation("unidades balance would become negative").
			WithDetail("item_id", key.ItemID.String()).
			WithDetail("lot_id", key.LotID.String()).
			WithDetail("requested", dUnidades.Abs().String()).
			WithDetail("available", bal.Unidades.String())
	}
	return nil
}
