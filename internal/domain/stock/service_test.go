package stock_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almacen/internal/core/apperror"
	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
	"almacen/internal/domain/ledger"
	"almacen/internal/domain/stock"
	"almacen/internal/infrastructure/storage/memory"
)

var (
	depotID  = id.MustParse("018f0000-0000-7000-8000-0000000000aa")
	posOne   = id.MustParse("018f0000-0000-7000-8000-0000000000b1")
	posTwo   = id.MustParse("018f0000-0000-7000-8000-0000000000b2")
	itemID   = id.MustParse("018f0000-0000-7000-8000-000000000001")
	lotID    = id.MustParse("018f0000-0000-7000-8000-0000000000c1")
)

type fixture struct {
	store     *memory.Store
	stockRepo *memory.StockRepo
	entries   *ledger.Service
	svc       *stock.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	stockRepo := memory.NewStockRepo(store)
	entries := ledger.NewService(memory.NewLedgerRepo(store))
	return &fixture{
		store:     store,
		stockRepo: stockRepo,
		entries:   entries,
		svc:       stock.NewService(stockRepo, entries, txm),
	}
}

func keyAt(pos id.ID) entity.StockKey {
	return entity.StockKey{
		DepotID:    depotID,
		PositionID: pos,
		ItemID:     itemID,
		LotID:      lotID,
	}
}

func (f *fixture) seed(t *testing.T, pos id.ID, kilos string) {
	t.Helper()
	err := f.svc.Adjust(context.Background(), stock.AdjustRequest{
		Key:        keyAt(pos),
		DeltaKilos: types.MustQuantity(kilos),
		Note:       "opening stock",
	})
	require.NoError(t, err)
}

func TestAdjust_IncreaseThenDecrease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, posOne, "100")

	err := f.svc.Adjust(ctx, stock.AdjustRequest{
		Key:        keyAt(posOne),
		DeltaKilos: types.MustQuantity("-30"),
	})
	require.NoError(t, err)

	bal, err := f.svc.GetBalance(ctx, keyAt(posOne))
	require.NoError(t, err)
	assert.Equal(t, types.MustQuantity("70"), bal.Kilos)

	views, err := f.entries.Query(ctx, ledger.Filter{ItemID: &itemID})
	require.NoError(t, err)
	require.Len(t, views, 2)
	typesSeen := map[entity.EntryType]bool{}
	for _, v := range views {
		typesSeen[v.Type] = true
	}
	assert.True(t, typesSeen[entity.EntryAjusteSuma])
	assert.True(t, typesSeen[entity.EntryAjusteResta])
}

func TestAdjust_RejectsNegativeResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, posOne, "30")

	err := f.svc.Adjust(ctx, stock.AdjustRequest{
		Key:        keyAt(posOne),
		DeltaKilos: types.MustQuantity("-50"),
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvariantViolation, appErr.Code)
	assert.Equal(t, "50.0000", appErr.Details["requested"])
	assert.Equal(t, "30.0000", appErr.Details["available"])

	// Nothing changed: balance intact, no entry appended.
	bal, err := f.svc.GetBalance(ctx, keyAt(posOne))
	require.NoError(t, err)
	assert.Equal(t, types.MustQuantity("30"), bal.Kilos)

	views, err := f.entries.Query(ctx, ledger.Filter{ItemID: &itemID})
	require.NoError(t, err)
	assert.Len(t, views, 1)
}

func TestAdjust_RejectsZeroDelta(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Adjust(context.Background(), stock.AdjustRequest{Key: keyAt(posOne)})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestMove_RelocatesBetweenPositions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, posOne, "100")

	err := f.svc.Move(ctx, stock.MoveRequest{
		ItemID:         itemID,
		LotID:          lotID,
		FromDepotID:    depotID,
		FromPositionID: posOne,
		ToDepotID:      depotID,
		ToPositionID:   posTwo,
		Kilos:          types.MustQuantity("40"),
	})
	require.NoError(t, err)

	from, err := f.svc.GetBalance(ctx, keyAt(posOne))
	require.NoError(t, err)
	to, err := f.svc.GetBalance(ctx, keyAt(posTwo))
	require.NoError(t, err)
	assert.Equal(t, types.MustQuantity("60"), from.Kilos)
	assert.Equal(t, types.MustQuantity("40"), to.Kilos)

	mismatches, err := f.svc.VerifyConservation(ctx)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func TestMove_RejectsInsufficientSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, posOne, "10")

	err := f.svc.Move(ctx, stock.MoveRequest{
		ItemID:         itemID,
		LotID:          lotID,
		FromDepotID:    depotID,
		FromPositionID: posOne,
		ToDepotID:      depotID,
		ToPositionID:   posTwo,
		Kilos:          types.MustQuantity("25"),
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvariantViolation, appErr.Code)

	// Rolled back completely.
	from, err := f.svc.GetBalance(ctx, keyAt(posOne))
	require.NoError(t, err)
	to, err := f.svc.GetBalance(ctx, keyAt(posTwo))
	require.NoError(t, err)
	assert.Equal(t, types.MustQuantity("10"), from.Kilos)
	assert.True(t, to.Kilos.IsZero())
}

func TestMove_RejectsSamePosition(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Move(context.Background(), stock.MoveRequest{
		ItemID:         itemID,
		LotID:          lotID,
		FromDepotID:    depotID,
		FromPositionID: posOne,
		ToDepotID:      depotID,
		ToPositionID:   posOne,
		Kilos:          types.MustQuantity("5"),
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestDeleteRow_ZeroesViaCounterEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, posOne, "17.5")

	err := f.svc.DeleteRow(ctx, keyAt(posOne), "cycle count: bucket not found")
	require.NoError(t, err)

	bal, err := f.svc.GetBalance(ctx, keyAt(posOne))
	require.NoError(t, err)
	assert.True(t, bal.Kilos.IsZero())

	// History is preserved: the opening entry plus the counter entry.
	views, err := f.entries.Query(ctx, ledger.Filter{ItemID: &itemID})
	require.NoError(t, err)
	require.Len(t, views, 2)

	mismatches, err := f.svc.VerifyConservation(ctx)
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	// Deleting an already-empty row is NOT_FOUND.
	err = f.svc.DeleteRow(ctx, keyAt(posOne), "again")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestRebuildBalances_RestoresFromLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, posOne, "100")
	f.seed(t, posTwo, "50")
	require.NoError(t, f.svc.Adjust(ctx, stock.AdjustRequest{
		Key:        keyAt(posOne),
		DeltaKilos: types.MustQuantity("-20"),
	}))

	// Wipe the balance table, then replay.
	require.NoError(t, f.stockRepo.ReplaceBalances(ctx, nil))
	bal, err := f.svc.GetBalance(ctx, keyAt(posOne))
	require.NoError(t, err)
	require.True(t, bal.Kilos.IsZero())

	require.NoError(t, f.svc.RebuildBalances(ctx))

	bal, err = f.svc.GetBalance(ctx, keyAt(posOne))
	require.NoError(t, err)
	assert.Equal(t, types.MustQuantity("80"), bal.Kilos)
	bal, err = f.svc.GetBalance(ctx, keyAt(posTwo))
	require.NoError(t, err)
	assert.Equal(t, types.MustQuantity("50"), bal.Kilos)

	mismatches, err := f.svc.VerifyConservation(ctx)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

// TestRandomOperationSequence throws random adjust/move/delete-row
// sequences at the service and checks, after every step, that no balance
// went negative, that illegal operations were rejected rather than
// clamped, and that folding the ledger still reproduces the balances.
func TestRandomOperationSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seed := time.Now().UnixNano()
	rng := rand.New(rand.NewSource(seed))
	t.Logf("sequence seed %d", seed)

	positions := []id.ID{posOne, posTwo}
	expected := map[entity.StockKey]types.Quantity{}

	for step := 0; step < 300; step++ {
		switch rng.Intn(4) {
		case 0, 1: // signed adjustment
			key := keyAt(positions[rng.Intn(len(positions))])
			delta := types.NewQuantityFromFloat64(float64(rng.Intn(41) - 20))
			if delta.IsZero() {
				continue
			}
			err := f.svc.Adjust(ctx, stock.AdjustRequest{Key: key, DeltaKilos: delta})
			if (expected[key] + delta).IsNegative() {
				require.Error(t, err, "step %d: overdraw must be rejected", step)
				appErr, ok := apperror.AsAppError(err)
				require.True(t, ok)
				require.Equal(t, apperror.CodeInvariantViolation, appErr.Code, "step %d", step)
			} else {
				require.NoError(t, err, "step %d", step)
				expected[key] += delta
			}

		case 2: // move between the two positions
			from := positions[rng.Intn(len(positions))]
			to := positions[rng.Intn(len(positions))]
			if from == to {
				continue
			}
			kilos := types.NewQuantityFromFloat64(float64(rng.Intn(20) + 1))
			err := f.svc.Move(ctx, stock.MoveRequest{
				ItemID:         itemID,
				LotID:          lotID,
				FromDepotID:    depotID,
				FromPositionID: from,
				ToDepotID:      depotID,
				ToPositionID:   to,
				Kilos:          kilos,
			})
			if (expected[keyAt(from)] - kilos).IsNegative() {
				require.Error(t, err, "step %d: overdraw must be rejected", step)
				appErr, ok := apperror.AsAppError(err)
				require.True(t, ok)
				require.Equal(t, apperror.CodeInvariantViolation, appErr.Code, "step %d", step)
			} else {
				require.NoError(t, err, "step %d", step)
				expected[keyAt(from)] -= kilos
				expected[keyAt(to)] += kilos
			}

		case 3: // delete-row
			key := keyAt(positions[rng.Intn(len(positions))])
			err := f.svc.DeleteRow(ctx, key, "cycle count")
			if expected[key].IsZero() {
				require.Error(t, err, "step %d: empty row delete must fail", step)
				require.True(t, apperror.IsNotFound(err), "step %d", step)
			} else {
				require.NoError(t, err, "step %d", step)
				expected[key] = 0
			}
		}

		for _, pos := range positions {
			bal, err := f.svc.GetBalance(ctx, keyAt(pos))
			require.NoError(t, err)
			require.False(t, bal.Kilos.IsNegative(), "step %d: negative balance", step)
			require.Equal(t, expected[keyAt(pos)], bal.Kilos, "step %d", step)
		}

		mismatches, err := f.svc.VerifyConservation(ctx)
		require.NoError(t, err)
		require.Empty(t, mismatches, "step %d: ledger fold disagrees with balances", step)
	}
}

func TestVerifyConservation_DetectsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, posOne, "100")

	// A delta applied without a matching ledger entry is exactly the
	// drift the check exists to find.
	require.NoError(t, f.stockRepo.ApplyDelta(ctx, keyAt(posOne), types.MustQuantity("-10"), nil, time.Now().UTC()))

	mismatches, err := f.svc.VerifyConservation(ctx)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, types.MustQuantity("100"), mismatches[0].LedgerKilos)
	assert.Equal(t, types.MustQuantity("90"), mismatches[0].BalanceKilos)
}
