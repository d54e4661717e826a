package outbound_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almacen/internal/core/apperror"
	"almacen/internal/core/entity"
	"almacen/internal/core/types"
	"almacen/internal/domain/allocation"
	"almacen/internal/domain/catalogs/depot"
	"almacen/internal/domain/catalogs/item"
	"almacen/internal/domain/ledger"
	"almacen/internal/domain/lot"
	"almacen/internal/domain/outbound"
	"almacen/internal/domain/stock"
	"almacen/internal/infrastructure/storage/memory"
)

type fixture struct {
	store   *memory.Store
	stock   *stock.Service
	entries *ledger.Service
	svc     *outbound.Service

	depot  *depot.Depot
	pos    *depot.Position
	item   *item.Item
	lotOld *lot.Lot
	lotNew *lot.Lot
}

// newFixture builds the engine over the memory store and seeds the
// baseline picture: one picking position holding 50 kg of an older lot
// and 30 kg of a newer one.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	stockRepo := memory.NewStockRepo(store)
	entries := ledger.NewService(memory.NewLedgerRepo(store))
	stockSvc := stock.NewService(stockRepo, entries, txm)
	svc := outbound.NewService(
		memory.NewShipmentRepo(store),
		stockRepo,
		entries,
		memory.NewPlanArchive(store),
		memory.NewNumerator(store),
		txm,
	)

	f := &fixture{
		store:   store,
		stock:   stockSvc,
		entries: entries,
		svc:     svc,
	}

	f.depot = depot.NewDepot("DEP-01", "Deposito Central", depot.TypePicking)
	require.NoError(t, memory.NewDepotRepo(store).Create(ctx, f.depot))

	f.pos = depot.NewPosition(f.depot.ID, "PICK-01", "Picking 01", depot.PositionPicking)
	require.NoError(t, memory.NewPositionRepo(store).Create(ctx, f.pos))

	f.item = item.NewItem("ART-001", "Mozzarella 1kg", item.CategoryFinishedBox)
	require.NoError(t, memory.NewItemRepo(store).Create(ctx, f.item))

	lots := memory.NewLotRepo(store)
	f.lotOld = lot.NewLot(f.item.ID, "L-2026-001", nil)
	f.lotOld.CreatedAt = time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, lots.Create(ctx, f.lotOld))
	f.lotNew = lot.NewLot(f.item.ID, "L-2026-002", nil)
	f.lotNew.CreatedAt = time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	require.NoError(t, lots.Create(ctx, f.lotNew))

	f.adjust(t, f.lotOld, "50")
	f.adjust(t, f.lotNew, "30")
	return f
}

func (f *fixture) key(l *lot.Lot) entity.StockKey {
	return entity.StockKey{
		DepotID:    f.depot.ID,
		PositionID: f.pos.ID,
		ItemID:     f.item.ID,
		LotID:      l.ID,
	}
}

func (f *fixture) adjust(t *testing.T, l *lot.Lot, kilos string) {
	t.Helper()
	require.NoError(t, f.stock.Adjust(context.Background(), stock.AdjustRequest{
		Key:        f.key(l),
		DeltaKilos: types.MustQuantity(kilos),
	}))
}

func (f *fixture) kilosAt(t *testing.T, l *lot.Lot) types.Quantity {
	t.Helper()
	bal, err := f.stock.GetBalance(context.Background(), f.key(l))
	require.NoError(t, err)
	return bal.Kilos
}

func (f *fixture) request(kilos string) allocation.Request {
	return allocation.Request{
		ItemID: f.item.ID,
		Kilos:  types.MustQuantity(kilos),
	}
}

func TestPreviewAndCommit_OldestLotFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plan, err := f.svc.Preview(ctx, f.request("60"))
	require.NoError(t, err)
	require.Len(t, plan.Lines, 2)
	assert.Equal(t, f.lotOld.ID, plan.Lines[0].LotID)
	assert.Equal(t, types.MustQuantity("50"), plan.Lines[0].Kilos)
	assert.Equal(t, f.lotNew.ID, plan.Lines[1].LotID)
	assert.Equal(t, types.MustQuantity("10"), plan.Lines[1].Kilos)
	assert.False(t, plan.IsPartial())

	doc, err := f.svc.Commit(ctx, plan, outbound.CommitMeta{ClientName: "Quesos del Sur"}, outbound.CommitOptions{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc.Number, "RS-"))
	assert.Equal(t, types.MustQuantity("60"), doc.TotalKilos)
	require.Len(t, doc.Lines, 2)
	assert.Equal(t, "L-2026-001", doc.Lines[0].LotNumber)

	assert.True(t, f.kilosAt(t, f.lotOld).IsZero())
	assert.Equal(t, types.MustQuantity("20"), f.kilosAt(t, f.lotNew))

	produced, err := f.entries.ListByRef(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, produced, 2)
	for _, e := range produced {
		assert.Equal(t, entity.EntryRemitoSalida, e.Type)
		assert.True(t, e.DeltaKilos.IsNegative())
	}

	archived, err := f.svc.GetPlan(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, types.MustQuantity("60"), archived.TotalKilos)

	mismatches, err := f.stock.VerifyConservation(ctx)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func TestPreview_IsRepeatable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Preview(ctx, f.request("60"))
	require.NoError(t, err)
	second, err := f.svc.Preview(ctx, f.request("60"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCommit_PartialPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plan, err := f.svc.Preview(ctx, f.request("100"))
	require.NoError(t, err)
	assert.True(t, plan.IsPartial())
	assert.Equal(t, types.MustQuantity("20"), plan.ShortfallKilos)
	require.NotEmpty(t, plan.Warnings)

	// A partial plan commits what it covers; the shortfall stays visible
	// on the archived snapshot.
	doc, err := f.svc.Commit(ctx, plan, outbound.CommitMeta{ClientName: "Quesos del Sur"}, outbound.CommitOptions{})
	require.NoError(t, err)
	assert.Equal(t, types.MustQuantity("80"), doc.TotalKilos)
	assert.True(t, f.kilosAt(t, f.lotOld).IsZero())
	assert.True(t, f.kilosAt(t, f.lotNew).IsZero())
}

func TestCommit_StalePlanFailsFast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plan, err := f.svc.Preview(ctx, f.request("60"))
	require.NoError(t, err)

	// Someone else consumed most of the old lot between preview and commit.
	f.adjust(t, f.lotOld, "-45")

	_, err = f.svc.Commit(ctx, plan, outbound.CommitMeta{ClientName: "Quesos del Sur"}, outbound.CommitOptions{})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeStalePlan, appErr.Code)

	// Nothing was written.
	assert.Equal(t, types.MustQuantity("5"), f.kilosAt(t, f.lotOld))
	assert.Equal(t, types.MustQuantity("30"), f.kilosAt(t, f.lotNew))
	result, err := f.svc.List(ctx, outbound.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, result.TotalCount)
}

func TestCommit_StaleUnidadesFailsFast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The old lot also carries a piece count, so its plan line does too.
	ten := types.MustQuantity("10")
	require.NoError(t, f.stock.Adjust(ctx, stock.AdjustRequest{
		Key:           f.key(f.lotOld),
		DeltaUnidades: &ten,
	}))

	plan, err := f.svc.Preview(ctx, f.request("50"))
	require.NoError(t, err)
	require.Len(t, plan.Lines, 1)
	require.NotNil(t, plan.Lines[0].Unidades)

	// Kilos are untouched, but the pieces were drained between preview
	// and commit. That is a stale plan, not an invariant bug.
	minusTen := ten.Neg()
	require.NoError(t, f.stock.Adjust(ctx, stock.AdjustRequest{
		Key:           f.key(f.lotOld),
		DeltaUnidades: &minusTen,
	}))

	_, err = f.svc.Commit(ctx, plan, outbound.CommitMeta{ClientName: "Quesos del Sur"}, outbound.CommitOptions{})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeStalePlan, appErr.Code)

	// Nothing was written.
	assert.Equal(t, types.MustQuantity("50"), f.kilosAt(t, f.lotOld))
	result, err := f.svc.List(ctx, outbound.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, result.TotalCount)
}

func TestCommit_ReplanAbsorbsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plan, err := f.svc.Preview(ctx, f.request("60"))
	require.NoError(t, err)

	// The old lot shrank but the new lot grew: 10 + 70 still covers 60.
	f.adjust(t, f.lotOld, "-40")
	f.adjust(t, f.lotNew, "40")

	doc, err := f.svc.Commit(ctx, plan, outbound.CommitMeta{ClientName: "Quesos del Sur"}, outbound.CommitOptions{Replan: true})
	require.NoError(t, err)
	assert.Equal(t, types.MustQuantity("60"), doc.TotalKilos)
	require.Len(t, doc.Lines, 2)
	assert.Equal(t, types.MustQuantity("10"), doc.Lines[0].Kilos)
	assert.Equal(t, types.MustQuantity("50"), doc.Lines[1].Kilos)

	assert.True(t, f.kilosAt(t, f.lotOld).IsZero())
	assert.Equal(t, types.MustQuantity("20"), f.kilosAt(t, f.lotNew))

	// The archived snapshot is the replanned one, not the stale preview.
	archived, err := f.svc.GetPlan(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, types.MustQuantity("10"), archived.Lines[0].Kilos)
}

func TestCommit_ReplanRejectsShrinkage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plan, err := f.svc.Preview(ctx, f.request("60"))
	require.NoError(t, err)

	// Only 40 kg remain in total; a silent partial ship is not acceptable.
	f.adjust(t, f.lotOld, "-40")

	_, err = f.svc.Commit(ctx, plan, outbound.CommitMeta{ClientName: "Quesos del Sur"}, outbound.CommitOptions{Replan: true})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeStalePlan, appErr.Code)
	assert.Equal(t, "60.0000", appErr.Details["previewed_kilos"])
	assert.Equal(t, "40.0000", appErr.Details["replanned_kilos"])
}

func TestCommit_RollsBackOnMidwayFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Two lines drawing from the same bucket pass per-line revalidation
	// but overdraw it on apply, so the failure hits after the ledger
	// entries were already appended.
	crafted := &allocation.Plan{
		Request: f.request("60"),
		Lines: []allocation.Line{
			{StockKey: f.key(f.lotOld), LotNumber: f.lotOld.Number, Kilos: types.MustQuantity("30")},
			{StockKey: f.key(f.lotOld), LotNumber: f.lotOld.Number, Kilos: types.MustQuantity("30")},
		},
		TotalKilos: types.MustQuantity("60"),
	}

	_, err := f.svc.Commit(ctx, crafted, outbound.CommitMeta{ClientName: "Quesos del Sur"}, outbound.CommitOptions{})
	require.Error(t, err)

	// All or nothing: balances, ledger and documents are untouched.
	assert.Equal(t, types.MustQuantity("50"), f.kilosAt(t, f.lotOld))
	views, err := f.entries.Query(ctx, ledger.Filter{ItemID: &f.item.ID})
	require.NoError(t, err)
	assert.Len(t, views, 2)
	result, err := f.svc.List(ctx, outbound.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, result.TotalCount)

	mismatches, err := f.stock.VerifyConservation(ctx)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func TestCommit_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plan, err := f.svc.Preview(ctx, f.request("60"))
	require.NoError(t, err)

	_, err = f.svc.Commit(ctx, plan, outbound.CommitMeta{}, outbound.CommitOptions{})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	_, err = f.svc.Commit(ctx, &allocation.Plan{Request: f.request("60")}, outbound.CommitMeta{ClientName: "x"}, outbound.CommitOptions{})
	require.Error(t, err)
	appErr, ok = apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestDelete_ReversesShipment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plan, err := f.svc.Preview(ctx, f.request("60"))
	require.NoError(t, err)
	doc, err := f.svc.Commit(ctx, plan, outbound.CommitMeta{ClientName: "Quesos del Sur"}, outbound.CommitOptions{})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, doc.ID))

	// The stock came back, through compensating entries rather than by
	// erasing history.
	assert.Equal(t, types.MustQuantity("50"), f.kilosAt(t, f.lotOld))
	assert.Equal(t, types.MustQuantity("30"), f.kilosAt(t, f.lotNew))

	produced, err := f.entries.ListByRef(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, produced, 4) // 2 outbound + 2 reversal

	got, err := f.svc.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, got.DeletionMark)

	mismatches, err := f.stock.VerifyConservation(ctx)
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	// Reversing twice would double stock; the second call is a conflict.
	err = f.svc.Delete(ctx, doc.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
}
