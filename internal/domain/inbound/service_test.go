package inbound_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almacen/internal/core/apperror"
	"almacen/internal/core/entity"
	"almacen/internal/core/types"
	"almacen/internal/domain/catalogs/depot"
	"almacen/internal/domain/catalogs/item"
	"almacen/internal/domain/catalogs/partner"
	"almacen/internal/domain/inbound"
	"almacen/internal/domain/ledger"
	"almacen/internal/domain/lot"
	"almacen/internal/infrastructure/storage/memory"
)

type fixture struct {
	store    *memory.Store
	items    *memory.ItemRepo
	partners *memory.PartnerRepo
	lots     *memory.LotRepo
	stock    *memory.StockRepo
	entries  *ledger.Service
	svc      *inbound.Service

	depot   *depot.Depot
	entrada *depot.Position
	other   *depot.Depot
}

// newFixture wires the receive engine over the memory store with one
// depot whose ENTRADA position is the default inbound target, plus a
// second depot to exercise cross-depot validation.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	numerator := memory.NewNumerator(store)

	itemRepo := memory.NewItemRepo(store)
	partnerRepo := memory.NewPartnerRepo(store)
	depotRepo := memory.NewDepotRepo(store)
	posRepo := memory.NewPositionRepo(store)
	lotRepo := memory.NewLotRepo(store)
	stockRepo := memory.NewStockRepo(store)
	entries := ledger.NewService(memory.NewLedgerRepo(store))

	partnerSvc := partner.NewService(partnerRepo, txm, numerator)
	depotSvc := depot.NewService(depotRepo, posRepo, txm)
	lotSvc := lot.NewService(lotRepo, txm)

	f := &fixture{
		store:    store,
		items:    itemRepo,
		partners: partnerRepo,
		lots:     lotRepo,
		stock:    stockRepo,
		entries:  entries,
		svc: inbound.NewService(
			memory.NewReceiptRepo(store),
			stockRepo,
			entries,
			itemRepo,
			partnerSvc,
			depotSvc,
			lotSvc,
			numerator,
			txm,
		),
	}

	f.depot = depot.NewDepot("DEP-01", "Deposito Central", depot.TypeMixed)
	require.NoError(t, depotRepo.Create(ctx, f.depot))
	f.entrada = depot.NewPosition(f.depot.ID, "ENTRADA", "Entrada", depot.PositionStorage)
	require.NoError(t, posRepo.Create(ctx, f.entrada))
	entradaID := f.entrada.ID
	f.depot.DefaultInboundPositionID = &entradaID
	require.NoError(t, depotRepo.Update(ctx, f.depot))

	f.other = depot.NewDepot("DEP-02", "Deposito Secundario", depot.TypeStorage)
	require.NoError(t, depotRepo.Create(ctx, f.other))

	return f
}

func (f *fixture) createItem(t *testing.T, code string, trackLot bool) *item.Item {
	t.Helper()
	it := item.NewItem(code, "Item "+code, item.CategoryYarn)
	it.TrackLot = trackLot
	require.NoError(t, f.items.Create(context.Background(), it))
	return it
}

func TestReceive_ResolvesEverythingAndAppendsEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	it := f.createItem(t, "HIL-001", true)

	doc, err := f.svc.Receive(ctx, inbound.ReceiveRequest{
		SupplierName: "Hilanderia Norte",
		DepotID:      f.depot.ID,
		Note:         "first truck",
		Lines: []inbound.ReceiveLine{
			{ItemCode: "HIL-001", LotNumber: "H-44", Kilos: types.MustQuantity("120.5")},
		},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc.Number, "RE-"))
	assert.Equal(t, types.MustQuantity("120.5"), doc.TotalKilos)
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, "H-44", doc.Lines[0].LotNumber)
	assert.Equal(t, f.entrada.ID, doc.Lines[0].PositionID)

	// The unknown supplier was created on the fly.
	p, err := f.partners.GetByName(ctx, "Hilanderia Norte")
	require.NoError(t, err)
	assert.True(t, p.IsSupplier)
	assert.Equal(t, &p.ID, doc.SupplierID)

	// So was the lot, owned by that supplier.
	l, err := f.lots.Find(ctx, it.ID, "H-44", &p.ID)
	require.NoError(t, err)
	assert.False(t, l.Implicit)

	bal, err := f.stock.GetBalance(ctx, doc.Lines[0].StockKey)
	require.NoError(t, err)
	assert.Equal(t, types.MustQuantity("120.5"), bal.Kilos)

	produced, err := f.entries.ListByRef(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, produced, 1)
	assert.Equal(t, entity.EntryRemitoEntrada, produced[0].Type)
	assert.True(t, produced[0].DeltaKilos.IsPositive())
}

func TestReceive_ImplicitLotForUntrackedItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	it := f.createItem(t, "SUM-001", false)

	doc, err := f.svc.Receive(ctx, inbound.ReceiveRequest{
		SupplierName: "Proveedora Sur",
		DepotID:      f.depot.ID,
		Lines: []inbound.ReceiveLine{
			// LotNumber is ignored for non-tracked items.
			{ItemID: &it.ID, LotNumber: "whatever", Kilos: types.MustQuantity("10")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, lot.ImplicitNumber, doc.Lines[0].LotNumber)

	l, err := f.lots.FindImplicit(ctx, it.ID)
	require.NoError(t, err)
	assert.True(t, l.Implicit)

	// A second receipt reuses the same implicit lot.
	doc2, err := f.svc.Receive(ctx, inbound.ReceiveRequest{
		SupplierName: "Proveedora Sur",
		DepotID:      f.depot.ID,
		Lines: []inbound.ReceiveLine{
			{ItemID: &it.ID, Kilos: types.MustQuantity("5")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, l.ID, doc2.Lines[0].LotID)
}

func TestReceive_CreatesItemInline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Receive(ctx, inbound.ReceiveRequest{
		SupplierName: "Proveedora Sur",
		DepotID:      f.depot.ID,
		Lines: []inbound.ReceiveLine{
			{ItemCode: "NUEVO-01", Description: "Bolsas de nylon", Kilos: types.MustQuantity("8")},
		},
	})
	require.NoError(t, err)

	created, err := f.items.GetByCode(ctx, "NUEVO-01")
	require.NoError(t, err)
	assert.Equal(t, "Bolsas de nylon", created.Name)
	assert.Equal(t, item.CategorySupply, created.Category)
	assert.Equal(t, created.ID, doc.Lines[0].ItemID)
}

func TestReceive_UnknownItemWithoutDescription(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Receive(context.Background(), inbound.ReceiveRequest{
		SupplierName: "Proveedora Sur",
		DepotID:      f.depot.ID,
		Lines: []inbound.ReceiveLine{
			{ItemCode: "NADIE-SABE", Kilos: types.MustQuantity("8")},
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestReceive_RejectsPositionFromAnotherDepot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createItem(t, "HIL-001", false)
	otherPos := depot.NewPosition(f.other.ID, "EST-01", "Estante 01", depot.PositionStorage)
	require.NoError(t, memory.NewPositionRepo(f.store).Create(ctx, otherPos))

	_, err := f.svc.Receive(ctx, inbound.ReceiveRequest{
		SupplierName: "Proveedora Sur",
		DepotID:      f.depot.ID,
		Lines: []inbound.ReceiveLine{
			{ItemCode: "HIL-001", PositionID: &otherPos.ID, Kilos: types.MustQuantity("8")},
		},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestReceive_RequiresPositionWithoutDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createItem(t, "HIL-001", false)

	// f.other has no default inbound position.
	_, err := f.svc.Receive(ctx, inbound.ReceiveRequest{
		SupplierName: "Proveedora Sur",
		DepotID:      f.other.ID,
		Lines: []inbound.ReceiveLine{
			{ItemCode: "HIL-001", Kilos: types.MustQuantity("8")},
		},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestReceive_RequiresLotNumberForTrackedItem(t *testing.T) {
	f := newFixture(t)

	f.createItem(t, "HIL-001", true)

	_, err := f.svc.Receive(context.Background(), inbound.ReceiveRequest{
		SupplierName: "Proveedora Sur",
		DepotID:      f.depot.ID,
		Lines: []inbound.ReceiveLine{
			{ItemCode: "HIL-001", Kilos: types.MustQuantity("8")},
		},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestReceive_RollsBackResolutionOnLineFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tracked := f.createItem(t, "HIL-002", true)

	// The first line resolves a new supplier and a new lot; the second
	// line fails. Everything the first line created must be gone.
	_, err := f.svc.Receive(ctx, inbound.ReceiveRequest{
		SupplierName: "Proveedora Fantasma",
		DepotID:      f.depot.ID,
		Lines: []inbound.ReceiveLine{
			{ItemID: &tracked.ID, LotNumber: "H-99", Kilos: types.MustQuantity("10")},
			{ItemID: &tracked.ID, Kilos: types.MustQuantity("5")},
		},
	})
	require.Error(t, err)

	_, err = f.partners.GetByName(ctx, "Proveedora Fantasma")
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.lots.Find(ctx, tracked.ID, "H-99", nil)
	assert.True(t, apperror.IsNotFound(err))

	views, err := f.entries.Query(ctx, ledger.Filter{ItemID: &tracked.ID})
	require.NoError(t, err)
	assert.Empty(t, views)

	result, err := f.svc.List(ctx, inbound.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, result.TotalCount)
}
