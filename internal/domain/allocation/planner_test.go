package allocation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almacen/internal/core/apperror"
	"almacen/internal/core/entity"
	"almacen/internal/core/id"
	"almacen/internal/core/types"
)

var (
	itemYarn = id.MustParse("018f0000-0000-7000-8000-000000000001")
	depotA   = id.MustParse("018f0000-0000-7000-8000-0000000000aa")
	posPick1 = id.MustParse("018f0000-0000-7000-8000-0000000000b1")
	posPick2 = id.MustParse("018f0000-0000-7000-8000-0000000000b2")
	lotOld   = id.MustParse("018f0000-0000-7000-8000-0000000000c1")
	lotNew   = id.MustParse("018f0000-0000-7000-8000-0000000000c2")
	lotThird = id.MustParse("018f0000-0000-7000-8000-0000000000c3")
)

func key(pos, lot id.ID) entity.StockKey {
	return entity.StockKey{
		DepotID:    depotA,
		PositionID: pos,
		ItemID:     itemYarn,
		LotID:      lot,
	}
}

func lotBalance(pos, lot id.ID, number string, createdAt time.Time, kilos, unidades string) LotBalance {
	return LotBalance{
		StockKey:     key(pos, lot),
		LotNumber:    number,
		LotCreatedAt: createdAt,
		Kilos:        types.MustQuantity(kilos),
		Unidades:     types.MustQuantity(unidades),
	}
}

func TestBuildPlan_OldestLotFirstWithSplit(t *testing.T) {
	t0 := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	lots := []LotBalance{
		// deliberately out of order: newest first
		lotBalance(posPick1, lotNew, "L2", t0.Add(48*time.Hour), "30", "0"),
		lotBalance(posPick1, lotOld, "L1", t0, "50", "0"),
	}

	plan, err := BuildPlan(Request{ItemID: itemYarn, Kilos: types.MustQuantity("60")}, lots)
	require.NoError(t, err)

	require.Len(t, plan.Lines, 2)
	assert.Equal(t, "L1", plan.Lines[0].LotNumber)
	assert.Equal(t, types.MustQuantity("50"), plan.Lines[0].Kilos)
	assert.Equal(t, "L2", plan.Lines[1].LotNumber)
	assert.Equal(t, types.MustQuantity("10"), plan.Lines[1].Kilos)

	assert.Equal(t, types.MustQuantity("60"), plan.TotalKilos)
	assert.True(t, plan.ShortfallKilos.IsZero())
	assert.False(t, plan.IsPartial())
	assert.Empty(t, plan.Warnings)
}

func TestBuildPlan_PartialCoverage(t *testing.T) {
	t0 := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	lots := []LotBalance{
		lotBalance(posPick1, lotOld, "L1", t0, "25.5", "0"),
	}

	plan, err := BuildPlan(Request{ItemID: itemYarn, Kilos: types.MustQuantity("40")}, lots)
	require.NoError(t, err)

	require.Len(t, plan.Lines, 1)
	assert.Equal(t, types.MustQuantity("25.5"), plan.TotalKilos)
	assert.Equal(t, types.MustQuantity("14.5"), plan.ShortfallKilos)
	assert.True(t, plan.IsPartial())
	require.Len(t, plan.Warnings, 1)
	assert.Contains(t, plan.Warnings[0], "partial allocation")
}

func TestBuildPlan_NoEligibleStock(t *testing.T) {
	plan, err := BuildPlan(Request{ItemID: itemYarn, Kilos: types.MustQuantity("10")}, nil)
	require.NoError(t, err)

	assert.Empty(t, plan.Lines)
	assert.True(t, plan.TotalKilos.IsZero())
	assert.Equal(t, types.MustQuantity("10"), plan.ShortfallKilos)
	require.Len(t, plan.Warnings, 1)
	assert.Contains(t, plan.Warnings[0], "no eligible stock")
}

func TestBuildPlan_SkipsOtherItemsAndEmptyBuckets(t *testing.T) {
	t0 := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	otherItem := id.MustParse("018f0000-0000-7000-8000-000000000002")

	other := lotBalance(posPick1, lotOld, "X1", t0, "100", "0")
	other.ItemID = otherItem
	empty := lotBalance(posPick1, lotNew, "L2", t0, "0", "0")
	good := lotBalance(posPick2, lotThird, "L3", t0.Add(time.Hour), "20", "0")

	plan, err := BuildPlan(Request{ItemID: itemYarn, Kilos: types.MustQuantity("15")}, []LotBalance{other, empty, good})
	require.NoError(t, err)

	require.Len(t, plan.Lines, 1)
	assert.Equal(t, "L3", plan.Lines[0].LotNumber)
	assert.Equal(t, types.MustQuantity("15"), plan.Lines[0].Kilos)
}

func TestBuildPlan_LotIDTiebreakOnEqualCreation(t *testing.T) {
	t0 := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	lots := []LotBalance{
		lotBalance(posPick1, lotNew, "B", t0, "10", "0"),
		lotBalance(posPick1, lotOld, "A", t0, "10", "0"),
	}

	plan, err := BuildPlan(Request{ItemID: itemYarn, Kilos: types.MustQuantity("15")}, lots)
	require.NoError(t, err)

	// lotOld has the smaller id, so it wins the tiebreak.
	require.Len(t, plan.Lines, 2)
	assert.Equal(t, "A", plan.Lines[0].LotNumber)
	assert.Equal(t, "B", plan.Lines[1].LotNumber)
}

func TestBuildPlan_ProportionalUnidades(t *testing.T) {
	t0 := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	lots := []LotBalance{
		lotBalance(posPick1, lotOld, "L1", t0, "100", "40"),
	}

	plan, err := BuildPlan(Request{ItemID: itemYarn, Kilos: types.MustQuantity("25")}, lots)
	require.NoError(t, err)

	require.Len(t, plan.Lines, 1)
	require.NotNil(t, plan.Lines[0].Unidades)
	// 25/100 of 40 pieces
	assert.Equal(t, types.MustQuantity("10"), *plan.Lines[0].Unidades)
}

func TestBuildPlan_FullDrawTakesAllUnidades(t *testing.T) {
	t0 := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	lots := []LotBalance{
		lotBalance(posPick1, lotOld, "L1", t0, "30", "7"),
		lotBalance(posPick1, lotNew, "L2", t0.Add(time.Hour), "50", "11"),
	}

	plan, err := BuildPlan(Request{ItemID: itemYarn, Kilos: types.MustQuantity("35")}, lots)
	require.NoError(t, err)

	require.Len(t, plan.Lines, 2)
	require.NotNil(t, plan.Lines[0].Unidades)
	assert.Equal(t, types.MustQuantity("7"), *plan.Lines[0].Unidades)
	require.NotNil(t, plan.Lines[1].Unidades)
	// 5/50 of 11 pieces = 1.1
	assert.Equal(t, types.MustQuantity("1.1"), *plan.Lines[1].Unidades)
}

func TestBuildPlan_DepotAndPositionConstraints(t *testing.T) {
	t0 := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	otherDepot := id.MustParse("018f0000-0000-7000-8000-0000000000ab")

	inOther := lotBalance(posPick1, lotOld, "L1", t0, "40", "0")
	inOther.DepotID = otherDepot
	inHere := lotBalance(posPick2, lotNew, "L2", t0.Add(time.Hour), "40", "0")

	plan, err := BuildPlan(Request{
		ItemID:  itemYarn,
		Kilos:   types.MustQuantity("20"),
		DepotID: &depotA,
	}, []LotBalance{inOther, inHere})
	require.NoError(t, err)

	require.Len(t, plan.Lines, 1)
	assert.Equal(t, "L2", plan.Lines[0].LotNumber)

	plan, err = BuildPlan(Request{
		ItemID:     itemYarn,
		Kilos:      types.MustQuantity("20"),
		PositionID: &posPick1,
	}, []LotBalance{inHere})
	require.NoError(t, err)
	assert.Empty(t, plan.Lines)
	assert.True(t, plan.IsPartial())
}

func TestBuildPlan_Deterministic(t *testing.T) {
	t0 := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	lots := []LotBalance{
		lotBalance(posPick2, lotThird, "L3", t0.Add(2*time.Hour), "15", "3"),
		lotBalance(posPick1, lotOld, "L1", t0, "50", "10"),
		lotBalance(posPick1, lotNew, "L2", t0.Add(time.Hour), "30", "6"),
	}
	shuffled := []LotBalance{lots[1], lots[2], lots[0]}

	req := Request{ItemID: itemYarn, Kilos: types.MustQuantity("70")}

	first, err := BuildPlan(req, lots)
	require.NoError(t, err)
	second, err := BuildPlan(req, shuffled)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildPlan_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"zero kilos", Request{ItemID: itemYarn}},
		{"negative kilos", Request{ItemID: itemYarn, Kilos: types.MustQuantity("-5")}},
		{"missing item", Request{Kilos: types.MustQuantity("5")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildPlan(tt.req, nil)
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
		})
	}
}
