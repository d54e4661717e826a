package alerts

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almacen/internal/core/apperror"
	"almacen/internal/core/types"
	"almacen/internal/domain/catalogs/item"
	"almacen/internal/domain/stock"
)

type fakeItems struct {
	items []*item.Item
}

func (f *fakeItems) ListWithAlerts(ctx context.Context) ([]*item.Item, error) {
	return f.items, nil
}

type fakeSummarizer struct {
	rows []stock.SummaryRow
}

func (f *fakeSummarizer) Summarize(ctx context.Context, group stock.SummaryGroup, _ stock.BalanceFilter) ([]stock.SummaryRow, error) {
	return f.rows, nil
}

func qty(s string) *types.Quantity {
	q := types.MustQuantity(s)
	return &q
}

func strPtr(s string) *string { return &s }

func TestValidateRule(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"threshold comparison", "kilos < threshold", false},
		{"compound", "kilos < 100.0 && unidades < 10.0", false},
		{"syntax error", "kilos <<", true},
		{"unknown variable", "cajas < 5.0", true},
		{"non-bool output", "kilos + 1.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRule(tt.expr)
			if tt.wantErr {
				require.Error(t, err)
				appErr, ok := apperror.AsAppError(err)
				require.True(t, ok)
				assert.Equal(t, apperror.CodeValidation, appErr.Code)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestEvaluate_ThresholdAlert(t *testing.T) {
	low := item.NewItem("HIL-001", "Hilado 30/1", item.CategoryYarn)
	low.AlertThresholdKilos = qty("100")
	fine := item.NewItem("HIL-002", "Hilado 20/1", item.CategoryYarn)
	fine.AlertThresholdKilos = qty("100")

	svc, err := NewService(
		&fakeItems{items: []*item.Item{low, fine}},
		&fakeSummarizer{rows: []stock.SummaryRow{
			{GroupID: low.ID.String(), Label: low.Name, Kilos: types.MustQuantity("40")},
			{GroupID: fine.ID.String(), Label: fine.Name, Kilos: types.MustQuantity("250")},
		}},
	)
	require.NoError(t, err)

	alerts, err := svc.Evaluate(context.Background())
	require.NoError(t, err)

	require.Len(t, alerts, 1)
	assert.Equal(t, "HIL-001", alerts[0].ItemCode)
	require.NotNil(t, alerts[0].Shortage)
	assert.Equal(t, types.MustQuantity("60"), *alerts[0].Shortage)
}

func TestEvaluate_RuleAlert(t *testing.T) {
	it := item.NewItem("CAJ-001", "Caja terminada", item.CategoryFinishedBox)
	it.AlertRule = strPtr("unidades < 12.0")

	svc, err := NewService(
		&fakeItems{items: []*item.Item{it}},
		&fakeSummarizer{rows: []stock.SummaryRow{
			{GroupID: it.ID.String(), Kilos: types.MustQuantity("500"), Unidades: types.MustQuantity("5")},
		}},
	)
	require.NoError(t, err)

	alerts, err := svc.Evaluate(context.Background())
	require.NoError(t, err)

	require.Len(t, alerts, 1)
	assert.Equal(t, "alert rule triggered", alerts[0].Reason)
	require.NotNil(t, alerts[0].Rule)
}

func TestEvaluate_BrokenRuleIsSkipped(t *testing.T) {
	broken := item.NewItem("SUP-001", "Aceite", item.CategorySupply)
	broken.AlertRule = strPtr("kilos <<")
	ok := item.NewItem("SUP-002", "Grasa", item.CategorySupply)
	ok.AlertThresholdKilos = qty("10")

	svc, err := NewService(
		&fakeItems{items: []*item.Item{broken, ok}},
		&fakeSummarizer{rows: []stock.SummaryRow{
			{GroupID: ok.ID.String(), Kilos: types.MustQuantity("2")},
		}},
	)
	require.NoError(t, err)

	alerts, err := svc.Evaluate(context.Background())
	require.NoError(t, err)

	require.Len(t, alerts, 1)
	assert.Equal(t, "SUP-002", alerts[0].ItemCode)
}

func TestEvaluate_ConcurrentRequests(t *testing.T) {
	// One shared service serves every request, so parallel evaluations
	// hit the rule cache while it is still being filled.
	items := make([]*item.Item, 0, 6)
	rows := make([]stock.SummaryRow, 0, 6)
	for i := 0; i < 6; i++ {
		it := item.NewItem(fmt.Sprintf("CAJ-%03d", i), "Caja terminada", item.CategoryFinishedBox)
		it.AlertRule = strPtr(fmt.Sprintf("unidades < %d.0", i+1))
		items = append(items, it)
		rows = append(rows, stock.SummaryRow{GroupID: it.ID.String(), Unidades: types.MustQuantity("0")})
	}

	svc, err := NewService(&fakeItems{items: items}, &fakeSummarizer{rows: rows})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			alerts, err := svc.Evaluate(context.Background())
			if err != nil {
				errs <- err
				return
			}
			if len(alerts) != len(items) {
				errs <- fmt.Errorf("got %d alerts, want %d", len(alerts), len(items))
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestEvaluate_MissingSummaryRowReadsAsZero(t *testing.T) {
	it := item.NewItem("HIL-003", "Hilado 40/1", item.CategoryYarn)
	it.AlertThresholdKilos = qty("5")

	svc, err := NewService(&fakeItems{items: []*item.Item{it}}, &fakeSummarizer{})
	require.NoError(t, err)

	alerts, err := svc.Evaluate(context.Background())
	require.NoError(t, err)

	require.Len(t, alerts, 1)
	assert.True(t, alerts[0].Kilos.IsZero())
}
