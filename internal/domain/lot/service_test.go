package lot_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almacen/internal/core/apperror"
	"almacen/internal/core/id"
	"almacen/internal/domain/lot"
	"almacen/internal/infrastructure/storage/memory"
)

func newService() *lot.Service {
	store := memory.NewStore()
	return lot.NewService(memory.NewLotRepo(store), memory.NewTxManager(store))
}

func TestResolve_CreatesOnceThenReuses(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	itemID := id.New()
	supplierID := id.New()

	first, err := svc.Resolve(ctx, itemID, "H-44", &supplierID)
	require.NoError(t, err)
	assert.Equal(t, "H-44", first.Number)
	assert.False(t, first.Implicit)

	second, err := svc.Resolve(ctx, itemID, "  H-44  ", &supplierID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestResolve_SameNumberDifferentSupplier(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	itemID := id.New()
	supplierA := id.New()
	supplierB := id.New()

	a, err := svc.Resolve(ctx, itemID, "H-44", &supplierA)
	require.NoError(t, err)
	b, err := svc.Resolve(ctx, itemID, "H-44", &supplierB)
	require.NoError(t, err)

	// The same label from two suppliers is two distinct lots.
	assert.NotEqual(t, a.ID, b.ID)
}

func TestResolve_RequiresNumber(t *testing.T) {
	svc := newService()

	_, err := svc.Resolve(context.Background(), id.New(), "   ", nil)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestResolveImplicit_SingletonPerItem(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	itemID := id.New()

	first, err := svc.ResolveImplicit(ctx, itemID)
	require.NoError(t, err)
	assert.True(t, first.Implicit)
	assert.Equal(t, lot.ImplicitNumber, first.Number)

	second, err := svc.ResolveImplicit(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other, err := svc.ResolveImplicit(ctx, id.New())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestRename_KeepsIdentity(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	itemID := id.New()

	l, err := svc.Resolve(ctx, itemID, "PROVISORIO", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Rename(ctx, l.ID, "H-44-B"))

	renamed, err := svc.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "H-44-B", renamed.Number)
	assert.Equal(t, l.ID, renamed.ID)
	assert.Equal(t, l.CreatedAt, renamed.CreatedAt)
}

func TestRename_RejectsImplicitLot(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	l, err := svc.ResolveImplicit(ctx, id.New())
	require.NoError(t, err)

	err = svc.Rename(ctx, l.ID, "H-44")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestRename_UnknownLot(t *testing.T) {
	svc := newService()

	err := svc.Rename(context.Background(), id.New(), "H-44")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
