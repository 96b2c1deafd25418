package stock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashpoint/internal/core/apperror"
	appctx "cashpoint/internal/core/context"
	"cashpoint/internal/core/id"
	"cashpoint/internal/core/types"
	"cashpoint/internal/domain/catalogs/product"
	"cashpoint/internal/domain/registers/stock"
	"cashpoint/internal/infrastructure/storage/memory"
)

type fixture struct {
	store  *memory.Store
	ledger *stock.Service
	actor  appctx.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	return &fixture{
		store:  store,
		ledger: stock.NewService(store.Stock(), store.Products(), store, store.Audit()),
		actor:  appctx.Actor{TenantID: id.New(), UserID: id.New(), UserName: "cashier", Role: "admin"},
	}
}

func (f *fixture) product(t *testing.T, sku string, stockQty, reorder int64) *product.Product {
	t.Helper()
	ctx := context.Background()
	p := &product.Product{Name: "Item " + sku, SKU: sku, Price: types.MustMoney("1000"), ReorderPoint: reorder}
	require.NoError(t, product.NewService(f.store.Products()).Create(ctx, f.actor, p))
	if stockQty > 0 {
		_, err := f.ledger.ApplyStockChange(ctx, f.actor, stock.Change{
			ProductID: p.ID, Type: stock.TypeEntrada, Quantity: stockQty, Reason: "initial",
		})
		require.NoError(t, err)
	}
	return p
}

func (f *fixture) stockOf(t *testing.T, productID id.ID) int64 {
	t.Helper()
	p, err := f.store.Products().GetByID(context.Background(), f.actor.TenantID, productID)
	require.NoError(t, err)
	return p.Stock
}

func TestApplyStockChange_RecordsMovement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "A", 10, 0)

	m, err := f.ledger.ApplyStockChange(ctx, f.actor, stock.Change{
		ProductID: p.ID, Type: stock.TypeSalida, Quantity: 4, Reason: "damaged",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(10), m.PreviousStock)
	assert.Equal(t, int64(6), m.NewStock)
	assert.Equal(t, int64(4), m.Quantity)
	assert.Equal(t, f.actor.UserID, *m.UserID)
	assert.Equal(t, int64(6), f.stockOf(t, p.ID))
}

func TestApplyStockChange_NeverNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "A", 2, 0)

	before, err := f.ledger.History(ctx, f.actor, stock.MovementFilter{ProductID: &p.ID})
	require.NoError(t, err)

	_, err = f.ledger.ApplyStockChange(ctx, f.actor, stock.Change{
		ProductID: p.ID, Type: stock.TypeVenta, Quantity: 3, Reason: "oversell",
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInsufficientStock))

	after, err := f.ledger.History(ctx, f.actor, stock.MovementFilter{ProductID: &p.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.stockOf(t, p.ID))
	assert.Equal(t, before.TotalCount, after.TotalCount)
}

func TestApplyStockChange_ZeroDeltaAdjustmentIsLogged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "A", 7, 0)

	m, err := f.ledger.ApplyStockChange(ctx, f.actor, stock.Change{
		ProductID: p.ID, Type: stock.TypeAjuste, Quantity: 7, Reason: "count",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.Quantity)
	assert.Equal(t, int64(7), m.NewStock)

	entries := f.store.Audit().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, p.ID, entries[0].EntityID)
}

func TestApplyStockChange_OtherTenantProduct(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A", 5, 0)

	stranger := appctx.Actor{TenantID: id.New(), UserID: id.New()}
	_, err := f.ledger.ApplyStockChange(context.Background(), stranger, stock.Change{
		ProductID: p.ID, Type: stock.TypeSalida, Quantity: 1, Reason: "x",
	})
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, int64(5), f.stockOf(t, p.ID))
}

func TestBulkAdjust_AbortsOnFirstError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", 10, 0)
	b := f.product(t, "B", 1, 0)

	_, err := f.ledger.BulkAdjust(ctx, f.actor, []stock.Change{
		{ProductID: a.ID, Type: stock.TypeAjuste, Quantity: 3, Reason: "count"},
		{ProductID: b.ID, Type: stock.TypeSalida, Quantity: 5, Reason: "count"},
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, 1, appErr.Details["index"])

	assert.Equal(t, int64(10), f.stockOf(t, a.ID))
	assert.Equal(t, int64(1), f.stockOf(t, b.ID))
	assert.Empty(t, f.store.Audit().Entries())
}

func TestBulkAdjust_AppliesAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", 10, 0)
	b := f.product(t, "B", 1, 0)

	res, err := f.ledger.BulkAdjust(ctx, f.actor, []stock.Change{
		{ProductID: a.ID, Type: stock.TypeAjuste, Quantity: 3, Reason: "count"},
		{ProductID: b.ID, Type: stock.TypeEntrada, Quantity: 5, Reason: "purchase"},
	})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, int64(7), res[0].Quantity)
	assert.Equal(t, int64(3), f.stockOf(t, a.ID))
	assert.Equal(t, int64(6), f.stockOf(t, b.ID))
}

func TestBulkAdjust_Empty(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.BulkAdjust(context.Background(), f.actor, nil)
	assert.True(t, apperror.Is(err, apperror.CodeValidation))
}

func TestHistory_NewestFirstAndFiltered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", 10, 0)
	f.product(t, "B", 3, 0)

	_, err := f.ledger.ApplyStockChange(ctx, f.actor, stock.Change{
		ProductID: a.ID, Type: stock.TypeSalida, Quantity: 1, Reason: "sample",
	})
	require.NoError(t, err)

	res, err := f.ledger.History(ctx, f.actor, stock.MovementFilter{ProductID: &a.ID})
	require.NoError(t, err)
	require.Equal(t, int64(2), res.TotalCount)
	assert.Equal(t, stock.TypeSalida, res.Items[0].Type)
	assert.Equal(t, stock.TypeEntrada, res.Items[1].Type)

	entrada := stock.TypeEntrada
	res, err = f.ledger.History(ctx, f.actor, stock.MovementFilter{Type: &entrada})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.TotalCount)
}

func TestLowStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	low := f.product(t, "LOW", 2, 5)
	f.product(t, "OK", 20, 5)
	f.product(t, "UNTRACKED", 0, 0)

	res, err := f.ledger.LowStock(ctx, f.actor)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, low.ID, res[0].ID)
}

func TestLockProduct_RequiresTransaction(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A", 1, 0)

	_, err := f.ledger.LockProduct(context.Background(), f.actor.TenantID, p.ID)
	assert.Error(t, err)
}

func TestApply_UsesServiceClock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "A", 3, 0)

	at := time.Date(2026, 3, 14, 18, 30, 0, 0, time.FixedZone("ART", -3*60*60))
	f.ledger.WithClock(func() time.Time { return at })

	m, err := f.ledger.ApplyStockChange(ctx, f.actor, stock.Change{
		ProductID: p.ID, Type: stock.TypeEntrada, Quantity: 2, Reason: "delivery",
	})
	require.NoError(t, err)
	assert.True(t, at.Equal(m.CreatedAt))
	assert.Equal(t, time.UTC, m.CreatedAt.Location())

	got, err := f.store.Products().GetByID(ctx, f.actor.TenantID, p.ID)
	require.NoError(t, err)
	assert.True(t, at.Equal(got.UpdatedAt))
}

func TestBulkAdjust_UnknownProductReportsIndex(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", 4, 0)

	_, err := f.ledger.BulkAdjust(context.Background(), f.actor, []stock.Change{
		{ProductID: a.ID, Type: stock.TypeSalida, Quantity: 1, Reason: "count"},
		{ProductID: id.New(), Type: stock.TypeSalida, Quantity: 1, Reason: "count"},
	})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNotFound, appErr.Code)
	assert.Equal(t, 1, appErr.Details["index"])
	assert.Equal(t, int64(4), f.stockOf(t, a.ID))
}

func TestLockProducts_OpposingOrdersDoNotDeadlock(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", 1000, 0)
	b := f.product(t, "B", 1000, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const rounds = 200
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = f.ledger.BulkAdjust(ctx, f.actor, []stock.Change{
				{ProductID: a.ID, Type: stock.TypeSalida, Quantity: 1, Reason: "shrink"},
				{ProductID: b.ID, Type: stock.TypeSalida, Quantity: 1, Reason: "shrink"},
			})
		}()
		go func() {
			defer wg.Done()
			_, _ = f.ledger.BulkAdjust(ctx, f.actor, []stock.Change{
				{ProductID: b.ID, Type: stock.TypeSalida, Quantity: 1, Reason: "shrink"},
				{ProductID: a.ID, Type: stock.TypeSalida, Quantity: 1, Reason: "shrink"},
			})
		}()
	}
	wg.Wait()

	require.NoError(t, ctx.Err())
	assert.Equal(t, int64(1000-2*rounds), f.stockOf(t, a.ID))
	assert.Equal(t, int64(1000-2*rounds), f.stockOf(t, b.ID))
}
