package sale_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashpoint/internal/core/apperror"
	appctx "cashpoint/internal/core/context"
	"cashpoint/internal/core/events"
	"cashpoint/internal/core/id"
	"cashpoint/internal/core/numerator"
	"cashpoint/internal/core/types"
	"cashpoint/internal/domain/catalogs/product"
	"cashpoint/internal/domain/documents/cash_session"
	"cashpoint/internal/domain/documents/sale"
	"cashpoint/internal/domain/registers/stock"
	"cashpoint/internal/infrastructure/storage/memory"
)

var fixedNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	ledger   *stock.Service
	sessions *cash_session.Service
	sales    *sale.Service
	actor    appctx.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	ledger := stock.NewService(store.Stock(), store.Products(), store, store.Audit())
	sessions := cash_session.NewService(store.CashSessions(), store, store.Outbox(), store.Audit())
	return &fixture{
		store:    store,
		ledger:   ledger,
		sessions: sessions,
		sales: sale.NewService(sale.ServiceConfig{
			Repo:      store.Sales(),
			Ledger:    ledger,
			Numerator: store.Sequencer("FAC"),
			Sessions:  sessions,
			TxManager: store,
			Events:    store.Outbox(),
			Audit:     store.Audit(),
			Pricing:   sale.DefaultConfig(),
			Clock:     func() time.Time { return fixedNow },
		}),
		actor: appctx.Actor{TenantID: id.New(), UserID: id.New(), UserName: "Ana", Role: "cashier"},
	}
}

func (f *fixture) product(t *testing.T, sku, price string, qty int64) *product.Product {
	t.Helper()
	ctx := context.Background()
	p := &product.Product{Name: "Product " + sku, SKU: sku, Price: types.MustMoney(price)}
	require.NoError(t, product.NewService(f.store.Products()).Create(ctx, f.actor, p))
	if qty > 0 {
		_, err := f.ledger.ApplyStockChange(ctx, f.actor, stock.Change{
			ProductID: p.ID, Type: stock.TypeEntrada, Quantity: qty, Reason: "initial",
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

func (f *fixture) movementsFor(t *testing.T, ref id.ID) []stock.Movement {
	t.Helper()
	res, err := f.ledger.History(context.Background(), f.actor, stock.MovementFilter{ReferenceID: &ref, Limit: 100})
	require.NoError(t, err)
	return res.Items
}

func cashSale(amount string, items ...sale.ItemInput) sale.CreateInput {
	return sale.CreateInput{Items: items, PaymentMethod: sale.PaymentCash, AmountPaid: types.MustMoney(amount)}
}

func line(p *product.Product, qty int64) sale.ItemInput {
	return sale.ItemInput{ProductID: p.ID, Quantity: qty, Discount: types.Zero()}
}

func TestCreateSale_CashSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "10000", 10)
	b := f.product(t, "B", "5000", 5)

	in := cashSale("50000", line(a, 2), sale.ItemInput{ProductID: b.ID, Quantity: 2, Discount: types.MustMoney("10")})
	s, err := f.sales.CreateSale(ctx, f.actor, in)
	require.NoError(t, err)

	assert.Equal(t, "FAC-00001", s.InvoiceNumber)
	assert.Equal(t, sale.StatusCompleted, s.Status)
	assert.Equal(t, "29000.00", s.Subtotal.StringFixed(2))
	assert.Equal(t, "1000.00", s.Discount.StringFixed(2))
	assert.Equal(t, "5510.00", s.Tax.StringFixed(2))
	assert.Equal(t, "34510.00", s.Total.StringFixed(2))
	assert.Equal(t, "15490.00", s.Change.StringFixed(2))
	assert.Equal(t, f.actor.UserID, s.SellerID)
	assert.Nil(t, s.CashSessionID)

	require.Len(t, s.Items, 2)
	assert.Equal(t, "10000", s.Items[0].UnitPrice.String())
	assert.Equal(t, "9000.00", s.Items[1].Subtotal.StringFixed(2))

	assert.Equal(t, int64(8), f.stockOf(t, a.ID))
	assert.Equal(t, int64(3), f.stockOf(t, b.ID))

	movements := f.movementsFor(t, s.ID)
	require.Len(t, movements, 2)
	for _, m := range movements {
		assert.Equal(t, stock.TypeVenta, m.Type)
		assert.Equal(t, "Sale FAC-00001", m.Reason)
	}

	evts := f.store.Outbox().Events()
	require.Len(t, evts, 1)
	assert.Equal(t, events.TypeSaleCompleted, evts[0].Type)
	assert.Equal(t, s.ID, evts[0].AggregateID)
}

func TestCreateSale_PriceIsSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "1000", 5)

	s, err := f.sales.CreateSale(ctx, f.actor, cashSale("5000", line(a, 1)))
	require.NoError(t, err)

	stored, err := f.sales.FindSale(ctx, f.actor, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", stored.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, a.Name, stored.Items[0].ProductName)
	assert.Equal(t, a.SKU, stored.Items[0].ProductSKU)
}

func TestCreateSale_AtomicOnInsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "100", 10)
	b := f.product(t, "B", "100", 1)
	c := f.product(t, "C", "100", 10)

	_, err := f.sales.CreateSale(ctx, f.actor, cashSale("100000", line(a, 2), line(b, 5), line(c, 3)))
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInsufficientStock))

	assert.Equal(t, int64(10), f.stockOf(t, a.ID))
	assert.Equal(t, int64(1), f.stockOf(t, b.ID))
	assert.Equal(t, int64(10), f.stockOf(t, c.ID))

	list, err := f.sales.ListSales(ctx, f.actor, sale.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)

	venta := stock.TypeVenta
	res, err := f.ledger.History(ctx, f.actor, stock.MovementFilter{Type: &venta})
	require.NoError(t, err)
	assert.Zero(t, res.TotalCount)
	assert.Empty(t, f.store.Outbox().Events())

	// The rolled back sale did not consume an invoice number.
	s, err := f.sales.CreateSale(ctx, f.actor, cashSale("1000", line(a, 1)))
	require.NoError(t, err)
	assert.Equal(t, "FAC-00001", s.InvoiceNumber)
}

func TestCreateSale_DuplicateLinesShareStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "100", 4)

	_, err := f.sales.CreateSale(ctx, f.actor, cashSale("10000", line(a, 3), line(a, 2)))
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInsufficientStock))
	assert.Equal(t, int64(4), f.stockOf(t, a.ID))
}

func TestCreateSale_InsufficientPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "1000", 5)

	_, err := f.sales.CreateSale(ctx, f.actor, cashSale("1189.99", line(a, 1)))
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInsufficientPayment))
	assert.Equal(t, int64(5), f.stockOf(t, a.ID))

	s, err := f.sales.CreateSale(ctx, f.actor, cashSale("1190", line(a, 1)))
	require.NoError(t, err)
	assert.True(t, s.Change.IsZero())
}

func TestCreateSale_UnknownProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.sales.CreateSale(ctx, f.actor, cashSale("10", sale.ItemInput{ProductID: id.New(), Quantity: 1, Discount: types.Zero()}))
	assert.True(t, apperror.IsNotFound(err))
}

func TestCreateSale_CreditRequiresCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "25000", 5)
	b := f.product(t, "B", "15000", 5)

	in := sale.CreateInput{
		Items:         []sale.ItemInput{line(a, 1), line(b, 1)},
		PaymentMethod: sale.PaymentCredit,
	}
	_, err := f.sales.CreateSale(ctx, f.actor, in)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeMissingCustomerForCredit))

	assert.Equal(t, int64(5), f.stockOf(t, a.ID))
	assert.Equal(t, int64(5), f.stockOf(t, b.ID))
	assert.Empty(t, f.movementsForType(t, stock.TypeVenta))
}

func (f *fixture) movementsForType(t *testing.T, typ stock.MovementType) []stock.Movement {
	t.Helper()
	res, err := f.ledger.History(context.Background(), f.actor, stock.MovementFilter{Type: &typ, Limit: 100})
	require.NoError(t, err)
	return res.Items
}

func TestCreateSale_CreditSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "25000", 5)
	b := f.product(t, "B", "15000", 5)
	customer := id.New()

	s, err := f.sales.CreateSale(ctx, f.actor, sale.CreateInput{
		Items:         []sale.ItemInput{line(a, 1), line(b, 1)},
		PaymentMethod: sale.PaymentCredit,
		AmountPaid:    types.MustMoney("99999"),
		CustomerID:    &customer,
	})
	require.NoError(t, err)

	assert.Equal(t, "47600.00", s.Total.StringFixed(2))
	assert.True(t, s.AmountPaid.IsZero())
	assert.True(t, s.Change.IsZero())
	require.NotNil(t, s.CreditStatus)
	assert.Equal(t, sale.CreditPending, *s.CreditStatus)
	require.NotNil(t, s.DueDate)
	assert.Equal(t, fixedNow.AddDate(0, 0, 30), *s.DueDate)
}

func TestCreateSale_ConcurrentInvoicesAreGapless(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "10", 1000)
	b := f.product(t, "B", "10", 1000)

	const n = 25
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		invoices []string
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := a
			if i%2 == 0 {
				p = b
			}
			s, err := f.sales.CreateSale(ctx, f.actor, cashSale("100", line(p, 1)))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			invoices = append(invoices, s.InvoiceNumber)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	require.Len(t, invoices, n)
	sort.Strings(invoices)
	for i, inv := range invoices {
		assert.Equal(t, fmt.Sprintf("FAC-%05d", i+1), inv)
	}
	assert.Equal(t, int64(2000-n), f.stockOf(t, a.ID)+f.stockOf(t, b.ID))
}

func TestCreateSale_RacesBulkAdjustInOppositeOrder(t *testing.T) {
	f := newFixture(t)
	first := f.product(t, "A", "1000", 500)
	second := f.product(t, "B", "1000", 500)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const pairs = 100
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []error
	)
	record := func(err error) {
		if err != nil {
			mu.Lock()
			failures = append(failures, err)
			mu.Unlock()
		}
	}
	for i := 0; i < pairs; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.sales.CreateSale(ctx, f.actor, cashSale("100000", line(first, 1), line(second, 1)))
			record(err)
		}()
		go func() {
			defer wg.Done()
			_, err := f.ledger.BulkAdjust(ctx, f.actor, []stock.Change{
				{ProductID: second.ID, Type: stock.TypeSalida, Quantity: 1, Reason: "shrink"},
				{ProductID: first.ID, Type: stock.TypeSalida, Quantity: 1, Reason: "shrink"},
			})
			record(err)
		}()
	}
	wg.Wait()

	require.NoError(t, ctx.Err())
	require.Empty(t, failures)
	assert.Equal(t, int64(500-2*pairs), f.stockOf(t, first.ID))
	assert.Equal(t, int64(500-2*pairs), f.stockOf(t, second.ID))

	list, err := f.sales.ListSales(context.Background(), f.actor, sale.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(pairs), list.TotalCount)
}

func TestCreateSale_InvoicesArePerTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "10", 10)

	first, err := f.sales.CreateSale(ctx, f.actor, cashSale("100", line(a, 1)))
	require.NoError(t, err)
	assert.Equal(t, "FAC-00001", first.InvoiceNumber)

	other := appctx.Actor{TenantID: id.New(), UserID: id.New()}
	p := &product.Product{Name: "Other", SKU: "A", Price: types.MustMoney("10")}
	require.NoError(t, product.NewService(f.store.Products()).Create(ctx, other, p))
	_, err = f.ledger.ApplyStockChange(ctx, other, stock.Change{ProductID: p.ID, Type: stock.TypeEntrada, Quantity: 1, Reason: "initial"})
	require.NoError(t, err)

	s, err := f.sales.CreateSale(ctx, other, cashSale("100", sale.ItemInput{ProductID: p.ID, Quantity: 1, Discount: types.Zero()}))
	require.NoError(t, err)
	assert.Equal(t, "FAC-00001", s.InvoiceNumber)

	_, err = f.sales.FindSale(ctx, other, first.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestCreateSale_TaggedWithOpenSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "10", 10)

	session, err := f.sessions.Open(ctx, f.actor, types.MustMoney("0"))
	require.NoError(t, err)

	s, err := f.sales.CreateSale(ctx, f.actor, cashSale("100", line(a, 1)))
	require.NoError(t, err)
	require.NotNil(t, s.CashSessionID)
	assert.Equal(t, session.ID, *s.CashSessionID)

	_, err = f.sessions.Close(ctx, f.actor, session.ID, cash_session.CloseInput{ActualCash: types.MustMoney("11.90")})
	require.NoError(t, err)

	s, err = f.sales.CreateSale(ctx, f.actor, cashSale("100", line(a, 1)))
	require.NoError(t, err)
	assert.Nil(t, s.CashSessionID)
}

func TestCancelSale_RestoresStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "100", 10)

	s, err := f.sales.CreateSale(ctx, f.actor, cashSale("1000", line(a, 3)))
	require.NoError(t, err)
	require.Equal(t, int64(7), f.stockOf(t, a.ID))

	voided, err := f.sales.CancelSale(ctx, f.actor, s.ID)
	require.NoError(t, err)
	assert.Equal(t, sale.StatusVoided, voided.Status)
	require.NotNil(t, voided.VoidedBy)
	assert.Equal(t, f.actor.UserID, *voided.VoidedBy)
	assert.NotNil(t, voided.VoidedAt)
	assert.Equal(t, int64(10), f.stockOf(t, a.ID))

	var returns []stock.Movement
	for _, m := range f.movementsFor(t, s.ID) {
		if m.Type == stock.TypeDevolucion {
			returns = append(returns, m)
		}
	}
	require.Len(t, returns, 1)
	assert.Equal(t, int64(3), returns[0].Quantity)
	assert.Equal(t, "Cancellation "+s.InvoiceNumber, returns[0].Reason)

	_, err = f.sales.CancelSale(ctx, f.actor, s.ID)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeAlreadyVoided))
	assert.Equal(t, int64(10), f.stockOf(t, a.ID))

	entries := f.store.Audit().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, s.ID, entries[0].EntityID)
}

func TestCancelSale_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.sales.CancelSale(context.Background(), f.actor, id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestListSales_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "10", 10)

	first, err := f.sales.CreateSale(ctx, f.actor, cashSale("100", line(a, 1)))
	require.NoError(t, err)
	_, err = f.sales.CreateSale(ctx, f.actor, cashSale("100", line(a, 1)))
	require.NoError(t, err)
	_, err = f.sales.CancelSale(ctx, f.actor, first.ID)
	require.NoError(t, err)

	voided := sale.StatusVoided
	res, err := f.sales.ListSales(ctx, f.actor, sale.ListFilter{Status: &voided})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.TotalCount)
	assert.Equal(t, first.ID, res.Items[0].ID)

	res, err = f.sales.ListSales(ctx, f.actor, sale.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.TotalCount)
}

func TestCreateSale_DuplicateInvoiceRollsBackStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", "10", 5)

	stuck := &numerator.MockGenerator{
		NextFunc: func(context.Context, id.ID) (string, error) { return "FAC-00007", nil },
	}
	svc := sale.NewService(sale.ServiceConfig{
		Repo:      f.store.Sales(),
		Ledger:    f.ledger,
		Numerator: stuck,
		Sessions:  f.sessions,
		TxManager: f.store,
		Events:    f.store.Outbox(),
		Audit:     f.store.Audit(),
		Pricing:   sale.DefaultConfig(),
	})

	_, err := svc.CreateSale(ctx, f.actor, cashSale("100", line(a, 1)))
	require.NoError(t, err)

	_, err = svc.CreateSale(ctx, f.actor, cashSale("100", line(a, 2)))
	assert.True(t, apperror.Is(err, apperror.CodeConflict))
	assert.Equal(t, int64(4), f.stockOf(t, a.ID))
}

func TestCreateSale_NumeratorFailure(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", "10", 5)
	svc := sale.NewService(sale.ServiceConfig{
		Repo:      f.store.Sales(),
		Ledger:    f.ledger,
		Numerator: &numerator.MockGenerator{NextFunc: func(context.Context, id.ID) (string, error) { return "", fmt.Errorf("sequence unavailable") }},
		Sessions:  f.sessions,
		TxManager: f.store,
		Pricing:   sale.DefaultConfig(),
	})

	_, err := svc.CreateSale(context.Background(), f.actor, cashSale("100", line(a, 1)))
	require.Error(t, err)
	assert.Equal(t, int64(5), f.stockOf(t, a.ID))
}
