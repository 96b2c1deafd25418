package sale

import (
	"context"
	"fmt"
	"time"

	"cashpoint/internal/core/apperror"
	appctx "cashpoint/internal/core/context"
	"cashpoint/internal/core/events"
	"cashpoint/internal/core/id"
	"cashpoint/internal/core/numerator"
	"cashpoint/internal/core/tx"
	"cashpoint/internal/core/types"
	"cashpoint/internal/domain"
	"cashpoint/internal/domain/audit"
	"cashpoint/internal/domain/catalogs/product"
	"cashpoint/internal/domain/registers/stock"
	"cashpoint/pkg/logger"
)

// StockLedger is the subset of the stock ledger used by sales.
type StockLedger interface {
	LockProduct(ctx context.Context, tenantID, productID id.ID) (*product.Product, error)
	LockProducts(ctx context.Context, tenantID id.ID, productIDs []id.ID) error
	Apply(ctx context.Context, tenantID id.ID, userID *id.ID, c stock.Change) (*stock.Movement, error)
}

// SessionLocator finds the tenant's open cash session.
type SessionLocator interface {
	// LockOpenSessionID returns the open session ID, or nil when none is open.
	// The session cannot be closed until the calling transaction ends.
	LockOpenSessionID(ctx context.Context, tenantID id.ID) (*id.ID, error)
}

// ServiceConfig wires the sale service.
type ServiceConfig struct {
	Repo      Repository
	Ledger    StockLedger
	Numerator numerator.Generator
	Sessions  SessionLocator // optional, sales stay untagged without it
	TxManager tx.Manager
	Events    events.Publisher
	Audit     audit.Recorder
	Pricing   Config
	Clock     func() time.Time
}

// Service provides sale creation and cancellation.
type Service struct {
	repo      Repository
	ledger    StockLedger
	numerator numerator.Generator
	sessions  SessionLocator
	txManager tx.Manager
	events    events.Publisher
	audit     audit.Recorder
	pricing   Config
	now       func() time.Time
}

// NewService creates a new sale service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:      cfg.Repo,
		ledger:    cfg.Ledger,
		numerator: cfg.Numerator,
		sessions:  cfg.Sessions,
		txManager: cfg.TxManager,
		events:    cfg.Events,
		audit:     cfg.Audit,
		pricing:   cfg.Pricing,
		now:       cfg.Clock,
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.pricing.CreditDays <= 0 {
		s.pricing.CreditDays = DefaultCreditDays
	}
	return s
}

// CreateSale validates, prices and persists a sale, decrementing stock and
// issuing the invoice number in one transaction.
func (s *Service) CreateSale(ctx context.Context, actor appctx.Actor, in CreateInput) (*Sale, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	saleID := id.New()
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		invoice, err := s.numerator.Next(ctx, actor.TenantID)
		if err != nil {
			return fmt.Errorf("next invoice number: %w", err)
		}

		productIDs := make([]id.ID, 0, len(in.Items))
		for _, it := range in.Items {
			productIDs = append(productIDs, it.ProductID)
		}
		if err := s.ledger.LockProducts(ctx, actor.TenantID, productIDs); err != nil {
			return err
		}

		items := make([]Item, 0, len(in.Items))
		discount := types.Zero()
		for i, line := range in.Items {
			p, err := s.ledger.LockProduct(ctx, actor.TenantID, line.ProductID)
			if err != nil {
				return err
			}
			if p.Stock < line.Quantity {
				return apperror.NewInsufficientStock(p.ID.String(), line.Quantity, p.Stock).WithDetail("index", i)
			}

			subtotal, lineDiscount := PriceLine(p.Price, line.Quantity, line.Discount)
			discount = discount.Add(lineDiscount)
			items = append(items, Item{
				ID:                 id.New(),
				SaleID:             saleID,
				ProductID:          p.ID,
				ProductName:        p.Name,
				ProductSKU:         p.SKU,
				Quantity:           line.Quantity,
				UnitPrice:          p.Price,
				DiscountPercentage: line.Discount,
				Subtotal:           subtotal,
				LineNo:             i + 1,
			})

			_, err = s.ledger.Apply(ctx, actor.TenantID, &actor.UserID, stock.Change{
				ProductID:   p.ID,
				Type:        stock.TypeVenta,
				Quantity:    line.Quantity,
				Reason:      "Sale " + invoice,
				ReferenceID: &saleID,
			})
			if err != nil {
				return err
			}
		}

		sale, err := s.buildSale(actor, saleID, invoice, in, items, discount)
		if err != nil {
			return err
		}

		if s.sessions != nil {
			sessionID, err := s.sessions.LockOpenSessionID(ctx, actor.TenantID)
			if err != nil {
				return fmt.Errorf("find open cash session: %w", err)
			}
			sale.CashSessionID = sessionID
		}

		if err := s.repo.Create(ctx, sale); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}
		if err := s.repo.SaveItems(ctx, saleID, items); err != nil {
			return fmt.Errorf("save sale items: %w", err)
		}

		return s.events.Publish(ctx, events.New(actor.TenantID, events.AggregateSale, saleID, events.TypeSaleCompleted, map[string]any{
			"invoiceNumber": sale.InvoiceNumber,
			"paymentMethod": sale.PaymentMethod,
			"total":         sale.Total.StringFixed(types.MoneyPlaces),
			"cashSessionId": sale.CashSessionID,
		}))
	})
	if err != nil {
		return nil, err
	}

	created, err := s.FindSale(ctx, actor, saleID)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "sale created",
		"sale_id", created.ID,
		"invoice", created.InvoiceNumber,
		"total", created.Total.String(),
		"payment_method", created.PaymentMethod,
	)
	return created, nil
}

func (s *Service) buildSale(actor appctx.Actor, saleID id.ID, invoice string, in CreateInput, items []Item, discount types.Money) (*Sale, error) {
	totals := ComputeTotals(items, discount, s.pricing.TaxRate)
	now := s.now().UTC()

	sale := &Sale{
		ID:            saleID,
		TenantID:      actor.TenantID,
		InvoiceNumber: invoice,
		CustomerID:    in.CustomerID,
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Discount:      totals.Discount,
		Total:         totals.Total,
		PaymentMethod: in.PaymentMethod,
		SellerID:      actor.UserID,
		SellerName:    actor.UserName,
		Status:        StatusCompleted,
		Notes:         in.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if in.PaymentMethod == PaymentCredit {
		days := s.pricing.CreditDays
		if in.CreditDays != nil {
			days = *in.CreditDays
		}
		due := now.AddDate(0, 0, days)
		pending := CreditPending
		sale.AmountPaid = types.Zero()
		sale.Change = types.Zero()
		sale.CreditStatus = &pending
		sale.DueDate = &due
		return sale, nil
	}

	change := in.AmountPaid.Sub(totals.Total)
	if change.IsNegative() {
		return nil, apperror.NewInsufficientPayment(totals.Total.StringFixed(types.MoneyPlaces), in.AmountPaid.StringFixed(types.MoneyPlaces))
	}
	sale.AmountPaid = in.AmountPaid
	sale.Change = change
	return sale, nil
}

// CancelSale voids a completed sale and returns every item to stock.
func (s *Service) CancelSale(ctx context.Context, actor appctx.Actor, saleID id.ID) (*Sale, error) {
	var invoice string
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sale, err := s.repo.GetForUpdate(ctx, actor.TenantID, saleID)
		if err != nil {
			return err
		}
		if err := sale.CanVoid(); err != nil {
			return err
		}
		invoice = sale.InvoiceNumber

		items, err := s.repo.GetItems(ctx, saleID)
		if err != nil {
			return fmt.Errorf("get sale items: %w", err)
		}

		productIDs := make([]id.ID, 0, len(items))
		for _, it := range items {
			productIDs = append(productIDs, it.ProductID)
		}
		if err := s.ledger.LockProducts(ctx, actor.TenantID, productIDs); err != nil {
			return err
		}

		for _, it := range items {
			_, err := s.ledger.Apply(ctx, actor.TenantID, &actor.UserID, stock.Change{
				ProductID:   it.ProductID,
				Type:        stock.TypeDevolucion,
				Quantity:    it.Quantity,
				Reason:      "Cancellation " + sale.InvoiceNumber,
				ReferenceID: &sale.ID,
			})
			if err != nil {
				return err
			}
		}

		if err := s.repo.MarkVoided(ctx, actor.TenantID, saleID, actor.UserID, s.now().UTC()); err != nil {
			return fmt.Errorf("mark sale voided: %w", err)
		}

		err = s.audit.Record(ctx, audit.Entry{
			TenantID:   actor.TenantID,
			EntityType: events.AggregateSale,
			EntityID:   saleID,
			Action:     audit.ActionVoid,
			UserID:     actor.UserID,
			UserName:   actor.UserName,
			Changes: map[string]any{
				"status":        map[string]any{"old": StatusCompleted, "new": StatusVoided},
				"invoiceNumber": sale.InvoiceNumber,
				"items":         len(items),
			},
		})
		if err != nil {
			return fmt.Errorf("record audit: %w", err)
		}

		return s.events.Publish(ctx, events.New(actor.TenantID, events.AggregateSale, saleID, events.TypeSaleVoided, map[string]any{
			"invoiceNumber": sale.InvoiceNumber,
			"total":         sale.Total.StringFixed(types.MoneyPlaces),
		}))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale voided", "sale_id", saleID, "invoice", invoice)
	return s.FindSale(ctx, actor, saleID)
}

// FindSale returns a sale with its items.
func (s *Service) FindSale(ctx context.Context, actor appctx.Actor, saleID id.ID) (*Sale, error) {
	sale, err := s.repo.GetByID(ctx, actor.TenantID, saleID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.GetItems(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("get sale items: %w", err)
	}
	sale.Items = items

	return sale, nil
}

// ListSales returns sale headers without items.
func (s *Service) ListSales(ctx context.Context, actor appctx.Actor, filter ListFilter) (domain.ListResult[Sale], error) {
	filter.ListFilter = filter.ListFilter.Normalize()
	return s.repo.List(ctx, actor.TenantID, filter)
}
