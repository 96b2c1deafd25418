package stock

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cashpoint/internal/core/apperror"
	appctx "cashpoint/internal/core/context"
	"cashpoint/internal/core/id"
	"cashpoint/internal/core/tx"
	"cashpoint/internal/domain"
	"cashpoint/internal/domain/audit"
	"cashpoint/internal/domain/catalogs/product"
	"cashpoint/pkg/logger"
)

// Service provides business operations for the stock ledger.
type Service struct {
	repo      Repository
	products  product.Repository
	txManager tx.Manager
	audit     audit.Recorder
	now       func() time.Time
}

// NewService creates a new stock ledger service.
func NewService(repo Repository, products product.Repository, txManager tx.Manager, recorder audit.Recorder) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		repo:      repo,
		products:  products,
		txManager: txManager,
		audit:     recorder,
		now:       time.Now,
	}
}

// WithClock replaces the clock used for movement timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// ApplyStockChange applies a single manual stock change in its own transaction.
func (s *Service) ApplyStockChange(ctx context.Context, actor appctx.Actor, c Change) (*Movement, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var m *Movement
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		m, err = s.Apply(ctx, actor.TenantID, &actor.UserID, c)
		if err != nil {
			return err
		}
		return s.recordAdjustment(ctx, actor, m)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock changed",
		"product_id", m.ProductID,
		"type", m.Type,
		"previous", m.PreviousStock,
		"new", m.NewStock,
	)
	return m, nil
}

// BulkAdjust applies changes in order inside one transaction.
// The first failing change aborts the whole batch; its index is in the error details.
func (s *Service) BulkAdjust(ctx context.Context, actor appctx.Actor, changes []Change) ([]Movement, error) {
	if len(changes) == 0 {
		return nil, apperror.NewValidation("at least one change is required")
	}

	productIDs := make([]id.ID, len(changes))
	for i, c := range changes {
		if err := c.Validate(); err != nil {
			return nil, withIndex(err, i)
		}
		productIDs[i] = c.ProductID
	}

	result := make([]Movement, 0, len(changes))
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.LockProducts(ctx, actor.TenantID, productIDs); err != nil {
			return lockError(err, productIDs)
		}
		for i, c := range changes {
			m, err := s.Apply(ctx, actor.TenantID, &actor.UserID, c)
			if err != nil {
				return withIndex(err, i)
			}
			if err := s.recordAdjustment(ctx, actor, m); err != nil {
				return err
			}
			result = append(result, *m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "bulk stock adjustment applied", "count", len(result))
	return result, nil
}

// Apply is the in-transaction primitive shared with sales and cancellations.
// It joins the caller's transaction when there is one.
func (s *Service) Apply(ctx context.Context, tenantID id.ID, userID *id.ID, c Change) (*Movement, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var m *Movement
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.LockProduct(ctx, tenantID, c.ProductID)
		if err != nil {
			return err
		}

		newStock, recorded, err := Compute(p.Stock, c)
		if err != nil {
			return err
		}
		if c.Type == TypeAjuste && recorded == 0 {
			logger.Warn(ctx, "zero-delta stock adjustment recorded", "product_id", p.ID, "stock", p.Stock)
		}

		now := s.now().UTC()
		if err := s.repo.SetStock(ctx, tenantID, p.ID, newStock, now); err != nil {
			return fmt.Errorf("update stock: %w", err)
		}

		m = &Movement{
			ID:            id.New(),
			TenantID:      tenantID,
			ProductID:     p.ID,
			Type:          c.Type,
			Quantity:      recorded,
			PreviousStock: p.Stock,
			NewStock:      newStock,
			Reason:        c.Reason,
			ReferenceID:   c.ReferenceID,
			UserID:        userID,
			CreatedAt:     now,
		}
		if err := s.repo.InsertMovement(ctx, m); err != nil {
			return fmt.Errorf("insert stock movement: %w", err)
		}

		if p.ReorderPoint > 0 && p.Stock > p.ReorderPoint && newStock <= p.ReorderPoint {
			logger.Warn(ctx, "product reached reorder point",
				"product_id", p.ID,
				"sku", p.SKU,
				"stock", newStock,
				"reorder_point", p.ReorderPoint,
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// LockProduct reads a product under an exclusive row lock.
// Must be called inside a transaction.
func (s *Service) LockProduct(ctx context.Context, tenantID, productID id.ID) (*product.Product, error) {
	if !s.txManager.InTransaction(ctx) {
		return nil, tx.ErrNoTransaction
	}
	return s.repo.LockProduct(ctx, tenantID, productID)
}

// LockProducts locks every distinct product in ID order so that concurrent
// writers touching overlapping products cannot deadlock.
// Must be called inside a transaction.
func (s *Service) LockProducts(ctx context.Context, tenantID id.ID, productIDs []id.ID) error {
	ids := make([]id.ID, 0, len(productIDs))
	seen := make(map[id.ID]struct{}, len(productIDs))
	for _, pid := range productIDs {
		if _, ok := seen[pid]; ok {
			continue
		}
		seen[pid] = struct{}{}
		ids = append(ids, pid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, pid := range ids {
		if _, err := s.LockProduct(ctx, tenantID, pid); err != nil {
			return err
		}
	}
	return nil
}

// History returns the movement log, newest first.
func (s *Service) History(ctx context.Context, actor appctx.Actor, filter MovementFilter) (domain.ListResult[Movement], error) {
	page := domain.ListFilter{Limit: filter.Limit, Offset: filter.Offset}.Normalize()
	filter.Limit, filter.Offset = page.Limit, page.Offset
	return s.repo.ListMovements(ctx, actor.TenantID, filter)
}

// LowStock lists products at or below their reorder point.
func (s *Service) LowStock(ctx context.Context, actor appctx.Actor) ([]product.Product, error) {
	return s.products.ListBelowReorderPoint(ctx, actor.TenantID)
}

func (s *Service) recordAdjustment(ctx context.Context, actor appctx.Actor, m *Movement) error {
	if m.Type != TypeAjuste {
		return nil
	}
	return s.audit.Record(ctx, audit.Entry{
		TenantID:   actor.TenantID,
		EntityType: "product",
		EntityID:   m.ProductID,
		Action:     audit.ActionAdjust,
		UserID:     actor.UserID,
		UserName:   actor.UserName,
		Changes: map[string]any{
			"stock":  map[string]any{"old": m.PreviousStock, "new": m.NewStock},
			"reason": m.Reason,
		},
	})
}

// lockError tags a lock failure with the first change naming the product.
func lockError(err error, productIDs []id.ID) error {
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Details["id"] == nil {
		return err
	}
	ref := fmt.Sprint(appErr.Details["id"])
	for i, pid := range productIDs {
		if pid.String() == ref {
			return withIndex(err, i)
		}
	}
	return err
}

func withIndex(err error, i int) error {
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr.WithDetail("index", i)
	}
	return fmt.Errorf("change %d: %w", i, err)
}
