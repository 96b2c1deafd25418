package product

import (
	"context"
	"fmt"
	"strings"
	"time"

	appctx "cashpoint/internal/core/context"
	"cashpoint/internal/core/id"
	"cashpoint/internal/domain"
	"cashpoint/pkg/logger"
)

// Service provides the catalog operations the core needs (seeding, lookups).
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a product with zero stock. Initial stock is loaded with an
// "entrada" movement so the ledger stays the single writer of the counter.
func (s *Service) Create(ctx context.Context, actor appctx.Actor, p *Product) error {
	p.ID = id.New()
	p.TenantID = actor.TenantID
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = strings.TrimSpace(p.SKU)
	p.Stock = 0
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	logger.Info(ctx, "product created", "product_id", p.ID, "sku", p.SKU)
	return nil
}

func (s *Service) Get(ctx context.Context, actor appctx.Actor, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, actor.TenantID, productID)
}

func (s *Service) List(ctx context.Context, actor appctx.Actor, filter domain.ListFilter) (domain.ListResult[Product], error) {
	return s.repo.List(ctx, actor.TenantID, filter.Normalize())
}
