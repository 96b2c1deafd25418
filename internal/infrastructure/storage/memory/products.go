package memory

import (
	"context"
	"sort"
	"time"

	"cashpoint/internal/core/apperror"
	"cashpoint/internal/core/id"
	"cashpoint/internal/domain"
	"cashpoint/internal/domain/catalogs/product"
	"cashpoint/internal/domain/registers/stock"
)

var (
	_ product.Repository = (*ProductRepo)(nil)
	_ stock.Repository   = (*StockRepo)(nil)
)

// ProductRepo implements product.Repository.
type ProductRepo struct{ s *Store }

func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }

func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	r.s.mu.RLock()
	for _, existing := range r.s.products {
		if existing.TenantID == p.TenantID && existing.SKU == p.SKU {
			r.s.mu.RUnlock()
			return apperror.NewConflict("product with this sku already exists").WithDetail("sku", p.SKU)
		}
	}
	r.s.mu.RUnlock()

	row := *p
	r.s.write(ctx,
		func() { r.s.products[row.ID] = row },
		func() { delete(r.s.products, row.ID) },
	)
	return nil
}

func (r *ProductRepo) GetByID(ctx context.Context, tenantID, productID id.ID) (*product.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.productLocked(tenantID, productID)
}

func (r *ProductRepo) List(ctx context.Context, tenantID id.ID, filter domain.ListFilter) (domain.ListResult[product.Product], error) {
	r.s.mu.RLock()
	all := make([]product.Product, 0)
	for _, p := range r.s.products {
		if p.TenantID == tenantID {
			all = append(all, p)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return domain.Paginate(all, filter), nil
}

func (r *ProductRepo) ListBelowReorderPoint(ctx context.Context, tenantID id.ID) ([]product.Product, error) {
	r.s.mu.RLock()
	out := make([]product.Product, 0)
	for _, p := range r.s.products {
		if p.TenantID == tenantID && p.BelowReorderPoint() {
			out = append(out, p)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Stock < out[j].Stock })
	return out, nil
}

// productLocked reads a product; the caller holds s.mu.
func (s *Store) productLocked(tenantID, productID id.ID) (*product.Product, error) {
	p, ok := s.products[productID]
	if !ok || p.TenantID != tenantID {
		return nil, apperror.NewNotFound("product", productID)
	}
	return &p, nil
}

// StockRepo implements stock.Repository.
type StockRepo struct{ s *Store }

func (s *Store) Stock() *StockRepo { return &StockRepo{s: s} }

func (r *StockRepo) LockProduct(ctx context.Context, tenantID, productID id.ID) (*product.Product, error) {
	r.s.mu.RLock()
	_, err := r.s.productLocked(tenantID, productID)
	r.s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	if err := r.s.lock(ctx, productKey(productID)); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.productLocked(tenantID, productID)
}

func (r *StockRepo) SetStock(ctx context.Context, tenantID, productID id.ID, newStock int64, at time.Time) error {
	r.s.mu.RLock()
	p, err := r.s.productLocked(tenantID, productID)
	r.s.mu.RUnlock()
	if err != nil {
		return err
	}

	prevStock, prevUpdated := p.Stock, p.UpdatedAt
	r.s.write(ctx,
		func() {
			row := r.s.products[productID]
			row.Stock, row.UpdatedAt = newStock, at
			r.s.products[productID] = row
		},
		func() {
			row := r.s.products[productID]
			row.Stock, row.UpdatedAt = prevStock, prevUpdated
			r.s.products[productID] = row
		},
	)
	return nil
}

func (r *StockRepo) InsertMovement(ctx context.Context, m *stock.Movement) error {
	row := *m
	r.s.write(ctx,
		func() { r.s.movements = append(r.s.movements, row) },
		func() { r.s.movements = removeByID(r.s.movements, row.ID, func(m stock.Movement) id.ID { return m.ID }) },
	)
	return nil
}

func (r *StockRepo) ListMovements(ctx context.Context, tenantID id.ID, filter stock.MovementFilter) (domain.ListResult[stock.Movement], error) {
	r.s.mu.RLock()
	out := make([]stock.Movement, 0)
	for i := len(r.s.movements) - 1; i >= 0; i-- {
		m := r.s.movements[i]
		if m.TenantID != tenantID {
			continue
		}
		if filter.ProductID != nil && m.ProductID != *filter.ProductID {
			continue
		}
		if filter.Type != nil && m.Type != *filter.Type {
			continue
		}
		if filter.ReferenceID != nil && (m.ReferenceID == nil || *m.ReferenceID != *filter.ReferenceID) {
			continue
		}
		if filter.FromDate != nil && m.CreatedAt.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && m.CreatedAt.After(*filter.ToDate) {
			continue
		}
		out = append(out, m)
	}
	r.s.mu.RUnlock()

	return domain.Paginate(out, domain.ListFilter{Limit: filter.Limit, Offset: filter.Offset}), nil
}

func removeByID[T any](rows []T, target id.ID, key func(T) id.ID) []T {
	for i := len(rows) - 1; i >= 0; i-- {
		if key(rows[i]) == target {
			return append(rows[:i:i], rows[i+1:]...)
		}
	}
	return rows
}
