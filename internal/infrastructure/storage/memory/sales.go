package memory

import (
	"context"
	"sort"
	"time"

	"cashpoint/internal/core/apperror"
	"cashpoint/internal/core/id"
	"cashpoint/internal/domain"
	"cashpoint/internal/domain/documents/sale"
)

var _ sale.Repository = (*SaleRepo)(nil)

// SaleRepo implements sale.Repository.
type SaleRepo struct{ s *Store }

func (s *Store) Sales() *SaleRepo { return &SaleRepo{s: s} }

func (r *SaleRepo) Create(ctx context.Context, sl *sale.Sale) error {
	r.s.mu.RLock()
	for _, existing := range r.s.sales {
		if existing.TenantID == sl.TenantID && existing.InvoiceNumber == sl.InvoiceNumber {
			r.s.mu.RUnlock()
			return apperror.NewConflict("invoice number already issued").WithDetail("invoice_number", sl.InvoiceNumber)
		}
	}
	r.s.mu.RUnlock()

	row := *sl
	row.Items = nil
	r.s.write(ctx,
		func() { r.s.sales[row.ID] = row },
		func() { delete(r.s.sales, row.ID) },
	)
	return nil
}

func (r *SaleRepo) SaveItems(ctx context.Context, saleID id.ID, items []sale.Item) error {
	rows := append([]sale.Item(nil), items...)
	r.s.mu.RLock()
	prev, had := r.s.saleItems[saleID]
	r.s.mu.RUnlock()

	r.s.write(ctx,
		func() { r.s.saleItems[saleID] = rows },
		func() {
			if had {
				r.s.saleItems[saleID] = prev
			} else {
				delete(r.s.saleItems, saleID)
			}
		},
	)
	return nil
}

func (r *SaleRepo) GetByID(ctx context.Context, tenantID, saleID id.ID) (*sale.Sale, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.saleLocked(tenantID, saleID)
}

func (r *SaleRepo) GetForUpdate(ctx context.Context, tenantID, saleID id.ID) (*sale.Sale, error) {
	if _, err := r.GetByID(ctx, tenantID, saleID); err != nil {
		return nil, err
	}
	if err := r.s.lock(ctx, saleKey(saleID)); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, tenantID, saleID)
}

func (r *SaleRepo) GetItems(ctx context.Context, saleID id.ID) ([]sale.Item, error) {
	r.s.mu.RLock()
	items := append([]sale.Item{}, r.s.saleItems[saleID]...)
	r.s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return items[i].LineNo < items[j].LineNo })
	return items, nil
}

func (r *SaleRepo) MarkVoided(ctx context.Context, tenantID, saleID, voidedBy id.ID, at time.Time) error {
	r.s.mu.RLock()
	prev, err := r.s.saleLocked(tenantID, saleID)
	r.s.mu.RUnlock()
	if err != nil {
		return err
	}

	old := *prev
	r.s.write(ctx,
		func() {
			row := r.s.sales[saleID]
			row.Status = sale.StatusVoided
			row.VoidedAt = &at
			row.VoidedBy = &voidedBy
			row.UpdatedAt = at
			r.s.sales[saleID] = row
		},
		func() { r.s.sales[saleID] = old },
	)
	return nil
}

func (r *SaleRepo) List(ctx context.Context, tenantID id.ID, filter sale.ListFilter) (domain.ListResult[sale.Sale], error) {
	r.s.mu.RLock()
	out := make([]sale.Sale, 0)
	for _, sl := range r.s.sales {
		if sl.TenantID != tenantID {
			continue
		}
		if filter.Status != nil && sl.Status != *filter.Status {
			continue
		}
		if filter.PaymentMethod != nil && sl.PaymentMethod != *filter.PaymentMethod {
			continue
		}
		if filter.CashSessionID != nil && (sl.CashSessionID == nil || *sl.CashSessionID != *filter.CashSessionID) {
			continue
		}
		if filter.CustomerID != nil && (sl.CustomerID == nil || *sl.CustomerID != *filter.CustomerID) {
			continue
		}
		if filter.FromDate != nil && sl.CreatedAt.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && sl.CreatedAt.After(*filter.ToDate) {
			continue
		}
		out = append(out, sl)
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].InvoiceNumber > out[j].InvoiceNumber
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return domain.Paginate(out, filter.ListFilter), nil
}

func (s *Store) saleLocked(tenantID, saleID id.ID) (*sale.Sale, error) {
	sl, ok := s.sales[saleID]
	if !ok || sl.TenantID != tenantID {
		return nil, apperror.NewNotFound("sale", saleID)
	}
	return &sl, nil
}
