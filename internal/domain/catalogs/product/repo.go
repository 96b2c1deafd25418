package product

import (
	"context"

	"cashpoint/internal/core/id"
	"cashpoint/internal/domain"
)

// Repository defines persistence for products.
type Repository interface {
	Create(ctx context.Context, p *Product) error

	// GetByID returns apperror NotFound when the product does not belong to the tenant.
	GetByID(ctx context.Context, tenantID, productID id.ID) (*Product, error)

	List(ctx context.Context, tenantID id.ID, filter domain.ListFilter) (domain.ListResult[Product], error)

	// ListBelowReorderPoint returns products with stock at or below their reorder point.
	ListBelowReorderPoint(ctx context.Context, tenantID id.ID) ([]Product, error)
}
