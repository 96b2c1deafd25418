package sale

import (
	"context"
	"time"

	"cashpoint/internal/core/id"
	"cashpoint/internal/domain"
)

// Repository defines persistence for sales and their items.
type Repository interface {
	Create(ctx context.Context, s *Sale) error
	SaveItems(ctx context.Context, saleID id.ID, items []Item) error

	// GetByID returns the header. apperror NotFound outside the tenant.
	GetByID(ctx context.Context, tenantID, saleID id.ID) (*Sale, error)

	// GetForUpdate returns the header with an exclusive row lock.
	GetForUpdate(ctx context.Context, tenantID, saleID id.ID) (*Sale, error)

	// GetItems returns items ordered by line number.
	GetItems(ctx context.Context, saleID id.ID) ([]Item, error)

	MarkVoided(ctx context.Context, tenantID, saleID, voidedBy id.ID, at time.Time) error

	// List returns headers newest first.
	List(ctx context.Context, tenantID id.ID, filter ListFilter) (domain.ListResult[Sale], error)
}

// ListFilter for sale listings.
type ListFilter struct {
	domain.ListFilter

	Status        *Status
	PaymentMethod *PaymentMethod
	CashSessionID *id.ID
	CustomerID    *id.ID
}
