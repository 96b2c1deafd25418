package stock

import (
	"context"
	"time"

	"cashpoint/internal/core/id"
	"cashpoint/internal/domain"
	"cashpoint/internal/domain/catalogs/product"
)

// Repository defines the storage operations of the ledger.
// All methods that write must run inside a transaction.
type Repository interface {
	// LockProduct reads the product with an exclusive row lock held until the
	// transaction ends. Returns apperror NotFound outside the tenant.
	LockProduct(ctx context.Context, tenantID, productID id.ID) (*product.Product, error)

	// SetStock writes the counter of a locked product and stamps it with at.
	SetStock(ctx context.Context, tenantID, productID id.ID, stock int64, at time.Time) error

	// InsertMovement appends to the movement log.
	InsertMovement(ctx context.Context, m *Movement) error

	// ListMovements returns movements newest first.
	ListMovements(ctx context.Context, tenantID id.ID, filter MovementFilter) (domain.ListResult[Movement], error)
}
