package numerator

import (
	"context"

	"cashpoint/internal/core/id"
)

// Generator issues per-tenant invoice numbers.
// Implementations live in infrastructure layer.
type Generator interface {
	// Next increments the tenant's counter and returns the formatted number.
	// It must be called inside the transaction that persists the sale, so a
	// rollback also rolls back the increment and numbers stay gapless.
	// The counter is provisioned with the default prefix on first use.
	Next(ctx context.Context, tenantID id.ID) (string, error)

	// SetNext sets the prefix and the last issued value (for provisioning and migration).
	SetNext(ctx context.Context, tenantID id.ID, prefix string, lastIssued int64) error
}
