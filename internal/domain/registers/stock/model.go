// Package stock provides the stock ledger: the authoritative product stock
// counter and its append-only movement log.
package stock

import (
	"fmt"
	"math"
	"strings"
	"time"

	"cashpoint/internal/core/apperror"
	"cashpoint/internal/core/id"
)

// MovementType classifies a stock change.
type MovementType string

const (
	TypeEntrada    MovementType = "entrada"    // purchase / manual receipt
	TypeSalida     MovementType = "salida"     // manual issue
	TypeAjuste     MovementType = "ajuste"     // physical count, sets absolute stock
	TypeVenta      MovementType = "venta"      // sale
	TypeDevolucion MovementType = "devolucion" // sale cancellation
)

// Direction is how a movement type affects the counter.
type Direction int

const (
	DirectionIn Direction = iota + 1
	DirectionOut
	DirectionSet
)

// Direction returns the effect of t on stock, or false for an unknown type.
func (t MovementType) Direction() (Direction, bool) {
	switch t {
	case TypeEntrada, TypeDevolucion:
		return DirectionIn, true
	case TypeSalida, TypeVenta:
		return DirectionOut, true
	case TypeAjuste:
		return DirectionSet, true
	}
	return 0, false
}

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	_, ok := t.Direction()
	return ok
}

// Movement is one row of the ledger. Quantity is the magnitude of the change.
type Movement struct {
	ID            id.ID        `db:"id" json:"id"`
	TenantID      id.ID        `db:"tenant_id" json:"tenantId"`
	ProductID     id.ID        `db:"product_id" json:"productId"`
	Type          MovementType `db:"type" json:"type"`
	Quantity      int64        `db:"quantity" json:"quantity"`
	PreviousStock int64        `db:"previous_stock" json:"previousStock"`
	NewStock      int64        `db:"new_stock" json:"newStock"`
	Reason        string       `db:"reason" json:"reason"`
	ReferenceID   *id.ID       `db:"reference_id" json:"referenceId,omitempty"`
	UserID        *id.ID       `db:"user_id" json:"userId,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"createdAt"`
}

// Change is a request to move stock of one product.
// For TypeAjuste, Quantity is the new absolute stock.
type Change struct {
	ProductID   id.ID
	Type        MovementType
	Quantity    int64
	Reason      string
	ReferenceID *id.ID
}

// Validate checks the request shape before any row is touched.
func (c Change) Validate() error {
	if id.IsNil(c.ProductID) {
		return apperror.NewValidation("product_id is required")
	}
	dir, ok := c.Type.Direction()
	if !ok {
		return apperror.NewValidation(fmt.Sprintf("unknown movement type %q", c.Type))
	}
	if dir == DirectionSet {
		if c.Quantity < 0 {
			return apperror.NewValidation("adjusted stock must not be negative")
		}
	} else if c.Quantity <= 0 {
		return apperror.NewValidation("quantity must be positive")
	}
	if strings.TrimSpace(c.Reason) == "" {
		return apperror.NewValidation("reason is required")
	}
	return nil
}

// Compute returns the new stock and the quantity to record for applying c to current.
// The change must already be valid.
func Compute(current int64, c Change) (newStock, recorded int64, err error) {
	dir, _ := c.Type.Direction()
	switch dir {
	case DirectionIn:
		if c.Quantity > math.MaxInt64-current {
			return 0, 0, apperror.NewValidation("quantity exceeds the maximum stock")
		}
		return current + c.Quantity, c.Quantity, nil
	case DirectionOut:
		newStock = current - c.Quantity
		if newStock < 0 {
			return 0, 0, apperror.NewInsufficientStock(c.ProductID.String(), c.Quantity, current)
		}
		return newStock, c.Quantity, nil
	default:
		recorded = c.Quantity - current
		if recorded < 0 {
			recorded = -recorded
		}
		return c.Quantity, recorded, nil
	}
}

// MovementFilter for filtering movement history.
type MovementFilter struct {
	ProductID   *id.ID
	Type        *MovementType
	ReferenceID *id.ID
	FromDate    *time.Time
	ToDate      *time.Time
	Limit       int
	Offset      int
}
